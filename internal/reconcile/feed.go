package reconcile

import (
	"sort"
	"sync"

	"trackify/internal/core"
)

// Snapshot is one published view of the merged collection, sorted by date
// descending. Version increases with every publish.
type Snapshot struct {
	Version      uint64
	Transactions []core.Transaction
}

type feed struct {
	mu      sync.Mutex
	latest  Snapshot
	started bool
	subs    map[int]chan Snapshot
	nextID  int
}

func newFeed() *feed {
	return &feed{subs: make(map[int]chan Snapshot)}
}

// SortByDateDesc orders transactions by date descending. Same-day
// transactions keep their incoming order.
func SortByDateDesc(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date > txs[j].Date
	})
}

func (f *feed) publish(txs []core.Transaction) Snapshot {
	sorted := append([]core.Transaction(nil), txs...)
	SortByDateDesc(sorted)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = Snapshot{Version: f.latest.Version + 1, Transactions: sorted}
	f.started = true
	for _, ch := range f.subs {
		deliver(ch, f.latest)
	}
	return f.latest
}

// deliver replaces any unread snapshot with s.
func deliver(ch chan Snapshot, s Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

func (f *feed) subscribe() (<-chan Snapshot, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	ch := make(chan Snapshot, 1)
	f.subs[id] = ch
	if f.started {
		ch <- f.latest
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

func (f *feed) current() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}
