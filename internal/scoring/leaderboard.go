package scoring

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"trackify/internal/cache"
	"trackify/internal/core"
	"trackify/internal/mirror"
)

const (
	DefaultCacheTTL  = 30 * time.Second
	defaultCacheSize = 16
)

// Leaderboard serves ranked reads over the score store, caching TopScores.
type Leaderboard struct {
	store mirror.ScoreStore
	top   *cache.LRUCache[[]core.UserScore]
}

// NewLeaderboard caches results for ttl. A ttl of zero or less disables caching.
func NewLeaderboard(store mirror.ScoreStore, ttl time.Duration) *Leaderboard {
	lb := &Leaderboard{store: store}
	if ttl > 0 {
		lb.top = cache.NewLRUCache[[]core.UserScore](defaultCacheSize, ttl)
	}
	return lb
}

// Cache exposes the underlying cache so it can be registered for sweeping.
// It is nil when caching is disabled.
func (l *Leaderboard) Cache() *cache.LRUCache[[]core.UserScore] {
	return l.top
}

// Invalidate drops cached reads.
func (l *Leaderboard) Invalidate() {
	if l.top != nil {
		l.top.Clear()
	}
}

// TopScores returns up to limit records by TotalScore descending, ties by UserID.
func (l *Leaderboard) TopScores(ctx context.Context, limit int) ([]core.UserScore, error) {
	if limit <= 0 {
		return nil, nil
	}
	key := strconv.Itoa(limit)
	if l.top != nil {
		if cached, ok := l.top.Get(key); ok {
			return append([]core.UserScore(nil), cached...), nil
		}
	}

	scores, err := l.store.GetTopScores(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("get top scores: %w", err)
	}
	SortScores(scores)
	if len(scores) > limit {
		scores = scores[:limit]
	}

	if l.top != nil {
		l.top.Set(key, append([]core.UserScore(nil), scores...))
	}
	return scores, nil
}

// Rank is 1 plus the number of users with a strictly greater total score.
// It returns core.ErrNotFound when the user has no record.
func (l *Leaderboard) Rank(ctx context.Context, userID string) (int, error) {
	score, err := l.store.GetUserScore(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get user score: %w", err)
	}
	higher, err := l.store.CountWithScoreGreaterThan(ctx, score.TotalScore)
	if err != nil {
		return 0, fmt.Errorf("count higher scores: %w", err)
	}
	return higher + 1, nil
}

// SortScores orders by TotalScore descending, then UserID ascending.
func SortScores(scores []core.UserScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].TotalScore != scores[j].TotalScore {
			return scores[i].TotalScore > scores[j].TotalScore
		}
		return scores[i].UserID < scores[j].UserID
	})
}
