// Package memory is an in-process mirror backend. It stands in for the remote
// store in tests and offline runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"trackify/internal/core"
	"trackify/internal/mirror"
)

var (
	_ mirror.Mirror     = (*Store)(nil)
	_ mirror.TokenStore = (*Store)(nil)
)

type Store struct {
	mu     sync.Mutex
	txs    map[string]map[string]core.Transaction
	scores map[string]core.UserScore
	tokens map[string]string
	err    error
	calls  map[string]int
}

func New() *Store {
	return &Store{
		txs:    map[string]map[string]core.Transaction{},
		scores: map[string]core.UserScore{},
		tokens: map[string]string{},
		calls:  map[string]int{},
	}
}

// Fail makes every subsequent call return err until Fail(nil).
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how many times op was invoked, failed calls included.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) enter(op string) error {
	s.calls[op]++
	return s.err
}

func (s *Store) SaveTransaction(_ context.Context, userID string, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("save"); err != nil {
		return err
	}
	s.put(userID, tx)
	return nil
}

func (s *Store) SaveTransactions(_ context.Context, userID string, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("save_batch"); err != nil {
		return err
	}
	for _, tx := range txs {
		s.put(userID, tx)
	}
	return nil
}

func (s *Store) put(userID string, tx core.Transaction) {
	byID, ok := s.txs[userID]
	if !ok {
		byID = map[string]core.Transaction{}
		s.txs[userID] = byID
	}
	byID[tx.ID] = tx
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("delete"); err != nil {
		return err
	}
	delete(s.txs[userID], id)
	return nil
}

// ListTransactions returns the user's copy, most recent date first.
func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("list"); err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(s.txs[userID]))
	for _, tx := range s.txs[userID] {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SaveUserScore(_ context.Context, userID string, score core.UserScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("save_score"); err != nil {
		return err
	}
	score.UserID = userID
	score.MonthlyScores = append([]core.MonthlyScore(nil), score.MonthlyScores...)
	s.scores[userID] = score
	return nil
}

func (s *Store) GetTopScores(_ context.Context, limit int) ([]core.UserScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("top_scores"); err != nil {
		return nil, err
	}
	out := make([]core.UserScore, 0, len(s.scores))
	for _, sc := range s.scores {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].UserID < out[j].UserID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetUserScore(_ context.Context, userID string) (core.UserScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("get_score"); err != nil {
		return core.UserScore{}, err
	}
	sc, ok := s.scores[userID]
	if !ok {
		return core.UserScore{}, core.ErrNotFound
	}
	return sc, nil
}

func (s *Store) CountWithScoreGreaterThan(_ context.Context, threshold int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("count_greater"); err != nil {
		return 0, err
	}
	n := 0
	for _, sc := range s.scores {
		if sc.TotalScore > threshold {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetAccessToken(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("get_token"); err != nil {
		return "", err
	}
	tok, ok := s.tokens[userID]
	if !ok {
		return "", core.ErrNotFound
	}
	return tok, nil
}

func (s *Store) SetAccessToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("set_token"); err != nil {
		return err
	}
	s.tokens[userID] = token
	return nil
}

func (s *Store) DeleteAccessToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("delete_token"); err != nil {
		return err
	}
	delete(s.tokens, userID)
	return nil
}
