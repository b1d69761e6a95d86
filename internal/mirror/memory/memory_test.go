package memory

import (
	"context"
	"errors"
	"testing"

	"trackify/internal/core"
)

func TestTransactionsArePartitionedByUser(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.SaveTransactions(ctx, "alice", []core.Transaction{
		{ID: "t1", Date: "2024-03-01"},
		{ID: "t2", Date: "2024-03-05"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTransaction(ctx, "bob", core.Transaction{ID: "t9", Date: "2024-01-01"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTransaction(ctx, "alice", "t1"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTransaction(ctx, "alice", "missing"); err != nil {
		t.Fatalf("delete missing should be a no-op: %v", err)
	}

	alice, _ := s.ListTransactions(ctx, "alice")
	if len(alice) != 1 || alice[0].ID != "t2" {
		t.Fatalf("unexpected alice list: %+v", alice)
	}
	bob, _ := s.ListTransactions(ctx, "bob")
	if len(bob) != 1 || bob[0].ID != "t9" {
		t.Fatalf("unexpected bob list: %+v", bob)
	}
}

func TestScoresOrderingAndCount(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, sc := range []core.UserScore{
		{UserID: "c", TotalScore: 10},
		{UserID: "a", TotalScore: 50},
		{UserID: "b", TotalScore: 50},
		{UserID: "d", TotalScore: -5},
	} {
		if err := s.SaveUserScore(ctx, sc.UserID, sc); err != nil {
			t.Fatal(err)
		}
	}

	top, err := s.GetTopScores(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 3 || top[0].UserID != "a" || top[1].UserID != "b" || top[2].UserID != "c" {
		t.Fatalf("unexpected order: %+v", top)
	}

	n, err := s.CountWithScoreGreaterThan(ctx, 10)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 greater than 10, got %d (err=%v)", n, err)
	}

	if _, err := s.GetUserScore(ctx, "zzz"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailInjection(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("offline")
	s.Fail(boom)
	if err := s.SaveTransaction(ctx, "u", core.Transaction{ID: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	s.Fail(nil)
	if err := s.SaveTransaction(ctx, "u", core.Transaction{ID: "x"}); err != nil {
		t.Fatal(err)
	}
	if s.Calls("save") != 2 {
		t.Fatalf("expected 2 save calls, got %d", s.Calls("save"))
	}
}
