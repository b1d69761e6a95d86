package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"trackify/internal/core"
	"trackify/internal/mirror/memory"
)

func seed(t *testing.T, store *memory.Store, scores map[string]int) {
	t.Helper()
	for id, total := range scores {
		if err := store.SaveUserScore(context.Background(), id, core.UserScore{UserID: id, TotalScore: total}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLeaderboard_TopScoresTieBreak(t *testing.T) {
	store := memory.New()
	seed(t, store, map[string]int{"carol": 50, "alice": 80, "bob": 80, "dave": 10})
	lb := NewLeaderboard(store, 0)

	top, err := lb.TopScores(context.Background(), 3)
	if err != nil {
		t.Fatalf("TopScores: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(top) != len(want) {
		t.Fatalf("expected %d scores, got %d", len(want), len(top))
	}
	for i, id := range want {
		if top[i].UserID != id {
			t.Fatalf("position %d = %s, want %s", i, top[i].UserID, id)
		}
	}

	if none, _ := lb.TopScores(context.Background(), 0); none != nil {
		t.Fatalf("limit 0 should return nothing, got %+v", none)
	}
}

func TestLeaderboard_Rank(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, store, map[string]int{"a": 90, "b": 70, "c": 70, "d": 20})
	lb := NewLeaderboard(store, 0)

	tests := map[string]int{"a": 1, "b": 2, "c": 2, "d": 4}
	for id, want := range tests {
		got, err := lb.Rank(ctx, id)
		if err != nil {
			t.Fatalf("Rank(%s): %v", id, err)
		}
		if got != want {
			t.Errorf("Rank(%s) = %d, want %d", id, got, want)
		}
	}

	if _, err := lb.Rank(ctx, "nobody"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLeaderboard_CacheAndInvalidate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, store, map[string]int{"a": 10})
	lb := NewLeaderboard(store, time.Hour)
	svc := NewService(store, lb, nil)

	if _, err := lb.TopScores(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := lb.TopScores(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if calls := store.Calls("top_scores"); calls != 1 {
		t.Fatalf("second read should hit the cache, store calls = %d", calls)
	}

	if _, err := svc.RecomputeAndPublish(ctx, core.User{ID: "b"}, []core.Transaction{
		{ID: "1", Amount: "100", Date: "2024-01-01"},
		{ID: "2", Amount: "-90", Date: "2024-01-02"},
	}); err != nil {
		t.Fatal(err)
	}

	top, err := lb.TopScores(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if store.Calls("top_scores") != 2 {
		t.Fatal("publish should invalidate the cache")
	}
	if len(top) != 2 || top[0].UserID != "b" || top[0].TotalScore != 90 {
		t.Fatalf("unexpected leaderboard after publish: %+v", top)
	}
}
