package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/netpac/internal/core"
	"github.com/vovakirdan/netpac/internal/game"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRound(reason game.EndReason, ended time.Time, players ...game.PlayerResult) game.RoundResult {
	return game.RoundResult{
		RoundID:   uuid.New(),
		MapName:   "classic.map",
		Reason:    reason,
		Ticks:     420,
		StartedAt: ended.Add(-21 * time.Second),
		EndedAt:   ended,
		Players:   players,
	}
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreNestedPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestStoreSaveAndRetrieveRound(t *testing.T) {
	store := openTestStore(t)
	ended := time.UnixMilli(1_700_000_000_000)

	result := testRound(game.EndReasonGhostsWin, ended,
		game.PlayerResult{ID: 0, Name: "alice", Role: core.RoleGhost, Score: 50},
		game.PlayerResult{ID: 1, Name: "bob", Role: core.RolePacman, Score: 12, Dead: true},
	)
	if err := store.SaveRoundResult(result); err != nil {
		t.Fatalf("SaveRoundResult() failed: %v", err)
	}

	got, err := store.RoundByID(result.RoundID)
	if err != nil {
		t.Fatalf("RoundByID() failed: %v", err)
	}
	if got == nil {
		t.Fatal("RoundByID() returned nil for a saved round")
	}

	if got.MapName != "classic.map" || got.Reason != "ghosts_win" || got.Ticks != 420 {
		t.Errorf("Round = %+v", got)
	}
	if got.WinnerRole != core.RoleGhost.String() {
		t.Errorf("WinnerRole = %q, expected %q", got.WinnerRole, core.RoleGhost.String())
	}
	if !got.EndedAt.Equal(ended) || !got.StartedAt.Equal(ended.Add(-21*time.Second)) {
		t.Errorf("Times = %v..%v", got.StartedAt, got.EndedAt)
	}

	if len(got.Players) != 2 {
		t.Fatalf("Expected 2 players, got %d", len(got.Players))
	}
	// Sorted by score descending
	if got.Players[0].Name != "alice" || got.Players[0].Score != 50 || got.Players[0].Dead {
		t.Errorf("Players[0] = %+v", got.Players[0])
	}
	if got.Players[1].Name != "bob" || !got.Players[1].Dead || got.Players[1].Role != core.RolePacman.String() {
		t.Errorf("Players[1] = %+v", got.Players[1])
	}
}

func TestStoreRoundByIDMissing(t *testing.T) {
	store := openTestStore(t)

	got, err := store.RoundByID(uuid.New())
	if err != nil {
		t.Fatalf("RoundByID() failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for unknown round, got %+v", got)
	}
}

func TestStoreNoWinner(t *testing.T) {
	store := openTestStore(t)

	result := testRound(game.EndReasonShutdown, time.Now())
	if err := store.SaveRoundResult(result); err != nil {
		t.Fatalf("SaveRoundResult() failed: %v", err)
	}

	got, err := store.RoundByID(result.RoundID)
	if err != nil || got == nil {
		t.Fatalf("RoundByID() = %v, %v", got, err)
	}
	if got.WinnerRole != "" {
		t.Errorf("WinnerRole = %q, expected empty", got.WinnerRole)
	}
	if len(got.Players) != 0 {
		t.Errorf("Expected no players, got %d", len(got.Players))
	}
}

func TestStoreDuplicateRoundRejected(t *testing.T) {
	store := openTestStore(t)

	result := testRound(game.EndReasonDotsCleared, time.Now(),
		game.PlayerResult{ID: 0, Name: "alice", Role: core.RolePacman, Score: 30},
	)
	if err := store.SaveRoundResult(result); err != nil {
		t.Fatalf("SaveRoundResult() failed: %v", err)
	}
	if err := store.SaveRoundResult(result); err == nil {
		t.Error("Saving the same round twice should fail")
	}

	// The failed save must not leave stray player rows behind.
	top, err := store.TopPlayers(10)
	if err != nil {
		t.Fatalf("TopPlayers() failed: %v", err)
	}
	if len(top) != 1 || top[0].Rounds != 1 {
		t.Errorf("TopPlayers() = %+v, expected alice with one round", top)
	}
}

func TestStoreRecentRounds(t *testing.T) {
	store := openTestStore(t)
	base := time.UnixMilli(1_700_000_000_000)

	for i := 0; i < 5; i++ {
		r := testRound(game.EndReasonPacmenWin, base.Add(time.Duration(i)*time.Minute))
		r.MapName = []string{"a", "b", "c", "d", "e"}[i]
		if err := store.SaveRoundResult(r); err != nil {
			t.Fatalf("SaveRoundResult() failed: %v", err)
		}
	}

	recent, err := store.RecentRounds(3)
	if err != nil {
		t.Fatalf("RecentRounds() failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 rounds with limit, got %d", len(recent))
	}
	if recent[0].MapName != "e" || recent[1].MapName != "d" || recent[2].MapName != "c" {
		t.Errorf("Rounds not newest first: %s %s %s", recent[0].MapName, recent[1].MapName, recent[2].MapName)
	}

	n, err := store.RoundCount()
	if err != nil {
		t.Fatalf("RoundCount() failed: %v", err)
	}
	if n != 5 {
		t.Errorf("RoundCount() = %d, expected 5", n)
	}
}

func TestStoreTopPlayers(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	rounds := [][]game.PlayerResult{
		{
			{ID: 0, Name: "alice", Role: core.RoleGhost, Score: 100},
			{ID: 1, Name: "bob", Role: core.RolePacman, Score: 40},
		},
		{
			{ID: 0, Name: "alice", Role: core.RolePacman, Score: 10},
			{ID: 1, Name: "bob", Role: core.RoleGhost, Score: 90},
			{ID: 2, Name: "carol", Role: core.RolePacman, Score: 5},
		},
	}
	for _, players := range rounds {
		if err := store.SaveRoundResult(testRound(game.EndReasonGhostsWin, now, players...)); err != nil {
			t.Fatalf("SaveRoundResult() failed: %v", err)
		}
	}

	top, err := store.TopPlayers(2)
	if err != nil {
		t.Fatalf("TopPlayers() failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 players with limit, got %d", len(top))
	}

	tests := []struct {
		name   string
		rounds int
		total  int64
		best   int
	}{
		{name: "bob", rounds: 2, total: 130, best: 90},
		{name: "alice", rounds: 2, total: 110, best: 100},
	}
	for i, tc := range tests {
		got := top[i]
		if got.Name != tc.name || got.Rounds != tc.rounds || got.Total != tc.total || got.Best != tc.best {
			t.Errorf("top[%d] = %+v, expected %+v", i, got, tc)
		}
	}
}
