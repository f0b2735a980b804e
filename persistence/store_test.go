package persistence

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wfunc/phrasegame/config"
	"github.com/wfunc/phrasegame/models"
)

func sampleRoom() *models.Room {
	joined := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	r := &models.Room{
		ID:                   "room-1",
		Name:                 "Soirée",
		Password:             "secret",
		Language:             "fr",
		RoundDurationSeconds: 90,
		ManagerID:            "c1",
		GameState:            models.StateBetweenRounds,
		CreatedAt:            joined,
		Players: []*models.Player{
			{ConnectionID: "c1", SessionID: "s1", Name: "Alice", Score: 3, IsManager: true, JoinedAt: joined, RoundsAsGuesser: 2, ConsecutiveGuesserRounds: 1},
			{ConnectionID: "c2", SessionID: "s2", Name: "Bob", Score: 1, JoinedAt: joined.Add(time.Second), RoundsAsGuesser: 1},
		},
		CurrentRound: &models.Round{
			GuesserID:            "c1",
			Phrase:               models.Phrase{Original: "Le chat dort", Coded: "Leuch a d'or"},
			StartedAt:            joined.Add(time.Minute),
			RoundDurationSeconds: 90,
			PointAwarded:         true,
		},
	}
	r.MarkPhraseUsed(0)
	r.MarkPhraseUsed(4)
	return r
}

func assertRoomEqual(t *testing.T, want, got *models.Room) {
	t.Helper()
	if got.ID != want.ID || got.Name != want.Name || got.GameState != want.GameState || got.ManagerID != want.ManagerID {
		t.Errorf("Room header mismatch: want %+v, got %+v", want, got)
	}
	if got.Password != want.Password {
		t.Error("Password should survive a round trip through the store")
	}
	if len(got.Players) != len(want.Players) {
		t.Fatalf("Expected %d players, got %d", len(want.Players), len(got.Players))
	}
	for i := range want.Players {
		w, g := want.Players[i], got.Players[i]
		if w.Name != g.Name || w.Score != g.Score || w.IsManager != g.IsManager || !w.JoinedAt.Equal(g.JoinedAt) || w.RoundsAsGuesser != g.RoundsAsGuesser {
			t.Errorf("Player %d mismatch: want %+v, got %+v", i, w, g)
		}
	}
	if got.CurrentRound == nil || !got.CurrentRound.StartedAt.Equal(want.CurrentRound.StartedAt) || got.CurrentRound.GuesserID != want.CurrentRound.GuesserID {
		t.Errorf("Round mismatch: %+v", got.CurrentRound)
	}
	got.RebuildIndices()
	if !got.IsPhraseUsed(4) {
		t.Error("Used phrase indices should survive a round trip")
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	rooms, err := store.LoadRooms()
	if err != nil || len(rooms) != 0 {
		t.Fatalf("Fresh store should load no rooms, got %d (%v)", len(rooms), err)
	}
	stats, err := store.LoadStats()
	if err != nil || stats != (models.Stats{}) {
		t.Fatalf("Fresh store should load zero stats, got %+v (%v)", stats, err)
	}

	want := sampleRoom()
	if err := store.SaveRooms([]*models.Room{want}); err != nil {
		t.Fatalf("SaveRooms failed: %v", err)
	}
	if err := store.SaveStats(models.Stats{MaxConnectedPlayers: 7, TotalGamesPlayed: 12}); err != nil {
		t.Fatalf("SaveStats failed: %v", err)
	}

	rooms, err = store.LoadRooms()
	if err != nil {
		t.Fatalf("LoadRooms failed: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("Expected 1 room, got %d", len(rooms))
	}
	assertRoomEqual(t, want, rooms[0])

	stats, _ = store.LoadStats()
	if stats.MaxConnectedPlayers != 7 || stats.TotalGamesPlayed != 12 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

// recordingStore counts the writes that reach the backing store.
type recordingStore struct {
	NopStore
	mutex      sync.Mutex
	roomSaves  [][]*models.Room
	statsSaves []models.Stats
	closed     bool
}

func (s *recordingStore) SaveRooms(rooms []*models.Room) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomSaves = append(s.roomSaves, rooms)
	return nil
}

func (s *recordingStore) SaveStats(stats models.Stats) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.statsSaves = append(s.statsSaves, stats)
	return nil
}

func (s *recordingStore) Close() error {
	s.closed = true
	return nil
}

func (s *recordingStore) counts() (int, int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.roomSaves), len(s.statsSaves)
}

func waitForCounts(t *testing.T, s *recordingStore, rooms, stats int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		r, st := s.counts()
		if r == rooms && st == stats {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	r, st := s.counts()
	t.Fatalf("Expected %d room saves and %d stats saves, got %d and %d", rooms, stats, r, st)
}

func TestDebounced_CoalescesSaves(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &recordingStore{}
	d := NewDebounced(inner, clock, time.Second)

	d.SaveRooms([]*models.Room{{ID: "a"}})
	clock.Advance(500 * time.Millisecond)
	d.SaveRooms([]*models.Room{{ID: "a"}, {ID: "b"}})
	d.SaveStats(models.Stats{TotalGamesPlayed: 1})
	d.SaveStats(models.Stats{TotalGamesPlayed: 2})

	clock.Advance(500 * time.Millisecond)
	if r, _ := inner.counts(); r != 0 {
		t.Fatal("Save should be delayed while newer snapshots keep arriving")
	}

	clock.Advance(500 * time.Millisecond)
	waitForCounts(t, inner, 1, 1)

	inner.mutex.Lock()
	defer inner.mutex.Unlock()
	if len(inner.roomSaves[0]) != 2 {
		t.Errorf("Only the latest room snapshot should be written, got %d rooms", len(inner.roomSaves[0]))
	}
	if inner.statsSaves[0].TotalGamesPlayed != 2 {
		t.Errorf("Only the latest stats should be written, got %+v", inner.statsSaves[0])
	}
}

func TestDebounced_OlderSnapshotNeverOverwritesNewer(t *testing.T) {
	inner := &recordingStore{}
	d := NewDebounced(inner, clockwork.NewFakeClock(), time.Hour)

	// a superseded flush picked up the old snapshot but has not written it yet
	d.SaveRooms([]*models.Room{{ID: "old"}})
	d.SaveStats(models.Stats{TotalGamesPlayed: 1})
	staleRooms, staleRoomsSeq, _ := d.takeRooms()
	staleStats, staleStatsSeq := d.takeStats()

	d.SaveRooms([]*models.Room{{ID: "new"}})
	d.SaveStats(models.Stats{TotalGamesPlayed: 2})
	d.Flush()

	d.writeRooms(staleRooms, staleRoomsSeq)
	d.writeStats(*staleStats, staleStatsSeq)

	inner.mutex.Lock()
	defer inner.mutex.Unlock()
	if len(inner.roomSaves) != 1 || inner.roomSaves[0][0].ID != "new" {
		t.Errorf("Only the newest room snapshot should be written, got %d saves", len(inner.roomSaves))
	}
	if len(inner.statsSaves) != 1 || inner.statsSaves[0].TotalGamesPlayed != 2 {
		t.Errorf("Only the newest stats should be written, got %+v", inner.statsSaves)
	}
}

func TestDebounced_CloseFlushesPending(t *testing.T) {
	inner := &recordingStore{}
	d := NewDebounced(inner, clockwork.NewFakeClock(), time.Hour)

	d.SaveRooms(nil)
	d.SaveStats(models.Stats{MaxConnectedPlayers: 3})
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if r, st := inner.counts(); r != 1 || st != 1 {
		t.Errorf("Close should flush pending saves, got %d/%d", r, st)
	}
	if !inner.closed {
		t.Error("Close should close the backing store")
	}
}

func TestNew_SelectsDriver(t *testing.T) {
	clock := clockwork.NewFakeClock()

	store, err := New(config.PersistenceConfig{Driver: "none"}, config.PostgresConfig{}, clock)
	if err != nil {
		t.Fatalf("New(none) failed: %v", err)
	}
	if _, ok := store.(NopStore); !ok {
		t.Errorf("Expected NopStore, got %T", store)
	}

	dir := filepath.Join(t.TempDir(), "persist")
	store, err = New(config.PersistenceConfig{Path: dir, SaveDelay: time.Second}, config.PostgresConfig{}, clock)
	if err != nil {
		t.Fatalf("New(path) failed: %v", err)
	}
	if _, ok := store.(*Debounced); !ok {
		t.Errorf("Expected debounced file store, got %T", store)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("File store should create its directory: %v", err)
	}

	if _, err := New(config.PersistenceConfig{Driver: "mongo"}, config.PostgresConfig{}, clock); err == nil {
		t.Error("Unknown driver should be rejected")
	}
}
