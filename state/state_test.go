package state

import (
	"errors"
	"testing"

	"github.com/wfunc/phrasegame/models"
)

func newRoom(state models.GameState) *models.Room {
	return &models.Room{ID: "room-1", GameState: state}
}

func TestGameMachine_FullCycle(t *testing.T) {
	sm := NewGameMachine()
	r := newRoom(models.StateWaiting)

	steps := []models.GameState{
		models.StatePlaying,
		models.StateBetweenRounds,
		models.StatePlaying,
		models.StateBetweenRounds,
		models.StateWaiting,
	}
	for _, to := range steps {
		if err := sm.ChangeState(r, to); err != nil {
			t.Fatalf("ChangeState to %s should not return an error, but got: %v", to, err)
		}
		if r.GameState != to {
			t.Fatalf("Expected current state to be %s, but got %s", to, r.GameState)
		}
	}
}

func TestGameMachine_RejectsInvalidTransitions(t *testing.T) {
	sm := NewGameMachine()

	cases := []struct {
		from, to models.GameState
	}{
		{models.StateWaiting, models.StateBetweenRounds},
		{models.StateWaiting, models.StateWaiting},
		{models.StatePlaying, models.StatePlaying},
	}
	for _, c := range cases {
		r := newRoom(c.from)
		err := sm.ChangeState(r, c.to)
		if !errors.Is(err, ErrTransitionNotAllowed) {
			t.Errorf("%s -> %s: expected ErrTransitionNotAllowed, but got: %v", c.from, c.to, err)
		}
		if r.GameState != c.from {
			t.Errorf("Expected state to remain %s after a blocked transition, but got %s", c.from, r.GameState)
		}
	}
}

func TestMachine_ConditionAndListener(t *testing.T) {
	sm := NewMachine()
	sm.AddTransition(models.StateWaiting, models.StatePlaying, func(r *models.Room) bool {
		return len(r.Players) >= 2
	})

	var changes []models.GameState
	sm.OnChange(func(r *models.Room, from, to models.GameState) {
		changes = append(changes, to)
	})

	r := newRoom(models.StateWaiting)
	r.Players = []*models.Player{{ConnectionID: "a"}}
	if err := sm.ChangeState(r, models.StatePlaying); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("Expected blocked transition, but got: %v", err)
	}
	if len(changes) != 0 {
		t.Error("Listener should not be called for a blocked transition")
	}

	r.Players = append(r.Players, &models.Player{ConnectionID: "b"})
	if err := sm.ChangeState(r, models.StatePlaying); err != nil {
		t.Fatalf("Expected transition to be allowed, but got error: %v", err)
	}
	if len(changes) != 1 || changes[0] != models.StatePlaying {
		t.Errorf("Expected listener to observe playing, got %v", changes)
	}
}
