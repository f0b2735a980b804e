// Package game drives rooms through their lobby, round and reconnection lifecycle.
// Every handler runs under a single engine lock, so room mutations never interleave.
package game

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wfunc/phrasegame/broadcast"
	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/models"
	"github.com/wfunc/phrasegame/monitor"
	"github.com/wfunc/phrasegame/network"
	"github.com/wfunc/phrasegame/persistence"
	"github.com/wfunc/phrasegame/room"
	"github.com/wfunc/phrasegame/state"
)

// Scheduler arms and cancels callbacks. timer.TimerManager implements it.
type Scheduler interface {
	AddTimer(delay time.Duration, interval time.Duration, callback func()) int64
	RemoveTimer(timerId int64)
}

// PhraseSource returns the phrases for a language, falling back to the default one.
type PhraseSource interface {
	GetPhrases(language string) []models.Phrase
}

// StatsRecorder counts started games.
type StatsRecorder interface {
	GameStarted()
}

type Options struct {
	GracePeriod        time.Duration
	RestoreGracePeriod time.Duration
	TickInterval       time.Duration
}

type Dependencies struct {
	Rooms       *room.Manager
	Phrases     PhraseSource
	Stats       StatsRecorder
	Store       persistence.Store
	Broadcaster broadcast.Broadcaster
	Timers      Scheduler
	Clock       clockwork.Clock
	Monitor     *monitor.Monitor
	Rand        *rand.Rand
}

type Engine struct {
	mutex   sync.Mutex
	rooms   *room.Manager
	machine *state.Machine
	phrases PhraseSource
	stats   StatsRecorder
	store   persistence.Store
	out     broadcast.Broadcaster
	timers  Scheduler
	clock   clockwork.Clock
	monitor *monitor.Monitor
	rng     *rand.Rand
	opts    Options

	roundTimers map[string]int64 // roomID -> tick timer
	graceTimers map[string]int64 // roomID:playerName -> removal timer
}

func NewEngine(deps Dependencies, opts Options) *Engine {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 5 * time.Second
	}
	if opts.RestoreGracePeriod <= 0 {
		opts.RestoreGracePeriod = opts.GracePeriod
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if deps.Store == nil {
		deps.Store = persistence.NopStore{}
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(uint64(deps.Clock.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}

	e := &Engine{
		rooms:       deps.Rooms,
		machine:     state.NewGameMachine(),
		phrases:     deps.Phrases,
		stats:       deps.Stats,
		store:       deps.Store,
		out:         deps.Broadcaster,
		timers:      deps.Timers,
		clock:       deps.Clock,
		monitor:     deps.Monitor,
		rng:         deps.Rand,
		opts:        opts,
		roundTimers: make(map[string]int64),
		graceTimers: make(map[string]int64),
	}
	e.machine.OnChange(func(r *models.Room, from, to models.GameState) {
		logger.Log.Infow("room state changed", "room", r.ID, "from", from, "to", to)
	})
	return e
}

// ListRooms returns the lobby snapshot.
func (e *Engine) ListRooms() []models.RoomSummary {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.rooms.ListRooms()
}

// Room returns a snapshot of one room.
func (e *Engine) Room(roomID string) (*models.Room, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	r, ok := e.rooms.GetRoom(roomID)
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// RoomForConnection returns a snapshot of the room connectionID belongs to.
func (e *Engine) RoomForConnection(connectionID string) (*models.Room, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	r, ok := e.rooms.RoomForConnection(connectionID)
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Close cancels every pending timer and writes a final snapshot.
func (e *Engine) Close() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	for roomID, id := range e.roundTimers {
		e.timers.RemoveTimer(id)
		delete(e.roundTimers, roomID)
	}
	for key, id := range e.graceTimers {
		e.timers.RemoveTimer(id)
		delete(e.graceTimers, key)
	}
	e.saveLocked()
}

// saveLocked hands a deep copy of every room to the store. Failures are logged only.
func (e *Engine) saveLocked() {
	rooms := e.rooms.Rooms()
	snapshot := make([]*models.Room, 0, len(rooms))
	for _, r := range rooms {
		snapshot = append(snapshot, r.Clone())
	}
	if err := e.store.SaveRooms(snapshot); err != nil {
		logger.Log.Errorw("failed to save rooms", "error", err)
	}
	e.monitor.SetActiveRooms(len(rooms))
}

func (e *Engine) broadcastLobbyLocked() {
	e.out.BroadcastAll(network.EventRoomListUpdate, e.rooms.ListRooms())
}

func graceKey(roomID, name string) string {
	return roomID + ":" + name
}

func (e *Engine) cancelGraceLocked(roomID, name string) bool {
	key := graceKey(roomID, name)
	id, ok := e.graceTimers[key]
	if !ok {
		return false
	}
	e.timers.RemoveTimer(id)
	delete(e.graceTimers, key)
	return true
}

// cleanupRoomLocked cancels all timers that belong to a deleted room.
func (e *Engine) cleanupRoomLocked(roomID string) {
	e.cancelRoundTimerLocked(roomID)
	prefix := roomID + ":"
	for key, id := range e.graceTimers {
		if strings.HasPrefix(key, prefix) {
			e.timers.RemoveTimer(id)
			delete(e.graceTimers, key)
		}
	}
	logger.Log.Infow("room deleted", "room", roomID)
}
