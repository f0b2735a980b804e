// state/state.go
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wfunc/phrasegame/models"
)

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Condition 转换条件，返回 false 时拒绝转换
type Condition func(r *models.Room) bool

// Listener 状态变化回调
type Listener func(r *models.Room, from, to models.GameState)

// Machine 房间游戏状态机。状态本身保存在房间上，这里只保存转换表。
type Machine struct {
	transitions map[models.GameState]map[models.GameState]Condition // fromState -> toState -> condition
	listeners   []Listener
	mutex       sync.RWMutex
}

func NewMachine() *Machine {
	return &Machine{
		transitions: make(map[models.GameState]map[models.GameState]Condition),
	}
}

// NewGameMachine 创建默认的游戏状态机:
// waiting -> playing -> between_rounds -> playing -> ... -> waiting
func NewGameMachine() *Machine {
	sm := NewMachine()
	sm.AddTransition(models.StateWaiting, models.StatePlaying, nil)
	sm.AddTransition(models.StatePlaying, models.StateBetweenRounds, nil)
	sm.AddTransition(models.StateBetweenRounds, models.StatePlaying, nil)
	sm.AddTransition(models.StatePlaying, models.StateWaiting, nil)
	sm.AddTransition(models.StateBetweenRounds, models.StateWaiting, nil)
	return sm
}

func (sm *Machine) AddTransition(from, to models.GameState, condition Condition) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[models.GameState]Condition)
	}
	sm.transitions[from][to] = condition
}

// OnChange registers a listener invoked after every successful transition.
func (sm *Machine) OnChange(l Listener) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.listeners = append(sm.listeners, l)
}

// Can reports whether the room may move to the given state.
func (sm *Machine) Can(r *models.Room, to models.GameState) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	conditions, exists := sm.transitions[r.GameState]
	if !exists {
		return false
	}
	condition, exists := conditions[to]
	if !exists {
		return false
	}
	return condition == nil || condition(r)
}

// ChangeState 改变房间的状态，不允许时返回 ErrTransitionNotAllowed
func (sm *Machine) ChangeState(r *models.Room, to models.GameState) error {
	if !sm.Can(r, to) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, r.GameState, to)
	}

	from := r.GameState
	r.GameState = to

	sm.mutex.RLock()
	listeners := sm.listeners
	sm.mutex.RUnlock()
	for _, l := range listeners {
		l(r, from, to)
	}
	return nil
}
