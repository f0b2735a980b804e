// game/reconnect.go
package game

import (
	"time"

	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/models"
	"github.com/wfunc/phrasegame/network"
)

// RejoinRoom 按名字和会话ID恢复玩家，或在名字不存在时按新玩家加入。
func (e *Engine) RejoinRoom(connectionID string, req RejoinRoomRequest) (*models.Room, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if prev, ok := e.rooms.RoomForConnection(connectionID); ok && prev.ID != req.RoomID {
		e.leaveLocked(prev.ID, connectionID)
	}

	result, err := e.rooms.RejoinRoom(req.RoomID, connectionID, req.PlayerName, req.SessionID)
	if err != nil {
		logger.Log.Infow("rejoin rejected", "room", req.RoomID, "player", req.PlayerName, "error", err)
		return nil, err
	}
	r, _ := e.rooms.GetRoom(req.RoomID)
	p := result.Player
	e.cancelGraceLocked(r.ID, p.Name)

	if !result.IsNew && result.OldConnectionID != connectionID {
		e.out.Unsubscribe(result.OldConnectionID, r.ID)
	}
	e.out.Subscribe(connectionID, r.ID)

	payload := RoomJoinedPayload{
		Room:      r.Info(),
		Players:   r.PlayerViews(),
		IsManager: p.IsManager,
	}
	if r.GameState == models.StatePlaying && r.CurrentRound != nil {
		view := roundView(r.CurrentRound, connectionID, e.clock.Now())
		payload.CurrentRound = &view
	}
	e.out.SendToPlayer(connectionID, network.EventRoomRejoined, payload)

	if result.IsNew {
		logger.Log.Infow("player joined via rejoin", "room", r.ID, "player", p.Name)
	} else {
		logger.Log.Infow("player rejoined", "room", r.ID, "player", p.Name, "from", result.OldConnectionID, "to", connectionID)
	}
	e.out.SendToRoomExcept(r.ID, connectionID, network.EventRoomPlayerJoined, PlayerJoinedPayload{
		Player:  p.View(),
		Players: r.PlayerViews(),
	})

	e.broadcastLobbyLocked()
	e.saveLocked()
	return r.Clone(), nil
}

// Disconnect 传输断开：标记玩家为断线并启动宽限计时，不立即移除。
func (e *Engine) Disconnect(connectionID string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	r, ok := e.rooms.RoomForConnection(connectionID)
	if !ok {
		return
	}
	p, err := e.rooms.MarkDisconnected(r.ID, connectionID)
	if err != nil {
		logger.Log.Warnw("failed to mark player disconnected", "room", r.ID, "connection", connectionID, "error", err)
		return
	}
	e.out.Unsubscribe(connectionID, r.ID)
	logger.Log.Infow("player disconnected", "room", r.ID, "player", p.Name, "grace", e.opts.GracePeriod)

	e.armGraceLocked(r.ID, p.Name, e.opts.GracePeriod)
	e.saveLocked()
}

func (e *Engine) armGraceLocked(roomID, name string, delay time.Duration) {
	e.cancelGraceLocked(roomID, name)

	key := graceKey(roomID, name)
	token := new(int64)
	*token = e.timers.AddTimer(delay, 0, func() {
		e.expireGrace(key, token, roomID, name)
	})
	e.graceTimers[key] = *token
}

// expireGrace 宽限期到期。计时器已被取消或替换，或玩家已重连时不做任何事。
func (e *Engine) expireGrace(key string, token *int64, roomID, name string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if current, ok := e.graceTimers[key]; !ok || current != *token {
		return
	}
	delete(e.graceTimers, key)

	r, ok := e.rooms.GetRoom(roomID)
	if !ok {
		return
	}
	p := r.PlayerByName(name)
	if p == nil || !p.Disconnected {
		return
	}
	logger.Log.Infow("grace period expired", "room", roomID, "player", name)
	if err := e.leaveLocked(roomID, p.ConnectionID); err != nil {
		logger.Log.Warnw("failed to remove disconnected player", "room", roomID, "player", name, "error", err)
	}
}

// Recover 在恢复持久化房间后调用：重建计时器，所有玩家进入断线宽限期。
func (e *Engine) Recover() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	now := e.clock.Now()
	for _, r := range e.rooms.Rooms() {
		for _, p := range r.Players {
			if !p.Disconnected {
				at := now
				p.Disconnected = true
				p.DisconnectedAt = &at
			}
			e.armGraceLocked(r.ID, p.Name, e.opts.RestoreGracePeriod)
		}

		switch r.GameState {
		case models.StatePlaying:
			if r.CurrentRound == nil {
				r.GameState = models.StateWaiting
				break
			}
			if r.CurrentRound.Remaining(now) > 0 {
				e.armRoundTimerLocked(r)
				logger.Log.Infow("round timer recovered", "room", r.ID, "remaining", r.CurrentRound.RemainingSeconds(now))
			} else if err := e.endRoundLocked(r, false); err != nil {
				logger.Log.Warnw("failed to end expired round", "room", r.ID, "error", err)
			}
		case models.StateBetweenRounds, models.StateWaiting:
		default:
			logger.Log.Warnw("unknown room state, resetting", "room", r.ID, "state", r.GameState)
			r.GameState = models.StateWaiting
			r.CurrentRound = nil
		}
	}
	logger.Log.Infow("rooms recovered", "rooms", e.rooms.Count())
	e.saveLocked()
}
