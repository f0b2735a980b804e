// game/lobby.go
package game

import (
	"strings"

	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/models"
	"github.com/wfunc/phrasegame/network"
	"github.com/wfunc/phrasegame/room"
)

// CreateRoom 创建房间，创建者成为房主。已在其他房间时先离开。
func (e *Engine) CreateRoom(connectionID string, req CreateRoomRequest) (*models.Room, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if strings.TrimSpace(req.PlayerName) == "" {
		return nil, room.ErrInvalidName
	}
	if prev, ok := e.rooms.RoomForConnection(connectionID); ok {
		e.leaveLocked(prev.ID, connectionID)
	}

	r := e.rooms.CreateRoom(room.CreateParams{
		Name:                 req.Name,
		Password:             req.Password,
		Language:             req.Language,
		RoundDurationSeconds: req.RoundTime,
		ConnectionID:         connectionID,
		PlayerName:           req.PlayerName,
		SessionID:            req.SessionID,
	})
	e.out.Subscribe(connectionID, r.ID)
	logger.Log.Infow("room created", "room", r.ID, "name", r.Name, "player", req.PlayerName)

	e.out.SendToPlayer(connectionID, network.EventRoomJoined, RoomJoinedPayload{
		Room:      r.Info(),
		Players:   r.PlayerViews(),
		IsManager: true,
	})
	e.broadcastLobbyLocked()
	e.saveLocked()
	return r.Clone(), nil
}

// JoinRoom 加入房间
func (e *Engine) JoinRoom(connectionID string, req JoinRoomRequest) (*models.Room, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if prev, ok := e.rooms.RoomForConnection(connectionID); ok && prev.ID != req.RoomID {
		e.leaveLocked(prev.ID, connectionID)
	}

	r, err := e.rooms.JoinRoom(req.RoomID, connectionID, req.PlayerName, req.Password, req.SessionID)
	if err != nil {
		logger.Log.Infow("join rejected", "room", req.RoomID, "player", req.PlayerName, "error", err)
		return nil, err
	}
	e.out.Subscribe(connectionID, r.ID)
	p := r.Player(connectionID)
	logger.Log.Infow("player joined", "room", r.ID, "player", p.Name)

	e.out.SendToPlayer(connectionID, network.EventRoomJoined, RoomJoinedPayload{
		Room:      r.Info(),
		Players:   r.PlayerViews(),
		IsManager: p.IsManager,
	})
	e.out.SendToRoomExcept(r.ID, connectionID, network.EventRoomPlayerJoined, PlayerJoinedPayload{
		Player:  p.View(),
		Players: r.PlayerViews(),
	})
	e.broadcastLobbyLocked()
	e.saveLocked()
	return r.Clone(), nil
}

// LeaveRoom 主动离开：取消宽限计时并立即移除。
func (e *Engine) LeaveRoom(connectionID string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	r, ok := e.rooms.RoomForConnection(connectionID)
	if !ok {
		return ErrNotInRoom
	}
	return e.leaveLocked(r.ID, connectionID)
}

// leaveLocked is the single removal path shared by voluntary leave and grace expiry.
func (e *Engine) leaveLocked(roomID, connectionID string) error {
	r, ok := e.rooms.GetRoom(roomID)
	if !ok {
		return room.ErrRoomNotFound
	}
	if p := r.Player(connectionID); p != nil {
		e.cancelGraceLocked(roomID, p.Name)
	}

	result, err := e.rooms.LeaveRoom(roomID, connectionID)
	if err != nil {
		return err
	}
	e.out.Unsubscribe(connectionID, roomID)
	logger.Log.Infow("player left", "room", roomID, "player", result.Player.Name)

	if result.RoomDeleted {
		e.cleanupRoomLocked(roomID)
	} else {
		if result.NewManagerID != "" {
			logger.Log.Infow("manager changed", "room", roomID, "manager", result.NewManagerID)
			e.out.SendToRoom(roomID, network.EventRoomManagerChanged, ManagerChangedPayload{
				NewManagerID: result.NewManagerID,
				Players:      r.PlayerViews(),
			})
		}
		e.out.SendToRoom(roomID, network.EventRoomPlayerLeft, PlayerLeftPayload{
			PlayerID: connectionID,
			Players:  r.PlayerViews(),
		})
		switch {
		case len(r.Players) < 2 && r.GameState != models.StateWaiting:
			if err := e.endGameLocked(r); err != nil {
				logger.Log.Warnw("auto end game failed", "room", roomID, "error", err)
			}
		case r.GameState == models.StatePlaying && r.CurrentRound != nil && r.CurrentRound.GuesserID == connectionID:
			// 猜词者离开，本轮按超时结束
			if err := e.endRoundLocked(r, false); err != nil {
				logger.Log.Warnw("failed to end round", "room", roomID, "error", err)
			}
		}
	}

	e.broadcastLobbyLocked()
	e.saveLocked()
	return nil
}
