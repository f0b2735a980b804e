// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/session"
)

// 广播接口。游戏逻辑只使用玩家ID和房间ID，从不直接接触连接。
type Broadcaster interface {
	SendToPlayer(playerID, event string, payload interface{})
	SendToRoom(roomID, event string, payload interface{})
	SendToRoomExcept(roomID, exceptPlayerID, event string, payload interface{})
	BroadcastAll(event string, payload interface{})
	// Subscribe 把玩家加入房间频道
	Subscribe(playerID, roomID string)
	Unsubscribe(playerID, roomID string)
}

// Hub 基于会话管理器的广播器
type Hub struct {
	sessions *session.Manager
}

func NewHub(sessions *session.Manager) *Hub {
	return &Hub{sessions: sessions}
}

func (h *Hub) SendToPlayer(playerID, event string, payload interface{}) {
	s, ok := h.sessions.Get(playerID)
	if !ok {
		return
	}
	h.send(s, event, payload)
}

func (h *Hub) SendToRoom(roomID, event string, payload interface{}) {
	h.SendToRoomExcept(roomID, "", event, payload)
}

func (h *Hub) SendToRoomExcept(roomID, exceptPlayerID, event string, payload interface{}) {
	for _, s := range h.sessions.InRoom(roomID) {
		if s.ID == exceptPlayerID {
			continue
		}
		h.send(s, event, payload)
	}
}

func (h *Hub) BroadcastAll(event string, payload interface{}) {
	for _, s := range h.sessions.All() {
		h.send(s, event, payload)
	}
}

func (h *Hub) Subscribe(playerID, roomID string) {
	if s, ok := h.sessions.Get(playerID); ok {
		s.SetRoomID(roomID)
	}
}

func (h *Hub) Unsubscribe(playerID, roomID string) {
	if s, ok := h.sessions.Get(playerID); ok && s.RoomID() == roomID {
		s.SetRoomID("")
	}
}

func (h *Hub) send(s *session.Session, event string, payload interface{}) {
	if err := s.Send(event, payload); err != nil {
		// 发送失败的连接由读循环负责清理
		logger.Log.Debugw("send failed", "session", s.ID, "event", event, "error", err)
	}
}
