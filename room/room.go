// room/room.go
package room

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/wfunc/phrasegame/models"
)

// Defaults 创建房间时未指定的设置
type Defaults struct {
	Language             string
	RoundDurationSeconds int
}

// CreateParams 创建房间的参数，创建者成为唯一的玩家和房主
type CreateParams struct {
	Name                 string
	Password             string
	Language             string
	RoundDurationSeconds int
	ConnectionID         string
	PlayerName           string
	SessionID            string
}

// LeaveResult 玩家离开后的结果
type LeaveResult struct {
	Player       *models.Player
	RoomDeleted  bool
	NewManagerID string
}

// RejoinResult 重连结果。IsNew 为 true 表示按新玩家加入，而不是恢复旧身份。
type RejoinResult struct {
	Player          *models.Player
	IsNew           bool
	OldConnectionID string
}

// Manager 管理所有房间以及连接到房间的索引
type Manager struct {
	rooms        map[string]*models.Room
	byConnection map[string]string // connectionID -> roomID
	defaults     Defaults
	clock        clockwork.Clock
	mutex        sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(clock clockwork.Clock, defaults Defaults) *Manager {
	if defaults.Language == "" {
		defaults.Language = "fr"
	}
	if defaults.RoundDurationSeconds <= 0 {
		defaults.RoundDurationSeconds = 90
	}
	return &Manager{
		rooms:        make(map[string]*models.Room),
		byConnection: make(map[string]string),
		defaults:     defaults,
		clock:        clock,
	}
}

// CreateRoom 创建房间，创建者为房主
func (m *Manager) CreateRoom(p CreateParams) *models.Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	language := p.Language
	if language == "" {
		language = m.defaults.Language
	}
	duration := p.RoundDurationSeconds
	if duration <= 0 {
		duration = m.defaults.RoundDurationSeconds
	}

	now := m.clock.Now()
	r := &models.Room{
		ID:                   uuid.NewString(),
		Name:                 p.Name,
		Password:             p.Password,
		Language:             language,
		RoundDurationSeconds: duration,
		ManagerID:            p.ConnectionID,
		GameState:            models.StateWaiting,
		UsedPhraseIndices:    make(map[int]struct{}),
		CreatedAt:            now,
	}
	r.Players = []*models.Player{{
		ConnectionID: p.ConnectionID,
		SessionID:    p.SessionID,
		Name:         strings.TrimSpace(p.PlayerName),
		IsManager:    true,
		JoinedAt:     now,
	}}

	m.rooms[r.ID] = r
	m.byConnection[p.ConnectionID] = r.ID
	return r
}

// JoinRoom 加入房间。密码精确匹配，名字在房间内唯一。
func (m *Manager) JoinRoom(roomID, connectionID, name, password, sessionID string) (*models.Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.HasPassword() && r.Password != password {
		return nil, ErrInvalidPassword
	}
	if r.Player(connectionID) != nil {
		return nil, ErrAlreadyInRoom
	}
	if _, err := m.addPlayer(r, connectionID, name, sessionID); err != nil {
		return nil, err
	}
	return r, nil
}

func (m *Manager) addPlayer(r *models.Room, connectionID, name, sessionID string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if r.PlayerByName(name) != nil {
		return nil, ErrNameTaken
	}
	p := &models.Player{
		ConnectionID: connectionID,
		SessionID:    sessionID,
		Name:         name,
		JoinedAt:     m.clock.Now(),
	}
	r.Players = append(r.Players, p)
	m.byConnection[connectionID] = r.ID
	return p, nil
}

// LeaveRoom 移除玩家。房间为空时删除房间；房主离开时由加入最早的玩家接任。
func (m *Manager) LeaveRoom(roomID, connectionID string) (LeaveResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return LeaveResult{}, ErrRoomNotFound
	}

	idx := -1
	for i, p := range r.Players {
		if p.ConnectionID == connectionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return LeaveResult{}, ErrPlayerNotFound
	}

	leaving := r.Players[idx]
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	if m.byConnection[connectionID] == roomID {
		delete(m.byConnection, connectionID)
	}

	result := LeaveResult{Player: leaving}
	if len(r.Players) == 0 {
		delete(m.rooms, roomID)
		result.RoomDeleted = true
		return result, nil
	}

	if leaving.IsManager || r.ManagerID == connectionID {
		successor := r.Players[0]
		for _, p := range r.Players[1:] {
			if p.JoinedAt.Before(successor.JoinedAt) {
				successor = p
			}
		}
		successor.IsManager = true
		r.ManagerID = successor.ConnectionID
		result.NewManagerID = successor.ConnectionID
	}
	return result, nil
}

// ListRooms 返回大厅快照，按创建时间排序
func (m *Manager) ListRooms() []models.RoomSummary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*models.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})

	summaries := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.Summary())
	}
	return summaries
}

// UpdatePlayerScore 给玩家加分（可为负数）
func (m *Manager) UpdatePlayerScore(roomID, connectionID string, delta int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	p, err := m.player(roomID, connectionID)
	if err != nil {
		return err
	}
	p.Score += delta
	return nil
}

// MarkDisconnected flags the player as within its reconnection grace period.
func (m *Manager) MarkDisconnected(roomID, connectionID string) (*models.Player, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	p, err := m.player(roomID, connectionID)
	if err != nil {
		return nil, err
	}
	at := m.clock.Now()
	p.Disconnected = true
	p.DisconnectedAt = &at
	return p, nil
}

func (m *Manager) CancelDisconnected(roomID, connectionID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	p, err := m.player(roomID, connectionID)
	if err != nil {
		return err
	}
	p.Disconnected = false
	p.DisconnectedAt = nil
	return nil
}

// RejoinRoom 按名字找回玩家并把连接ID重新绑定到新连接。
// 名字存在但会话ID不一致时拒绝；名字不存在时按新玩家加入。
func (m *Manager) RejoinRoom(roomID, connectionID, name, sessionID string) (RejoinResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return RejoinResult{}, ErrRoomNotFound
	}

	existing := r.PlayerByName(strings.TrimSpace(name))
	if existing == nil {
		if r.Player(connectionID) != nil {
			return RejoinResult{}, ErrAlreadyInRoom
		}
		p, err := m.addPlayer(r, connectionID, name, sessionID)
		if err != nil {
			return RejoinResult{}, err
		}
		return RejoinResult{Player: p, IsNew: true}, nil
	}

	if existing.SessionID != "" && existing.SessionID != sessionID {
		return RejoinResult{}, ErrInvalidSession
	}
	// 一个连接只能对应一个玩家
	if other := r.Player(connectionID); other != nil && other != existing {
		return RejoinResult{}, ErrAlreadyInRoom
	}

	old := existing.ConnectionID
	if m.byConnection[old] == roomID {
		delete(m.byConnection, old)
	}
	existing.ConnectionID = connectionID
	if existing.SessionID == "" {
		existing.SessionID = sessionID
	}
	existing.Disconnected = false
	existing.DisconnectedAt = nil
	m.byConnection[connectionID] = roomID

	if r.ManagerID == old {
		r.ManagerID = connectionID
	}
	if r.CurrentRound != nil && r.CurrentRound.GuesserID == old {
		r.CurrentRound.GuesserID = connectionID
	}
	return RejoinResult{Player: existing, OldConnectionID: old}, nil
}

// GetRoom 获取房间
func (m *Manager) GetRoom(id string) (*models.Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.rooms[id]
	return r, exists
}

// RoomForConnection 返回连接当前所在的房间
func (m *Manager) RoomForConnection(connectionID string) (*models.Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	roomID, ok := m.byConnection[connectionID]
	if !ok {
		return nil, false
	}
	r, ok := m.rooms[roomID]
	return r, ok
}

// Rooms returns every room, in no particular order.
func (m *Manager) Rooms() []*models.Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*models.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Restore 载入持久化的房间。空房间被丢弃，连接索引会重建。
func (m *Manager) Restore(rooms []*models.Room) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	restored := 0
	for _, r := range rooms {
		if r == nil || r.ID == "" || len(r.Players) == 0 {
			continue
		}
		r.RebuildIndices()
		if r.GameState == "" {
			r.GameState = models.StateWaiting
		}
		m.rooms[r.ID] = r
		for _, p := range r.Players {
			m.byConnection[p.ConnectionID] = r.ID
		}
		restored++
	}
	return restored
}

// DeleteRoom 删除房间及其连接索引
func (m *Manager) DeleteRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, exists := m.rooms[id]
	if !exists {
		return
	}
	for _, p := range r.Players {
		if m.byConnection[p.ConnectionID] == id {
			delete(m.byConnection, p.ConnectionID)
		}
	}
	delete(m.rooms, id)
}

func (m *Manager) player(roomID, connectionID string) (*models.Player, error) {
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	p := r.Player(connectionID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	return p, nil
}
