package broadcast

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/phrasegame/network"
	"github.com/wfunc/phrasegame/session"
)

// MockConnection records the events sent to it.
type MockConnection struct {
	events []string
}

func (m *MockConnection) Send(event string, payload interface{}) error {
	m.events = append(m.events, event)
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func newTestHub() (*Hub, map[string]*MockConnection) {
	sessions := session.NewManager()
	conns := make(map[string]*MockConnection)
	for _, id := range []string{"alice", "bob", "carol"} {
		conn := &MockConnection{}
		conns[id] = conn
		sessions.Add(session.NewSession(id, conn))
	}
	return NewHub(sessions), conns
}

func TestHub_RoomChannels(t *testing.T) {
	hub, conns := newTestHub()
	hub.Subscribe("alice", "room-1")
	hub.Subscribe("bob", "room-1")
	hub.Subscribe("carol", "room-2")

	hub.SendToRoom("room-1", network.EventGameTimer, nil)
	if len(conns["alice"].events) != 1 || len(conns["bob"].events) != 1 {
		t.Error("Room members should receive room events")
	}
	if len(conns["carol"].events) != 0 {
		t.Error("Members of other rooms should not receive room events")
	}

	hub.SendToRoomExcept("room-1", "alice", network.EventRoomPlayerJoined, nil)
	if len(conns["alice"].events) != 1 || len(conns["bob"].events) != 2 {
		t.Error("SendToRoomExcept should skip the excluded player")
	}

	hub.Unsubscribe("bob", "room-2")
	hub.Unsubscribe("bob", "room-1")
	hub.SendToRoom("room-1", network.EventGameTimer, nil)
	if len(conns["bob"].events) != 2 {
		t.Error("Unsubscribed player should not receive room events")
	}
}

func TestHub_PlayerAndAll(t *testing.T) {
	hub, conns := newTestHub()

	hub.SendToPlayer("carol", network.EventGameRound, nil)
	hub.SendToPlayer("nobody", network.EventGameRound, nil)
	if len(conns["carol"].events) != 1 || len(conns["alice"].events) != 0 {
		t.Error("SendToPlayer should only reach the addressed player")
	}

	hub.BroadcastAll(network.EventStatsUpdate, nil)
	for id, conn := range conns {
		if conn.events[len(conn.events)-1] != network.EventStatsUpdate {
			t.Errorf("%s should receive broadcasts", id)
		}
	}
}
