package rpc

import (
	"context"
	"net/rpc"
	"testing"
	"time"

	"github.com/wfunc/phrasegame/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type MockStats struct{}

func (MockStats) Snapshot() models.StatsSnapshot {
	return models.StatsSnapshot{ConnectedPlayers: 3, MaxConnectedPlayers: 7, TotalGamesPlayed: 12, PhrasesCount: map[string]int{"fr": 8}}
}

type MockRooms struct{}

func (MockRooms) ListRooms() []models.RoomSummary {
	return []models.RoomSummary{{ID: "r1", Name: "Salon", Language: "fr", PlayerCount: 2, GameState: models.StateWaiting}}
}

func TestAdminService_OverRPC(t *testing.T) {
	s, err := NewServer("127.0.0.1:0", NewAdminService(MockStats{}, MockRooms{}))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	go s.Start()
	defer s.Stop()

	client, err := rpc.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	var stats StatsReply
	if err := client.Call("Admin.Stats", &StatsArgs{IncludePhrases: true}, &stats); err != nil {
		t.Fatalf("Admin.Stats failed: %v", err)
	}
	if stats.Stats.MaxConnectedPlayers != 7 || stats.Stats.PhrasesCount["fr"] != 8 {
		t.Errorf("Unexpected stats: %+v", stats.Stats)
	}

	var rooms RoomsReply
	if err := client.Call("Admin.Rooms", &RoomsArgs{}, &rooms); err != nil {
		t.Fatalf("Admin.Rooms failed: %v", err)
	}
	if len(rooms.Rooms) != 1 || rooms.Rooms[0].ID != "r1" {
		t.Errorf("Unexpected rooms: %+v", rooms.Rooms)
	}

	var playing RoomsReply
	if err := client.Call("Admin.Rooms", &RoomsArgs{State: models.StatePlaying}, &playing); err != nil {
		t.Fatalf("Admin.Rooms failed: %v", err)
	}
	if len(playing.Rooms) != 0 {
		t.Errorf("Expected no playing rooms, got %+v", playing.Rooms)
	}
}

func TestHealthServer(t *testing.T) {
	h, err := NewHealthServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewHealthServer failed: %v", err)
	}
	go h.Start()
	defer h.Stop()

	conn, err := grpc.NewClient(h.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := healthpb.NewHealthClient(conn)

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %v", resp.Status)
	}

	h.SetServing(false)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING, got %v", resp.Status)
	}
}
