package monitor

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Monitor) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMonitor_ExposesMetrics(t *testing.T) {
	m := NewMonitor("phrasegame")
	m.SetOnlinePlayers(3)
	m.SetActiveRooms(2)
	m.IncGamesStarted()
	m.IncRoundsEnded(true)
	m.IncRoundsEnded(false)
	m.IncMessagesReceived("game:start")
	m.ObserveMessageLatency(2 * time.Millisecond)

	body := scrape(t, m)
	for _, want := range []string{
		"phrasegame_online_players 3",
		"phrasegame_active_rooms 2",
		"phrasegame_games_started_total 1",
		`phrasegame_rounds_ended_total{outcome="guessed"} 1`,
		`phrasegame_messages_received_total{event="game:start"} 1`,
		"phrasegame_message_latency_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}
}

func TestMonitor_NilSafe(t *testing.T) {
	var m *Monitor
	m.SetOnlinePlayers(1)
	m.IncGamesStarted()
	m.IncRoundsEnded(true)
	m.IncMessagesReceived("room:list")
	m.ObserveMessageLatency(time.Millisecond)
	if m.Uptime() != 0 {
		t.Error("nil monitor should report zero uptime")
	}
}

func TestNewMonitor_IndependentRegistries(t *testing.T) {
	// Separate monitors must not collide on registration.
	NewMonitor("phrasegame")
	NewMonitor("phrasegame")
}
