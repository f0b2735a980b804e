// models/models.go
package models

import (
	"time"
)

// GameState is the room-level state machine position.
type GameState string

const (
	StateWaiting       GameState = "waiting"
	StatePlaying       GameState = "playing"
	StateBetweenRounds GameState = "between_rounds"
)

// Phrase is one catalog entry: the original text and its coded form.
type Phrase struct {
	Original string `json:"original" yaml:"original"`
	Coded    string `json:"coded" yaml:"coded"`
}

// Player is a room member. ConnectionID is the transport identity and changes across
// reconnects; Name and SessionID are the stable logical identity.
type Player struct {
	ConnectionID             string     `json:"id"`
	SessionID                string     `json:"sessionId,omitempty"`
	Name                     string     `json:"name"`
	Score                    int        `json:"score"`
	IsManager                bool       `json:"isManager"`
	JoinedAt                 time.Time  `json:"joinedAt"`
	RoundsAsGuesser          int        `json:"roundsAsGuesser"`
	ConsecutiveGuesserRounds int        `json:"consecutiveGuesserRounds"`
	Disconnected             bool       `json:"disconnected,omitempty"`
	DisconnectedAt           *time.Time `json:"disconnectedAt,omitempty"`
}

// Round is the state of the current (or just finished) guessing round.
type Round struct {
	GuesserID            string    `json:"guesserId"`
	Phrase               Phrase    `json:"phrase"`
	PhraseIndex          int       `json:"phraseIndex"`
	StartedAt            time.Time `json:"roundStartedAt"`
	RoundDurationSeconds int       `json:"roundDurationSeconds"`
	PointAwarded         bool      `json:"pointAwarded"`
}

// Remaining computes the time left at now from the absolute start timestamp. It never
// goes negative.
func (r *Round) Remaining(now time.Time) time.Duration {
	left := time.Duration(r.RoundDurationSeconds)*time.Second - now.Sub(r.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// RemainingSeconds is Remaining rounded up to whole seconds, as shown to clients.
func (r *Round) RemainingSeconds(now time.Time) int {
	left := r.Remaining(now)
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

// Room is one game session. Players are kept in join order.
type Room struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Password             string           `json:"password,omitempty"`
	Language             string           `json:"language"`
	RoundDurationSeconds int              `json:"roundTime"`
	ManagerID            string           `json:"managerId"`
	Players              []*Player        `json:"players"`
	GameState            GameState        `json:"gameState"`
	CurrentRound         *Round           `json:"currentRound,omitempty"`
	UsedPhraseIndices    map[int]struct{} `json:"-"`
	UsedPhrases          []int            `json:"usedPhraseIndices"`
	CreatedAt            time.Time        `json:"createdAt"`
}

func (r *Room) HasPassword() bool {
	return r.Password != ""
}

// Player returns the member currently bound to connectionID.
func (r *Room) Player(connectionID string) *Player {
	for _, p := range r.Players {
		if p.ConnectionID == connectionID {
			return p
		}
	}
	return nil
}

// PlayerByName returns the member with exactly that display name.
func (r *Room) PlayerByName(name string) *Player {
	for _, p := range r.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (r *Room) Manager() *Player {
	return r.Player(r.ManagerID)
}

// IsPhraseUsed reports whether index was already drawn this game.
func (r *Room) IsPhraseUsed(index int) bool {
	_, ok := r.UsedPhraseIndices[index]
	return ok
}

func (r *Room) MarkPhraseUsed(index int) {
	if r.UsedPhraseIndices == nil {
		r.UsedPhraseIndices = make(map[int]struct{})
	}
	r.UsedPhraseIndices[index] = struct{}{}
	r.UsedPhrases = append(r.UsedPhrases, index)
}

func (r *Room) ResetUsedPhrases() {
	r.UsedPhraseIndices = make(map[int]struct{})
	r.UsedPhrases = nil
}

// RebuildIndices restores the used-phrase set after decoding a snapshot.
func (r *Room) RebuildIndices() {
	r.UsedPhraseIndices = make(map[int]struct{}, len(r.UsedPhrases))
	for _, i := range r.UsedPhrases {
		r.UsedPhraseIndices[i] = struct{}{}
	}
}

// Clone returns a deep copy suitable for handing to the persistence layer.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		cp := *p
		if p.DisconnectedAt != nil {
			at := *p.DisconnectedAt
			cp.DisconnectedAt = &at
		}
		c.Players[i] = &cp
	}
	if r.CurrentRound != nil {
		round := *r.CurrentRound
		c.CurrentRound = &round
	}
	c.UsedPhrases = append([]int(nil), r.UsedPhrases...)
	c.RebuildIndices()
	return &c
}

// Summary is the lobby view of a room. It never carries the password or player identities.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:          r.ID,
		Name:        r.Name,
		Language:    r.Language,
		PlayerCount: len(r.Players),
		HasPassword: r.HasPassword(),
		GameState:   r.GameState,
	}
}

// Info is the room header sent to members on join and rejoin.
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		ID:          r.ID,
		Name:        r.Name,
		Language:    r.Language,
		RoundTime:   r.RoundDurationSeconds,
		HasPassword: r.HasPassword(),
		GameState:   r.GameState,
	}
}

// PlayerViews lists the members in join order without their session tokens.
func (r *Room) PlayerViews() []PlayerView {
	views := make([]PlayerView, 0, len(r.Players))
	for _, p := range r.Players {
		views = append(views, p.View())
	}
	return views
}

type RoomSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Language    string    `json:"language"`
	PlayerCount int       `json:"playerCount"`
	HasPassword bool      `json:"hasPassword"`
	GameState   GameState `json:"gameState"`
}

type RoomInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Language    string    `json:"language"`
	RoundTime   int       `json:"roundTime"`
	HasPassword bool      `json:"hasPassword"`
	GameState   GameState `json:"gameState"`
}

type PlayerView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	IsManager    bool   `json:"isManager"`
	Disconnected bool   `json:"disconnected"`
}

func (p *Player) View() PlayerView {
	return PlayerView{
		ID:           p.ConnectionID,
		Name:         p.Name,
		Score:        p.Score,
		IsManager:    p.IsManager,
		Disconnected: p.Disconnected,
	}
}

// Stats holds the durable server counters.
type Stats struct {
	MaxConnectedPlayers int   `json:"maxConnectedPlayers"`
	TotalGamesPlayed    int64 `json:"totalGamesPlayed"`
}

// StatsSnapshot is the point-in-time view broadcast as stats:update.
type StatsSnapshot struct {
	ConnectedPlayers    int            `json:"connectedPlayers"`
	MaxConnectedPlayers int            `json:"maxConnectedPlayers"`
	TotalGamesPlayed    int64          `json:"totalGamesPlayed"`
	PhrasesCount        map[string]int `json:"phrasesCount"`
}
