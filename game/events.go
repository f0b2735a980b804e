package game

import "github.com/wfunc/phrasegame/models"

// Inbound payloads.

type CreateRoomRequest struct {
	Name       string `json:"name"`
	Password   string `json:"password,omitempty"`
	Language   string `json:"language,omitempty"`
	RoundTime  int    `json:"roundTime,omitempty"`
	PlayerName string `json:"playerName"`
	SessionID  string `json:"sessionId"`
}

type JoinRoomRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	Password   string `json:"password,omitempty"`
	SessionID  string `json:"sessionId"`
}

type RejoinRoomRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	SessionID  string `json:"sessionId"`
}

// Action is a manager-only game command.
type Action string

const (
	ActionStart         Action = "start"
	ActionValidatePoint Action = "validate-point"
	ActionSkip          Action = "skip"
	ActionNextRound     Action = "next-round"
	ActionEnd           Action = "end"
)

// Outbound payloads.

type RoomJoinedPayload struct {
	Room         models.RoomInfo     `json:"room"`
	Players      []models.PlayerView `json:"players"`
	IsManager    bool                `json:"isManager"`
	CurrentRound *RoundView          `json:"currentRound,omitempty"`
}

type PlayerJoinedPayload struct {
	Player  models.PlayerView   `json:"player"`
	Players []models.PlayerView `json:"players"`
}

type PlayerLeftPayload struct {
	PlayerID string              `json:"playerId"`
	Players  []models.PlayerView `json:"players"`
}

type ManagerChangedPayload struct {
	NewManagerID string              `json:"newManagerId"`
	Players      []models.PlayerView `json:"players"`
}

type PlayersPayload struct {
	Players []models.PlayerView `json:"players"`
}

// RoundView is one player's view of the active round. The guesser only sees the coded phrase.
type RoundView struct {
	GuesserID     string `json:"guesserId"`
	TimeRemaining int    `json:"timeRemaining"`
	Phrase        string `json:"phrase"`
	Original      string `json:"original,omitempty"`
	Coded         string `json:"coded"`
	IsGuesser     bool   `json:"isGuesser"`
}

type TimerPayload struct {
	TimeRemaining int `json:"timeRemaining"`
}

type PointAwardedPayload struct {
	PlayerID string              `json:"playerId"`
	Players  []models.PlayerView `json:"players"`
}

type GuesserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RoundEndPayload struct {
	Guessed     bool                `json:"guessed"`
	Phrase      models.Phrase       `json:"phrase"`
	Players     []models.PlayerView `json:"players"`
	NextGuesser *GuesserRef         `json:"nextGuesser"`
}

type GameEndedPayload struct {
	Winner  *models.PlayerView  `json:"winner"`
	Players []models.PlayerView `json:"players"`
}
