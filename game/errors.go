package game

import (
	"errors"

	"github.com/wfunc/phrasegame/network"
	"github.com/wfunc/phrasegame/room"
	"github.com/wfunc/phrasegame/state"
)

var (
	ErrNeedsMorePlayers    = errors.New("at least 2 players are needed to start")
	ErrNotManager          = errors.New("only the manager can do this")
	ErrNotInRoom           = errors.New("not in a room")
	ErrNoActiveRound       = errors.New("no active round")
	ErrPointAlreadyAwarded = errors.New("point already awarded for this round")
	ErrUnknownAction       = errors.New("unknown action")
	ErrNoPhrases           = errors.New("no phrases available for this language")
)

// Kind is the error taxonomy surfaced to clients.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindCapacity      Kind = "capacity"
	KindInternal      Kind = "internal"
)

// Classify maps an engine or registry error onto its Kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, room.ErrPlayerNotFound),
		errors.Is(err, ErrNotInRoom),
		errors.Is(err, ErrNoPhrases):
		return KindNotFound
	case errors.Is(err, room.ErrInvalidPassword),
		errors.Is(err, room.ErrAlreadyInRoom),
		errors.Is(err, room.ErrNameTaken),
		errors.Is(err, room.ErrInvalidSession),
		errors.Is(err, room.ErrInvalidName),
		errors.Is(err, state.ErrTransitionNotAllowed),
		errors.Is(err, ErrNoActiveRound),
		errors.Is(err, ErrPointAlreadyAwarded),
		errors.Is(err, ErrUnknownAction),
		errors.Is(err, network.ErrMalformedPacket):
		return KindValidation
	case errors.Is(err, ErrNotManager):
		return KindAuthorization
	case errors.Is(err, ErrNeedsMorePlayers):
		return KindCapacity
	default:
		return KindInternal
	}
}

// ErrorPayload is the body of room:error, game:error and room:rejoin-failed.
type ErrorPayload struct {
	Error string `json:"error"`
	Kind  Kind   `json:"kind"`
}

func NewErrorPayload(err error) ErrorPayload {
	return ErrorPayload{Error: err.Error(), Kind: Classify(err)}
}
