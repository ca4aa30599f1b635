package games

import "errors"

var (
	// ErrNotAuthorized covers non-host starts and turn-gated moves by other players.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrAlreadyPlayed is returned for a second play within one round.
	ErrAlreadyPlayed = errors.New("already played this round")
	ErrInvalidMove   = errors.New("invalid move")
	// ErrConfiguration is an unknown, non-empty gameId.
	ErrConfiguration  = errors.New("unknown game")
	ErrGameNotStarted = errors.New("game has not started")
	ErrBadRequest     = errors.New("bad request")
)
