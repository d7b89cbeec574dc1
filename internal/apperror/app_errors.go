package apperror

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionFull        = errors.New("game is full")
	ErrBoardNotFound      = errors.New("board not found")
	ErrGameNotFound       = errors.New("game not found")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrGameIsNotStarted   = errors.New("game is not started")
	ErrGameFinished       = errors.New("game is already finished")
	ErrPlayersJoined      = errors.New("players already joined")
	ErrInvalidColumn      = errors.New("invalid column")
	ErrNumberNotCalled    = errors.New("number was not called")
)
