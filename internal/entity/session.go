package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusAborted  = "aborted"
)

const (
	DefaultSessionName = "Bingo"
	DefaultSessionDesc = "A Bingo Session"
	DefaultMaxPlayers  = 16
)

var ErrUnknownSessionStatus = errors.New("unknown session status")

type Session struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Desc        string `json:"desc"`
	Private     bool   `json:"private"`
	MaxPlayers  int    `json:"max_players"`
	CurPlayers  int    `json:"cur_players"`
	WinLimit    int    `json:"win_limit"`
	DurationSec int    `json:"duration_sec"`
	Speed       int    `json:"speed"`
	Status      string `json:"status"`
	GameID      string `json:"game_id,omitempty"`
	Result      string `json:"result,omitempty"`
}

// NewSession - a waiting session with the default name, description and capacity.
func NewSession(id int64) *Session {
	return &Session{
		ID:         id,
		Name:       DefaultSessionName,
		Desc:       DefaultSessionDesc,
		MaxPlayers: DefaultMaxPlayers,
		Status:     StatusWaiting,
	}
}

func (that *Session) URI() string {
	return fmt.Sprintf("/bingo/sessions/%d", that.ID)
}

func (that *Session) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Session) IsRunning() bool {
	return that.Status == StatusRunning
}

// IsFinished - true for both normal and aborted ends.
func (that *Session) IsFinished() bool {
	return that.Status == StatusFinished || that.Status == StatusAborted
}

// IsFull - no seat left for another player.
func (that *Session) IsFull() bool {
	return that.CurPlayers+1 > that.MaxPlayers
}

// ConfirmWaitingState - nil only while the game has not been started.
func (that *Session) ConfirmWaitingState() error {
	switch {
	case that.IsWaiting():
		return nil
	case that.IsRunning():
		return apperror.ErrGameAlreadyStarted
	case that.IsFinished():
		return apperror.ErrGameFinished
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSessionStatus, that.Status)
	}
}
