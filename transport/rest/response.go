package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/bingo"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

type statusResponse struct {
	Status string `json:"status"`
	URI    string `json:"uri,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type sessionResponse struct {
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	Desc        string   `json:"desc"`
	Private     bool     `json:"private"`
	MaxPlayers  int      `json:"max_players"`
	CurPlayers  int      `json:"cur_players"`
	Boards      []string `json:"boards"`
	WinLimit    int      `json:"win_limit"`
	DurationSec int      `json:"duration_sec"`
	Speed       int      `json:"speed"`
	Status      string   `json:"status"`
	Result      string   `json:"result,omitempty"`
}

func newSessionResponse(session *entity.Session, boards []*entity.Board) sessionResponse {
	return sessionResponse{
		URI:         session.URI(),
		Name:        session.Name,
		Desc:        session.Desc,
		Private:     session.Private,
		MaxPlayers:  session.MaxPlayers,
		CurPlayers:  session.CurPlayers,
		Boards:      lo.Map(boards, func(board *entity.Board, _ int) string { return board.URI() }),
		WinLimit:    session.WinLimit,
		DurationSec: session.DurationSec,
		Speed:       session.Speed,
		Status:      session.Status,
		Result:      session.Result,
	}
}

type boardResponse struct {
	URI    string       `json:"uri"`
	B      []int        `json:"b"`
	I      []int        `json:"i"`
	N      []int        `json:"n"`
	G      []int        `json:"g"`
	O      []int        `json:"o"`
	Marked []bingo.Cell `json:"marked"`
	Bingo  bool         `json:"bingo"`
}

func newBoardResponse(board *entity.Board) boardResponse {
	marked := board.Marked
	if marked == nil {
		marked = []bingo.Cell{}
	}

	return boardResponse{
		URI:    board.URI(),
		B:      board.B,
		I:      board.I,
		N:      board.N,
		G:      board.G,
		O:      board.O,
		Marked: marked,
		Bingo:  board.Bingo,
	}
}

type markResponse struct {
	Board    boardResponse `json:"board"`
	Marked   bool          `json:"marked"`
	Bingo    bool          `json:"bingo"`
	Accepted bool          `json:"accepted"`
}

type speedResponse struct {
	Speed int    `json:"speed"`
	Name  string `json:"name"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// writeError - maps domain errors to status codes; anything unknown is logged and hidden.
func writeError(log *slog.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad request"})
	case errors.Is(err, apperror.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Session not found!"})
	case errors.Is(err, apperror.ErrBoardNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Board not found!"})
	case errors.Is(err, apperror.ErrGameNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Game not found!"})
	case errors.Is(err, apperror.ErrSessionFull):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "Game is Full"})
	case errors.Is(err, apperror.ErrGameAlreadyStarted),
		errors.Is(err, apperror.ErrGameIsNotStarted),
		errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrPlayersJoined):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, apperror.ErrInvalidColumn),
		errors.Is(err, apperror.ErrNumberNotCalled):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
	}
}
