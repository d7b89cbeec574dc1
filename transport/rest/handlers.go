package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/bingo-backend/internal/bingo"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
	"github.com/rocketscienceinc/bingo-backend/internal/usecase"
)

type sessionUseCase interface {
	CreateSession(ctx context.Context, params usecase.SessionParams) (*entity.Session, error)
	ListPublicSessions(ctx context.Context) ([]*entity.Session, error)
	GetSession(ctx context.Context, id int64) (*entity.Session, error)
	UpdateSession(ctx context.Context, id int64, params usecase.SessionParams) (*entity.Session, error)
	DeleteSession(ctx context.Context, id int64) error

	JoinSession(ctx context.Context, sessionID int64) (*entity.Board, error)
	GetBoard(ctx context.Context, sessionID int64, boardID int) (*entity.Board, error)
	ListBoards(ctx context.Context, sessionID int64) ([]*entity.Board, error)
	LeaveSession(ctx context.Context, sessionID int64, boardID int) error

	StartGame(ctx context.Context, sessionID int64) (*entity.Session, error)
	AbortGame(ctx context.Context, sessionID int64) error
	AdjustSpeed(ctx context.Context, sessionID int64, speed bingo.Speed) (bingo.Speed, error)
	GameState(ctx context.Context, sessionID int64) (*usecase.GameState, error)

	NextDraw(ctx context.Context, sessionID int64, boardID int) (bingo.Draw, bool, error)
	MarkBoard(ctx context.Context, sessionID int64, boardID int, column string, number int) (*usecase.MarkResult, error)
}

type handlers struct {
	logger   *slog.Logger
	uSession sessionUseCase
}

func sessionIDFrom(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: session id: %w", errBadRequest, err)
	}
	return id, nil
}

func boardIDFrom(r *http.Request) (int64, int, error) {
	sessionID, err := sessionIDFrom(r)
	if err != nil {
		return 0, 0, err
	}

	boardID, err := strconv.Atoi(r.PathValue("board"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: board id: %w", errBadRequest, err)
	}

	return sessionID, boardID, nil
}

func (that *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "listSessions")

	sessions, err := that.uSession.ListPublicSessions(r.Context())
	if err != nil {
		writeError(log, w, err)
		return
	}

	response := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		boards, err := that.uSession.ListBoards(r.Context(), session.ID)
		if err != nil {
			writeError(log, w, err)
			return
		}
		response = append(response, newSessionResponse(session, boards))
	}

	writeJSON(w, http.StatusOK, response)
}

func (that *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "createSession")

	var req sessionRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(log, w, err)
		return
	}

	session, err := that.uSession.CreateSession(r.Context(), req.params())
	if err != nil {
		writeError(log, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, statusResponse{Status: "CREATED", URI: session.URI()})
}

func (that *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "getSession")

	id, err := sessionIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	session, err := that.uSession.GetSession(r.Context(), id)
	if err != nil {
		writeError(log, w, err)
		return
	}

	boards, err := that.uSession.ListBoards(r.Context(), id)
	if err != nil {
		writeError(log, w, err)
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse(session, boards))
}

func (that *handlers) updateSession(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "updateSession")

	id, err := sessionIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	var req sessionRequest
	if err = decodeRequest(w, r, &req); err != nil {
		writeError(log, w, err)
		return
	}

	session, err := that.uSession.UpdateSession(r.Context(), id, req.params())
	if err != nil {
		writeError(log, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, statusResponse{Status: "UPDATED", URI: session.URI()})
}

func (that *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "deleteSession")

	id, err := sessionIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	if err = that.uSession.DeleteSession(r.Context(), id); err != nil {
		writeError(log, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *handlers) requestBoard(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "requestBoard")

	id, err := sessionIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	board, err := that.uSession.JoinSession(r.Context(), id)
	if err != nil {
		writeError(log, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, statusResponse{Status: "CREATED", URI: board.URI()})
}

func (that *handlers) getBoard(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "getBoard")

	sessionID, boardID, err := boardIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	board, err := that.uSession.GetBoard(r.Context(), sessionID, boardID)
	if err != nil {
		writeError(log, w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Status string        `json:"status"`
		Board  boardResponse `json:"board"`
	}{Status: "OK", Board: newBoardResponse(board)})
}

func (that *handlers) leaveSession(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "leaveSession")

	sessionID, boardID, err := boardIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	if err = that.uSession.LeaveSession(r.Context(), sessionID, boardID); err != nil {
		writeError(log, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *handlers) nextDraw(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "nextDraw")

	sessionID, boardID, err := boardIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	draw, ok, err := that.uSession.NextDraw(r.Context(), sessionID, boardID)
	if err != nil {
		writeError(log, w, err)
		return
	}

	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, draw)
}

func (that *handlers) markBoard(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "markBoard")

	sessionID, boardID, err := boardIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	var req markRequest
	if err = decodeRequest(w, r, &req); err != nil {
		writeError(log, w, err)
		return
	}

	result, err := that.uSession.MarkBoard(r.Context(), sessionID, boardID, req.Column, req.Number)
	if err != nil {
		writeError(log, w, err)
		return
	}

	writeJSON(w, http.StatusOK, markResponse{
		Board:    newBoardResponse(result.Board),
		Marked:   result.Marked,
		Bingo:    result.Bingo,
		Accepted: result.Accepted,
	})
}

func (that *handlers) startGame(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "startGame")

	id, err := sessionIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	session, err := that.uSession.StartGame(r.Context(), id)
	if err != nil {
		writeError(log, w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, statusResponse{Status: "STARTED", URI: session.URI() + "/game"})
}

func (that *handlers) abortGame(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "abortGame")

	id, err := sessionIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	if err = that.uSession.AbortGame(r.Context(), id); err != nil {
		writeError(log, w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ABORTED"})
}

func (that *handlers) adjustSpeed(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "adjustSpeed")

	id, err := sessionIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	var req speedRequest
	if err = decodeRequest(w, r, &req); err != nil {
		writeError(log, w, err)
		return
	}

	speed, err := that.uSession.AdjustSpeed(r.Context(), id, req.speed())
	if err != nil {
		writeError(log, w, err)
		return
	}

	writeJSON(w, http.StatusOK, speedResponse{Speed: int(speed), Name: speed.String()})
}

func (that *handlers) gameState(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "gameState")

	id, err := sessionIDFrom(r)
	if err != nil {
		writeError(log, w, err)
		return
	}

	state, err := that.uSession.GameState(r.Context(), id)
	if err != nil {
		writeError(log, w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}
