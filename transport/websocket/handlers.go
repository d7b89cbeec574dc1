package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/bingo"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
	"github.com/rocketscienceinc/bingo-backend/internal/usecase"
)

const (
	actionConnect   = "connect"
	actionBoardMark = "board:mark"
	actionGameState = "game:state"
	actionGameDraw  = "game:draw"
)

var validate = validator.New()

type connectPayload struct {
	SessionID int64 `json:"session_id" validate:"required,min=1"`
	BoardID   int   `json:"board_id" validate:"required,min=1"`
}

type markPayload struct {
	Column string `json:"column" validate:"required,oneof=b i n g o"`
	Number int    `json:"number" validate:"required,min=1,max=100"`
}

// Payload is the body of every server message.
type Payload struct {
	SessionID int64              `json:"session_id,omitempty"`
	BoardID   int                `json:"board_id,omitempty"`
	Draw      *bingo.Draw        `json:"draw,omitempty"`
	Board     *entity.Board      `json:"board,omitempty"`
	Marked    *bool              `json:"marked,omitempty"`
	Bingo     *bool              `json:"bingo,omitempty"`
	Accepted  *bool              `json:"accepted,omitempty"`
	Game      *usecase.GameState `json:"game,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func decodePayload(msg *Message, v any) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	return nil
}

func (that *Server) handleConnect(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleConnect", "viewer", conn.viewer)

	var req connectPayload
	if err := decodePayload(msg, &req); err != nil {
		return that.sendErrorResponse(conn, msg.Action, err.Error())
	}

	mailbox, err := that.uSession.Subscribe(ctx, req.SessionID, req.BoardID)
	if err != nil {
		log.Warn("failed to subscribe", "sessionID", req.SessionID, "boardID", req.BoardID, "error", err)
		return that.sendErrorResponse(conn, msg.Action, errorMessage(err))
	}

	ack := Payload{SessionID: req.SessionID, BoardID: req.BoardID}
	if last, ok := mailbox.Last(); ok {
		ack.Draw = &last
	}

	if err = conn.send(msg.Action, ack); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	pumpCtx, stop := context.WithCancel(ctx)
	conn.attach(req.SessionID, req.BoardID, stop)

	go that.pumpDraws(pumpCtx, conn, mailbox)

	log.Info("successfully connected player", "sessionID", req.SessionID, "boardID", req.BoardID)

	return nil
}

// pumpDraws - pushes every draw landing in the seat's mailbox until ctx is done.
func (that *Server) pumpDraws(ctx context.Context, conn *connection, mailbox *bingo.Mailbox) {
	log := that.logger.With("method", "pumpDraws", "viewer", conn.viewer)

	for {
		select {
		case <-ctx.Done():
			return
		case <-mailbox.Notify():
		}

		draw, ok := mailbox.Consume()
		if !ok {
			continue
		}

		if err := conn.send(actionGameDraw, Payload{Draw: &draw}); err != nil {
			log.Error("failed to push draw", "error", err)
			return
		}
	}
}

func (that *Server) handleBoardMark(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleBoardMark", "viewer", conn.viewer)

	sessionID, boardID, ok := conn.seat()
	if !ok {
		return that.sendErrorResponse(conn, msg.Action, "connect to a board first")
	}

	var req markPayload
	if err := decodePayload(msg, &req); err != nil {
		return that.sendErrorResponse(conn, msg.Action, err.Error())
	}

	result, err := that.uSession.MarkBoard(ctx, sessionID, boardID, req.Column, req.Number)
	if err != nil {
		log.Warn("failed to mark board", "sessionID", sessionID, "boardID", boardID, "error", err)
		return that.sendErrorResponse(conn, msg.Action, errorMessage(err))
	}

	return conn.send(msg.Action, Payload{
		SessionID: sessionID,
		BoardID:   boardID,
		Board:     result.Board,
		Marked:    &result.Marked,
		Bingo:     &result.Bingo,
		Accepted:  &result.Accepted,
	})
}

func (that *Server) handleGameState(ctx context.Context, msg *Message, conn *connection) error {
	sessionID, _, ok := conn.seat()
	if !ok {
		return that.sendErrorResponse(conn, msg.Action, "connect to a board first")
	}

	state, err := that.uSession.GameState(ctx, sessionID)
	if err != nil {
		return that.sendErrorResponse(conn, msg.Action, errorMessage(err))
	}

	return conn.send(msg.Action, Payload{SessionID: sessionID, Game: state})
}

func (that *Server) sendErrorResponse(conn *connection, action, errorMsg string) error {
	if err := conn.send(action, Payload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}

// errorMessage - the client-facing text of a domain error.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, apperror.ErrSessionNotFound),
		errors.Is(err, apperror.ErrBoardNotFound),
		errors.Is(err, apperror.ErrGameNotFound),
		errors.Is(err, apperror.ErrGameIsNotStarted),
		errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrInvalidColumn),
		errors.Is(err, apperror.ErrNumberNotCalled):
		return err.Error()
	default:
		return "internal error"
	}
}
