package repository

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

type BoardRepository interface {
	CreateOrUpdate(ctx context.Context, board *entity.Board) error
	GetByID(ctx context.Context, sessionID int64, id int) (*entity.Board, error)
	ListBySession(ctx context.Context, sessionID int64) ([]*entity.Board, error)
	DeleteByID(ctx context.Context, sessionID int64, id int) error
}

type dbBoard struct {
	client *redis.Client
}

func NewBoardRepository(client *redis.Client) BoardRepository {
	return &dbBoard{
		client: client,
	}
}

func boardKey(sessionID int64, id int) string {
	return fmt.Sprintf("board:%d:%d", sessionID, id)
}

func sessionBoardsKey(sessionID int64) string {
	return "session:" + strconv.FormatInt(sessionID, 10) + ":boards"
}

func (that *dbBoard) CreateOrUpdate(ctx context.Context, board *entity.Board) error {
	boardJSON, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("could not marshal board: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, boardKey(board.SessionID, board.ID), boardJSON, 0)
		pipe.SAdd(ctx, sessionBoardsKey(board.SessionID), board.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set board: %w", err)
	}

	return nil
}

func (that *dbBoard) GetByID(ctx context.Context, sessionID int64, id int) (*entity.Board, error) {
	response, err := that.client.Get(ctx, boardKey(sessionID, id)).Result()

	if errors.Is(err, redis.Nil) {
		return &entity.Board{}, apperror.ErrBoardNotFound
	}

	if err != nil {
		return &entity.Board{}, fmt.Errorf("failed to get board by id: %w", err)
	}

	var board entity.Board
	if err = json.Unmarshal([]byte(response), &board); err != nil {
		return &entity.Board{}, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	return &board, nil
}

// ListBySession - boards of one session ordered by player number.
func (that *dbBoard) ListBySession(ctx context.Context, sessionID int64) ([]*entity.Board, error) {
	ids, err := that.client.SMembers(ctx, sessionBoardsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list board ids: %w", err)
	}

	if len(ids) == 0 {
		return []*entity.Board{}, nil
	}

	keys := lo.Map(ids, func(id string, _ int) string {
		return "board:" + strconv.FormatInt(sessionID, 10) + ":" + id
	})

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get boards: %w", err)
	}

	boards := make([]*entity.Board, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var board entity.Board
		if err = json.Unmarshal([]byte(raw), &board); err != nil {
			return nil, fmt.Errorf("failed to unmarshal board: %w", err)
		}

		boards = append(boards, &board)
	}

	slices.SortFunc(boards, func(a, b *entity.Board) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return boards, nil
}

func (that *dbBoard) DeleteByID(ctx context.Context, sessionID int64, id int) error {
	var deleted *redis.IntCmd

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, boardKey(sessionID, id))
		pipe.SRem(ctx, sessionBoardsKey(sessionID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete board by ID: %w", err)
	}

	if deleted.Val() == 0 {
		return apperror.ErrBoardNotFound
	}

	return nil
}
