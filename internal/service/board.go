package service

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

type BoardService interface {
	SaveBoard(ctx context.Context, board *entity.Board) error
	GetBoard(ctx context.Context, sessionID int64, id int) (*entity.Board, error)
	ListBoards(ctx context.Context, sessionID int64) ([]*entity.Board, error)
	DeleteBoard(ctx context.Context, sessionID int64, id int) error
}

type boardRepo interface {
	CreateOrUpdate(ctx context.Context, board *entity.Board) error
	GetByID(ctx context.Context, sessionID int64, id int) (*entity.Board, error)
	ListBySession(ctx context.Context, sessionID int64) ([]*entity.Board, error)
	DeleteByID(ctx context.Context, sessionID int64, id int) error
}

type boardService struct {
	boardRepo boardRepo
}

func NewBoardService(boardRepo boardRepo) BoardService {
	return &boardService{
		boardRepo: boardRepo,
	}
}

func (that *boardService) SaveBoard(ctx context.Context, board *entity.Board) error {
	if err := that.boardRepo.CreateOrUpdate(ctx, board); err != nil {
		return fmt.Errorf("save board %w", err)
	}
	return nil
}

func (that *boardService) GetBoard(ctx context.Context, sessionID int64, id int) (*entity.Board, error) {
	board, err := that.boardRepo.GetByID(ctx, sessionID, id)
	if err != nil {
		return nil, fmt.Errorf("get board by id %w", err)
	}
	return board, nil
}

func (that *boardService) ListBoards(ctx context.Context, sessionID int64) ([]*entity.Board, error) {
	boards, err := that.boardRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list boards %w", err)
	}
	return boards, nil
}

func (that *boardService) DeleteBoard(ctx context.Context, sessionID int64, id int) error {
	if err := that.boardRepo.DeleteByID(ctx, sessionID, id); err != nil {
		return fmt.Errorf("delete board %w", err)
	}
	return nil
}
