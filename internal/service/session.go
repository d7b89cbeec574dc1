package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

type SessionService interface {
	CreateSession(ctx context.Context, session *entity.Session) (*entity.Session, error)
	UpdateSession(ctx context.Context, session *entity.Session) error
	DeleteSession(ctx context.Context, id int64) error

	GetSessionByID(ctx context.Context, id int64) (*entity.Session, error)
	ListSessions(ctx context.Context) ([]*entity.Session, error)
	ListPublicSessions(ctx context.Context) ([]*entity.Session, error)
}

type sessionRepo interface {
	NextID(ctx context.Context) (int64, error)
	CreateOrUpdate(ctx context.Context, session *entity.Session) error

	GetByID(ctx context.Context, id int64) (*entity.Session, error)
	List(ctx context.Context) ([]*entity.Session, error)

	DeleteByID(ctx context.Context, id int64) error
}

type sessionService struct {
	sessionRepo sessionRepo
}

func NewSessionService(sessionRepo sessionRepo) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
	}
}

// CreateSession - assigns the next id to the session and stores it.
func (that *sessionService) CreateSession(ctx context.Context, session *entity.Session) (*entity.Session, error) {
	id, err := that.sessionRepo.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("error generating session ID: %w", err)
	}

	session.ID = id
	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session in storage: %w", err)
	}

	return session, nil
}

func (that *sessionService) UpdateSession(ctx context.Context, session *entity.Session) error {
	if err := that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (that *sessionService) DeleteSession(ctx context.Context, id int64) error {
	if err := that.sessionRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (that *sessionService) GetSessionByID(ctx context.Context, id int64) (*entity.Session, error) {
	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve session from storage: %w", err)
	}
	return session, nil
}

func (that *sessionService) ListSessions(ctx context.Context) ([]*entity.Session, error) {
	sessions, err := that.sessionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (that *sessionService) ListPublicSessions(ctx context.Context) ([]*entity.Session, error) {
	sessions, err := that.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	return lo.Filter(sessions, func(session *entity.Session, _ int) bool {
		return !session.Private
	}), nil
}
