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

const (
	sessionSeqKey   = "session:seq"
	sessionIndexKey = "sessions"
)

type SessionRepository interface {
	NextID(ctx context.Context) (int64, error)
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id int64) (*entity.Session, error)
	List(ctx context.Context) ([]*entity.Session, error)
	DeleteByID(ctx context.Context, id int64) error
}

type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

func sessionKey(id int64) string {
	return "session:" + strconv.FormatInt(id, 10)
}

func (that *dbSession) NextID(ctx context.Context) (int64, error) {
	id, err := that.client.Incr(ctx, sessionSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate session id: %w", err)
	}

	return id, nil
}

func (that *dbSession) CreateOrUpdate(ctx context.Context, session *entity.Session) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), sessionJSON, 0)
		pipe.SAdd(ctx, sessionIndexKey, session.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	return nil
}

func (that *dbSession) GetByID(ctx context.Context, id int64) (*entity.Session, error) {
	response, err := that.client.Get(ctx, sessionKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return &entity.Session{}, apperror.ErrSessionNotFound
	}

	if err != nil {
		return &entity.Session{}, fmt.Errorf("failed to get session by id: %w", err)
	}

	var session entity.Session
	if err = json.Unmarshal([]byte(response), &session); err != nil {
		return &entity.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// List - every stored session ordered by id.
func (that *dbSession) List(ctx context.Context) ([]*entity.Session, error) {
	ids, err := that.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list session ids: %w", err)
	}

	if len(ids) == 0 {
		return []*entity.Session{}, nil
	}

	keys := lo.Map(ids, func(id string, _ int) string {
		return "session:" + id
	})

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}

	sessions := make([]*entity.Session, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry without a value, e.g. a concurrent delete
			continue
		}

		var session entity.Session
		if err = json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}

		sessions = append(sessions, &session)
	}

	slices.SortFunc(sessions, func(a, b *entity.Session) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return sessions, nil
}

func (that *dbSession) DeleteByID(ctx context.Context, id int64) error {
	var deleted *redis.IntCmd

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, sessionIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session by ID: %w", err)
	}

	if deleted.Val() == 0 {
		return apperror.ErrSessionNotFound
	}

	return nil
}
