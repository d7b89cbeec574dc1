package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/bingo"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

var errRedisDown = errors.New("redis down")

// memSessions keeps sessions in memory.
type memSessions struct {
	mu       sync.Mutex
	seq      int64
	sessions map[int64]entity.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[int64]entity.Session)}
}

func (that *memSessions) CreateSession(_ context.Context, session *entity.Session) (*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.seq++
	session.ID = that.seq
	that.sessions[session.ID] = *session
	return session, nil
}

func (that *memSessions) UpdateSession(_ context.Context, session *entity.Session) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[session.ID] = *session
	return nil
}

func (that *memSessions) DeleteSession(_ context.Context, id int64) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.sessions[id]; !ok {
		return apperror.ErrSessionNotFound
	}
	delete(that.sessions, id)
	return nil
}

func (that *memSessions) GetSessionByID(_ context.Context, id int64) (*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[id]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}
	return &session, nil
}

func (that *memSessions) ListSessions(_ context.Context) ([]*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	out := make([]*entity.Session, 0, len(that.sessions))
	for _, session := range that.sessions {
		out = append(out, &session)
	}
	return out, nil
}

func (that *memSessions) ListPublicSessions(ctx context.Context) ([]*entity.Session, error) {
	all, _ := that.ListSessions(ctx)

	out := make([]*entity.Session, 0, len(all))
	for _, session := range all {
		if !session.Private {
			out = append(out, session)
		}
	}
	return out, nil
}

type boardKey struct {
	session int64
	id      int
}

// memBoards keeps boards in memory.
type memBoards struct {
	mu     sync.Mutex
	boards map[boardKey]entity.Board

	// saveDelay makes every save take a random time up to the given duration
	saveDelay time.Duration
	listErr   error
}

func newMemBoards() *memBoards {
	return &memBoards{boards: make(map[boardKey]entity.Board)}
}

func (that *memBoards) SaveBoard(_ context.Context, board *entity.Board) error {
	if that.saveDelay > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(that.saveDelay))))
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.boards[boardKey{board.SessionID, board.ID}] = *board
	return nil
}

func (that *memBoards) GetBoard(_ context.Context, sessionID int64, id int) (*entity.Board, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	board, ok := that.boards[boardKey{sessionID, id}]
	if !ok {
		return nil, apperror.ErrBoardNotFound
	}
	return &board, nil
}

func (that *memBoards) ListBoards(_ context.Context, sessionID int64) ([]*entity.Board, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.listErr != nil {
		return nil, that.listErr
	}

	out := make([]*entity.Board, 0)
	for key, board := range that.boards {
		if key.session == sessionID {
			out = append(out, &board)
		}
	}
	return out, nil
}

func (that *memBoards) DeleteBoard(_ context.Context, sessionID int64, id int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	key := boardKey{sessionID, id}
	if _, ok := that.boards[key]; !ok {
		return apperror.ErrBoardNotFound
	}
	delete(that.boards, key)
	return nil
}

// mockSessionService is a testify mock for error paths.
type mockSessionService struct {
	mock.Mock
}

func (that *mockSessionService) CreateSession(ctx context.Context, session *entity.Session) (*entity.Session, error) {
	args := that.Called(ctx, session)
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (that *mockSessionService) UpdateSession(ctx context.Context, session *entity.Session) error {
	return that.Called(ctx, session).Error(0)
}

func (that *mockSessionService) DeleteSession(ctx context.Context, id int64) error {
	return that.Called(ctx, id).Error(0)
}

func (that *mockSessionService) GetSessionByID(ctx context.Context, id int64) (*entity.Session, error) {
	args := that.Called(ctx, id)
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (that *mockSessionService) ListSessions(ctx context.Context) ([]*entity.Session, error) {
	args := that.Called(ctx)
	return args.Get(0).([]*entity.Session), args.Error(1)
}

func (that *mockSessionService) ListPublicSessions(ctx context.Context) ([]*entity.Session, error) {
	args := that.Called(ctx)
	return args.Get(0).([]*entity.Session), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, paceUnit time.Duration) (*SessionManager, *memSessions, *memBoards) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sessions := newMemSessions()
	boards := newMemBoards()

	manager := NewSessionManager(ctx, testLogger(), sessions, boards, GameOptions{
		PaceUnit:      paceUnit,
		NotifyTimeout: time.Second,
	})

	return manager, sessions, boards
}

func ptr[T any](v T) *T {
	return &v
}

func waitFinished(t *testing.T, manager *SessionManager, sessionID int64) *entity.Session {
	t.Helper()

	var session *entity.Session
	require.Eventually(t, func() bool {
		var err error
		session, err = manager.GetSession(context.Background(), sessionID)
		return err == nil && session.IsFinished()
	}, 5*time.Second, 5*time.Millisecond)

	return session
}

func TestSessionManager_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies defaults and deals one card per seat", func(t *testing.T) {
		// Given: a manager
		manager, _, _ := newTestManager(t, time.Millisecond)

		// When: creating a session without parameters
		session, err := manager.CreateSession(ctx, SessionParams{})

		// Then: defaults are stored and the live game is registered
		require.NoError(t, err)
		assert.Equal(t, int64(1), session.ID)
		assert.Equal(t, entity.DefaultSessionName, session.Name)
		assert.Equal(t, entity.DefaultMaxPlayers, session.MaxPlayers)
		assert.Equal(t, entity.StatusWaiting, session.Status)
		assert.Equal(t, int(bingo.SpeedNormal), session.Speed)
		assert.NotEmpty(t, session.GameID)

		game, err := manager.getLiveGame(session.ID)
		require.NoError(t, err)
		assert.Len(t, game.controller.Cards(), entity.DefaultMaxPlayers)
		assert.Len(t, game.controller.Listeners(), entity.DefaultMaxPlayers)
	})

	t.Run("Unknown speed is stored as normal", func(t *testing.T) {
		manager, _, _ := newTestManager(t, time.Millisecond)

		session, err := manager.CreateSession(ctx, SessionParams{Speed: ptr(bingo.Speed(999))})

		require.NoError(t, err)
		assert.Equal(t, int(bingo.SpeedNormal), session.Speed)
	})

	t.Run("Returns error if storage fails", func(t *testing.T) {
		// Given: a session service that cannot store
		sessions := &mockSessionService{}
		sessions.On("CreateSession", mock.Anything, mock.AnythingOfType("*entity.Session")).
			Return((*entity.Session)(nil), errRedisDown).
			Once()

		manager := NewSessionManager(ctx, testLogger(), sessions, newMemBoards(), GameOptions{})

		// When: creating a session
		session, err := manager.CreateSession(ctx, SessionParams{})

		// Then: the error is returned and no game is registered
		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, session)
		assert.Empty(t, manager.games)
		sessions.AssertExpectations(t)
	})
}

func TestSessionManager_ListPublicSessions(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newTestManager(t, time.Millisecond)

	// Given: one public and one private session
	_, err := manager.CreateSession(ctx, SessionParams{Name: ptr("open")})
	require.NoError(t, err)
	_, err = manager.CreateSession(ctx, SessionParams{Name: ptr("closed"), Private: ptr(true)})
	require.NoError(t, err)

	// When: listing public sessions
	sessions, err := manager.ListPublicSessions(ctx)

	// Then: only the public one is returned
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "open", sessions[0].Name)
}

func TestSessionManager_JoinSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Assigns player numbers and rejects a full session", func(t *testing.T) {
		// Given: a two-seat session
		manager, _, _ := newTestManager(t, time.Millisecond)
		session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(2)})
		require.NoError(t, err)

		// When: three players join
		first, err := manager.JoinSession(ctx, session.ID)
		require.NoError(t, err)
		second, err := manager.JoinSession(ctx, session.ID)
		require.NoError(t, err)
		_, err = manager.JoinSession(ctx, session.ID)

		// Then: seats one and two are taken and the third join is refused
		assert.Equal(t, 1, first.ID)
		assert.Equal(t, 2, second.ID)
		assert.NotEqual(t, first.CardID, second.CardID)
		require.ErrorIs(t, err, apperror.ErrSessionFull)

		stored, err := manager.GetSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.CurPlayers)
	})

	t.Run("Board mirrors the seat card", func(t *testing.T) {
		manager, _, _ := newTestManager(t, time.Millisecond)
		session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(1)})
		require.NoError(t, err)

		board, err := manager.JoinSession(ctx, session.ID)
		require.NoError(t, err)

		game, err := manager.getLiveGame(session.ID)
		require.NoError(t, err)
		card, ok := game.controller.Card(0)
		require.True(t, ok)
		assert.Equal(t, card.ID(), board.CardID)
		assert.Equal(t, card.Column(bingo.ColumnB), board.B)
	})

	t.Run("Unknown session", func(t *testing.T) {
		manager, _, _ := newTestManager(t, time.Millisecond)

		_, err := manager.JoinSession(ctx, 42)

		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestSessionManager_LeaveSession(t *testing.T) {
	ctx := context.Background()

	// Given: a joined player
	manager, _, _ := newTestManager(t, time.Millisecond)
	session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(2)})
	require.NoError(t, err)
	board, err := manager.JoinSession(ctx, session.ID)
	require.NoError(t, err)

	// When: the player leaves
	err = manager.LeaveSession(ctx, session.ID, board.ID)

	// Then: the board is gone, the seat is not reused
	require.NoError(t, err)
	_, err = manager.GetBoard(ctx, session.ID, board.ID)
	require.ErrorIs(t, err, apperror.ErrBoardNotFound)

	next, err := manager.JoinSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next.ID)

	_, _, err = manager.NextDraw(ctx, session.ID, board.ID)
	require.ErrorIs(t, err, apperror.ErrBoardNotFound)
}

func TestSessionManager_UpdateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Changing capacity deals a new game", func(t *testing.T) {
		// Given: a waiting session
		manager, _, _ := newTestManager(t, time.Millisecond)
		session, err := manager.CreateSession(ctx, SessionParams{})
		require.NoError(t, err)

		// When: the capacity changes
		updated, err := manager.UpdateSession(ctx, session.ID, SessionParams{MaxPlayers: ptr(4), Desc: ptr("friday")})

		// Then: the new game has four seats
		require.NoError(t, err)
		assert.Equal(t, "friday", updated.Desc)
		assert.NotEqual(t, session.GameID, updated.GameID)

		game, err := manager.getLiveGame(session.ID)
		require.NoError(t, err)
		assert.Len(t, game.controller.Cards(), 4)
	})

	t.Run("Game settings are locked once a player joined", func(t *testing.T) {
		manager, _, _ := newTestManager(t, time.Millisecond)
		session, err := manager.CreateSession(ctx, SessionParams{})
		require.NoError(t, err)
		_, err = manager.JoinSession(ctx, session.ID)
		require.NoError(t, err)

		_, err = manager.UpdateSession(ctx, session.ID, SessionParams{WinLimit: ptr(3)})
		require.ErrorIs(t, err, apperror.ErrPlayersJoined)

		updated, err := manager.UpdateSession(ctx, session.ID, SessionParams{Name: ptr("renamed")})
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Name)
	})
}

func TestSessionManager_StartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Single-win game ends once a player claims bingo", func(t *testing.T) {
		// Given: a started single-win game with one joined player
		manager, _, _ := newTestManager(t, 10*time.Millisecond)
		session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(2), WinLimit: ptr(1), Speed: ptr(bingo.SpeedFast)})
		require.NoError(t, err)
		board, err := manager.JoinSession(ctx, session.ID)
		require.NoError(t, err)

		started, err := manager.StartGame(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusRunning, started.Status)

		// When: the player marks every called number until the claim is accepted
		accepted := false
		require.Eventually(t, func() bool {
			state, stateErr := manager.GameState(ctx, session.ID)
			if stateErr != nil {
				return false
			}

			for _, number := range state.Called {
				column, _ := bingo.BoardRange.ColumnOf(number)
				result, markErr := manager.MarkBoard(ctx, session.ID, board.ID, column.String(), number)
				if markErr == nil && result.Accepted {
					accepted = true
				}
			}
			return accepted
		}, 5*time.Second, 2*time.Millisecond)

		// Then: the game ends by limit and the result is stored
		finished := waitFinished(t, manager, session.ID)
		assert.Equal(t, entity.StatusFinished, finished.Status)
		assert.Equal(t, bingo.StateEndedByLimit.String(), finished.Result)

		state, err := manager.GameState(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, state.WinCount)
		assert.Equal(t, 1, state.Listeners)

		stored, err := manager.GetBoard(ctx, session.ID, board.ID)
		require.NoError(t, err)
		assert.True(t, stored.Bingo)
	})

	t.Run("Start twice is rejected", func(t *testing.T) {
		manager, _, _ := newTestManager(t, 50*time.Millisecond)
		session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(1)})
		require.NoError(t, err)

		_, err = manager.StartGame(ctx, session.ID)
		require.NoError(t, err)
		_, err = manager.StartGame(ctx, session.ID)

		require.ErrorIs(t, err, apperror.ErrGameAlreadyStarted)
		require.NoError(t, manager.AbortGame(ctx, session.ID))
	})
}

func TestSessionManager_AbortGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Aborting a running game stores aborted", func(t *testing.T) {
		// Given: a running game
		manager, _, _ := newTestManager(t, 50*time.Millisecond)
		session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(1)})
		require.NoError(t, err)
		_, err = manager.StartGame(ctx, session.ID)
		require.NoError(t, err)

		// When: aborting it
		err = manager.AbortGame(ctx, session.ID)

		// Then: the session ends as aborted
		require.NoError(t, err)
		finished := waitFinished(t, manager, session.ID)
		assert.Equal(t, entity.StatusAborted, finished.Status)

		require.ErrorIs(t, manager.AbortGame(ctx, session.ID), apperror.ErrGameFinished)
	})

	t.Run("Aborting a waiting game stores aborted right away", func(t *testing.T) {
		manager, _, _ := newTestManager(t, time.Millisecond)
		session, err := manager.CreateSession(ctx, SessionParams{})
		require.NoError(t, err)

		require.NoError(t, manager.AbortGame(ctx, session.ID))

		stored, err := manager.GetSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusAborted, stored.Status)

		_, err = manager.StartGame(ctx, session.ID)
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})
}

func TestSessionManager_AdjustSpeed(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newTestManager(t, time.Millisecond)
	session, err := manager.CreateSession(ctx, SessionParams{})
	require.NoError(t, err)

	// When: setting an unknown speed and then a known one
	clamped, err := manager.AdjustSpeed(ctx, session.ID, 0)
	require.NoError(t, err)
	fast, err := manager.AdjustSpeed(ctx, session.ID, bingo.SpeedFast)
	require.NoError(t, err)

	// Then: the unknown one is clamped to normal
	assert.Equal(t, bingo.SpeedNormal, clamped)
	assert.Equal(t, bingo.SpeedFast, fast)

	stored, err := manager.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int(bingo.SpeedFast), stored.Speed)
}

func TestSessionManager_MarkBoard(t *testing.T) {
	ctx := context.Background()

	t.Run("Marking before the game started is rejected", func(t *testing.T) {
		// Given: a joined player in a game that has not started
		manager, _, _ := newTestManager(t, time.Millisecond)
		session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(1)})
		require.NoError(t, err)
		board, err := manager.JoinSession(ctx, session.ID)
		require.NoError(t, err)

		// When: marking a number on the card
		_, err = manager.MarkBoard(ctx, session.ID, board.ID, "b", board.B[0])

		// Then: it is refused
		require.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})

	t.Run("Number that was not called is rejected", func(t *testing.T) {
		// Given: a slow running game that has drawn exactly one number
		manager, _, _ := newTestManager(t, time.Second)
		session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(1), Speed: ptr(bingo.SpeedSlow)})
		require.NoError(t, err)
		board, err := manager.JoinSession(ctx, session.ID)
		require.NoError(t, err)
		_, err = manager.StartGame(ctx, session.ID)
		require.NoError(t, err)
		t.Cleanup(func() { _ = manager.AbortGame(ctx, session.ID) })

		var state *GameState
		require.Eventually(t, func() bool {
			var stateErr error
			state, stateErr = manager.GameState(ctx, session.ID)
			return stateErr == nil && len(state.Called) == 1
		}, 2*time.Second, time.Millisecond)

		number := board.B[0]
		if slices.Contains(state.Called, number) {
			number = board.B[1]
		}

		// When: marking a card number that was never drawn
		_, err = manager.MarkBoard(ctx, session.ID, board.ID, "b", number)

		// Then: it is refused
		require.ErrorIs(t, err, apperror.ErrNumberNotCalled)
	})

	t.Run("Concurrent marks all reach the stored board", func(t *testing.T) {
		// Given: a game that drew every number and a slow board store
		manager, _, boards := newTestManager(t, time.Millisecond)
		boards.saveDelay = 4 * time.Millisecond
		session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(1), Speed: ptr(bingo.SpeedFast)})
		require.NoError(t, err)
		board, err := manager.JoinSession(ctx, session.ID)
		require.NoError(t, err)
		_, err = manager.StartGame(ctx, session.ID)
		require.NoError(t, err)
		waitFinished(t, manager, session.ID)

		game, err := manager.getLiveGame(session.ID)
		require.NoError(t, err)
		require.True(t, game.controller.Exhausted())
		_, card, ok := game.seat(board.ID)
		require.True(t, ok)

		// When: every card number is marked at once
		var wg sync.WaitGroup
		for col := bingo.ColumnB; col <= bingo.ColumnO; col++ {
			for _, number := range card.Column(col) {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, markErr := manager.MarkBoard(ctx, session.ID, board.ID, col.String(), number)
					assert.NoError(t, markErr)
				}()
			}
		}
		wg.Wait()

		// Then: the stored board carries all of the card's marks
		stored, err := manager.GetBoard(ctx, session.ID, board.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Marked, bingo.CountPerColumn*5)
		assert.ElementsMatch(t, card.Marked(), stored.Marked)
		assert.True(t, stored.Bingo)
	})

	t.Run("Unknown column is rejected", func(t *testing.T) {
		manager, _, _ := newTestManager(t, time.Millisecond)

		_, err := manager.MarkBoard(ctx, 1, 1, "x", 5)

		require.ErrorIs(t, err, apperror.ErrInvalidColumn)
	})
}

func TestSessionManager_NextDraw(t *testing.T) {
	ctx := context.Background()

	// Given: a running game with a joined player
	manager, _, _ := newTestManager(t, 20*time.Millisecond)
	session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(1), Speed: ptr(bingo.SpeedSlow)})
	require.NoError(t, err)
	board, err := manager.JoinSession(ctx, session.ID)
	require.NoError(t, err)

	box, err := manager.Subscribe(ctx, session.ID, board.ID)
	require.NoError(t, err)

	_, err = manager.StartGame(ctx, session.ID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.AbortGame(ctx, session.ID) })

	// When: the first draw arrives
	select {
	case <-box.Notify():
	case <-time.After(2 * time.Second):
		t.Fatal("no draw received")
	}

	draw, ok, err := manager.NextDraw(ctx, session.ID, board.ID)

	// Then: it is consumed once
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, bingo.BoardRange.Contains(draw.Number))

	_, again, err := manager.NextDraw(ctx, session.ID, board.ID)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestSessionManager_DeleteSession(t *testing.T) {
	ctx := context.Background()
	manager, _, boards := newTestManager(t, time.Millisecond)

	// Given: a session with a board
	session, err := manager.CreateSession(ctx, SessionParams{})
	require.NoError(t, err)
	_, err = manager.JoinSession(ctx, session.ID)
	require.NoError(t, err)

	// When: deleting the session
	err = manager.DeleteSession(ctx, session.ID)

	// Then: session, boards and live game are gone
	require.NoError(t, err)
	_, err = manager.GetSession(ctx, session.ID)
	require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	assert.Empty(t, boards.boards)
	_, err = manager.GameState(ctx, session.ID)
	require.ErrorIs(t, err, apperror.ErrSessionNotFound)
}

func TestSessionManager_DeleteSessionStorageFailure(t *testing.T) {
	ctx := context.Background()
	manager, _, boards := newTestManager(t, time.Millisecond)

	// Given: a session whose boards cannot be listed
	session, err := manager.CreateSession(ctx, SessionParams{MaxPlayers: ptr(1)})
	require.NoError(t, err)
	boards.listErr = errRedisDown

	// When: deleting the session
	err = manager.DeleteSession(ctx, session.ID)

	// Then: the failure is reported and the session still has its game
	require.ErrorIs(t, err, errRedisDown)
	_, err = manager.GameState(ctx, session.ID)
	require.NoError(t, err)

	started, err := manager.StartGame(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRunning, started.Status)
	require.NoError(t, manager.AbortGame(ctx, session.ID))
}

func TestSessionManager_RecoverSessions(t *testing.T) {
	ctx := context.Background()

	// Given: a stored running session without a live game
	manager, sessions, _ := newTestManager(t, time.Millisecond)
	stale := entity.NewSession(0)
	stale.Status = entity.StatusRunning
	_, err := sessions.CreateSession(ctx, stale)
	require.NoError(t, err)

	// When: recovering
	err = manager.RecoverSessions(ctx)

	// Then: the session is closed as aborted
	require.NoError(t, err)
	stored, err := manager.GetSession(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAborted, stored.Status)
}
