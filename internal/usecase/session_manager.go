package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/bingo"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
)

const persistTimeout = 5 * time.Second

type sessionService interface {
	CreateSession(ctx context.Context, session *entity.Session) (*entity.Session, error)
	UpdateSession(ctx context.Context, session *entity.Session) error
	DeleteSession(ctx context.Context, id int64) error

	GetSessionByID(ctx context.Context, id int64) (*entity.Session, error)
	ListSessions(ctx context.Context) ([]*entity.Session, error)
	ListPublicSessions(ctx context.Context) ([]*entity.Session, error)
}

type boardService interface {
	SaveBoard(ctx context.Context, board *entity.Board) error
	GetBoard(ctx context.Context, sessionID int64, id int) (*entity.Board, error)
	ListBoards(ctx context.Context, sessionID int64) ([]*entity.Board, error)
	DeleteBoard(ctx context.Context, sessionID int64, id int) error
}

// GameOptions are the server-wide knobs applied to every new game.
type GameOptions struct {
	InitialPause      time.Duration
	PaceUnit          time.Duration
	NotifyTimeout     time.Duration
	DefaultMaxPlayers int
}

// SessionParams - nil fields keep their current (or default) value.
type SessionParams struct {
	Name        *string
	Desc        *string
	Private     *bool
	MaxPlayers  *int
	WinLimit    *int
	DurationSec *int
	Speed       *bingo.Speed
}

func (that SessionParams) changesGame() bool {
	return that.MaxPlayers != nil || that.WinLimit != nil || that.DurationSec != nil
}

func (that SessionParams) apply(session *entity.Session) {
	if that.Name != nil {
		session.Name = *that.Name
	}
	if that.Desc != nil {
		session.Desc = *that.Desc
	}
	if that.Private != nil {
		session.Private = *that.Private
	}
	if that.MaxPlayers != nil && *that.MaxPlayers > 0 {
		session.MaxPlayers = *that.MaxPlayers
	}
	if that.WinLimit != nil {
		session.WinLimit = max(*that.WinLimit, 0)
	}
	if that.DurationSec != nil {
		session.DurationSec = max(*that.DurationSec, 0)
	}
	if that.Speed != nil {
		session.Speed = int(that.Speed.Normalize())
	}
}

// MarkResult is the outcome of a mark request.
type MarkResult struct {
	Board    *entity.Board `json:"board"`
	Marked   bool          `json:"marked"`
	Bingo    bool          `json:"bingo"`
	Accepted bool          `json:"accepted"`
}

// GameState is a read-only view of a session's game.
type GameState struct {
	SessionID int64      `json:"session_id"`
	GameID    string     `json:"game_id"`
	Status    string     `json:"status"`
	State     string     `json:"state"`
	Speed     string     `json:"speed"`
	WinCount  int        `json:"win_count"`
	WinLimit  int        `json:"win_limit"`
	Called    []int      `json:"called"`
	Listeners int        `json:"listeners"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Exhausted bool       `json:"exhausted"`
}

// liveGame is the in-memory part of a session: the controller and one mailbox per seat.
type liveGame struct {
	controller *bingo.Controller
	seats      []*bingo.Mailbox

	// serialises mark, sync and save of the game's boards
	marks sync.Mutex
}

func (that *liveGame) seat(playerNum int) (*bingo.Mailbox, *bingo.Card, bool) {
	if playerNum < 1 || playerNum > len(that.seats) {
		return nil, nil, false
	}

	card, ok := that.controller.Card(playerNum - 1)
	if !ok {
		return nil, nil, false
	}

	return that.seats[playerNum-1], card, true
}

type SessionManager struct {
	logger *slog.Logger

	// games outlive the requests that start them
	ctx     context.Context
	options GameOptions

	sessionService sessionService
	boardService   boardService

	// serialises read-modify-write of session records
	lock sync.Mutex

	mu    sync.RWMutex
	games map[int64]*liveGame
}

func NewSessionManager(ctx context.Context, logger *slog.Logger, sessionService sessionService, boardService boardService, options GameOptions) *SessionManager {
	if options.DefaultMaxPlayers <= 0 {
		options.DefaultMaxPlayers = entity.DefaultMaxPlayers
	}

	return &SessionManager{
		logger:  logger.With("component", "sessionManager"),
		ctx:     ctx,
		options: options,

		sessionService: sessionService,
		boardService:   boardService,

		games: make(map[int64]*liveGame),
	}
}

// CreateSession - stores a new session and deals cards for all of its seats.
func (that *SessionManager) CreateSession(ctx context.Context, params SessionParams) (*entity.Session, error) {
	session := entity.NewSession(0)
	session.MaxPlayers = that.options.DefaultMaxPlayers
	session.Speed = int(bingo.SpeedNormal)
	params.apply(session)

	game := that.newLiveGame(session)
	session.GameID = game.controller.ID()

	session, err := that.sessionService.CreateSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed create session: %w", err)
	}

	that.mu.Lock()
	that.games[session.ID] = game
	that.mu.Unlock()

	that.logger.Info("session created", "sessionID", session.ID, "gameID", session.GameID, "maxPlayers", session.MaxPlayers)

	return session, nil
}

func (that *SessionManager) newLiveGame(session *entity.Session) *liveGame {
	seats := make([]*bingo.Mailbox, session.MaxPlayers)
	listeners := make([]bingo.DrawListener, session.MaxPlayers)
	for i := range seats {
		seats[i] = bingo.NewMailboxWithID(fmt.Sprintf("seat-%d", i+1))
		listeners[i] = seats[i]
	}

	controller := bingo.NewController(that.logger, bingo.Settings{
		Players:      session.MaxPlayers,
		WinLimit:     session.WinLimit,
		Duration:     time.Duration(session.DurationSec) * time.Second,
		InitialPause: that.options.InitialPause,
		Speed:        bingo.Speed(session.Speed),
	}, listeners,
		bingo.WithPaceUnit(that.options.PaceUnit),
		bingo.WithNotifyTimeout(that.options.NotifyTimeout),
		bingo.WithFailureHandler(func(listenerID string, err error) {
			that.logger.Warn("seat stopped receiving draws", "seat", listenerID, "error", err)
		}),
	)

	return &liveGame{
		controller: controller,
		seats:      seats,
	}
}

func (that *SessionManager) ListPublicSessions(ctx context.Context) ([]*entity.Session, error) {
	sessions, err := that.sessionService.ListPublicSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed list sessions: %w", err)
	}

	return sessions, nil
}

func (that *SessionManager) GetSession(ctx context.Context, id int64) (*entity.Session, error) {
	return that.getSessionByID(ctx, id)
}

// UpdateSession - edits a waiting session. Game settings can only change before anyone joined.
func (that *SessionManager) UpdateSession(ctx context.Context, id int64, params SessionParams) (*entity.Session, error) {
	that.lock.Lock()
	defer that.lock.Unlock()

	session, err := that.getSessionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = session.ConfirmWaitingState(); err != nil {
		return nil, err
	}

	if params.changesGame() && session.CurPlayers > 0 {
		return nil, apperror.ErrPlayersJoined
	}

	params.apply(session)

	game, err := that.getLiveGame(id)
	if err != nil {
		return nil, err
	}

	if params.changesGame() {
		game.controller.Abort()
		game = that.newLiveGame(session)
		session.GameID = game.controller.ID()

		that.mu.Lock()
		that.games[id] = game
		that.mu.Unlock()
	} else if params.Speed != nil {
		game.controller.AdjustSpeed(bingo.Speed(session.Speed))
	}

	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession - removes the session with its boards, then aborts its game.
func (that *SessionManager) DeleteSession(ctx context.Context, id int64) error {
	that.lock.Lock()
	defer that.lock.Unlock()

	if _, err := that.getSessionByID(ctx, id); err != nil {
		return err
	}

	boards, err := that.boardService.ListBoards(ctx, id)
	if err != nil {
		return fmt.Errorf("failed list boards: %w", err)
	}

	for _, board := range boards {
		if err = that.boardService.DeleteBoard(ctx, id, board.ID); err != nil && !errors.Is(err, apperror.ErrBoardNotFound) {
			return fmt.Errorf("failed delete board: %w", err)
		}
	}

	if err = that.sessionService.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed delete session: %w", err)
	}

	that.mu.Lock()
	game, ok := that.games[id]
	delete(that.games, id)
	that.mu.Unlock()

	if ok {
		game.controller.Abort()
	}

	that.logger.Info("session deleted", "sessionID", id)

	return nil
}

// JoinSession - takes the next free seat and stores its board.
func (that *SessionManager) JoinSession(ctx context.Context, sessionID int64) (*entity.Board, error) {
	that.lock.Lock()
	defer that.lock.Unlock()

	session, err := that.getSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.IsFinished() {
		return nil, apperror.ErrGameFinished
	}

	if session.IsFull() {
		return nil, apperror.ErrSessionFull
	}

	game, err := that.getLiveGame(sessionID)
	if err != nil {
		return nil, err
	}

	playerNum := session.CurPlayers + 1
	_, card, ok := game.seat(playerNum)
	if !ok {
		return nil, apperror.ErrSessionFull
	}

	board := entity.NewBoard(playerNum, sessionID, card)
	if err = that.boardService.SaveBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("failed save board: %w", err)
	}

	session.CurPlayers = playerNum
	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	that.logger.Info("player joined", "sessionID", sessionID, "player", playerNum)

	return board, nil
}

func (that *SessionManager) GetBoard(ctx context.Context, sessionID int64, boardID int) (*entity.Board, error) {
	board, err := that.boardService.GetBoard(ctx, sessionID, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed get board: %w", err)
	}

	return board, nil
}

func (that *SessionManager) ListBoards(ctx context.Context, sessionID int64) ([]*entity.Board, error) {
	boards, err := that.boardService.ListBoards(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed list boards: %w", err)
	}

	return boards, nil
}

// LeaveSession - deletes the board. The seat is not reused and keeps receiving draws nobody reads.
func (that *SessionManager) LeaveSession(ctx context.Context, sessionID int64, boardID int) error {
	if err := that.boardService.DeleteBoard(ctx, sessionID, boardID); err != nil {
		return fmt.Errorf("failed leave session: %w", err)
	}

	that.logger.Info("player left", "sessionID", sessionID, "player", boardID)

	return nil
}

// StartGame - runs the draw loop in the background until the game ends.
func (that *SessionManager) StartGame(ctx context.Context, sessionID int64) (*entity.Session, error) {
	that.lock.Lock()
	defer that.lock.Unlock()

	session, err := that.getSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err = session.ConfirmWaitingState(); err != nil {
		return nil, err
	}

	game, err := that.getLiveGame(sessionID)
	if err != nil {
		return nil, err
	}

	session.Status = entity.StatusRunning
	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	go func() {
		if runErr := game.controller.Start(that.ctx); runErr != nil {
			that.logger.Error("game loop failed", "sessionID", sessionID, "error", runErr)
		}
	}()

	go that.watchGame(sessionID, game.controller)

	that.logger.Info("game started", "sessionID", sessionID, "gameID", game.controller.ID())

	return session, nil
}

// watchGame - stores the final status once the controller is done.
func (that *SessionManager) watchGame(sessionID int64, controller *bingo.Controller) {
	log := that.logger.With("method", "watchGame", "sessionID", sessionID)

	<-controller.Done()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(that.ctx), persistTimeout)
	defer cancel()

	that.lock.Lock()
	defer that.lock.Unlock()

	session, err := that.getSessionByID(ctx, sessionID)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		log.Debug("session deleted before its game ended")
		return
	}

	if err != nil {
		log.Error("failed to load finished session", "error", err)
		return
	}

	if session.GameID != controller.ID() {
		return
	}

	state := controller.State()

	session.Status = entity.StatusFinished
	if state == bingo.StateAborted {
		session.Status = entity.StatusAborted
	}
	session.Result = state.String()

	if err = that.updateSession(ctx, session); err != nil {
		log.Error("failed to store finished session", "error", err)
		return
	}

	log.Info("game finished", "state", state.String(), "wins", controller.WinCount())
}

// AbortGame - stops a waiting or running game.
func (that *SessionManager) AbortGame(ctx context.Context, sessionID int64) error {
	that.lock.Lock()
	defer that.lock.Unlock()

	session, err := that.getSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.IsFinished() {
		return apperror.ErrGameFinished
	}

	game, err := that.getLiveGame(sessionID)
	if err != nil {
		return err
	}

	game.controller.Abort()

	// a running game is finalised by its watcher
	if session.IsWaiting() {
		session.Status = entity.StatusAborted
		session.Result = bingo.StateAborted.String()
		if err = that.updateSession(ctx, session); err != nil {
			return err
		}
	}

	that.logger.Info("game aborted", "sessionID", sessionID)

	return nil
}

// AdjustSpeed - returns the speed actually applied.
func (that *SessionManager) AdjustSpeed(ctx context.Context, sessionID int64, speed bingo.Speed) (bingo.Speed, error) {
	that.lock.Lock()
	defer that.lock.Unlock()

	session, err := that.getSessionByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	if session.IsFinished() {
		return 0, apperror.ErrGameFinished
	}

	game, err := that.getLiveGame(sessionID)
	if err != nil {
		return 0, err
	}

	effective := game.controller.AdjustSpeed(speed)

	session.Speed = int(effective)
	if err = that.updateSession(ctx, session); err != nil {
		return 0, err
	}

	return effective, nil
}

func (that *SessionManager) GameState(ctx context.Context, sessionID int64) (*GameState, error) {
	session, err := that.getSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	game, err := that.getLiveGame(sessionID)
	if err != nil {
		return nil, err
	}

	snapshot := game.controller.Snapshot()

	state := &GameState{
		SessionID: sessionID,
		GameID:    snapshot.ID,
		Status:    session.Status,
		State:     snapshot.State.String(),
		Speed:     snapshot.Speed.String(),
		WinCount:  snapshot.WinCount,
		WinLimit:  snapshot.WinLimit,
		Called:    snapshot.Called,
		Listeners: snapshot.Listeners,
		Exhausted: snapshot.Exhausted,
	}

	if !snapshot.EndTime.IsZero() {
		state.EndTime = &snapshot.EndTime
	}

	return state, nil
}

// NextDraw - consumes the seat's pending draw; false when nothing new was drawn.
func (that *SessionManager) NextDraw(ctx context.Context, sessionID int64, boardID int) (bingo.Draw, bool, error) {
	seat, _, err := that.joinedSeat(ctx, sessionID, boardID)
	if err != nil {
		return bingo.Draw{}, false, err
	}

	draw, ok := seat.Consume()

	return draw, ok, nil
}

// Subscribe - the seat's mailbox, for transports that push draws.
func (that *SessionManager) Subscribe(ctx context.Context, sessionID int64, boardID int) (*bingo.Mailbox, error) {
	seat, _, err := that.joinedSeat(ctx, sessionID, boardID)
	if err != nil {
		return nil, err
	}

	return seat, nil
}

// MarkBoard - marks a called number on the card and claims the win once the card has bingo.
func (that *SessionManager) MarkBoard(ctx context.Context, sessionID int64, boardID int, column string, number int) (*MarkResult, error) {
	col, ok := bingo.ParseColumn(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperror.ErrInvalidColumn, column)
	}

	game, err := that.getLiveGame(sessionID)
	if err != nil {
		return nil, err
	}

	if game.controller.State() == bingo.StateNotStarted {
		return nil, apperror.ErrGameIsNotStarted
	}

	game.marks.Lock()
	defer game.marks.Unlock()

	board, err := that.GetBoard(ctx, sessionID, boardID)
	if err != nil {
		return nil, err
	}

	seat, card, ok := game.seat(boardID)
	if !ok {
		return nil, apperror.ErrBoardNotFound
	}

	if !slices.Contains(game.controller.CalledNumbers(), number) {
		return nil, fmt.Errorf("%w: %d", apperror.ErrNumberNotCalled, number)
	}

	marked := card.Mark(col, number)

	board.SyncMarks(card)
	if err = that.boardService.SaveBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("failed save board: %w", err)
	}

	result := &MarkResult{
		Board:  board,
		Marked: marked,
		Bingo:  card.HasBingo(),
	}

	if result.Bingo {
		result.Accepted = game.controller.ReportWin(seat.ID())
		if result.Accepted {
			that.logger.Info("bingo", "sessionID", sessionID, "player", boardID)
		}
	}

	return result, nil
}

// RecoverSessions - games live in memory only, so sessions left open by a previous run are closed.
func (that *SessionManager) RecoverSessions(ctx context.Context) error {
	log := that.logger.With("method", "RecoverSessions")

	sessions, err := that.sessionService.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed list sessions: %w", err)
	}

	that.lock.Lock()
	defer that.lock.Unlock()

	for _, session := range sessions {
		if session.IsFinished() {
			continue
		}

		if _, err = that.getLiveGame(session.ID); err == nil {
			continue
		}

		session.Status = entity.StatusAborted
		session.Result = bingo.StateAborted.String()
		if err = that.updateSession(ctx, session); err != nil {
			return err
		}

		log.Info("stale session aborted", "sessionID", session.ID)
	}

	return nil
}

func (that *SessionManager) joinedSeat(ctx context.Context, sessionID int64, boardID int) (*bingo.Mailbox, *bingo.Card, error) {
	game, err := that.getLiveGame(sessionID)
	if err != nil {
		return nil, nil, err
	}

	if _, err = that.GetBoard(ctx, sessionID, boardID); err != nil {
		return nil, nil, err
	}

	seat, card, ok := game.seat(boardID)
	if !ok {
		return nil, nil, apperror.ErrBoardNotFound
	}

	return seat, card, nil
}

func (that *SessionManager) getLiveGame(sessionID int64) (*liveGame, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	game, ok := that.games[sessionID]
	if !ok {
		return nil, apperror.ErrGameNotFound
	}

	return game, nil
}

func (that *SessionManager) getSessionByID(ctx context.Context, id int64) (*entity.Session, error) {
	session, err := that.sessionService.GetSessionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (that *SessionManager) updateSession(ctx context.Context, session *entity.Session) error {
	if err := that.sessionService.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}
