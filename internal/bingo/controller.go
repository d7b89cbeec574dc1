package bingo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	defaultPaceUnit      = time.Second
	defaultNotifyTimeout = 2 * time.Second
)

var (
	ErrAlreadyStarted = errors.New("game was already started")
	ErrNotifyTimeout  = errors.New("listener did not accept the draw in time")
	ErrListenerPanic  = errors.New("listener panicked")
)

// State of a Controller. EndedByLimit, EndedByTime and Aborted are terminal.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateEndedByLimit
	StateEndedByTime
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateEndedByLimit:
		return "ended_by_limit"
	case StateEndedByTime:
		return "ended_by_time"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

func (s State) IsTerminal() bool {
	return s == StateEndedByLimit || s == StateEndedByTime || s == StateAborted
}

// Settings are fixed for the lifetime of a game. Zero WinLimit or Duration means unlimited.
type Settings struct {
	Players      int
	WinLimit     int
	Duration     time.Duration
	InitialPause time.Duration
	Speed        Speed
}

// FailureHandler is told about listeners dropped because their notification failed.
type FailureHandler func(listenerID string, err error)

type Option func(*Controller)

func WithSeed(seed int64) Option {
	return func(c *Controller) {
		c.rng = rand.New(rand.NewSource(seed)) //nolint: gosec // game randomness
	}
}

// WithPaceUnit - sets how long one Speed unit lasts.
func WithPaceUnit(unit time.Duration) Option {
	return func(c *Controller) {
		if unit > 0 {
			c.paceUnit = unit
		}
	}
}

func WithNotifyTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.notifyTimeout = timeout
		}
	}
}

func WithFailureHandler(handler FailureHandler) Option {
	return func(c *Controller) {
		c.onFailure = handler
	}
}

// Snapshot is a point-in-time view of a game.
type Snapshot struct {
	ID        string
	State     State
	Speed     Speed
	WinCount  int
	WinLimit  int
	Called    []int
	Listeners int
	EndTime   time.Time
	Exhausted bool
}

// Controller owns the cards and listeners of one game and runs its draw loop.
type Controller struct {
	logger *slog.Logger

	id            string
	settings      Settings
	paceUnit      time.Duration
	notifyTimeout time.Duration
	onFailure     FailureHandler

	rng   *rand.Rand
	cards []*Card
	draws *Sampler

	mu        sync.Mutex
	listeners map[string]DrawListener
	winCount  int
	called    []int
	endTime   time.Time
	exhausted bool

	state   atomic.Int32
	aborted atomic.Bool
	speed   atomic.Int64

	abort chan struct{}
	done  chan struct{}
}

// NewController - deals one card per player and registers the listeners.
// The caller runs Start on its own goroutine.
func NewController(logger *slog.Logger, settings Settings, listeners []DrawListener, opts ...Option) *Controller {
	that := &Controller{
		id:            uuid.NewString(),
		settings:      settings,
		paceUnit:      defaultPaceUnit,
		notifyTimeout: defaultNotifyTimeout,
		listeners:     make(map[string]DrawListener, len(listeners)),
		abort:         make(chan struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(that)
	}

	if that.rng == nil {
		that.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint: gosec // game randomness
	}

	that.logger = logger.With("component", "bingo", "gameID", that.id)

	players := max(settings.Players, 0)
	that.cards = make([]*Card, 0, players)
	for range players {
		that.cards = append(that.cards, GenerateCard(that.rng))
	}

	for _, listener := range listeners {
		that.listeners[listener.ID()] = listener
	}

	that.draws = NewSampler(that.rng, BoardRange)
	that.speed.Store(int64(settings.Speed.Normalize()))

	return that
}

func (that *Controller) ID() string {
	return that.id
}

// Start - runs the draw loop until an end condition fires. It blocks.
func (that *Controller) Start(ctx context.Context) error {
	if !that.state.CompareAndSwap(int32(StateNotStarted), int32(StateRunning)) {
		return ErrAlreadyStarted
	}

	log := that.logger.With("method", "Start")
	log.Info("game started", "cards", len(that.cards), "listeners", len(that.Listeners()),
		"winLimit", that.settings.WinLimit, "duration", that.settings.Duration)

	if !that.wait(ctx, that.settings.InitialPause) {
		that.finish(StateAborted)
		return nil
	}

	if that.settings.Duration > 0 {
		that.mu.Lock()
		that.endTime = time.Now().Add(that.settings.Duration)
		that.mu.Unlock()
	}

	for {
		if state, ended := that.checkEnd(); ended {
			that.finish(state)
			return nil
		}

		number, err := that.draws.Sample()
		if err != nil {
			log.Info("no numbers remain", "error", err)

			that.mu.Lock()
			that.exhausted = true
			that.mu.Unlock()

			that.finish(StateEndedByLimit)
			return nil
		}

		column, _ := BoardRange.ColumnOf(number)
		draw := Draw{Column: column, Number: number}

		that.mu.Lock()
		that.called = append(that.called, number)
		that.mu.Unlock()

		log.Debug("number drawn", "column", column.String(), "number", number)

		that.notifyListeners(draw)

		if that.aborted.Load() {
			that.finish(StateAborted)
			return nil
		}

		if !that.wait(ctx, that.pace()) {
			that.finish(StateAborted)
			return nil
		}
	}
}

func (that *Controller) checkEnd() (State, bool) {
	if that.aborted.Load() {
		return StateAborted, true
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	// the terminal state is stored under mu so ReportWin cannot count past it
	if that.settings.WinLimit > 0 && that.winCount >= that.settings.WinLimit {
		that.state.Store(int32(StateEndedByLimit))
		return StateEndedByLimit, true
	}

	if that.settings.Duration > 0 && !time.Now().Before(that.endTime) {
		that.state.Store(int32(StateEndedByTime))
		return StateEndedByTime, true
	}

	return StateRunning, false
}

func (that *Controller) finish(state State) {
	that.mu.Lock()
	that.state.Store(int32(state))
	called, wins := len(that.called), that.winCount
	that.mu.Unlock()

	close(that.done)

	that.logger.Info("game ended", "state", state.String(), "called", called, "wins", wins)
}

// wait - sleeps for d; false when ctx ended or an abort arrived first.
func (that *Controller) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil && !that.aborted.Load()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-that.abort:
		return false
	}
}

func (that *Controller) pace() time.Duration {
	return time.Duration(that.speed.Load()) * that.paceUnit
}

// notifyListeners - pushes draw to a snapshot of the registered listeners and waits for all of them.
func (that *Controller) notifyListeners(draw Draw) {
	that.mu.Lock()
	listeners := lo.Values(that.listeners)
	that.mu.Unlock()

	var wg sync.WaitGroup
	for _, listener := range listeners {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := that.deliver(listener, draw); err != nil {
				that.dropListener(listener.ID(), err)
			}
		}()
	}
	wg.Wait()
}

func (that *Controller) deliver(listener DrawListener, draw Draw) error {
	result := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("%w: %v", ErrListenerPanic, r)
			}
		}()
		result <- listener.NumberDrawn(draw)
	}()

	timer := time.NewTimer(that.notifyTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		return ErrNotifyTimeout
	}
}

func (that *Controller) dropListener(listenerID string, cause error) {
	that.mu.Lock()
	_, ok := that.listeners[listenerID]
	delete(that.listeners, listenerID)
	that.mu.Unlock()

	if !ok {
		return
	}

	that.logger.Warn("listener dropped", "listenerID", listenerID, "error", cause)

	if that.onFailure != nil {
		that.onFailure(listenerID, cause)
	}
}

// ReportWin - accepts a win for the listener and stops notifying it.
// Unknown or already removed listeners are ignored.
func (that *Controller) ReportWin(listenerID string) bool {
	that.mu.Lock()
	if that.State().IsTerminal() {
		that.mu.Unlock()
		return false
	}

	if _, ok := that.listeners[listenerID]; !ok {
		that.mu.Unlock()
		return false
	}

	delete(that.listeners, listenerID)
	that.winCount++
	wins := that.winCount
	that.mu.Unlock()

	that.logger.Info("win accepted", "listenerID", listenerID, "wins", wins)

	return true
}

// Abort - asks the loop to stop at its next check point or pending wait.
func (that *Controller) Abort() {
	if that.aborted.CompareAndSwap(false, true) {
		close(that.abort)
		that.logger.Info("abort requested")
	}
}

// AdjustSpeed - changes the pace of the next waits; unknown speeds become SpeedNormal.
func (that *Controller) AdjustSpeed(speed Speed) Speed {
	effective := speed.Normalize()
	that.speed.Store(int64(effective))
	return effective
}

func (that *Controller) Speed() Speed {
	return Speed(that.speed.Load())
}

func (that *Controller) State() State {
	return State(that.state.Load())
}

// Done - closed once the game reaches a terminal state.
func (that *Controller) Done() <-chan struct{} {
	return that.done
}

func (that *Controller) WinCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.winCount
}

func (that *Controller) CalledNumbers() []int {
	that.mu.Lock()
	defer that.mu.Unlock()
	return slices.Clone(that.called)
}

func (that *Controller) EndTime() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.endTime
}

func (that *Controller) Exhausted() bool {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.exhausted
}

// Listeners - ids of the listeners still receiving draws, sorted.
func (that *Controller) Listeners() []string {
	that.mu.Lock()
	ids := lo.Keys(that.listeners)
	that.mu.Unlock()

	slices.Sort(ids)
	return ids
}

func (that *Controller) Cards() []*Card {
	return slices.Clone(that.cards)
}

func (that *Controller) Card(i int) (*Card, bool) {
	if i < 0 || i >= len(that.cards) {
		return nil, false
	}
	return that.cards[i], true
}

func (that *Controller) Snapshot() Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return Snapshot{
		ID:        that.id,
		State:     that.State(),
		Speed:     that.Speed(),
		WinCount:  that.winCount,
		WinLimit:  that.settings.WinLimit,
		Called:    slices.Clone(that.called),
		Listeners: len(that.listeners),
		EndTime:   that.endTime,
		Exhausted: that.exhausted,
	}
}
