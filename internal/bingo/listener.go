package bingo

import (
	"sync"

	"github.com/google/uuid"
)

// Draw is a single number emitted by the game together with its column.
type Draw struct {
	Column Column `json:"column"`
	Number int    `json:"number"`
}

// DrawListener receives the live draw stream for one player or observer.
type DrawListener interface {
	ID() string
	// NumberDrawn is called by the controller for every draw. An error drops the listener.
	NumberDrawn(draw Draw) error
	Pending() bool
	Consume() (Draw, bool)
}

// Mailbox holds at most one pending draw; a newer draw replaces an unconsumed one.
type Mailbox struct {
	id string

	mu      sync.Mutex
	last    Draw
	pending bool

	notify chan struct{}
}

func NewMailbox() *Mailbox {
	return NewMailboxWithID(uuid.NewString())
}

func NewMailboxWithID(id string) *Mailbox {
	return &Mailbox{
		id:     id,
		notify: make(chan struct{}, 1),
	}
}

func (that *Mailbox) ID() string {
	return that.id
}

func (that *Mailbox) NumberDrawn(draw Draw) error {
	that.mu.Lock()
	that.last = draw
	that.pending = true
	that.mu.Unlock()

	select {
	case that.notify <- struct{}{}:
	default:
	}

	return nil
}

func (that *Mailbox) Pending() bool {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.pending
}

// Consume - returns the pending draw once; false when nothing is pending.
func (that *Mailbox) Consume() (Draw, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.pending {
		return Draw{}, false
	}

	that.pending = false
	return that.last, true
}

// Last - the most recent draw, consumed or not.
func (that *Mailbox) Last() (Draw, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.last == (Draw{}) {
		return Draw{}, false
	}
	return that.last, true
}

// Notify - signals (coalesced) whenever a draw arrives.
func (that *Mailbox) Notify() <-chan struct{} {
	return that.notify
}
