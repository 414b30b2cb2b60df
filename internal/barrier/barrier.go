// internal/barrier/barrier.go
package barrier

import (
	"fmt"
	"sync"
	"time"

	"github.com/tamzrod/barrier-gateway/internal/board"
)

// State is the actuator state of one barrier.
type State int

const (
	StateIdle State = iota
	StateLifting
	StateClosing
	StateStopped
	StateLatchedOpen
	StateLatchedClosed
)

func (s State) String() string {
	switch s {
	case StateLifting:
		return "lifting"
	case StateClosing:
		return "closing"
	case StateStopped:
		return "stopped"
	case StateLatchedOpen:
		return "latched-open"
	case StateLatchedClosed:
		return "latched-closed"
	default:
		return "idle"
	}
}

// Action is a logical barrier command.
type Action string

const (
	ActionLift       Action = "lift"
	ActionClose      Action = "close"
	ActionStop       Action = "stop"
	ActionLatchOpen  Action = "latch-open"
	ActionLatchClose Action = "latch-close"
	ActionUnlatch    Action = "unlatch"
	ActionLock       Action = "lock"
	ActionUnlock     Action = "unlock"
)

// ParseAction maps an action name onto an Action.
func ParseAction(name string) (Action, error) {
	switch Action(name) {
	case ActionLift, ActionClose, ActionStop, ActionLatchOpen,
		ActionLatchClose, ActionUnlatch, ActionLock, ActionUnlock:
		return Action(name), nil
	default:
		return "", &UnknownActionError{Name: name}
	}
}

// UnknownBarrierError means the token resolved to no configured barrier.
type UnknownBarrierError struct {
	Token string
}

func (e *UnknownBarrierError) Error() string {
	return fmt.Sprintf("barrier: unknown barrier %q", e.Token)
}

// UnknownActionError means the action name is not one of the supported
// commands.
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("barrier: unknown action %q", e.Name)
}

// LockedError means the barrier's access-control bit rejected the action.
// Stop and unlatch are never rejected.
type LockedError struct {
	Barrier string
	Action  Action
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("barrier: %s is locked, %s rejected", e.Barrier, e.Action)
}

// Config is the static identity of one barrier.
type Config struct {
	ID        int
	StringID  string
	Name      string
	Board     string
	LiftCoil  uint16
	CloseCoil uint16
	StopCoil  uint16
}

// Barrier is one physical barrier: three coils on an owning board, a
// locked access-control bit and at most one pending auto-release timer.
type Barrier struct {
	id       int
	stringID string
	name     string
	board    *board.Board
	lift     uint16
	close    uint16
	stop     uint16

	mu             sync.Mutex
	state          State
	locked         bool
	lastAction     string
	lastActionTime time.Time
	release        *time.Timer
	releaseGen     uint64
}

func (b *Barrier) ID() int             { return b.id }
func (b *Barrier) StringID() string    { return b.stringID }
func (b *Barrier) Name() string        { return b.name }
func (b *Barrier) Board() *board.Board { return b.board }

func (b *Barrier) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Barrier) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

func (b *Barrier) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

func (b *Barrier) setLocked(v bool) {
	b.mu.Lock()
	b.locked = v
	b.mu.Unlock()
}

// recordAction stamps lastAction/lastActionTime. Called only after the
// writes of a sequence have succeeded.
func (b *Barrier) recordAction(action Action) {
	b.mu.Lock()
	b.lastAction = string(action)
	b.lastActionTime = ctime.Now()
	b.mu.Unlock()
}

// cancelRelease stops and discards the pending auto-release timer, if any.
// Bumping the generation also defuses a timer callback that has already
// fired and is queued behind the board gate the caller holds.
func (b *Barrier) cancelRelease() {
	b.mu.Lock()
	if b.release != nil {
		b.release.Stop()
		b.release = nil
	}
	b.releaseGen++
	b.mu.Unlock()
}

// armRelease replaces the pending timer with a fresh one. Callers hold the
// board gate and have already canceled the previous timer.
func (b *Barrier) armRelease(d time.Duration, fire func(gen uint64)) {
	b.mu.Lock()
	b.releaseGen++
	gen := b.releaseGen
	b.release = time.AfterFunc(d, func() { fire(gen) })
	b.mu.Unlock()
}

// claimRelease reports whether a firing callback with the given generation
// is still the live timer, consuming the handle if so. Called under the
// board gate.
func (b *Barrier) claimRelease(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.releaseGen != gen || b.release == nil {
		return false
	}
	b.release = nil
	return true
}
