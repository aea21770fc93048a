// Package mutation implements optimistic updates: the proposed value becomes visible at once,
// the commit runs in the background and a failure restores the authoritative state.
//
// A Controller moves through Idle -> Optimistic -> Confirmed -> Idle on success
// and Idle -> Optimistic -> Reverting -> Idle on failure.
package mutation

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
)

type State int

const (
	Idle State = iota
	Optimistic
	Confirmed
	Reverting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Optimistic:
		return "optimistic"
	case Confirmed:
		return "confirmed"
	case Reverting:
		return "reverting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrInFlight = errors.New("a mutation is already in flight")
	ErrNoDraft  = errors.New("nothing to retry")
)

// Error is returned by Submit when the commit failed.
// The visible value has already been restored when it is returned.
type Error struct {
	Target string
	Err    error // commit error

	// RefetchErr is set when the authoritative state could not be reloaded
	// and the value from before the mutation was restored instead.
	RefetchErr error
}

func (e *Error) Error() string {
	return fmt.Sprintf("saving %s: %v", e.Target, e.Err)
}

func (e *Error) Cause() error  { return e.Err }
func (e *Error) Unwrap() error { return e.Err }

type Config[T any] struct {
	// Target names the mutated entity in messages, e.g. "grade".
	Target string

	// Commit sends the full proposed value. It may be called again with the same value on Retry.
	Commit func(ctx context.Context, proposed T) error

	// Invalidate drops every cached read affected by the mutation. It runs after both outcomes.
	Invalidate func()

	// Refetch loads the authoritative value. It is required to revert and optional on success.
	Refetch          func(ctx context.Context) (T, error)
	RefetchOnSuccess bool

	Notifier       core.Notifier
	SuccessMessage string
	Describe       func(err error) string // turns a commit error into a user facing reason

	Logger       core.Logger
	OnTransition func(from, to State)
}

// pending lives for the duration of one Submit.
type pending[T any] struct {
	previous T
	proposed T
}

type Controller[T any] struct {
	conf Config[T]

	mu      sync.Mutex
	state   State
	current T
	draft   *T
}

func New[T any](initial T, conf Config[T]) *Controller[T] {
	if conf.Target == "" {
		conf.Target = "changes"
	}
	if conf.Notifier == nil {
		conf.Notifier = core.NopNotifier()
	}
	if conf.Logger == nil {
		conf.Logger = core.NopLogger()
	}
	if conf.SuccessMessage == "" {
		conf.SuccessMessage = fmt.Sprintf("%s saved", conf.Target)
	}
	if conf.Describe == nil {
		conf.Describe = func(err error) string { return err.Error() }
	}
	return &Controller[T]{conf: conf, current: initial}
}

// Value returns the value the user should currently see.
func (c *Controller[T]) Value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a mutation is in flight; new submissions are refused meanwhile.
func (c *Controller[T]) Busy() bool {
	return c.State() != Idle
}

// Draft returns the proposal of the last failed submission, if it has not been retried or replaced.
func (c *Controller[T]) Draft() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		var zero T
		return zero, false
	}
	return *c.draft, true
}

// Load replaces the visible value with freshly read data. It is ignored while a mutation is in flight.
func (c *Controller[T]) Load(value T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return false
	}
	c.current = value
	return true
}

// Submit makes proposed visible immediately and commits it.
// It returns ErrInFlight, without side effects, if another submission has not completed yet.
func (c *Controller[T]) Submit(ctx context.Context, proposed T) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrInFlight
	}
	p := pending[T]{previous: c.current, proposed: proposed}
	c.current = proposed
	c.draft = nil
	c.state = Optimistic
	c.mu.Unlock()
	c.transitioned(Idle, Optimistic)

	if err := c.conf.Commit(ctx, proposed); err != nil {
		return c.revert(ctx, p, err)
	}
	c.confirm(ctx)
	return nil
}

// Retry resubmits the draft left by the last failed submission.
func (c *Controller[T]) Retry(ctx context.Context) error {
	proposed, ok := c.Draft()
	if !ok {
		return ErrNoDraft
	}
	return c.Submit(ctx, proposed)
}

func (c *Controller[T]) confirm(ctx context.Context) {
	c.setState(Optimistic, Confirmed)
	c.invalidate()

	if c.conf.RefetchOnSuccess && c.conf.Refetch != nil {
		if v, err := c.conf.Refetch(ctx); err != nil {
			// the commit succeeded, keep showing what was sent
			c.conf.Logger.Warn(fmt.Sprintf("refetching %s after save", c.conf.Target), err)
		} else {
			c.setValue(v)
		}
	}

	c.conf.Notifier.Success(c.conf.SuccessMessage)
	c.setState(Confirmed, Idle)
}

func (c *Controller[T]) revert(ctx context.Context, p pending[T], cause error) error {
	c.setState(Optimistic, Reverting)
	c.invalidate()

	mErr := &Error{Target: c.conf.Target, Err: cause}
	restored := p.previous
	if c.conf.Refetch != nil {
		if v, err := c.conf.Refetch(ctx); err != nil {
			mErr.RefetchErr = err
			c.conf.Logger.Warn(fmt.Sprintf("refetching %s after failed save", c.conf.Target), err)
		} else {
			restored = v
		}
	}

	c.mu.Lock()
	c.current = restored
	c.draft = &p.proposed
	c.mu.Unlock()

	c.conf.Notifier.Error(fmt.Sprintf("Could not save %s: %s", c.conf.Target, c.conf.Describe(cause)))
	c.setState(Reverting, Idle)
	return mErr
}

func (c *Controller[T]) invalidate() {
	if c.conf.Invalidate != nil {
		c.conf.Invalidate()
	}
}

func (c *Controller[T]) setValue(v T) {
	c.mu.Lock()
	c.current = v
	c.mu.Unlock()
}

func (c *Controller[T]) setState(from, to State) {
	c.mu.Lock()
	c.state = to
	c.mu.Unlock()
	c.transitioned(from, to)
}

func (c *Controller[T]) transitioned(from, to State) {
	if c.conf.OnTransition != nil {
		c.conf.OnTransition(from, to)
	}
}
