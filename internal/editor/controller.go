package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Dispatch errors
var (
	// ErrPublish means the transition was applied but the publication could not
	// be delivered.
	ErrPublish = errors.New("failed to publish boundary")
	// ErrSave means the new state could not be stored. The transition is dropped
	// and nothing is published.
	ErrSave = errors.New("failed to save boundary state")
)

// Saver stores a state before its publication goes out.
type Saver interface {
	Save(ctx context.Context, sessionID string, state State) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, sessionID string, state State) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, sessionID string, state State) error {
	return f(ctx, sessionID, state)
}

// Publisher delivers publications to the owning form.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, pub Publication) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, sessionID string, pub Publication) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, sessionID string, pub Publication) error {
	return f(ctx, sessionID, pub)
}

// Controller owns one editing session. It serializes events and stamps them with
// the current time. Each new state is handed to its Saver, and only then is the
// publication forwarded to its Publisher.
type Controller struct {
	publisher Publisher
	saver     Saver
	now       func() time.Time
	id        string
	state     State
	reducer   Reducer
	mu        sync.Mutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithPublisher sets where publications are delivered.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithSaver sets where states are stored after every accepted event.
func WithSaver(s Saver) Option {
	return func(c *Controller) {
		c.saver = s
	}
}

// NewController creates a controller for session id starting from initial.
func NewController(id string, reducer Reducer, initial State, opts ...Option) *Controller {
	c := &Controller{
		id:      id,
		reducer: reducer,
		state:   initial.Clone(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.id
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Dispatch applies one event. Events without a timestamp are stamped with the
// controller's clock. A rejected event leaves the state unchanged and returns the
// reducer error. A saving failure also leaves the state unchanged, publishes
// nothing and returns ErrSave. A publishing failure keeps the new state and
// returns ErrPublish.
func (c *Controller) Dispatch(ctx context.Context, e Event) (State, *Publication, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.At.IsZero() {
		e.At = c.now()
	}

	next, pub, err := c.reducer.Reduce(c.state, e)
	if err != nil {
		return c.state.Clone(), nil, err
	}
	if c.saver != nil {
		if err := c.saver.Save(ctx, c.id, next.Clone()); err != nil {
			return c.state.Clone(), nil, fmt.Errorf("%w: %w", ErrSave, err)
		}
	}
	c.state = next

	if pub != nil && c.publisher != nil {
		delivered := *pub
		delivered.Ring = pub.Ring.Clone()
		if err := c.publisher.Publish(ctx, c.id, delivered); err != nil {
			return c.state.Clone(), pub, fmt.Errorf("%w: %w", ErrPublish, err)
		}
	}

	return c.state.Clone(), pub, nil
}
