package state

import (
	"context"
	"errors"
	"sync"

	"ms-events/internal/models"
)

var ErrClosed = errors.New("state container closed")

type request struct {
	action Action
	reply  chan result
}

type result struct {
	state State
	err   error
}

// Container owns a State in a single goroutine. Every transition goes
// through Dispatch, so observers never see a half-applied action.
type Container struct {
	requests chan request
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

func NewContainer() *Container {
	c := &Container{
		requests: make(chan request),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go c.run(State{})
	return c
}

func (c *Container) run(s State) {
	defer close(c.stopped)
	for {
		select {
		case req := <-c.requests:
			if req.action == nil {
				req.reply <- result{state: snapshot(s)}
				continue
			}
			next, err := Reduce(s, req.action)
			s = next
			req.reply <- result{state: snapshot(s), err: err}
		case <-c.done:
			return
		}
	}
}

// Dispatch applies a and returns the resulting state
func (c *Container) Dispatch(ctx context.Context, a Action) (State, error) {
	if a == nil {
		return State{}, ErrUnknownAction
	}
	return c.send(ctx, a)
}

// Snapshot returns a copy of the current state
func (c *Container) Snapshot(ctx context.Context) (State, error) {
	return c.send(ctx, nil)
}

func (c *Container) send(ctx context.Context, a Action) (State, error) {
	req := request{action: a, reply: make(chan result, 1)}
	select {
	case c.requests <- req:
	case <-c.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	res := <-req.reply
	return res.state, res.err
}

func (c *Container) Close() {
	c.once.Do(func() { close(c.done) })
	<-c.stopped
}

func snapshot(s State) State {
	out := s
	out.Events = models.CloneEvents(s.Events)
	if s.Assets != nil {
		out.Assets = append(s.Assets[:0:0], s.Assets...)
	}
	return out
}
