package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maago/notify-bridge/errors"
	"github.com/maago/notify-bridge/registry"
	"github.com/maago/notify-bridge/variant"
)

// Handler receives decoded events for one registration. HandleEvent is
// called from a dedicated worker goroutine, one event at a time, in arrival
// order; it must not call back into the engine synchronously.
type Handler interface {
	HandleEvent(ctx context.Context, ev *variant.Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev *variant.Event)

func (f HandlerFunc) HandleEvent(ctx context.Context, ev *variant.Event) { f(ctx, ev) }

// Policy selects what Offer does when a token's queue is full. The engine
// thread can never be blocked indefinitely, so every policy bounds the wait.
type Policy uint8

const (
	// DropNewest rejects the incoming event. The events the handler has
	// already seen keep their relative order intact.
	DropNewest Policy = iota

	// DropOldest evicts queued events to make room for the incoming one.
	DropOldest

	// Block waits up to the configured timeout for space, then drops the
	// incoming event.
	Block
)

func (p Policy) String() string {
	switch p {
	case DropNewest:
		return "drop_newest"
	case DropOldest:
		return "drop_oldest"
	case Block:
		return "block"
	}
	return "unknown"
}

// ParsePolicy parses a policy name as used in configuration.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "drop_newest", "":
		return DropNewest, nil
	case "drop_oldest":
		return DropOldest, nil
	case "block":
		return Block, nil
	}
	return DropNewest, errors.InvalidInput(errors.PhaseDispatch, "unknown overflow policy "+s)
}

const (
	// DefaultCapacity is the per-token queue depth.
	DefaultCapacity = 256

	// DefaultBlockTimeout bounds the wait under the Block policy.
	DefaultBlockTimeout = 50 * time.Millisecond
)

// Diagnostic is the explicit signal surfaced when the pipeline absorbs a
// failure instead of propagating it: malformed envelopes, stale tokens,
// queue overflow.
type Diagnostic struct {
	Err     *errors.Error
	Token   registry.Token
	Dropped int
}

// DiagnosticFunc receives diagnostics. It is called from trampoline and
// worker goroutines and must be safe for concurrent use.
type DiagnosticFunc func(Diagnostic)

// Options configures a Sink. Zero values select the defaults.
type Options struct {
	OnDiagnostic DiagnosticFunc
	Capacity     int
	BlockTimeout time.Duration
	Policy       Policy
}

// Sink delivers resolved events to handlers, decoupling the engine's
// calling thread from consumer processing. Each open token owns a bounded
// FIFO queue drained by a single worker goroutine, so per-token order is
// preserved end-to-end; nothing is guaranteed across tokens.
type Sink struct {
	queues map[registry.Token]*queue
	opts   Options
	mu     sync.RWMutex
	closed bool
}

type queue struct {
	handler Handler
	ch      chan *variant.Event
	quit    chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewSink creates a sink with the given options.
func NewSink(opts Options) *Sink {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.BlockTimeout <= 0 {
		opts.BlockTimeout = DefaultBlockTimeout
	}
	return &Sink{
		queues: make(map[registry.Token]*queue),
		opts:   opts,
	}
}

// Open starts a delivery worker for token.
func (s *Sink) Open(token registry.Token, handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Closed(errors.PhaseDispatch, "sink")
	}
	if _, dup := s.queues[token]; dup {
		return errors.InvalidInput(errors.PhaseDispatch, "token already open")
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &queue{
		handler: handler,
		ch:      make(chan *variant.Event, s.opts.Capacity),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	s.queues[token] = q
	go s.drain(ctx, token, q)
	return nil
}

// Close stops delivery for token: queued but undelivered events are
// dropped, and Close blocks until the in-flight handler call, if any, has
// returned. Closing an unknown token is a no-op.
func (s *Sink) Close(token registry.Token) {
	s.mu.Lock()
	q, ok := s.queues[token]
	if ok {
		delete(s.queues, token)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	q.cancel()
	close(q.quit)
	<-q.done
}

// CloseAll stops delivery for every open token.
func (s *Sink) CloseAll() {
	s.mu.Lock()
	s.closed = true
	queues := s.queues
	s.queues = make(map[registry.Token]*queue)
	s.mu.Unlock()

	for _, q := range queues {
		q.cancel()
		close(q.quit)
	}
	for _, q := range queues {
		<-q.done
	}
}

// Offer enqueues an event for token according to the overflow policy.
// It never blocks beyond the policy's bound. A queue_overflow error is
// returned (and surfaced as a diagnostic) when the event, or an older one
// under DropOldest, had to be dropped.
func (s *Sink) Offer(token registry.Token, ev *variant.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.queues[token]
	if !ok {
		return errors.StaleToken(uint64(token))
	}

	switch s.opts.Policy {
	case DropOldest:
		dropped := 0
		for {
			select {
			case q.ch <- ev:
				if dropped > 0 {
					return s.overflow(token, dropped)
				}
				return nil
			default:
			}
			select {
			case <-q.ch:
				dropped++
			default:
			}
		}

	case Block:
		timer := time.NewTimer(s.opts.BlockTimeout)
		defer timer.Stop()
		select {
		case q.ch <- ev:
			return nil
		case <-timer.C:
			return s.overflow(token, 1)
		}

	default: // DropNewest
		select {
		case q.ch <- ev:
			return nil
		default:
			return s.overflow(token, 1)
		}
	}
}

func (s *Sink) overflow(token registry.Token, dropped int) *errors.Error {
	err := errors.QueueOverflow(uint64(token), dropped)
	Logger().Warn("dispatch queue overflow",
		zap.Uint64("token", uint64(token)),
		zap.Int("dropped", dropped),
		zap.String("policy", s.opts.Policy.String()))
	if s.opts.OnDiagnostic != nil {
		s.opts.OnDiagnostic(Diagnostic{Err: err, Token: token, Dropped: dropped})
	}
	return err
}

func (s *Sink) drain(ctx context.Context, token registry.Token, q *queue) {
	defer close(q.done)
	for {
		select {
		case <-q.quit:
			return
		case ev := <-q.ch:
			s.deliver(ctx, token, q.handler, ev)
		}
	}
}

// deliver invokes the handler for one event, containing panics so a
// misbehaving consumer cannot kill the worker.
func (s *Sink) deliver(ctx context.Context, token registry.Token, h Handler, ev *variant.Event) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("handler panic",
				zap.Uint64("token", uint64(token)),
				zap.String("leaf", ev.LeafTag()),
				zap.Any("panic", r))
		}
	}()
	h.HandleEvent(ctx, ev)
}
