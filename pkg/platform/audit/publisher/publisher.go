// Package publisher fans audit events out to the configured store and any
// additional sinks, either inline or through a bounded async buffer.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "basera/pkg/domain"
	audit "basera/pkg/platform/audit"
)

// ErrBufferFull is returned when async mode is enabled and the buffer has
// no room. Audit writes must never block the request path, so the event is
// dropped rather than queued.
var ErrBufferFull = errors.New("audit buffer full")

type Publisher struct {
	store  audit.Store
	sinks  []audit.Sink
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous publishing through a channel of the
// given size. Close drains the buffer before returning.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan audit.Event, size)
	}
}

// WithSink adds a secondary sink (for example Kafka). Sink failures are
// logged and never surfaced to callers.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		p.sinks = append(p.sinks, sink)
	}
}

// WithLogger sets the logger used for sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records an event. In sync mode the store write happens inline and
// its error is returned. In async mode the event is enqueued; a full
// buffer drops the event and returns ErrBufferFull.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.buffer == nil {
		return p.deliver(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// List returns the events recorded for a user, oldest first.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close stops the async worker, draining any buffered events first.
// Safe to call in sync mode and safe to call more than once.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.deliver(context.Background(), event); err != nil {
			p.logger.Error("audit append failed",
				slog.String("action", event.Action),
				slog.String("error", err.Error()))
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	err := p.store.Append(ctx, event)
	for _, sink := range p.sinks {
		if sinkErr := sink.Append(ctx, event); sinkErr != nil {
			p.logger.Error("audit sink append failed",
				slog.String("action", event.Action),
				slog.String("error", sinkErr.Error()))
		}
	}
	return err
}
