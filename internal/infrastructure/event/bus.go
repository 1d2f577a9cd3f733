package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nivaasi/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BusConfig tunes dispatch. With Async false every handler runs inside Publish.
type BusConfig struct {
	Async       bool
	Workers     int
	BufferSize  int
	HandlerWait time.Duration // how long Stop waits for queued events
}

// DispatchObserver is told about every handler invocation
type DispatchObserver interface {
	RecordHandled(ctx context.Context, eventType string, duration time.Duration, err error)
}

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus dispatches domain events to registered handlers in process.
// Handler errors and panics are logged and never reach the publisher.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	cfg      BusConfig
	logger   *zap.Logger
	observer DispatchObserver

	mu      sync.RWMutex
	running bool
	queue   chan envelope
	wg      sync.WaitGroup
}

// NewInMemoryEventBus creates a synchronous bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return NewInMemoryEventBusWithConfig(BusConfig{}, logger)
}

// NewInMemoryEventBusWithConfig creates a bus; async workers begin on Start
func NewInMemoryEventBusWithConfig(cfg BusConfig, logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Async {
		if cfg.Workers <= 0 {
			cfg.Workers = 1
		}
		if cfg.BufferSize <= 0 {
			cfg.BufferSize = 64
		}
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		cfg:      cfg,
		logger:   logger.Named("event_bus"),
	}
}

// SetObserver installs a dispatch observer, typically a metrics recorder
func (b *InMemoryEventBus) SetObserver(o DispatchObserver) {
	b.observer = o
}

// Publish hands events to their handlers. In async mode events are queued;
// when the queue is full or the bus is stopped they are dispatched inline.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		if b.enqueue(ctx, event) {
			continue
		}
		b.dispatch(ctx, event)
	}
	return nil
}

func (b *InMemoryEventBus) enqueue(ctx context.Context, event shared.DomainEvent) bool {
	if !b.cfg.Async {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running {
		return false
	}
	select {
	// Queued work must outlive the request that produced it.
	case b.queue <- envelope{ctx: context.WithoutCancel(ctx), event: event}:
		return true
	default:
		b.logger.Warn("Event queue full, dispatching inline",
			zap.String("event_type", event.EventType()),
			zap.Int("buffer_size", b.cfg.BufferSize),
		)
		return false
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		start := time.Now()
		err := b.dispatchToHandler(ctx, handler, event)
		if b.observer != nil {
			b.observer.RecordHandled(ctx, event.EventType(), time.Since(start), err)
		}
		if err != nil {
			b.logger.Error("Handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Error(err),
			)
		}
	}
}

// Subscribe registers a handler. Without explicit types the handler's own are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the async workers. It is a no-op for a synchronous bus.
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	b.running = true
	if b.cfg.Async {
		b.queue = make(chan envelope, b.cfg.BufferSize)
		for i := 0; i < b.cfg.Workers; i++ {
			b.wg.Add(1)
			go b.worker(b.queue)
		}
	}
	b.logger.Info("Event bus started",
		zap.Bool("async", b.cfg.Async),
		zap.Int("workers", b.cfg.Workers),
		zap.Int("handlers", b.registry.Count()),
	)
	return nil
}

func (b *InMemoryEventBus) worker(queue <-chan envelope) {
	defer b.wg.Done()
	for env := range queue {
		b.dispatch(env.ctx, env.event)
	}
}

// Stop closes the queue and waits for queued events to drain, bounded by
// ctx and HandlerWait.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	if b.queue != nil {
		close(b.queue)
		b.queue = nil
	}
	b.mu.Unlock()

	if b.cfg.HandlerWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.HandlerWait)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus stopped before queue drained", zap.Error(ctx.Err()))
		return fmt.Errorf("event bus drain: %w", ctx.Err())
	}
}

// dispatchToHandler turns a handler panic into an error
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
			err = errors.New("handler panicked")
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
