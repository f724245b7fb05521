package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultHandlerTimeout = time.Minute

type Event interface {
	Name() string
}

type Listener func(ctx context.Context, event Event) error

// Bus delivers events to listeners asynchronously. A failing listener never reaches the publisher.
type Bus struct {
	listeners      map[string][]Listener
	mu             sync.RWMutex
	inflight       sync.WaitGroup
	handlerTimeout time.Duration
	logger         *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners:      make(map[string][]Listener),
		handlerTimeout: defaultHandlerTimeout,
		logger:         logger,
	}
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	eventName := event.Name()
	for _, listener := range b.listeners[eventName] {
		b.inflight.Add(1)
		go func(l Listener) {
			defer b.inflight.Done()

			// Listeners outlive the request that published the event.
			handlerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.handlerTimeout)
			defer cancel()

			if err := b.safeCall(handlerCtx, l, event); err != nil {
				b.logger.Error("event listener failed",
					zap.String("event", eventName),
					zap.Error(err),
				)
			}
		}(listener)
	}
}

// Wait blocks until every delivered event has been handled or ctx is done.
func (b *Bus) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) safeCall(ctx context.Context, l Listener, event Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("listener panic: %v", p)
		}
	}()
	return l(ctx, event)
}
