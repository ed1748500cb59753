package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler reacts to a ticket event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans ticket events out to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher runs handlers synchronously on the publishing goroutine: type-specific
// subscribers first, then AllEvents subscribers, each in subscription order.
type inMemoryDispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{handlers: map[EventType][]EventHandler{}}
}

// Publish runs every handler even when an earlier one fails or panics and joins the
// failures. Callers treat the error as a notification problem, never as a reason to undo the
// change that produced the event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	targets := make([]EventHandler, 0, len(d.handlers[event.Type])+len(d.handlers[AllEvents]))
	targets = append(targets, d.handlers[event.Type]...)
	if event.Type != AllEvents {
		targets = append(targets, d.handlers[AllEvents]...)
	}
	d.mu.RUnlock()

	var errs []error
	for _, handle := range targets {
		if err := invoke(ctx, handle, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
	d.mu.Unlock()
}

func invoke(ctx context.Context, handle EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s handler panicked: %v", event.Type, r)
		}
	}()
	return handle(ctx, event)
}
