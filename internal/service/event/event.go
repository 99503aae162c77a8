package event

import "context"

// Emitter records a domain event for asynchronous delivery.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

// Nop discards events. Used where no outbox is configured.
type Nop struct{}

func (Nop) Emit(context.Context, string, interface{}) error { return nil }
