package adapter

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Emitter publishes a named event to the presentation layer. Delivery is best effort.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any) error
}

// StreamEmitter writes one JSON object per event to a stream.
type StreamEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStreamEmitter(w io.Writer) *StreamEmitter {
	return &StreamEmitter{w: w}
}

type emittedEvent struct {
	Event     string    `json:"event"`
	EmittedAt time.Time `json:"emitted_at"`
	Payload   any       `json:"payload"`
}

func (x *StreamEmitter) Emit(ctx context.Context, event string, payload any) error {
	line, err := json.Marshal(&emittedEvent{
		Event:     event,
		EmittedAt: time.Now(),
		Payload:   payload,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal event", goerr.V("event", event))
	}
	line = append(line, '\n')

	x.mu.Lock()
	defer x.mu.Unlock()
	if _, err := x.w.Write(line); err != nil {
		return goerr.Wrap(err, "failed to write event", goerr.V("event", event))
	}
	return nil
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, event string, payload any) error

func (f EmitterFunc) Emit(ctx context.Context, event string, payload any) error {
	return f(ctx, event, payload)
}
