package engine

import (
	"context"
	"slices"
	"sync"

	"github.com/rxtech-lab/argo-engine/internal/types"
)

// Broker receives the order intents emitted by strategy nodes. The engine
// stamps and forwards intents; it never validates or executes them.
type Broker interface {
	Submit(ctx context.Context, intent types.OrderIntent) error
}

// IntentRecorder is an in-memory Broker that validates and keeps every
// intent it accepts.
type IntentRecorder struct {
	mu       sync.Mutex
	intents  []types.OrderIntent
	rejected int
}

// NewIntentRecorder creates an empty recorder.
func NewIntentRecorder() *IntentRecorder {
	return &IntentRecorder{
		mu:       sync.Mutex{},
		intents:  nil,
		rejected: 0,
	}
}

// Submit implements Broker.
func (r *IntentRecorder) Submit(_ context.Context, intent types.OrderIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := intent.Validate(); err != nil {
		r.rejected++

		return err
	}

	r.intents = append(r.intents, intent)

	return nil
}

// Intents returns the accepted intents in submission order.
func (r *IntentRecorder) Intents() []types.OrderIntent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.intents)
}

// Rejected returns the number of intents that failed validation.
func (r *IntentRecorder) Rejected() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rejected
}
