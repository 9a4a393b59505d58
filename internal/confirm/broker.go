// Package confirm correlates an agent's mid-stream "need user approval"
// request with the eventual answer from the display surface.
//
// Each request registers an independent listener keyed by a caller-chosen
// correlation id; the listener is removed after its single matching
// response so nothing leaks. There is no timeout: an unanswered request
// blocks that agentic step until the operation is cancelled or the broker
// is disposed.
package confirm

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrDisposed is returned to every waiter when the broker shuts down
// before their answer arrives.
var ErrDisposed = errors.New("confirmation broker disposed")

// Request is the outbound ask pushed to the display surface.
type Request struct {
	ID   string
	Step string
}

// Broker matches confirmation requests to responses by correlation id.
type Broker struct {
	mu       sync.Mutex
	pending  map[string]chan bool
	disposed chan struct{}
	send     func(Request)
	logger   *zap.Logger
}

// New creates a broker that delivers outbound requests through send.
// send must not block; delivery failure on the surface side only stalls
// that one confirmation, never the broker.
func New(send func(Request), logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		pending:  make(map[string]chan bool),
		disposed: make(chan struct{}),
		send:     send,
		logger:   logger,
	}
}

// Ask sends the request and blocks until the matching response arrives,
// ctx is cancelled, or the broker is disposed.
func (b *Broker) Ask(ctx context.Context, id, step string) (bool, error) {
	ch := make(chan bool, 1)

	b.mu.Lock()
	select {
	case <-b.disposed:
		b.mu.Unlock()
		return false, ErrDisposed
	default:
	}
	if _, exists := b.pending[id]; exists {
		b.mu.Unlock()
		return false, errors.New("duplicate confirmation id: " + id)
	}
	b.pending[id] = ch
	b.mu.Unlock()

	b.send(Request{ID: id, Step: step})
	b.logger.Debug("confirmation requested", zap.String("id", id))

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		b.remove(id)
		return false, ctx.Err()
	case <-b.disposed:
		b.remove(id)
		return false, ErrDisposed
	}
}

// Resolve delivers an inbound response. It reports whether a waiter with
// that id existed; a non-matching id resolves nothing.
func (b *Broker) Resolve(id string, response bool) bool {
	b.mu.Lock()
	ch, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()
	if !ok {
		b.logger.Debug("confirmation response without waiter", zap.String("id", id))
		return false
	}
	ch <- response
	return true
}

// Pending returns the number of unanswered requests.
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Dispose fails every outstanding request with ErrDisposed. Further Ask
// calls fail immediately.
func (b *Broker) Dispose() {
	b.mu.Lock()
	select {
	case <-b.disposed:
	default:
		close(b.disposed)
	}
	b.mu.Unlock()
}

func (b *Broker) remove(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}
