// Package bus is a small typed publish/subscribe mechanism for the push
// signals the controller reacts to: account changes and config reloads.
//
// A Topic retains its most recent value and replays it synchronously to
// new subscribers, so late subscribers see current state. Subscribers
// that would be clobbered by that replay (a controller that just restored
// a session, for instance) opt out with SkipReplay.
package bus

import "sync"

// Topic is a single-type event stream. Handlers run synchronously in
// publish order on the publisher's goroutine; they must not block.
type Topic[T any] struct {
	mu      sync.Mutex
	subs    map[int]func(T)
	nextID  int
	last    T
	hasLast bool
}

// SubscribeOption adjusts subscription behavior.
type SubscribeOption struct{ skipReplay bool }

// SkipReplay suppresses the synchronous replay of the last published
// value at subscribe time.
func SkipReplay() SubscribeOption { return SubscribeOption{skipReplay: true} }

// NewTopic creates an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[int]func(T))}
}

// Publish delivers v to every current subscriber and retains it for
// future replay.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	t.last, t.hasLast = v, true
	handlers := make([]func(T), 0, len(t.subs))
	for _, fn := range t.subs {
		handlers = append(handlers, fn)
	}
	t.mu.Unlock()

	for _, fn := range handlers {
		fn(v)
	}
}

// Subscribe registers fn and returns the function that removes it.
// Unless SkipReplay is given, the last published value (if any) is
// replayed to fn before Subscribe returns.
func (t *Topic[T]) Subscribe(fn func(T), opts ...SubscribeOption) (unsubscribe func()) {
	skip := false
	for _, o := range opts {
		if o.skipReplay {
			skip = true
		}
	}

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	replay, hasReplay := t.last, t.hasLast
	t.mu.Unlock()

	if hasReplay && !skip {
		fn(replay)
	}

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}
