package livetrack

import "sync"

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseFailed
)

// State is the single value a feed holds: exactly one of loading,
// ready with a payload, or failed with a message.
type State[T any] struct {
	Phase Phase
	Value T
	Err   string
}

func Loading[T any]() State[T] {
	return State[T]{Phase: PhaseLoading}
}

func Ready[T any](value T) State[T] {
	return State[T]{Phase: PhaseReady, Value: value}
}

func Failed[T any](msg string) State[T] {
	return State[T]{Phase: PhaseFailed, Err: msg}
}

// Feed is a hot, replay-latest observable. A new subscriber always
// receives the current state first, then every later transition. A
// subscriber that falls behind has its stale state replaced rather
// than blocking the publisher.
type Feed[T any] struct {
	mu   sync.Mutex
	cur  State[T]
	subs map[int]chan State[T]
	next int
}

func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{
		cur:  Loading[T](),
		subs: make(map[int]chan State[T]),
	}
}

// Current returns the latest published state.
func (f *Feed[T]) Current() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur
}

// Subscribe returns a channel that immediately carries the current
// state, and a cancel function that must be called when the observer
// is done.
func (f *Feed[T]) Subscribe() (<-chan State[T], func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan State[T], 1)
	ch <- f.cur

	id := f.next
	f.next++
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(ch)
		}
	}

	return ch, cancel
}

// Publish replaces the current state and fans it out. Only one value
// is ever buffered per subscriber; an unread stale state is dropped in
// favor of the new one.
func (f *Feed[T]) Publish(state State[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cur = state
	for _, ch := range f.subs {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}
