// Package notify holds the abstractions shared by the per-generation event
// dispatchers: the typed subscription point (Hook), the arguments delivered
// to subscribers, and the capability interfaces a dispatcher exposes.
package notify

import (
	"reflect"
	"sync"
)

// Sender identifies the dispatcher raising a notification.
type Sender interface {
	Name() string
}

// Dispatcher routes a decoded payload to the subscribers of its kind.
type Dispatcher interface {
	Sender

	// Dispatch raises the notification matching eventType. Unknown types
	// are a no-op. The first subscriber error aborts the fan-out and is
	// returned.
	Dispatch(event any, eventType reflect.Type, contextID string) error

	// Knows reports whether eventType is one of the dispatcher's kinds.
	Knows(eventType reflect.Type) bool
}

// Args is delivered to every subscriber of a Hook.
type Args[T any] struct {
	Event     *T
	ContextID string
}

// Handler is a subscriber callback.
type Handler[T any] func(sender Sender, args Args[T]) error

type subscriber[T any] struct {
	id uint64
	fn Handler[T]
}

// Hook is the subscription point for one event kind. The zero value is
// ready to use and a Hook must not be copied after first use.
type Hook[T any] struct {
	mu   sync.RWMutex
	next uint64
	subs []subscriber[T]
}

// Subscribe attaches fn and returns a func that detaches it. Detaching is
// idempotent and may happen while the hook is firing; a fan-out already in
// progress still delivers to fn.
func (h *Hook[T]) Subscribe(fn Handler[T]) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	h.mu.Lock()
	h.next++
	id := h.next
	h.subs = append(h.subs, subscriber[T]{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hook[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.subs {
		if s.id == id {
			subs := make([]subscriber[T], 0, len(h.subs)-1)
			subs = append(subs, h.subs[:i]...)
			h.subs = append(subs, h.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of attached subscribers.
func (h *Hook[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Fire calls every subscriber in attachment order and stops at the first
// error.
func (h *Hook[T]) Fire(sender Sender, args Args[T]) error {
	h.mu.RLock()
	subs := h.subs
	h.mu.RUnlock()

	for _, s := range subs {
		if err := s.fn(sender, args); err != nil {
			return err
		}
	}
	return nil
}

// Cast converts a dispatched payload into *T. It accepts either a *T or a T
// value; anything else yields nil and false.
func Cast[T any](event any) (*T, bool) {
	switch e := event.(type) {
	case *T:
		return e, e != nil
	case T:
		return &e, true
	default:
		return nil, false
	}
}

// Raise casts event to *T and fires h. A payload that is not a T is
// ignored; it means the caller resolved a type that does not match the
// value it decoded.
func Raise[T any](sender Sender, h *Hook[T], event any, contextID string) error {
	e, ok := Cast[T](event)
	if !ok {
		return nil
	}
	return h.Fire(sender, Args[T]{Event: e, ContextID: contextID})
}

// TypeOf returns the dynamic type of event with one level of pointer
// indirection removed.
func TypeOf(event any) reflect.Type {
	t := reflect.TypeOf(event)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
