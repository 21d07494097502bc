// Package observe provides values that notify subscribers when they change.
// Controllers expose their session, verification state and notices through
// it, so any front end can render them without polling.
package observe

import "sync"

// Value holds a T and calls subscribers when it is replaced.
//
// Callbacks run synchronously on the goroutine that changed the value, after
// the internal lock is released. A callback may read the value but should
// not block.
type Value[T comparable] struct {
	mu   sync.RWMutex
	v    T
	subs map[int]func(T)
	next int
}

func NewValue[T comparable](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[int]func(T))}
}

func (o *Value[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.v
}

// Set stores v and notifies subscribers if it differs from the current value.
func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	if o.v == v {
		o.mu.Unlock()
		return
	}
	o.v = v
	subs := o.snapshot()
	o.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Publish stores v and notifies subscribers unconditionally. Used for event
// streams such as notices, where a repeat is still news.
func (o *Value[T]) Publish(v T) {
	o.mu.Lock()
	o.v = v
	subs := o.snapshot()
	o.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn and returns a function removing it.
func (o *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// must be called with o.mu held.
func (o *Value[T]) snapshot() []func(T) {
	subs := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	return subs
}
