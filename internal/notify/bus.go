// Package notify provides a small synchronous publish/subscribe bus.
//
// Publishers compute their notifications while holding their own locks,
// release them, and only then call Dispatch. Listeners therefore run without
// any publisher lock held and may re-enter the publisher freely.
package notify

import "sync"

// Bus fans values of type T out to subscribed listeners in subscription order.
// The zero Bus is ready to use.
type Bus[T any] struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(T)
	order     []int
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listeners == nil {
		b.listeners = make(map[int]func(T))
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.listeners, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i:i], b.order[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribed listeners.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

// Dispatch delivers each value, in order, to a snapshot of the listeners
// taken at call time. Must not be called while holding a publisher lock.
func (b *Bus[T]) Dispatch(values ...T) {
	if len(values) == 0 {
		return
	}

	b.mu.Lock()
	snapshot := make([]func(T), 0, len(b.order))
	for _, id := range b.order {
		snapshot = append(snapshot, b.listeners[id])
	}
	b.mu.Unlock()

	for _, v := range values {
		for _, fn := range snapshot {
			fn(v)
		}
	}
}
