// Package queueing provides the FIFO queues that hold the items waiting at a
// port.
package queueing

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/sarchlab/ttcnport/hooking"
	"github.com/sarchlab/ttcnport/naming"
)

var (
	// HookPosQueuePush marks when an element is appended at the tail.
	HookPosQueuePush = &hooking.HookPos{Name: "Queue Push"}

	// HookPosQueuePop marks when the head element is consumed.
	HookPosQueuePop = &hooking.HookPos{Name: "Queue Pop"}

	// HookPosQueueDrop marks when the head element is removed without being
	// consumed.
	HookPosQueueDrop = &hooking.HookPos{Name: "Queue Drop"}

	// HookPosQueueClear marks when all the elements are discarded. The Detail
	// of the hook context is the number of elements removed.
	HookPosQueueClear = &hooking.HookPos{Name: "Queue Clear"}
)

// A Queue is an unbounded FIFO queue. Elements can only be appended at the
// tail and can only be inspected or removed at the head.
//
// One goroutine may push while another pops; the two are mutually exclusive.
type Queue[T any] struct {
	hooking.HookableBase

	lock  sync.Mutex
	name  string
	items deque.Deque[T]
}

// NewQueue creates an empty queue.
func NewQueue[T any](name string) *Queue[T] {
	naming.NameMustBeValid(name)

	return &Queue[T]{name: name}
}

// Name returns the name of the queue.
func (q *Queue[T]) Name() string {
	return q.name
}

// Push appends an element at the tail.
func (q *Queue[T]) Push(e T) {
	q.lock.Lock()
	q.items.PushBack(e)
	q.lock.Unlock()

	q.invoke(HookPosQueuePush, e, nil)
}

// Peek returns the head element without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.items.Len() == 0 {
		var zero T
		return zero, false
	}

	return q.items.Front(), true
}

// Pop removes and returns the head element.
func (q *Queue[T]) Pop() (T, bool) {
	e, ok := q.popFront()
	if ok {
		q.invoke(HookPosQueuePop, e, nil)
	}

	return e, ok
}

// Drop removes the head element, reporting it as dropped rather than
// consumed.
func (q *Queue[T]) Drop() (T, bool) {
	e, ok := q.popFront()
	if ok {
		q.invoke(HookPosQueueDrop, e, nil)
	}

	return e, ok
}

func (q *Queue[T]) popFront() (T, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.items.Len() == 0 {
		var zero T
		return zero, false
	}

	return q.items.PopFront(), true
}

// Size returns the number of elements in the queue.
func (q *Queue[T]) Size() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.items.Len()
}

// Items returns a snapshot of the queue, head first.
func (q *Queue[T]) Items() []T {
	q.lock.Lock()
	defer q.lock.Unlock()

	items := make([]T, q.items.Len())
	for i := range items {
		items[i] = q.items.At(i)
	}

	return items
}

// Clear removes all the elements and returns how many were removed.
func (q *Queue[T]) Clear() int {
	q.lock.Lock()
	n := q.items.Len()
	q.items.Clear()
	q.lock.Unlock()

	if n > 0 {
		q.invoke(HookPosQueueClear, nil, n)
	}

	return n
}

func (q *Queue[T]) invoke(pos *hooking.HookPos, item any, detail any) {
	if q.NumHooks() == 0 {
		return
	}

	q.InvokeHook(hooking.HookCtx{
		Domain: q,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
