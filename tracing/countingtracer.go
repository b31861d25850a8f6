package tracing

import (
	"sort"
	"sync"
)

// CountingTracer counts the events it receives per hook position.
type CountingTracer struct {
	lock   sync.Mutex
	counts map[string]int
	total  int
}

// NewCountingTracer creates a new CountingTracer.
func NewCountingTracer() *CountingTracer {
	return &CountingTracer{
		counts: make(map[string]int),
	}
}

// Record counts the event.
func (t *CountingTracer) Record(e Event) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.counts[e.Pos]++
	t.total++
}

// Count returns the number of events recorded at the position.
func (t *CountingTracer) Count(pos string) int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[pos]
}

// Total returns the number of events recorded.
func (t *CountingTracer) Total() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.total
}

// PosCount is the number of events at one position.
type PosCount struct {
	Pos   string
	Count int
}

// Counts returns the counts, the most frequent position first.
func (t *CountingTracer) Counts() []PosCount {
	t.lock.Lock()
	defer t.lock.Unlock()

	list := make([]PosCount, 0, len(t.counts))
	for pos, n := range t.counts {
		list = append(list, PosCount{Pos: pos, Count: n})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}

		return list[i].Pos < list[j].Pos
	})

	return list
}

// Reset forgets all the counts.
func (t *CountingTracer) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.counts = make(map[string]int)
	t.total = 0
}
