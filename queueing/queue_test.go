package queueing

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ttcnport/hooking"
)

type recordingHook struct {
	positions []*hooking.HookPos
	items     []any
}

func (h *recordingHook) Func(ctx hooking.HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
	h.items = append(h.items, ctx.Item)
}

var _ = Describe("Queue", func() {
	var (
		q    *Queue[int]
		hook *recordingHook
	)

	BeforeEach(func() {
		q = NewQueue[int]("Pco.MsgQueue")
		hook = &recordingHook{}
		q.AcceptHook(hook)
	})

	It("should report empty queue", func() {
		_, ok := q.Peek()
		Expect(ok).To(BeFalse())

		_, ok = q.Pop()
		Expect(ok).To(BeFalse())

		_, ok = q.Drop()
		Expect(ok).To(BeFalse())

		Expect(hook.positions).To(BeEmpty())
	})

	It("should preserve arrival order", func() {
		for i := 1; i <= 5; i++ {
			q.Push(i)
		}

		Expect(q.Size()).To(Equal(5))
		Expect(q.Items()).To(Equal([]int{1, 2, 3, 4, 5}))

		for i := 1; i <= 5; i++ {
			head, ok := q.Peek()
			Expect(ok).To(BeTrue())
			Expect(head).To(Equal(i))

			e, ok := q.Pop()
			Expect(ok).To(BeTrue())
			Expect(e).To(Equal(i))
		}

		Expect(q.Size()).To(Equal(0))
	})

	It("should distinguish pop from drop in hooks", func() {
		q.Push(1)
		q.Push(2)

		q.Drop()
		q.Pop()

		Expect(hook.positions).To(Equal([]*hooking.HookPos{
			HookPosQueuePush, HookPosQueuePush,
			HookPosQueueDrop, HookPosQueuePop,
		}))
		Expect(hook.items).To(Equal([]any{1, 2, 1, 2}))
	})

	It("should clear", func() {
		q.Push(1)
		q.Push(2)

		Expect(q.Clear()).To(Equal(2))
		Expect(q.Size()).To(Equal(0))
		Expect(hook.positions[len(hook.positions)-1]).
			To(BeIdenticalTo(HookPosQueueClear))
	})

	It("should keep order with one producer and one consumer", func() {
		q = NewQueue[int]("Pco.MsgQueue")
		const n = 1000

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				q.Push(i)
			}
		}()

		received := make([]int, 0, n)
		for len(received) < n {
			if e, ok := q.Pop(); ok {
				received = append(received, e)
			}
		}
		wg.Wait()

		for i, e := range received {
			Expect(e).To(Equal(i))
		}
	})

	It("should panic on invalid name", func() {
		Expect(func() { NewQueue[int]("bad-name") }).To(Panic())
	})
})
