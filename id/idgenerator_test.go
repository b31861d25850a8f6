package id

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IDGenerator", func() {
	It("should generate sequential ids", func() {
		g := NewSequentialIDGenerator()

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
		Expect(g.Generate()).To(Equal("3"))
	})

	It("should generate unique parallel ids", func() {
		g := NewParallelIDGenerator()
		seen := make(map[string]bool)

		for i := 0; i < 100; i++ {
			id := g.Generate()
			Expect(seen).NotTo(HaveKey(id))
			seen[id] = true
		}
	})

	It("should not allow switching generator after use", func() {
		GetIDGenerator().Generate()

		Expect(func() { UseParallelIDGenerator() }).To(Panic())
	})
})
