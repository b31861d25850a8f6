package port

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ttcnport/translation"
)

var _ = Describe("Declaration", func() {
	It("should parse categories", func() {
		c, err := ParseCategory("User")

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(User))
		Expect(c.String()).To(Equal("user"))

		_, err = ParseCategory("legacy")
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("should reject contradictions",
		func(d Declaration) {
			Expect(d.Validate()).NotTo(Succeed())
		},
		Entry("no name", Declaration{}),
		Entry("mapped internal port", Declaration{
			Name: "P", Category: Internal,
			Mapping: Mapping{Out: []translation.MappingRule{{
				InType:  "A",
				Targets: []translation.MappingTarget{translation.SimpleTarget("B")},
			}}},
		}),
		Entry("signature declared twice", Declaration{
			Name: "P", Procedures: []Signature{{Name: "S"}, {Name: "S"}},
		}),
		Entry("sliding function on a port without sliding", Declaration{
			Name: "P",
			Mapping: Mapping{In: []translation.MappingRule{{
				InType: "octetstring",
				Targets: []translation.MappingTarget{translation.SlidingTarget(
					"Frame", translation.FuncLengthPrefixedFrames,
					translation.LengthPrefixedFrames)},
			}}},
		}),
	)

	It("should accept any type when no type is listed", func() {
		d := Declaration{Name: "P", InTypes: []string{"A"}}

		Expect(d.AcceptsIn("A")).To(BeTrue())
		Expect(d.AcceptsIn("B")).To(BeFalse())
		Expect(d.AcceptsOut("B")).To(BeTrue())
	})
})

var _ = Describe("Port", func() {
	var p *Port

	BeforeEach(func() {
		p = buildPort("Pco", Declaration{Name: "PcoType", InTypes: []string{"Pdu"}})
	})

	It("should panic on an invalid name", func() {
		Expect(func() {
			MakeBuilder().Build("1pco")
		}).To(Panic())
	})

	It("should reject traffic before start", func() {
		err := p.Deliver(PeerMessage{TypeTag: "Pdu", Sender: MTCComponent})

		Expect(errors.Is(err, ErrPortNotStarted)).To(BeTrue())
		Expect(p.MessageQueue().Size()).To(BeZero())
	})

	It("should reject undeclared types", func() {
		p.Start()

		err := p.Deliver(PeerMessage{TypeTag: "Other", Sender: MTCComponent})

		Expect(errors.Is(err, ErrTypeNotAllowed)).To(BeTrue())
	})

	It("should clear the queues on start", func() {
		p.Start()
		deliver(p, "Pdu", 1, MTCComponent)
		p.Stop()
		Expect(p.MessageQueue().Size()).To(Equal(1))

		p.Start()

		Expect(p.MessageQueue().Size()).To(BeZero())
		Expect(p.Started()).To(BeTrue())
		Expect(p.Halted()).To(BeFalse())
	})

	It("should give unique envelope IDs", func() {
		p.Start()
		deliver(p, "Pdu", 1, MTCComponent)
		deliver(p, "Pdu", 2, MTCComponent)

		items := p.MessageQueue().Items()

		Expect(items).To(HaveLen(2))
		Expect(items[0].ID).NotTo(Equal(items[1].ID))
	})

	It("should empty everything on terminate", func() {
		s := buildPort("Stream", Declaration{
			Name:    "StreamType",
			Sliding: true,
			Mapping: Mapping{In: []translation.MappingRule{{
				InType: "octetstring",
				Targets: []translation.MappingTarget{translation.SlidingTarget(
					"Frame", translation.FuncLengthPrefixedFrames,
					translation.LengthPrefixedFrames)},
			}}},
		})
		s.Start()
		Expect(s.Incoming("octetstring", []byte{0, 0}, nil)).To(Succeed())
		Expect(s.Pipeline().SlidingBuffer()).To(HaveLen(2))

		s.Terminate()

		Expect(s.Pipeline().SlidingBuffer()).To(BeEmpty())
		Expect(s.Started()).To(BeFalse())
	})

	It("should report its status", func() {
		remote := buildPort("Remote", Declaration{Name: "PcoType"})
		p.Connect(FirstPTC+1, remote, &loopConnection{})
		p.Connect(FirstPTC, remote, &loopConnection{})
		p.Start()
		deliver(p, "Pdu", 1, MTCComponent)

		s := p.Status()

		Expect(s.Name).To(Equal("Pco"))
		Expect(s.Type).To(Equal("PcoType"))
		Expect(s.Category).To(Equal("regular"))
		Expect(s.Started).To(BeTrue())
		Expect(s.MessageQueueSize).To(Equal(1))
		Expect(s.Peers).To(Equal([]ComponentRef{FirstPTC, FirstPTC + 1}))
		Expect(s.Mapped).To(BeFalse())
	})

	It("should announce lifecycle changes", func() {
		hooks := newHookCounter()
		p.AcceptHook(hooks)

		p.Start()
		p.Halt()
		p.Clear()
		p.Stop()

		Expect(hooks.counts[HookPosPortStateChange]).To(Equal(4))
	})
})

var _ = Describe("ComponentRef", func() {
	It("should name reserved references", func() {
		Expect(SystemComponent.String()).To(Equal("system"))
		Expect(MTCComponent.String()).To(Equal("mtc"))
		Expect(FirstPTC.String()).To(Equal("ptc3"))
		Expect(UnboundComponent.Bound()).To(BeFalse())
		Expect(NullComponent.Bound()).To(BeFalse())
	})
})
