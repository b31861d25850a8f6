package port

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/ttcnport/translation"
)

type loopConnection struct {
	forwarded int
}

func (c *loopConnection) Name() string {
	return "Loop"
}

func (c *loopConnection) ForwardMessage(dst *Port, msg PeerMessage) error {
	c.forwarded++
	return dst.Deliver(msg)
}

func (c *loopConnection) ForwardProcedure(dst *Port, proc PeerProcedure) error {
	c.forwarded++
	return dst.DeliverProcedure(proc)
}

func refuse(_ *translation.Ctx, _ any, _ *any) bool {
	return false
}

var _ = Describe("Dispatcher", func() {
	var (
		mockCtrl *gomock.Controller
		adapter  *MockSystemAdapter
		conn     *loopConnection
		decl     Declaration
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		adapter = NewMockSystemAdapter(mockCtrl)
		conn = &loopConnection{}
		decl = Declaration{
			Name: "PcoType",
			Mapping: Mapping{Out: []translation.MappingRule{{
				InType: "Text",
				Targets: []translation.MappingTarget{translation.ConvertTarget(
					"octetstring", translation.FuncStringToBytes,
					translation.StringToBytes),
				},
			}}},
			Procedures: []Signature{
				{Name: "Ping", HasReturn: true},
			},
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("with a peer and a system mapping", func() {
		var (
			local, remote *Port
			hooks         *hookCounter
		)

		BeforeEach(func() {
			local = buildPort("Local", decl)
			remote = buildPort("Remote", decl)
			local.Connect(FirstPTC, remote, conn)
			Expect(local.Map(adapter)).To(Succeed())
			hooks = newHookCounter()
			local.AcceptHook(hooks)
			local.Start()
			remote.Start()
		})

		It("should send to the system natively when the type has no rule", func() {
			adapter.EXPECT().Outgoing(local, "Pdu", "v", ToSystem()).Return(nil)

			Expect(local.Send("Pdu", "v", ToSystem())).To(Succeed())
			Expect(conn.forwarded).To(BeZero())
		})

		It("should never translate traffic to a peer", func() {
			Expect(local.Send("Text", "hello", To(FirstPTC))).To(Succeed())

			Expect(hooks.counts[translation.HookPosTranslationStart]).To(BeZero())

			var v any
			res, _ := remote.Receive(ProbeOptions{
				Template: MessageTemplate{Type: "Text"},
				Sender:   new(ComponentRef),
				Value:    &v,
			})
			Expect(res).To(Equal(Matched))
			Expect(v).To(Equal("hello"))
		})

		It("should translate traffic to the system", func() {
			adapter.EXPECT().
				Outgoing(local, "octetstring", []byte("hello"), ToSystem()).
				Return(nil)

			Expect(local.Send("Text", "hello", ToSystem())).To(Succeed())
			Expect(hooks.counts[translation.HookPosTranslationStart]).To(Equal(1))
		})

		It("should need a destination when there is more than one", func() {
			err := local.Send("Pdu", 1, Destination{})

			Expect(errors.Is(err, ErrAmbiguousDestination)).To(BeTrue())
		})

		It("should refuse unbound and unknown components", func() {
			err := local.Send("Pdu", 1, To(UnboundComponent))
			Expect(errors.Is(err, ErrUnboundDestination)).To(BeTrue())

			err = local.Send("Pdu", 1, To(FirstPTC+1))
			Expect(errors.Is(err, ErrNotConnected)).To(BeTrue())

			err = local.Send("Pdu", 1, ToAddress("host"))
			Expect(errors.Is(err, ErrAddressNotSupported)).To(BeTrue())
		})

		It("should report a stopped peer to the sender", func() {
			remote.Stop()

			err := local.Send("Pdu", 1, To(FirstPTC))

			Expect(errors.Is(err, ErrPortNotStarted)).To(BeTrue())
		})

		It("should not send from a stopped port", func() {
			local.Stop()

			err := local.Send("Pdu", 1, To(FirstPTC))

			var portErr *Error
			Expect(errors.As(err, &portErr)).To(BeTrue())
			Expect(portErr.Port).To(Equal("Local"))
			Expect(portErr.Err).To(Equal(ErrPortNotStarted))
		})

		It("should route procedures without translation", func() {
			adapter.EXPECT().
				OutgoingProcedure(local, gomock.Any(), ToSystem()).
				DoAndReturn(func(_ *Port, env *ProcedureEnvelope, _ Destination) error {
					Expect(env.Kind).To(Equal(Call))
					Expect(env.Signature).To(Equal("Ping"))
					Expect(env.Sender).To(Equal(MTCComponent))

					return nil
				})

			Expect(local.Call("Ping", "Text", ToSystem())).To(Succeed())
			Expect(local.Reply("Ping", 1, To(FirstPTC))).To(Succeed())
			Expect(hooks.counts[translation.HookPosTranslationStart]).To(BeZero())

			res, _ := remote.GetReply(ProcedureOptions{Signature: "Ping"})
			Expect(res).To(Equal(Matched))
		})

		It("should refuse exceptions of a signature without exceptions", func() {
			err := local.Raise("Ping", "Failure", 1, To(FirstPTC))

			Expect(errors.Is(err, ErrUnknownSignature)).To(BeTrue())
		})

		It("should be disconnected on terminate", func() {
			local.Terminate()
			local.Start()

			err := local.Send("Pdu", 1, To(FirstPTC))
			Expect(errors.Is(err, ErrNotConnected)).To(BeTrue())

			err = local.Send("Pdu", 1, ToSystem())
			Expect(errors.Is(err, ErrNotMapped)).To(BeTrue())
		})
	})

	It("should use the only connection when no destination is given", func() {
		local := buildPort("Local", decl)
		remote := buildPort("Remote", decl)
		local.Start()
		remote.Start()

		err := local.Send("Pdu", 1, Destination{})
		Expect(errors.Is(err, ErrNotConnected)).To(BeTrue())

		local.Connect(FirstPTC, remote, conn)
		Expect(local.Send("Pdu", 1, Destination{})).To(Succeed())
		Expect(remote.MessageQueue().Size()).To(Equal(1))
	})

	It("should pass connection failures to the sender", func() {
		mockConn := NewMockConnection(mockCtrl)
		local := buildPort("Local", decl)
		remote := buildPort("Remote", decl)
		local.Connect(FirstPTC, remote, mockConn)
		local.Start()
		broken := errors.New("link down")

		mockConn.EXPECT().
			ForwardMessage(remote, PeerMessage{TypeTag: "Pdu", Value: 1, Sender: MTCComponent}).
			Return(broken)

		err := local.Send("Pdu", 1, To(FirstPTC))

		Expect(errors.Is(err, broken)).To(BeTrue())
	})

	It("should not connect to the same component twice", func() {
		local := buildPort("Local", decl)
		local.Connect(FirstPTC, buildPort("Remote", decl), conn)

		Expect(func() {
			local.Connect(FirstPTC, buildPort("Other", decl), conn)
		}).To(Panic())
	})

	It("should not map internal ports", func() {
		p := buildPort("Internal", Declaration{Name: "Int", Category: Internal})

		err := p.Map(adapter)

		Expect(errors.Is(err, ErrInternalPort)).To(BeTrue())
	})

	It("should not map a port twice", func() {
		p := buildPort("Sut", Declaration{Name: "SutType"})
		Expect(p.Map(adapter)).To(Succeed())

		err := p.Map(adapter)

		Expect(errors.Is(err, ErrAlreadyMapped)).To(BeTrue())
		Expect(p.Status().Mapped).To(BeTrue())
	})

	Context("inbound translation", func() {
		buildInbound := func(targets ...translation.MappingTarget) *Port {
			p := buildPort("Sut", Declaration{
				Name:    "SutType",
				Sliding: true,
				Mapping: Mapping{In: []translation.MappingRule{{
					InType: "octetstring", Targets: targets,
				}}},
			})
			p.Start()

			return p
		}

		It("should enqueue nothing on discard", func() {
			p := buildInbound(
				translation.BacktrackTarget("Pdu", "refuse", refuse),
				translation.DiscardTarget(),
			)

			Expect(p.Incoming("octetstring", []byte{1, 2}, nil)).To(Succeed())
			Expect(p.MessageQueue().Size()).To(BeZero())
		})

		It("should report exhaustion and enqueue nothing", func() {
			p := buildInbound(
				translation.BacktrackTarget("Pdu", "f1", refuse),
				translation.BacktrackTarget("Pdu", "f2", refuse),
			)

			err := p.Incoming("octetstring", []byte{1, 2}, nil)

			Expect(errors.Is(err, translation.ErrTranslationExhausted)).To(BeTrue())
			Expect(p.MessageQueue().Size()).To(BeZero())
		})

		It("should reassemble a frame from two chunks", func() {
			p := buildInbound(translation.SlidingTarget("Frame",
				translation.FuncLengthPrefixedFrames,
				translation.LengthPrefixedFrames))
			whole := translation.LengthPrefix("abc").([]byte)

			Expect(p.Incoming("octetstring", whole[:2], nil)).To(Succeed())
			Expect(p.MessageQueue().Size()).To(BeZero())

			Expect(p.Incoming("octetstring", whole[2:], nil)).To(Succeed())
			Expect(p.MessageQueue().Size()).To(Equal(1))
			Expect(p.Pipeline().SlidingBuffer()).To(BeEmpty())

			var sender ComponentRef
			var v any
			res, _ := p.Receive(ProbeOptions{
				Template: MessageTemplate{Type: "Frame"},
				Sender:   &sender,
				Value:    &v,
			})
			Expect(res).To(Equal(Matched))
			Expect(sender).To(Equal(SystemComponent))
			Expect(v).To(Equal([]byte("abc")))
		})
	})

	Context("in translation mode", func() {
		var user, provider *Port

		BeforeEach(func() {
			user = buildPort("User", Declaration{
				Name:     "UserType",
				Category: User,
				Mapping: Mapping{
					Out: []translation.MappingRule{{
						InType: "Text",
						Targets: []translation.MappingTarget{translation.ConvertTarget(
							"octetstring", translation.FuncStringToBytes,
							translation.StringToBytes)},
					}},
					In: []translation.MappingRule{{
						InType: "octetstring",
						Targets: []translation.MappingTarget{translation.BacktrackTarget(
							"Text", translation.FuncUTF8Text, translation.UTF8Text)},
					}},
				},
			})
			provider = buildPort("Provider", Declaration{
				Name:     "ProviderType",
				Category: Provider,
				OutTypes: []string{"octetstring"},
			})

			Expect(provider.Map(adapter)).To(Succeed())
			Expect(user.MapPartner(provider)).To(Succeed())
			user.Start()
			provider.Start()
		})

		It("should send translated values through the provider", func() {
			adapter.EXPECT().
				Outgoing(provider, "octetstring", []byte("hi"), ToSystem()).
				Return(nil)

			Expect(user.Send("Text", "hi", ToSystem())).To(Succeed())
		})

		It("should fail when no provider takes the type", func() {
			err := user.Send("Other", 1, ToSystem())

			Expect(errors.Is(err, ErrNotMapped)).To(BeTrue())
		})

		It("should translate provider traffic for the user port", func() {
			Expect(provider.Incoming("octetstring", []byte("hey"), nil)).To(Succeed())

			Expect(provider.MessageQueue().Size()).To(BeZero())

			var v any
			res, _ := user.Receive(ProbeOptions{
				Template: MessageTemplate{Type: "Text"},
				Value:    &v,
			})
			Expect(res).To(Equal(Matched))
			Expect(v).To(Equal("hey"))
		})

		It("should only put user ports in translation mode", func() {
			err := provider.MapPartner(user)

			Expect(errors.Is(err, ErrNotMapped)).To(BeTrue())
		})

		It("should leave translation mode on terminate", func() {
			provider.Terminate()

			Expect(user.Partners()).To(BeEmpty())
		})
	})
})
