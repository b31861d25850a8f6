package component

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/ttcnport/codec"
	"github.com/sarchlab/ttcnport/hooking"
	"github.com/sarchlab/ttcnport/port"
)

type location struct {
	Cell string
	Lac  int
}

var pcoType = port.Declaration{Name: "PcoType"}

var _ = Describe("Registry", func() {
	var (
		mockCtrl *gomock.Controller
		r        *Registry
		mtc, ptc *Component
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		r = NewRegistry()
		mtc = r.MTC()
		ptc = r.Create("Client")
		mtc.BuildPort(port.MakeBuilder().WithDeclaration(pcoType), "pco")
		ptc.BuildPort(port.MakeBuilder().WithDeclaration(pcoType), "pco")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should allocate references", func() {
		other := r.Create("Server")

		Expect(mtc.Ref()).To(Equal(port.MTCComponent))
		Expect(ptc.Ref()).To(Equal(port.FirstPTC))
		Expect(other.Ref()).To(Equal(port.FirstPTC + 1))

		found, ok := r.Lookup(port.FirstPTC + 1)
		Expect(ok).To(BeTrue())
		Expect(found).To(BeIdenticalTo(other))

		_, ok = r.Lookup(port.SystemComponent)
		Expect(ok).To(BeFalse())
	})

	It("should not create two components with one name", func() {
		Expect(func() { r.Create("Client") }).To(Panic())
	})

	It("should name ports after their component", func() {
		p := ptc.GetPortByName("pco")

		Expect(p.Name()).To(Equal("Client.pco"))
		Expect(p.Owner()).To(Equal(port.FirstPTC))
		Expect(func() { ptc.GetPortByName("nope") }).To(Panic())
	})

	It("should carry messages between connected components", func() {
		r.Connect(mtc, "pco", ptc, "pco")
		mtc.Start()
		ptc.Start()

		Expect(mtc.GetPortByName("pco").
			Send("Pdu", "hello", port.To(ptc.Ref()))).To(Succeed())

		var sender port.ComponentRef
		res, err := ptc.GetPortByName("pco").Receive(port.ProbeOptions{
			Sender: &sender,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(port.Matched))
		Expect(sender).To(Equal(port.MTCComponent))
	})

	It("should disconnect", func() {
		r.Connect(mtc, "pco", ptc, "pco")
		r.Disconnect(mtc, "pco", ptc, "pco")
		mtc.Start()

		err := mtc.GetPortByName("pco").Send("Pdu", 1, port.To(ptc.Ref()))

		Expect(errors.Is(err, port.ErrNotConnected)).To(BeTrue())
	})

	It("should map ports to the system", func() {
		adapter := NewMockSystemAdapter(mockCtrl)
		p := ptc.GetPortByName("pco")
		adapter.EXPECT().Outgoing(p, "Pdu", 1, port.ToSystem()).Return(nil)

		Expect(r.Map(ptc, "pco", adapter)).To(Succeed())
		Expect(errors.Is(r.Map(ptc, "pco", adapter), port.ErrAlreadyMapped)).
			To(BeTrue())
		ptc.Start()

		Expect(p.Send("Pdu", 1, port.ToSystem())).To(Succeed())

		r.Unmap(ptc, "pco")
		Expect(errors.Is(p.Send("Pdu", 1, port.ToSystem()), port.ErrNotMapped)).
			To(BeTrue())
	})

	It("should terminate components", func() {
		r.Connect(mtc, "pco", ptc, "pco")
		ptc.Start()

		Expect(r.Terminate(ptc.Ref())).To(Succeed())
		Expect(ptc.Alive()).To(BeFalse())
		Expect(ptc.GetPortByName("pco").Started()).To(BeFalse())

		Expect(r.Terminate(port.FirstPTC + 7)).NotTo(Succeed())

		r.TerminateAll()
		Expect(mtc.Alive()).To(BeFalse())
	})

	It("should list ports of all components", func() {
		ports := r.Ports()

		Expect(ports).To(HaveLen(2))
		Expect(ports[0].Name()).To(Equal("mtc.pco"))
	})
})

var _ = Describe("DirectConnection", func() {
	var (
		r        *Registry
		mtc, ptc *Component
		types    *codec.TypeRegistry
	)

	BeforeEach(func() {
		types = codec.NewTypeRegistry()
		types.MustRegisterType("Location", location{})
		r = NewRegistry()
		r.SetConnectionBuilder(MakeDirectConnectionBuilder().
			WithCodec(codec.NewCBORCodec(), types, nil))
		mtc = r.MTC()
		ptc = r.Create("Tracker")
		mtc.BuildPort(port.MakeBuilder().WithDeclaration(pcoType), "pco")
		ptc.BuildPort(port.MakeBuilder().WithDeclaration(pcoType), "pco")
	})

	It("should deliver a decoded copy of the value", func() {
		conn := r.Connect(mtc, "pco", ptc, "pco")
		var forwarded []port.PeerMessage
		conn.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			forwarded = append(forwarded, ctx.Item.(port.PeerMessage))
		}))
		mtc.Start()
		ptc.Start()
		sent := location{Cell: "A1", Lac: 42}

		Expect(mtc.GetPortByName("pco").
			Send("Location", sent, port.To(ptc.Ref()))).To(Succeed())

		var v any
		res, _ := ptc.GetPortByName("pco").Receive(port.ProbeOptions{Value: &v})
		Expect(res).To(Equal(port.Matched))
		Expect(v).To(Equal(sent))
		Expect(forwarded).To(HaveLen(1))
		Expect(forwarded[0].Payload).NotTo(BeEmpty())
	})

	It("should serialize procedure values", func() {
		r.Connect(mtc, "pco", ptc, "pco")
		mtc.Start()
		ptc.Start()

		Expect(mtc.GetPortByName("pco").
			Call("Locate", "A1", port.To(ptc.Ref()))).To(Succeed())

		var v any
		res, _ := ptc.GetPortByName("pco").GetCall(port.ProcedureOptions{
			Signature:    "Locate",
			ProbeOptions: port.ProbeOptions{Value: &v},
		})
		Expect(res).To(Equal(port.Matched))
		Expect(v).To(Equal("A1"))
	})
})
