// Package port implements the mailbox of a test component port: the message
// and procedure queues, the probe operations that match their heads, and the
// dispatcher that routes outbound traffic to peers or to the system.
package port

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sarchlab/ttcnport/codec"
	"github.com/sarchlab/ttcnport/hooking"
	"github.com/sarchlab/ttcnport/id"
	"github.com/sarchlab/ttcnport/naming"
	"github.com/sarchlab/ttcnport/queueing"
	"github.com/sarchlab/ttcnport/translation"
)

var (
	// HookPosPortStateChange marks a lifecycle operation. The Detail is the
	// name of the operation.
	HookPosPortStateChange = &hooking.HookPos{Name: "Port State Change"}

	// HookPosPortDeliver marks an envelope entering a queue.
	HookPosPortDeliver = &hooking.HookPos{Name: "Port Deliver"}

	// HookPosPortReject marks inbound traffic that was refused. The Detail is
	// the error.
	HookPosPortReject = &hooking.HookPos{Name: "Port Reject"}

	// HookPosPortSend marks an outbound routing decision. The Detail is a
	// Dispatch.
	HookPosPortSend = &hooking.HookPos{Name: "Port Send"}

	// HookPosProbeMatched marks a probe that matched the head envelope.
	HookPosProbeMatched = &hooking.HookPos{Name: "Probe Matched"}

	// HookPosProbeNotStarted marks a probe on an empty queue of a port that
	// is not started.
	HookPosProbeNotStarted = &hooking.HookPos{Name: "Probe Not Started"}
)

// A Clock provides the timestamps of realtime ports.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

type peerLink struct {
	remote *Port
	conn   Connection
}

// A Port is one port instance of a test component.
type Port struct {
	hooking.HookableBase

	lock  sync.Mutex
	name  string
	decl  Declaration
	owner ComponentRef
	clock Clock
	idGen id.IDGenerator

	msgQueue  *queueing.Queue[*MessageEnvelope]
	procQueue *queueing.Queue[*ProcedureEnvelope]
	pipeline  *translation.Pipeline

	started bool
	halted  bool

	peers    map[ComponentRef]peerLink
	system   SystemAdapter
	partners []*Port
	user     *Port
}

// Builder builds ports.
type Builder struct {
	decl   Declaration
	owner  ComponentRef
	clock  Clock
	idGen  id.IDGenerator
	codecs *codec.Registry
	types  *codec.TypeRegistry
}

// MakeBuilder creates a builder for a regular port owned by the MTC.
func MakeBuilder() Builder {
	return Builder{
		owner: MTCComponent,
	}
}

// WithDeclaration sets the port type.
func (b Builder) WithDeclaration(d Declaration) Builder {
	b.decl = d
	return b
}

// WithOwner sets the component that owns the port. The owner is the sender
// of everything sent through the port.
func (b Builder) WithOwner(ref ComponentRef) Builder {
	b.owner = ref
	return b
}

// WithClock sets the clock that realtime ports use.
func (b Builder) WithClock(c Clock) Builder {
	b.clock = c
	return b
}

// WithIDGenerator sets the generator of envelope IDs.
func (b Builder) WithIDGenerator(g id.IDGenerator) Builder {
	b.idGen = g
	return b
}

// WithCodecs sets the codecs the mapping rules can use.
func (b Builder) WithCodecs(r *codec.Registry) Builder {
	b.codecs = r
	return b
}

// WithTypes sets the registry that decode targets allocate values from.
func (b Builder) WithTypes(r *codec.TypeRegistry) Builder {
	b.types = r
	return b
}

// Build creates a stopped port. It panics if the name or the declaration is
// invalid.
func (b Builder) Build(name string) *Port {
	naming.NameMustBeValid(name)

	if b.decl.Name == "" {
		b.decl.Name = "Port"
	}

	if err := b.decl.Validate(); err != nil {
		panic(err)
	}

	p := &Port{
		name:      name,
		decl:      b.decl,
		owner:     b.owner,
		clock:     b.clock,
		idGen:     b.idGen,
		msgQueue:  queueing.NewQueue[*MessageEnvelope](naming.BuildName(name, "MsgQueue")),
		procQueue: queueing.NewQueue[*ProcedureEnvelope](naming.BuildName(name, "ProcQueue")),
		peers:     make(map[ComponentRef]peerLink),
	}

	if p.clock == nil {
		p.clock = wallClock{}
	}

	if p.idGen == nil {
		p.idGen = id.GetIDGenerator()
	}

	pb := translation.MakePipelineBuilder().
		WithTranslating(b.decl.Translating()).
		WithCodecs(b.codecs).
		WithTypes(b.types)

	for _, r := range b.decl.Mapping.Out {
		pb = pb.WithOutRule(r)
	}

	for _, r := range b.decl.Mapping.In {
		pb = pb.WithInRule(r)
	}

	p.pipeline = pb.Build(name)

	return p
}

// Name returns the name of the port.
func (p *Port) Name() string {
	return p.name
}

// Declaration returns the port type.
func (p *Port) Declaration() Declaration {
	return p.decl
}

// Owner returns the component that owns the port.
func (p *Port) Owner() ComponentRef {
	return p.owner
}

// MessageQueue returns the queue of inbound messages.
func (p *Port) MessageQueue() *queueing.Queue[*MessageEnvelope] {
	return p.msgQueue
}

// ProcedureQueue returns the queue of inbound calls, replies and exceptions.
func (p *Port) ProcedureQueue() *queueing.Queue[*ProcedureEnvelope] {
	return p.procQueue
}

// Pipeline returns the translation pipeline of the port.
func (p *Port) Pipeline() *translation.Pipeline {
	return p.pipeline
}

// AcceptHook registers a hook on the port, its queues, and its pipeline, so
// that one hook observes everything that happens at the port.
func (p *Port) AcceptHook(hook hooking.Hook) {
	p.HookableBase.AcceptHook(hook)
	p.msgQueue.AcceptHook(hook)
	p.procQueue.AcceptHook(hook)
	p.pipeline.AcceptHook(hook)
}

func (p *Port) invoke(pos *hooking.HookPos, item, detail any) {
	if p.NumHooks() == 0 {
		return
	}

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}

// Start clears the queues and activates the port.
func (p *Port) Start() {
	p.lock.Lock()
	p.started = true
	p.halted = false
	p.lock.Unlock()

	p.msgQueue.Clear()
	p.procQueue.Clear()
	p.invoke(HookPosPortStateChange, nil, "start")
}

// Stop deactivates the port. The queued envelopes stay until the next Start
// or Clear.
func (p *Port) Stop() {
	p.lock.Lock()
	p.started = false
	p.halted = false
	p.lock.Unlock()

	p.invoke(HookPosPortStateChange, nil, "stop")
}

// Halt stops accepting new traffic while the queued envelopes can still be
// consumed.
func (p *Port) Halt() {
	p.lock.Lock()
	p.halted = true
	p.lock.Unlock()

	p.invoke(HookPosPortStateChange, nil, "halt")
}

// Clear removes every queued envelope.
func (p *Port) Clear() {
	p.msgQueue.Clear()
	p.procQueue.Clear()
	p.invoke(HookPosPortStateChange, nil, "clear")
}

// Terminate shuts the port down for good: queues and sliding buffer are
// emptied, peers are disconnected and mappings are removed. No matching or
// translation runs.
func (p *Port) Terminate() {
	p.lock.Lock()
	p.started = false
	p.halted = false
	p.peers = make(map[ComponentRef]peerLink)
	p.system = nil
	partners := p.partners
	p.partners = nil
	user := p.user
	p.user = nil
	p.lock.Unlock()

	for _, partner := range partners {
		partner.setUser(nil)
	}

	if user != nil {
		user.removePartner(p)
	}

	p.msgQueue.Clear()
	p.procQueue.Clear()
	p.pipeline.Reset()
	p.invoke(HookPosPortStateChange, nil, "terminate")
}

// Started reports whether the port is active.
func (p *Port) Started() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.started
}

// Halted reports whether the port was halted since its last start.
func (p *Port) Halted() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.halted
}

func (p *Port) accepting() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.started && !p.halted
}

// Status is a snapshot of the port for reports.
type Status struct {
	Name               string
	Type               string
	Category           string
	Owner              ComponentRef
	Started            bool
	Halted             bool
	MessageQueueSize   int
	ProcedureQueueSize int
	SlidingBufferSize  int
	Peers              []ComponentRef
	Mapped             bool
	Partners           []string
}

// Status returns a snapshot of the port.
func (p *Port) Status() Status {
	p.lock.Lock()
	s := Status{
		Name:     p.name,
		Type:     p.decl.Name,
		Category: p.decl.Category.String(),
		Owner:    p.owner,
		Started:  p.started,
		Halted:   p.halted,
		Mapped:   p.system != nil || len(p.partners) > 0,
	}

	for ref := range p.peers {
		s.Peers = append(s.Peers, ref)
	}

	for _, partner := range p.partners {
		s.Partners = append(s.Partners, partner.name)
	}
	p.lock.Unlock()

	sort.Slice(s.Peers, func(i, j int) bool { return s.Peers[i] < s.Peers[j] })
	s.MessageQueueSize = p.msgQueue.Size()
	s.ProcedureQueueSize = p.procQueue.Size()
	s.SlidingBufferSize = len(p.pipeline.SlidingBuffer())

	return s
}

func (p *Port) newMeta(sender ComponentRef, addr any) EnvelopeMeta {
	m := EnvelopeMeta{
		ID:     p.idGen.Generate(),
		Sender: sender,
	}

	if addr != nil {
		m.SenderAddress = addr
		m.HasAddress = true
	}

	if p.decl.Realtime {
		m.Timestamp = p.clock.Now()
		m.HasTimestamp = true
	}

	return m
}

func (p *Port) String() string {
	return fmt.Sprintf("%s(%s)", p.name, p.decl.Name)
}
