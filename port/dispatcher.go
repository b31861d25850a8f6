package port

import (
	"fmt"
	"slices"

	"github.com/sarchlab/ttcnport/translation"
)

// A Destination selects where outbound traffic goes. The zero value leaves
// the choice to the port, which then needs exactly one connection or
// mapping.
type Destination struct {
	Component  ComponentRef
	Address    any
	HasAddress bool
}

// To addresses a component.
func To(ref ComponentRef) Destination {
	return Destination{Component: ref}
}

// ToSystem addresses the system under test.
func ToSystem() Destination {
	return Destination{Component: SystemComponent}
}

// ToAddress addresses one endpoint of the system under test.
func ToAddress(addr any) Destination {
	return Destination{Component: SystemComponent, Address: addr, HasAddress: true}
}

func (d Destination) String() string {
	if d.HasAddress {
		return fmt.Sprintf("%s(%v)", d.Component, d.Address)
	}

	if d.Component == NullComponent {
		return "implicit"
	}

	return d.Component.String()
}

// A Connection carries traffic from a port to a connected peer port.
type Connection interface {
	Name() string
	ForwardMessage(dst *Port, msg PeerMessage) error
	ForwardProcedure(dst *Port, proc PeerProcedure) error
}

// A SystemAdapter carries traffic from a mapped port to the system under
// test.
type SystemAdapter interface {
	Outgoing(p *Port, typeTag string, value any, dest Destination) error
	OutgoingProcedure(p *Port, env *ProcedureEnvelope, dest Destination) error
}

// Route tells how an outbound value left the port.
type Route int

// The routes.
const (
	// RoutePeer is direct delivery to a connected component.
	RoutePeer Route = iota

	// RouteSystem is the native path of the system adapter.
	RouteSystem

	// RouteTranslated is the output of the outbound mapping rules, passed to
	// the system adapter.
	RouteTranslated

	// RoutePartner is a value handed to a provider port in translation mode.
	RoutePartner
)

func (r Route) String() string {
	switch r {
	case RoutePeer:
		return "peer"
	case RouteSystem:
		return "system"
	case RouteTranslated:
		return "translated"
	case RoutePartner:
		return "partner"
	default:
		return fmt.Sprintf("Route(%d)", int(r))
	}
}

// Dispatch is the Detail of the HookPosPortSend hook.
type Dispatch struct {
	Route       Route
	Destination Destination
	TypeTag     string
}

// Connect connects the port to a port of the peer component. It panics if
// the port is already connected to that component.
func (p *Port) Connect(peer ComponentRef, remote *Port, conn Connection) {
	if !peer.Bound() || peer == SystemComponent {
		panic(fmt.Sprintf("cannot connect %s to %s", p.name, peer))
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if l, found := p.peers[peer]; found {
		panic(fmt.Sprintf(
			"port %s already connected to %s through %s",
			p.name, peer, l.conn.Name(),
		))
	}

	p.peers[peer] = peerLink{remote: remote, conn: conn}
}

// Disconnect removes the connection to the peer component.
func (p *Port) Disconnect(peer ComponentRef) {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.peers, peer)
}

// Connected reports whether the port is connected to the peer component.
func (p *Port) Connected(peer ComponentRef) bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	_, found := p.peers[peer]

	return found
}

// Map maps the port to the system under test. Mapping a port twice is an
// ErrAlreadyMapped error.
func (p *Port) Map(adapter SystemAdapter) error {
	if p.decl.Category == Internal {
		return p.fail("map", "", ErrInternalPort)
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if p.system != nil {
		return p.fail("map", "", ErrAlreadyMapped)
	}

	p.system = adapter

	return nil
}

// Unmap removes the mapping to the system under test.
func (p *Port) Unmap() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.system = nil
}

// MapPartner puts a user port in translation mode by adding a provider port
// that carries its system traffic. Provider traffic arriving from the system
// is translated by the user port.
func (p *Port) MapPartner(provider *Port) error {
	if p.decl.Category != User {
		return p.fail("map", "", fmt.Errorf(
			"%w: %s is a %s port, not a user port",
			ErrNotMapped, p.name, p.decl.Category))
	}

	if provider.decl.Category == Internal {
		return p.fail("map", "", ErrInternalPort)
	}

	provider.setUser(p)

	p.lock.Lock()
	p.partners = append(p.partners, provider)
	p.lock.Unlock()

	return nil
}

// Partners returns the provider ports mapped to a user port.
func (p *Port) Partners() []*Port {
	p.lock.Lock()
	defer p.lock.Unlock()

	return slices.Clone(p.partners)
}

func (p *Port) setUser(user *Port) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if user != nil && p.user != nil && p.user != user {
		panic(fmt.Sprintf("port %s already serves %s", p.name, p.user.name))
	}

	p.user = user
}

func (p *Port) removePartner(provider *Port) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.partners = slices.DeleteFunc(p.partners, func(q *Port) bool {
		return q == provider
	})
}

type target struct {
	system bool
	peer   peerLink
	dest   Destination
}

func (p *Port) resolve(dest Destination) (target, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	mapped := p.system != nil || len(p.partners) > 0

	switch {
	case dest.HasAddress:
		if !p.decl.HasAddress {
			return target{}, ErrAddressNotSupported
		}

		if !mapped {
			return target{}, ErrNotMapped
		}

		return target{system: true, dest: dest}, nil
	case dest.Component == SystemComponent:
		if !mapped {
			return target{}, ErrNotMapped
		}

		return target{system: true, dest: dest}, nil
	case dest.Component == NullComponent:
		return p.resolveImplicit(mapped)
	case !dest.Component.Bound():
		return target{}, ErrUnboundDestination
	}

	l, found := p.peers[dest.Component]
	if !found {
		return target{}, ErrNotConnected
	}

	return target{peer: l, dest: dest}, nil
}

func (p *Port) resolveImplicit(mapped bool) (target, error) {
	n := len(p.peers)
	if mapped {
		n++
	}

	switch {
	case n == 0:
		return target{}, ErrNotConnected
	case n > 1:
		return target{}, ErrAmbiguousDestination
	case mapped:
		return target{system: true, dest: ToSystem()}, nil
	}

	for ref, l := range p.peers {
		return target{peer: l, dest: To(ref)}, nil
	}

	panic("unreachable")
}

// Send sends a message. Peer components get the value as it is. The system
// gets the outputs of the outbound mapping rule of the type, or the value
// itself through the native adapter path when the type has no rule.
func (p *Port) Send(typeTag string, value any, dest Destination) error {
	const op = "send"

	if !p.Started() {
		return p.fail(op, typeTag, ErrPortNotStarted)
	}

	if !p.decl.AcceptsOut(typeTag) {
		return p.fail(op, typeTag, ErrTypeNotAllowed)
	}

	t, err := p.resolve(dest)
	if err != nil {
		return p.fail(op, typeTag, err)
	}

	if t.system {
		return p.sendToSystem(typeTag, value, t.dest)
	}

	p.invoke(HookPosPortSend, value, Dispatch{
		Route: RoutePeer, Destination: t.dest, TypeTag: typeTag,
	})

	err = t.peer.conn.ForwardMessage(t.peer.remote, PeerMessage{
		TypeTag: typeTag,
		Value:   value,
		Sender:  p.owner,
	})
	if err != nil {
		return p.fail(op, typeTag, err)
	}

	return nil
}

func (p *Port) sendToSystem(typeTag string, value any, dest Destination) error {
	const op = "send"

	p.lock.Lock()
	adapter := p.system
	partners := slices.Clone(p.partners)
	p.lock.Unlock()

	if len(partners) > 0 {
		return p.sendThroughPartners(partners, typeTag, value, dest)
	}

	if adapter == nil {
		return p.fail(op, typeTag, ErrNotMapped)
	}

	if !p.pipeline.HasRule(translation.Outbound, typeTag) {
		p.invoke(HookPosPortSend, value, Dispatch{
			Route: RouteSystem, Destination: dest, TypeTag: typeTag,
		})

		if err := adapter.Outgoing(p, typeTag, value, dest); err != nil {
			return p.fail(op, typeTag, err)
		}

		return nil
	}

	res, err := p.pipeline.Translate(translation.Outbound, typeTag, value)
	if err != nil {
		return p.fail(op, typeTag, err)
	}

	for _, out := range res.Outputs {
		p.invoke(HookPosPortSend, out.Value, Dispatch{
			Route: RouteTranslated, Destination: dest, TypeTag: out.TypeTag,
		})

		if err := adapter.Outgoing(p, out.TypeTag, out.Value, dest); err != nil {
			return p.fail(op, out.TypeTag, err)
		}
	}

	return nil
}

func (p *Port) sendThroughPartners(
	partners []*Port,
	typeTag string,
	value any,
	dest Destination,
) error {
	const op = "send"

	outputs := []translation.Output{{TypeTag: typeTag, Value: value}}

	if p.pipeline.HasRule(translation.Outbound, typeTag) {
		res, err := p.pipeline.Translate(translation.Outbound, typeTag, value)
		if err != nil {
			return p.fail(op, typeTag, err)
		}

		outputs = res.Outputs
	}

	for _, out := range outputs {
		i := slices.IndexFunc(partners, func(q *Port) bool {
			return q.decl.AcceptsOut(out.TypeTag)
		})
		if i < 0 {
			return p.fail(op, out.TypeTag, ErrNotMapped)
		}

		partner := partners[i]
		if !partner.Started() {
			return partner.fail(op, out.TypeTag, ErrPortNotStarted)
		}

		p.invoke(HookPosPortSend, out.Value, Dispatch{
			Route: RoutePartner, Destination: dest, TypeTag: out.TypeTag,
		})

		if err := partner.sendToSystem(out.TypeTag, out.Value, dest); err != nil {
			return err
		}
	}

	return nil
}

// Call sends a call of the signature.
func (p *Port) Call(sig string, params any, dest Destination) error {
	return p.sendProcedure("call", Call, sig, "", params, dest)
}

// Reply sends the reply to a call of the signature.
func (p *Port) Reply(sig string, value any, dest Destination) error {
	return p.sendProcedure("reply", Reply, sig, "", value, dest)
}

// Raise sends an exception of the signature.
func (p *Port) Raise(sig, excType string, value any, dest Destination) error {
	return p.sendProcedure("raise", Exception, sig, excType, value, dest)
}

// sendProcedure routes procedure traffic. Procedures never go through the
// mapping rules.
func (p *Port) sendProcedure(
	op string,
	kind ProcedureKind,
	sig, excType string,
	value any,
	dest Destination,
) error {
	if !p.Started() {
		return p.fail(op, sig, ErrPortNotStarted)
	}

	if err := p.signatureAllows(sig, kind); err != nil {
		return p.fail(op, sig, err)
	}

	t, err := p.resolve(dest)
	if err != nil {
		return p.fail(op, sig, err)
	}

	if !t.system {
		p.invoke(HookPosPortSend, value, Dispatch{
			Route: RoutePeer, Destination: t.dest, TypeTag: sig,
		})

		err = t.peer.conn.ForwardProcedure(t.peer.remote, PeerProcedure{
			Kind:          kind,
			Signature:     sig,
			ExceptionType: excType,
			Value:         value,
			Sender:        p.owner,
		})
		if err != nil {
			return p.fail(op, sig, err)
		}

		return nil
	}

	env := &ProcedureEnvelope{
		EnvelopeMeta:  p.newMeta(p.owner, nil),
		Kind:          kind,
		Signature:     sig,
		ExceptionType: excType,
		Payload:       value,
	}

	return p.procedureToSystem(op, env, t.dest)
}

func (p *Port) procedureToSystem(op string, env *ProcedureEnvelope, dest Destination) error {
	p.lock.Lock()
	adapter := p.system
	partners := slices.Clone(p.partners)
	p.lock.Unlock()

	if len(partners) > 0 {
		i := slices.IndexFunc(partners, func(q *Port) bool {
			_, ok := q.decl.Signature(env.Signature)
			return ok
		})
		if i < 0 {
			return p.fail(op, env.Signature, ErrNotMapped)
		}

		p.invoke(HookPosPortSend, env, Dispatch{
			Route: RoutePartner, Destination: dest, TypeTag: env.Signature,
		})

		return partners[i].procedureToSystem(op, env, dest)
	}

	if adapter == nil {
		return p.fail(op, env.Signature, ErrNotMapped)
	}

	p.invoke(HookPosPortSend, env, Dispatch{
		Route: RouteSystem, Destination: dest, TypeTag: env.Signature,
	})

	if err := adapter.OutgoingProcedure(p, env, dest); err != nil {
		return p.fail(op, env.Signature, err)
	}

	return nil
}

func (p *Port) signatureAllows(sig string, kind ProcedureKind) error {
	s, found := p.decl.Signature(sig)
	if !found {
		return ErrUnknownSignature
	}

	switch {
	case kind == Exception && !s.HasException:
		return fmt.Errorf("%w: %s raises no exceptions", ErrUnknownSignature, sig)
	case kind == Reply && s.NonBlocking:
		return fmt.Errorf("%w: %s is non-blocking", ErrUnknownSignature, sig)
	}

	return nil
}

// Deliver enqueues a message arriving from a peer component.
func (p *Port) Deliver(msg PeerMessage) error {
	return p.enqueueMessage("deliver", msg.TypeTag, msg.Value, msg.Sender, nil)
}

// DeliverProcedure enqueues a procedure item arriving from a peer component.
func (p *Port) DeliverProcedure(proc PeerProcedure) error {
	return p.enqueueProcedure("deliver", proc.Kind, proc.Signature,
		proc.ExceptionType, proc.Value, proc.Sender, nil)
}

// Incoming accepts a message from the system under test. When the type has
// an inbound mapping rule, every output of the rule is enqueued. A provider
// port in translation mode passes the message to its user port. The address
// is nil when the transport supplied none.
func (p *Port) Incoming(typeTag string, value any, addr any) error {
	if addr != nil && !p.decl.HasAddress {
		return p.reject("incoming", typeTag, ErrAddressNotSupported)
	}

	if user := p.userPort(); user != nil {
		return user.incomingMessage(typeTag, value, addr)
	}

	return p.incomingMessage(typeTag, value, addr)
}

func (p *Port) userPort() *Port {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.user
}

func (p *Port) incomingMessage(typeTag string, value any, addr any) error {
	const op = "incoming"

	if !p.accepting() {
		return p.reject(op, typeTag, ErrPortNotStarted)
	}

	if !p.pipeline.HasRule(translation.Inbound, typeTag) {
		return p.enqueueMessage(op, typeTag, value, SystemComponent, addr)
	}

	res, err := p.pipeline.Translate(translation.Inbound, typeTag, value)
	if err != nil {
		return p.reject(op, typeTag, err)
	}

	for _, out := range res.Outputs {
		err := p.enqueueMessage(op, out.TypeTag, out.Value, SystemComponent, addr)
		if err != nil {
			return err
		}
	}

	return nil
}

// IncomingCall accepts a call from the system under test.
func (p *Port) IncomingCall(sig string, params any, addr any) error {
	return p.incomingProcedure(Call, sig, "", params, addr)
}

// IncomingReply accepts a reply from the system under test.
func (p *Port) IncomingReply(sig string, value any, addr any) error {
	return p.incomingProcedure(Reply, sig, "", value, addr)
}

// IncomingException accepts an exception from the system under test.
func (p *Port) IncomingException(sig, excType string, value any, addr any) error {
	return p.incomingProcedure(Exception, sig, excType, value, addr)
}

func (p *Port) incomingProcedure(
	kind ProcedureKind,
	sig, excType string,
	value any,
	addr any,
) error {
	if addr != nil && !p.decl.HasAddress {
		return p.reject("incoming", sig, ErrAddressNotSupported)
	}

	dst := p
	if user := p.userPort(); user != nil {
		dst = user
	}

	return dst.enqueueProcedure("incoming", kind, sig, excType, value,
		SystemComponent, addr)
}

func (p *Port) enqueueMessage(
	op, typeTag string,
	value any,
	sender ComponentRef,
	addr any,
) error {
	if !p.accepting() {
		return p.reject(op, typeTag, ErrPortNotStarted)
	}

	if !p.decl.AcceptsIn(typeTag) {
		return p.reject(op, typeTag, ErrTypeNotAllowed)
	}

	env := &MessageEnvelope{
		EnvelopeMeta: p.newMeta(sender, addr),
		TypeTag:      typeTag,
		Payload:      value,
	}

	p.msgQueue.Push(env)
	p.invoke(HookPosPortDeliver, env, op)

	return nil
}

func (p *Port) enqueueProcedure(
	op string,
	kind ProcedureKind,
	sig, excType string,
	value any,
	sender ComponentRef,
	addr any,
) error {
	if !p.accepting() {
		return p.reject(op, sig, ErrPortNotStarted)
	}

	if _, found := p.decl.Signature(sig); !found {
		return p.reject(op, sig, ErrUnknownSignature)
	}

	env := &ProcedureEnvelope{
		EnvelopeMeta:  p.newMeta(sender, addr),
		Kind:          kind,
		Signature:     sig,
		ExceptionType: excType,
		Payload:       value,
	}

	p.procQueue.Push(env)
	p.invoke(HookPosPortDeliver, env, op)

	return nil
}

func (p *Port) reject(op, typeTag string, err error) error {
	err = p.fail(op, typeTag, err)
	p.invoke(HookPosPortReject, nil, err)

	return err
}
