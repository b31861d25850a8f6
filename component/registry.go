package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sarchlab/ttcnport/naming"
	"github.com/sarchlab/ttcnport/port"
)

// A Registry allocates component references and wires the ports of the
// components it created.
type Registry struct {
	lock        sync.Mutex
	next        port.ComponentRef
	comps       map[port.ComponentRef]*Component
	byName      map[string]*Component
	connBuilder DirectConnectionBuilder
	conns       []*DirectConnection
}

// NewRegistry creates a registry that holds the MTC.
func NewRegistry() *Registry {
	r := &Registry{
		next:        port.FirstPTC,
		comps:       make(map[port.ComponentRef]*Component),
		byName:      make(map[string]*Component),
		connBuilder: MakeDirectConnectionBuilder(),
	}

	mtc := newComponent(port.MTCComponent, "mtc")
	r.comps[mtc.ref] = mtc
	r.byName[mtc.name] = mtc

	return r
}

// SetConnectionBuilder sets how the connections made by Connect are built.
func (r *Registry) SetConnectionBuilder(b DirectConnectionBuilder) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.connBuilder = b
}

// MTC returns the main test component.
func (r *Registry) MTC() *Component {
	c, _ := r.Lookup(port.MTCComponent)
	return c
}

// Create creates a parallel test component. It panics if the name is
// invalid or taken.
func (r *Registry) Create(name string) *Component {
	naming.NameMustBeValid(name)

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, found := r.byName[name]; found {
		panic(fmt.Sprintf("component %s already exists", name))
	}

	c := newComponent(r.next, name)
	r.next++
	r.comps[c.ref] = c
	r.byName[name] = c

	return c
}

// Lookup finds a component by reference.
func (r *Registry) Lookup(ref port.ComponentRef) (*Component, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	c, found := r.comps[ref]

	return c, found
}

// LookupByName finds a component by name.
func (r *Registry) LookupByName(name string) (*Component, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	c, found := r.byName[name]

	return c, found
}

// Components returns all the components, ordered by reference.
func (r *Registry) Components() []*Component {
	r.lock.Lock()
	defer r.lock.Unlock()

	list := make([]*Component, 0, len(r.comps))
	for _, c := range r.comps {
		list = append(list, c)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ref < list[j].ref })

	return list
}

// Ports returns the ports of all the components.
func (r *Registry) Ports() []*port.Port {
	var list []*port.Port
	for _, c := range r.Components() {
		list = append(list, c.Ports()...)
	}

	return list
}

// Connect connects a port of one component with a port of another through a
// new direct connection.
func (r *Registry) Connect(
	a *Component, portA string,
	b *Component, portB string,
) *DirectConnection {
	pa := a.GetPortByName(portA)
	pb := b.GetPortByName(portB)

	r.lock.Lock()
	conn := r.connBuilder.Build(pa.Name() + "<->" + pb.Name())
	r.conns = append(r.conns, conn)
	r.lock.Unlock()

	pa.Connect(b.ref, pb, conn)
	pb.Connect(a.ref, pa, conn)

	return conn
}

// Disconnect removes the connection between two ports.
func (r *Registry) Disconnect(
	a *Component, portA string,
	b *Component, portB string,
) {
	a.GetPortByName(portA).Disconnect(b.ref)
	b.GetPortByName(portB).Disconnect(a.ref)
}

// Connections returns the connections made by Connect.
func (r *Registry) Connections() []*DirectConnection {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]*DirectConnection(nil), r.conns...)
}

// Map maps a port of a component to the system under test.
func (r *Registry) Map(c *Component, portName string, adapter port.SystemAdapter) error {
	return c.GetPortByName(portName).Map(adapter)
}

// Unmap removes the mapping of a port.
func (r *Registry) Unmap(c *Component, portName string) {
	c.GetPortByName(portName).Unmap()
}

// Terminate terminates the component with the reference.
func (r *Registry) Terminate(ref port.ComponentRef) error {
	c, found := r.Lookup(ref)
	if !found {
		return fmt.Errorf("component %s: %w", ref, port.ErrUnboundDestination)
	}

	c.Terminate()

	return nil
}

// TerminateAll terminates every component.
func (r *Registry) TerminateAll() {
	for _, c := range r.Components() {
		c.Terminate()
	}
}
