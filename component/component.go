// Package component manages test components, the ports they own, and the
// connections between them.
package component

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/sarchlab/ttcnport/naming"
	"github.com/sarchlab/ttcnport/port"
)

// A Component is a test component. It owns ports and is the sender of
// everything sent through them.
type Component struct {
	lock  sync.Mutex
	ref   port.ComponentRef
	name  string
	ports map[string]*port.Port
	alive bool
}

func newComponent(ref port.ComponentRef, name string) *Component {
	return &Component{
		ref:   ref,
		name:  name,
		ports: make(map[string]*port.Port),
		alive: true,
	}
}

// Ref returns the reference of the component.
func (c *Component) Ref() port.ComponentRef {
	return c.ref
}

// Name returns the name of the component.
func (c *Component) Name() string {
	return c.name
}

// Alive reports whether the component has not been terminated.
func (c *Component) Alive() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.alive
}

// BuildPort builds a port owned by the component and adds it under the
// given name.
func (c *Component) BuildPort(b port.Builder, name string) *port.Port {
	p := b.WithOwner(c.ref).Build(naming.BuildName(c.name, name))
	c.AddPort(name, p)

	return p
}

// AddPort adds a port with a given name. It panics if the name is taken or
// the port belongs to another component.
func (c *Component) AddPort(name string, p *port.Port) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, found := c.ports[name]; found {
		panic("port already exist")
	}

	if p.Owner() != c.ref {
		panic(fmt.Sprintf("port %s is owned by %s, not %s",
			p.Name(), p.Owner(), c.ref))
	}

	c.ports[name] = p
}

// GetPortByName returns the port according to the name of the port. This
// function panics when the given name is not found.
func (c *Component) GetPortByName(name string) *port.Port {
	c.lock.Lock()
	defer c.lock.Unlock()

	p, found := c.ports[name]
	if !found {
		errMsg := fmt.Sprintf("Port %s is not available in %s.\n", name, c.name)
		errMsg += "Available ports include:\n"
		for n := range c.ports {
			errMsg += fmt.Sprintf("\t%s\n", n)
		}
		fmt.Fprint(os.Stderr, errMsg)

		panic("port not found")
	}

	return p
}

// Ports returns the ports of the component, sorted by name.
func (c *Component) Ports() []*port.Port {
	c.lock.Lock()
	defer c.lock.Unlock()

	names := make([]string, 0, len(c.ports))
	for k := range c.ports {
		names = append(names, k)
	}

	sort.Strings(names)

	list := make([]*port.Port, 0, len(c.ports))
	for _, n := range names {
		list = append(list, c.ports[n])
	}

	return list
}

// Start starts all the ports.
func (c *Component) Start() {
	for _, p := range c.Ports() {
		p.Start()
	}
}

// Stop stops all the ports.
func (c *Component) Stop() {
	for _, p := range c.Ports() {
		p.Stop()
	}
}

// Terminate terminates all the ports. A terminated component cannot be
// restarted.
func (c *Component) Terminate() {
	c.lock.Lock()
	c.alive = false
	c.lock.Unlock()

	for _, p := range c.Ports() {
		p.Terminate()
	}
}
