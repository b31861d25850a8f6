package component

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/sarchlab/ttcnport/codec"
	"github.com/sarchlab/ttcnport/hooking"
	"github.com/sarchlab/ttcnport/port"
)

// HookPosConnForward marks a value passed from one port to a peer port. The
// Item is the PeerMessage or PeerProcedure as delivered.
var HookPosConnForward = &hooking.HookPos{Name: "Conn Forward"}

// DirectConnection connects ports of components running in the same
// process. Delivery happens immediately.
type DirectConnection struct {
	hooking.HookableBase

	name  string
	codec codec.Codec
	types *codec.TypeRegistry
	opts  codec.Options
}

// DirectConnectionBuilder builds direct connections.
type DirectConnectionBuilder struct {
	codec codec.Codec
	types *codec.TypeRegistry
	opts  codec.Options
}

// MakeDirectConnectionBuilder creates a builder of connections that pass
// values as they are.
func MakeDirectConnectionBuilder() DirectConnectionBuilder {
	return DirectConnectionBuilder{}
}

// WithCodec makes the connections serialize every value and deliver the
// decoded copy. Types found in the registry are decoded as registered;
// others are decoded into the type of the sent value.
func (b DirectConnectionBuilder) WithCodec(
	c codec.Codec,
	types *codec.TypeRegistry,
	opts codec.Options,
) DirectConnectionBuilder {
	b.codec = c
	b.types = types
	b.opts = opts

	return b
}

// Build creates a connection.
func (b DirectConnectionBuilder) Build(name string) *DirectConnection {
	return &DirectConnection{
		name:  name,
		codec: b.codec,
		types: b.types,
		opts:  b.opts,
	}
}

// Name returns the name of the connection.
func (c *DirectConnection) Name() string {
	return c.name
}

// ForwardMessage delivers a message to the destination port.
func (c *DirectConnection) ForwardMessage(dst *port.Port, msg port.PeerMessage) error {
	if c.codec != nil && msg.Value != nil {
		payload, value, err := c.roundTrip(msg.TypeTag, msg.Value)
		if err != nil {
			return err
		}

		msg.Payload = payload
		msg.Value = value
	}

	c.invoke(msg, dst)

	return dst.Deliver(msg)
}

// ForwardProcedure delivers a procedure item to the destination port.
func (c *DirectConnection) ForwardProcedure(dst *port.Port, proc port.PeerProcedure) error {
	if c.codec != nil && proc.Value != nil {
		payload, value, err := c.roundTrip("", proc.Value)
		if err != nil {
			return err
		}

		proc.Payload = payload
		proc.Value = value
	}

	c.invoke(proc, dst)

	return dst.DeliverProcedure(proc)
}

func (c *DirectConnection) roundTrip(descriptor string, v any) ([]byte, any, error) {
	buf := new(bytes.Buffer)
	if err := c.codec.Encode(buf, v, c.opts); err != nil {
		return nil, nil, &codec.EncodeError{
			Encoding: c.codec.Name(), Descriptor: descriptor, Err: err,
		}
	}

	payload := buf.Bytes()

	ptr, err := c.newValue(descriptor, v)
	if err != nil {
		return nil, nil, err
	}

	err = c.codec.Decode(bytes.NewReader(payload), ptr, c.opts)
	if err != nil {
		return nil, nil, &codec.DecodeError{
			Encoding: c.codec.Name(), Descriptor: descriptor, Err: err,
		}
	}

	return payload, codec.Deref(ptr), nil
}

func (c *DirectConnection) newValue(descriptor string, v any) (any, error) {
	if c.types != nil && descriptor != "" && c.types.Has(descriptor) {
		return c.types.New(descriptor)
	}

	t := reflect.TypeOf(v)
	if t == nil {
		return nil, fmt.Errorf("connection %s: cannot serialize nil", c.name)
	}

	return reflect.New(t).Interface(), nil
}

func (c *DirectConnection) invoke(item any, dst *port.Port) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosConnForward,
		Item:   item,
		Detail: dst.Name(),
	})
}

var _ port.Connection = (*DirectConnection)(nil)
