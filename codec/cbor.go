package codec

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

type cborCodec struct {
	encMode       cbor.EncMode
	canonicalMode cbor.EncMode
	decMode       cbor.DecMode
	strictMode    cbor.DecMode
}

// NewCBORCodec creates the CBOR codec. Supported options are "canonical"
// (core deterministic encoding) and "strict" (reject duplicate map keys and
// unknown struct fields).
func NewCBORCodec() Codec {
	c := &cborCodec{}

	c.encMode = mustEncMode(cbor.EncOptions{})
	c.canonicalMode = mustEncMode(cbor.CoreDetEncOptions())
	c.decMode = mustDecMode(cbor.DecOptions{})
	c.strictMode = mustDecMode(cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	})

	return c
}

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}

	return em
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic(err)
	}

	return dm
}

func (c *cborCodec) Name() string {
	return "CBOR"
}

func (c *cborCodec) Encode(w io.Writer, v any, opts Options) error {
	em := c.encMode
	if opts.Has("canonical") {
		em = c.canonicalMode
	}

	return em.NewEncoder(w).Encode(v)
}

func (c *cborCodec) Decode(r io.Reader, into any, opts Options) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	dm := c.decMode
	if opts.Has("strict") {
		dm = c.strictMode
	}

	return dm.Unmarshal(data, into)
}
