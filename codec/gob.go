package codec

import (
	"encoding/gob"
	"errors"
	"io"
)

type gobCodec struct{}

// NewGobCodec creates a codec based on encoding/gob. It is only meaningful
// between Go processes.
func NewGobCodec() Codec {
	return gobCodec{}
}

func (gobCodec) Name() string {
	return "GOB"
}

func (gobCodec) Encode(w io.Writer, v any, _ Options) error {
	return gob.NewEncoder(w).Encode(v)
}

func (gobCodec) Decode(r io.Reader, into any, _ Options) error {
	if err := gob.NewDecoder(r).Decode(into); err != nil {
		return err
	}

	var probe [1]byte
	if n, _ := r.Read(probe[:]); n > 0 {
		return errors.New("gob: trailing data after value")
	}

	return nil
}
