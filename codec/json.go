package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

type jsonCodec struct{}

// NewJSONCodec creates the JSON codec. The "strict" option rejects unknown
// object members.
func NewJSONCodec() Codec {
	return jsonCodec{}
}

func (jsonCodec) Name() string {
	return "JSON"
}

func (jsonCodec) Encode(w io.Writer, v any, opts Options) error {
	enc := json.NewEncoder(w)
	if opts.Has("indent") {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(v)
}

func (jsonCodec) Decode(r io.Reader, into any, opts Options) error {
	dec := json.NewDecoder(r)
	if opts.Has("strict") {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(into); err != nil {
		return err
	}

	rest, err := io.ReadAll(dec.Buffered())
	if err != nil {
		return err
	}

	more, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if len(bytes.TrimSpace(rest)) > 0 || len(bytes.TrimSpace(more)) > 0 {
		return errors.New("json: trailing data after value")
	}

	return nil
}
