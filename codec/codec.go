// Package codec defines the built-in codec contract used by the Encode and
// Decode mapping targets, and the codecs shipped with the runtime.
//
// Only the success/failure contract of a codec matters to the port: a codec
// that reports no error produced a value (or bytes) that is handed on, a codec
// that reports an error makes the translation pipeline try its next target.
package codec

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownEncoding is returned when no codec is registered for an
	// encoding name.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrUnknownDescriptor is returned when a type descriptor has not been
	// registered.
	ErrUnknownDescriptor = errors.New("unknown type descriptor")
)

// Options carries encoding variants, such as "canonical" or "strict".
type Options map[string]string

// Has returns true if the option is present and not "false".
func (o Options) Has(key string) bool {
	v, ok := o[key]
	return ok && v != "false"
}

// ErrorBehavior decides what a failed encoding does to the caller.
type ErrorBehavior int

const (
	// ErrorBehaviorError reports the failure as an error.
	ErrorBehaviorError ErrorBehavior = iota

	// ErrorBehaviorWarning reports the failure as a warning only.
	ErrorBehaviorWarning

	// ErrorBehaviorIgnore silently ignores the failure.
	ErrorBehaviorIgnore
)

func (b ErrorBehavior) String() string {
	switch b {
	case ErrorBehaviorError:
		return "ERROR"
	case ErrorBehaviorWarning:
		return "WARNING"
	case ErrorBehaviorIgnore:
		return "IGNORE"
	default:
		return fmt.Sprintf("ErrorBehavior(%d)", int(b))
	}
}

// ParseErrorBehavior parses "ERROR", "WARNING" or "IGNORE". An empty string
// means ERROR.
func ParseErrorBehavior(s string) (ErrorBehavior, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ERROR":
		return ErrorBehaviorError, nil
	case "WARNING":
		return ErrorBehaviorWarning, nil
	case "IGNORE":
		return ErrorBehaviorIgnore, nil
	default:
		return ErrorBehaviorError, fmt.Errorf("invalid error behavior %q", s)
	}
}

// A Codec converts between values and bytes.
type Codec interface {
	// Name returns the encoding name, e.g. "CBOR".
	Name() string

	// Encode writes the encoding of v into w.
	Encode(w io.Writer, v any, opts Options) error

	// Decode reads one complete encoded value from r into the value that
	// into points to. Trailing bytes are an error.
	Decode(r io.Reader, into any, opts Options) error
}

// DecodeError reports that a codec failed to decode its input.
type DecodeError struct {
	Encoding   string
	Descriptor string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s as %s: %v", e.Descriptor, e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports that a codec failed to encode a value.
type EncodeError struct {
	Encoding   string
	Descriptor string
	Err        error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoding %s as %s: %v", e.Descriptor, e.Encoding, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// A Registry looks codecs up by encoding name. Names are case-insensitive.
type Registry struct {
	lock   sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// DefaultRegistry creates a registry with the CBOR, JSON and GOB codecs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewCBORCodec())
	r.Register(NewJSONCodec())
	r.Register(NewGobCodec())

	return r
}

// Register adds a codec. Registering the same name twice panics.
func (r *Registry) Register(c Codec) {
	r.lock.Lock()
	defer r.lock.Unlock()

	key := strings.ToUpper(c.Name())
	if _, found := r.codecs[key]; found {
		panic("codec " + key + " already registered")
	}

	r.codecs[key] = c
}

// Lookup returns the codec for the encoding.
func (r *Registry) Lookup(encoding string) (Codec, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	c, found := r.codecs[strings.ToUpper(encoding)]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, encoding)
	}

	return c, nil
}

// Encodings lists the registered encoding names in sorted order.
func (r *Registry) Encodings() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	names := make([]string, 0, len(r.codecs))
	for n := range r.codecs {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}
