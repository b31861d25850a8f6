package codec

import (
	"fmt"
	"reflect"
	"sync"
)

// A TypeRegistry maps type descriptor ids to the Go types that decoding
// produces.
type TypeRegistry struct {
	lock sync.RWMutex

	types map[string]reflect.Type
}

// NewTypeRegistry creates a registry that knows the predefined types
// "boolean", "integer", "float", "charstring", "universal charstring" and
// "octetstring".
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types: map[string]reflect.Type{
			"boolean":              reflect.TypeOf(false),
			"integer":              reflect.TypeOf(int64(0)),
			"float":                reflect.TypeOf(float64(0)),
			"charstring":           reflect.TypeOf(""),
			"universal charstring": reflect.TypeOf(""),
			"octetstring":          reflect.TypeOf([]byte(nil)),
		},
	}
}

// RegisterType binds a descriptor to the type of example. The example may be
// a value or a pointer to a value.
func (r *TypeRegistry) RegisterType(descriptor string, example any) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	t := reflect.TypeOf(example)
	if t == nil {
		return fmt.Errorf("type %s: nil example", descriptor)
	}

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if _, ok := r.types[descriptor]; ok {
		return fmt.Errorf("type %s already registered", descriptor)
	}

	r.types[descriptor] = t

	return nil
}

// MustRegisterType is like RegisterType but panics on error.
func (r *TypeRegistry) MustRegisterType(descriptor string, example any) {
	if err := r.RegisterType(descriptor, example); err != nil {
		panic(err)
	}
}

// Has reports whether the descriptor is registered.
func (r *TypeRegistry) Has(descriptor string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	_, ok := r.types[descriptor]

	return ok
}

// New allocates a zero value of the descriptor's type and returns a pointer
// to it.
func (r *TypeRegistry) New(descriptor string) (any, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	t, ok := r.types[descriptor]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDescriptor, descriptor)
	}

	return reflect.New(t).Interface(), nil
}

// Deref returns the value a pointer created by New points to.
func Deref(ptr any) any {
	return reflect.ValueOf(ptr).Elem().Interface()
}
