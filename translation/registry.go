package translation

import (
	"fmt"
	"sort"
	"sync"
)

// A FuncRegistry resolves translation functions by name, so that mapping
// rules can be declared in configuration files.
type FuncRegistry struct {
	lock      sync.RWMutex
	convert   map[string]ConvertFunc
	fast      map[string]FastFunc
	backtrack map[string]BacktrackFunc
	sliding   map[string]SlidingFunc
}

// NewFuncRegistry creates a registry that already holds the built-in
// functions.
func NewFuncRegistry() *FuncRegistry {
	r := &FuncRegistry{
		convert:   make(map[string]ConvertFunc),
		fast:      make(map[string]FastFunc),
		backtrack: make(map[string]BacktrackFunc),
		sliding:   make(map[string]SlidingFunc),
	}

	registerBuiltins(r)

	return r
}

func (r *FuncRegistry) mustBeNew(name string) {
	_, c := r.convert[name]
	_, f := r.fast[name]
	_, b := r.backtrack[name]
	_, s := r.sliding[name]

	if c || f || b || s {
		panic("translation function " + name + " already registered")
	}
}

// RegisterConvert registers a conversion function.
func (r *FuncRegistry) RegisterConvert(name string, f ConvertFunc) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.mustBeNew(name)
	r.convert[name] = f
}

// RegisterFast registers a fast function.
func (r *FuncRegistry) RegisterFast(name string, f FastFunc) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.mustBeNew(name)
	r.fast[name] = f
}

// RegisterBacktrack registers a backtracking function.
func (r *FuncRegistry) RegisterBacktrack(name string, f BacktrackFunc) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.mustBeNew(name)
	r.backtrack[name] = f
}

// RegisterSliding registers a sliding function.
func (r *FuncRegistry) RegisterSliding(name string, f SlidingFunc) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.mustBeNew(name)
	r.sliding[name] = f
}

// Target builds a Function target that calls the named function.
func (r *FuncRegistry) Target(
	strategy Strategy,
	name, outType string,
) (MappingTarget, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var (
		t     MappingTarget
		found bool
	)

	switch strategy {
	case Convert:
		var f ConvertFunc
		f, found = r.convert[name]
		t = ConvertTarget(outType, name, f)
	case Fast:
		var f FastFunc
		f, found = r.fast[name]
		t = FastTarget(outType, name, f)
	case Backtrack:
		var f BacktrackFunc
		f, found = r.backtrack[name]
		t = BacktrackTarget(outType, name, f)
	case Sliding:
		var f SlidingFunc
		f, found = r.sliding[name]
		t = SlidingTarget(outType, name, f)
	default:
		return MappingTarget{}, fmt.Errorf("invalid strategy %d", int(strategy))
	}

	if !found {
		return MappingTarget{}, fmt.Errorf(
			"no %s function named %s", strategy, name)
	}

	return t, nil
}

// Names lists the registered functions as "strategy:name", sorted.
func (r *FuncRegistry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var names []string
	for n := range r.convert {
		names = append(names, Convert.String()+":"+n)
	}

	for n := range r.fast {
		names = append(names, Fast.String()+":"+n)
	}

	for n := range r.backtrack {
		names = append(names, Backtrack.String()+":"+n)
	}

	for n := range r.sliding {
		names = append(names, Sliding.String()+":"+n)
	}

	sort.Strings(names)

	return names
}
