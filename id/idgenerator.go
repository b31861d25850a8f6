// Package id generates identifiers for envelopes and trace records.
package id

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

var (
	idGeneratorMutex        sync.Mutex
	idGeneratorInstantiated atomic.Bool
	idGenerator             IDGenerator
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	// Generate an ID
	Generate() string
}

// NewSequentialIDGenerator returns a generator that produces 1, 2, 3, ...
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewParallelIDGenerator returns a generator that produces globally unique IDs
// without coordination. The IDs are not deterministic.
func NewParallelIDGenerator() IDGenerator {
	return parallelIDGenerator{}
}

// UseSequentialIDGenerator configures the process-wide ID generator to
// generate IDs in sequence.
func UseSequentialIDGenerator() {
	use(NewSequentialIDGenerator())
}

// UseParallelIDGenerator configures the process-wide ID generator to generate
// IDs in parallel. The IDs generated will not be deterministic anymore.
func UseParallelIDGenerator() {
	use(NewParallelIDGenerator())
}

func use(g IDGenerator) {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if idGeneratorInstantiated.Load() {
		log.Panic("cannot change id generator type after using it")
	}

	idGenerator = g
	idGeneratorInstantiated.Store(true)
}

// GetIDGenerator returns the process-wide ID generator. If none is
// configured, a sequential generator is installed.
func GetIDGenerator() IDGenerator {
	if idGeneratorInstantiated.Load() {
		return idGenerator
	}

	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if !idGeneratorInstantiated.Load() {
		idGenerator = NewSequentialIDGenerator()
		idGeneratorInstantiated.Store(true)
	}

	return idGenerator
}

type sequentialIDGenerator struct {
	nextID atomic.Uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := g.nextID.Add(1)

	return strconv.FormatUint(idNumber, 10)
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
