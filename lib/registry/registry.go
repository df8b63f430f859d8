// Package registry caches compiled routines per type in a fixed size,
// lock-free hash table.
//
// The first caller asking for a type claims an empty slot by CAS on its hash,
// compiles the routine and publishes it. Concurrent callers for the same type
// find the claimed hash and spin until the entry is published, so every type
// is compiled exactly once per registry. Entries are never removed.
package registry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/jetpack/lib/compiler"
	"github.com/ValentinKolb/jetpack/lib/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/cespare/xxhash/v2"
	"github.com/lni/dragonboat/v4/logger"
	"math/bits"
	"reflect"
	"sync/atomic"
)

var Logger = logger.GetLogger("registry")

var (
	// ErrTableExhausted is returned if every slot is taken by other types
	ErrTableExhausted = errors.New("registry: table exhausted")
	ErrNilType        = errors.New("registry: nil type")
)

// DefaultTableSize is the default number of slots
const DefaultTableSize = 4096

var (
	buildCounter   = metrics.GetOrCreateCounter(`jetpack_registry_builds_total`)
	failureCounter = metrics.GetOrCreateCounter(`jetpack_registry_build_failures_total`)
)

// BuildFunc compiles the routine of a type. r resolves nested types.
type BuildFunc func(t reflect.Type, r compiler.Resolver) (compiler.Func, error)

// Option configures a Registry
type Option func(r *Registry)

// WithTableSize sets the number of slots, rounded up to a power of two
func WithTableSize(n int) Option {
	return func(r *Registry) {
		r.size = n
	}
}

// WithBuildFunc replaces compiler.Compile as the build function
func WithBuildFunc(fn BuildFunc) Option {
	return func(r *Registry) {
		r.build = fn
	}
}

// entry is immutable once published
type entry struct {
	typ reflect.Type
	fn  compiler.Func
	err error
}

type slot struct {
	hash  atomic.Uint64 // 0 = empty
	entry atomic.Pointer[entry]
}

// Registry maps types to compiled routines
type Registry struct {
	size  int
	slots []slot
	mask  uint64
	seed  uint64
	build BuildFunc
	count atomic.Int64

	hashOf func(t reflect.Type) uint64
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		size:  DefaultTableSize,
		build: compiler.Compile,
		seed:  util.GenerateSeed(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.size < 1 {
		r.size = 1
	}
	r.size = 1 << bits.Len(uint(r.size-1))
	r.slots = make([]slot, r.size)
	r.mask = uint64(r.size - 1)
	r.hashOf = r.typeHash

	Logger.Debugf("created registry with %d slots", r.size)
	return r
}

// --------------------------------------------------------------------------
// Registry Methods
// --------------------------------------------------------------------------

// Get returns the routine for t, compiling it on first use. A failed build
// is cached: every later call for t returns the same error.
//
// The build function must not call Get for t itself; nested types are
// resolved through Resolve at encode time.
func (r *Registry) Get(t reflect.Type) (compiler.Func, error) {
	if t == nil {
		return nil, ErrNilType
	}
	h := r.hashOf(t)
	i := h & r.mask

	for probes := 0; probes < len(r.slots); probes++ {
		s := &r.slots[i]

		if s.hash.Load() == 0 && s.hash.CompareAndSwap(0, h) {
			return r.publish(s, t)
		}
		if s.hash.Load() == h {
			if e := r.wait(s); e.typ == t {
				return e.fn, e.err
			}
		}

		i = (i + 1) & r.mask
	}

	Logger.Errorf("no free slot for %s (%d types registered)", t, r.Len())
	return nil, fmt.Errorf("%w: %s", ErrTableExhausted, t)
}

// Resolve implements compiler.Resolver
func (r *Registry) Resolve(t reflect.Type) (compiler.Func, error) {
	return r.Get(t)
}

// Len returns the number of published entries, including failed builds
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// Size returns the number of slots
func (r *Registry) Size() int {
	return len(r.slots)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// publish builds the routine for a claimed slot and stores the entry. A
// panicking build is published as an error so that waiters do not spin
// forever.
func (r *Registry) publish(s *slot, t reflect.Type) (fn compiler.Func, err error) {
	defer func() {
		if p := recover(); p != nil {
			fn, err = nil, fmt.Errorf("registry: build %s: panic: %v", t, p)
		}
		if err != nil {
			failureCounter.Inc()
			Logger.Warningf("failed to build routine for %s: %v", t, err)
		} else {
			buildCounter.Inc()
			Logger.Debugf("built routine for %s", t)
		}
		s.entry.Store(&entry{typ: t, fn: fn, err: err})
		r.count.Add(1)
	}()

	return r.build(t, r)
}

// wait spins until the entry of a claimed slot is published
func (r *Registry) wait(s *slot) *entry {
	var backoff util.Backoff
	for {
		if e := s.entry.Load(); e != nil {
			return e
		}
		backoff.Wait()
	}
}

// typeHash hashes the identity of t. 0 marks empty slots and is never returned.
func (r *Registry) typeHash(t reflect.Type) uint64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], r.seed)
	binary.LittleEndian.PutUint64(b[8:], uint64(reflect.ValueOf(t).Pointer()))
	if h := xxhash.Sum64(b[:]); h != 0 {
		return h
	}
	return 1
}
