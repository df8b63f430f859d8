// Package serializer ties the jetpack building blocks together: a registry of
// compiled routines, a pool of writers and a shared chunk allocator.
//
// Serialize looks up the routine of the value's type, rents a writer whose
// flush callback streams to the given io.Writer, runs the routine and flushes
// the tail:
//
//	var out bytes.Buffer
//	if err := serializer.Serialize(&out, &msg); err != nil {
//		// unsupported type or failed write
//	}
//
// A Serializer is safe for concurrent use.
package serializer

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/jetpack/lib/buffer"
	"github.com/ValentinKolb/jetpack/lib/common"
	"github.com/ValentinKolb/jetpack/lib/compiler"
	"github.com/ValentinKolb/jetpack/lib/pool"
	"github.com/ValentinKolb/jetpack/lib/registry"
	"github.com/ValentinKolb/jetpack/lib/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"reflect"
	"sync"
	"unsafe"
)

var Logger = logger.GetLogger("serializer")

// ErrNilValue is returned for nil values and nil pointers
var ErrNilValue = errors.New("serializer: nil value")

var (
	bytesCounter  = metrics.GetOrCreateCounter(`jetpack_serializer_bytes_total`)
	errorsCounter = metrics.GetOrCreateCounter(`jetpack_serializer_errors_total`)
)

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// session is a pooled writer together with its current destination
type session struct {
	writer  *buffer.Writer
	chunks  buffer.Allocator
	out     io.Writer
	written int
}

// flush streams a filled region to the destination and hands it back
func (s *session) flush(chunk []byte) error {
	n, err := s.out.Write(chunk)
	s.written += n
	s.chunks.Free(chunk)
	return err
}

// --------------------------------------------------------------------------
// Serializer
// --------------------------------------------------------------------------

// Serializer encodes values of any supported type
type Serializer struct {
	config   common.Config
	chunks   *buffer.ChunkPool
	sessions *pool.Pool[session]
	registry *registry.Registry
	sizes    *xsync.MapOf[reflect.Type, *util.SizeHistogram]
}

// New creates a serializer from a validated configuration
func New(config common.Config) (*Serializer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("serializer: invalid config: %w", err)
	}

	s := &Serializer{
		config:   config,
		chunks:   buffer.NewChunkPool(config.ChunkSize),
		registry: registry.New(registry.WithTableSize(config.TableSize)),
		sizes:    xsync.NewMapOf[reflect.Type, *util.SizeHistogram](),
	}
	s.sessions = pool.New("writers", config.SlotCount, s.newSession,
		pool.WithDiscard(func(sess *session) {
			sess.writer.Release()
		}))

	Logger.Debugf("created serializer with %d writers of %d bytes", config.SlotCount, config.ChunkSize)
	return s, nil
}

func (s *Serializer) newSession() *session {
	sess := &session{chunks: s.chunks}
	sess.writer = buffer.NewWriter(s.chunks, sess.flush)
	return sess
}

// Serialize writes the encoding of v to out. v may be a value or a pointer;
// pointers are dereferenced once. Bytes may already have been written to out
// when an error is returned.
//
// Objects nested deeper than compiler.MaxDepth, as produced by a pointer
// cycle, fail with compiler.ErrMaxDepth.
func (s *Serializer) Serialize(out io.Writer, v any) error {
	t, p, err := target(v)
	if err != nil {
		return err
	}

	fn, err := s.registry.Get(t)
	if err != nil {
		errorsCounter.Inc()
		return fmt.Errorf("serializer: %w", err)
	}

	sess := s.sessions.Rent()
	sess.out = out
	sess.written = 0
	defer func() {
		sess.out = nil
		sess.writer.Reset()
		s.sessions.Return(sess)
	}()

	fn(sess.writer, p)
	if err := sess.writer.Flush(); err != nil {
		errorsCounter.Inc()
		return fmt.Errorf("serializer: encode %s: %w", t, err)
	}

	bytesCounter.Add(sess.written)
	if s.config.TrackSizes {
		hist, _ := s.sizes.LoadOrCompute(t, util.NewSizeHistogram)
		hist.AddSample(sess.written)
	}
	return nil
}

// Marshal returns the encoding of v as a single byte slice
func (s *Serializer) Marshal(v any) ([]byte, error) {
	var out bytes.Buffer
	if err := s.Serialize(&out, v); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Routine returns the compiled routine for t
func (s *Serializer) Routine(t reflect.Type) (compiler.Func, error) {
	return s.registry.Get(t)
}

// SizeStats returns the histogram of encoded sizes for t. It returns nil if
// size tracking is disabled or nothing of type t was serialized yet.
func (s *Serializer) SizeStats(t reflect.Type) *util.SizeHistogram {
	hist, _ := s.sizes.Load(t)
	return hist
}

// Types returns the number of types known to the registry
func (s *Serializer) Types() int {
	return s.registry.Len()
}

// Config returns the configuration the serializer was created with
func (s *Serializer) Config() common.Config {
	return s.config
}

// target returns the type to encode and a pointer to the value
func target(v any) (reflect.Type, unsafe.Pointer, error) {
	if v == nil {
		return nil, nil, ErrNilValue
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil, ErrNilValue
		}
		return rv.Type().Elem(), rv.UnsafePointer(), nil
	}

	// copy into addressable memory
	c := reflect.New(rv.Type())
	c.Elem().Set(rv)
	return rv.Type(), c.UnsafePointer(), nil
}

// --------------------------------------------------------------------------
// Default instance
// --------------------------------------------------------------------------

var (
	defaultOnce       sync.Once
	defaultSerializer *Serializer
)

// Default returns a process wide serializer using common.DefaultConfig
func Default() *Serializer {
	defaultOnce.Do(func() {
		s, err := New(common.DefaultConfig())
		if err != nil {
			// the default config is always valid
			panic(err)
		}
		defaultSerializer = s
	})
	return defaultSerializer
}

// Serialize writes v to out using the default serializer
func Serialize(out io.Writer, v any) error {
	return Default().Serialize(out, v)
}

// Marshal encodes v using the default serializer
func Marshal(v any) ([]byte, error) {
	return Default().Marshal(v)
}
