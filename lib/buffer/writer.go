package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
	"unsafe"

	"github.com/ValentinKolb/jetpack/lib/wire"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrNoSink is set on a Writer that ran out of space without a flush callback
	ErrNoSink = errors.New("buffer: region exhausted and no flush callback set")

	flushCounter = metrics.GetOrCreateCounter(`jetpack_buffer_flushes_total`)
)

// FlushFunc receives a filled region. Ownership of chunk passes to the
// callback, which is expected to hand it back to the Allocator once done.
type FlushFunc func(chunk []byte) error

// Writer encodes tagged primitive values into a byte region. When the region
// is full it flushes the written part and continues in a new region from its
// Allocator, so writes never fail because of capacity.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	region   []byte
	cursor   int
	chunks   Allocator
	flush    FlushFunc
	enc      *encoding.Encoder
	err      error
	depth    int
	released bool
}

// NewWriter creates a Writer owning one region from chunks. flush may be nil
// if the caller drains the writer via Bytes and Reset.
func NewWriter(chunks Allocator, flush FlushFunc) *Writer {
	region := chunks.Alloc()
	if len(region) < MinChunkSize {
		panic(fmt.Sprintf("buffer: region of %d bytes is smaller than %d", len(region), MinChunkSize))
	}
	return &Writer{
		region: region,
		chunks: chunks,
		flush:  flush,
		enc:    unicode.UTF8.NewEncoder(),
	}
}

// --------------------------------------------------------------------------
// Primitive Writes
// --------------------------------------------------------------------------

func (w *Writer) WriteBool(v bool) {
	b := w.frame(wire.TagBool, 1)
	if v {
		b[0] = 1
	} else {
		b[0] = 0
	}
}

func (w *Writer) WriteUint8(v uint8) {
	w.frame(wire.TagByte, 1)[0] = v
}

func (w *Writer) WriteInt8(v int8) {
	w.frame(wire.TagSByte, 1)[0] = byte(v)
}

func (w *Writer) WriteChar(v wire.Char) {
	binary.LittleEndian.PutUint16(w.frame(wire.TagChar, 2), uint16(v))
}

func (w *Writer) WriteInt16(v int16) {
	binary.LittleEndian.PutUint16(w.frame(wire.TagShort, 2), uint16(v))
}

func (w *Writer) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(w.frame(wire.TagUShort, 2), v)
}

func (w *Writer) WriteInt32(v int32) {
	binary.LittleEndian.PutUint32(w.frame(wire.TagInt, 4), uint32(v))
}

func (w *Writer) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.frame(wire.TagUInt, 4), v)
}

func (w *Writer) WriteFloat32(v float32) {
	binary.LittleEndian.PutUint32(w.frame(wire.TagFloat, 4), math.Float32bits(v))
}

func (w *Writer) WriteInt64(v int64) {
	binary.LittleEndian.PutUint64(w.frame(wire.TagLong, 8), uint64(v))
}

func (w *Writer) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.frame(wire.TagULong, 8), v)
}

func (w *Writer) WriteFloat64(v float64) {
	binary.LittleEndian.PutUint64(w.frame(wire.TagDouble, 8), math.Float64bits(v))
}

// WriteTime writes t as ticks (see wire.Ticks)
func (w *Writer) WriteTime(t time.Time) {
	binary.LittleEndian.PutUint64(w.frame(wire.TagDateTime, 8), uint64(wire.Ticks(t)))
}

// WriteGUID writes the 16 raw bytes of id
func (w *Writer) WriteGUID(id uuid.UUID) {
	copy(w.frame(wire.TagGUID, 16), id[:])
}

// WriteDecimal writes d as a 16 byte decimal. A value that does not fit is
// not written and sets the writer error.
func (w *Writer) WriteDecimal(d decimal.Decimal) {
	var payload [wire.DecimalSize]byte
	if err := wire.PutDecimal(payload[:], d); err != nil {
		w.Fail(err)
		return
	}
	copy(w.frame(wire.TagDecimal, wire.DecimalSize), payload[:])
}

// WriteString writes the String tag followed by the UTF-8 encoding of s.
// The bytes may span several regions; ill-formed UTF-8 is replaced by U+FFFD.
func (w *Writer) WriteString(s string) {
	w.frame(wire.TagString, 0)

	src := unsafe.Slice(unsafe.StringData(s), len(s))
	w.enc.Reset()
	for len(src) > 0 {
		nDst, nSrc, err := w.enc.Transform(w.region[w.cursor:], src, true)
		w.cursor += nDst
		src = src[nSrc:]
		if err == transform.ErrShortDst {
			w.next()
			continue
		}
		if err != nil {
			w.Fail(fmt.Errorf("buffer: encode string: %w", err))
			return
		}
	}
}

// --------------------------------------------------------------------------
// Structural Markers
// --------------------------------------------------------------------------

// WriteObjectStart writes the Object marker that opens a nested value
func (w *Writer) WriteObjectStart() {
	w.frame(wire.TagObject, 0)
}

// WriteCollectionStart writes the CollectionStart marker and the element count
func (w *Writer) WriteCollectionStart(n int) {
	binary.LittleEndian.PutUint32(w.frame(wire.TagCollectionStart, 4), uint32(int32(n)))
}

// WriteCollectionEnd writes the marker closing a collection or nested object
func (w *Writer) WriteCollectionEnd() {
	w.frame(wire.TagCollectionEnd, 0)
}

// --------------------------------------------------------------------------
// Buffer Management
// --------------------------------------------------------------------------

// Bytes returns the written part of the current region. It is only valid
// until the next write.
func (w *Writer) Bytes() []byte {
	return w.region[:w.cursor]
}

// Len returns the number of bytes written to the current region
func (w *Writer) Len() int {
	return w.cursor
}

// Cap returns the size of the current region
func (w *Writer) Cap() int {
	return len(w.region)
}

// Err returns the first error that occurred since the last Reset
func (w *Writer) Err() error {
	return w.err
}

// Fail records err unless an error is already set. Subsequent flushes are
// skipped and their regions returned to the allocator.
func (w *Writer) Fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Reset rewinds the cursor to the start of the current region without
// flushing and clears the error and the nesting depth.
func (w *Writer) Reset() {
	w.cursor = 0
	w.err = nil
	w.depth = 0
}

// Enter increments the nesting depth and returns the new depth. Every Enter
// is paired with a Leave.
func (w *Writer) Enter() int {
	w.depth++
	return w.depth
}

func (w *Writer) Leave() {
	w.depth--
}

// SetFlush replaces the flush callback for all following flushes
func (w *Writer) SetFlush(flush FlushFunc) {
	w.flush = flush
}

// Flush hands the written part of the region to the flush callback and
// continues in a fresh region. It is a no-op if nothing was written.
func (w *Writer) Flush() error {
	if w.released {
		panic("buffer: flush after release")
	}
	if w.cursor > 0 {
		w.next()
	}
	return w.err
}

// Release returns the current region to the allocator. It is safe to call
// more than once; any write after the first call panics.
func (w *Writer) Release() {
	if w.released {
		return
	}
	w.released = true
	w.chunks.Free(w.region)
	w.region = nil
	w.cursor = 0
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// frame reserves tag + n bytes as one unit and returns the n payload bytes
func (w *Writer) frame(tag wire.Tag, n int) []byte {
	if w.cursor+1+n > len(w.region) {
		if w.released {
			panic("buffer: write after release")
		}
		w.next()
	}
	b := w.region[w.cursor : w.cursor+1+n]
	b[0] = byte(tag)
	w.cursor += 1 + n
	return b[1:]
}

// next performs flush-and-continue: take a new region, then hand the old one on
func (w *Writer) next() {
	old := w.region[:w.cursor]
	w.region = w.chunks.Alloc()
	w.cursor = 0
	w.emit(old)
}

// emit passes a filled region to the flush callback
func (w *Writer) emit(chunk []byte) {
	if w.flush == nil {
		w.Fail(ErrNoSink)
	}
	if w.err != nil {
		w.chunks.Free(chunk)
		return
	}
	flushCounter.Inc()
	if err := w.flush(chunk); err != nil {
		w.Fail(fmt.Errorf("buffer: flush: %w", err))
	}
}
