package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ValentinKolb/jetpack/lib/wire"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrShortBuffer is returned when the region ends before the value does.
// The reader is left untouched; refill and retry.
var ErrShortBuffer = errors.New("buffer: short buffer")

// TagError is returned when the next tag is not the one a read expected.
// The reader is left untouched.
type TagError struct {
	Expected wire.Tag
	Actual   wire.Tag
	Offset   int
}

func (e *TagError) Error() string {
	return fmt.Sprintf("buffer: expected tag %s at offset %d, found %s", e.Expected, e.Offset, e.Actual)
}

// StringResult reports the progress of a string read.
type StringResult struct {
	// Done is true once all expected characters are decoded
	Done bool
	// BytesRead is the number of region bytes consumed (including the tag for ReadString)
	BytesRead int
	// CharsRead is the number of characters decoded by this call
	CharsRead int
}

// Reader decodes tagged values from a byte region. Strings that continue
// past the end of the region can be resumed after Reset with the remaining
// bytes (see ReadString and ResumeString).
//
// A Reader is not safe for concurrent use.
type Reader struct {
	region []byte
	cursor int
}

// NewReader creates a reader over region
func NewReader(region []byte) *Reader {
	return &Reader{region: region}
}

// Reset replaces the region and rewinds the cursor
func (r *Reader) Reset(region []byte) {
	r.region = region
	r.cursor = 0
}

// Len returns the number of bytes consumed so far
func (r *Reader) Len() int {
	return r.cursor
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.region) - r.cursor
}

// PeekTag returns the next tag without consuming it
func (r *Reader) PeekTag() (wire.Tag, error) {
	if r.cursor >= len(r.region) {
		return 0, ErrShortBuffer
	}
	return wire.Tag(r.region[r.cursor]), nil
}

// ReadTag consumes and returns the next tag
func (r *Reader) ReadTag() (wire.Tag, error) {
	t, err := r.PeekTag()
	if err != nil {
		return 0, err
	}
	r.cursor++
	return t, nil
}

// --------------------------------------------------------------------------
// Primitive Reads
// --------------------------------------------------------------------------

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.take(wire.TagBool, 1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(wire.TagByte, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadInt8() (int8, error) {
	b, err := r.take(wire.TagSByte, 1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (r *Reader) ReadChar() (wire.Char, error) {
	b, err := r.take(wire.TagChar, 2)
	if err != nil {
		return 0, err
	}
	return wire.Char(binary.LittleEndian.Uint16(b)), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	b, err := r.take(wire.TagShort, 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.take(wire.TagUShort, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.take(wire.TagInt, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(wire.TagUInt, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	b, err := r.take(wire.TagFloat, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.take(wire.TagLong, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(wire.TagULong, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.take(wire.TagDouble, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadTime reads a DateTime value. The result is in UTC.
func (r *Reader) ReadTime() (time.Time, error) {
	b, err := r.take(wire.TagDateTime, 8)
	if err != nil {
		return time.Time{}, err
	}
	return wire.TimeFromTicks(int64(binary.LittleEndian.Uint64(b))), nil
}

func (r *Reader) ReadGUID() (uuid.UUID, error) {
	b, err := r.take(wire.TagGUID, 16)
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	copy(id[:], b)
	return id, nil
}

func (r *Reader) ReadDecimal() (decimal.Decimal, error) {
	if err := r.check(wire.TagDecimal, wire.DecimalSize); err != nil {
		return decimal.Decimal{}, err
	}
	d, err := wire.Decimal(r.region[r.cursor+1:])
	if err != nil {
		return decimal.Decimal{}, err
	}
	r.cursor += 1 + wire.DecimalSize
	return d, nil
}

// --------------------------------------------------------------------------
// Structural Markers
// --------------------------------------------------------------------------

func (r *Reader) ReadObjectStart() error {
	_, err := r.take(wire.TagObject, 0)
	return err
}

// ReadCollectionStart reads a CollectionStart marker and returns the element count
func (r *Reader) ReadCollectionStart() (int, error) {
	b, err := r.take(wire.TagCollectionStart, 4)
	if err != nil {
		return 0, err
	}
	return int(int32(binary.LittleEndian.Uint32(b))), nil
}

func (r *Reader) ReadCollectionEnd() error {
	_, err := r.take(wire.TagCollectionEnd, 0)
	return err
}

// --------------------------------------------------------------------------
// Strings
// --------------------------------------------------------------------------

// ReadString consumes the String tag and decodes up to length characters.
// If the region ends first, the result is not Done: Reset the reader with
// the bytes following BytesRead and call ResumeString with CharsRead as
// startIndex. A character split at the end of the region is left unread.
//
// An error is returned only if the next tag is not String (or missing).
func (r *Reader) ReadString(length int) (string, StringResult, error) {
	if _, err := r.take(wire.TagString, 0); err != nil {
		return "", StringResult{}, err
	}
	var value string
	res := r.ResumeString(&value, 0, length)
	res.BytesRead++
	return value, res, nil
}

// ResumeString decodes characters startIndex..length of a string and
// appends them to *value. It does not expect a tag. Every ill-formed byte
// becomes one U+FFFD, the same replacement the Writer applies.
//
// A length of zero or less, or a startIndex at or past length, is Done
// without consuming anything.
func (r *Reader) ResumeString(value *string, startIndex, length int) StringResult {
	want := length - startIndex
	if want <= 0 {
		return StringResult{Done: true}
	}
	src := r.region[r.cursor:]

	var out strings.Builder
	n, chars := 0, 0
	for n < len(src) && chars < want {
		if c := src[n]; c < utf8.RuneSelf {
			out.WriteByte(c)
			n++
			chars++
			continue
		}
		if !utf8.FullRune(src[n:]) {
			break
		}
		c, size := utf8.DecodeRune(src[n:])
		out.WriteRune(c) // RuneError for an ill-formed byte, size 1
		n += size
		chars++
	}

	if n > 0 {
		*value += out.String()
		r.cursor += n
	}
	return StringResult{
		Done:      chars == want,
		BytesRead: n,
		CharsRead: chars,
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// check verifies that the next value has the expected tag and is complete
func (r *Reader) check(tag wire.Tag, n int) error {
	if r.cursor >= len(r.region) {
		return ErrShortBuffer
	}
	if actual := wire.Tag(r.region[r.cursor]); actual != tag {
		return &TagError{Expected: tag, Actual: actual, Offset: r.cursor}
	}
	if r.cursor+1+n > len(r.region) {
		return ErrShortBuffer
	}
	return nil
}

// take consumes tag + n bytes and returns the payload
func (r *Reader) take(tag wire.Tag, n int) ([]byte, error) {
	if err := r.check(tag, n); err != nil {
		return nil, err
	}
	b := r.region[r.cursor+1 : r.cursor+1+n]
	r.cursor += 1 + n
	return b, nil
}
