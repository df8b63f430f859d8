package compiler

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ValentinKolb/jetpack/lib/buffer"
	"github.com/ValentinKolb/jetpack/lib/wire"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Func writes the value at p into w. p must point to a value of the type the
// routine was compiled for.
type Func func(w *buffer.Writer, p unsafe.Pointer)

// Resolver looks up the routine of a nested struct type
type Resolver interface {
	Resolve(t reflect.Type) (Func, error)
}

// TagName is the struct tag consulted by the compiler. A field tagged
// `jetpack:"-"` is skipped.
const TagName = "jetpack"

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// ErrUnsupportedFieldType is matched (errors.Is) by every UnsupportedTypeError
var ErrUnsupportedFieldType = errors.New("unsupported field type")

// ErrMaxDepth is recorded on the writer when nested objects are deeper than
// MaxDepth, which is what a value graph with a cycle produces.
var ErrMaxDepth = errors.New("compiler: maximum nesting depth exceeded")

// MaxDepth is the deepest nesting of objects a routine writes
const MaxDepth = 1000

// UnsupportedTypeError reports a type the compiler cannot encode
type UnsupportedTypeError struct {
	// Type is the offending type
	Type reflect.Type
	// Path locates the type inside the compiled type (empty for the root)
	Path string
	// Reason is set if the type itself is fine but used in an invalid way
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	where := e.Path
	if where == "" {
		where = "<root>"
	}
	if e.Reason != "" {
		return fmt.Sprintf("compiler: %s: %s at %s: %s", ErrUnsupportedFieldType, e.Type, where, e.Reason)
	}
	return fmt.Sprintf("compiler: %s: %s at %s", ErrUnsupportedFieldType, e.Type, where)
}

func (e *UnsupportedTypeError) Unwrap() error {
	return ErrUnsupportedFieldType
}

// --------------------------------------------------------------------------
// Compile
// --------------------------------------------------------------------------

// Compile builds the routine for t. Struct types are written as their fields
// in lexicographic order of the field names, without a surrounding Object
// marker; every other supported type is written as a single value.
//
// Nested struct types are looked up through r on first use, which lets
// self-referencing types compile. If r is nil nested types are compiled on
// demand without sharing.
func Compile(t reflect.Type, r Resolver) (Func, error) {
	if err := Check(t); err != nil {
		return nil, err
	}
	if r == nil {
		r = direct{}
	}
	if t.Kind() == reflect.Struct && !wire.IsPrimitive(t) {
		return compileStruct(t, r), nil
	}
	return compileAt(t, 0, r), nil
}

// direct compiles nested types without a registry
type direct struct{}

func (d direct) Resolve(t reflect.Type) (Func, error) {
	return Compile(t, d)
}

// compileStruct returns one step per field, bound to the field offset
func compileStruct(t reflect.Type, r Resolver) Func {
	fields := Fields(t)
	steps := make([]Func, len(fields))
	for i, f := range fields {
		steps[i] = compileAt(f.Type, f.Offset, r)
	}

	switch len(steps) {
	case 0:
		return func(*buffer.Writer, unsafe.Pointer) {}
	case 1:
		return steps[0]
	}
	return func(w *buffer.Writer, p unsafe.Pointer) {
		for _, step := range steps {
			step(w, p)
		}
	}
}

// compileAt returns a routine writing the value of type t found at p+off
func compileAt(t reflect.Type, off uintptr, r Resolver) Func {
	if tag, ok := wire.TagOf(t); ok {
		return primitive(t, tag, off)
	}

	switch t.Kind() {
	case reflect.Struct:
		return nested(t, off, r)
	case reflect.Pointer:
		return pointer(t, off, r)
	case reflect.Slice:
		return slice(t, off, r)
	case reflect.Array:
		return array(t, off, r)
	}
	// unreachable after Check
	panic(fmt.Sprintf("compiler: no routine for %s", t))
}

// --------------------------------------------------------------------------
// Steps
// --------------------------------------------------------------------------

func primitive(t reflect.Type, tag wire.Tag, off uintptr) Func {
	switch tag {
	case wire.TagBool:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteBool(*(*bool)(unsafe.Add(p, off))) }
	case wire.TagByte:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteUint8(*(*uint8)(unsafe.Add(p, off))) }
	case wire.TagSByte:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteInt8(*(*int8)(unsafe.Add(p, off))) }
	case wire.TagChar:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteChar(*(*wire.Char)(unsafe.Add(p, off))) }
	case wire.TagShort:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteInt16(*(*int16)(unsafe.Add(p, off))) }
	case wire.TagUShort:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteUint16(*(*uint16)(unsafe.Add(p, off))) }
	case wire.TagInt:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteInt32(*(*int32)(unsafe.Add(p, off))) }
	case wire.TagUInt:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteUint32(*(*uint32)(unsafe.Add(p, off))) }
	case wire.TagLong:
		if t.Kind() == reflect.Int {
			return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteInt64(int64(*(*int)(unsafe.Add(p, off)))) }
		}
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteInt64(*(*int64)(unsafe.Add(p, off))) }
	case wire.TagULong:
		if t.Kind() == reflect.Uint {
			return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteUint64(uint64(*(*uint)(unsafe.Add(p, off)))) }
		}
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteUint64(*(*uint64)(unsafe.Add(p, off))) }
	case wire.TagFloat:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteFloat32(*(*float32)(unsafe.Add(p, off))) }
	case wire.TagDouble:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteFloat64(*(*float64)(unsafe.Add(p, off))) }
	case wire.TagString:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteString(*(*string)(unsafe.Add(p, off))) }
	case wire.TagDateTime:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteTime(*(*time.Time)(unsafe.Add(p, off))) }
	case wire.TagGUID:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteGUID(*(*uuid.UUID)(unsafe.Add(p, off))) }
	case wire.TagDecimal:
		return func(w *buffer.Writer, p unsafe.Pointer) { w.WriteDecimal(*(*decimal.Decimal)(unsafe.Add(p, off))) }
	}
	panic(fmt.Sprintf("compiler: no primitive routine for tag %s", tag))
}

// nested writes Object, the fields of the nested struct and CollectionEnd.
// The nested routine is resolved on first use. Past MaxDepth, or once w has
// failed, the object is written empty; ErrMaxDepth is recorded on w.
func nested(t reflect.Type, off uintptr, r Resolver) Func {
	l := &lazy{typ: t, resolver: r}
	return func(w *buffer.Writer, p unsafe.Pointer) {
		w.WriteObjectStart()
		if w.Enter() > MaxDepth {
			w.Fail(fmt.Errorf("%w: %s", ErrMaxDepth, t))
		}
		// a failed writer skips the remaining subtrees
		if w.Err() == nil {
			if fn := l.get(w); fn != nil {
				fn(w, unsafe.Add(p, off))
			}
		}
		w.Leave()
		w.WriteCollectionEnd()
	}
}

// pointer writes the pointee, or an empty object for nil
func pointer(t reflect.Type, off uintptr, r Resolver) Func {
	elem := compileAt(t.Elem(), 0, r)
	return func(w *buffer.Writer, p unsafe.Pointer) {
		ptr := *(*unsafe.Pointer)(unsafe.Add(p, off))
		if ptr == nil {
			w.WriteObjectStart()
			w.WriteCollectionEnd()
			return
		}
		elem(w, ptr)
	}
}

// sliceHeader mirrors the runtime layout of a slice
type sliceHeader struct {
	data unsafe.Pointer
	len  int
	cap  int
}

func slice(t reflect.Type, off uintptr, r Resolver) Func {
	elem := compileAt(t.Elem(), 0, r)
	size := t.Elem().Size()
	return func(w *buffer.Writer, p unsafe.Pointer) {
		s := (*sliceHeader)(unsafe.Add(p, off))
		w.WriteCollectionStart(s.len)
		for i := 0; i < s.len; i++ {
			elem(w, unsafe.Add(s.data, uintptr(i)*size))
		}
		w.WriteCollectionEnd()
	}
}

func array(t reflect.Type, off uintptr, r Resolver) Func {
	elem := compileAt(t.Elem(), 0, r)
	size := t.Elem().Size()
	n := t.Len()
	return func(w *buffer.Writer, p unsafe.Pointer) {
		base := unsafe.Add(p, off)
		w.WriteCollectionStart(n)
		for i := 0; i < n; i++ {
			elem(w, unsafe.Add(base, uintptr(i)*size))
		}
		w.WriteCollectionEnd()
	}
}

// lazy caches the resolved routine of a nested type
type lazy struct {
	typ      reflect.Type
	resolver Resolver
	fn       atomic.Pointer[Func]
}

// get returns the nested routine. A resolve error is recorded on w and
// retried on the next call.
func (l *lazy) get(w *buffer.Writer) Func {
	if fn := l.fn.Load(); fn != nil {
		return *fn
	}
	fn, err := l.resolver.Resolve(l.typ)
	if err != nil {
		w.Fail(err)
		return nil
	}
	l.fn.Store(&fn)
	return fn
}

// --------------------------------------------------------------------------
// Fields
// --------------------------------------------------------------------------

// Field describes one encoded struct field
type Field struct {
	Name   string
	Offset uintptr
	Type   reflect.Type
}

// Fields returns the encoded fields of struct type t in wire order
// (lexicographic by name). Blank fields and fields tagged `jetpack:"-"` are
// left out; unexported fields are included.
func Fields(t reflect.Type) []Field {
	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Name == "_" || sf.Tag.Get(TagName) == "-" {
			continue
		}
		fields = append(fields, Field{Name: sf.Name, Offset: sf.Offset, Type: sf.Type})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})
	return fields
}
