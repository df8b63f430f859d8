package wire

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Char is a single UTF-16 code unit. It is its own type so that it does not
// collide with uint16, which encodes as UShort.
type Char uint16

// --------------------------------------------------------------------------
// Manifest
// --------------------------------------------------------------------------

// Manifest maps exact Go types to their primitive tag. Types not listed here
// are resolved by kind (see TagOf).
var Manifest = map[reflect.Type]Tag{
	reflect.TypeOf(time.Time{}):       TagDateTime,
	reflect.TypeOf(uuid.UUID{}):       TagGUID,
	reflect.TypeOf(decimal.Decimal{}): TagDecimal,
	reflect.TypeOf(Char(0)):           TagChar,
}

// kindTags maps basic kinds to their tag
var kindTags = map[reflect.Kind]Tag{
	reflect.Bool:    TagBool,
	reflect.Uint8:   TagByte,
	reflect.Int8:    TagSByte,
	reflect.Int16:   TagShort,
	reflect.Uint16:  TagUShort,
	reflect.Int32:   TagInt,
	reflect.Uint32:  TagUInt,
	reflect.Int64:   TagLong,
	reflect.Int:     TagLong,
	reflect.Uint64:  TagULong,
	reflect.Uint:    TagULong,
	reflect.Float32: TagFloat,
	reflect.Float64: TagDouble,
	reflect.String:  TagString,
}

// TagOf returns the primitive tag used to encode values of type t.
// The second return value is false if t is not a primitive.
func TagOf(t reflect.Type) (Tag, bool) {
	if tag, ok := Manifest[t]; ok {
		return tag, true
	}
	tag, ok := kindTags[t.Kind()]
	return tag, ok
}

// IsPrimitive reports whether t is encoded as a single tagged value.
func IsPrimitive(t reflect.Type) bool {
	_, ok := TagOf(t)
	return ok
}
