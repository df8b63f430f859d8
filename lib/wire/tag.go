package wire

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Tag Definition
// --------------------------------------------------------------------------

// Tag identifies the on-wire shape of the value that follows it.
type Tag uint8

// MaxFrameSize is the largest number of bytes a single fixed width value
// occupies on the wire (tag + 16 byte payload).
const MaxFrameSize = 1 + 16

// --------------------------------------------------------------------------
// Tag Constants
// --------------------------------------------------------------------------

// The ordinals are part of the wire format and must never change.
const (
	TagBool   Tag = iota // bool
	TagByte              // uint8
	TagSByte             // int8
	TagChar              // UTF-16 code unit
	TagDecimal           // 128 bit decimal
	TagDouble            // float64
	TagFloat             // float32
	TagInt               // int32
	TagUInt              // uint32
	TagLong              // int64
	TagULong             // uint64
	TagShort             // int16
	TagUShort            // uint16
	TagString            // UTF-8 byte sequence
	TagDateTime          // 100ns ticks
	TagGUID              // 128 bit identifier

	// Structural markers

	TagCollectionStart // start of a collection, followed by the element count
	TagCollectionEnd   // end of a collection or nested object
	TagObject          // start of a nested object
)

// tagCount is the number of defined tags
const tagCount = int(TagObject) + 1

var tagNames = [tagCount]string{
	TagBool:            "bool",
	TagByte:            "byte",
	TagSByte:           "sbyte",
	TagChar:            "char",
	TagDecimal:         "decimal",
	TagDouble:          "double",
	TagFloat:           "float",
	TagInt:             "int",
	TagUInt:            "uint",
	TagLong:            "long",
	TagULong:           "ulong",
	TagShort:           "short",
	TagUShort:          "ushort",
	TagString:          "string",
	TagDateTime:        "datetime",
	TagGUID:            "guid",
	TagCollectionStart: "collection-start",
	TagCollectionEnd:   "collection-end",
	TagObject:          "object",
}

var payloadSizes = [tagCount]int{
	TagBool:            1,
	TagByte:            1,
	TagSByte:           1,
	TagChar:            2,
	TagDecimal:         16,
	TagDouble:          8,
	TagFloat:           4,
	TagInt:             4,
	TagUInt:            4,
	TagLong:            8,
	TagULong:           8,
	TagShort:           2,
	TagUShort:          2,
	TagString:          -1,
	TagDateTime:        8,
	TagGUID:            16,
	TagCollectionStart: 4,
	TagCollectionEnd:   0,
	TagObject:          0,
}

// --------------------------------------------------------------------------
// Tag Methods
// --------------------------------------------------------------------------

// Valid reports whether t is one of the defined tags.
func (t Tag) Valid() bool {
	return int(t) < tagCount
}

// String returns the string representation of a Tag.
func (t Tag) String() string {
	if !t.Valid() {
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
	return tagNames[t]
}

// PayloadSize returns the number of payload bytes following the tag.
// It returns -1 for String (variable length) and for unknown tags.
func (t Tag) PayloadSize() int {
	if !t.Valid() {
		return -1
	}
	return payloadSizes[t]
}

// FrameSize returns tag + payload size, or -1 if the payload is variable.
func (t Tag) FrameSize() int {
	n := t.PayloadSize()
	if n < 0 {
		return -1
	}
	return 1 + n
}

// IsPrimitive reports whether t frames a leaf value (everything except the
// structural markers).
func (t Tag) IsPrimitive() bool {
	return t <= TagGUID
}

// MarshalJSON implements the json.Marshaller interface for Tag.
// This allows Tag to be serialized as a string in JSON.
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}
