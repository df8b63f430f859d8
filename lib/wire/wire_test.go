package wire

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestTagOrdinals tests that the tag ordinals are stable
func TestTagOrdinals(t *testing.T) {
	expected := map[Tag]uint8{
		TagBool:            0,
		TagByte:            1,
		TagSByte:           2,
		TagChar:            3,
		TagDecimal:         4,
		TagDouble:          5,
		TagFloat:           6,
		TagInt:             7,
		TagUInt:            8,
		TagLong:            9,
		TagULong:           10,
		TagShort:           11,
		TagUShort:          12,
		TagString:          13,
		TagDateTime:        14,
		TagGUID:            15,
		TagCollectionStart: 16,
		TagCollectionEnd:   17,
		TagObject:          18,
	}
	for tag, ordinal := range expected {
		if uint8(tag) != ordinal {
			t.Errorf("Tag %s has ordinal %d, expected %d", tag, uint8(tag), ordinal)
		}
	}
	if Tag(19).Valid() {
		t.Errorf("Tag 19 should not be valid")
	}
	if Tag(19).String() != "tag(19)" {
		t.Errorf("Unexpected name for unknown tag: %s", Tag(19).String())
	}
}

// TestFrameSize tests the frame sizes of fixed width tags
func TestFrameSize(t *testing.T) {
	testCases := []struct {
		tag  Tag
		size int
	}{
		{TagBool, 2},
		{TagChar, 3},
		{TagInt, 5},
		{TagDouble, 9},
		{TagDateTime, 9},
		{TagDecimal, 17},
		{TagGUID, 17},
		{TagCollectionStart, 5},
		{TagObject, 1},
		{TagString, -1},
	}
	for _, tc := range testCases {
		if got := tc.tag.FrameSize(); got != tc.size {
			t.Errorf("FrameSize(%s) = %d, expected %d", tc.tag, got, tc.size)
		}
	}
	for tag := TagBool; tag <= TagGUID; tag++ {
		if tag.FrameSize() > MaxFrameSize {
			t.Errorf("FrameSize(%s) exceeds MaxFrameSize", tag)
		}
	}
}

// TestTagOf tests the type manifest
func TestTagOf(t *testing.T) {
	type named uint8
	type aggregate struct{ A int }

	testCases := []struct {
		name  string
		typ   reflect.Type
		tag   Tag
		isPri bool
	}{
		{"bool", reflect.TypeOf(true), TagBool, true},
		{"uint8", reflect.TypeOf(uint8(0)), TagByte, true},
		{"named uint8", reflect.TypeOf(named(0)), TagByte, true},
		{"int8", reflect.TypeOf(int8(0)), TagSByte, true},
		{"int16", reflect.TypeOf(int16(0)), TagShort, true},
		{"uint16", reflect.TypeOf(uint16(0)), TagUShort, true},
		{"char", reflect.TypeOf(Char('x')), TagChar, true},
		{"rune", reflect.TypeOf('x'), TagInt, true},
		{"uint32", reflect.TypeOf(uint32(0)), TagUInt, true},
		{"int", reflect.TypeOf(0), TagLong, true},
		{"uint", reflect.TypeOf(uint(0)), TagULong, true},
		{"float32", reflect.TypeOf(float32(0)), TagFloat, true},
		{"float64", reflect.TypeOf(float64(0)), TagDouble, true},
		{"string", reflect.TypeOf(""), TagString, true},
		{"time", reflect.TypeOf(time.Time{}), TagDateTime, true},
		{"uuid", reflect.TypeOf(uuid.UUID{}), TagGUID, true},
		{"decimal", reflect.TypeOf(decimal.Decimal{}), TagDecimal, true},
		{"struct", reflect.TypeOf(aggregate{}), 0, false},
		{"slice", reflect.TypeOf([]int{}), 0, false},
		{"pointer", reflect.TypeOf(new(int)), 0, false},
		{"map", reflect.TypeOf(map[string]int{}), 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tag, ok := TagOf(tc.typ)
			if ok != tc.isPri {
				t.Fatalf("TagOf(%s) primitive = %v, expected %v", tc.typ, ok, tc.isPri)
			}
			if ok && tag != tc.tag {
				t.Errorf("TagOf(%s) = %s, expected %s", tc.typ, tag, tc.tag)
			}
		})
	}
}

// TestTicks tests the conversion between time.Time and ticks
func TestTicks(t *testing.T) {
	if ticks := Ticks(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)); ticks != 0 {
		t.Errorf("Ticks(0001-01-01) = %d, expected 0", ticks)
	}
	if ticks := Ticks(time.Unix(0, 0)); ticks != 621355968000000000 {
		t.Errorf("Ticks(unix epoch) = %d, expected 621355968000000000", ticks)
	}

	values := []time.Time{
		time.Date(2024, 2, 29, 13, 37, 42, 123456700, time.UTC),
		time.Date(1899, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 999999900, time.UTC),
	}
	for _, v := range values {
		got := TimeFromTicks(Ticks(v))
		if !got.Equal(v) {
			t.Errorf("TimeFromTicks(Ticks(%v)) = %v", v, got)
		}
	}

	// sub tick precision is truncated
	v := time.Date(2024, 1, 1, 0, 0, 0, 199, time.UTC)
	if got := TimeFromTicks(Ticks(v)); got.Nanosecond() != 100 {
		t.Errorf("Expected truncation to 100ns, got %dns", got.Nanosecond())
	}
}

// TestDecimal tests the decimal payload conversion
func TestDecimal(t *testing.T) {
	values := []string{
		"0",
		"15.1234",
		"-15.1234",
		"1",
		"79228162514264337593543950335",  // 2^96 - 1
		"-79228162514264337593543950335", // -(2^96 - 1)
		"0.0000000000000000000000000001",
		"123000",
		"4294967296.5",
	}

	for _, s := range values {
		t.Run(s, func(t *testing.T) {
			in := decimal.RequireFromString(s)
			var buf [DecimalSize]byte
			if err := PutDecimal(buf[:], in); err != nil {
				t.Fatalf("PutDecimal failed: %v", err)
			}
			out, err := Decimal(buf[:])
			if err != nil {
				t.Fatalf("Decimal failed: %v", err)
			}
			if !out.Equal(in) {
				t.Errorf("Decimal round trip: expected %s, got %s", in, out)
			}
		})
	}
}

// TestDecimalLayout tests the byte layout of a decimal payload
func TestDecimalLayout(t *testing.T) {
	var buf [DecimalSize]byte
	if err := PutDecimal(buf[:], decimal.RequireFromString("-15.1234")); err != nil {
		t.Fatalf("PutDecimal failed: %v", err)
	}
	// flags: scale 4 in bits 16-23, sign in bit 31
	expected := [DecimalSize]byte{
		0, 0, 4, 0x80, // flags
		0, 0, 0, 0, // hi
		0xc2, 0x4e, 0x02, 0, // lo = 151234
		0, 0, 0, 0, // mid
	}
	if buf != expected {
		t.Errorf("Unexpected layout:\n got %v\nwant %v", buf, expected)
	}
}

// TestDecimalErrors tests overflow and invalid payloads
func TestDecimalErrors(t *testing.T) {
	var buf [DecimalSize]byte
	err := PutDecimal(buf[:], decimal.RequireFromString("79228162514264337593543950336"))
	if !errors.Is(err, ErrDecimalOverflow) {
		t.Errorf("Expected ErrDecimalOverflow, got %v", err)
	}

	buf = [DecimalSize]byte{0, 0, 29, 0}
	if _, err := Decimal(buf[:]); !errors.Is(err, ErrInvalidDecimal) {
		t.Errorf("Expected ErrInvalidDecimal, got %v", err)
	}

	// more than 28 fractional digits are rounded
	if err := PutDecimal(buf[:], decimal.RequireFromString("0.00000000000000000000000000014")); err != nil {
		t.Fatalf("PutDecimal failed: %v", err)
	}
	out, _ := Decimal(buf[:])
	if !out.Equal(decimal.RequireFromString("0.0000000000000000000000000001")) {
		t.Errorf("Expected rounding to 28 digits, got %s", out)
	}
}
