package bench

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"github.com/ValentinKolb/jetpack/lib/serializer"
)

// ErrUnsupportedValue is returned by encoders that do not handle a fixture
var ErrUnsupportedValue = errors.New("bench: value not supported by encoder")

// Encoder encodes a value into a byte slice
type Encoder interface {
	// Encode serializes v and returns the encoded bytes
	Encode(v any) ([]byte, error)
}

// NamedEncoder pairs an Encoder with the name used in reports
type NamedEncoder struct {
	Name    string
	Encoder Encoder
}

// Encoders returns all encoders in report order. s is used by the jetpack
// encoder.
func Encoders(s *serializer.Serializer) []NamedEncoder {
	return []NamedEncoder{
		{"jetpack", NewJetpackEncoder(s)},
		{"binary", NewBinaryEncoder()},
		{"json", NewJSONEncoder()},
		{"gob", NewGOBEncoder()},
	}
}

// --------------------------------------------------------------------------
// jetpack
// --------------------------------------------------------------------------

// NewJetpackEncoder creates an encoder backed by s
func NewJetpackEncoder(s *serializer.Serializer) Encoder {
	return &jetpackEncoderImpl{s: s}
}

type jetpackEncoderImpl struct {
	s *serializer.Serializer
}

func (j jetpackEncoderImpl) Encode(v any) ([]byte, error) {
	return j.s.Marshal(v)
}

// --------------------------------------------------------------------------
// json
// --------------------------------------------------------------------------

// NewJSONEncoder creates an encoder using json encoding
func NewJSONEncoder() Encoder {
	return &jsonEncoderImpl{}
}

type jsonEncoderImpl struct {
}

func (j jsonEncoderImpl) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// --------------------------------------------------------------------------
// gob
// --------------------------------------------------------------------------

// NewGOBEncoder creates an encoder using Go's binary gob format. Every call
// uses a fresh gob.Encoder, so the type description is part of each output.
func NewGOBEncoder() Encoder {
	return &gobEncoderImpl{}
}

type gobEncoderImpl struct {
}

func (g gobEncoderImpl) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
