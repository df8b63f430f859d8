package bench

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/jetpack/lib/wire"
)

// NewBinaryEncoder creates an encoder writing a hand written, schema specific
// binary format. It only supports Poco and Message.
func NewBinaryEncoder() Encoder {
	return &binaryEncoderImpl{}
}

// binaryEncoderImpl is the hand tuned baseline the generic encoders are
// compared against
type binaryEncoderImpl struct {
}

// Bit flags to indicate which optional Message fields are present
const (
	hasKey      byte = 1 << 0
	hasExpireIn byte = 1 << 1
	hasDeleteIn byte = 1 << 2
	hasValue    byte = 1 << 3
	hasOk       byte = 1 << 4
	hasErr      byte = 1 << 5
	hasMeta     byte = 1 << 6
)

func (b binaryEncoderImpl) Encode(v any) ([]byte, error) {
	switch v := v.(type) {
	case *Message:
		return b.encodeMessage(v), nil
	case Message:
		return b.encodeMessage(&v), nil
	case *Poco:
		return b.encodePoco(v), nil
	case Poco:
		return b.encodePoco(&v), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// --------------------------------------------------------------------------
// Poco
// --------------------------------------------------------------------------

// encodePoco writes the string length, string, int, guid and ticks
func (b binaryEncoderImpl) encodePoco(p *Poco) []byte {
	result := make([]byte, 4+len(p.StringProp)+4+16+8)
	pos := 0

	binary.LittleEndian.PutUint32(result[pos:], uint32(len(p.StringProp)))
	pos += 4
	pos += copy(result[pos:], p.StringProp)

	binary.LittleEndian.PutUint32(result[pos:], uint32(p.IntProp))
	pos += 4

	pos += copy(result[pos:], p.GuidProp[:])

	binary.LittleEndian.PutUint64(result[pos:], uint64(wire.Ticks(p.DateProp)))
	return result
}

// --------------------------------------------------------------------------
// Message
// --------------------------------------------------------------------------

// encodeMessage writes the type, a flag byte and only the present fields
func (b binaryEncoderImpl) encodeMessage(msg *Message) []byte {
	result := make([]byte, b.messageSize(msg))

	result[0] = byte(msg.MsgType)
	var flags byte = 0
	pos := 2 // start after MsgType and flags

	putBytes := func(data []byte) {
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(data)))
		pos += 4
		pos += copy(result[pos:], data)
	}

	if msg.Key != "" {
		flags |= hasKey
		putBytes([]byte(msg.Key))
	}
	if msg.ExpireIn > 0 {
		flags |= hasExpireIn
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.ExpireIn)
		pos += 8
	}
	if msg.DeleteIn > 0 {
		flags |= hasDeleteIn
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.DeleteIn)
		pos += 8
	}
	if msg.Value != nil {
		flags |= hasValue
		putBytes(msg.Value)
	}
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}
	if msg.Err != "" {
		flags |= hasErr
		putBytes([]byte(msg.Err))
	}
	if msg.Meta != nil {
		flags |= hasMeta
		putBytes(msg.Meta)
	}

	// set flags byte after knowing which fields are present
	result[1] = flags
	return result
}

// DecodeMessage reads a Message written by the binary encoder
func DecodeMessage(data []byte, msg *Message) error {
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}
	*msg = Message{MsgType: MessageType(data[0])}
	flags := data[1]
	pos := 2

	readBytes := func(field string) ([]byte, error) {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("data too short for %s length", field)
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+n > len(data) {
			return nil, fmt.Errorf("data too short for %s data", field)
		}
		b := make([]byte, n)
		copy(b, data[pos:pos+n])
		pos += n
		return b, nil
	}
	readUint64 := func(field string) (uint64, error) {
		if pos+8 > len(data) {
			return 0, fmt.Errorf("data too short for %s", field)
		}
		v := binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
		return v, nil
	}

	var err error
	if flags&hasKey != 0 {
		var key []byte
		if key, err = readBytes("key"); err != nil {
			return err
		}
		msg.Key = string(key)
	}
	if flags&hasExpireIn != 0 {
		if msg.ExpireIn, err = readUint64("ExpireIn"); err != nil {
			return err
		}
	}
	if flags&hasDeleteIn != 0 {
		if msg.DeleteIn, err = readUint64("DeleteIn"); err != nil {
			return err
		}
	}
	if flags&hasValue != 0 {
		if msg.Value, err = readBytes("value"); err != nil {
			return err
		}
	}
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}
		msg.Ok = data[pos] != 0
		pos += 1
	}
	if flags&hasErr != 0 {
		var e []byte
		if e, err = readBytes("error"); err != nil {
			return err
		}
		msg.Err = string(e)
	}
	if flags&hasMeta != 0 {
		if msg.Meta, err = readBytes("meta"); err != nil {
			return err
		}
	}
	return nil
}

// messageSize calculates the total size needed for serialization
func (b binaryEncoderImpl) messageSize(msg *Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.ExpireIn > 0 {
		size += 8
	}
	if msg.DeleteIn > 0 {
		size += 8
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Ok {
		size += 1
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}
