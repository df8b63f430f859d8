package bench

import (
	"github.com/ValentinKolb/jetpack/lib/wire"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"time"
)

// --------------------------------------------------------------------------
// Fixture Types
// --------------------------------------------------------------------------

// Poco is a small flat object with one field of each common kind
type Poco struct {
	StringProp string
	IntProp    int32
	GuidProp   uuid.UUID
	DateProp   time.Time
}

// MessageType identifies the kind of a Message
type MessageType uint8

const (
	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred
	MsgTSet                 // Set a key-value pair
	MsgTGet                 // Get a value by key
	MsgTAcquire             // Acquire a lock
)

// Message is a request/response envelope as used by key-value RPC protocols
type Message struct {
	MsgType  MessageType `json:"msg_type"`
	Key      string      `json:"key,omitempty"`
	ExpireIn uint64      `json:"expireIn,omitempty"`
	DeleteIn uint64      `json:"deleteIn,omitempty"`
	Value    []byte      `json:"value,omitempty"`
	Ok       bool        `json:"ok,omitempty"`
	Err      string      `json:"err,omitempty"`
	Meta     []byte      `json:"meta,omitempty"`
}

// Customer is referenced by Order
type Customer struct {
	Name    string
	Email   string
	Initial wire.Char
	Vip     bool
}

// OrderLine is one position of an Order
type OrderLine struct {
	SKU      string
	Quantity uint16
	Price    decimal.Decimal
}

// Order is a nested object with a pointer, a collection and decimals
type Order struct {
	ID       uuid.UUID
	Customer *Customer
	Lines    []OrderLine
	Total    decimal.Decimal
	Created  time.Time
	Priority int8
	Weight   float64
}

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

// Fixture is a named value used by the benchmarks
type Fixture struct {
	Name  string
	Value any
}

// Fixtures returns the benchmark values. The values are freshly allocated
// on every call.
func Fixtures() []Fixture {
	created := time.Date(2024, 11, 5, 9, 30, 0, 0, time.UTC)

	return []Fixture{
		{"poco", &Poco{
			StringProp: "hello",
			IntProp:    123,
			GuidProp:   uuid.MustParse("0e4e6a1f-9b8b-4d33-a3f8-6f1f8c1d2a77"),
			DateProp:   created,
		}},
		{"message-small", &Message{
			MsgType: MsgTGet,
			Key:     "medium-length-key-for-testing",
		}},
		{"message-complete", &Message{
			MsgType:  MsgTAcquire,
			Key:      "complete-test-key",
			ExpireIn: 10000,
			DeleteIn: 20000,
			Value:    []byte("test-value-data"),
			Ok:       true,
			Err:      "This is a test error message",
			Meta:     []byte("test-meta-data-for-benchmarking"),
		}},
		{"message-1kb", &Message{
			MsgType: MsgTSet,
			Key:     "key",
			Value:   make([]byte, 1024),
		}},
		{"order", &Order{
			ID: uuid.MustParse("b8f1c7e2-3d4a-4f5b-8c6d-7e8f9a0b1c2d"),
			Customer: &Customer{
				Name:    "Jürgen Müller",
				Email:   "jm@example.com",
				Initial: 'J',
				Vip:     true,
			},
			Lines: []OrderLine{
				{SKU: "A-100", Quantity: 2, Price: decimal.RequireFromString("19.99")},
				{SKU: "B-220", Quantity: 1, Price: decimal.RequireFromString("149.50")},
				{SKU: "C-007", Quantity: 12, Price: decimal.RequireFromString("0.35")},
			},
			Total:    decimal.RequireFromString("193.68"),
			Created:  created,
			Priority: -1,
			Weight:   3.75,
		}},
	}
}
