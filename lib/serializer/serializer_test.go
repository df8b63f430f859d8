package serializer

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/jetpack/lib/buffer"
	"github.com/ValentinKolb/jetpack/lib/common"
	"github.com/ValentinKolb/jetpack/lib/compiler"
	"github.com/google/uuid"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type poco struct {
	StringProp string
	IntProp    int32
	GuidProp   uuid.UUID
	DateProp   time.Time
}

func newPoco(s string) poco {
	return poco{
		StringProp: s,
		IntProp:    123,
		GuidProp:   uuid.MustParse("5b1e1d58-8e4e-4b0a-9c55-0a3f2b4c6d7e"),
		DateProp:   time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

// expected writes p by hand into an unbounded region
func expected(p poco) []byte {
	alloc := &bigAllocator{}
	w := buffer.NewWriter(alloc, nil)
	w.WriteTime(p.DateProp)
	w.WriteGUID(p.GuidProp)
	w.WriteInt32(p.IntProp)
	w.WriteString(p.StringProp)
	return append([]byte(nil), w.Bytes()...)
}

type bigAllocator struct{}

func (bigAllocator) Alloc() []byte { return make([]byte, 1<<20) }
func (bigAllocator) Free([]byte)   {}

func newTestSerializer(t *testing.T, modify func(c *common.Config)) *Serializer {
	t.Helper()
	c := common.DefaultConfig()
	if modify != nil {
		modify(&c)
	}
	s, err := New(c)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

// TestSerializeMatchesWriter tests that the output equals hand written encoding
func TestSerializeMatchesWriter(t *testing.T) {
	s := newTestSerializer(t, nil)
	p := newPoco("hello")

	got, err := s.Marshal(&p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if want := expected(p); !bytes.Equal(got, want) {
		t.Errorf("Expected %x, got %x", want, got)
	}

	// values and pointers encode the same
	byValue, err := s.Marshal(p)
	if err != nil || !bytes.Equal(byValue, got) {
		t.Errorf("Expected value and pointer encoding to match: %v", err)
	}
}

// TestSerializeSmallChunks tests streaming through many minimal regions
func TestSerializeSmallChunks(t *testing.T) {
	s := newTestSerializer(t, func(c *common.Config) {
		c.ChunkSize = buffer.MinChunkSize
		c.SlotCount = 1
	})
	p := newPoco(strings.Repeat("jetpack ✈ ", 50))

	for i := 0; i < 3; i++ {
		var out bytes.Buffer
		if err := s.Serialize(&out, &p); err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}
		if want := expected(p); !bytes.Equal(out.Bytes(), want) {
			t.Fatalf("Run %d: stream differs from unbounded encoding", i)
		}
	}
}

// TestSerializeErrors tests error reporting
func TestSerializeErrors(t *testing.T) {
	s := newTestSerializer(t, nil)

	if err := s.Serialize(&bytes.Buffer{}, nil); !errors.Is(err, ErrNilValue) {
		t.Errorf("Expected ErrNilValue, got %v", err)
	}
	var nilPoco *poco
	if err := s.Serialize(&bytes.Buffer{}, nilPoco); !errors.Is(err, ErrNilValue) {
		t.Errorf("Expected ErrNilValue for nil pointer, got %v", err)
	}

	bad := struct{ Meta map[string]string }{}
	err := s.Serialize(&bytes.Buffer{}, bad)
	if !errors.Is(err, compiler.ErrUnsupportedFieldType) {
		t.Errorf("Expected ErrUnsupportedFieldType, got %v", err)
	}
}

type link struct {
	Name string
	Next *link
}

// TestSerializeCycle tests that a cyclic value fails and the writer is
// usable afterwards
func TestSerializeCycle(t *testing.T) {
	s := newTestSerializer(t, func(c *common.Config) { c.SlotCount = 1 })

	l := &link{Name: "loop"}
	l.Next = l
	if err := s.Serialize(&bytes.Buffer{}, l); !errors.Is(err, compiler.ErrMaxDepth) {
		t.Fatalf("Expected ErrMaxDepth, got %v", err)
	}

	p := newPoco("after")
	got, err := s.Marshal(&p)
	if err != nil {
		t.Fatalf("Marshal after failure: %v", err)
	}
	if !bytes.Equal(got, expected(p)) {
		t.Errorf("Writer was not reset after failure")
	}
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) {
	return 0, w.err
}

// TestSerializeSinkError tests that a failing destination surfaces and the
// writer is usable afterwards
func TestSerializeSinkError(t *testing.T) {
	s := newTestSerializer(t, func(c *common.Config) { c.SlotCount = 1 })
	p := newPoco("x")

	sinkErr := errors.New("disk full")
	if err := s.Serialize(failingWriter{err: sinkErr}, &p); !errors.Is(err, sinkErr) {
		t.Fatalf("Expected sink error, got %v", err)
	}

	got, err := s.Marshal(&p)
	if err != nil {
		t.Fatalf("Marshal after failure: %v", err)
	}
	if !bytes.Equal(got, expected(p)) {
		t.Errorf("Writer was not reset after failure")
	}
}

// TestSerializeConcurrent tests concurrent use of one serializer
func TestSerializeConcurrent(t *testing.T) {
	s := newTestSerializer(t, func(c *common.Config) {
		c.ChunkSize = 64
		c.SlotCount = 2
	})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			p := newPoco(strings.Repeat("é", g*10))
			want := expected(p)
			for i := 0; i < 200; i++ {
				got, err := s.Marshal(&p)
				if err != nil {
					errs <- err
					return
				}
				if !bytes.Equal(got, want) {
					errs <- errors.New("output mismatch")
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if s.Types() != 1 {
		t.Errorf("Expected one registered type, got %d", s.Types())
	}
}

// TestSizeStats tests per-type size tracking
func TestSizeStats(t *testing.T) {
	off := newTestSerializer(t, nil)
	p := newPoco("hello")
	if _, err := off.Marshal(&p); err != nil {
		t.Fatal(err)
	}
	if off.SizeStats(reflect.TypeOf(p)) != nil {
		t.Errorf("Expected no stats with tracking disabled")
	}

	on := newTestSerializer(t, func(c *common.Config) { c.TrackSizes = true })
	for i := 0; i < 3; i++ {
		if _, err := on.Marshal(&p); err != nil {
			t.Fatal(err)
		}
	}
	hist := on.SizeStats(reflect.TypeOf(p))
	if hist == nil || hist.GetCount() != 3 {
		t.Fatalf("Expected 3 samples, got %v", hist)
	}
	if hist.AverageSize() != len(expected(p)) {
		t.Errorf("Expected average %d, got %d", len(expected(p)), hist.AverageSize())
	}
}

// TestDefault tests the package level functions
func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Errorf("Expected a single default instance")
	}
	p := newPoco("default")
	var out bytes.Buffer
	if err := Serialize(&out, &p); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !bytes.Equal(out.Bytes(), expected(p)) {
		t.Errorf("Unexpected output of default serializer")
	}
}

// TestNewInvalidConfig tests that New validates its config
func TestNewInvalidConfig(t *testing.T) {
	c := common.DefaultConfig()
	c.ChunkSize = 1
	if _, err := New(c); err == nil {
		t.Errorf("Expected error for invalid config")
	}
}

// BenchmarkSerialize measures the encoding of a small object
func BenchmarkSerialize(b *testing.B) {
	s, err := New(common.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	p := newPoco("hello")
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		var out bytes.Buffer
		for pb.Next() {
			out.Reset()
			if err := s.Serialize(&out, &p); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
