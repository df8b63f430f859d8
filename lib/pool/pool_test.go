package pool

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

// testItem carries an occupancy tag that is set while the item is rented
type testItem struct {
	id   int64
	busy atomic.Int32
}

func newTestPool(slots int, opts ...Option[testItem]) (*Pool[testItem], *atomic.Int64) {
	var created atomic.Int64
	p := New("test", slots, func() *testItem {
		return &testItem{id: created.Add(1)}
	}, opts...)
	return p, &created
}

// TestRentReturn tests basic rent and return
func TestRentReturn(t *testing.T) {
	p, created := newTestPool(4)
	if created.Load() != 4 || p.Free() != 4 || p.Size() != 4 {
		t.Fatalf("Expected 4 pre-warmed items, created %d, free %d", created.Load(), p.Free())
	}

	a := p.Rent()
	b := p.Rent()
	if a == b {
		t.Fatalf("Rent returned the same item twice")
	}
	if p.Free() != 2 {
		t.Errorf("Expected 2 free items, got %d", p.Free())
	}

	if !p.Return(a) || !p.Return(b) {
		t.Errorf("Expected returns to be stored")
	}
	if p.Free() != 4 {
		t.Errorf("Expected 4 free items, got %d", p.Free())
	}
	if created.Load() != 4 {
		t.Errorf("Expected no new items, created %d", created.Load())
	}
}

// TestRentExhausted tests that an empty pool fabricates items instead of blocking
func TestRentExhausted(t *testing.T) {
	p, created := newTestPool(2)

	seen := make(map[*testItem]bool)
	for i := 0; i < 5; i++ {
		item := p.Rent()
		if seen[item] {
			t.Fatalf("Rent returned a checked out item")
		}
		seen[item] = true
	}
	if created.Load() != 5 {
		t.Errorf("Expected 3 fabricated items, created %d in total", created.Load())
	}
	if p.Free() != 0 {
		t.Errorf("Expected empty pool, got %d free", p.Free())
	}
}

// TestReturnFull tests that returning to a full pool drops the item
func TestReturnFull(t *testing.T) {
	var discarded []*testItem
	p, _ := newTestPool(1, WithDiscard(func(item *testItem) {
		discarded = append(discarded, item)
	}))

	extra := &testItem{id: -1}
	if p.Return(extra) {
		t.Errorf("Expected return to a full pool to be dropped")
	}
	if len(discarded) != 1 || discarded[0] != extra {
		t.Errorf("Expected discard hook to receive the dropped item")
	}
	if p.Return(nil) {
		t.Errorf("Expected nil return to be ignored")
	}
	if p.Free() != 1 {
		t.Errorf("Expected 1 free item, got %d", p.Free())
	}
}

// TestZeroSlots tests a pool without slots
func TestZeroSlots(t *testing.T) {
	p, created := newTestPool(0)
	item := p.Rent()
	if item == nil || created.Load() != 1 {
		t.Fatalf("Expected a fabricated item")
	}
	if p.Return(item) {
		t.Errorf("Expected return to be dropped")
	}
}

// TestExclusivity verifies that no item is ever held by two renters at once
func TestExclusivity(t *testing.T) {
	const (
		goroutines = 32
		cycles     = 2000
	)
	p, _ := newTestPool(4)

	var wg sync.WaitGroup
	var violations atomic.Int64

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < cycles; i++ {
				item := p.Rent()
				if !item.busy.CompareAndSwap(0, 1) {
					violations.Add(1)
					continue
				}
				if i%8 == 0 {
					runtime.Gosched()
				}
				item.busy.Store(0)
				p.Return(item)
			}
		}()
	}
	wg.Wait()

	if v := violations.Load(); v != 0 {
		t.Fatalf("%d items were rented twice", v)
	}
	if p.Free() != p.Size() {
		t.Errorf("Expected a full pool after all returns, got %d/%d", p.Free(), p.Size())
	}

	// every stored item is distinct
	seen := make(map[*testItem]bool)
	for i := 0; i < p.Size(); i++ {
		item := p.Rent()
		if seen[item] {
			t.Fatalf("Pool holds the same item twice")
		}
		seen[item] = true
	}
}

// BenchmarkRentReturn measures a rent/return cycle under contention
func BenchmarkRentReturn(b *testing.B) {
	p, _ := newTestPool(DefaultSlots())
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p.Return(p.Rent())
		}
	})
}
