package pool

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/ValentinKolb/jetpack/lib/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("pool")

// DefaultSlots returns the default number of pre-warmed items
func DefaultSlots() int {
	return 2 * runtime.NumCPU()
}

// Option configures a Pool
type Option[T any] func(p *Pool[T])

// WithDiscard sets a hook that runs for items dropped by Return because the
// pool is full (e.g. to release their resources).
func WithDiscard[T any](fn func(item *T)) Option[T] {
	return func(p *Pool[T]) {
		p.discard = fn
	}
}

// Pool is a fixed size, lock-free object pool.
//
// The pool keeps a free count and one atomic pointer per slot. Rent claims the
// topmost free slot by decrementing the count with a CAS and then takes the
// item out of that slot; Return claims the next slot by incrementing the count
// and then stores the item. Claiming and filling are two steps, so both sides
// wait (with backoff) for a slot that was claimed by the other side but not
// yet emptied or filled. An item is only ever moved with an atomic swap, so it
// is held by at most one renter at a time.
//
// Rent never blocks on an empty pool: it creates a new item instead.
type Pool[T any] struct {
	slots   []atomic.Pointer[T]
	free    atomic.Int64
	factory func() *T
	discard func(item *T)

	rentReused     *metrics.Counter
	rentFabricated *metrics.Counter
	returnStored   *metrics.Counter
	returnDropped  *metrics.Counter
}

// New creates a pool with the given number of slots, all of them filled
// with items from factory. name labels the pool's metrics.
func New[T any](name string, slots int, factory func() *T, opts ...Option[T]) *Pool[T] {
	if slots < 0 {
		panic(fmt.Sprintf("pool: negative slot count %d", slots))
	}

	p := &Pool[T]{
		slots:          make([]atomic.Pointer[T], slots),
		factory:        factory,
		rentReused:     metrics.GetOrCreateCounter(fmt.Sprintf(`jetpack_pool_rents_total{pool=%q,source="reused"}`, name)),
		rentFabricated: metrics.GetOrCreateCounter(fmt.Sprintf(`jetpack_pool_rents_total{pool=%q,source="fabricated"}`, name)),
		returnStored:   metrics.GetOrCreateCounter(fmt.Sprintf(`jetpack_pool_returns_total{pool=%q,result="stored"}`, name)),
		returnDropped:  metrics.GetOrCreateCounter(fmt.Sprintf(`jetpack_pool_returns_total{pool=%q,result="dropped"}`, name)),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := range p.slots {
		p.slots[i].Store(factory())
	}
	p.free.Store(int64(slots))

	Logger.Debugf("created pool %s with %d slots", name, slots)
	return p
}

// --------------------------------------------------------------------------
// Pool Methods
// --------------------------------------------------------------------------

// Rent returns an item that no other renter holds. If all slots are checked
// out a new item is created.
func (p *Pool[T]) Rent() *T {
	var backoff util.Backoff
	for {
		n := p.free.Load()
		if n <= 0 {
			p.rentFabricated.Inc()
			return p.factory()
		}
		if p.free.CompareAndSwap(n, n-1) {
			item := p.take(int(n - 1))
			p.rentReused.Inc()
			return item
		}
		backoff.Wait()
	}
}

// Return hands an item back. It reports false if the pool was full and the
// item was dropped. The caller must not use the item afterwards.
func (p *Pool[T]) Return(item *T) bool {
	if item == nil {
		return false
	}

	var backoff util.Backoff
	for {
		n := p.free.Load()
		if n >= int64(len(p.slots)) {
			p.returnDropped.Inc()
			if p.discard != nil {
				p.discard(item)
			}
			return false
		}
		if p.free.CompareAndSwap(n, n+1) {
			p.put(int(n), item)
			p.returnStored.Inc()
			return true
		}
		backoff.Wait()
	}
}

// Free returns the number of items currently available
func (p *Pool[T]) Free() int {
	return int(p.free.Load())
}

// Size returns the number of slots
func (p *Pool[T]) Size() int {
	return len(p.slots)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// take empties a claimed slot, waiting for a returner that claimed it but
// has not stored its item yet
func (p *Pool[T]) take(i int) *T {
	var backoff util.Backoff
	for {
		if item := p.slots[i].Swap(nil); item != nil {
			return item
		}
		backoff.Wait()
	}
}

// put fills a claimed slot, waiting for a renter that claimed it but has not
// taken the previous item out yet
func (p *Pool[T]) put(i int, item *T) {
	var backoff util.Backoff
	for !p.slots[i].CompareAndSwap(nil, item) {
		backoff.Wait()
	}
}
