package buffer

import (
	"fmt"
	"sync"

	"github.com/ValentinKolb/jetpack/lib/wire"
)

// MinChunkSize is the smallest region a Writer accepts. Every fixed width
// value must fit into an empty region, otherwise flush-and-continue could not
// make progress.
const MinChunkSize = wire.MaxFrameSize

// DefaultChunkSize is the region size used when nothing else is configured
const DefaultChunkSize = 4096

// Allocator hands out and takes back fixed size byte regions.
type Allocator interface {
	// Alloc returns a region whose length equals its capacity
	Alloc() []byte
	// Free returns a region obtained from Alloc. The caller must not use it afterwards.
	Free(chunk []byte)
}

// --------------------------------------------------------------------------
// ChunkPool
// --------------------------------------------------------------------------

// ChunkPool is an Allocator backed by a sync.Pool of equally sized regions.
// It is safe for concurrent use.
type ChunkPool struct {
	size int
	pool sync.Pool
}

// NewChunkPool creates a pool of regions of the given size.
// It panics if size is smaller than MinChunkSize.
func NewChunkPool(size int) *ChunkPool {
	if size < MinChunkSize {
		panic(fmt.Sprintf("buffer: chunk size %d is smaller than %d", size, MinChunkSize))
	}
	p := &ChunkPool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

// Size returns the length of the regions handed out by the pool
func (p *ChunkPool) Size() int {
	return p.size
}

// Alloc returns a region of Size() bytes. The content is undefined.
func (p *ChunkPool) Alloc() []byte {
	b := p.pool.Get().(*[]byte)
	return (*b)[:p.size]
}

// Free returns a region to the pool. Regions of a foreign size are dropped.
func (p *ChunkPool) Free(chunk []byte) {
	if cap(chunk) != p.size {
		return
	}
	chunk = chunk[:p.size]
	p.pool.Put(&chunk)
}
