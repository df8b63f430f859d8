package util

import (
	"crypto/rand"
	"encoding/binary"
	"runtime"
	"time"
)

// --------------------------------------------------------------------------
// General Utility Functions
// --------------------------------------------------------------------------

// GenerateSeed creates a random seed for internal hash distribution
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// fall back to the current time, only if the system source fails
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// --------------------------------------------------------------------------
// Backoff
// --------------------------------------------------------------------------

// maxBackoff caps the exponent of the spin phase (2^10 yields)
const maxBackoff = 10

// Backoff is an exponential backoff for CAS retry loops. The zero value is
// ready to use; a Backoff must not be shared between goroutines.
type Backoff struct {
	n uint8
}

// Wait yields the processor, longer with every call.
//
// At low contention the goroutine spins through a few scheduler yields to
// avoid parking; with each retry the number of yields doubles so competing
// goroutines spread out instead of retrying in lockstep.
func (b *Backoff) Wait() {
	if b.n < maxBackoff {
		b.n++
		for i := 0; i < 1<<b.n; i++ {
			runtime.Gosched()
		}
	}
	runtime.Gosched()
}
