// Package buffer provides the tag-framed byte buffers of the jetpack codec.
//
// Writer encodes primitive values, strings and structural markers into a
// byte region obtained from an Allocator. When the region cannot hold the
// next value it performs a flush-and-continue: it takes a fresh region from
// the Allocator, resets its cursor and hands the filled region to a FlushFunc.
// Fixed width values are never split across regions; strings are streamed
// through a UTF-8 transformer and may continue in the next region at a
// character boundary.
//
// Reader decodes values framed by a Writer. Reads of fixed width values are
// all-or-nothing: if the region ends early the reader is left untouched and
// ErrShortBuffer is returned. String reads report {Done, BytesRead, CharsRead}
// so a string that spans several input regions can be resumed:
//
//	value, res, err := r.ReadString(n)
//	for err == nil && !res.Done {
//	    r.Reset(nextRegion())
//	    more := r.ResumeString(&value, res.CharsRead, n)
//	    res.CharsRead += more.CharsRead
//	    res.Done = more.Done
//	}
//
// ChunkPool is the default Allocator, a sync.Pool of equally sized regions.
//
// Neither Writer nor Reader is safe for concurrent use; see package pool for
// handing writers between goroutines.
package buffer
