// Package ring implements the single-producer/single-consumer,
// byte-framed ring queue used to hand MIDI messages from a user thread to
// a realtime callback without locks or allocation on the consumer side
// (§4.B of the spec). It is grounded on the `jack_queue` ring buffer in
// the reference C++ implementation: a fixed byte buffer, atomic cursors,
// spin-yield on the producer side, and silent frame discard on the
// consumer side when the host's per-cycle sink is full.
package ring

import (
	"encoding/binary"
	"runtime"
	"sync/atomic"

	"github.com/leandrodaf/midigo/pkg/apperr"
)

const lenPrefixSize = 4

// Sink is the host-provided per-cycle MIDI buffer that Drain reserves
// space in. Implementations must not block or allocate on the fast path;
// Reserve returning false means "no space left this cycle", which Drain
// treats as a dropped frame.
type Sink interface {
	Reserve(n int) (buf []byte, ok bool)
}

// Queue is a fixed-capacity SPSC ring buffer of ⟨len u32le⟩⟨payload⟩
// frames. One goroutine may call Write; a single, possibly different,
// goroutine may call Drain; no other goroutine may touch either side
// concurrently.
type Queue struct {
	buf      []byte
	capacity uint64 // == len(buf), the raw buffer size N
	usable   uint64 // == capacity - 1, the usable capacity U

	writeIdx atomic.Uint64 // only the producer mutates this
	readIdx  atomic.Uint64 // only the consumer mutates this
}

// New creates a ring queue with raw capacity n (power-of-two
// recommended). Usable capacity is n-1, matching the spec's U = N-1.
func New(n int) *Queue {
	if n < 2 {
		n = 2
	}
	return &Queue{buf: make([]byte, n), capacity: uint64(n), usable: uint64(n - 1)}
}

// Usable returns U, the largest frame payload plus header this queue can
// ever hold.
func (q *Queue) Usable() int { return int(q.usable) }

func (q *Queue) freeSpace(writeIdx, readIdx uint64) uint64 {
	used := writeIdx - readIdx
	return q.usable - used
}

// Write copies bytes into the queue as one frame. If the frame can never
// fit (len(bytes)+4 > U) it fails immediately with NoBufferSpace. If the
// queue is merely temporarily full, Write spin-yields until the consumer
// has drained enough space — this is deliberate: producers here are
// non-realtime, and the consumer never sleeps, so a condition variable
// would be the wrong tool.
func (q *Queue) Write(bytes []byte) error {
	frameSize := uint64(len(bytes) + lenPrefixSize)
	if frameSize > q.usable {
		return apperr.Newf(apperr.NoBufferSpace, "frame of %d bytes can never fit in a %d-byte ring", len(bytes), q.usable)
	}

	writeIdx := q.writeIdx.Load()
	for {
		readIdx := q.readIdx.Load()
		if q.freeSpace(writeIdx, readIdx) >= frameSize {
			break
		}
		runtime.Gosched()
	}

	var header [lenPrefixSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(bytes)))

	pos := writeIdx
	pos = q.writeAt(pos, header[:])
	pos = q.writeAt(pos, bytes)

	// Release: the consumer must see the fully written frame before it
	// observes the advanced index.
	q.writeIdx.Store(pos)
	return nil
}

func (q *Queue) writeAt(pos uint64, data []byte) uint64 {
	for _, b := range data {
		q.buf[pos%q.capacity] = b
		pos++
	}
	return pos
}

func (q *Queue) readAt(pos uint64, out []byte) uint64 {
	for i := range out {
		out[i] = q.buf[pos%q.capacity]
		pos++
	}
	return pos
}

// Drain is called from the realtime consumer. It repeatedly peeks a
// length prefix; if a full frame is available it is reserved in sink and
// copied, or silently discarded if sink has no room this cycle. Drain
// never blocks and never allocates.
func (q *Queue) Drain(sink Sink) {
	readIdx := q.readIdx.Load()
	for {
		writeIdx := q.writeIdx.Load() // acquire: see the producer's committed bytes
		readable := writeIdx - readIdx
		if readable < lenPrefixSize {
			break
		}

		var header [lenPrefixSize]byte
		q.readAt(readIdx, header[:])
		frameLen := binary.LittleEndian.Uint32(header[:])

		if readable < uint64(lenPrefixSize)+uint64(frameLen) {
			// Frame still in flight: the producer's write ordering
			// guarantees it will finish; try again next cycle.
			break
		}

		readIdx += lenPrefixSize

		if frameLen > 0 {
			if dst, ok := sink.Reserve(int(frameLen)); ok {
				q.readAt(readIdx, dst)
			}
			// Either copied or discarded: advance past the payload either
			// way to preserve frame boundaries across cycles.
			readIdx += uint64(frameLen)
		}

		q.readIdx.Store(readIdx)
	}
}
