package pool

import "sync"

// PayloadBufferDefaultSize is the default capacity of pooled payload buffers.
// A 2560x250 uint16 camera frame is 1.28MB, so 2MiB avoids regrowth for the
// common single-camera case.
const (
	PayloadBufferDefaultSize  = 1024 * 1024 * 2  // 2MiB
	PayloadBufferMaxThreshold = 1024 * 1024 * 32 // 32MiB
)

// ByteBuffer is a reusable byte slice wrapper handed out by the payload pool.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Grow ensures the buffer can hold n bytes and sets its length to n.
func (bb *ByteBuffer) Grow(n int) {
	if cap(bb.B) < n {
		bb.B = make([]byte, n)
		return
	}
	bb.B = bb.B[:n]
}

var payloadBufferPool = sync.Pool{
	New: func() any {
		return &ByteBuffer{B: make([]byte, 0, PayloadBufferDefaultSize)}
	},
}

// GetPayloadBuffer returns a pooled buffer for reading payload bytes.
func GetPayloadBuffer() *ByteBuffer {
	bb, _ := payloadBufferPool.Get().(*ByteBuffer)
	bb.Reset()

	return bb
}

// PutPayloadBuffer returns a buffer to the pool. Oversized buffers are dropped
// so a single huge set does not pin memory for the rest of the process.
func PutPayloadBuffer(bb *ByteBuffer) {
	if bb == nil || cap(bb.B) > PayloadBufferMaxThreshold {
		return
	}
	payloadBufferPool.Put(bb)
}
