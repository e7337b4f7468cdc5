// Package bytestream implements a bounded, single-producer/single-consumer
// byte pipe with close and error states.
package bytestream

import (
	"github.com/smallnest/ringbuffer"
)

// ByteStream is a bounded FIFO byte pipe. It is not safe for concurrent use
// by more than one writer and one reader; both sides are expected to run in
// the same cooperative event loop (see the tcp package).
type ByteStream struct {
	capacity uint64
	buf      *ringbuffer.RingBuffer

	bytesPushed uint64
	bytesPopped uint64
	closed      bool
	errored     bool
}

// New constructs a ByteStream with the given capacity in bytes.
func New(capacity uint64) *ByteStream {
	return &ByteStream{
		capacity: capacity,
		buf:      ringbuffer.New(int(capacity)),
	}
}

// Push writes as much of data as available capacity allows, returning the
// number of bytes actually written. It never blocks and never writes past
// the stream's capacity.
func (s *ByteStream) Push(data []byte) int {
	if s.closed || s.errored {
		return 0
	}
	toWrite := data
	if avail := s.AvailableCapacity(); uint64(len(toWrite)) > avail {
		toWrite = toWrite[:avail]
	}
	if len(toWrite) == 0 {
		return 0
	}
	n, _ := s.buf.Write(toWrite)
	s.bytesPushed += uint64(n)
	return n
}

// Close marks the stream as finished: no more bytes will ever be pushed.
func (s *ByteStream) Close() {
	s.closed = true
}

// IsClosed reports whether Close has been called.
func (s *ByteStream) IsClosed() bool {
	return s.closed
}

// SetError puts the stream into a permanent error state (e.g. on RST).
func (s *ByteStream) SetError() {
	s.errored = true
}

// HasError reports whether the stream is in the error state.
func (s *ByteStream) HasError() bool {
	return s.errored
}

// AvailableCapacity is how many more bytes can be pushed before the stream
// is full.
func (s *ByteStream) AvailableCapacity() uint64 {
	return s.capacity - s.Buffered()
}

// BytesPushed is the total number of bytes ever successfully pushed.
func (s *ByteStream) BytesPushed() uint64 {
	return s.bytesPushed
}

// Peek returns (without consuming) all bytes currently buffered.
func (s *ByteStream) Peek() []byte {
	return s.buf.Bytes(nil)
}

// Pop discards up to len bytes from the front of the buffer.
func (s *ByteStream) Pop(n int) {
	buffered := s.buf.Length()
	if n > buffered {
		n = buffered
	}
	if n <= 0 {
		return
	}
	discard := make([]byte, n)
	read, _ := s.buf.Read(discard)
	s.bytesPopped += uint64(read)
}

// IsFinished reports whether the stream is closed and fully drained.
func (s *ByteStream) IsFinished() bool {
	return s.closed && s.Buffered() == 0
}

// Buffered is the number of bytes currently held, unread.
func (s *ByteStream) Buffered() uint64 {
	return uint64(s.buf.Length())
}

// BytesPopped is the total number of bytes ever popped from the stream.
func (s *ByteStream) BytesPopped() uint64 {
	return s.bytesPopped
}
