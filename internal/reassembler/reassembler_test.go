package reassembler

import (
	"testing"

	"github.com/oooscar8/minnow/internal/bytestream"
)

func TestInOrderInsert(t *testing.T) {
	stream := bytestream.New(100)
	r := New(stream)
	r.Insert(0, []byte("abcd"), false)
	if got := string(stream.Peek()); got != "abcd" {
		t.Fatalf("got %q", got)
	}
}

func TestOutOfOrderThenFill(t *testing.T) {
	stream := bytestream.New(100)
	r := New(stream)
	r.Insert(3, []byte("def"), false)
	if stream.Buffered() != 0 {
		t.Fatalf("premature delivery: buffered=%d", stream.Buffered())
	}
	if r.CountBytesPending() != 3 {
		t.Fatalf("pending: got %d, want 3", r.CountBytesPending())
	}
	r.Insert(0, []byte("abc"), false)
	if got := string(stream.Peek()); got != "abcdef" {
		t.Fatalf("got %q", got)
	}
	if r.CountBytesPending() != 0 {
		t.Fatalf("pending after merge: got %d, want 0", r.CountBytesPending())
	}
}

func TestOverlappingFragmentsMerge(t *testing.T) {
	stream := bytestream.New(100)
	r := New(stream)
	r.Insert(0, []byte("ab"), false)
	stream.Pop(2)
	r.Insert(3, []byte("xyz"), false) // one-byte gap at index 2 keeps it pending
	r.Insert(4, []byte("y"), false)   // fully contained in previous
	if r.CountBytesPending() != 3 {
		t.Fatalf("pending: got %d, want 3", r.CountBytesPending())
	}
}

func TestIsLastClosesStream(t *testing.T) {
	stream := bytestream.New(100)
	r := New(stream)
	r.Insert(0, []byte("hi"), true)
	if !stream.IsClosed() {
		t.Fatal("stream should be closed once last byte delivered")
	}
	stream.Pop(2)
	if !r.IsFinished() {
		t.Fatal("reassembler should report finished")
	}
}

func TestZeroLengthTerminalAtNextIndexClosesImmediately(t *testing.T) {
	stream := bytestream.New(100)
	r := New(stream)
	r.Insert(0, nil, true)
	if !stream.IsClosed() {
		t.Fatal("empty terminal fragment at next index should close the stream")
	}
}

func TestCapacityLimitsPending(t *testing.T) {
	stream := bytestream.New(4)
	r := New(stream)
	r.Insert(2, []byte("abcdef"), false) // only 4 bytes fit in the window
	if r.CountBytesPending() > 4 {
		t.Fatalf("pending exceeds capacity: %d", r.CountBytesPending())
	}
}
