package bytestream

import "testing"

func TestPushPopBasic(t *testing.T) {
	s := New(10)
	n := s.Push([]byte("hello"))
	if n != 5 {
		t.Fatalf("Push: got %d, want 5", n)
	}
	if s.Buffered() != 5 {
		t.Fatalf("Buffered: got %d, want 5", s.Buffered())
	}
	if got := string(s.Peek()); got != "hello" {
		t.Fatalf("Peek: got %q", got)
	}
	s.Pop(3)
	if got := string(s.Peek()); got != "lo" {
		t.Fatalf("Peek after pop: got %q", got)
	}
	if s.BytesPopped() != 3 {
		t.Fatalf("BytesPopped: got %d, want 3", s.BytesPopped())
	}
}

func TestPushRespectsCapacity(t *testing.T) {
	s := New(3)
	n := s.Push([]byte("hello"))
	if n != 3 {
		t.Fatalf("Push over capacity: got %d, want 3", n)
	}
	if s.AvailableCapacity() != 0 {
		t.Fatalf("AvailableCapacity: got %d, want 0", s.AvailableCapacity())
	}
}

func TestCloseAndFinish(t *testing.T) {
	s := New(10)
	s.Push([]byte("ab"))
	if s.IsFinished() {
		t.Fatal("should not be finished before close")
	}
	s.Close()
	if s.IsFinished() {
		t.Fatal("should not be finished while bytes remain buffered")
	}
	s.Pop(2)
	if !s.IsFinished() {
		t.Fatal("should be finished once closed and drained")
	}
}

func TestErrorBlocksFurtherPush(t *testing.T) {
	s := New(10)
	s.SetError()
	if !s.HasError() {
		t.Fatal("HasError should be true")
	}
	if n := s.Push([]byte("x")); n != 0 {
		t.Fatalf("Push after error: got %d, want 0", n)
	}
}
