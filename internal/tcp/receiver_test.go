package tcp

import (
	"testing"

	"github.com/oooscar8/minnow/internal/bytestream"
	"github.com/oooscar8/minnow/internal/wrap32"
)

func TestReceiverAcksSYN(t *testing.T) {
	stream := bytestream.New(64)
	r := NewReceiver(stream)
	isn := wrap32.New(100)

	r.Receive(SenderMessage{Seqno: isn, SYN: true})
	out := r.Send()
	if out.Ackno == nil || *out.Ackno != wrap32.Wrap(1, isn) {
		t.Fatalf("expected ackno wrap(1,isn), got %+v", out.Ackno)
	}
}

func TestReceiverDeliversDataInOrder(t *testing.T) {
	stream := bytestream.New(64)
	r := NewReceiver(stream)
	isn := wrap32.New(0)

	r.Receive(SenderMessage{Seqno: isn, SYN: true})
	r.Receive(SenderMessage{Seqno: wrap32.Wrap(1, isn), Payload: []byte("hello"), FIN: true})

	if string(stream.Peek()) != "hello" {
		t.Fatalf("got %q", stream.Peek())
	}
	if !stream.IsClosed() {
		t.Fatal("stream should be closed after FIN delivered")
	}
	out := r.Send()
	want := wrap32.Wrap(7, isn) // SYN(1) + 5 bytes + FIN(1) = ack 7
	if out.Ackno == nil || *out.Ackno != want {
		t.Fatalf("got ackno %+v want %+v", out.Ackno, want)
	}
}

func TestReceiverRSTSetsError(t *testing.T) {
	stream := bytestream.New(64)
	r := NewReceiver(stream)
	r.Receive(SenderMessage{RST: true})
	if !stream.HasError() {
		t.Fatal("expected stream error after RST")
	}
	out := r.Send()
	if !out.RST {
		t.Fatal("expected RST in outgoing message")
	}
}
