package tcp

import (
	"testing"

	"github.com/oooscar8/minnow/internal/bytestream"
	"github.com/oooscar8/minnow/internal/wrap32"
)

func TestSenderSendsSYNFirst(t *testing.T) {
	stream := bytestream.New(64)
	isn := wrap32.New(12345)
	s := NewSender(stream, isn, Config{MSS: 1452, InitialRTOMs: 1000})

	var sent []SenderMessage
	s.Push(func(m SenderMessage) { sent = append(sent, m) })

	if len(sent) != 1 || !sent[0].SYN || len(sent[0].Payload) != 0 {
		t.Fatalf("expected lone SYN segment, got %+v", sent)
	}
	if sent[0].Seqno != wrap32.Wrap(0, isn) {
		t.Fatalf("SYN seqno mismatch")
	}
}

func TestSenderSendsDataAfterWindowOpens(t *testing.T) {
	stream := bytestream.New(64)
	isn := wrap32.New(0)
	s := NewSender(stream, isn, Config{MSS: 1452, InitialRTOMs: 1000})

	s.Push(func(SenderMessage) {})
	ack := wrap32.Wrap(1, isn)
	s.Receive(ReceiverMessage{Ackno: &ack, WindowSize: 10})

	stream.Push([]byte("hello"))
	stream.Close()

	var sent []SenderMessage
	s.Push(func(m SenderMessage) { sent = append(sent, m) })

	if len(sent) != 1 {
		t.Fatalf("expected one segment, got %d", len(sent))
	}
	if string(sent[0].Payload) != "hello" || !sent[0].FIN {
		t.Fatalf("expected hello+FIN, got %+v", sent[0])
	}
}

func TestZeroWindowProbeSendsOneByteAndSuppressesBackoff(t *testing.T) {
	stream := bytestream.New(64)
	isn := wrap32.New(0)
	s := NewSender(stream, isn, Config{MSS: 1452, InitialRTOMs: 1000})

	s.Push(func(SenderMessage) {})
	ack := wrap32.Wrap(1, isn)
	s.Receive(ReceiverMessage{Ackno: &ack, WindowSize: 0})

	stream.Push([]byte("hello"))

	var sent []SenderMessage
	s.Push(func(m SenderMessage) { sent = append(sent, m) })
	if len(sent) != 1 || len(sent[0].Payload) != 1 {
		t.Fatalf("expected exactly one probe byte, got %+v", sent)
	}

	before := s.ConsecutiveRetransmissions()
	s.Tick(1000, func(SenderMessage) {})
	s.Tick(1000, func(SenderMessage) {})
	if s.ConsecutiveRetransmissions() != before {
		t.Fatalf("zero-window retransmission should not count against consecutive_retransmissions")
	}
}

func TestDuplicateAckOnlyRefreshesWindow(t *testing.T) {
	stream := bytestream.New(64)
	isn := wrap32.New(0)
	s := NewSender(stream, isn, Config{MSS: 1452, InitialRTOMs: 1000})

	s.Push(func(SenderMessage) {})
	ack := wrap32.Wrap(1, isn)
	s.Receive(ReceiverMessage{Ackno: &ack, WindowSize: 10})
	before := s.ConsecutiveRetransmissions()
	s.Receive(ReceiverMessage{Ackno: &ack, WindowSize: 20})
	if s.ConsecutiveRetransmissions() != before {
		t.Fatalf("duplicate ack must not touch retransmission counter")
	}
	if s.receiverWindow != 20 {
		t.Fatalf("duplicate ack should refresh window to 20, got %d", s.receiverWindow)
	}
}
