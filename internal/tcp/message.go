package tcp

import "github.com/oooscar8/minnow/internal/wrap32"

// SenderMessage is a TCP segment as emitted by the sender and consumed by a
// peer's receiver — the wire-agnostic shape described by the TCP message
// data model (segment framing/checksums live in package segment).
type SenderMessage struct {
	Seqno   wrap32.Wrap32
	Payload []byte
	SYN     bool
	FIN     bool
	RST     bool
}

// SequenceLength is the number of sequence numbers this segment consumes:
// SYN + len(payload) + FIN.
func (m SenderMessage) SequenceLength() uint64 {
	n := uint64(len(m.Payload))
	if m.SYN {
		n++
	}
	if m.FIN {
		n++
	}
	return n
}

// ReceiverMessage is the receiver's acknowledgement/window advertisement
// sent back to the sender.
type ReceiverMessage struct {
	Ackno      *wrap32.Wrap32
	WindowSize uint16
	RST        bool
}
