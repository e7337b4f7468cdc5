package tcp

import (
	"github.com/oooscar8/minnow/internal/bytestream"
	"github.com/oooscar8/minnow/internal/reassembler"
	"github.com/oooscar8/minnow/internal/wrap32"
)

const maxWindowSize = 1<<16 - 1

// Receiver turns incoming segments into ordered bytes on a downstream
// ByteStream, and generates the ackno/window_size to report back to the
// peer's sender.
type Receiver struct {
	reassembler *reassembler.Reassembler
	zeroPoint   wrap32.Wrap32
	synSeen     bool
}

// NewReceiver constructs a Receiver delivering into output.
func NewReceiver(output *bytestream.ByteStream) *Receiver {
	return &Receiver{reassembler: reassembler.New(output)}
}

// Reassembler exposes the underlying reassembler.
func (r *Receiver) Reassembler() *reassembler.Reassembler {
	return r.reassembler
}

// Receive processes one incoming segment.
func (r *Receiver) Receive(msg SenderMessage) {
	if msg.RST {
		r.reassembler.Output().SetError()
		return
	}

	if msg.SYN {
		r.zeroPoint = msg.Seqno
		r.synSeen = true
	}
	if !r.synSeen {
		return
	}

	nextExpected := r.reassembler.NextByteIndex()
	unwrapped := msg.Seqno.Unwrap(r.zeroPoint, nextExpected)

	// SYN consumes sequence number 0 of the byte stream; data bytes are
	// numbered starting one past it, so non-SYN segments need the -1
	// correction back into the reassembler's zero-based index space.
	firstIndex := unwrapped
	if !msg.SYN {
		firstIndex = unwrapped - 1
	}

	r.reassembler.Insert(firstIndex, msg.Payload, msg.FIN)
}

// Send reports the current ackno/window_size (and any RST) to the peer.
func (r *Receiver) Send() ReceiverMessage {
	var out ReceiverMessage

	if r.reassembler.Output().HasError() {
		out.RST = true
		return out
	}

	if !r.synSeen {
		out.WindowSize = clampWindow(r.reassembler.Output().AvailableCapacity())
		return out
	}

	// The SYN consumed sequence number zero, so the ackno sits one past the
	// next expected stream index; a delivered FIN consumes one more.
	ackOffset := r.reassembler.NextByteIndex() + 1
	if r.reassembler.Output().IsClosed() {
		ackOffset++
	}
	ackno := wrap32.Wrap(ackOffset, r.zeroPoint)
	out.Ackno = &ackno
	out.WindowSize = clampWindow(r.reassembler.Output().AvailableCapacity())
	return out
}

func clampWindow(n uint64) uint16 {
	if n > maxWindowSize {
		return maxWindowSize
	}
	return uint16(n)
}
