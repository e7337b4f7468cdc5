package tcp

import (
	"github.com/oooscar8/minnow/internal/bytestream"
	"github.com/oooscar8/minnow/internal/wrap32"
)

// Config carries the parameters an external TCP stack supplies per
// connection: maximum segment size and the sender's starting RTO.
type Config struct {
	MSS          uint64
	InitialRTOMs uint64
}

type outstandingSegment struct {
	seqno uint64
	msg   SenderMessage
}

// Sender turns an outgoing ByteStream into segments, tracks outstanding
// (unacknowledged) data, and drives retransmission.
type Sender struct {
	stream *bytestream.ByteStream
	isn    wrap32.Wrap32
	mss    uint64

	timer *RetransmissionTimer

	nextSeqno      uint64
	ackCheckpoint  uint64
	receiverWindow uint16

	synSent bool
	finSent bool

	consecutiveRetransmissions uint64

	outstanding []outstandingSegment
}

// NewSender constructs a Sender reading from stream.
func NewSender(stream *bytestream.ByteStream, isn wrap32.Wrap32, cfg Config) *Sender {
	return &Sender{
		stream:         stream,
		isn:            isn,
		mss:            cfg.MSS,
		receiverWindow: 1,
		timer:          NewRetransmissionTimer(cfg.InitialRTOMs),
	}
}

// Stream exposes the outgoing ByteStream so the application can write to it.
func (s *Sender) Stream() *bytestream.ByteStream {
	return s.stream
}

// Push emits as many segments as the current window allows, given
// everything currently buffered to send.
func (s *Sender) Push(transmit func(SenderMessage)) {
	for {
		zeroWindow := s.receiverWindow == 0
		outstanding := s.nextSeqno - s.ackCheckpoint

		var available int64
		if zeroWindow {
			if outstanding > 0 {
				break
			}
			available = 1
		} else {
			available = int64(s.receiverWindow) - int64(outstanding)
			if available <= 0 {
				break
			}
		}

		includeSyn := !s.synSent
		var synBit uint64
		if includeSyn {
			synBit = 1
		}
		if synBit > uint64(available) {
			break
		}
		budget := uint64(available) - synBit

		payloadLen := budget
		if s.mss < payloadLen {
			payloadLen = s.mss
		}
		if buffered := s.stream.Buffered(); buffered < payloadLen {
			payloadLen = buffered
		}

		payload := append([]byte(nil), s.stream.Peek()[:payloadLen]...)
		s.stream.Pop(int(payloadLen))

		includeFin := s.stream.IsClosed() && !s.finSent && s.stream.Buffered() == 0 &&
			synBit+payloadLen+1 <= uint64(available)

		msg := SenderMessage{SYN: includeSyn, Payload: payload, FIN: includeFin}
		if s.stream.HasError() {
			msg.RST = true
		}

		if msg.SequenceLength() == 0 {
			break
		}

		msg.Seqno = wrap32.Wrap(s.nextSeqno, s.isn)
		s.outstanding = append(s.outstanding, outstandingSegment{seqno: s.nextSeqno, msg: msg})
		s.nextSeqno += msg.SequenceLength()
		if includeSyn {
			s.synSent = true
		}
		if includeFin {
			s.finSent = true
		}

		transmit(msg)
		if !s.timer.IsRunning() {
			s.timer.Start()
		}

		if zeroWindow {
			break
		}
	}
}

// Receive processes an acknowledgement from the peer's receiver.
func (s *Sender) Receive(msg ReceiverMessage) {
	if msg.RST {
		s.stream.SetError()
		return
	}

	if msg.Ackno == nil {
		s.receiverWindow = msg.WindowSize
		return
	}

	ackAbs := msg.Ackno.Unwrap(s.isn, s.ackCheckpoint)
	if ackAbs > s.nextSeqno {
		return
	}

	if ackAbs <= s.ackCheckpoint {
		s.receiverWindow = msg.WindowSize
		return
	}

	s.ackCheckpoint = ackAbs
	s.receiverWindow = msg.WindowSize

	i := 0
	for i < len(s.outstanding) {
		seg := s.outstanding[i]
		if seg.seqno+seg.msg.SequenceLength() <= ackAbs {
			i++
			continue
		}
		break
	}
	s.outstanding = s.outstanding[i:]

	s.timer.ResetRTO()
	if len(s.outstanding) > 0 {
		s.timer.Start()
	} else {
		s.timer.Stop()
	}
	s.consecutiveRetransmissions = 0
}

// Tick advances the retransmission timer and retransmits on expiry.
func (s *Sender) Tick(deltaMs uint64, transmit func(SenderMessage)) {
	if !s.timer.IsRunning() {
		return
	}
	s.timer.Tick(deltaMs)
	if !s.timer.Expired() {
		return
	}
	if len(s.outstanding) == 0 {
		s.timer.Stop()
		return
	}

	transmit(s.outstanding[0].msg)

	if s.receiverWindow > 0 {
		s.timer.DoubleRTO()
		s.consecutiveRetransmissions++
	}
	s.timer.Start()
}

// MakeEmptyMessage returns a bare ACK-carrying segment (no payload, no
// SYN/FIN) used when the sender has nothing new to push.
func (s *Sender) MakeEmptyMessage() SenderMessage {
	msg := SenderMessage{Seqno: wrap32.Wrap(s.nextSeqno, s.isn)}
	if s.stream.HasError() {
		msg.RST = true
	}
	return msg
}

// SequenceNumbersInFlight is a test-only accessor: total sequence numbers
// outstanding (unacknowledged).
func (s *Sender) SequenceNumbersInFlight() uint64 {
	var total uint64
	for _, seg := range s.outstanding {
		total += seg.msg.SequenceLength()
	}
	return total
}

// ConsecutiveRetransmissions is a test-only accessor.
func (s *Sender) ConsecutiveRetransmissions() uint64 {
	return s.consecutiveRetransmissions
}
