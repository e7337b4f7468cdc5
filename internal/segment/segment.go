// Package segment is the glue adapter between tcp.SenderMessage/
// tcp.ReceiverMessage (wire-agnostic protocol state) and TCP-over-IPv4 wire
// bytes. It holds no protocol state of its own.
package segment

import (
	"encoding/binary"
	"net/netip"

	"github.com/google/netstack/tcpip/header"
	"github.com/pkg/errors"

	"github.com/oooscar8/minnow/internal/tcp"
	"github.com/oooscar8/minnow/internal/wrap32"
)

// Endpoint identifies one side of a TCP-over-IP connection, for checksum
// pseudo-header computation.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// EncodeSender renders a tcp.SenderMessage as a TCP segment's wire bytes
// (header + payload), including a correctly computed checksum.
func EncodeSender(msg tcp.SenderMessage, src, dst Endpoint) []byte {
	var flags uint8
	if msg.SYN {
		flags |= header.TCPFlagSyn
	}
	if msg.FIN {
		flags |= header.TCPFlagFin
	}
	if msg.RST {
		flags |= header.TCPFlagRst
	}

	fields := header.TCPFields{
		SrcPort:    src.Port,
		DstPort:    dst.Port,
		SeqNum:     msg.Seqno.Raw(),
		DataOffset: header.TCPMinimumSize,
		Flags:      flags,
	}

	return encode(fields, msg.Payload, src, dst)
}

// EncodeReceiver renders a tcp.ReceiverMessage combined with a sender-side
// segment (possibly empty, via MakeEmptyMessage) as wire bytes: the usual
// ACK-piggybacking layout of a live connection.
func EncodeReceiver(senderMsg tcp.SenderMessage, recv tcp.ReceiverMessage, src, dst Endpoint) []byte {
	var flags uint8
	if senderMsg.SYN {
		flags |= header.TCPFlagSyn
	}
	if senderMsg.FIN {
		flags |= header.TCPFlagFin
	}
	if recv.RST || senderMsg.RST {
		flags |= header.TCPFlagRst
	}

	var ackNum uint32
	if recv.Ackno != nil {
		flags |= header.TCPFlagAck
		ackNum = recv.Ackno.Raw()
	}

	fields := header.TCPFields{
		SrcPort:    src.Port,
		DstPort:    dst.Port,
		SeqNum:     senderMsg.Seqno.Raw(),
		AckNum:     ackNum,
		DataOffset: header.TCPMinimumSize,
		Flags:      flags,
		WindowSize: recv.WindowSize,
	}

	return encode(fields, senderMsg.Payload, src, dst)
}

func encode(fields header.TCPFields, payload []byte, src, dst Endpoint) []byte {
	buf := make(header.TCP, header.TCPMinimumSize+len(payload))
	copy(buf[header.TCPMinimumSize:], payload)
	buf.Encode(&fields)
	buf.SetChecksum(^checksum(buf, src.Addr, dst.Addr))
	return buf
}

// Decode parses wire bytes into the sender-side and receiver-side messages
// the two halves of a TCP endpoint consume, validating the checksum against
// the given endpoints.
func Decode(data []byte, src, dst Endpoint) (tcp.SenderMessage, tcp.ReceiverMessage, error) {
	if len(data) < header.TCPMinimumSize {
		return tcp.SenderMessage{}, tcp.ReceiverMessage{}, errors.Errorf("segment: packet too short: %d bytes", len(data))
	}
	t := header.TCP(data)

	// A valid segment's one's-complement sum, checksum field included, folds
	// to all ones.
	if checksum(data, src.Addr, dst.Addr) != 0xFFFF {
		return tcp.SenderMessage{}, tcp.ReceiverMessage{}, errors.New("segment: checksum mismatch")
	}

	offset := int(t.DataOffset())
	if offset < header.TCPMinimumSize || offset > len(data) {
		return tcp.SenderMessage{}, tcp.ReceiverMessage{}, errors.Errorf("segment: invalid data offset %d", offset)
	}

	flags := t.Flags()
	sender := tcp.SenderMessage{
		Seqno:   wrap32.New(t.SequenceNumber()),
		Payload: append([]byte(nil), data[offset:]...),
		SYN:     flags&header.TCPFlagSyn != 0,
		FIN:     flags&header.TCPFlagFin != 0,
		RST:     flags&header.TCPFlagRst != 0,
	}

	var recv tcp.ReceiverMessage
	recv.RST = sender.RST
	recv.WindowSize = t.WindowSize()
	if flags&header.TCPFlagAck != 0 {
		ackno := wrap32.New(t.AckNumber())
		recv.Ackno = &ackno
	}

	return sender, recv, nil
}

// checksum folds the IPv4/TCP pseudo-header and the full segment into a
// one's-complement sum.
func checksum(seg []byte, src, dst netip.Addr) uint16 {
	pseudo := make([]byte, 12)
	srcBytes := src.As4()
	dstBytes := dst.As4()
	copy(pseudo[0:4], srcBytes[:])
	copy(pseudo[4:8], dstBytes[:])
	pseudo[9] = uint8(header.TCPProtocolNumber)
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(seg)))

	sum := header.Checksum(pseudo, 0)
	return header.Checksum(seg, sum)
}
