// Package ethernet implements the black-box Ethernet frame and ARP message
// codecs NetworkInterface treats as external wire formats.
package ethernet

import (
	"encoding/binary"
	"net"

	"github.com/pkg/errors"
)

// EtherType identifies the payload carried by a Frame.
type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
)

// HeaderLength is the fixed Ethernet header size in bytes (dst + src MAC +
// ethertype).
const HeaderLength = 14

// Frame is an Ethernet II frame.
type Frame struct {
	DstMAC    net.HardwareAddr
	SrcMAC    net.HardwareAddr
	EtherType EtherType
	Payload   []byte
}

// BroadcastMAC returns the Ethernet broadcast address.
func BroadcastMAC() net.HardwareAddr {
	return net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
}

// ParseFrame decodes a raw Ethernet frame.
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) < HeaderLength {
		return nil, errors.Errorf("ethernet: frame too short: %d bytes", len(data))
	}
	f := &Frame{
		DstMAC:    net.HardwareAddr(append([]byte(nil), data[0:6]...)),
		SrcMAC:    net.HardwareAddr(append([]byte(nil), data[6:12]...)),
		EtherType: EtherType(binary.BigEndian.Uint16(data[12:14])),
		Payload:   append([]byte(nil), data[14:]...),
	}
	return f, nil
}

// Serialize encodes the frame to raw bytes.
func (f *Frame) Serialize() []byte {
	buf := make([]byte, HeaderLength+len(f.Payload))
	copy(buf[0:6], f.DstMAC)
	copy(buf[6:12], f.SrcMAC)
	binary.BigEndian.PutUint16(buf[12:14], uint16(f.EtherType))
	copy(buf[14:], f.Payload)
	return buf
}

// IsBroadcast reports whether the frame's destination is the broadcast
// address.
func (f *Frame) IsBroadcast() bool {
	for _, b := range f.DstMAC {
		if b != 0xFF {
			return false
		}
	}
	return true
}
