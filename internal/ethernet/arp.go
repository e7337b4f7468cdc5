package ethernet

import (
	"encoding/binary"
	"net"
	"net/netip"

	"github.com/pkg/errors"
)

// ARP operation codes, per RFC 826.
const (
	ARPOpRequest uint16 = 1
	ARPOpReply   uint16 = 2
)

// ARPMessageSize is the fixed wire size of an ARP message for
// Ethernet/IPv4 (hardware size 6, protocol size 4).
const ARPMessageSize = 28

// ARPMessage is an ARP request or reply for Ethernet/IPv4 address
// resolution.
type ARPMessage struct {
	Operation uint16
	SenderMAC net.HardwareAddr
	SenderIP  netip.Addr
	TargetMAC net.HardwareAddr
	TargetIP  netip.Addr
}

// ParseARPMessage decodes a raw ARP message.
func ParseARPMessage(data []byte) (*ARPMessage, error) {
	if len(data) < ARPMessageSize {
		return nil, errors.Errorf("arp: message too short: %d bytes", len(data))
	}
	hardwareType := binary.BigEndian.Uint16(data[0:2])
	protocolType := binary.BigEndian.Uint16(data[2:4])
	hardwareSize := data[4]
	protocolSize := data[5]
	if hardwareType != 1 || protocolType != uint16(EtherTypeIPv4) || hardwareSize != 6 || protocolSize != 4 {
		return nil, errors.New("arp: unsupported hardware/protocol type")
	}

	senderIP, ok := netip.AddrFromSlice(data[14:18])
	if !ok {
		return nil, errors.New("arp: invalid sender IP")
	}
	targetIP, ok := netip.AddrFromSlice(data[24:28])
	if !ok {
		return nil, errors.New("arp: invalid target IP")
	}

	return &ARPMessage{
		Operation: binary.BigEndian.Uint16(data[6:8]),
		SenderMAC: net.HardwareAddr(append([]byte(nil), data[8:14]...)),
		SenderIP:  senderIP,
		TargetMAC: net.HardwareAddr(append([]byte(nil), data[18:24]...)),
		TargetIP:  targetIP,
	}, nil
}

// Serialize encodes the ARP message to raw bytes.
func (m *ARPMessage) Serialize() []byte {
	buf := make([]byte, ARPMessageSize)
	binary.BigEndian.PutUint16(buf[0:2], 1)
	binary.BigEndian.PutUint16(buf[2:4], uint16(EtherTypeIPv4))
	buf[4] = 6
	buf[5] = 4
	binary.BigEndian.PutUint16(buf[6:8], m.Operation)
	copy(buf[8:14], m.SenderMAC)
	senderIP4 := m.SenderIP.As4()
	copy(buf[14:18], senderIP4[:])
	copy(buf[18:24], m.TargetMAC)
	targetIP4 := m.TargetIP.As4()
	copy(buf[24:28], targetIP4[:])
	return buf
}

// NewARPRequest builds an ARP request asking who has targetIP.
func NewARPRequest(senderMAC net.HardwareAddr, senderIP, targetIP netip.Addr) *ARPMessage {
	return &ARPMessage{
		Operation: ARPOpRequest,
		SenderMAC: senderMAC,
		SenderIP:  senderIP,
		TargetMAC: net.HardwareAddr{0, 0, 0, 0, 0, 0},
		TargetIP:  targetIP,
	}
}

// NewARPReply builds an ARP reply to targetMAC/targetIP.
func NewARPReply(senderMAC net.HardwareAddr, senderIP netip.Addr, targetMAC net.HardwareAddr, targetIP netip.Addr) *ARPMessage {
	return &ARPMessage{
		Operation: ARPOpReply,
		SenderMAC: senderMAC,
		SenderIP:  senderIP,
		TargetMAC: targetMAC,
		TargetIP:  targetIP,
	}
}
