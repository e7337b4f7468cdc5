// Package ipv4 implements the black-box IPv4 header codec: NetworkInterface
// and Router only need to parse far enough to read dst/ttl, decrement TTL,
// and recompute the checksum before re-serializing. Fragmentation fields are
// carried but never acted on (fragmentation/reassembly is out of scope).
package ipv4

import (
	"encoding/binary"
	"net/netip"

	"github.com/pkg/errors"
)

// HeaderLength is the fixed (no-options) IPv4 header size in bytes.
const HeaderLength = 20

const (
	ProtocolTest uint8 = 0
	ProtocolTCP  uint8 = 6
	ProtocolUDP  uint8 = 17
)

// Header is a parsed IPv4 header (options are preserved verbatim but not
// interpreted).
type Header struct {
	Version    uint8
	IHL        uint8
	TOS        uint8
	TotalLen   uint16
	ID         uint16
	Flags      uint8
	FragOffset uint16
	TTL        uint8
	Protocol   uint8
	Checksum   uint16
	Src        netip.Addr
	Dst        netip.Addr
	Options    []byte
}

// Datagram is a parsed IPv4 header plus its payload.
type Datagram struct {
	Header  Header
	Payload []byte
}

// Parse decodes an IPv4 datagram from raw bytes.
func Parse(data []byte) (*Datagram, error) {
	if len(data) < HeaderLength {
		return nil, errors.Errorf("ipv4: packet too short: %d bytes", len(data))
	}

	h := Header{
		Version:    data[0] >> 4,
		IHL:        data[0] & 0x0F,
		TOS:        data[1],
		TotalLen:   binary.BigEndian.Uint16(data[2:4]),
		ID:         binary.BigEndian.Uint16(data[4:6]),
		Flags:      data[6] >> 5,
		FragOffset: binary.BigEndian.Uint16(data[6:8]) & 0x1FFF,
		TTL:        data[8],
		Protocol:   data[9],
		Checksum:   binary.BigEndian.Uint16(data[10:12]),
	}
	var ok bool
	if h.Src, ok = netip.AddrFromSlice(data[12:16]); !ok {
		return nil, errors.New("ipv4: invalid source address")
	}
	if h.Dst, ok = netip.AddrFromSlice(data[16:20]); !ok {
		return nil, errors.New("ipv4: invalid destination address")
	}

	headerLen := int(h.IHL) * 4
	if headerLen < HeaderLength || len(data) < headerLen {
		return nil, errors.New("ipv4: invalid header length")
	}
	h.Options = append([]byte(nil), data[HeaderLength:headerLen]...)

	return &Datagram{Header: h, Payload: append([]byte(nil), data[headerLen:]...)}, nil
}

// Serialize encodes the datagram (header + payload) to raw bytes. The
// checksum field is written as currently set on Header; call
// ComputeChecksum first if it needs recomputing. An unset (zero-value)
// source or destination address is written as 0.0.0.0.
func (d *Datagram) Serialize() []byte {
	headerLen := HeaderLength + len(d.Header.Options)
	buf := make([]byte, headerLen+len(d.Payload))

	h := &d.Header
	buf[0] = (h.Version << 4) | (h.IHL & 0x0F)
	buf[1] = h.TOS
	binary.BigEndian.PutUint16(buf[2:4], h.TotalLen)
	binary.BigEndian.PutUint16(buf[4:6], h.ID)
	frag := (uint16(h.Flags) << 13) | (h.FragOffset & 0x1FFF)
	binary.BigEndian.PutUint16(buf[6:8], frag)
	buf[8] = h.TTL
	buf[9] = h.Protocol
	binary.BigEndian.PutUint16(buf[10:12], h.Checksum)
	if h.Src.IsValid() {
		src4 := h.Src.As4()
		copy(buf[12:16], src4[:])
	}
	if h.Dst.IsValid() {
		dst4 := h.Dst.As4()
		copy(buf[16:20], dst4[:])
	}
	copy(buf[20:headerLen], h.Options)
	copy(buf[headerLen:], d.Payload)

	return buf
}

// ComputeChecksum recomputes and sets the header checksum (one's-complement
// sum of 16-bit words over the header with the checksum field zeroed).
func (d *Datagram) ComputeChecksum() {
	d.Header.Checksum = 0
	raw := d.Serialize()[:HeaderLength+len(d.Header.Options)]

	var sum uint32
	for i := 0; i < len(raw); i += 2 {
		if i+1 < len(raw) {
			sum += uint32(raw[i])<<8 | uint32(raw[i+1])
		} else {
			sum += uint32(raw[i]) << 8
		}
	}
	for sum > 0xFFFF {
		sum = (sum >> 16) + (sum & 0xFFFF)
	}
	d.Header.Checksum = ^uint16(sum)
}
