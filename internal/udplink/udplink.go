// Package udplink emulates a shared Ethernet segment over UDP: each
// interface binds a UDP socket and floods transmitted frames to every
// configured peer on the segment.
package udplink

import (
	"net"
	"net/netip"

	"github.com/pkg/errors"

	"github.com/oooscar8/minnow/internal/ethernet"
	"github.com/oooscar8/minnow/internal/netif"
	"github.com/oooscar8/minnow/internal/netlog"
)

const maxFrameSize = 1500 + ethernet.HeaderLength

// Port is a netif.OutputPort backed by a UDP socket. It floods every
// transmitted frame to all configured peers, leaving destination filtering
// to the receiving interface's RecvFrame.
type Port struct {
	conn  *net.UDPConn
	peers []netip.AddrPort
}

// Listen binds a UDP socket at bindAddr and returns a Port that floods
// frames to peers.
func Listen(bindAddr netip.AddrPort, peers []netip.AddrPort) (*Port, error) {
	laddr := net.UDPAddrFromAddrPort(bindAddr)
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, errors.Wrapf(err, "udplink: listening on %s", bindAddr)
	}
	return &Port{conn: conn, peers: peers}, nil
}

// Transmit implements netif.OutputPort.
func (p *Port) Transmit(sender *netif.Interface, frame *ethernet.Frame) {
	wire := frame.Serialize()
	for _, peer := range p.peers {
		if _, err := p.conn.WriteToUDPAddrPort(wire, peer); err != nil {
			netlog.Warnf("udplink %s: write to %s failed: %v", sender.Name, peer, err)
		}
	}
}

// Serve reads frames off the socket until the socket is closed, handing
// each one to handle. The caller owns synchronization: the stack's
// components expect single-threaded access, so handle typically acquires
// the stack lock before delivering into RecvFrame.
func (p *Port) Serve(name string, handle func(*ethernet.Frame)) {
	buf := make([]byte, maxFrameSize)
	for {
		n, _, err := p.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			netlog.Debugf("udplink %s: socket closed: %v", name, err)
			return
		}
		frame, err := ethernet.ParseFrame(buf[:n])
		if err != nil {
			netlog.Debugf("udplink %s: dropping malformed frame: %v", name, err)
			continue
		}
		handle(frame)
	}
}

// Close releases the underlying socket.
func (p *Port) Close() error {
	return p.conn.Close()
}
