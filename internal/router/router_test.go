package router

import (
	"net"
	"net/netip"
	"testing"

	"github.com/oooscar8/minnow/internal/ethernet"
	"github.com/oooscar8/minnow/internal/ipv4"
	"github.com/oooscar8/minnow/internal/netif"
)

type capturePort struct {
	frames []*ethernet.Frame
}

func (p *capturePort) Transmit(sender *netif.Interface, frame *ethernet.Frame) {
	p.frames = append(p.frames, frame)
}

func mustAddr(s string) netip.Addr {
	a, err := netip.ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

func mustPrefix(s string) netip.Prefix {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		panic(err)
	}
	return p
}

func newTestRouter() (*Router, []*capturePort) {
	r := New()
	var ports []*capturePort

	mkIfc := func(name string, ip string, mac byte) int {
		port := &capturePort{}
		ports = append(ports, port)
		ifc := netif.New(name, port, net.HardwareAddr{0x02, 0, 0, 0, 0, mac}, mustAddr(ip))
		return r.AddInterface(ifc)
	}

	if0 := mkIfc("if0", "10.0.0.1", 1)
	if1 := mkIfc("if1", "10.1.0.1", 2)
	if2 := mkIfc("if2", "192.168.1.1", 3)

	r.AddRoute(mustPrefix("10.0.0.0/8"), nil, if0)
	r.AddRoute(mustPrefix("10.1.0.0/16"), nil, if1)
	r.AddRoute(mustPrefix("0.0.0.0/0"), nil, if2)

	return r, ports
}

// countARPBroadcasts tallies how many of a port's captured frames are ARP
// broadcasts — the observable signal that Forward picked that interface.
func countARPBroadcasts(p *capturePort) int {
	n := 0
	for _, f := range p.frames {
		if f.EtherType == ethernet.EtherTypeARP {
			n++
		}
	}
	return n
}

func TestLongestPrefixMatchSelectsInterface(t *testing.T) {
	cases := []struct {
		dst      string
		wantIfc  int
		otherIfc []int
	}{
		{"10.1.2.3", 1, []int{0, 2}},
		{"10.2.0.1", 0, []int{1, 2}},
		{"8.8.8.8", 2, []int{0, 1}},
	}

	for _, c := range cases {
		r, ports := newTestRouter()
		dgram := &ipv4.Datagram{Header: ipv4.Header{Dst: mustAddr(c.dst), TTL: 64}}
		r.Forward(dgram)

		if countARPBroadcasts(ports[c.wantIfc]) != 1 {
			t.Fatalf("dst %s: expected forward out interface %d, got %d frames there", c.dst, c.wantIfc, len(ports[c.wantIfc].frames))
		}
		for _, other := range c.otherIfc {
			if countARPBroadcasts(ports[other]) != 0 {
				t.Fatalf("dst %s: expected no traffic on interface %d, got %d frames", c.dst, other, len(ports[other].frames))
			}
		}
	}
}

func TestForwardDecrementsTTLAndRecomputesChecksum(t *testing.T) {
	r, ports := newTestRouter()

	dgram := &ipv4.Datagram{Header: ipv4.Header{Dst: mustAddr("8.8.8.8"), TTL: 64}}
	dgram.ComputeChecksum()
	original := dgram.Header.Checksum

	r.Forward(dgram)

	if dgram.Header.TTL != 63 {
		t.Fatalf("expected TTL decremented to 63, got %d", dgram.Header.TTL)
	}
	if dgram.Header.Checksum == original {
		t.Fatal("expected checksum to be recomputed after TTL decrement")
	}
	if countARPBroadcasts(ports[2]) != 1 {
		t.Fatalf("expected default route (if2) to receive the datagram, got %d frames", len(ports[2].frames))
	}
}

func TestForwardDropsExpiredTTL(t *testing.T) {
	r, ports := newTestRouter()

	expired := &ipv4.Datagram{Header: ipv4.Header{Dst: mustAddr("8.8.8.8"), TTL: 1}}
	r.Forward(expired)

	for i, p := range ports {
		if len(p.frames) != 0 {
			t.Fatalf("interface %d: expected TTL==1 datagram to be dropped, got %d frames", i, len(p.frames))
		}
	}
}

func TestForwardDropsUnroutableDestination(t *testing.T) {
	r := New()
	port := &capturePort{}
	ifc := netif.New("if0", port, net.HardwareAddr{0x02, 0, 0, 0, 0, 1}, mustAddr("10.0.0.1"))
	r.AddInterface(ifc)
	// no routes at all

	dgram := &ipv4.Datagram{Header: ipv4.Header{Dst: mustAddr("8.8.8.8"), TTL: 64}}
	r.Forward(dgram)

	if len(port.frames) != 0 {
		t.Fatalf("expected no route to produce no forwarded traffic, got %d frames", len(port.frames))
	}
}

func TestForwardDeliversLocallyAddressedDatagram(t *testing.T) {
	r, ports := newTestRouter()

	var delivered []*ipv4.Datagram
	r.SetLocalHandler(func(d *ipv4.Datagram) { delivered = append(delivered, d) })

	dgram := &ipv4.Datagram{Header: ipv4.Header{Dst: mustAddr("10.1.0.1"), TTL: 64}}
	r.Forward(dgram)

	if len(delivered) != 1 {
		t.Fatalf("expected local delivery, got %d datagrams", len(delivered))
	}
	if dgram.Header.TTL != 64 {
		t.Fatalf("local delivery must not decrement TTL, got %d", dgram.Header.TTL)
	}
	for i, p := range ports {
		if len(p.frames) != 0 {
			t.Fatalf("interface %d: locally addressed datagram must not be forwarded", i)
		}
	}
}

func TestPrefixMatchMasking(t *testing.T) {
	if !isPrefixMatch(0x0A010203, 0x0A010000, 16) {
		t.Fatal("expected 10.1.2.3 to match 10.1.0.0/16")
	}
	if isPrefixMatch(0x0A020001, 0x0A010000, 16) {
		t.Fatal("expected 10.2.0.1 to NOT match 10.1.0.0/16")
	}
	if !isPrefixMatch(0x08080808, 0, 0) {
		t.Fatal("expected 0.0.0.0/0 to match everything")
	}
}
