// Package netif implements NetworkInterface: the ARP-driven translation
// between IPv4 datagrams and Ethernet frames, with mapping-cache aging,
// request throttling, and a pending-datagram queue awaiting resolution.
package netif

import (
	"bytes"
	"net"
	"net/netip"

	"github.com/oooscar8/minnow/internal/ethernet"
	"github.com/oooscar8/minnow/internal/ipv4"
	"github.com/oooscar8/minnow/internal/netlog"
)

// MappingTimeoutMs is how long a learned ARP mapping stays valid.
const MappingTimeoutMs uint64 = 30000

// ARPRequestTimeoutMs both throttles repeated ARP requests for the same
// target and bounds how long a queued datagram waits for resolution.
const ARPRequestTimeoutMs uint64 = 5000

// OutputPort is the physical link abstraction a NetworkInterface transmits
// frames through. Implementations must not block.
type OutputPort interface {
	Transmit(sender *Interface, frame *ethernet.Frame)
}

type arpEntry struct {
	mac       net.HardwareAddr
	learnedAt uint64
}

type queuedDatagram struct {
	nextHop    netip.Addr
	datagram   *ipv4.Datagram
	enqueuedAt uint64
}

// Interface is one network-access-layer port: an Ethernet+IP address pair
// bridging a customer (TCP/IP stack or router) to a physical link.
type Interface struct {
	Name string

	mac  net.HardwareAddr
	ip   netip.Addr
	port OutputPort

	arpCache         map[netip.Addr]arpEntry
	outstandingARP   map[netip.Addr]uint64
	pendingDatagrams []queuedDatagram

	inbound []*ipv4.Datagram

	timeElapsed uint64
}

// New constructs a network interface with the given name, output port,
// Ethernet address, and IP address.
func New(name string, port OutputPort, mac net.HardwareAddr, ip netip.Addr) *Interface {
	return &Interface{
		Name:           name,
		mac:            mac,
		ip:             ip,
		port:           port,
		arpCache:       make(map[netip.Addr]arpEntry),
		outstandingARP: make(map[netip.Addr]uint64),
	}
}

// MAC returns the interface's own Ethernet address.
func (ifc *Interface) MAC() net.HardwareAddr { return ifc.mac }

// IP returns the interface's own IPv4 address.
func (ifc *Interface) IP() netip.Addr { return ifc.ip }

// DatagramsReceived drains and returns all datagrams currently queued for
// delivery up the stack.
func (ifc *Interface) DatagramsReceived() []*ipv4.Datagram {
	out := ifc.inbound
	ifc.inbound = nil
	return out
}

// ARPCache returns a snapshot of the current (non-expired) IP-to-Ethernet
// mappings.
func (ifc *Interface) ARPCache() map[netip.Addr]net.HardwareAddr {
	out := make(map[netip.Addr]net.HardwareAddr, len(ifc.arpCache))
	for ip, entry := range ifc.arpCache {
		out[ip] = entry.mac
	}
	return out
}

func (ifc *Interface) transmit(frame *ethernet.Frame) {
	ifc.port.Transmit(ifc, frame)
}

// SendDatagram encapsulates dgram for transmission toward nextHop,
// resolving the Ethernet address via the ARP cache (or queuing behind an
// ARP request if unresolved).
func (ifc *Interface) SendDatagram(dgram *ipv4.Datagram, nextHop netip.Addr) {
	if entry, ok := ifc.arpCache[nextHop]; ok {
		frame := &ethernet.Frame{
			DstMAC:    entry.mac,
			SrcMAC:    ifc.mac,
			EtherType: ethernet.EtherTypeIPv4,
			Payload:   dgram.Serialize(),
		}
		ifc.transmit(frame)
		return
	}

	if lastSent, requested := ifc.outstandingARP[nextHop]; !requested || ifc.timeElapsed-lastSent >= ARPRequestTimeoutMs {
		req := ethernet.NewARPRequest(ifc.mac, ifc.ip, nextHop)
		frame := &ethernet.Frame{
			DstMAC:    ethernet.BroadcastMAC(),
			SrcMAC:    ifc.mac,
			EtherType: ethernet.EtherTypeARP,
			Payload:   req.Serialize(),
		}
		ifc.transmit(frame)
		ifc.outstandingARP[nextHop] = ifc.timeElapsed
	}

	ifc.pendingDatagrams = append(ifc.pendingDatagrams, queuedDatagram{
		nextHop:    nextHop,
		datagram:   dgram,
		enqueuedAt: ifc.timeElapsed,
	})
}

// RecvFrame processes one inbound Ethernet frame.
func (ifc *Interface) RecvFrame(frame *ethernet.Frame) {
	if !bytes.Equal(frame.DstMAC, ifc.mac) && !frame.IsBroadcast() {
		return
	}

	switch frame.EtherType {
	case ethernet.EtherTypeIPv4:
		dgram, err := ipv4.Parse(frame.Payload)
		if err != nil {
			netlog.Debugf("netif %s: dropping malformed IPv4 payload: %v", ifc.Name, err)
			return
		}
		ifc.inbound = append(ifc.inbound, dgram)

	case ethernet.EtherTypeARP:
		msg, err := ethernet.ParseARPMessage(frame.Payload)
		if err != nil {
			netlog.Debugf("netif %s: dropping malformed ARP payload: %v", ifc.Name, err)
			return
		}
		ifc.arpCache[msg.SenderIP] = arpEntry{mac: msg.SenderMAC, learnedAt: ifc.timeElapsed}

		if msg.Operation == ethernet.ARPOpRequest && msg.TargetIP == ifc.ip {
			reply := ethernet.NewARPReply(ifc.mac, ifc.ip, msg.SenderMAC, msg.SenderIP)
			ifc.transmit(&ethernet.Frame{
				DstMAC:    msg.SenderMAC,
				SrcMAC:    ifc.mac,
				EtherType: ethernet.EtherTypeARP,
				Payload:   reply.Serialize(),
			})
		}

		ifc.flushQueuedFor(msg.SenderIP)
	}
}

// flushQueuedFor transmits and dequeues every pending datagram addressed to
// the newly learned IP, in one pass.
func (ifc *Interface) flushQueuedFor(ip netip.Addr) {
	var remaining, ready []queuedDatagram
	for _, q := range ifc.pendingDatagrams {
		if q.nextHop == ip {
			ready = append(ready, q)
		} else {
			remaining = append(remaining, q)
		}
	}
	ifc.pendingDatagrams = remaining
	for _, q := range ready {
		ifc.SendDatagram(q.datagram, q.nextHop)
	}
}

// Tick advances the interface's clock, aging out ARP cache entries and
// dropping datagrams whose resolution has timed out.
func (ifc *Interface) Tick(deltaMs uint64) {
	ifc.timeElapsed += deltaMs

	for ip, entry := range ifc.arpCache {
		if ifc.timeElapsed-entry.learnedAt >= MappingTimeoutMs {
			delete(ifc.arpCache, ip)
		}
	}

	remaining := ifc.pendingDatagrams[:0]
	for _, q := range ifc.pendingDatagrams {
		if ifc.timeElapsed-q.enqueuedAt >= ARPRequestTimeoutMs {
			netlog.Debugf("netif %s: dropping datagram to %s, ARP resolution timed out", ifc.Name, q.nextHop)
			continue
		}
		remaining = append(remaining, q)
	}
	ifc.pendingDatagrams = remaining
}
