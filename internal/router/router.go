// Package router implements longest-prefix-match IPv4 forwarding between a
// collection of owned network interfaces.
package router

import (
	"net/netip"
	"sort"

	"github.com/oooscar8/minnow/internal/ipv4"
	"github.com/oooscar8/minnow/internal/netif"
	"github.com/oooscar8/minnow/internal/netlog"
)

// route is a forwarding rule: datagrams whose destination matches prefix
// under mask go out interfaceIdx, toward nextHop (or the datagram's own
// destination, if directly attached).
type route struct {
	prefix       netip.Prefix
	prefixBits   uint32
	prefixLength uint8
	nextHop      *netip.Addr
	interfaceIdx int
}

// RouteEntry is the externally visible form of one forwarding rule.
type RouteEntry struct {
	Prefix       netip.Prefix
	NextHop      *netip.Addr
	InterfaceIdx int
}

// Router owns a set of network interfaces and forwards datagrams between
// them according to a static longest-prefix-match routing table.
type Router struct {
	interfaces   []*netif.Interface
	routes       []route
	localHandler func(*ipv4.Datagram)
}

// New constructs an empty Router.
func New() *Router {
	return &Router{}
}

// AddInterface registers an interface with the router and returns its
// index, for use in AddRoute.
func (r *Router) AddInterface(ifc *netif.Interface) int {
	r.interfaces = append(r.interfaces, ifc)
	return len(r.interfaces) - 1
}

// Interface returns the interface at index n.
func (r *Router) Interface(n int) *netif.Interface {
	return r.interfaces[n]
}

// Interfaces returns all registered interfaces, in index order.
func (r *Router) Interfaces() []*netif.Interface {
	return r.interfaces
}

// SetLocalHandler registers a callback for datagrams addressed to one of the
// router's own interface addresses; without one they are dropped.
func (r *Router) SetLocalHandler(h func(*ipv4.Datagram)) {
	r.localHandler = h
}

// AddRoute inserts a forwarding rule. nextHop is nil for directly attached
// routes (next hop is the datagram's own destination).
func (r *Router) AddRoute(prefix netip.Prefix, nextHop *netip.Addr, interfaceIdx int) {
	addr4 := prefix.Addr().As4()
	var prefixBits uint32
	for _, b := range addr4 {
		prefixBits = prefixBits<<8 | uint32(b)
	}

	r.routes = append(r.routes, route{
		prefix:       prefix,
		prefixBits:   prefixBits,
		prefixLength: uint8(prefix.Bits()),
		nextHop:      nextHop,
		interfaceIdx: interfaceIdx,
	})

	// Ordering key is (-prefix_length, prefix): longest prefix first, ties
	// broken by prefix ascending.
	sort.SliceStable(r.routes, func(i, j int) bool {
		a, b := r.routes[i], r.routes[j]
		if a.prefixLength != b.prefixLength {
			return a.prefixLength > b.prefixLength
		}
		return a.prefixBits < b.prefixBits
	})
}

// Routes returns the forwarding table in match order (longest prefix first).
func (r *Router) Routes() []RouteEntry {
	out := make([]RouteEntry, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, RouteEntry{
			Prefix:       rt.prefix,
			NextHop:      rt.nextHop,
			InterfaceIdx: rt.interfaceIdx,
		})
	}
	return out
}

// Route drains every interface's inbound datagram queue and forwards (or
// drops) each one.
func (r *Router) Route() {
	for _, ifc := range r.interfaces {
		for _, dgram := range ifc.DatagramsReceived() {
			r.Forward(dgram)
		}
	}
}

// Forward routes one datagram: local delivery if it is addressed to an owned
// interface, otherwise TTL decrement, checksum recompute, and
// longest-prefix-match dispatch.
func (r *Router) Forward(dgram *ipv4.Datagram) {
	for _, ifc := range r.interfaces {
		if dgram.Header.Dst == ifc.IP() {
			if r.localHandler != nil {
				r.localHandler(dgram)
			}
			return
		}
	}

	if dgram.Header.TTL <= 1 {
		netlog.Debugf("router: dropping datagram to %s, TTL exhausted", dgram.Header.Dst)
		return
	}
	dgram.Header.TTL--
	dgram.ComputeChecksum()

	rt, ok := r.findLongestPrefixMatch(dgram.Header.Dst)
	if !ok {
		netlog.Debugf("router: no route for %s", dgram.Header.Dst)
		return
	}

	nextHop := dgram.Header.Dst
	if rt.nextHop != nil {
		nextHop = *rt.nextHop
	}

	r.interfaces[rt.interfaceIdx].SendDatagram(dgram, nextHop)
}

func (r *Router) findLongestPrefixMatch(dst netip.Addr) (route, bool) {
	dst4 := dst.As4()
	var dstBits uint32
	for _, b := range dst4 {
		dstBits = dstBits<<8 | uint32(b)
	}

	for _, rt := range r.routes {
		if isPrefixMatch(dstBits, rt.prefixBits, rt.prefixLength) {
			return rt, true
		}
	}
	return route{}, false
}

func isPrefixMatch(address, prefix uint32, prefixLength uint8) bool {
	if prefixLength == 0 {
		return true
	}
	mask := uint32(0xFFFFFFFF) << (32 - prefixLength)
	return address&mask == prefix&mask
}
