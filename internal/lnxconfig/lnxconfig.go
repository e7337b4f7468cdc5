// Package lnxconfig parses the ".lnx" interface/route configuration files
// consumed by the cmd/endhost and cmd/router binaries.
package lnxconfig

import (
	"bufio"
	"net"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// InterfaceConfig describes one network interface: its name, assigned
// address, and Ethernet address.
type InterfaceConfig struct {
	Name string
	Addr netip.Prefix
	MAC  net.HardwareAddr
}

// RouteConfig describes one static forwarding rule. NextHop is the zero
// value for directly attached routes (next hop is the datagram's own
// destination).
type RouteConfig struct {
	Prefix        netip.Prefix
	InterfaceName string
	NextHop       netip.Addr
}

// LinkConfig describes the UDP socket emulating one interface's physical
// segment: the local bind address and the peers sharing that segment.
type LinkConfig struct {
	InterfaceName string
	BindAddr      netip.AddrPort
	Peers         []netip.AddrPort
}

// IPConfig is the parsed contents of a .lnx file.
type IPConfig struct {
	Interfaces   []InterfaceConfig
	StaticRoutes []RouteConfig
	Links        []LinkConfig

	// TcpRtoMin/TcpRtoMax hold the tcp-rto-min/tcp-rto-max directives
	// (100ms and 5s when unset). They are parsed and stored only; no
	// component in this module reads them.
	TcpRtoMin time.Duration
	TcpRtoMax time.Duration
}

const (
	defaultRtoMin = 100 * time.Millisecond
	defaultRtoMax = 5 * time.Second
)

// ParseConfig reads and parses a .lnx file at path.
//
// Grammar, one directive per line, blank lines and "#" comments ignored:
//
//	interface <name> <cidr> <mac>
//	route <cidr> <interface> [nexthop]
//	link <interface> <bind-addr> <peer-addr>[,<peer-addr>...]
//	tcp-rto-min <duration>
//	tcp-rto-max <duration>
func ParseConfig(path string) (*IPConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "lnxconfig: opening %s", path)
	}
	defer f.Close()

	cfg := &IPConfig{TcpRtoMin: defaultRtoMin, TcpRtoMax: defaultRtoMax}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		directive := fields[0]
		args := fields[1:]

		var parseErr error
		switch directive {
		case "interface":
			parseErr = cfg.parseInterface(args)
		case "route":
			parseErr = cfg.parseRoute(args)
		case "link":
			parseErr = cfg.parseLink(args)
		case "tcp-rto-min":
			parseErr = cfg.parseDuration(args, &cfg.TcpRtoMin)
		case "tcp-rto-max":
			parseErr = cfg.parseDuration(args, &cfg.TcpRtoMax)
		default:
			parseErr = errors.Errorf("unknown directive %q", directive)
		}
		if parseErr != nil {
			return nil, errors.Wrapf(parseErr, "lnxconfig: %s:%d", path, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "lnxconfig: reading %s", path)
	}

	return cfg, nil
}

func (cfg *IPConfig) parseInterface(args []string) error {
	if len(args) != 3 {
		return errors.Errorf("interface directive expects 3 fields, got %d", len(args))
	}
	prefix, err := netip.ParsePrefix(args[1])
	if err != nil {
		return errors.Wrapf(err, "parsing address %q", args[1])
	}
	mac, err := net.ParseMAC(args[2])
	if err != nil {
		return errors.Wrapf(err, "parsing MAC %q", args[2])
	}
	cfg.Interfaces = append(cfg.Interfaces, InterfaceConfig{
		Name: args[0],
		Addr: prefix,
		MAC:  mac,
	})
	return nil
}

func (cfg *IPConfig) parseRoute(args []string) error {
	if len(args) != 2 && len(args) != 3 {
		return errors.Errorf("route directive expects 2 or 3 fields, got %d", len(args))
	}
	prefix, err := netip.ParsePrefix(args[0])
	if err != nil {
		return errors.Wrapf(err, "parsing prefix %q", args[0])
	}
	rt := RouteConfig{Prefix: prefix, InterfaceName: args[1]}
	if len(args) == 3 {
		nextHop, err := netip.ParseAddr(args[2])
		if err != nil {
			return errors.Wrapf(err, "parsing next hop %q", args[2])
		}
		rt.NextHop = nextHop
	}
	cfg.StaticRoutes = append(cfg.StaticRoutes, rt)
	return nil
}

func (cfg *IPConfig) parseLink(args []string) error {
	if len(args) != 3 {
		return errors.Errorf("link directive expects 3 fields, got %d", len(args))
	}
	bindAddr, err := netip.ParseAddrPort(args[1])
	if err != nil {
		return errors.Wrapf(err, "parsing bind address %q", args[1])
	}
	var peers []netip.AddrPort
	for _, raw := range strings.Split(args[2], ",") {
		peerAddr, err := netip.ParseAddrPort(raw)
		if err != nil {
			return errors.Wrapf(err, "parsing peer address %q", raw)
		}
		peers = append(peers, peerAddr)
	}
	cfg.Links = append(cfg.Links, LinkConfig{
		InterfaceName: args[0],
		BindAddr:      bindAddr,
		Peers:         peers,
	})
	return nil
}

func (cfg *IPConfig) parseDuration(args []string, dst *time.Duration) error {
	if len(args) != 1 {
		return errors.Errorf("expected exactly one duration argument, got %d", len(args))
	}
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return errors.Wrapf(err, "parsing duration %q", args[0])
	}
	*dst = d
	return nil
}

// InterfaceByName returns the named interface's config, if present.
func (cfg *IPConfig) InterfaceByName(name string) (InterfaceConfig, bool) {
	for _, ifc := range cfg.Interfaces {
		if ifc.Name == name {
			return ifc, true
		}
	}
	return InterfaceConfig{}, false
}

// LinkByName returns the named interface's link config, if present.
func (cfg *IPConfig) LinkByName(name string) (LinkConfig, bool) {
	for _, link := range cfg.Links {
		if link.InterfaceName == name {
			return link, true
		}
	}
	return LinkConfig{}, false
}

// InterfaceIndex maps an interface name to its position in Interfaces,
// which is also its index in the assembled router.
func (cfg *IPConfig) InterfaceIndex(name string) (int, error) {
	for i, ifc := range cfg.Interfaces {
		if ifc.Name == name {
			return i, nil
		}
	}
	return -1, errors.Errorf("no such interface %q", name)
}
