// Package ipstack assembles a running IP node from a parsed configuration:
// network interfaces bound to UDP link ports, a router holding the
// forwarding table, and the receive/tick event loops that drive the
// otherwise single-threaded stack.
package ipstack

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/oooscar8/minnow/internal/ethernet"
	"github.com/oooscar8/minnow/internal/lnxconfig"
	"github.com/oooscar8/minnow/internal/netif"
	"github.com/oooscar8/minnow/internal/router"
	"github.com/oooscar8/minnow/internal/udplink"
)

// Stack is one assembled node: a router owning its interfaces, plus the UDP
// ports emulating each interface's physical segment. Mu serializes all
// access to the stack's components.
type Stack struct {
	Router *router.Router
	Ports  []*udplink.Port
	Mu     sync.Mutex
}

// Build wires up interfaces, link ports, and routes from cfg. Each
// interface gets a directly-attached route for its own subnet; static
// routes from the config are added on top.
func Build(cfg *lnxconfig.IPConfig) (*Stack, error) {
	s := &Stack{Router: router.New()}

	for _, ifcCfg := range cfg.Interfaces {
		link, ok := cfg.LinkByName(ifcCfg.Name)
		if !ok {
			s.Close()
			return nil, errors.Errorf("ipstack: interface %s has no link directive", ifcCfg.Name)
		}
		port, err := udplink.Listen(link.BindAddr, link.Peers)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Ports = append(s.Ports, port)

		ifc := netif.New(ifcCfg.Name, port, ifcCfg.MAC, ifcCfg.Addr.Addr())
		idx := s.Router.AddInterface(ifc)
		s.Router.AddRoute(ifcCfg.Addr.Masked(), nil, idx)
	}

	for _, rc := range cfg.StaticRoutes {
		idx, err := cfg.InterfaceIndex(rc.InterfaceName)
		if err != nil {
			s.Close()
			return nil, errors.Wrap(err, "ipstack: static route")
		}
		if rc.NextHop.IsValid() {
			nextHop := rc.NextHop
			s.Router.AddRoute(rc.Prefix, &nextHop, idx)
		} else {
			s.Router.AddRoute(rc.Prefix, nil, idx)
		}
	}

	return s, nil
}

// Run starts one receive goroutine per port and the shared clock goroutine.
// It returns immediately; each receive goroutine runs until its port is
// closed, and the clock goroutine runs for the life of the process.
func (s *Stack) Run(tickMs uint64) {
	for i, port := range s.Ports {
		ifc := s.Router.Interface(i)
		go port.Serve(ifc.Name, func(frame *ethernet.Frame) {
			s.Mu.Lock()
			ifc.RecvFrame(frame)
			s.Router.Route()
			s.Mu.Unlock()
		})
	}

	go func() {
		ticker := time.NewTicker(time.Duration(tickMs) * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			s.Mu.Lock()
			for _, ifc := range s.Router.Interfaces() {
				ifc.Tick(tickMs)
			}
			s.Router.Route()
			s.Mu.Unlock()
		}
	}()
}

// Close releases every bound port.
func (s *Stack) Close() {
	for _, port := range s.Ports {
		port.Close()
	}
}
