// Package repl implements the interactive command prompt shared by the
// endhost and router binaries: interface, neighbor, and route listings plus
// a test-packet send command.
package repl

import (
	"bufio"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/oooscar8/minnow/internal/ipv4"
	"github.com/oooscar8/minnow/internal/lnxconfig"
	"github.com/oooscar8/minnow/internal/router"
)

// Start reads commands from stdin until EOF. mu guards all access to the
// stack, which is otherwise single-threaded.
func Start(rt *router.Router, cfg *lnxconfig.IPConfig, mu *sync.Mutex) {
	reader := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !reader.Scan() {
			break
		}
		input := strings.TrimSpace(reader.Text())

		switch {
		case input == "li":
			listInterfaces(rt, cfg)
		case input == "ln":
			listNeighbors(rt, mu)
		case input == "lr":
			listRoutes(rt)
		case strings.HasPrefix(input, "send"):
			send(rt, input, mu)
		case input == "":
		default:
			fmt.Println("Commands: li, ln, lr, send <addr> <message>")
		}
	}
}

func listInterfaces(rt *router.Router, cfg *lnxconfig.IPConfig) {
	w := tabwriter.NewWriter(os.Stdout, 1, 1, 3, ' ', 0)
	fmt.Fprintln(w, "Name\tAddr/Prefix\tState")
	for _, ifc := range rt.Interfaces() {
		addr := ifc.IP().String()
		if ifcCfg, ok := cfg.InterfaceByName(ifc.Name); ok {
			addr = ifcCfg.Addr.String()
		}
		fmt.Fprintln(w, ifc.Name+"\t"+addr+"\tup")
	}
	w.Flush()
}

func listNeighbors(rt *router.Router, mu *sync.Mutex) {
	w := tabwriter.NewWriter(os.Stdout, 1, 1, 3, ' ', 0)
	fmt.Fprintln(w, "Iface\tIP\tMAC")
	mu.Lock()
	for _, ifc := range rt.Interfaces() {
		for ip, mac := range ifc.ARPCache() {
			fmt.Fprintln(w, ifc.Name+"\t"+ip.String()+"\t"+mac.String())
		}
	}
	mu.Unlock()
	w.Flush()
}

func listRoutes(rt *router.Router) {
	w := tabwriter.NewWriter(os.Stdout, 1, 1, 3, ' ', 0)
	fmt.Fprintln(w, "T\tPrefix\tNext Hop\tIface")
	for _, entry := range rt.Routes() {
		ifcName := rt.Interface(entry.InterfaceIdx).Name
		if entry.NextHop != nil {
			fmt.Fprintln(w, "S\t"+entry.Prefix.String()+"\t"+entry.NextHop.String()+"\t"+ifcName)
		} else {
			fmt.Fprintln(w, "L\t"+entry.Prefix.String()+"\tLOCAL:"+ifcName+"\t"+ifcName)
		}
	}
	w.Flush()
}

func send(rt *router.Router, input string, mu *sync.Mutex) {
	parts := strings.SplitN(input, " ", 3)
	if len(parts) != 3 {
		fmt.Println("Usage: send <addr> <message>")
		return
	}
	dst, err := netip.ParseAddr(parts[1])
	if err != nil {
		fmt.Printf("Invalid IP address: %v\n", err)
		return
	}
	payload := []byte(parts[2])

	src, ok := sourceFor(rt, dst)
	if !ok {
		fmt.Println("No matching prefix found")
		return
	}

	dgram := &ipv4.Datagram{
		Header: ipv4.Header{
			Version:  4,
			IHL:      ipv4.HeaderLength / 4,
			TotalLen: uint16(ipv4.HeaderLength + len(payload)),
			TTL:      32,
			Protocol: ipv4.ProtocolTest,
			Src:      src,
			Dst:      dst,
		},
		Payload: payload,
	}
	dgram.ComputeChecksum()

	mu.Lock()
	rt.Forward(dgram)
	mu.Unlock()
}

// sourceFor picks the source address for a locally originated datagram: the
// address of the interface its route points out of.
func sourceFor(rt *router.Router, dst netip.Addr) (netip.Addr, bool) {
	for _, entry := range rt.Routes() {
		if entry.Prefix.Contains(dst) {
			return rt.Interface(entry.InterfaceIdx).IP(), true
		}
	}
	return netip.Addr{}, false
}

// PrintTestPacket renders a locally delivered test-protocol datagram the way
// both binaries report it.
func PrintTestPacket(dgram *ipv4.Datagram) {
	fmt.Printf("Received test packet: Src: %s, Dst: %s, TTL: %d, Data: %s\n",
		dgram.Header.Src, dgram.Header.Dst, dgram.Header.TTL, dgram.Payload)
}
