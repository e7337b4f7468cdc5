package main

import (
	"fmt"
	"os"

	"github.com/oooscar8/minnow/internal/ipv4"
	"github.com/oooscar8/minnow/internal/lnxconfig"
	"github.com/oooscar8/minnow/internal/netlog"
	"github.com/oooscar8/minnow/pkg/ipstack"
	"github.com/oooscar8/minnow/pkg/repl"
)

func main() {
	if len(os.Args) != 3 || os.Args[1] != "--config" {
		fmt.Printf("Usage:  %s --config <lnx file>\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := lnxconfig.ParseConfig(os.Args[2])
	if err != nil {
		netlog.Warnf("router: %v", err)
		os.Exit(1)
	}

	stack, err := ipstack.Build(cfg)
	if err != nil {
		netlog.Warnf("router: %v", err)
		os.Exit(1)
	}
	defer stack.Close()

	// Routers still print test packets addressed to their own interfaces.
	stack.Router.SetLocalHandler(func(dgram *ipv4.Datagram) {
		repl.PrintTestPacket(dgram)
	})

	netlog.EnableDebug()
	stack.Run(10)
	repl.Start(stack.Router, cfg, &stack.Mu)
}
