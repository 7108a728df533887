package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hopper1357/VTT/internal/client"
	"github.com/hopper1357/VTT/internal/infrastructure/discovery"
	"github.com/hopper1357/VTT/pkg/logger"
)

func main() {
	var (
		serverAddr string
		username   string
		role       string
		discover   bool
		verbose    bool
	)
	flag.StringVar(&serverAddr, "server", "localhost:8080", "Session server address")
	flag.StringVar(&username, "username", os.Getenv("USER"), "Name shown to other players")
	flag.StringVar(&role, "role", "", "Requested role: GM or PLAYER")
	flag.BoolVar(&discover, "discover", false, "Find a server on the local network via mDNS")
	flag.BoolVar(&verbose, "v", false, "Print debug logs")
	flag.Parse()

	// Лог мешает вводу, поэтому по умолчанию выключен
	logger.Init()
	if !verbose {
		logger.Silence()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if discover {
		addr, err := findServer(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		serverAddr = addr
	}

	conn, err := client.Dial(ctx, serverAddr, username, role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Connected to %s. Type 'help' for commands, 'say <text>' to chat, 'quit' to leave.\n", serverAddr)
	console := client.NewConsole(conn, client.NewReplica(), os.Stdin, os.Stdout)
	if err := console.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Disconnected:", err)
		os.Exit(1)
	}
}

func findServer(ctx context.Context) (string, error) {
	browseCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	fmt.Println("Looking for session servers...")
	servers, err := discovery.Browse(browseCtx)
	if err != nil {
		return "", err
	}
	if len(servers) == 0 {
		return "", fmt.Errorf("no session servers found on the local network")
	}
	for _, s := range servers {
		fmt.Printf("  %s at %s (%s)\n", s.Instance, s.Addr, s.Version)
	}
	return servers[0].Addr, nil
}
