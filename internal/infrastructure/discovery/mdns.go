package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
	"github.com/hopper1357/VTT/internal/version"
	"github.com/hopper1357/VTT/pkg/logger"
)

const (
	Service = "_vtt._tcp"
	Domain  = "local."
)

// Server - найденный в сети сервер сессии.
type Server struct {
	Instance string
	Addr     string // host:port, готовый для client.Dial
	Version  string
}

// Advertise объявляет сервер в локальной сети до отмены ctx.
func Advertise(ctx context.Context, instance string, port int) error {
	host, _ := os.Hostname()
	name := fmt.Sprintf("%s-%s", instance, host)

	server, err := zeroconf.Register(name, Service, Domain, port,
		[]string{"product=" + version.Product, "build=" + version.String()}, nil)
	if err != nil {
		return fmt.Errorf("register mDNS service: %w", err)
	}
	defer server.Shutdown()

	logger.Component("discovery").
		WithField("instance", name).
		WithField("port", port).
		Info("mDNS service registered")
	<-ctx.Done()
	return nil
}

// Browse ищет серверы, пока не истечет ctx.
func Browse(ctx context.Context) ([]Server, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("initialize mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan []Server, 1)
	go func() {
		var servers []Server
		for entry := range entries {
			if s, ok := fromEntry(entry); ok {
				servers = append(servers, s)
			}
		}
		found <- servers
	}()

	// Resolver закрывает entries, когда ctx истекает
	if err := resolver.Browse(ctx, Service, Domain, entries); err != nil {
		return nil, fmt.Errorf("browse for mDNS services: %w", err)
	}
	<-ctx.Done()
	return <-found, nil
}

func fromEntry(e *zeroconf.ServiceEntry) (Server, bool) {
	var ip net.IP
	switch {
	case len(e.AddrIPv4) > 0:
		ip = e.AddrIPv4[0]
	case len(e.AddrIPv6) > 0:
		ip = e.AddrIPv6[0]
	default:
		return Server{}, false
	}

	s := Server{
		Instance: e.Instance,
		Addr:     net.JoinHostPort(ip.String(), strconv.Itoa(e.Port)),
	}
	for _, txt := range e.Text {
		if v, ok := strings.CutPrefix(txt, "build="); ok {
			s.Version = v
		}
	}
	return s, true
}

// PortOf достает порт из адреса слушателя (":8080", "0.0.0.0:8080").
func PortOf(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("listen address %q has no fixed port", addr)
	}
	return port, nil
}
