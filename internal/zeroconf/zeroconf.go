// Package zeroconf advertises the amplifier control API as a DNS-SD service
// so clients on the LAN can find it without configuration.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD type the daemon registers under.
const ServiceType = "_ampctl._tcp"

// Service manages mDNS service registration.
type Service struct {
	name string // instance name, usually the hostname
	port int
	txt  []string
}

// New creates a Service that will advertise the API on port.
func New(name string, port int, version string, mock bool) *Service {
	return &Service{
		name: name,
		port: port,
		txt:  TXT(version, mock),
	}
}

// TXT builds the TXT records for the advertisement.
func TXT(version string, mock bool) []string {
	return []string{
		"version=" + version,
		"device=d4np2",
		fmt.Sprintf("mock=%t", mock),
		"api=/api",
	}
}

// Start registers the mDNS service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	if s.port <= 0 || s.port > 0xFFFF {
		return fmt.Errorf("zeroconf: invalid port %d", s.port)
	}
	server, err := zeroconf.Register(s.name, ServiceType, "local.", s.port, s.txt, nil)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"type", ServiceType,
		"port", s.port,
	)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
