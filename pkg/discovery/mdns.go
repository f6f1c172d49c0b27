// ABOUTME: mDNS service discovery for the wavstream relay
// ABOUTME: Handles both advertisement (relay) and browsing (player)
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service the relay advertises
const ServiceType = "_wavstream-relay._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int

	// Path is the WebSocket endpoint advertised in TXT records (default: /)
	Path string

	// BrowseTimeout is the length of each mDNS query (default: 3s)
	BrowseTimeout time.Duration
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
}

// ServerInfo describes a discovered relay
type ServerInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// URL returns the WebSocket address of the relay
func (s *ServerInfo) URL() string {
	path := s.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(s.Host, fmt.Sprint(s.Port)), path)
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Path == "" {
		config.Path = "/"
	}
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
	}
}

// txtRecords describes the endpoint to browsing players
func (m *Manager) txtRecords() []string {
	return []string{"path=" + m.config.Path, "subprotocol=convai"}
}

// Advertise advertises the relay via mDNS until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for relays until Stop
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop continuously browses for relays
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				server := serverFromEntry(entry)
				if server == nil {
					continue
				}

				log.Printf("Discovered relay: %s at %s", server.Name, server.URL())

				select {
				case m.servers <- server:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Timeout = m.config.BrowseTimeout
		params.Entries = entries
		params.DisableIPv6 = true

		err := mdns.Query(params)
		close(entries)
		if err != nil {
			log.Printf("mDNS query failed: %v", err)
			select {
			case <-m.ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// serverFromEntry converts an mDNS entry, reading the path from TXT records
func serverFromEntry(entry *mdns.ServiceEntry) *ServerInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}

	server := &ServerInfo{
		Name: entry.Name,
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: "/",
	}
	for _, field := range entry.InfoFields {
		if path, ok := strings.CutPrefix(field, "path="); ok && path != "" {
			server.Path = path
		}
	}
	return server
}

// Lookup browses until the first relay appears or ctx ends
func (m *Manager) Lookup(ctx context.Context) (*ServerInfo, error) {
	m.Browse()

	select {
	case server := <-m.servers:
		return server, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no relay found: %w", ctx.Err())
	}
}

// Servers returns the channel of discovered relays
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
