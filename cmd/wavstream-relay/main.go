// ABOUTME: Entry point for the wavstream relay server
// ABOUTME: Parses CLI flags, config and environment, then bridges clients to the agent API
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/wavstream/internal/config"
	"github.com/harperreed/wavstream/internal/relay"
	"github.com/harperreed/wavstream/internal/version"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	port       = flag.Int("port", 0, "WebSocket server port (default 8000, or $PORT)")
	name       = flag.String("name", "", "Relay friendly name (default: hostname-wavstream-relay)")
	agentID    = flag.String("agent", "", "Agent id (or $ELEVENLABS_AGENT_ID)")
	private    = flag.Bool("private", false, "Agent is private; requires an API key")
	logFile    = flag.String("log-file", "wavstream-relay.log", "Log file path")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	// Set up logging (both file and console)
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	multiWriter := io.MultiWriter(os.Stdout, f)
	log.SetOutput(multiWriter)

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	applyFlags(&cfg.Relay)

	if err := cfg.Relay.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Determine relay name
	relayName := *name
	if relayName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		relayName = fmt.Sprintf("%s-wavstream-relay", hostname)
	}

	log.Printf("Starting %s relay %s: %s on port %d", version.Product, version.Version, relayName, cfg.Relay.Port)
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	srv, err := relay.NewServer(relay.Config{
		Port:          cfg.Relay.Port,
		Name:          relayName,
		AgentID:       cfg.Relay.AgentID,
		AgentPrivate:  cfg.Relay.AgentPrivate,
		APIKey:        cfg.Relay.APIKey,
		UpstreamURL:   cfg.Relay.UpstreamURL,
		SignedURLBase: cfg.Relay.SignedURLBase,
		PingInterval:  cfg.Relay.PingInterval,
		EnableMDNS:    cfg.Relay.EnableMDNS,
	})
	if err != nil {
		log.Fatalf("Failed to create relay: %v", err)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Relay stopped")
}

// applyFlags overrides config and environment with flags given on the command line
func applyFlags(r *config.RelayConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			r.Port = *port
		case "agent":
			r.AgentID = *agentID
		case "private":
			r.AgentPrivate = *private
		case "no-mdns":
			r.EnableMDNS = !*noMDNS
		}
	})
}
