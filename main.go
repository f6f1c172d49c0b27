// ABOUTME: Entry point for the wavstream voice agent player
// ABOUTME: Parses CLI flags and config, then plays agent speech from a relay
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/wavstream/internal/app"
	"github.com/harperreed/wavstream/internal/config"
	"github.com/harperreed/wavstream/internal/metrics"
	"github.com/harperreed/wavstream/internal/ui"
	"github.com/harperreed/wavstream/internal/version"
	"github.com/harperreed/wavstream/pkg/audio/output"
	"github.com/harperreed/wavstream/pkg/discovery"
	"github.com/harperreed/wavstream/pkg/protocol"
	"github.com/harperreed/wavstream/pkg/wavstream"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	configPath      = flag.String("config", "", "YAML config file")
	relayURL        = flag.String("relay", "", "Relay WebSocket URL (skip mDNS)")
	outputName      = flag.String("output", "", "Output backend: malgo, oto, portaudio, null")
	sampleRate      = flag.Int("sample-rate", 0, "Requested device sample rate")
	frameSize       = flag.Int("frame-size", 0, "Samples per frame and device period")
	interruptPolicy = flag.String("interrupt-policy", "", "What happens to queued audio on interrupt: drain or flush")
	volume          = flag.Int("volume", -1, "Initial volume (0-100)")
	language        = flag.String("language", "", "Agent language override")
	voiceID         = flag.String("voice", "", "Agent voice override")
	metricsAddr     = flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	logFile         = flag.String("log-file", "wavstream-player.log", "Log file path")
	noTUI           = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs      = flag.Bool("stream-logs", false, "Alias for -no-tui")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(&cfg.Player)

	useTUI := !(*noTUI || *streamLogs)

	// Set up logging
	path := *logFile
	if cfg.Logging.File != "" && !flagSet("log-file") {
		path = cfg.Logging.File
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI || !cfg.Logging.Stdout {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	if err := cfg.Player.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Starting %s player %s", version.Product, version.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Find a relay on the local network if none was given
	relay := cfg.Player.RelayURL
	if relay == "" {
		log.Printf("Starting relay discovery...")
		disc := discovery.NewManager(discovery.Config{})
		lookupCtx, cancel := context.WithTimeout(ctx, cfg.Player.DiscoverTimeout)
		server, err := disc.Lookup(lookupCtx)
		cancel()
		disc.Stop()
		if err != nil {
			log.Fatalf("Relay discovery failed: %v", err)
		}
		relay = server.URL()
		log.Printf("Discovered relay %s at %s", server.Name, relay)
	}

	device, err := output.New(cfg.Player.Output)
	if err != nil {
		log.Fatalf("Invalid output: %v", err)
	}
	engineCfg, err := cfg.Player.EngineConfig()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	engineCfg.Device = device

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls

	if useTUI {
		controls = ui.NewControls()
		tuiProg, err = ui.Run(controls, cfg.Player.Volume)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go tuiProg.Run()
	}

	updateTUI := func(msg tea.Msg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}
	updateTUI(ui.StatusMsg{RelayURL: relay})

	player := app.New(app.Config{
		RelayURL: relay,
		Language: cfg.Player.Language,
		VoiceID:  cfg.Player.VoiceID,
		Engine:   engineCfg,
		OnStatus: func(status protocol.Status) {
			updateTUI(ui.StatusMsg{Status: string(status)})
		},
		OnAgentResponse: func(text string) {
			updateTUI(ui.TranscriptMsg{Agent: text})
		},
		OnUserTranscript: func(text string) {
			updateTUI(ui.TranscriptMsg{User: text})
		},
		OnMetadata: func(ev protocol.InitiationMetadataEvent) {
			updateTUI(ui.StatusMsg{
				ConversationID: ev.ConversationID,
				OutputFormat:   ev.AgentOutputAudioFormat,
			})
		},
		OnError: func(err error) {
			log.Printf("Player error: %v", err)
		},
	})

	if err := player.Connect(ctx); err != nil {
		if tuiProg != nil {
			tuiProg.Quit()
		}
		log.Fatalf("Failed to connect: %v", err)
	}
	log.Printf("Connected to relay: %s", relay)
	updateTUI(ui.StatusMsg{DeviceRate: player.Engine().SampleRate()})

	if leveler, ok := device.(output.Leveler); ok {
		leveler.SetVolume(cfg.Player.Volume)
	}

	if cfg.Player.MetricsAddr != "" {
		go serveMetrics(cfg.Player.MetricsAddr, player.Engine())
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- player.Run(ctx)
	}()

	if controls != nil {
		go handleControls(ctx, player, device, controls)
	}
	go statsUpdateLoop(ctx, player, updateTUI, tuiProg == nil)

	// Wait for quit from TUI, OS or the connection ending
	var quit chan struct{}
	if controls != nil {
		quit = controls.Quit
	}
	select {
	case <-quit:
		log.Printf("Received quit signal from TUI")
	case <-ctx.Done():
		log.Printf("Shutdown signal received")
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Conversation ended: %v", err)
		} else {
			log.Printf("Conversation ended")
		}
	}

	stop()
	if tuiProg != nil {
		tuiProg.Quit()
	}

	if err := player.Close(); err != nil {
		log.Printf("Error closing player: %v", err)
	}

	log.Printf("Player stopped")
}

// applyFlags overrides config values with flags given on the command line
func applyFlags(p *config.PlayerConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "relay":
			p.RelayURL = *relayURL
		case "output":
			p.Output = *outputName
		case "sample-rate":
			p.SampleRate = *sampleRate
		case "frame-size":
			p.FrameSize = *frameSize
		case "interrupt-policy":
			p.InterruptPolicy = *interruptPolicy
		case "volume":
			p.Volume = *volume
		case "language":
			p.Language = *language
		case "voice":
			p.VoiceID = *voiceID
		case "metrics":
			p.MetricsAddr = *metricsAddr
		}
	})
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// serveMetrics exposes engine stats for Prometheus
func serveMetrics(addr string, engine *wavstream.Engine) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewEngineCollector(engine))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))

	log.Printf("Metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Metrics server error: %v", err)
	}
}

// handleControls applies volume changes and interrupts from the TUI
func handleControls(ctx context.Context, player *app.Player, device output.Device, controls *ui.Controls) {
	leveler, _ := device.(output.Leveler)

	for {
		select {
		case vol := <-controls.Volume:
			log.Printf("Volume change: %d%%, muted=%v", vol.Volume, vol.Muted)
			if leveler != nil {
				leveler.SetVolume(vol.Volume)
				leveler.SetMuted(vol.Muted)
			}
		case <-controls.Interrupt:
			if err := player.Interrupt(ctx); err != nil {
				log.Printf("Interrupt failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically pushes playback stats to the TUI, or to the log
func statsUpdateLoop(ctx context.Context, player *app.Player, updateTUI func(tea.Msg), logStats bool) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	// Logging every tick would flood the file
	logTicker := time.NewTicker(10 * time.Second)
	defer logTicker.Stop()

	var position float64

	for {
		select {
		case <-ctx.Done():
			return

		case <-logTicker.C:
			if logStats {
				stats := player.Stats()
				log.Printf("Stats: audio=%d interrupts=%d pings=%d rendered=%d queued=%d underruns=%d dropped=%d",
					stats.Audio, stats.Interruptions, stats.Pings, stats.Engine.RenderedFrames,
					stats.Engine.QueuedFrames, stats.Engine.Underruns, stats.Engine.Dropped)
			}

		case <-ticker.C:
			if !logStats {
				if off, err := player.Position(ctx); err == nil && off != nil {
					position = off.Time
				}
				stats := player.Stats()
				updateTUI(ui.StatsMsg{
					Audio:         stats.Audio,
					Interruptions: stats.Interruptions,
					Pings:         stats.Pings,
					Position:      position,
					Engine:        stats.Engine,
				})
				if spec, err := player.Engine().GetFrequencies(wavstream.KindMusic, 0, 0); err == nil {
					updateTUI(ui.SpectrumMsg{Values: spec.Values})
				}
			}
		}
	}
}
