// ABOUTME: YAML configuration for the player and relay binaries
// ABOUTME: Defaults, file loading, environment overrides and validation
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/wavstream/pkg/wavstream"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration
type Config struct {
	Player  PlayerConfig  `yaml:"player"`
	Relay   RelayConfig   `yaml:"relay"`
	Logging LoggingConfig `yaml:"logging"`
}

// PlayerConfig configures the player and its engine
type PlayerConfig struct {
	RelayURL        string        `yaml:"relay_url"`
	Output          string        `yaml:"output"`
	SampleRate      int           `yaml:"sample_rate"`
	FrameSize       int           `yaml:"frame_size"`
	RawPCMRate      int           `yaml:"raw_pcm_rate"`
	ReplyTimeout    time.Duration `yaml:"reply_timeout"`
	IdleFlush       time.Duration `yaml:"idle_flush"`
	InterruptPolicy string        `yaml:"interrupt_policy"`
	Volume          int           `yaml:"volume"`
	Language        string        `yaml:"language"`
	VoiceID         string        `yaml:"voice_id"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	DiscoverTimeout time.Duration `yaml:"discover_timeout"`
}

// RelayConfig configures the relay server
type RelayConfig struct {
	Port          int           `yaml:"port"`
	Name          string        `yaml:"name"`
	AgentID       string        `yaml:"agent_id"`
	AgentPrivate  bool          `yaml:"agent_private"`
	APIKey        string        `yaml:"api_key"`
	UpstreamURL   string        `yaml:"upstream_url"`
	SignedURLBase string        `yaml:"signed_url_base"`
	PingInterval  time.Duration `yaml:"ping_interval"`
	EnableMDNS    bool          `yaml:"enable_mdns"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	File   string `yaml:"file"`
	Stdout bool   `yaml:"stdout"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Player: PlayerConfig{
			Output:          "malgo",
			SampleRate:      wavstream.DefaultSampleRate,
			FrameSize:       wavstream.DefaultFrameSize,
			RawPCMRate:      wavstream.DefaultRawPCMRate,
			ReplyTimeout:    wavstream.DefaultReplyTimeout,
			InterruptPolicy: "drain",
			Volume:          100,
			DiscoverTimeout: 10 * time.Second,
		},
		Relay: RelayConfig{
			Port:          8000,
			Name:          "wavstream-relay",
			UpstreamURL:   "wss://api.elevenlabs.io/v1/convai/conversation",
			SignedURLBase: "https://api.elevenlabs.io/v1/convai/conversation/get-signed-url",
			PingInterval:  20 * time.Second,
			EnableMDNS:    true,
		},
		Logging: LoggingConfig{
			Stdout: true,
		},
	}
}

// Load reads a YAML file over the defaults
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

// LoadOrDefault loads path, or returns defaults when path is empty
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// ApplyEnv overrides relay settings from the environment, as the
// hosted agent tooling expects
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Relay.Port = port
	}
	if v := getenv("ELEVENLABS_AGENT_ID"); v != "" {
		c.Relay.AgentID = v
	}
	if v := getenv("ELEVENLABS_API_KEY"); v != "" {
		c.Relay.APIKey = v
	}
	if v := getenv("AGENT_PRIVATE"); v != "" {
		c.Relay.AgentPrivate = strings.EqualFold(v, "true")
	}
	return nil
}

// Validate checks the player section
func (p *PlayerConfig) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", p.SampleRate)
	}
	if p.FrameSize <= 0 {
		return fmt.Errorf("frame_size must be positive, got %d", p.FrameSize)
	}
	if p.RawPCMRate <= 0 {
		return fmt.Errorf("raw_pcm_rate must be positive, got %d", p.RawPCMRate)
	}
	if p.Volume < 0 || p.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", p.Volume)
	}
	if _, err := wavstream.ParseInterruptPolicy(p.InterruptPolicy); err != nil {
		return err
	}
	return nil
}

// Validate checks the relay section
func (r *RelayConfig) Validate() error {
	if r.Port < 1 || r.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", r.Port)
	}
	if r.AgentID == "" {
		return errors.New("agent_id is required (or set ELEVENLABS_AGENT_ID)")
	}
	if r.AgentPrivate && r.APIKey == "" {
		return errors.New("api_key is required for private agents (or set ELEVENLABS_API_KEY)")
	}
	if r.PingInterval <= 0 {
		return fmt.Errorf("ping_interval must be positive, got %v", r.PingInterval)
	}
	return nil
}

// EngineConfig converts the player section to engine settings
func (p *PlayerConfig) EngineConfig() (wavstream.Config, error) {
	policy, err := wavstream.ParseInterruptPolicy(p.InterruptPolicy)
	if err != nil {
		return wavstream.Config{}, err
	}
	return wavstream.Config{
		SampleRate:      p.SampleRate,
		FrameSize:       p.FrameSize,
		RawPCMRate:      p.RawPCMRate,
		ReplyTimeout:    p.ReplyTimeout,
		IdleFlush:       p.IdleFlush,
		InterruptPolicy: policy,
	}, nil
}
