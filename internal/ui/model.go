// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Shows connection status, transcripts, playback stats and a spectrum
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/wavstream/pkg/wavstream"
)

const (
	innerWidth    = 52
	spectrumWidth = 42
)

var spectrumLevels = []rune("▁▂▃▄▅▆▇█")

// Model represents the TUI state
type Model struct {
	// Connection
	status         string
	relayURL       string
	conversationID string
	outputFormat   string
	deviceRate     int

	// Conversation
	agentText string
	userText  string

	// Playback
	volume   int
	muted    bool
	position float64
	spectrum []float64

	// Stats
	audio         int64
	interruptions int64
	pings         int64
	engine        wavstream.Stats

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int

	controls *Controls
}

// StatusMsg updates connection state; empty fields are left unchanged
type StatusMsg struct {
	Status         string
	RelayURL       string
	ConversationID string
	OutputFormat   string
	DeviceRate     int
}

// TranscriptMsg carries conversation text
type TranscriptMsg struct {
	Agent string
	User  string
}

// StatsMsg carries periodic playback counters
type StatsMsg struct {
	Audio         int64
	Interruptions int64
	Pings         int64
	Position      float64
	Engine        wavstream.Stats
}

// SpectrumMsg carries normalized spectrum values in [0, 1]
type SpectrumMsg struct {
	Values []float64
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case TranscriptMsg:
		if msg.Agent != "" {
			m.agentText = msg.Agent
		}
		if msg.User != "" {
			m.userText = msg.User
		}
	case StatsMsg:
		m.audio = msg.Audio
		m.interruptions = msg.Interruptions
		m.pings = msg.Pings
		m.position = msg.Position
		m.engine = msg.Engine
	case SpectrumMsg:
		m.spectrum = msg.Values
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderConversation()
	s += m.renderControls()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders connection status
func (m Model) renderHeader() string {
	icon := "✗"
	switch m.status {
	case "connected":
		icon = "✓"
	case "connecting":
		icon = "…"
	}

	relay := m.relayURL
	if relay == "" {
		relay = "-"
	}

	return fmt.Sprintf(`┌─ wavstream player ───────────────────────────────────┐
│ Status: %s %-43s │
│ Relay:  %-44s │
├──────────────────────────────────────────────────────┤
`, icon, m.status, truncate(relay, 44))
}

// renderConversation renders the latest transcripts
func (m Model) renderConversation() string {
	if m.conversationID == "" {
		return line("No conversation")
	}

	s := line(fmt.Sprintf("Conversation: %s", m.conversationID))
	s += line(fmt.Sprintf("Format: %s -> device %dHz", m.outputFormat, m.deviceRate))
	s += line("")
	s += line(fmt.Sprintf("Agent: %s", m.agentText))
	s += line(fmt.Sprintf("You:   %s", m.userText))
	return s
}

// renderControls renders volume, position and spectrum
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}

	s := line("")
	s += line(fmt.Sprintf("Volume: [%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon))
	s += line(fmt.Sprintf("Position: %.2fs", m.position))
	s += line(fmt.Sprintf("Level: %s", renderSpectrum(m.spectrum, spectrumWidth)))
	return s
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	return "├──────────────────────────────────────────────────────┤\n" +
		line(fmt.Sprintf("Events: audio %d  interrupts %d  pings %d", m.audio, m.interruptions, m.pings)) +
		line(fmt.Sprintf("Frames: played %d  queued %d  underruns %d",
			m.engine.RenderedFrames, m.engine.QueuedFrames, m.engine.Underruns))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ ↑/↓:Volume  m:Mute  i:Interrupt  d:Debug  q:Quit    │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	lost := "no"
	if m.engine.DeviceLost {
		lost = "yes"
	}
	return line("DEBUG:") +
		line(fmt.Sprintf("  Tracks: %d  Dropped: %d", m.engine.Tracks, m.engine.Dropped)) +
		line(fmt.Sprintf("  Device rate: %dHz  Lost: %s", m.engine.SampleRate, lost))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.signalQuit()
		return m, tea.Quit
	case "up":
		if m.volume < 100 {
			m.volume = min(m.volume+5, 100)
			m.sendVolume()
		}
	case "down":
		if m.volume > 0 {
			m.volume = max(m.volume-5, 0)
			m.sendVolume()
		}
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	case "i":
		m.signalInterrupt()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m Model) sendVolume() {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Volume <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

func (m Model) signalInterrupt() {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Interrupt <- struct{}{}:
	default:
	}
}

func (m Model) signalQuit() {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Quit <- struct{}{}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Status != "" {
		m.status = msg.Status
	}
	if msg.RelayURL != "" {
		m.relayURL = msg.RelayURL
	}
	if msg.ConversationID != "" {
		m.conversationID = msg.ConversationID
		m.agentText = ""
		m.userText = ""
	}
	if msg.OutputFormat != "" {
		m.outputFormat = msg.OutputFormat
	}
	if msg.DeviceRate != 0 {
		m.deviceRate = msg.DeviceRate
	}
}

// Utility functions
func line(text string) string {
	return fmt.Sprintf("│ %-*s │\n", innerWidth, truncate(text, innerWidth))
}

func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

// renderSpectrum averages values into width columns of block characters
func renderSpectrum(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	out := make([]rune, 0, width)
	for col := 0; col < width; col++ {
		start := col * len(values) / width
		end := (col + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		if start >= len(values) {
			break
		}
		end = min(end, len(values))

		sum := 0.0
		for _, v := range values[start:end] {
			sum += v
		}
		level := sum / float64(end-start)
		idx := int(level * float64(len(spectrumLevels)-1))
		idx = max(0, min(idx, len(spectrumLevels)-1))
		out = append(out, spectrumLevels[idx])
	}
	return string(out)
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}
