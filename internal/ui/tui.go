// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the player status view
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// VolumeChangeMsg carries a volume or mute change made in the TUI
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// Controls holds channels the TUI uses to drive the player
type Controls struct {
	Volume    chan VolumeChangeMsg
	Interrupt chan struct{}
	Quit      chan struct{}
}

// NewControls creates the control channels
func NewControls() *Controls {
	return &Controls{
		Volume:    make(chan VolumeChangeMsg, 10),
		Interrupt: make(chan struct{}, 1),
		Quit:      make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, volume int) Model {
	return Model{
		status:   "disconnected",
		volume:   volume,
		controls: controls,
	}
}

// Run creates the TUI program; the caller starts it with Run
func Run(controls *Controls, volume int) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls, volume), tea.WithAltScreen())
	return p, nil
}
