// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the command channel back to playback
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// CommandKind selects a playback command sent from the UI.
type CommandKind uint8

const (
	CmdToggle CommandKind = iota
	CmdVolume
	CmdPan
	CmdLoop
	CmdQuit
)

// Command is one keyboard-driven playback request.
type Command struct {
	Kind  CommandKind
	Value float64
	On    bool
}

// Control carries commands from the TUI to the playback goroutine.
type Control struct {
	Commands chan Command
}

// NewControl creates a command channel handler
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
	}
}

// send enqueues a command without blocking the UI loop.
func (c *Control) send(cmd Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Control) Model {
	return Model{
		volume:  100,
		state:   "stopped",
		control: ctrl,
	}
}

// Run starts the TUI
func Run(ctrl *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
	return p, nil
}
