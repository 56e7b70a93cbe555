// ABOUTME: Bubbletea model for the playback TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Stream
	file       string
	codec      string
	sampleRate int
	channels   int
	bitDepth   int

	// Playback
	state      string
	volume     int
	pan        float64
	loop       bool
	playedSecs float64
	queueDepth int

	// Debug
	showDebug  bool
	voicesLive int
	tweensLive int

	// Dimensions
	width  int
	height int

	control *Control
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tickCmd()
	case StatusMsg:
		m.applyStatus(msg)
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
	s += m.renderStreamInfo()
	s += m.renderControls()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders the playback state line
func (m Model) renderHeader() string {
	stateIcon := "■"
	switch m.state {
	case "playing":
		stateIcon = "▶"
	case "paused":
		stateIcon = "⏸"
	}

	loopText := ""
	if m.loop {
		loopText = " (loop)"
	}

	return fmt.Sprintf(`┌─ Chime Player ───────────────────────────────────────┐
│ %s %-50s │
│ State: %-13s %02d:%02d%s%-24s │
├──────────────────────────────────────────────────────┤
`, stateIcon, truncate(m.file, 50), m.state,
		int(m.playedSecs)/60, int(m.playedSecs)%60, loopText, "")
}

// renderStreamInfo renders the decoded stream format
func (m Model) renderStreamInfo() string {
	if m.codec == "" {
		return "│ No stream                                            │\n"
	}

	return fmt.Sprintf("│ Format: %s %dHz %s %d-bit%-20s │\n",
		m.codec, m.sampleRate, channelName(m.channels), m.bitDepth, "")
}

// renderControls renders volume, pan and buffer status
func (m Model) renderControls() string {
	volumeBar := renderBar(m.volume, 100, 10)
	panText := "center"
	if m.pan < -0.05 {
		panText = fmt.Sprintf("%.0f%% left", -m.pan*100)
	} else if m.pan > 0.05 {
		panText = fmt.Sprintf("%.0f%% right", m.pan*100)
	}

	return fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %d%%%-28s │\n"+
		"│ Pan:    %-44s │\n"+
		"│ Buffer: %d chunks queued%-28s │\n",
		volumeBar, m.volume, "",
		panText,
		m.queueDepth, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ space:Play/Pause  ↑/↓:Volume  ←/→:Pan  l:Loop  q:Quit│
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders engine internals
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Live voices: %-37d │
│   Active tweens: %-35d │
`, m.voicesLive, m.tweensLive)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.control.send(Command{Kind: CmdQuit})
		return m, tea.Quit
	case " ":
		m.control.send(Command{Kind: CmdToggle})
	case "up":
		m.volume += 5
		if m.volume > 100 {
			m.volume = 100
		}
		m.control.send(Command{Kind: CmdVolume, Value: float64(m.volume) / 100})
	case "down":
		m.volume -= 5
		if m.volume < 0 {
			m.volume = 0
		}
		m.control.send(Command{Kind: CmdVolume, Value: float64(m.volume) / 100})
	case "left":
		m.pan -= 0.1
		if m.pan < -1 {
			m.pan = -1
		}
		m.control.send(Command{Kind: CmdPan, Value: m.pan})
	case "right":
		m.pan += 0.1
		if m.pan > 1 {
			m.pan = 1
		}
		m.control.send(Command{Kind: CmdPan, Value: m.pan})
	case "l":
		m.loop = !m.loop
		m.control.send(Command{Kind: CmdLoop, On: m.loop})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from a status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.File != "" {
		m.file = msg.File
	}
	if msg.Codec != "" {
		m.codec = msg.Codec
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.PlayedSecs > 0 {
		m.playedSecs = msg.PlayedSecs
	}
	m.queueDepth = msg.QueueDepth
	if msg.VoicesLive != 0 {
		m.voicesLive = msg.VoicesLive
	}
	if msg.TweensLive != 0 {
		m.tweensLive = msg.TweensLive
	}
}

// StatusMsg updates TUI state from the playback goroutine
type StatusMsg struct {
	File       string
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
	State      string
	PlayedSecs float64
	QueueDepth int
	VoicesLive int
	TweensLive int
}

// Utility functions
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

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
