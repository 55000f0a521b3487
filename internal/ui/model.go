// ABOUTME: Bubbletea model for recorder TUI
// ABOUTME: Defines recording status state and update logic
package ui

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/Resonate-Protocol/resonate-capture/pkg/capture"
	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Session
	sessionID string
	path      string
	mode      capture.Mode
	phase     capture.Phase

	// Formats
	device       string
	deviceFormat audio.Format
	fileFormat   audio.Format
	resampling   bool

	// Progress
	elapsed  time.Duration
	captured time.Duration
	limit    time.Duration

	// Stats
	bytes          int64
	blocks         int64
	discarded      int64
	callbackErrors int64

	// Result
	result string

	stopping  bool
	showDebug bool

	control *Control

	// Dimensions
	width  int
	height int
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
	case DoneMsg:
		m.result = msg.Summary
		return m, tea.Quit
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
	s += m.renderFormat()
	s += m.renderProgress()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders session state and destination
func (m Model) renderHeader() string {
	icon := "○"
	state := m.phase.String()
	switch {
	case m.result != "":
		icon = "✓"
		state = m.result
	case m.phase == capture.PhaseRecording && m.stopping:
		icon = "■"
		state = "stopping"
	case m.phase == capture.PhaseRecording:
		icon = "●"
		state = "recording"
	case m.phase == capture.PhaseFailed:
		icon = "✗"
	}

	return fmt.Sprintf(`┌─ Resonate Capture ───────────────────────────────────┐
│ Status: %s %-43s │
│ File:   %-44s │
├──────────────────────────────────────────────────────┤
`, icon, truncate(state, 43), truncate(m.path, 44))
}

// renderFormat renders device and file formats
func (m Model) renderFormat() string {
	if m.device == "" {
		return "│ No device                                            │\n"
	}

	conv := "native"
	if m.resampling {
		conv = "resampled"
	} else if m.deviceFormat != m.fileFormat {
		conv = "converted"
	}

	s := fmt.Sprintf("│ Device: %-44s │\n", truncate(m.device, 44))
	s += fmt.Sprintf("│ Input:  %-44s │\n", formatLine(m.deviceFormat))
	s += fmt.Sprintf("│ Output: %-44s │\n", truncate(formatLine(m.fileFormat)+" ("+conv+")", 44))
	return s
}

// renderProgress renders elapsed and captured time
func (m Model) renderProgress() string {
	s := "│                                                      │\n"
	s += fmt.Sprintf("│ Elapsed:  %-42s │\n", formatClock(m.elapsed))
	if m.limit > 0 {
		bar := renderBar(int(m.captured/time.Millisecond), int(m.limit/time.Millisecond), 20)
		s += fmt.Sprintf("│ Captured: %s [%s]%-10s │\n", formatClock(m.captured), bar, "")
	} else {
		s += fmt.Sprintf("│ Captured: %-42s │\n", formatClock(m.captured))
	}
	return s
}

// renderStats renders capture counters
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stats:  %-44s │
│                                                      │
`, fmt.Sprintf("Blocks: %d  Bytes: %s  Dropped: %d  Errors: %d",
		m.blocks, formatBytes(m.bytes), m.discarded, m.callbackErrors))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ q:Stop & save  d:Debug                               │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Session: %-41s │
│   Mode:    %-41s │
`, truncate(m.sessionID, 41), m.mode)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if !m.stopping {
			m.stopping = true
			m.control.requestStop()
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	st := msg.Status
	if st.ID != "" {
		m.sessionID = st.ID
	}
	if msg.Path != "" {
		m.path = msg.Path
	}
	if msg.Limit != 0 {
		m.limit = msg.Limit
	}
	if st.Device != "" {
		m.device = st.Device
		m.deviceFormat = st.DeviceFormat
		m.fileFormat = st.FileFormat
		m.resampling = st.Resampling
	}
	m.mode = st.Mode
	m.phase = st.Phase
	m.elapsed = st.Elapsed
	m.captured = st.Captured
	m.bytes = st.Bytes
	m.blocks = st.Blocks
	m.discarded = st.Discarded
	m.callbackErrors = st.CallbackErrors
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Status capture.Status
	Path   string
	Limit  time.Duration
}

// DoneMsg reports the session outcome and closes the TUI
type DoneMsg struct {
	Summary string
}

// Utility functions
func renderBar(value, max, width int) string {
	if max <= 0 {
		max = 1
	}
	if value > max {
		value = max
	}
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
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

func formatLine(f audio.Format) string {
	kind := fmt.Sprintf("%d-bit", f.BitDepth)
	if f.Kind == audio.KindFloat {
		kind = "32-bit float"
	}
	return fmt.Sprintf("%dHz %s %s", f.SampleRate, channelName(f.Channels), kind)
}

func formatClock(d time.Duration) string {
	d = d.Round(100 * time.Millisecond)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := float64(d%time.Minute) / float64(time.Second)
	return fmt.Sprintf("%02d:%02d:%04.1f", h, m, s)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGT"[exp])
}
