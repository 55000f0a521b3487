// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for recorder UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Control carries stop requests from the TUI to the recorder
type Control struct {
	Stop chan struct{}
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Stop: make(chan struct{}, 1),
	}
}

func (c *Control) requestStop() {
	if c == nil {
		return
	}
	select {
	case c.Stop <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Control, path string) Model {
	return Model{
		path:    path,
		control: ctrl,
	}
}

// Run creates the TUI program; the caller runs it
func Run(ctrl *Control, path string) *tea.Program {
	return tea.NewProgram(NewModel(ctrl, path), tea.WithAltScreen())
}
