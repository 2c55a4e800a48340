package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codeready-toolchain/crewviz/pkg/dashboard"
	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// Source is the subset of *dashboard.Dashboard the terminal needs.
type Source interface {
	View() dashboard.View
	Messages() []models.Message
	Subscribe(fn dashboard.Listener) func()
}

// Sender delivers messages to a running program. Implemented by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Forward sends every dashboard view to p as a ViewMsg and returns a
// function that stops forwarding. Sends block until p is running, so start
// the dashboard with Model.WithStart rather than before Run.
func Forward(src Source, p Sender, recent int) func() {
	if recent <= 0 {
		recent = DefaultRecent
	}
	return src.Subscribe(func(v dashboard.View) {
		p.Send(ViewMsg{View: v, Recent: tail(src.Messages(), recent)})
	})
}

func tail(log []models.Message, n int) []models.Message {
	if len(log) <= n {
		return log
	}
	return log[len(log)-n:]
}
