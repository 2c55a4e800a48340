// Package tui renders the crew dashboard in a terminal with bubbletea.
//
// The model is fed by dashboard views (ViewMsg); it never touches the
// channel directly. Reconnect requests go back through a callback.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codeready-toolchain/crewviz/pkg/dashboard"
	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// DefaultRecent is how many log entries the model keeps for display.
const DefaultRecent = 8

// logFadeDelay is how long a log line stays in the status bar.
const logFadeDelay = 5 * time.Second

// ViewMsg delivers a recomputed view and the tail of the message log.
type ViewMsg struct {
	View   dashboard.View
	Recent []models.Message
}

// startDoneMsg reports the outcome of the start callback.
type startDoneMsg struct {
	err error
}

// reconnectDoneMsg reports the outcome of a reconnect request.
type reconnectDoneMsg struct {
	err error
}

// logFadeMsg clears the log line once its generation is current.
type logFadeMsg struct {
	generation int
}

// Model is the bubbletea model of the terminal dashboard.
type Model struct {
	keys      KeyMap
	start     func() error
	reconnect func() error

	view   dashboard.View
	recent []models.Message
	ready  bool

	width  int
	height int

	// Status bar: the latest log line or reconnect outcome.
	notice        string
	noticeIsError bool
	noticeGen     int
}

// NewModel creates a model. reconnect is invoked off the UI goroutine when
// the reconnect key is pressed; it may be nil.
func NewModel(initial dashboard.View, reconnect func() error) Model {
	return Model{
		keys:      DefaultKeyMap,
		reconnect: reconnect,
		view:      initial,
		ready:     initial.Scene != nil,
	}
}

// WithStart returns a copy of m that runs start from Init, once the
// program's event loop is receiving. Mount the dashboard here: its catch-up
// view is sent to the program before Start returns.
func (m Model) WithStart(start func() error) Model {
	m.start = start
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.start == nil {
		return nil
	}
	start := m.start
	return func() tea.Msg {
		return startDoneMsg{err: start()}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reconnect):
			if m.reconnect == nil {
				return m, nil
			}
			reconnect := m.reconnect
			return m, func() tea.Msg {
				return reconnectDoneMsg{err: reconnect()}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ViewMsg:
		m.view = msg.View
		m.recent = msg.Recent
		m.ready = msg.View.Scene != nil

	case startDoneMsg:
		if msg.err != nil {
			return m.setNotice("Start failed: "+msg.err.Error(), true)
		}

	case reconnectDoneMsg:
		if msg.err != nil {
			return m.setNotice("Reconnect failed: "+msg.err.Error(), true)
		}
		return m.setNotice("Reconnect requested", false)

	case logRecordMsg:
		return m.setNotice(msg.Summary, msg.IsError)

	case logFadeMsg:
		if msg.generation == m.noticeGen {
			m.notice = ""
			m.noticeIsError = false
		}
	}
	return m, nil
}

func (m Model) setNotice(text string, isError bool) (tea.Model, tea.Cmd) {
	m.notice = text
	m.noticeIsError = isError
	m.noticeGen++
	gen := m.noticeGen
	return m, tea.Tick(logFadeDelay, func(time.Time) tea.Msg {
		return logFadeMsg{generation: gen}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return render(m)
}
