package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/codeready-toolchain/crewviz/pkg/graph"
	"github.com/codeready-toolchain/crewviz/pkg/stream"
)

const (
	markActive   = "●"
	markInactive = "○"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f0f6fc"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f85149"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8b949e")).MarginTop(1)
	crewStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MarginRight(1)
)

func render(m Model) string {
	var b strings.Builder
	b.WriteString(renderHeader(m.view.Status, m.view.MessageCount))
	b.WriteString("\n")

	if !m.ready {
		b.WriteString(mutedStyle.Render("Waiting for the dashboard…"))
		b.WriteString("\n")
		b.WriteString(renderFooter(m))
		return b.String()
	}

	scene := m.view.Scene
	b.WriteString(renderCrews(scene))
	b.WriteString("\n")
	b.WriteString(headingStyle.Render("FLOW"))
	b.WriteString("\n")
	b.WriteString(renderFlow(scene))
	b.WriteString(headingStyle.Render("MESSAGES"))
	b.WriteString("\n")
	b.WriteString(renderMessages(m))
	b.WriteString(renderFooter(m))
	return b.String()
}

func renderHeader(status stream.Status, count int) string {
	indicator := stateStyle(status.State).Render(markActive + " " + string(status.State))
	line := titleStyle.Render("crewviz") + "  " + indicator
	if status.ReconnectAttempt > 0 {
		line += mutedStyle.Render(fmt.Sprintf(" (attempt %d)", status.ReconnectAttempt))
	}
	line += mutedStyle.Render(fmt.Sprintf("  %d messages", count))
	if status.LastError != "" {
		line += "\n" + errorStyle.Render(status.LastError)
	}
	return line
}

func stateStyle(s stream.State) lipgloss.Style {
	switch s {
	case stream.StateOpen:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	case stream.StateConnecting, stream.StateClosed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	case stream.StateExhausted:
		return errorStyle
	default:
		return mutedStyle
	}
}

// renderCrews draws one box per crew or output node with its agents inside.
func renderCrews(scene *graph.Scene) string {
	members := make(map[string][]graph.NodeState)
	for _, e := range scene.Edges {
		if e.Kind != graph.EdgeKindMembership {
			continue
		}
		if n, ok := scene.Node(e.Target); ok {
			members[e.Source] = append(members[e.Source], n)
		}
	}

	var boxes []string
	for _, n := range scene.Nodes {
		if n.Kind == graph.NodeKindAgent {
			continue
		}
		lines := []string{nodeLine(n, true)}
		if n.Subtitle != "" {
			lines = append(lines, mutedStyle.Render(n.Subtitle))
		}
		for _, a := range members[n.ID] {
			lines = append(lines, "  "+nodeLine(a, false))
		}
		boxes = append(boxes, crewStyle.BorderForeground(lipgloss.Color(n.Color)).Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func nodeLine(n graph.NodeState, bold bool) string {
	mark := markInactive
	if n.Active {
		mark = markActive
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(n.Color)).Bold(bold || n.Active)
	return style.Render(mark + " " + n.Label)
}

func renderFlow(scene *graph.Scene) string {
	var b strings.Builder
	for _, e := range scene.Edges {
		if e.Kind != graph.EdgeKindFlow {
			continue
		}
		source, _ := scene.Node(e.Source)
		target, _ := scene.Node(e.Target)
		arrow := "──▶"
		if e.Animated {
			arrow = "━━▶"
		}
		style := lipgloss.NewStyle()
		if e.Stroke != "" {
			style = style.Foreground(lipgloss.Color(e.Stroke))
		}
		fmt.Fprintf(&b, "%s %s %s  %s %s\n",
			source.Label,
			style.Bold(e.Active).Render(arrow),
			target.Label,
			e.Label,
			mutedStyle.Render(fmt.Sprintf("[%d]", len(e.MessageHistory))))
	}
	return b.String()
}

func renderMessages(m Model) string {
	if len(m.recent) == 0 {
		return mutedStyle.Render("No messages yet") + "\n"
	}
	var b strings.Builder
	for _, msg := range m.recent {
		stage := string(msg.Stage)
		if tint, ok := graph.StageTint(msg.Stage); ok {
			stage = lipgloss.NewStyle().Foreground(lipgloss.Color(tint.Hex(true))).Render(stage)
		} else {
			stage = mutedStyle.Render(stage)
		}
		text := msg.Message
		if m.width > 20 {
			text = ansi.Truncate(text, m.width-12, "…")
		}
		fmt.Fprintf(&b, "%-8s %s\n", stage, text)
	}
	return b.String()
}

func renderFooter(m Model) string {
	if m.notice != "" {
		if m.noticeIsError {
			return "\n" + errorStyle.Render(m.notice)
		}
		return "\n" + mutedStyle.Render(m.notice)
	}
	help := make([]string, 0, 2)
	for _, k := range m.keys.bindings() {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	return "\n" + mutedStyle.Render(strings.Join(help, " • "))
}
