package graph

import (
	"regexp"
	"strings"

	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// agentPattern finds an embedded agent name, e.g. "Agent 'Editor' is working".
var agentPattern = regexp.MustCompile(`Agent '([^']+)'`)

// Scene is the declarative description handed to renderers.
type Scene struct {
	Nodes []NodeState `json:"nodes"`
	Edges []EdgeState `json:"edges"`
	// Stage of the latest message, empty when the log is empty.
	Stage models.Stage `json:"stage,omitempty"`
}

// NodeState is a node plus its derived highlight state.
type NodeState struct {
	ID         string       `json:"id"`
	Kind       NodeKind     `json:"kind"`
	Stage      models.Stage `json:"stage"`
	Label      string       `json:"label"`
	Subtitle   string       `json:"subtitle,omitempty"`
	Position   Position     `json:"position"`
	Active     bool         `json:"active"`
	Tint       Tint         `json:"tint"`
	Color      string       `json:"color"`
	StyleClass string       `json:"styleClass"`
}

// EdgeState is an edge plus its derived highlight state and message history.
type EdgeState struct {
	ID             string           `json:"id"`
	Source         string           `json:"source"`
	Target         string           `json:"target"`
	Kind           EdgeKind         `json:"kind"`
	Stage          models.Stage     `json:"stage,omitempty"`
	Label          string           `json:"label,omitempty"`
	Active         bool             `json:"active"`
	Animated       bool             `json:"animated"`
	Stroke         string           `json:"stroke,omitempty"`
	MessageHistory []models.Message `json:"messageHistory"`
}

// Project computes the scene for a message log.
//
// Node and edge highlights reflect only the latest message, while each flow
// edge's history is the full-log subsequence of its stage. The result depends
// on nothing but g and log.
func Project(g *Graph, log []models.Message) *Scene {
	scene := &Scene{
		Nodes: make([]NodeState, 0, len(g.Nodes)),
		Edges: make([]EdgeState, 0, len(g.Edges)),
	}

	var latest *models.Message
	if len(log) > 0 {
		latest = &log[len(log)-1]
		scene.Stage = latest.Stage
	}

	active := activeNodes(g, latest)
	for _, n := range g.Nodes {
		scene.Nodes = append(scene.Nodes, projectNode(n, latest, active[n.ID]))
	}
	for _, e := range g.Edges {
		scene.Edges = append(scene.Edges, projectEdge(e, latest, log))
	}
	return scene
}

// ActiveAgent returns the agent name embedded in text, if any. It reports
// false when the pattern is absent.
func ActiveAgent(text string) (string, bool) {
	m := agentPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func activeNodes(g *Graph, latest *models.Message) map[string]bool {
	active := make(map[string]bool, 2)
	if latest == nil {
		return active
	}
	if id, ok := g.StageNode(latest.Stage); ok {
		active[id] = true
	}
	if name, ok := ActiveAgent(latest.Message); ok {
		if id, ok := g.AgentNode(name); ok {
			active[id] = true
		}
	}
	return active
}

func projectNode(n Node, latest *models.Message, active bool) NodeState {
	tint := n.DefaultTint
	if active {
		if t, ok := StageTint(latest.Stage); ok {
			tint = t
		}
	}

	classes := []string{"node", "node-" + string(n.Kind), "tint-" + string(tint)}
	if active {
		classes = append(classes, "active")
	}

	return NodeState{
		ID:         n.ID,
		Kind:       n.Kind,
		Stage:      n.Stage,
		Label:      n.Label,
		Subtitle:   n.Subtitle,
		Position:   n.Position,
		Active:     active,
		Tint:       tint,
		Color:      tint.Hex(active),
		StyleClass: strings.Join(classes, " "),
	}
}

func projectEdge(e Edge, latest *models.Message, log []models.Message) EdgeState {
	state := EdgeState{
		ID:             e.ID,
		Source:         e.Source,
		Target:         e.Target,
		Kind:           e.Kind,
		Stage:          e.Stage,
		Label:          e.Label,
		Stroke:         e.Stroke,
		MessageHistory: []models.Message{},
	}
	if e.Kind != EdgeKindFlow {
		return state
	}

	for _, msg := range log {
		if msg.Stage == e.Stage {
			state.MessageHistory = append(state.MessageHistory, msg)
		}
	}

	if latest != nil && latest.Stage == e.Stage {
		state.Active = true
		state.Animated = true
		state.Stroke = ActiveEdgeStroke
	}
	return state
}

// Node returns the state of the node with the given ID.
func (s *Scene) Node(id string) (NodeState, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeState{}, false
}

// Edge returns the state of the edge with the given ID.
func (s *Scene) Edge(id string) (EdgeState, bool) {
	for _, e := range s.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return EdgeState{}, false
}

// ActiveNodeIDs returns the IDs of active nodes in graph order.
func (s *Scene) ActiveNodeIDs() []string {
	var ids []string
	for _, n := range s.Nodes {
		if n.Active {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// ActiveEdgeIDs returns the IDs of active edges in graph order.
func (s *Scene) ActiveEdgeIDs() []string {
	var ids []string
	for _, e := range s.Edges {
		if e.Active {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
