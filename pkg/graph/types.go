// Package graph holds the static crew graph and the projection that turns a
// message log into a renderable scene.
//
// The graph never changes at runtime. Only derived attributes (active flag,
// tint, edge history) are recomputed, and they are always recomputed from the
// full log so that the same log yields the same scene.
package graph

import "github.com/codeready-toolchain/crewviz/pkg/models"

// NodeKind classifies a node.
type NodeKind string

const (
	// NodeKindCrew is a coarse-grained node for a crew (one per flow phase).
	NodeKindCrew NodeKind = "crew"
	// NodeKindAgent is a worker inside a crew, matched by name in message text.
	NodeKindAgent NodeKind = "agent"
	// NodeKindOutput is the terminal output phase.
	NodeKindOutput NodeKind = "output"
)

// EdgeKind classifies an edge.
type EdgeKind string

const (
	// EdgeKindFlow is a stage-to-stage transition; eligible for highlighting.
	EdgeKindFlow EdgeKind = "flow"
	// EdgeKindMembership links a crew to one of its agents; never highlighted.
	EdgeKindMembership EdgeKind = "membership"
)

// Position is a layout hint for the renderer.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a static graph vertex.
type Node struct {
	ID          string
	Kind        NodeKind
	Stage       models.Stage // stage affinity
	Label       string
	Subtitle    string
	Position    Position
	DefaultTint Tint
}

// Edge is a static graph edge. Stage is set only on flow edges.
type Edge struct {
	ID     string
	Source string
	Target string
	Kind   EdgeKind
	Stage  models.Stage
	Label  string
	Stroke string // default stroke colour
}

// Graph is the static node/edge set plus the lookup tables used by the projection.
type Graph struct {
	Nodes []Node
	Edges []Edge

	stageNodes map[models.Stage]string
	agentNodes map[string]string
}

// New builds a graph. stageNodes maps a stage to its primary node ID and
// agentNodes maps an agent display name to its node ID.
func New(nodes []Node, edges []Edge, stageNodes map[models.Stage]string, agentNodes map[string]string) *Graph {
	g := &Graph{
		Nodes:      append([]Node(nil), nodes...),
		Edges:      append([]Edge(nil), edges...),
		stageNodes: make(map[models.Stage]string, len(stageNodes)),
		agentNodes: make(map[string]string, len(agentNodes)),
	}
	for k, v := range stageNodes {
		g.stageNodes[k] = v
	}
	for k, v := range agentNodes {
		g.agentNodes[k] = v
	}
	return g
}

// StageNode returns the primary node for a stage.
func (g *Graph) StageNode(stage models.Stage) (string, bool) {
	id, ok := g.stageNodes[stage]
	return id, ok
}

// AgentNode returns the node for an agent display name.
func (g *Graph) AgentNode(name string) (string, bool) {
	id, ok := g.agentNodes[name]
	return id, ok
}

// AgentNames returns the closed agent vocabulary known to the graph.
func (g *Graph) AgentNames() []string {
	names := make([]string, 0, len(g.agentNodes))
	for _, n := range g.Nodes {
		if n.Kind != NodeKindAgent {
			continue
		}
		if id, ok := g.agentNodes[n.Label]; ok && id == n.ID {
			names = append(names, n.Label)
		}
	}
	return names
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Members returns the agent nodes linked to a crew by membership edges, in edge order.
func (g *Graph) Members(crewID string) []Node {
	var members []Node
	for _, e := range g.Edges {
		if e.Kind != EdgeKindMembership || e.Source != crewID {
			continue
		}
		if n, ok := g.Node(e.Target); ok {
			members = append(members, n)
		}
	}
	return members
}
