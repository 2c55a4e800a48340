package graph

import (
	"sync"

	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// Node IDs of the builtin crew graph.
const (
	NodeResearchCrew    = "1"
	NodeContentCrew     = "2"
	NodeOutput          = "3"
	NodeResearcher      = "4"
	NodePlanner         = "5"
	NodeContentWriter   = "6"
	NodeEditor          = "7"
	NodeQualityReviewer = "8"
)

// Flow edge IDs of the builtin crew graph.
const (
	EdgeResearchToContent = "e1-2"
	EdgeContentToOutput   = "e2-3"
)

var (
	builtinGraph     *Graph
	builtinGraphOnce sync.Once
)

// Builtin returns the shared crew graph: a research crew and a content crew
// feeding a markdown output, with five named agents.
// Callers must treat it as read-only.
func Builtin() *Graph {
	builtinGraphOnce.Do(func() {
		builtinGraph = New(builtinNodes(), builtinEdges(), builtinStageNodes(), builtinAgentNodes())
	})
	return builtinGraph
}

func builtinNodes() []Node {
	return []Node{
		{
			ID: NodeResearchCrew, Kind: NodeKindCrew, Stage: models.StageResearch,
			Label: "EduResearchCrew", Subtitle: "Research Phase",
			Position: Position{X: 250, Y: 0}, DefaultTint: TintBlue,
		},
		{
			ID: NodeContentCrew, Kind: NodeKindCrew, Stage: models.StageContent,
			Label: "EduContentWriterCrew", Subtitle: "Content Generation",
			Position: Position{X: 250, Y: 300}, DefaultTint: TintGreen,
		},
		{
			ID: NodeOutput, Kind: NodeKindOutput, Stage: models.StageSave,
			Label: "Save to Markdown", Subtitle: "Output Phase",
			Position: Position{X: 250, Y: 600}, DefaultTint: TintPurple,
		},
		{
			ID: NodeResearcher, Kind: NodeKindAgent, Stage: models.StageResearch,
			Label: "Researcher", Position: Position{X: 50, Y: 100}, DefaultTint: TintNeutral,
		},
		{
			ID: NodePlanner, Kind: NodeKindAgent, Stage: models.StageResearch,
			Label: "Planner", Position: Position{X: 450, Y: 100}, DefaultTint: TintNeutral,
		},
		{
			ID: NodeContentWriter, Kind: NodeKindAgent, Stage: models.StageContent,
			Label: "Content Writer", Position: Position{X: 50, Y: 400}, DefaultTint: TintNeutral,
		},
		{
			ID: NodeEditor, Kind: NodeKindAgent, Stage: models.StageContent,
			Label: "Editor", Position: Position{X: 250, Y: 400}, DefaultTint: TintNeutral,
		},
		{
			ID: NodeQualityReviewer, Kind: NodeKindAgent, Stage: models.StageContent,
			Label: "Quality Reviewer", Position: Position{X: 450, Y: 400}, DefaultTint: TintNeutral,
		},
	}
}

func builtinEdges() []Edge {
	return []Edge{
		{
			ID: EdgeResearchToContent, Source: NodeResearchCrew, Target: NodeContentCrew,
			Kind: EdgeKindFlow, Stage: models.StageResearch, Label: "Research Plan", Stroke: "#10b981",
		},
		{
			ID: EdgeContentToOutput, Source: NodeContentCrew, Target: NodeOutput,
			Kind: EdgeKindFlow, Stage: models.StageContent, Label: "Generated Content", Stroke: "#8b5cf6",
		},
		{ID: "e1-4", Source: NodeResearchCrew, Target: NodeResearcher, Kind: EdgeKindMembership},
		{ID: "e1-5", Source: NodeResearchCrew, Target: NodePlanner, Kind: EdgeKindMembership},
		{ID: "e2-6", Source: NodeContentCrew, Target: NodeContentWriter, Kind: EdgeKindMembership},
		{ID: "e2-7", Source: NodeContentCrew, Target: NodeEditor, Kind: EdgeKindMembership},
		{ID: "e2-8", Source: NodeContentCrew, Target: NodeQualityReviewer, Kind: EdgeKindMembership},
	}
}

func builtinStageNodes() map[models.Stage]string {
	return map[models.Stage]string{
		models.StageResearch: NodeResearchCrew,
		models.StageContent:  NodeContentCrew,
		models.StageSave:     NodeOutput,
	}
}

func builtinAgentNodes() map[string]string {
	return map[string]string{
		"Researcher":       NodeResearcher,
		"Planner":          NodePlanner,
		"Content Writer":   NodeContentWriter,
		"Editor":           NodeEditor,
		"Quality Reviewer": NodeQualityReviewer,
	}
}
