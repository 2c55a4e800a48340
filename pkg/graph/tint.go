package graph

import "github.com/codeready-toolchain/crewviz/pkg/models"

// Tint is a colour family used to style nodes.
type Tint string

const (
	TintBlue    Tint = "blue"
	TintGreen   Tint = "green"
	TintPurple  Tint = "purple"
	TintNeutral Tint = "neutral"
)

// ActiveEdgeStroke is the stroke used for a highlighted flow edge.
const ActiveEdgeStroke = "#3b82f6"

var stageTints = map[models.Stage]Tint{
	models.StageResearch: TintBlue,
	models.StageContent:  TintGreen,
	models.StageSave:     TintPurple,
}

// StageTint returns the highlight tint for a stage.
func StageTint(stage models.Stage) (Tint, bool) {
	t, ok := stageTints[stage]
	return t, ok
}

// Hex returns a representative colour for the tint. Strong variants are used
// for active nodes, soft variants for defaults.
func (t Tint) Hex(strong bool) string {
	switch t {
	case TintBlue:
		if strong {
			return "#3b82f6"
		}
		return "#bfdbfe"
	case TintGreen:
		if strong {
			return "#22c55e"
		}
		return "#bbf7d0"
	case TintPurple:
		if strong {
			return "#a855f7"
		}
		return "#e9d5ff"
	default:
		if strong {
			return "#64748b"
		}
		return "#e2e8f0"
	}
}
