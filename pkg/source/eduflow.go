package source

import (
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// EduFlowInput is the input of the education content flow.
type EduFlowInput struct {
	Topic         string
	AudienceLevel string
	Sections      []string
}

// DefaultEduFlowInput returns the flow's stock input.
func DefaultEduFlowInput() EduFlowInput {
	return EduFlowInput{
		Topic:         "Multi-agent systems",
		AudienceLevel: "advanced",
		Sections: []string{
			"Foundations of Multi-agent Systems",
			"Communication and Coordination",
			"Learning in Multi-agent Environments",
		},
	}
}

// OutputFileName is the markdown file the save phase writes.
func (in EduFlowInput) OutputFileName() string {
	return strings.ReplaceAll(fmt.Sprintf("%s_%s.md", in.Topic, in.AudienceLevel), " ", "_")
}

// EduFlowScript returns the research → content → save sequence of the
// education content flow, with the crews' agents announcing their work.
// step is the pause between updates.
func EduFlowScript(in EduFlowInput, step time.Duration) *Script {
	s := &Script{Name: "eduflow"}
	add := func(stage models.Stage, format string, args ...any) {
		s.Steps = append(s.Steps, Step{Stage: stage, Message: fmt.Sprintf(format, args...), Delay: step})
	}

	add(models.StageResearch, "Starting research phase with EduResearchCrew")
	add(models.StageResearch, "Agent 'Researcher' is gathering sources on %s", in.Topic)
	add(models.StageResearch, "Agent 'Planner' is outlining %d sections for a %s audience", len(in.Sections), in.AudienceLevel)
	add(models.StageResearch, "Research phase completed")

	add(models.StageContent, "Starting content generation with EduContentWriterCrew")
	for _, section := range in.Sections {
		add(models.StageContent, "Generating content for section: %s", section)
		add(models.StageContent, "Agent 'Content Writer' is drafting %s", section)
		add(models.StageContent, "Agent 'Editor' is editing %s", section)
		add(models.StageContent, "Agent 'Quality Reviewer' is reviewing %s", section)
	}
	add(models.StageContent, "Content generation completed")

	add(models.StageSave, "Starting to save content to markdown")
	add(models.StageSave, "Content saved to %s", in.OutputFileName())
	return s
}
