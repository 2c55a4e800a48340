package models

// Stage is the phase label carried by every message.
type Stage string

const (
	// StageResearch is the research phase run by the research crew.
	StageResearch Stage = "research"
	// StageContent is the content generation phase run by the writer crew.
	StageContent Stage = "content"
	// StageSave is the output phase that writes the generated content.
	StageSave Stage = "save"
	// StageSystem is used by the message source for its own notices.
	// It is a valid message stage but drives no highlight.
	StageSystem Stage = "system"
)

// IsValid reports whether the stage is one of the flow phases.
func (s Stage) IsValid() bool {
	switch s {
	case StageResearch, StageContent, StageSave:
		return true
	default:
		return false
	}
}

// Stages returns the flow phases in execution order.
func Stages() []Stage {
	return []Stage{StageResearch, StageContent, StageSave}
}
