package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Message
		wantErr bool
	}{
		{
			name:  "stage and message",
			input: `{"stage":"research","message":"Starting research phase with EduResearchCrew"}`,
			want:  Message{Stage: StageResearch, Message: "Starting research phase with EduResearchCrew"},
		},
		{
			name:  "with timestamp",
			input: `{"stage":"content","message":"Agent 'Editor' is working","timestamp":"2024-11-02T10:00:00Z"}`,
			want:  Message{Stage: StageContent, Message: "Agent 'Editor' is working", Timestamp: "2024-11-02T10:00:00Z"},
		},
		{
			name:  "null timestamp and extra fields",
			input: `{"stage":"save","message":"Content saved","timestamp":null,"status":"active"}`,
			want:  Message{Stage: StageSave, Message: "Content saved"},
		},
		{
			name:  "system stage is accepted",
			input: `{"stage":"system","message":"Connected to CrewAI WebSocket Server"}`,
			want:  Message{Stage: StageSystem, Message: "Connected to CrewAI WebSocket Server"},
		},
		{name: "invalid syntax", input: `{"stage":`, wantErr: true},
		{name: "not an object", input: `["research","hi"]`, wantErr: true},
		{name: "missing stage", input: `{"message":"hi"}`, wantErr: true},
		{name: "missing message", input: `{"stage":"research"}`, wantErr: true},
		{name: "stage not a string", input: `{"stage":3,"message":"hi"}`, wantErr: true},
		{name: "empty frame", input: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessage([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStageIsValid(t *testing.T) {
	for _, s := range Stages() {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, StageSystem.IsValid())
	assert.False(t, Stage("").IsValid())
}
