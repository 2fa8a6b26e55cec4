package suggestion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

const samplePayload = `{
  "suggestions": [
    {
      "id": "s1",
      "category": "impact",
      "type": "replace",
      "original": "Built scalable systems.",
      "suggested": "Architected 3 scalable distributed systems.",
      "severity": "high",
      "note": "Quantify the achievement"
    },
    {
      "id": "s2",
      "type": "add",
      "anchor": "Skills",
      "suggested": "Kubernetes"
    }
  ],
  "summary": {
    "overall": "Solid foundation",
    "strengths": ["clear layout"],
    "weaknesses": ["few metrics"],
    "score": 72
  }
}`

func TestParseFeedback(t *testing.T) {
	fb, err := suggestion.ParseFeedback([]byte(samplePayload))
	require.NoError(t, err)

	require.Len(t, fb.Suggestions, 2)
	assert.Equal(t, suggestion.EditReplace, fb.Suggestions[0].Type)
	assert.Equal(t, "Kubernetes", fb.Suggestions[1].Suggested)
	assert.Equal(t, 72, fb.Summary.Score)
	assert.Equal(t, []string{"few metrics"}, fb.Summary.Weaknesses)
}

func TestParseFeedback_KeepsMalformedRecordsForIntake(t *testing.T) {
	payload := `{"suggestions": [{"id": "x", "type": "shuffle"}, {"type": "remove"}]}`

	fb, err := suggestion.ParseFeedback([]byte(payload))
	require.NoError(t, err)
	require.Len(t, fb.Suggestions, 2)

	admitted, refused := suggestion.Admit(fb.Suggestions)
	assert.Empty(t, admitted)
	assert.Len(t, refused, 2)
}

func TestParseFeedback_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{"suggestions": [`},
		{"missing suggestions", `{"summary": {"score": 10}}`},
		{"suggestions not array", `{"suggestions": {"id": "a"}}`},
		{"score out of range", `{"suggestions": [], "summary": {"score": 101}}`},
		{"id not string", `{"suggestions": [{"id": 7, "type": "remove"}]}`},
		{"unknown status", `{"suggestions": [{"id": "a", "status": "archived"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := suggestion.ParseFeedback([]byte(tt.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, suggestion.ErrInvalidFeedback))
		})
	}
}

func TestRecorders_JoinsErrors(t *testing.T) {
	var calls []string
	ok := suggestion.RecorderFunc(func(_ context.Context, id string, status suggestion.Status) error {
		calls = append(calls, id+":"+string(status))
		return nil
	})
	failing := suggestion.RecorderFunc(func(context.Context, string, suggestion.Status) error {
		return errors.New("offline")
	})

	err := suggestion.Recorders{ok, nil, failing}.Record(context.Background(), "s1", suggestion.StatusAccepted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
	assert.Equal(t, []string{"s1:accepted"}, calls)

	assert.NoError(t, suggestion.Recorders{ok}.Record(context.Background(), "s2", suggestion.StatusRejected))
}

type decisionLog struct {
	decisions map[string]suggestion.Decision
}

func (d *decisionLog) Record(_ context.Context, id string, status suggestion.Status) error {
	d.decisions[id] = suggestion.Decision{Status: status}
	return nil
}

func (d *decisionLog) RecordDecision(_ context.Context, id string, dec suggestion.Decision) error {
	d.decisions[id] = dec
	return nil
}

func TestRecordDecision(t *testing.T) {
	rich := &decisionLog{decisions: map[string]suggestion.Decision{}}
	var plainStatus suggestion.Status
	plainRec := suggestion.RecorderFunc(func(_ context.Context, _ string, status suggestion.Status) error {
		plainStatus = status
		return nil
	})

	dec := suggestion.Decision{Status: suggestion.StatusAccepted, Applied: true}
	require.NoError(t, suggestion.Recorders{rich, plainRec}.RecordDecision(context.Background(), "s1", dec))

	assert.True(t, rich.decisions["s1"].Applied)
	assert.Equal(t, suggestion.StatusAccepted, plainStatus)
}
