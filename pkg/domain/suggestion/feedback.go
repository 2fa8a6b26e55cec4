package suggestion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Summary is the overall assessment that accompanies a suggestion batch.
type Summary struct {
	Overall    string   `json:"overall"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Score      int      `json:"score"`
}

// Feedback is the payload produced by the external feedback generator.
type Feedback struct {
	Suggestions []Suggestion `json:"suggestions"`
	Summary     Summary      `json:"summary"`
}

// feedbackSchemaJSON only checks the payload's shape. Per-record rules
// (required fields, known types, unique ids) are enforced by Admit so that
// one bad record does not sink the batch.
const feedbackSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["suggestions"],
  "properties": {
    "suggestions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": { "type": "string" },
          "category": { "type": "string" },
          "type": { "type": "string" },
          "anchor": { "type": "string" },
          "original": { "type": "string" },
          "suggested": { "type": "string" },
          "severity": { "type": "string" },
          "note": { "type": "string" },
          "status": { "enum": ["", "pending", "accepted", "rejected"] },
          "applied": { "type": "boolean" }
        }
      }
    },
    "summary": {
      "type": "object",
      "properties": {
        "overall": { "type": "string" },
        "strengths": { "type": "array", "items": { "type": "string" } },
        "weaknesses": { "type": "array", "items": { "type": "string" } },
        "score": { "type": "integer", "minimum": 0, "maximum": 100 }
      }
    }
  }
}`

var feedbackSchemaLoader = gojsonschema.NewStringLoader(feedbackSchemaJSON)

// FeedbackSchema returns the JSON Schema a feedback payload must satisfy.
func FeedbackSchema() string {
	return feedbackSchemaJSON
}

// ParseFeedback decodes and shape-checks a feedback payload. Failures wrap
// ErrInvalidFeedback.
func ParseFeedback(data []byte) (*Feedback, error) {
	result, err := gojsonschema.Validate(feedbackSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeedback, err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidFeedback, strings.Join(issues, "; "))
	}

	var fb Feedback
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeedback, err)
	}
	return &fb, nil
}
