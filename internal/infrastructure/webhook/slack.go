package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

// Body formats accepted by Endpoint.Format.
const (
	FormatJSON  = "json"
	FormatSlack = "slack"
)

// slackBody renders p as a Slack incoming-webhook message.
func slackBody(p Payload) ([]byte, error) {
	text := slackText(p)
	return json.Marshal(map[string]any{
		"text": text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
}

func slackText(p Payload) string {
	switch {
	case p.Status == suggestion.StatusAccepted && p.Applied:
		return fmt.Sprintf(":white_check_mark: Suggestion `%s` accepted and applied", p.SuggestionID)
	case p.Status == suggestion.StatusAccepted:
		return fmt.Sprintf(":pencil2: Suggestion `%s` accepted; needs a manual edit", p.SuggestionID)
	case p.Status == suggestion.StatusRejected:
		return fmt.Sprintf(":x: Suggestion `%s` rejected", p.SuggestionID)
	default:
		return fmt.Sprintf("Suggestion `%s` is %s", p.SuggestionID, p.Status)
	}
}
