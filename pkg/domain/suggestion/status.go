package suggestion

import (
	"encoding/json"
	"fmt"
)

// Status is the review state of a suggestion.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Events accepted by the status lifecycle.
const (
	EventAccept = "accept"
	EventReject = "reject"
)

// validTransitions maps currentStatus -> event -> targetStatus.
// Accepted and rejected are terminal.
var validTransitions = map[Status]map[string]Status{
	StatusPending: {
		EventAccept: StatusAccepted,
		EventReject: StatusRejected,
	},
	StatusAccepted: {},
	StatusRejected: {},
}

// AllStatuses returns all valid statuses.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusAccepted, StatusRejected}
}

// IsValid returns true if the status is a valid suggestion status.
func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionWith returns true if event can move a suggestion out of s.
func (s Status) CanTransitionWith(event string) bool {
	_, ok := validTransitions[s][event]
	return ok
}

// TransitionWith returns the status reached from s by event.
func (s Status) TransitionWith(event string) (Status, error) {
	target, ok := validTransitions[s][event]
	if !ok {
		return s, fmt.Errorf("event '%s' not allowed from status '%s'", event, s)
	}
	return target, nil
}

// IsFinal returns true once a decision has been made.
func (s Status) IsFinal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// IsPending returns true if the suggestion still awaits a decision.
func (s Status) IsPending() bool {
	return s == StatusPending
}

// DisplayName returns a human-readable name for the status.
func (s Status) DisplayName() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusAccepted:
		return "Accepted"
	case StatusRejected:
		return "Rejected"
	default:
		return string(s)
	}
}

// ParseStatus parses a string into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid suggestion status: %s", s)
	}
	return status, nil
}

// UnmarshalJSON accepts an empty string as pending.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		*s = StatusPending
		return nil
	}

	status, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}
