package suggestion

import "fmt"

// EditType is the closed set of edit semantics a suggestion can carry.
type EditType string

const (
	EditRewrite EditType = "rewrite"
	EditRemove  EditType = "remove"
	EditAdd     EditType = "add"
	EditReplace EditType = "replace"
	EditReorder EditType = "reorder"
)

// AllEditTypes returns every supported edit type.
func AllEditTypes() []EditType {
	return []EditType{EditRewrite, EditRemove, EditAdd, EditReplace, EditReorder}
}

// IsValid returns true if t is one of the supported edit types.
func (t EditType) IsValid() bool {
	switch t {
	case EditRewrite, EditRemove, EditAdd, EditReplace, EditReorder:
		return true
	default:
		return false
	}
}

func (t EditType) String() string {
	return string(t)
}

// LocatesAnchor returns true if the edit is positioned by its anchor rather
// than by its original text.
func (t EditType) LocatesAnchor() bool {
	return t == EditAdd
}

// MutatesDocument returns false for edit types that are only ever applied by
// hand.
func (t EditType) MutatesDocument() bool {
	return t.IsValid() && t != EditReorder
}

// ParseEditType parses a string into an EditType.
func ParseEditType(s string) (EditType, error) {
	t := EditType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid edit type: %q", s)
	}
	return t, nil
}
