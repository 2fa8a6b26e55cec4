package watch

import (
	"path/filepath"
	"slices"
	"strings"
)

// Filter decides whether a change to path is reported.
type Filter func(path string) bool

// Visible admits every file except dot files. Atomic writers stage their
// output in a hidden temp file and rename it over the target.
func Visible(path string) bool {
	return !strings.HasPrefix(filepath.Base(path), ".")
}

// Files admits only the files with the given base names.
func Files(names ...string) Filter {
	return func(path string) bool {
		return slices.Contains(names, filepath.Base(path))
	}
}
