// Package linediff computes line-based unified diffs of descriptor files.
package linediff

import (
	"bytes"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Adapter implements ports.DiffPort using go-difflib.
type Adapter struct{}

// New creates a new line-based diff adapter.
func New() *Adapter {
	return &Adapter{}
}

// ComputeDiff returns a unified diff between base and head with three lines
// of context, labelled with the given names. Identical content yields an
// empty string.
func (a *Adapter) ComputeDiff(baseName, headName string, base, head []byte) string {
	if bytes.Equal(base, head) {
		return ""
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(base)),
		B:        difflib.SplitLines(string(head)),
		FromFile: baseName,
		ToFile:   headName,
		Context:  3,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
