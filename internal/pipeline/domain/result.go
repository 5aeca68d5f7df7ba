package domain

import "time"

// StepStatus represents the outcome of one pipeline step.
type StepStatus int

const (
	StatusPassed  StepStatus = iota // command exited zero
	StatusFailed                    // command exited non-zero or errored
	StatusSkipped                   // not executed because an earlier step failed
)

// String returns the human-readable status name used in reports.
func (s StepStatus) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// StepResult records the outcome of a single pipeline step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Duration time.Duration
	Output   string // captured combined output, tail-truncated for reporting
	Err      string // failure detail, empty unless Status is StatusFailed
}

// RunResult aggregates the outcome of one pipeline run.
type RunResult struct {
	Workflow       string
	Event          Event
	Steps          []StepResult
	DescriptorDiff string // unified diff of the combined descriptor, PRs only
}

// Failed reports whether any step of the run failed.
func (r RunResult) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// CountByStatus returns counts of step results grouped by status.
func CountByStatus(steps []StepResult) (passed, failed, skipped int) {
	for _, s := range steps {
		switch s.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return
}

// DiffLabel creates a display name for one side of a descriptor comparison.
// Example: "env-combined.yml (main)"
func DiffLabel(path, ref string) string {
	return path + " (" + ref + ")"
}
