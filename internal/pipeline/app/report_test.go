package app

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nathantilsley/compat-sentry/internal/pipeline/domain"
)

var update = flag.Bool("update", false, "update golden files")

func successResult() domain.RunResult {
	return domain.RunResult{
		Workflow: "backwards-compatibility",
		Steps: []domain.StepResult{
			{Name: "checkout", Status: domain.StatusPassed, Duration: 2 * time.Second, Output: "fetched pyiron/pyiron_atomistics@abc1234"},
			{Name: "merge descriptors", Status: domain.StatusPassed, Duration: 10 * time.Millisecond, Output: "wrote env-combined.yml (214 bytes)"},
			{Name: "channel config", Status: domain.StatusPassed, Duration: time.Millisecond, Output: "wrote .condarc"},
			{Name: "provision environment", Status: domain.StatusPassed, Duration: 90 * time.Second, Output: "transaction done"},
			{Name: "backwards tests", Status: domain.StatusPassed, Duration: 3 * time.Minute, Output: ""},
		},
	}
}

func failureResult() domain.RunResult {
	return domain.RunResult{
		Workflow: "backwards-compatibility",
		Steps: []domain.StepResult{
			{Name: "checkout", Status: domain.StatusPassed, Duration: 2 * time.Second, Output: "fetched pyiron/pyiron_atomistics@def5678"},
			{Name: "merge descriptors", Status: domain.StatusPassed, Duration: 10 * time.Millisecond, Output: "wrote env-combined.yml (230 bytes)"},
			{Name: "channel config", Status: domain.StatusPassed, Duration: time.Millisecond, Output: "wrote .condarc"},
			{Name: "provision environment", Status: domain.StatusPassed, Duration: 90 * time.Second, Output: "transaction done"},
			{
				Name:     "pyiron config",
				Status:   domain.StatusFailed,
				Duration: 2 * time.Second,
				Output:   "Traceback (most recent call last):\n  ValueError: unsupported config version",
				Err:      "running step command: exit status 1",
			},
			{Name: "backwards tests", Status: domain.StatusSkipped},
		},
		DescriptorDiff: "--- env-combined.yml (main)\n+++ env-combined.yml (update-env)\n@@ -2,4 +2,4 @@\n - conda-forge\n dependencies:\n-- numpy\n+- pandas",
	}
}

func TestConclusion(t *testing.T) {
	if got := Conclusion(successResult()); got != "success" {
		t.Errorf("Conclusion(success) = %q, want %q", got, "success")
	}
	if got := Conclusion(failureResult()); got != "failure" {
		t.Errorf("Conclusion(failure) = %q, want %q", got, "failure")
	}
}

func TestTitle(t *testing.T) {
	if got, want := Title(successResult()), "Backwards-compatibility pipeline passed: 5 step(s)"; got != want {
		t.Errorf("Title(success) = %q, want %q", got, want)
	}
	if got, want := Title(failureResult()), "Backwards-compatibility pipeline failed: 4 passed, 1 failed, 1 skipped"; got != want {
		t.Errorf("Title(failure) = %q, want %q", got, want)
	}
}

func TestRenderCheckRunGolden(t *testing.T) {
	goldenDir := filepath.Join("testdata", "golden")

	compareOrUpdateGolden(t, filepath.Join(goldenDir, "check-run-success.md"), RenderCheckRun(successResult()))
	compareOrUpdateGolden(t, filepath.Join(goldenDir, "check-run-failure.md"), RenderCheckRun(failureResult()))
}

func TestRenderPRCommentGolden(t *testing.T) {
	goldenDir := filepath.Join("testdata", "golden")

	compareOrUpdateGolden(t, filepath.Join(goldenDir, "pr-comment.md"), RenderPRComment(failureResult()))
}

func TestTailLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "empty", in: "", n: 5, want: ""},
		{name: "only newlines", in: "\n\n", n: 5, want: ""},
		{name: "under limit", in: "a\nb\n", n: 5, want: "a\nb"},
		{name: "at limit", in: "a\nb", n: 2, want: "a\nb"},
		{name: "over limit", in: "a\nb\nc\nd\ne", n: 2, want: "... (3 lines truncated)\nd\ne"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tailLines(tt.in, tt.n); got != tt.want {
				t.Errorf("tailLines(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

// compareOrUpdateGolden either updates the golden file or compares against it.
func compareOrUpdateGolden(t *testing.T, path, actual string) {
	t.Helper()

	if *update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			t.Fatalf("writing golden file %s: %v", path, err)
		}
		t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading golden file %s (run with -update to create): %v", path, err)
	}

	if string(expected) != actual {
		t.Errorf("output does not match golden file %s\n\n--- expected ---\n%s\n--- actual ---\n%s",
			path, string(expected), actual)
	}
}
