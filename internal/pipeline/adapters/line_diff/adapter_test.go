package linediff

import (
	"strings"
	"testing"
)

func TestAdapter_ComputeDiff(t *testing.T) {
	tests := []struct {
		name     string
		baseName string
		headName string
		base     []byte
		head     []byte
		want     string // Empty if no diff expected
	}{
		{
			name:     "identical content returns empty diff",
			baseName: "env-combined.yml (main)",
			headName: "env-combined.yml (pr-7)",
			base:     []byte("channels:\n- conda-forge\ndependencies:\n- numpy\n"),
			head:     []byte("channels:\n- conda-forge\ndependencies:\n- numpy\n"),
			want:     "",
		},
		{
			name:     "changed dependency returns unified diff",
			baseName: "env-combined.yml (main)",
			headName: "env-combined.yml (pr-7)",
			base:     []byte("channels:\n- conda-forge\ndependencies:\n- numpy\n"),
			head:     []byte("channels:\n- conda-forge\ndependencies:\n- pandas\n"),
			want: "--- env-combined.yml (main)\n+++ env-combined.yml (pr-7)\n@@ -1,5 +1,5 @@\n" +
				" channels:\n - conda-forge\n dependencies:\n-- numpy\n+- pandas",
		},
		{
			name:     "added dependencies",
			baseName: "env-combined.yml (main)",
			headName: "env-combined.yml (pr-7)",
			base:     []byte("deps:\n- a\n"),
			head:     []byte("deps:\n- a\n- b\n- c\n"),
			want:     "--- env-combined.yml (main)\n+++ env-combined.yml (pr-7)\n@@ -1,3 +1,5 @@\n deps:\n - a\n+- b\n+- c",
		},
		{
			name:     "removed dependencies",
			baseName: "env-combined.yml (main)",
			headName: "env-combined.yml (pr-7)",
			base:     []byte("deps:\n- a\n- b\n- c\n"),
			head:     []byte("deps:\n- a\n"),
			want:     "--- env-combined.yml (main)\n+++ env-combined.yml (pr-7)\n@@ -1,5 +1,3 @@\n deps:\n - a\n-- b\n-- c",
		},
		{
			name:     "empty base shows all additions",
			baseName: "env-combined.yml (main)",
			headName: "env-combined.yml (pr-7)",
			base:     []byte(""),
			head:     []byte("- new\n"),
			want:     "--- env-combined.yml (main)\n+++ env-combined.yml (pr-7)\n@@ -1 +1,2 @@\n+- new",
		},
		{
			name:     "empty head shows all deletions",
			baseName: "env-combined.yml (main)",
			headName: "env-combined.yml (pr-7)",
			base:     []byte("- old\n"),
			head:     []byte(""),
			want:     "--- env-combined.yml (main)\n+++ env-combined.yml (pr-7)\n@@ -1,2 +1 @@\n-- old",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := New()
			got := adapter.ComputeDiff(tt.baseName, tt.headName, tt.base, tt.head)

			if tt.want == "" && got != "" {
				t.Errorf("ComputeDiff() expected empty diff, got:\n%s", got)
				return
			}

			if tt.want != "" && got == "" {
				t.Errorf("ComputeDiff() expected diff, got empty")
				return
			}

			if got != tt.want {
				t.Errorf("ComputeDiff() diff mismatch:\n--- Got ---\n%s\n--- Want ---\n%s", got, tt.want)
			}
		})
	}
}

func TestAdapter_ComputeDiff_ContextLines(t *testing.T) {
	// Changes deep inside a long descriptor keep 3 lines of context around them.
	adapter := New()

	base := []byte("- p1\n- p2\n- p3\n- p4\n- p5\n- p6\n- p7\n- p8\n- p9\n")
	head := []byte("- p1\n- p2\n- p3\n- p4\n- CHANGED\n- p6\n- p7\n- p8\n- p9\n")

	diff := adapter.ComputeDiff("env (main)", "env (pr-7)", base, head)

	if !strings.Contains(diff, "- p2") { // Context before
		t.Error("expected context line '- p2' before change")
	}
	if !strings.Contains(diff, "- p8") { // Context after
		t.Error("expected context line '- p8' after change")
	}
	if !strings.Contains(diff, "-- p5") {
		t.Error("expected removed line '-- p5'")
	}
	if !strings.Contains(diff, "+- CHANGED") {
		t.Error("expected added line '+- CHANGED'")
	}
}
