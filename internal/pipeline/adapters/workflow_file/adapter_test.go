package workflowfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullWorkflow = `
name: backwards-compatibility
on:
  push:
    branch: stable
  pull_request: true
env:
  python-version: "3.11"
  provisioner-version: "2.0.*"
descriptors:
  base: .ci_support/environment.yml
  extra: .ci_support/environment-old.yml
  combined: env-combined.yml
  channel-config: .condarc
steps:
  - name: pyiron config
    run: python .ci_support/pyironconfig.py
    timeout: 5m
  - name: backwards tests
    run: .ci_support/test_backwards.sh
    timeout: 30m
`

func TestParseFullWorkflow(t *testing.T) {
	wf, err := Parse([]byte(fullWorkflow))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if wf.Name != "backwards-compatibility" {
		t.Errorf("Name = %q", wf.Name)
	}
	if wf.Triggers.PushBranch != "stable" {
		t.Errorf("PushBranch = %q, want stable", wf.Triggers.PushBranch)
	}
	if !wf.Triggers.PullRequest {
		t.Error("PullRequest trigger should be enabled")
	}
	if wf.Env.PythonVersion != "3.11" {
		t.Errorf("PythonVersion = %q", wf.Env.PythonVersion)
	}
	if wf.Env.ProvisionerVersion != "2.0.*" {
		t.Errorf("ProvisionerVersion = %q", wf.Env.ProvisionerVersion)
	}
	if len(wf.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(wf.Steps))
	}
	if wf.Steps[0].Timeout != 5*time.Minute {
		t.Errorf("Steps[0].Timeout = %v, want 5m", wf.Steps[0].Timeout)
	}
	if wf.Steps[1].Run != ".ci_support/test_backwards.sh" {
		t.Errorf("Steps[1].Run = %q", wf.Steps[1].Run)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	minimal := `
on:
  push: {}
steps:
  - run: ./test.sh
`
	wf, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if wf.Name != "backwards-compatibility" {
		t.Errorf("default Name = %q", wf.Name)
	}
	if wf.Triggers.PushBranch != "main" {
		t.Errorf("default PushBranch = %q, want main", wf.Triggers.PushBranch)
	}
	if wf.Triggers.PullRequest {
		t.Error("PullRequest trigger should default to disabled")
	}
	if wf.Env.ProvisionerVersion != "*" {
		t.Errorf("default ProvisionerVersion = %q, want *", wf.Env.ProvisionerVersion)
	}
	if wf.Descriptors.Base != ".ci_support/environment.yml" {
		t.Errorf("default Base = %q", wf.Descriptors.Base)
	}
	if wf.Descriptors.ChannelConfig != ".condarc" {
		t.Errorf("default ChannelConfig = %q", wf.Descriptors.ChannelConfig)
	}
	if wf.Steps[0].Name != "step 1" {
		t.Errorf("default step name = %q, want %q", wf.Steps[0].Name, "step 1")
	}
	if wf.Steps[0].Timeout != 0 {
		t.Errorf("default step timeout = %v, want 0", wf.Steps[0].Timeout)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "invalid YAML",
			input:   "steps: [}",
			wantErr: "parsing workflow YAML",
		},
		{
			name:    "no triggers",
			input:   "steps:\n  - run: ./test.sh\n",
			wantErr: "no triggers",
		},
		{
			name:    "no steps",
			input:   "on:\n  pull_request: true\n",
			wantErr: "no steps",
		},
		{
			name:    "bad timeout",
			input:   "on:\n  pull_request: true\nsteps:\n  - run: ./test.sh\n    timeout: soon\n",
			wantErr: "parsing timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatalf("Parse() = nil error, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultPath)
	if err := os.WriteFile(path, []byte(fullWorkflow), 0o600); err != nil {
		t.Fatalf("writing workflow file: %v", err)
	}

	wf, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if wf.Triggers.PushBranch != "stable" {
		t.Errorf("PushBranch = %q, want stable", wf.Triggers.PushBranch)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
