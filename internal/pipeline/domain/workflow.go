package domain

import (
	"errors"
	"fmt"
	"time"
)

// Default descriptor locations, matching the layout used by the projects
// this tool was built for.
const (
	DefaultBaseDescriptor  = ".ci_support/environment.yml"
	DefaultExtraDescriptor = ".ci_support/environment-old.yml"
	DefaultCombinedPath    = "env-combined.yml"
	DefaultChannelConfig   = ".condarc"
)

// Workflow describes one backwards-compatibility pipeline for a repository.
type Workflow struct {
	Name        string
	Triggers    TriggerSet
	Env         EnvSpec
	Descriptors DescriptorPaths
	Steps       []Step
}

// TriggerSet declares which repository events start the pipeline.
// A push matches only the designated branch; pull requests match
// unconditionally when enabled.
type TriggerSet struct {
	PushBranch  string // empty when the push trigger is disabled
	PullRequest bool
}

// Matches reports whether the event should start a pipeline run.
func (t TriggerSet) Matches(ev Event) bool {
	switch ev.Kind {
	case EventPush:
		return t.PushBranch != "" && ev.Branch == t.PushBranch
	case EventPullRequest:
		return t.PullRequest
	}
	return false
}

// EnvSpec carries the runtime inputs for environment provisioning.
type EnvSpec struct {
	// PythonVersion is passed to the provisioner as an extra match spec,
	// never written into the combined descriptor.
	PythonVersion string
	// ProvisionerVersion selects the acceptable provisioner version;
	// "*" (the default) accepts any installed version.
	ProvisionerVersion string
}

// DescriptorPaths locates the environment descriptor files, relative to the
// repository root.
type DescriptorPaths struct {
	Base          string
	Extra         string
	Combined      string
	ChannelConfig string
}

// Step is one external command of the pipeline, run inside the provisioned
// environment.
type Step struct {
	Name    string
	Run     string
	Timeout time.Duration // zero means no per-step timeout
}

// Validate checks the workflow for structural problems that would make a run
// meaningless. It reports the first problem found.
func (w Workflow) Validate() error {
	if w.Triggers.PushBranch == "" && !w.Triggers.PullRequest {
		return errors.New("workflow declares no triggers: set on.push or on.pull_request")
	}
	if len(w.Steps) == 0 {
		return errors.New("workflow declares no steps")
	}
	for i, s := range w.Steps {
		if s.Run == "" {
			return fmt.Errorf("step %d (%q) has an empty run command", i+1, s.Name)
		}
		if s.Timeout < 0 {
			return fmt.Errorf("step %d (%q) has a negative timeout", i+1, s.Name)
		}
	}
	if w.Descriptors.Base == "" || w.Descriptors.Extra == "" {
		return errors.New("workflow is missing descriptor paths")
	}
	if w.Descriptors.Combined == "" || w.Descriptors.ChannelConfig == "" {
		return errors.New("workflow is missing generated file paths")
	}
	return nil
}
