// Package workflowfile loads pipeline workflow definitions from YAML.
package workflowfile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/compat-sentry/internal/pipeline/domain"
)

// DefaultPath is where repositories carry their workflow definition.
const DefaultPath = ".compat-sentry.yaml"

// defaultPushBranch applies when a push block is present without a branch.
const defaultPushBranch = "main"

// yamlWorkflow mirrors the on-disk workflow structure.
type yamlWorkflow struct {
	Name string       `yaml:"name"`
	On   yamlTriggers `yaml:"on"`
	Env  struct {
		PythonVersion      string `yaml:"python-version"`
		ProvisionerVersion string `yaml:"provisioner-version"`
	} `yaml:"env"`
	Descriptors struct {
		Base          string `yaml:"base"`
		Extra         string `yaml:"extra"`
		Combined      string `yaml:"combined"`
		ChannelConfig string `yaml:"channel-config"`
	} `yaml:"descriptors"`
	Steps []yamlStep `yaml:"steps"`
}

type yamlTriggers struct {
	Push *struct {
		Branch string `yaml:"branch"`
	} `yaml:"push"`
	PullRequest bool `yaml:"pull_request"`
}

type yamlStep struct {
	Name    string `yaml:"name"`
	Run     string `yaml:"run"`
	Timeout string `yaml:"timeout"`
}

// Load reads and parses the workflow file at path.
func Load(path string) (domain.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("reading workflow file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a workflow definition, applies defaults, and validates it.
func Parse(data []byte) (domain.Workflow, error) {
	var raw yamlWorkflow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Workflow{}, fmt.Errorf("parsing workflow YAML: %w", err)
	}

	wf := domain.Workflow{
		Name: raw.Name,
		Env: domain.EnvSpec{
			PythonVersion:      raw.Env.PythonVersion,
			ProvisionerVersion: raw.Env.ProvisionerVersion,
		},
		Descriptors: domain.DescriptorPaths{
			Base:          raw.Descriptors.Base,
			Extra:         raw.Descriptors.Extra,
			Combined:      raw.Descriptors.Combined,
			ChannelConfig: raw.Descriptors.ChannelConfig,
		},
	}

	if raw.On.Push != nil {
		wf.Triggers.PushBranch = raw.On.Push.Branch
		if wf.Triggers.PushBranch == "" {
			wf.Triggers.PushBranch = defaultPushBranch
		}
	}
	wf.Triggers.PullRequest = raw.On.PullRequest

	applyDefaults(&wf)

	for i, s := range raw.Steps {
		step := domain.Step{Name: s.Name, Run: s.Run}
		if step.Name == "" {
			step.Name = fmt.Sprintf("step %d", i+1)
		}
		if s.Timeout != "" {
			d, err := time.ParseDuration(s.Timeout)
			if err != nil {
				return domain.Workflow{}, fmt.Errorf("parsing timeout of step %q: %w", step.Name, err)
			}
			step.Timeout = d
		}
		wf.Steps = append(wf.Steps, step)
	}

	if err := wf.Validate(); err != nil {
		return domain.Workflow{}, fmt.Errorf("invalid workflow: %w", err)
	}
	return wf, nil
}

func applyDefaults(wf *domain.Workflow) {
	if wf.Name == "" {
		wf.Name = "backwards-compatibility"
	}
	if wf.Env.ProvisionerVersion == "" {
		wf.Env.ProvisionerVersion = "*"
	}
	if wf.Descriptors.Base == "" {
		wf.Descriptors.Base = domain.DefaultBaseDescriptor
	}
	if wf.Descriptors.Extra == "" {
		wf.Descriptors.Extra = domain.DefaultExtraDescriptor
	}
	if wf.Descriptors.Combined == "" {
		wf.Descriptors.Combined = domain.DefaultCombinedPath
	}
	if wf.Descriptors.ChannelConfig == "" {
		wf.Descriptors.ChannelConfig = domain.DefaultChannelConfig
	}
}
