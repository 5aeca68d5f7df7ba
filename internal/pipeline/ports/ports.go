// Package ports defines the boundaries between the pipeline application
// service and its external collaborators.
package ports

import (
	"context"

	"github.com/nathantilsley/compat-sentry/internal/pipeline/domain"
)

// SourceControlPort obtains a repository working tree at a specific ref.
// The returned cleanup func removes the tree when the run is done.
type SourceControlPort interface {
	FetchTree(ctx context.Context, owner, repo, ref string) (dir string, cleanup func(), err error)
}

// FileContentPort fetches a single file from a repository at a specific ref.
// A missing file is reported as a domain.NotFoundError.
type FileContentPort interface {
	FetchFile(ctx context.Context, owner, repo, ref, path string) ([]byte, error)
}

// FileChangesPort lists the files modified in a pull request.
type FileChangesPort interface {
	GetChangedFiles(ctx context.Context, owner, repo string, prNumber int) ([]string, error)
}

// DiffPort computes a unified diff between two descriptor renditions.
// An empty string means no differences.
type DiffPort interface {
	ComputeDiff(baseName, headName string, base, head []byte) string
}

// ProvisionerPort provisions the package environment a pipeline runs in.
type ProvisionerPort interface {
	// Verify checks the installed provisioner against a version selector
	// ("*" accepts anything).
	Verify(ctx context.Context, selector string) error
	// CreateEnv solves and creates the environment from the combined
	// descriptor, appending pythonVersion as an extra match spec when set.
	// It returns the environment prefix and the provisioner output.
	CreateEnv(ctx context.Context, workDir, descriptorPath, pythonVersion string) (prefix, output string, err error)
}

// StepRunnerPort executes one external step command inside the provisioned
// environment, returning its combined output.
type StepRunnerPort interface {
	Run(ctx context.Context, workDir, envPrefix, command string) (output string, err error)
}

// ReportPort publishes run results back to the code host.
type ReportPort interface {
	CreateCheckRun(ctx context.Context, ev domain.Event, conclusion, title, body string) error
	CreatePRComment(ctx context.Context, ev domain.Event, body string) error
}
