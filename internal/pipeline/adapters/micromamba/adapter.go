// Package micromamba provisions conda environments and runs pipeline steps
// through the micromamba CLI.
package micromamba

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// EnvDirName is the environment prefix created inside the working tree.
const EnvDirName = ".compat-env"

// Adapter implements ports.ProvisionerPort and ports.StepRunnerPort by
// shelling out to micromamba.
type Adapter struct {
	path string
}

// New locates micromamba on PATH.
func New() (*Adapter, error) {
	path, err := exec.LookPath("micromamba")
	if err != nil {
		return nil, fmt.Errorf("locating micromamba: %w", err)
	}
	return &Adapter{path: path}, nil
}

// Verify checks the installed micromamba against the version selector.
// "*" and the empty selector accept any installed version.
func (a *Adapter) Verify(ctx context.Context, selector string) error {
	if selector == "" || selector == "*" {
		return nil
	}

	out, err := exec.CommandContext(ctx, a.path, "--version").Output()
	if err != nil {
		return fmt.Errorf("querying micromamba version: %w", err)
	}

	version := strings.TrimSpace(string(out))
	if !versionSatisfies(version, selector) {
		return fmt.Errorf("installed micromamba %s does not satisfy selector %q", version, selector)
	}
	return nil
}

// CreateEnv creates the environment under workDir from the combined
// descriptor, appending the python match spec when a version is set.
func (a *Adapter) CreateEnv(ctx context.Context, workDir, descriptorPath, pythonVersion string) (string, string, error) {
	prefix := filepath.Join(workDir, EnvDirName)

	cmd := exec.CommandContext(ctx, a.path, createArgs(prefix, descriptorPath, pythonVersion)...)
	cmd.Dir = workDir

	output, err := runCollected(cmd)
	if err != nil {
		return "", output, fmt.Errorf("creating environment: %w", err)
	}
	return prefix, output, nil
}

// Run executes one step command inside the provisioned environment. The
// command string is handed to sh so workflow steps keep their shell
// semantics.
func (a *Adapter) Run(ctx context.Context, workDir, envPrefix, command string) (string, error) {
	cmd := exec.CommandContext(ctx, a.path, runArgs(envPrefix, command)...)
	cmd.Dir = workDir

	output, err := runCollected(cmd)
	if err != nil {
		return output, fmt.Errorf("running step command: %w", err)
	}
	return output, nil
}

// createArgs builds the argument list for environment creation.
func createArgs(prefix, descriptorPath, pythonVersion string) []string {
	args := []string{"create", "--yes", "--prefix", prefix, "--file", descriptorPath}
	if pythonVersion != "" {
		args = append(args, "python="+pythonVersion)
	}
	return args
}

// runArgs builds the argument list for running a step inside the environment.
func runArgs(prefix, command string) []string {
	return []string{"run", "--prefix", prefix, "sh", "-c", command}
}

// versionSatisfies matches an installed version against a selector: "*"
// accepts anything, a selector ending in ".*" is a prefix match, anything
// else must match exactly.
func versionSatisfies(version, selector string) bool {
	if selector == "*" || selector == "" {
		return true
	}
	if rest, ok := strings.CutSuffix(selector, ".*"); ok {
		return version == rest || strings.HasPrefix(version, rest+".")
	}
	return version == selector
}

// runCollected runs the command and returns its interleaved stdout/stderr.
func runCollected(cmd *exec.Cmd) (string, error) {
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	return buf.String(), err
}
