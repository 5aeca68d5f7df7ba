// Package app orchestrates backwards-compatibility pipeline runs.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nathantilsley/compat-sentry/internal/pipeline/domain"
	"github.com/nathantilsley/compat-sentry/internal/pipeline/ports"
)

// Names of the fixed pipeline phases that precede the workflow's own steps.
const (
	StepCheckout      = "checkout"
	StepMerge         = "merge descriptors"
	StepChannelConfig = "channel config"
	StepProvision     = "provision environment"
)

// Service runs one pipeline: checkout, descriptor merge, channel config,
// environment provisioning, then the workflow's script steps in order,
// failing fast on the first error.
type Service struct {
	prov   ports.ProvisionerPort
	runner ports.StepRunnerPort

	source  ports.SourceControlPort
	content ports.FileContentPort
	changes ports.FileChangesPort
	differ  ports.DiffPort

	logger *slog.Logger
}

// Option configures Service behaviour.
type Option func(*Service)

// WithSourceControl enables fetching the working tree from the code host.
// Without it the service only runs against a local tree.
func WithSourceControl(source ports.SourceControlPort) Option {
	return func(s *Service) { s.source = source }
}

// WithDescriptorDiff enables descriptor diffing on pull request runs.
func WithDescriptorDiff(content ports.FileContentPort, changes ports.FileChangesPort, differ ports.DiffPort) Option {
	return func(s *Service) {
		s.content = content
		s.changes = changes
		s.differ = differ
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a Service with the provided collaborators.
func NewService(prov ports.ProvisionerPort, runner ports.StepRunnerPort, opts ...Option) *Service {
	s := &Service{
		prov:   prov,
		runner: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the pipeline for the given workflow and event. When workDir is
// empty the working tree is fetched from the code host; otherwise the local
// tree at workDir is used. Step failures are recorded in the result, not
// returned as errors; the error is reserved for misconfiguration.
func (s *Service) Run(ctx context.Context, wf domain.Workflow, ev domain.Event, workDir string) (domain.RunResult, error) {
	if err := wf.Validate(); err != nil {
		return domain.RunResult{}, err
	}

	res := domain.RunResult{Workflow: wf.Name, Event: ev}
	r := &runner{svc: s, wf: wf, ev: ev, res: &res}

	if workDir == "" {
		if s.source == nil {
			return domain.RunResult{}, errors.New("no source control configured and no local working tree given")
		}
		r.execute(ctx, StepCheckout, 0, r.checkout)
	} else {
		r.workDir = workDir
		r.record(StepCheckout, domain.StatusPassed, 0, "using local working tree: "+workDir, "")
	}
	defer r.cleanup()

	r.execute(ctx, StepMerge, 0, r.mergeDescriptors)
	r.execute(ctx, StepChannelConfig, 0, r.writeChannelConfig)
	r.execute(ctx, StepProvision, 0, r.provision)

	for _, step := range wf.Steps {
		r.execute(ctx, step.Name, step.Timeout, func(ctx context.Context) (string, error) {
			return s.runner.Run(ctx, r.workDir, r.envPrefix, step.Run)
		})
	}

	s.attachDescriptorDiff(ctx, wf, ev, &res)

	s.logger.Info("pipeline finished",
		"workflow", wf.Name,
		"event", ev.Kind.String(),
		"repo", ev.Owner+"/"+ev.Repo,
		"failed", res.Failed(),
	)
	return res, nil
}

// runner carries the mutable state of one pipeline run.
type runner struct {
	svc       *Service
	wf        domain.Workflow
	ev        domain.Event
	res       *domain.RunResult
	workDir   string
	envPrefix string
	treeClean func()
	failed    bool
}

// execute runs one step unless an earlier step failed, recording its result.
func (r *runner) execute(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) (string, error)) {
	if r.failed {
		r.record(name, domain.StatusSkipped, 0, "", "")
		return
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		r.failed = true
		r.record(name, domain.StatusFailed, elapsed, output, err.Error())
		r.svc.logger.Error("step failed", "step", name, "error", err)
		return
	}
	r.record(name, domain.StatusPassed, elapsed, output, "")
}

func (r *runner) record(name string, status domain.StepStatus, d time.Duration, output, errMsg string) {
	r.res.Steps = append(r.res.Steps, domain.StepResult{
		Name:     name,
		Status:   status,
		Duration: d,
		Output:   output,
		Err:      errMsg,
	})
}

func (r *runner) cleanup() {
	if r.treeClean != nil {
		r.treeClean()
	}
}

func (r *runner) checkout(ctx context.Context) (string, error) {
	dir, clean, err := r.svc.source.FetchTree(ctx, r.ev.Owner, r.ev.Repo, r.ev.Ref())
	if err != nil {
		return "", err
	}
	r.workDir = dir
	r.treeClean = clean
	return fmt.Sprintf("fetched %s/%s@%s", r.ev.Owner, r.ev.Repo, r.ev.Ref()), nil
}

func (r *runner) mergeDescriptors(context.Context) (string, error) {
	paths := r.wf.Descriptors

	base, err := os.ReadFile(filepath.Join(r.workDir, paths.Base))
	if err != nil {
		return "", fmt.Errorf("reading base descriptor: %w", err)
	}
	extra, err := os.ReadFile(filepath.Join(r.workDir, paths.Extra))
	if err != nil {
		return "", fmt.Errorf("reading extra descriptor: %w", err)
	}

	combined := domain.MergeDescriptors(base, extra)
	target := filepath.Join(r.workDir, paths.Combined)
	if err := os.WriteFile(target, combined, 0o644); err != nil { //nolint:gosec // G306: descriptor is not sensitive
		return "", fmt.Errorf("writing combined descriptor: %w", err)
	}
	return fmt.Sprintf("wrote %s (%d bytes)", paths.Combined, len(combined)), nil
}

func (r *runner) writeChannelConfig(context.Context) (string, error) {
	target := filepath.Join(r.workDir, r.wf.Descriptors.ChannelConfig)
	if err := os.WriteFile(target, []byte(domain.ChannelConfig), 0o644); err != nil { //nolint:gosec // G306
		return "", fmt.Errorf("writing channel config: %w", err)
	}
	return "wrote " + r.wf.Descriptors.ChannelConfig, nil
}

func (r *runner) provision(ctx context.Context) (string, error) {
	if err := r.svc.prov.Verify(ctx, r.wf.Env.ProvisionerVersion); err != nil {
		return "", err
	}

	prefix, output, err := r.svc.prov.CreateEnv(ctx, r.workDir, r.wf.Descriptors.Combined, r.wf.Env.PythonVersion)
	if err != nil {
		return output, err
	}
	r.envPrefix = prefix
	return output, nil
}

// attachDescriptorDiff computes a unified diff of the combined descriptor
// between base and head for pull request runs. Failures here never fail the
// run; the diff is informational.
func (s *Service) attachDescriptorDiff(ctx context.Context, wf domain.Workflow, ev domain.Event, res *domain.RunResult) {
	if ev.Kind != domain.EventPullRequest || s.content == nil || s.changes == nil || s.differ == nil {
		return
	}

	changed, err := s.changes.GetChangedFiles(ctx, ev.Owner, ev.Repo, ev.PRNumber)
	if err != nil {
		s.logger.Warn("listing changed files failed, skipping descriptor diff", "error", err)
		return
	}
	if !domain.DescriptorsChanged(changed, wf.Descriptors) {
		return
	}

	base, err := s.renderCombined(ctx, ev, wf.Descriptors, ev.BaseRef)
	if err != nil {
		s.logger.Warn("rendering base descriptor failed, skipping descriptor diff", "error", err)
		return
	}
	head, err := s.renderCombined(ctx, ev, wf.Descriptors, ev.Ref())
	if err != nil {
		s.logger.Warn("rendering head descriptor failed, skipping descriptor diff", "error", err)
		return
	}

	res.DescriptorDiff = s.differ.ComputeDiff(
		domain.DiffLabel(wf.Descriptors.Combined, ev.BaseRef),
		domain.DiffLabel(wf.Descriptors.Combined, ev.Ref()),
		base, head,
	)
}

// renderCombined merges the descriptor pair as they exist at ref. Missing
// files are treated as empty so newly added descriptors diff as additions.
func (s *Service) renderCombined(ctx context.Context, ev domain.Event, paths domain.DescriptorPaths, ref string) ([]byte, error) {
	base, err := s.content.FetchFile(ctx, ev.Owner, ev.Repo, ref, paths.Base)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}
	extra, err := s.content.FetchFile(ctx, ev.Owner, ev.Repo, ref, paths.Extra)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}
	return domain.MergeDescriptors(base, extra), nil
}
