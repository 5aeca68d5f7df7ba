package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v68/github"

	checkrun "github.com/nathantilsley/compat-sentry/internal/pipeline/adapters/check_run"
	ghcontent "github.com/nathantilsley/compat-sentry/internal/pipeline/adapters/gh_content"
	sourcectrl "github.com/nathantilsley/compat-sentry/internal/pipeline/adapters/source_ctrl"
	workflowfile "github.com/nathantilsley/compat-sentry/internal/pipeline/adapters/workflow_file"
	"github.com/nathantilsley/compat-sentry/internal/pipeline/domain"
	"github.com/nathantilsley/compat-sentry/internal/pipeline/ports"
)

// ClientFactory builds GitHub clients scoped to an App installation.
type ClientFactory interface {
	InstallationClient(installationID int64) (*github.Client, error)
}

// Dispatcher turns incoming repository events into pipeline runs: it loads
// the repository's workflow definition, checks the trigger, runs the
// pipeline, and reports the outcome back to GitHub.
type Dispatcher struct {
	clients      ClientFactory
	prov         ports.ProvisionerPort
	runner       ports.StepRunnerPort
	differ       ports.DiffPort
	workflowPath string
	logger       *slog.Logger
}

// NewDispatcher constructs a Dispatcher. workflowPath is the in-repository
// location of the workflow definition.
func NewDispatcher(
	clients ClientFactory,
	prov ports.ProvisionerPort,
	runner ports.StepRunnerPort,
	differ ports.DiffPort,
	workflowPath string,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		clients:      clients,
		prov:         prov,
		runner:       runner,
		differ:       differ,
		workflowPath: workflowPath,
		logger:       logger,
	}
}

// Dispatch handles one repository event end to end.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) error {
	logger := d.logger.With(
		"event", ev.Kind.String(),
		"repo", ev.Owner+"/"+ev.Repo,
		"ref", ev.Ref(),
	)

	client, err := d.clients.InstallationClient(ev.Installation)
	if err != nil {
		return fmt.Errorf("building installation client: %w", err)
	}
	content := ghcontent.New(client)

	raw, err := content.FetchFile(ctx, ev.Owner, ev.Repo, ev.Ref(), d.workflowPath)
	if err != nil {
		if domain.IsNotFound(err) {
			logger.Info("repository carries no workflow file, ignoring event", "path", d.workflowPath)
			return nil
		}
		return fmt.Errorf("fetching workflow file: %w", err)
	}

	wf, err := workflowfile.Parse(raw)
	if err != nil {
		return fmt.Errorf("loading workflow: %w", err)
	}

	if !wf.Triggers.Matches(ev) {
		logger.Info("event does not match workflow triggers, ignoring")
		return nil
	}

	svc := NewService(d.prov, d.runner,
		WithSourceControl(sourcectrl.New(client)),
		WithDescriptorDiff(content, content, d.differ),
		WithLogger(d.logger),
	)

	res, err := svc.Run(ctx, wf, ev, "")
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	reporter := checkrun.New(client)
	if err := reporter.CreateCheckRun(ctx, ev, Conclusion(res), Title(res), RenderCheckRun(res)); err != nil {
		return err
	}
	if ev.Kind == domain.EventPullRequest {
		if err := reporter.CreatePRComment(ctx, ev, RenderPRComment(res)); err != nil {
			return err
		}
	}

	logger.Info("run reported", "conclusion", Conclusion(res))
	return nil
}
