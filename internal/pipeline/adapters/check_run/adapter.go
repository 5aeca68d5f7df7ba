// Package checkrun publishes pipeline results to GitHub as check runs and
// pull request comments.
package checkrun

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"

	"github.com/nathantilsley/compat-sentry/internal/pipeline/domain"
)

// CheckName is the name the check run appears under on the commit.
const CheckName = "compat-sentry"

// Adapter implements ports.ReportPort using the GitHub Checks and Issues
// APIs.
type Adapter struct {
	client *github.Client
}

// New creates a new reporting adapter.
func New(client *github.Client) *Adapter {
	return &Adapter{client: client}
}

// CreateCheckRun publishes a completed check run on the event's head SHA.
func (a *Adapter) CreateCheckRun(ctx context.Context, ev domain.Event, conclusion, title, body string) error {
	status := "completed"
	opts := github.CreateCheckRunOptions{
		Name:       CheckName,
		HeadSHA:    ev.HeadSHA,
		Status:     &status,
		Conclusion: &conclusion,
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &title,
			Text:    &body,
		},
	}

	if _, _, err := a.client.Checks.CreateCheckRun(ctx, ev.Owner, ev.Repo, opts); err != nil {
		return fmt.Errorf("creating check run: %w", err)
	}
	return nil
}

// CreatePRComment posts a summary comment on the pull request.
func (a *Adapter) CreatePRComment(ctx context.Context, ev domain.Event, body string) error {
	comment := &github.IssueComment{Body: &body}
	if _, _, err := a.client.Issues.CreateComment(ctx, ev.Owner, ev.Repo, ev.PRNumber, comment); err != nil {
		return fmt.Errorf("creating PR comment: %w", err)
	}
	return nil
}
