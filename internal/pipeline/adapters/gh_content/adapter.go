// Package ghcontent reads repository file contents and pull request file
// listings through the GitHub API.
package ghcontent

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"

	"github.com/nathantilsley/compat-sentry/internal/pipeline/domain"
)

// Adapter implements ports.FileContentPort and ports.FileChangesPort.
type Adapter struct {
	client *github.Client
}

// New creates a new content adapter.
func New(client *github.Client) *Adapter {
	return &Adapter{client: client}
}

// FetchFile returns the contents of a single file at the given ref. A
// missing file is reported as a domain.NotFoundError so callers can treat
// newly added descriptors gracefully.
func (a *Adapter) FetchFile(ctx context.Context, owner, repo, ref, path string) ([]byte, error) {
	file, _, resp, err := a.client.Repositories.GetContents(ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, domain.NewNotFoundError(path, ref)
		}
		return nil, fmt.Errorf("fetching %s at %s: %w", path, ref, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s at %s is a directory, not a file", path, ref)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s at %s: %w", path, ref, err)
	}
	return []byte(content), nil
}

// GetChangedFiles returns a list of files modified in the PR.
func (a *Adapter) GetChangedFiles(ctx context.Context, owner, repo string, prNumber int) ([]string, error) {
	var changed []string
	opts := &github.ListOptions{PerPage: 100}

	for {
		files, resp, err := a.client.PullRequests.ListFiles(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing PR files: %w", err)
		}

		for _, file := range files {
			changed = append(changed, file.GetFilename())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return changed, nil
}
