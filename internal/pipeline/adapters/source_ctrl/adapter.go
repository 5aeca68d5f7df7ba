// Package sourcectrl obtains repository working trees from GitHub.
package sourcectrl

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	gogithub "github.com/google/go-github/v68/github"
)

// Adapter implements ports.SourceControlPort by downloading a repository
// tarball at a ref and extracting it to a temp directory.
type Adapter struct {
	client *gogithub.Client
}

// New creates a new source control adapter.
func New(client *gogithub.Client) *Adapter {
	return &Adapter{client: client}
}

// FetchTree downloads the repository tarball at the given ref and returns
// the path to the extracted repository root. The caller must invoke
// cleanup() when the run is done.
func (a *Adapter) FetchTree(ctx context.Context, owner, repo, ref string) (string, func(), error) {
	archiveURL, _, err := a.client.Repositories.GetArchiveLink(
		ctx,
		owner,
		repo,
		gogithub.Tarball,
		&gogithub.RepositoryContentGetOptions{Ref: ref},
		10,
	)
	if err != nil {
		return "", nil, fmt.Errorf("getting archive link: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL.String(), http.NoBody)
	if err != nil {
		return "", nil, fmt.Errorf("creating archive request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("downloading archive: %w", err)
	}
	//nolint:errcheck // Deferred cleanup, error not actionable
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("unexpected status downloading archive: %d", resp.StatusCode)
	}

	tmpDir, err := os.MkdirTemp("", "compat-sentry-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}
	//nolint:errcheck // Cleanup function, error not actionable
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	if err := untar(resp.Body, tmpDir); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("extracting archive: %w", err)
	}

	root, err := archiveRoot(tmpDir)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return root, cleanup, nil
}

// archiveRoot resolves the single top-level directory GitHub tarballs wrap
// the tree in (owner-repo-sha/).
func archiveRoot(tmpDir string) (string, error) {
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("reading temp dir: %w", err)
	}
	if len(entries) == 0 {
		return "", errors.New("empty archive")
	}
	return filepath.Join(tmpDir, entries[0].Name()), nil
}

func untar(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	//nolint:errcheck // Deferred cleanup, error not actionable
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		target := filepath.Join(dest, header.Name) //nolint:gosec // G305: validated below
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path in archive: %s", filepath.Base(target))
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil { //nolint:gosec // G301
				return fmt.Errorf("creating directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, header, tr); err != nil {
				return err
			}
		}
	}
}

func writeEntry(target string, header *tar.Header, tr *tar.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil { //nolint:gosec // G301
		return fmt.Errorf("creating parent directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)) //nolint:gosec // G304
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}

	if _, err := io.Copy(f, tr); err != nil { //nolint:gosec // G110: trusted archive source
		//nolint:errcheck // Best effort cleanup on error path
		_ = f.Close()
		return fmt.Errorf("writing file: %w", err)
	}

	return f.Close()
}
