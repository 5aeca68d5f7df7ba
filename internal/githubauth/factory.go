// Package githubauth builds GitHub clients authenticated as a GitHub App
// installation.
package githubauth

import (
	"fmt"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v68/github"
)

// Factory creates installation-scoped GitHub clients for one GitHub App.
type Factory struct {
	appID int64
	key   []byte
}

// NewFactory loads the App's private key from privateKeyPath. The key is read
// once; per-installation transports are built on demand.
func NewFactory(appID int64, privateKeyPath string) (*Factory, error) {
	key, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading App private key: %w", err)
	}
	return &Factory{appID: appID, key: key}, nil
}

// InstallationClient returns a GitHub client authenticated as the given
// installation. Tokens are minted and refreshed by the transport.
func (f *Factory) InstallationClient(installationID int64) (*github.Client, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, f.appID, installationID, f.key)
	if err != nil {
		return nil, fmt.Errorf("creating installation transport: %w", err)
	}
	return github.NewClient(&http.Client{Transport: itr}), nil
}
