package git

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"gra-pca/sentinel/pkg/config"
)

// Auth supplies credentials for clone and pull.
type Auth interface {
	// Method returns the transport credentials, or nil for anonymous access.
	Method() (transport.AuthMethod, error)

	// Type returns "none", "token" or "ssh".
	Type() string
}

type tokenAuth struct {
	token string
}

func (a tokenAuth) Method() (transport.AuthMethod, error) {
	if a.token == "" {
		return nil, errors.New("token cannot be empty")
	}
	// Hosts ignore the username for token auth.
	return &http.BasicAuth{Username: "git", Password: a.token}, nil
}

func (a tokenAuth) Type() string { return "token" }

type sshAuth struct {
	keyPath    string
	passphrase string
}

func (a sshAuth) Method() (transport.AuthMethod, error) {
	if a.keyPath == "" {
		return nil, errors.New("ssh key path cannot be empty")
	}
	info, err := os.Stat(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
	}

	auth, err := ssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}

func (a sshAuth) Type() string { return "ssh" }

type noAuth struct{}

func (noAuth) Method() (transport.AuthMethod, error) { return nil, nil }
func (noAuth) Type() string                          { return "none" }

// NewAuth builds the Auth selected by cfg.Type.
func NewAuth(cfg config.GitAuthConfig) (Auth, error) {
	switch cfg.Type {
	case "none", "":
		return noAuth{}, nil
	case "token":
		if cfg.Token == "" {
			return nil, errors.New("token auth requires non-empty token")
		}
		return tokenAuth{token: cfg.Token}, nil
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, errors.New("ssh auth requires ssh_key_path")
		}
		return sshAuth{keyPath: cfg.SSHKeyPath, passphrase: cfg.SSHKeyPassphrase}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}
