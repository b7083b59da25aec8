package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tokenFile = "node-token"

// WriteToken persists the cluster join token with restrictive permissions.
// The token is a shared secret; it is never logged.
func (s *Store) WriteToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return &PersistenceError{Op: "write token", Err: fmt.Errorf("token is empty")}
	}

	path := filepath.Join(s.dir, tokenFile)
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return &PersistenceError{Op: "write token", Err: err}
	}
	return nil
}

// ReadToken loads the persisted join token.
func (s *Store) ReadToken() (string, error) {
	path := filepath.Join(s.dir, tokenFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read join token (has the control plane been initialized?): %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("join token file %s is empty", path)
	}
	return token, nil
}

// KubeconfigPath is where the cluster kubeconfig is persisted after
// control-plane initialization.
func (s *Store) KubeconfigPath() string {
	return filepath.Join(s.dir, "kubeconfig")
}

// WriteKubeconfig persists the cluster access config with 0600 permissions.
func (s *Store) WriteKubeconfig(data []byte) error {
	if len(data) == 0 {
		return &PersistenceError{Op: "write kubeconfig", Err: fmt.Errorf("kubeconfig is empty")}
	}
	if err := os.WriteFile(s.KubeconfigPath(), data, 0o600); err != nil {
		return &PersistenceError{Op: "write kubeconfig", Err: err}
	}
	return nil
}
