package state

import (
	"fmt"
	"os"
	"path/filepath"
)

const lockFile = "k3smac.lock"

// Lock guards against two concurrent invocations on the same machine.
// It does not protect against a second operator machine driving the same
// cluster; that remains a documented single-writer assumption.
type Lock struct {
	path string
}

// AcquireLock takes the local run lock. A held lock surfaces the owning pid.
func (s *Store) AcquireLock() (*Lock, error) {
	path := filepath.Join(s.dir, lockFile)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			owner, _ := os.ReadFile(path) // #nosec G304
			return nil, fmt.Errorf("another invocation is already running (lock held by pid %s); remove %s if it is stale",
				string(owner), path)
		}
		return nil, &PersistenceError{Op: "acquire lock", Err: err}
	}
	defer func() { _ = f.Close() }()

	fmt.Fprintf(f, "%d", os.Getpid())
	return &Lock{path: path}, nil
}

// Release drops the run lock.
func (l *Lock) Release() {
	_ = os.Remove(l.path)
}
