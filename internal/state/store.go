// Package state persists provisioning progress.
//
// The milestone log is an append-only, tab-separated text file so operators
// can audit it (and hand-edit it during recovery). The effective value of a
// key is the value of its most recent line. Appends are serialized by a
// mutex and fsynced before Record returns: once Record reports success the
// milestone survives a process restart.
package state

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const milestoneFile = "milestones.log"

// PersistenceError reports that progress could not be durably recorded.
// It is fatal: the orchestrator cannot safely continue without it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("state persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store is the append-only milestone store rooted at a state directory.
type Store struct {
	dir string

	mu     sync.Mutex
	latest map[string]string
}

// Open creates the state directory if needed and replays the milestone log.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &PersistenceError{Op: "open", Err: err}
	}

	s := &Store{dir: dir, latest: make(map[string]string)}
	if err := s.replay(); err != nil {
		return nil, err
	}

	return s, nil
}

// Dir returns the state directory root.
func (s *Store) Dir() string {
	return s.dir
}

// Record appends a milestone. The append is flushed to disk before Record
// returns; failure to persist is a PersistenceError.
func (s *Store) Record(key, value string) error {
	if key == "" {
		return &PersistenceError{Op: "record", Err: fmt.Errorf("milestone key cannot be empty")}
	}
	if strings.ContainsAny(key, "\t\n") || strings.ContainsAny(value, "\t\n") {
		return &PersistenceError{Op: "record", Err: fmt.Errorf("milestone key/value cannot contain tabs or newlines")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line := fmt.Sprintf("%s\t%s\t%s\n", time.Now().UTC().Format(time.RFC3339), key, value)

	f, err := os.OpenFile(s.logPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &PersistenceError{Op: "record", Err: err}
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(line); err != nil {
		return &PersistenceError{Op: "record", Err: err}
	}
	if err := f.Sync(); err != nil {
		return &PersistenceError{Op: "record", Err: err}
	}

	s.latest[key] = value
	return nil
}

// Current returns the most recently recorded value for key.
func (s *Store) Current(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.latest[key]
	return v, ok
}

// IsSatisfied reports whether the current value of key equals expected.
// It is the idempotency gate consulted before every mutating step.
func (s *Store) IsSatisfied(key, expected string) bool {
	v, ok := s.Current(key)
	return ok && v == expected
}

// Snapshot returns the compacted view: the latest value per key.
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.latest))
	for k, v := range s.latest {
		out[k] = v
	}
	return out
}

func (s *Store) logPath() string {
	return filepath.Join(s.dir, milestoneFile)
}

// replay rebuilds the compacted view from the log. Lines that do not parse
// are skipped: the log may have been hand-edited during recovery.
func (s *Store) replay() error {
	f, err := os.Open(s.logPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &PersistenceError{Op: "replay", Err: err}
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "\t", 3)
		if len(parts) != 3 || parts[1] == "" {
			continue
		}
		s.latest[parts[1]] = parts[2]
	}

	if err := scanner.Err(); err != nil {
		return &PersistenceError{Op: "replay", Err: err}
	}
	return nil
}
