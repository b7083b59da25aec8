package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const runsDir = "runs"

// WriteRunSummary persists a structured per-run artifact under
// <stateDir>/runs/<command>-<timestamp>.json and returns its path.
func (s *Store) WriteRunSummary(command string, summary any) (string, error) {
	dir := filepath.Join(s.dir, runsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &PersistenceError{Op: "write run summary", Err: err}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", &PersistenceError{Op: "write run summary", Err: err}
	}

	path := filepath.Join(dir, command+"-"+time.Now().Format("20060102-150405")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &PersistenceError{Op: "write run summary", Err: err}
	}

	return path, nil
}
