// Package logging configures the run logger.
//
// Every invocation logs to the console for the operator and to a timestamped
// JSON file under the state directory for later audit. Old run logs are
// pruned past the retention window.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logDirName    = "logs"
	logFilePrefix = "run-"
	timeLayout    = "20060102-150405"
)

// New builds a logger that tees to the console and to a timestamped file
// under <stateDir>/logs. The returned close function flushes the file sink.
// Debug mode lowers the console level to debug.
func New(stateDir string, debug bool) (*zap.SugaredLogger, func(), error) {
	logDir := filepath.Join(stateDir, logDirName)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, logFilePrefix+time.Now().Format(timeLayout)+".log")
	// #nosec G304
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	consoleLevel := zapcore.InfoLevel
	if debug {
		consoleLevel = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), consoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), zapcore.DebugLevel),
	)

	logger := zap.New(core)
	closeFn := func() {
		_ = logger.Sync()
		_ = file.Close()
	}

	return logger.Sugar(), closeFn, nil
}

// Prune removes run logs older than the retention window.
// Returns the number of files removed.
func Prune(stateDir string, retention time.Duration) (int, error) {
	logDir := filepath.Join(stateDir, logDirName)
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), logFilePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(logDir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}
