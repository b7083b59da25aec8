// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic: commands bind flags and delegate here.
// Collaborators are created through package-level factory variables so tests
// can substitute fakes without a live fleet.
package handlers

import (
	"os"

	"go.uber.org/zap"

	"github.com/k3smac/k3smac/internal/config"
	"github.com/k3smac/k3smac/internal/logging"
	"github.com/k3smac/k3smac/internal/provision"
	"github.com/k3smac/k3smac/internal/sshexec"
	"github.com/k3smac/k3smac/internal/state"
	"github.com/k3smac/k3smac/internal/topology"
	"github.com/k3smac/k3smac/internal/ui"
)

// Options carries the global flags shared by every command.
type Options struct {
	ConfigPath string
	StateDir   string
	Debug      bool
}

// Factory function variables - replaced in tests for dependency injection.
var (
	findConfigFile = config.FindConfigFile
	loadConfigFile = config.LoadFile

	newLogger = logging.New
	pruneLogs = logging.Prune

	openStore = state.Open

	newExecutor = func(resolver sshexec.Resolver, cfg *config.Config) sshexec.Executor {
		return sshexec.NewClient(resolver, cfg.SSH.ConnectTimeout)
	}

	newOrchestrator = provision.New

	newRenderer = func() *ui.Renderer {
		return ui.NewRenderer(os.Stdout)
	}
)

// runtime bundles the collaborators one command execution needs.
type runtime struct {
	cfg      *config.Config
	registry *topology.Registry
	store    *state.Store
	exec     sshexec.Executor
	orch     *provision.Orchestrator
	log      *zap.SugaredLogger
	render   *ui.Renderer

	lock    *state.Lock
	cleanup func()
}

// setup loads configuration and wires the shared collaborators. The returned
// runtime holds the state lock; callers must defer close.
func setup(opts Options) (*runtime, error) {
	path := opts.ConfigPath
	if path == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg, err := loadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if opts.StateDir != "" {
		cfg.StateDir = opts.StateDir
	}

	log, flush, err := newLogger(cfg.StateDir, opts.Debug)
	if err != nil {
		return nil, err
	}

	if pruned, err := pruneLogs(cfg.StateDir, cfg.LogRetention); err == nil && pruned > 0 {
		log.Debugw("pruned old run logs", "count", pruned)
	}

	store, err := openStore(cfg.StateDir)
	if err != nil {
		flush()
		return nil, err
	}

	lock, err := store.AcquireLock()
	if err != nil {
		flush()
		return nil, err
	}

	registry, err := topology.NewRegistry(cfg)
	if err != nil {
		lock.Release()
		flush()
		return nil, err
	}

	exec := newExecutor(registry, cfg)

	r := &runtime{
		cfg:      cfg,
		registry: registry,
		store:    store,
		exec:     exec,
		orch:     newOrchestrator(cfg, registry, exec, store, log),
		log:      log,
		render:   newRenderer(),
		lock:     lock,
		cleanup:  flush,
	}
	return r, nil
}

func (r *runtime) close() {
	r.lock.Release()
	r.cleanup()
}
