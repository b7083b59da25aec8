// Package preflight runs the read-only validation pass that precedes any
// mutating provisioning step.
//
// Checks are independent: a failing check never short-circuits the rest, so
// the operator sees every problem at once. Nodes are probed concurrently;
// checks within a node run in a fixed order but all of them are recorded.
package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/k3smac/k3smac/internal/config"
	"github.com/k3smac/k3smac/internal/sshexec"
	"github.com/k3smac/k3smac/internal/topology"
)

// ConflictPorts are the well-known ports K3s needs free on every node.
var ConflictPorts = []int{6443, 10250, 10251, 10252, 2379, 2380}

const (
	checkReachable = "tcp-reachable"
	checkSSH       = "ssh-reachable"
	checkPlatform  = "platform"
	checkDisk      = "disk-space"
	checkMemory    = "memory"
	checkCPU       = "cpu-cores"
	checkPorts     = "port-conflicts"

	checkStateDir = "state-dir-writable"
	checkSSHKey   = "ssh-key-readable"
)

// Validator runs the preflight battery against a node registry.
type Validator struct {
	registry   *topology.Registry
	exec       sshexec.Executor
	thresholds config.PreflightConfig
	sshTimeout time.Duration
	stateDir   string
	keyPath    string
}

// New builds a Validator. stateDir and keyPath feed the local checks.
func New(registry *topology.Registry, exec sshexec.Executor, cfg *config.Config) *Validator {
	return &Validator{
		registry:   registry,
		exec:       exec,
		thresholds: cfg.Preflight,
		sshTimeout: cfg.SSH.ConnectTimeout,
		stateDir:   cfg.StateDir,
		keyPath:    cfg.SSH.KeyPath,
	}
}

// Run executes every check and returns the aggregate report. Individual
// check failures are recorded, never raised.
func (v *Validator) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	var mu sync.Mutex

	add := func(checks ...Check) {
		mu.Lock()
		report.Checks = append(report.Checks, checks...)
		mu.Unlock()
	}

	add(v.localChecks()...)

	g, ctx := errgroup.WithContext(ctx)
	for _, node := range v.registry.All() {
		g.Go(func() error {
			add(v.nodeChecks(ctx, node)...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.sort()
	return report, nil
}

// localChecks validates the operator machine.
func (v *Validator) localChecks() []Check {
	var checks []Check

	stateCheck := Check{Name: checkStateDir, Node: "local"}
	if err := os.MkdirAll(v.stateDir, 0o755); err != nil {
		stateCheck.Detail = err.Error()
	} else if probe, err := os.CreateTemp(v.stateDir, ".preflight-*"); err != nil {
		stateCheck.Detail = err.Error()
	} else {
		_ = probe.Close()
		_ = os.Remove(probe.Name())
		stateCheck.Passed = true
		stateCheck.Detail = v.stateDir
	}
	checks = append(checks, stateCheck)

	keyCheck := Check{Name: checkSSHKey, Node: "local"}
	if _, err := os.ReadFile(v.keyPath); err != nil {
		keyCheck.Detail = err.Error()
	} else {
		keyCheck.Passed = true
		keyCheck.Detail = v.keyPath
	}
	checks = append(checks, keyCheck)

	return checks
}

// nodeChecks probes one node. When SSH is unavailable the resource checks
// are recorded as failed rather than omitted, keeping the report complete.
func (v *Validator) nodeChecks(ctx context.Context, node topology.Node) []Check {
	var checks []Check

	identity := v.registry.Resolve(node.Address)
	port := identity.Port
	if port == 0 {
		port = 22
	}

	reach := Check{Name: checkReachable, Node: node.Address}
	addr := net.JoinHostPort(node.Address, strconv.Itoa(port))
	if conn, err := net.DialTimeout("tcp", addr, v.sshTimeout); err != nil {
		reach.Detail = err.Error()
	} else {
		_ = conn.Close()
		reach.Passed = true
		reach.Detail = addr
	}
	checks = append(checks, reach)

	sshCheck := Check{Name: checkSSH, Node: node.Address}
	if _, err := v.exec.Run(ctx, node, "true"); err != nil {
		sshCheck.Detail = err.Error()
		checks = append(checks, sshCheck)
		for _, name := range remoteCheckNames() {
			checks = append(checks, Check{
				Name:   name,
				Node:   node.Address,
				Detail: "not checked: ssh unreachable",
			})
		}
		return checks
	}
	sshCheck.Passed = true
	sshCheck.Detail = fmt.Sprintf("%s@%s", identity.User, node.Address)
	checks = append(checks, sshCheck)

	checks = append(checks,
		v.platformCheck(ctx, node),
		v.diskCheck(ctx, node),
		v.memoryCheck(ctx, node),
		v.cpuCheck(ctx, node),
		v.portConflictCheck(ctx, node),
	)

	return checks
}

func remoteCheckNames() []string {
	return []string{checkPlatform, checkDisk, checkMemory, checkCPU, checkPorts}
}

func (v *Validator) platformCheck(ctx context.Context, node topology.Node) Check {
	check := Check{Name: checkPlatform, Node: node.Address}

	result, err := v.exec.Run(ctx, node, "uname -s && uname -m")
	if err != nil {
		check.Detail = err.Error()
		return check
	}

	fields := strings.Fields(result.Stdout)
	if len(fields) < 2 {
		check.Detail = fmt.Sprintf("unexpected uname output: %q", result.Stdout)
		return check
	}

	gotOS, gotArch := strings.ToLower(fields[0]), normalizeArch(fields[1])
	wantOS, wantArch := strings.ToLower(v.thresholds.TargetOS), normalizeArch(v.thresholds.TargetArch)

	if gotOS != wantOS || gotArch != wantArch {
		check.Detail = fmt.Sprintf("got %s/%s, want %s/%s", gotOS, gotArch, wantOS, wantArch)
		return check
	}

	check.Passed = true
	check.Detail = fmt.Sprintf("%s/%s", gotOS, gotArch)
	return check
}

func normalizeArch(arch string) string {
	switch strings.ToLower(arch) {
	case "aarch64":
		return "arm64"
	case "x86_64":
		return "amd64"
	default:
		return strings.ToLower(arch)
	}
}

func (v *Validator) diskCheck(ctx context.Context, node topology.Node) Check {
	check := Check{Name: checkDisk, Node: node.Address}

	result, err := v.exec.Run(ctx, node, "df -g / | tail -1 | awk '{print $4}'")
	if err != nil {
		check.Detail = err.Error()
		return check
	}

	availGB, err := strconv.Atoi(strings.TrimSpace(result.Stdout))
	if err != nil {
		check.Detail = fmt.Sprintf("unexpected df output: %q", result.Stdout)
		return check
	}

	check.Detail = fmt.Sprintf("%d GB free (minimum %d GB)", availGB, v.thresholds.MinDiskGB)
	check.Passed = availGB >= v.thresholds.MinDiskGB
	return check
}

func (v *Validator) memoryCheck(ctx context.Context, node topology.Node) Check {
	check := Check{Name: checkMemory, Node: node.Address}

	result, err := v.exec.Run(ctx, node, "sysctl -n hw.memsize")
	if err != nil {
		check.Detail = err.Error()
		return check
	}

	memBytes, err := strconv.ParseInt(strings.TrimSpace(result.Stdout), 10, 64)
	if err != nil {
		check.Detail = fmt.Sprintf("unexpected sysctl output: %q", result.Stdout)
		return check
	}

	memGB := int(memBytes / (1 << 30))
	check.Detail = fmt.Sprintf("%d GB memory (minimum %d GB)", memGB, v.thresholds.MinMemGB)
	check.Passed = memGB >= v.thresholds.MinMemGB
	return check
}

func (v *Validator) cpuCheck(ctx context.Context, node topology.Node) Check {
	check := Check{Name: checkCPU, Node: node.Address}

	result, err := v.exec.Run(ctx, node, "sysctl -n hw.ncpu")
	if err != nil {
		check.Detail = err.Error()
		return check
	}

	cores, err := strconv.Atoi(strings.TrimSpace(result.Stdout))
	if err != nil {
		check.Detail = fmt.Sprintf("unexpected sysctl output: %q", result.Stdout)
		return check
	}

	check.Detail = fmt.Sprintf("%d cores (minimum %d)", cores, v.thresholds.MinCPUCores)
	check.Passed = cores >= v.thresholds.MinCPUCores
	return check
}

// portConflictCheck scans the K3s well-known ports for existing listeners.
// A bound port means some other process would collide with the API server,
// kubelet, or embedded etcd.
func (v *Validator) portConflictCheck(ctx context.Context, node topology.Node) Check {
	check := Check{Name: checkPorts, Node: node.Address}

	var bound []string
	for _, port := range ConflictPorts {
		cmd := fmt.Sprintf("lsof -nP -iTCP:%d -sTCP:LISTEN", port)
		result, err := v.exec.Run(ctx, node, cmd, sshexec.Tolerant())
		if err != nil {
			check.Detail = err.Error()
			return check
		}
		// lsof exits 0 with output when a listener exists.
		if result.ExitCode == 0 && strings.TrimSpace(result.Stdout) != "" {
			bound = append(bound, strconv.Itoa(port))
		}
	}

	if len(bound) > 0 {
		check.Detail = fmt.Sprintf("ports already bound: %s", strings.Join(bound, ", "))
		return check
	}

	check.Passed = true
	check.Detail = "no conflicts"
	return check
}

// sort orders checks by node (local first) then name, for stable output.
func (r *Report) sort() {
	sort.SliceStable(r.Checks, func(i, j int) bool {
		a, b := r.Checks[i], r.Checks[j]
		if a.Node != b.Node {
			if a.Node == "local" {
				return true
			}
			if b.Node == "local" {
				return false
			}
			return a.Node < b.Node
		}
		return a.Name < b.Name
	})
}
