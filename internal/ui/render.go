package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/k3smac/k3smac/internal/k8s"
	"github.com/k3smac/k3smac/internal/preflight"
	"github.com/k3smac/k3smac/internal/provision"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func plain(str string) string { return str }

// Renderer writes human-oriented output. Styling is dropped when the
// destination is not a terminal, so piped output stays clean.
type Renderer struct {
	out     io.Writer
	title   styleFunc
	section styleFunc
	pass    styleFunc
	fail    styleFunc
	warn    styleFunc
	dim     styleFunc
}

// NewRenderer builds a renderer for out, styling only when out is a TTY.
func NewRenderer(out io.Writer) *Renderer {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return newRenderer(out, styled)
}

func newRenderer(out io.Writer, styled bool) *Renderer {
	r := &Renderer{
		out:     out,
		title:   plain,
		section: plain,
		pass:    plain,
		fail:    plain,
		warn:    plain,
		dim:     plain,
	}
	if styled {
		r.title = sf(titleStyle)
		r.section = sf(sectionStyle)
		r.pass = sf(passStyle)
		r.fail = sf(failStyle)
		r.warn = sf(warnStyle)
		r.dim = sf(dimStyle)
	}
	return r
}

// Preflight renders the check report grouped by node, local checks first.
func (r *Renderer) Preflight(report *preflight.Report) {
	fmt.Fprintln(r.out, r.title("Preflight checks"))

	byNode := map[string][]preflight.Check{}
	var order []string
	for _, c := range report.Checks {
		if _, seen := byNode[c.Node]; !seen {
			order = append(order, c.Node)
		}
		byNode[c.Node] = append(byNode[c.Node], c)
	}

	for _, node := range order {
		label := node
		if label == "" {
			label = "local"
		}
		fmt.Fprintln(r.out, r.section("  "+label))
		for _, c := range byNode[node] {
			mark := r.pass(checkMark)
			if !c.Passed {
				mark = r.fail(crossMark)
			}
			line := fmt.Sprintf("    %s %s", mark, c.Name)
			if c.Detail != "" {
				line += " " + r.dim(c.Detail)
			}
			fmt.Fprintln(r.out, line)
		}
	}

	if report.Passed() {
		fmt.Fprintln(r.out, r.pass("All checks passed"))
	} else {
		fmt.Fprintln(r.out, r.fail(fmt.Sprintf("%d check(s) failed", len(report.Failures()))))
	}
}

// Summary renders the per-node outcomes of one provisioning run.
func (r *Renderer) Summary(summary *provision.Summary) {
	fmt.Fprintln(r.out, r.title(fmt.Sprintf("Run summary: %s", summary.Operation)))

	for _, outcome := range summary.Outcomes {
		mark, style := r.statusMark(outcome.Status)
		label := outcome.Address
		if outcome.Label != "" {
			label += " (" + outcome.Label + ")"
		}
		line := fmt.Sprintf("  %s %-20s %s", style(mark), label, style(string(outcome.Status)))
		if outcome.Reason != "" {
			line += " " + r.dim(outcome.Reason)
		}
		fmt.Fprintln(r.out, line)
	}

	fmt.Fprintln(r.out, r.dim(fmt.Sprintf("%d succeeded, %d failed", summary.Succeeded(), summary.Failed())))
}

func (r *Renderer) statusMark(status provision.Status) (string, styleFunc) {
	switch status {
	case provision.StatusReady, provision.StatusJoined:
		return checkMark, r.pass
	case provision.StatusAlreadyDone:
		return checkMark, r.dim
	case provision.StatusSkipped:
		return skipMark, r.dim
	case provision.StatusOrphaned:
		return warnMark, r.warn
	default:
		return crossMark, r.fail
	}
}

// Status renders live cluster membership next to the recorded milestones.
func (r *Renderer) Status(nodes []k8s.NodeStatus, milestones map[string]string) {
	fmt.Fprintln(r.out, r.title("Cluster status"))

	fmt.Fprintln(r.out, r.section("  Nodes"))
	if len(nodes) == 0 {
		fmt.Fprintln(r.out, r.dim("    no nodes reachable"))
	}
	for _, n := range nodes {
		mark := r.pass(checkMark)
		state := "Ready"
		if !n.Ready {
			mark = r.fail(crossMark)
			state = "NotReady"
		}
		fmt.Fprintf(r.out, "    %s %-20s %-16s %s\n", mark, n.Name, n.InternalIP, state)
	}

	if len(milestones) > 0 {
		fmt.Fprintln(r.out, r.section("  Milestones"))
		keys := make([]string, 0, len(milestones))
		for k := range milestones {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(r.out, "    %s %s\n", r.dim(k+":"), milestones[k])
		}
	}
}

// Error renders a terminal failure line.
func (r *Renderer) Error(err error) {
	fmt.Fprintln(r.out, r.fail(crossMark+" "+strings.TrimSpace(err.Error())))
}
