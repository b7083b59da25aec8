package provision

import "github.com/k3smac/k3smac/internal/topology"

// Status is the terminal classification of one node for one operation.
type Status string

const (
	// StatusReady means the node completed the operation and verified healthy.
	StatusReady Status = "Ready"
	// StatusJoined means the worker joined the cluster in this run.
	StatusJoined Status = "Joined"
	// StatusAlreadyDone means the milestone was already satisfied; no
	// mutating command was issued.
	StatusAlreadyDone Status = "AlreadyDone"
	// StatusSkipped means the node was deliberately not processed.
	StatusSkipped Status = "Skipped"
	// StatusFailed means the operation failed for this node.
	StatusFailed Status = "Failed"
	// StatusOrphaned means the node ran an unregistered agent that was
	// cleaned up but could not be rejoined.
	StatusOrphaned Status = "Orphaned"
)

// Outcome is the per-node result of a provisioning attempt. Outcomes are
// built fresh each run; only milestones persist.
type Outcome struct {
	Node    topology.Node `json:"-"`
	Address string        `json:"address"`
	Label   string        `json:"label,omitempty"`
	Status  Status        `json:"status"`
	Reason  string        `json:"reason,omitempty"`
}

func newOutcome(node topology.Node, status Status, reason string) Outcome {
	return Outcome{
		Node:    node,
		Address: node.Address,
		Label:   node.Label,
		Status:  status,
		Reason:  reason,
	}
}

// Summary aggregates the outcomes of one orchestration run.
type Summary struct {
	Operation string    `json:"operation"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Succeeded counts outcomes that reached a success state.
func (s *Summary) Succeeded() int {
	n := 0
	for _, o := range s.Outcomes {
		switch o.Status {
		case StatusReady, StatusJoined, StatusAlreadyDone:
			n++
		}
	}
	return n
}

// Failed counts outcomes in a failure state.
func (s *Summary) Failed() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == StatusFailed || o.Status == StatusOrphaned {
			n++
		}
	}
	return n
}

// AllFailed reports whether no node in scope succeeded.
func (s *Summary) AllFailed() bool {
	return len(s.Outcomes) > 0 && s.Succeeded() == 0
}

// Partial reports whether some but not all nodes succeeded.
func (s *Summary) Partial() bool {
	return s.Failed() > 0 && s.Succeeded() > 0
}
