package preflight

// Check is one named, read-only validation with human-readable detail.
type Check struct {
	Name   string `json:"name"`
	Node   string `json:"node"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report aggregates all checks from one preflight run.
type Report struct {
	Checks []Check `json:"checks"`
}

// Passed is the logical AND of every individual check.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return len(r.Checks) > 0
}

// Failures returns the failed checks.
func (r *Report) Failures() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}
