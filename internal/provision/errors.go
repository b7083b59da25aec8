package provision

import (
	"errors"
	"fmt"
)

// ConfigurationError is fatal and never retried: bad or missing settings.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// PartialFailureError reports a fan-out where some units failed.
type PartialFailureError struct {
	Summary *Summary
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%d of %d nodes failed during %s",
		e.Summary.Failed(), len(e.Summary.Outcomes), e.Summary.Operation)
}

// AllFailedError reports a fan-out where every unit failed; fatal for the run.
type AllFailedError struct {
	Summary *Summary
}

func (e *AllFailedError) Error() string {
	return fmt.Sprintf("all %d nodes failed during %s", len(e.Summary.Outcomes), e.Summary.Operation)
}

// IsPartialFailure checks for a partial fan-out failure.
func IsPartialFailure(err error) bool {
	var partial *PartialFailureError
	return errors.As(err, &partial)
}
