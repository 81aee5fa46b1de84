package plan

import "fmt"

// PlanEmptyError reports that no usable segment remains for a render.
// The caller may recover by planning again.
type PlanEmptyError struct {
	Requested int
	ClipCount int
	// Reason is set when segments survived validation but were unusable later.
	Reason string
	Err    error
}

func (e *PlanEmptyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("edit plan has no usable segments: %s", e.Reason)
	}
	return fmt.Sprintf("edit plan has no usable segments (%d requested, %d clips available)",
		e.Requested, e.ClipCount)
}

func (e *PlanEmptyError) Unwrap() error {
	return e.Err
}
