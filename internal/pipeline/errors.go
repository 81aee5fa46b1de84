package pipeline

import "fmt"

// RenderError reports a failed encode. Diagnostic holds the tail of the
// encoder's own output.
type RenderError struct {
	Output     string
	Diagnostic string
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render of %s failed: %v", e.Output, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
