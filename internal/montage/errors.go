package montage

import "fmt"

// SegmentDecodeError reports a segment that could not be read from its
// source clip. It is never fatal to a render; the segment is skipped.
type SegmentDecodeError struct {
	Index     int
	ClipIndex int
	Source    string
	Reason    string
	Err       error
}

func (e *SegmentDecodeError) Error() string {
	msg := fmt.Sprintf("segment %d (clip %d, %s): %s", e.Index, e.ClipIndex, e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SegmentDecodeError) Unwrap() error {
	return e.Err
}

// CompositionError reports a visual graph that could not be assembled.
type CompositionError struct {
	Stage string
	Err   error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition failed at %s: %v", e.Stage, e.Err)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// AudioMixFatalError is raised only when no background track could be
// obtained at all, not even synthesized silence.
type AudioMixFatalError struct {
	Err error
}

func (e *AudioMixFatalError) Error() string {
	return fmt.Sprintf("audio mix failed: %v", e.Err)
}

func (e *AudioMixFatalError) Unwrap() error {
	return e.Err
}
