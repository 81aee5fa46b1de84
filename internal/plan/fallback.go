package plan

import "fmt"

const (
	fallbackMaxClips     = 5
	fallbackTotalSeconds = 30
)

// Fallback builds the simple sequence used when no analysed plan is
// available: the first clips in upload order, each trimmed from the start,
// sharing a thirty second budget.
func Fallback(clipCount int, nicheName string) *EditPlan {
	p := &EditPlan{
		Script: fmt.Sprintf("Transform your %s content with these amazing results!", nicheName),
	}
	if clipCount <= 0 {
		return p
	}

	per := fallbackTotalSeconds / clipCount
	if per < 1 {
		per = 1
	}
	n := min(fallbackMaxClips, clipCount)
	for i := 0; i < n; i++ {
		p.Segments = append(p.Segments, Segment{ClipIndex: i, Start: 0, Duration: float64(per)})
	}
	return p
}
