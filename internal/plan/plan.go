// Package plan models the edit plan produced by the planning collaborator:
// an ordered list of source-clip segments plus a narration script.
package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/keagan/reelforge/pkg/util"
)

// Segment is a time-bounded excerpt of one source clip.
type Segment struct {
	ClipIndex int     `json:"clip_index" yaml:"clip_index"`
	Start     float64 `json:"ss" yaml:"ss"`
	Duration  float64 `json:"t" yaml:"t"`
}

// StartOffset returns the trim start as a time.Duration
func (s Segment) StartOffset() time.Duration {
	return util.Seconds(s.Start)
}

// Length returns the trim length as a time.Duration
func (s Segment) Length() time.Duration {
	return util.Seconds(s.Duration)
}

// UnmarshalJSON accepts any JSON number for clip_index. A non-integral
// index can never address a clip and is decoded as -1.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw struct {
		ClipIndex *float64 `json:"clip_index"`
		Start     float64  `json:"ss"`
		Duration  float64  `json:"t"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ClipIndex = -1
	if raw.ClipIndex != nil && *raw.ClipIndex == math.Trunc(*raw.ClipIndex) &&
		*raw.ClipIndex >= math.MinInt32 && *raw.ClipIndex <= math.MaxInt32 {
		s.ClipIndex = int(*raw.ClipIndex)
	}
	s.Start = raw.Start
	s.Duration = raw.Duration
	return nil
}

// EditPlan is the ordered segment list plus narration script. Segment order
// is the final clip order.
type EditPlan struct {
	Segments []Segment `json:"segments" yaml:"segments"`
	Script   string    `json:"script" yaml:"script"`
}

// Parse decodes a plan from the planning service response. Markdown code
// fences around the JSON body are tolerated.
func Parse(data []byte) (*EditPlan, error) {
	data = stripFences(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plan document")
	}

	var p EditPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse edit plan: %w", err)
	}
	return &p, nil
}

// ParseFile reads and decodes a plan file
func ParseFile(path string) (*EditPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return Parse(data)
}

func stripFences(data []byte) []byte {
	data = bytes.TrimSpace(data)
	data = bytes.TrimPrefix(data, []byte("```json"))
	data = bytes.TrimPrefix(data, []byte("```"))
	data = bytes.TrimSuffix(data, []byte("```"))
	return bytes.TrimSpace(data)
}

// Validate filters the plan against the number of available clips.
// Segments whose clip index falls outside [0, clipCount) or whose duration
// is not positive are dropped silently; a negative start is clamped to 0.
// Trim ranges are not checked against clip lengths. Validate fails with
// *PlanEmptyError when nothing survives.
func (p *EditPlan) Validate(clipCount int) (*EditPlan, error) {
	out := &EditPlan{
		Segments: make([]Segment, 0, len(p.Segments)),
		Script:   p.Script,
	}

	for _, seg := range p.Segments {
		if seg.ClipIndex < 0 || seg.ClipIndex >= clipCount {
			continue
		}
		if !(seg.Duration > 0) || math.IsInf(seg.Duration, 0) {
			continue
		}
		if !(seg.Start > 0) {
			seg.Start = 0
		}
		out.Segments = append(out.Segments, seg)
	}

	if len(out.Segments) == 0 {
		return nil, &PlanEmptyError{
			Requested: len(p.Segments),
			ClipCount: clipCount,
		}
	}
	return out, nil
}

// NominalDuration is the sum of segment durations before speed scaling.
func (p *EditPlan) NominalDuration() float64 {
	var total float64
	for _, seg := range p.Segments {
		total += seg.Duration
	}
	return total
}

// HasScript reports whether there is narration text.
func (p *EditPlan) HasScript() bool {
	return strings.TrimSpace(p.Script) != ""
}
