package pipeline

import (
	"context"
	"time"

	"github.com/keagan/reelforge/internal/ffmpeg"
	"github.com/keagan/reelforge/internal/montage"
	"github.com/keagan/reelforge/internal/niche"
	"github.com/keagan/reelforge/internal/plan"
)

// Engine is the media backend a pipeline drives
type Engine interface {
	Probe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
	DecodeCheck(ctx context.Context, input string, start, duration time.Duration) error
	Run(ctx context.Context, opts ffmpeg.RunOptions) error
}

// Request describes one reel to render
type Request struct {
	// Clips are local source files; plan segments index into them
	Clips []string
	// Plan is the edit plan; nil renders the fallback plan
	Plan      *plan.EditPlan
	Niche     niche.Niche
	Music     string
	Narration string
	Output    string
}

// Result reports what a render produced
type Result struct {
	RenderID string
	Output   string
	// Plan is the validated plan that was rendered
	Plan    *plan.EditPlan
	Skipped []*montage.SegmentDecodeError
	Caption string
	// Concatenated is false for single-segment reels
	Concatenated bool
	// Nominal is the pre-scaling plan duration
	Nominal        time.Duration
	VisualDuration time.Duration
	AudioDuration  time.Duration
	SilentAudio    bool
	Elapsed        time.Duration
}

// Options configures every render of a pipeline
type Options struct {
	// WorkDir is the root under which each render gets its own directory
	WorkDir     string
	KeepWorkDir bool
	FontPath    string
	Preset      string
	// VerifyDecode decodes each segment range before composing
	VerifyDecode bool
	SampleRate   int
	Channels     int
	// MusicDir holds per-niche fallback tracks used when a request has no music
	MusicDir string
}
