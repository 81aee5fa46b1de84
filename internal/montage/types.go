package montage

import (
	"time"

	ffgo "github.com/u2takey/ffmpeg-go"

	"github.com/keagan/reelforge/internal/niche"
	"github.com/keagan/reelforge/internal/plan"
)

// Frame geometry of every reel
const (
	OutputWidth  = 1080
	OutputHeight = 1920
)

// SpeedFactor multiplies presentation timestamps of every segment,
// so a segment plays back in 0.75 of its nominal time.
const SpeedFactor = 0.75

// BaseSaturation is applied per segment before the niche grade.
const BaseSaturation = 1.3

// Zoom runs one zoompan step per input frame up to 10% magnification.
const ZoomExpr = "min(zoom+0.001,1.1)"

// Caption layout
const (
	CaptionFontSize = 100
	CaptionColor    = "white"
	CaptionX        = "(w-text_w)/2"
	CaptionY        = "400"
	CaptionBoxColor = "black@0.5"
)

// Track gains
const (
	MusicGain     = 0.3
	NarrationGain = 0.8
)

// NormalizedClipStream is one trimmed segment cropped to 9:16, scaled to
// the output frame and sped up by SpeedFactor.
type NormalizedClipStream struct {
	Segment plan.Segment
	// Position of the segment in the validated plan
	Index  int
	Source string
	Stream *ffgo.Stream
	// Duration after speed scaling
	Duration time.Duration
}

// CompositeVisual is the single graded, zoomed and captioned video stream.
type CompositeVisual struct {
	Stream   *ffgo.Stream
	Duration time.Duration
	Caption  string
	Niche    niche.Niche
	// Concatenated is false when a single segment passed straight through
	Concatenated bool
	Segments     int
}

// Track is one input of the audio mix
type Track struct {
	Path string
	Gain float64
	// Duration as probed, zero when unknown
	Duration time.Duration
}

// AudioMix is the mixed soundtrack. Background is always present; when no
// music was supplied it is a synthesized silent track of the nominal
// duration.
type AudioMix struct {
	Stream     *ffgo.Stream
	Background Track
	Narration  *Track
	// Silent reports that Background was synthesized
	Silent bool
	// Nominal is the pre-scaling plan duration the mix was sized against
	Nominal time.Duration
}

// Duration is the length of the mix. amix ends with its first input, which
// is always the background track.
func (m *AudioMix) Duration() time.Duration {
	return m.Background.Duration
}

// ScaledDuration converts a nominal plan duration to on-screen time.
func ScaledDuration(nominal time.Duration) time.Duration {
	return time.Duration(float64(nominal) * SpeedFactor)
}
