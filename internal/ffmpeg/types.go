package ffmpeg

import (
	"fmt"
	"time"
)

// MediaInfo contains metadata about a probed media file
type MediaInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	HasVideo   bool
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called once per completed -progress block.
type ProgressFunc func(*Progress)

// Output profile shared by every render.
const (
	DefaultVideoCodec   = "libx264"
	DefaultAudioCodec   = "aac"
	DefaultVideoBitrate = "5M"
	DefaultPreset       = "medium"
	DefaultContainer    = "mp4"
)

// ExitError is returned by Run when ffmpeg exits unsuccessfully.
type ExitError struct {
	ExitCode int
	// Stderr holds the last lines ffmpeg wrote, progress keys excluded.
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("ffmpeg exited with code %d: %v", e.ExitCode, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
