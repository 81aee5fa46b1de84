package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/keagan/reelforge/pkg/util"
)

// DecodeCheck decodes the video of input between start and start+duration
// into the null muxer. It fails when the range cannot be demuxed or decoded.
// A range extending past the end of the stream is not an error.
func (e *Executor) DecodeCheck(ctx context.Context, input string, start, duration time.Duration) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if duration <= 0 {
		return fmt.Errorf("invalid decode duration: %v", duration)
	}

	e.logger.Debug().
		Str("input", input).
		Dur("start", start).
		Dur("duration", duration).
		Msg("verifying decode")

	args := []string{
		"-xerror",
		"-ss", util.FormatDuration(start),
		"-t", util.FormatDuration(duration),
		"-i", input,
		"-map", "0:v:0",
		"-f", "null",
		"-",
	}

	runOpts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("decode check")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("decode check failed: %w", err)
	}
	return nil
}
