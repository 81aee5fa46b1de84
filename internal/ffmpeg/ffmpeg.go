package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keagan/reelforge/internal/logging"
)

// maxStderrBytes bounds the diagnostic tail kept from every invocation.
const maxStderrBytes = 8 * 1024

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// Options locates the binaries and tunes every invocation.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Threads     int
}

// New creates a new ffmpeg executor, resolving both binaries through PATH
// when they are not absolute.
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	ffmpegName := opts.FFmpegPath
	if ffmpegName == "" {
		ffmpegName = "ffmpeg"
	}
	ffmpegPath, err := exec.LookPath(ffmpegName)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found (%s): %w", ffmpegName, err)
	}

	ffprobeName := opts.FFprobePath
	if ffprobeName == "" {
		ffprobeName = "ffprobe"
	}
	ffprobePath, err := exec.LookPath(ffprobeName)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found (%s): %w", ffprobeName, err)
	}

	return &Executor{
		logger:      logging.WithComponent(logger, "ffmpeg"),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
	}, nil
}

// Path returns the resolved ffmpeg binary.
func (e *Executor) Path() string {
	return e.ffmpegPath
}

// Run executes ffmpeg with the given arguments and streams progress.
// A non-zero exit is reported as *ExitError carrying the stderr tail.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	// threads must precede the first input
	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.threads))
	}
	baseArgs = append(baseArgs, "-progress", "pipe:2")
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var tailBuf bytes.Buffer
	tail := &limitedWriter{w: &tailBuf, limit: maxStderrBytes}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		e.streamOutput(stderr, tail, opts.ProgressHandler, opts.LogHandler)
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		e.logger.Debug().
			Int("exit_code", exitCode).
			Str("stderr_tail", truncate(tailBuf.String(), 512)).
			Msg("ffmpeg execution failed")
		return &ExitError{
			ExitCode: exitCode,
			Stderr:   tailBuf.String(),
			Err:      err,
		}
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamOutput parses ffmpeg output, keeps the non-progress lines in tail
// and calls handlers
func (e *Executor) streamOutput(r io.Reader, tail io.Writer, progressHandler func(*Progress), logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		if logHandler != nil {
			logHandler(line)
		}

		switch {
		case strings.HasPrefix(line, "frame="):
			fmt.Sscanf(line, "frame=%d", &progressData.Frame)
		case strings.HasPrefix(line, "fps="):
			fmt.Sscanf(line, "fps=%f", &progressData.FPS)
		case strings.HasPrefix(line, "bitrate="):
			progressData.Bitrate = valueOf(line)
		case strings.HasPrefix(line, "out_time="):
			progressData.Time = valueOf(line)
		case strings.HasPrefix(line, "speed="):
			progressData.Speed = valueOf(line)
		case strings.HasPrefix(line, "progress="):
			// End of progress block
			if progressHandler != nil && progressData.Frame > 0 {
				progressHandler(progressData)
			}
			progressData = &Progress{}
		case isProgressKey(line):
		default:
			fmt.Fprintln(tail, line)
		}
	}
}

func valueOf(line string) string {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

var progressKeys = []string{
	"stream_", "total_size=", "out_time_us=", "out_time_ms=", "dup_frames=", "drop_frames=",
}

// isProgressKey reports the remaining key=value lines of a -progress block.
func isProgressKey(line string) bool {
	for _, k := range progressKeys {
		if strings.HasPrefix(line, k) {
			return true
		}
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		keep := make([]byte, lw.limit)
		copy(keep, b[len(b)-lw.limit:])
		lw.w.Reset()
		lw.w.Write(keep)
	}
	return n, nil
}
