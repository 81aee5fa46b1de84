package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	skipIfNoFFmpeg(t)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	e, err := New(logger, Options{Threads: 2})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return e
}

// generateClip writes a short lavfi test pattern with a sine track
func generateClip(t *testing.T, dir, name, size string, seconds int) string {
	t.Helper()
	out := filepath.Join(dir, name)
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "testsrc=duration="+strconv.Itoa(seconds)+":size="+size+":rate=30",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration="+strconv.Itoa(seconds),
		"-pix_fmt", "yuv420p", "-shortest", out)
	if outb, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not generate test clip: %v\n%s", err, outb)
	}
	return out
}

func TestLimitedWriter_KeepsOnlyTail(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 10}

	lw.Write([]byte("hello"))
	if buf.String() != "hello" {
		t.Errorf("after short write got %q, want %q", buf.String(), "hello")
	}

	lw.Write([]byte(" world of test data"))
	if got, want := buf.String(), " test data"; got != want {
		t.Errorf("after overflow got %q, want %q", got, want)
	}
}

func TestStreamOutput_ProgressAndTail(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}
	input := strings.Join([]string{
		"Input #0, lavfi, from 'testsrc':",
		"frame=42",
		"fps=29.5",
		"stream_0_0_q=28.0",
		"bitrate=5000.1kbits/s",
		"total_size=1024",
		"out_time_us=1400000",
		"out_time=00:00:01.400000",
		"speed=2.1x",
		"progress=continue",
		"Error while filtering: Invalid argument",
	}, "\n")

	var tail bytes.Buffer
	var got []*Progress
	var lines int
	e.streamOutput(strings.NewReader(input), &tail,
		func(p *Progress) { got = append(got, p) },
		func(string) { lines++ })

	if lines != 11 {
		t.Errorf("log handler saw %d lines, want 11", lines)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 progress block, got %d", len(got))
	}
	p := got[0]
	if p.Frame != 42 || p.FPS != 29.5 || p.Time != "00:00:01.400000" || p.Speed != "2.1x" {
		t.Errorf("unexpected progress: %+v", p)
	}
	if strings.Contains(tail.String(), "frame=") || strings.Contains(tail.String(), "total_size") {
		t.Errorf("progress keys leaked into tail: %q", tail.String())
	}
	if !strings.Contains(tail.String(), "Error while filtering") {
		t.Errorf("diagnostic missing from tail: %q", tail.String())
	}
}

func TestParseProbeOutput(t *testing.T) {
	raw := []byte(`{
		"format": {"duration": "10.500000", "bit_rate": "1200000"},
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "r_frame_rate": "30/1"},
			{"codec_type": "audio", "codec_name": "aac"}
		]
	}`)
	info, err := parseProbeOutput(raw)
	if err != nil {
		t.Fatalf("parseProbeOutput: %v", err)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("expected video and audio, got %+v", info)
	}
	if info.Width != 1920 || info.Height != 1080 || info.FPS != 30 {
		t.Errorf("unexpected geometry: %+v", info)
	}
	if info.Duration != 10500*time.Millisecond {
		t.Errorf("duration = %v", info.Duration)
	}
}

func TestParseProbeOutput_NoStreams(t *testing.T) {
	if _, err := parseProbeOutput([]byte(`{"format": {}, "streams": []}`)); err == nil {
		t.Error("expected error for output without streams")
	}
	if _, err := parseProbeOutput([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestExitError(t *testing.T) {
	inner := errors.New("exit status 1")
	var err error = &ExitError{ExitCode: 1, Stderr: "No such file", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("ExitError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "code 1") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestExecutorCreation(t *testing.T) {
	e := newTestExecutor(t)
	if e.ffmpegPath == "" || e.ffprobePath == "" {
		t.Error("binary paths not resolved")
	}
	t.Logf("ffmpeg: %s", e.ffmpegPath)
}

func TestExecutorCreation_MissingBinary(t *testing.T) {
	_, err := New(zerolog.Nop(), Options{FFmpegPath: "definitely-not-ffmpeg-binary"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestProbe(t *testing.T) {
	e := newTestExecutor(t)
	clip := generateClip(t, t.TempDir(), "probe.mp4", "320x240", 2)

	info, err := e.Probe(context.Background(), clip)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Width != 320 || info.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", info.Width, info.Height)
	}
	if !info.HasAudio {
		t.Error("expected audio stream")
	}
	if info.Duration == 0 {
		t.Error("duration is zero")
	}
}

func TestProbe_InvalidFile(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	if _, err := e.Probe(ctx, "nonexistent.mp4"); err == nil {
		t.Error("Probe should fail for non-existent file")
	}

	invalid := filepath.Join(t.TempDir(), "invalid.mp4")
	os.WriteFile(invalid, []byte("not a video"), 0644)
	if _, err := e.Probe(ctx, invalid); err == nil {
		t.Error("Probe should fail for invalid media file")
	}
}

func TestDecodeCheck(t *testing.T) {
	e := newTestExecutor(t)
	dir := t.TempDir()
	clip := generateClip(t, dir, "decode.mp4", "320x240", 2)
	ctx := context.Background()

	if err := e.DecodeCheck(ctx, clip, 0, time.Second); err != nil {
		t.Errorf("DecodeCheck on valid range: %v", err)
	}
	// past end of stream yields a short decode, not a failure
	if err := e.DecodeCheck(ctx, clip, time.Second, 10*time.Second); err != nil {
		t.Errorf("DecodeCheck past end: %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.mp4")
	os.WriteFile(corrupt, []byte("garbage garbage garbage"), 0644)
	err := e.DecodeCheck(ctx, corrupt, 0, time.Second)
	if err == nil {
		t.Fatal("DecodeCheck should fail on corrupt input")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T", err)
	}
	if exitErr.Stderr == "" {
		t.Error("expected stderr diagnostic")
	}
}
