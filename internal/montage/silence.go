package montage

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	silenceBitDepth = 16
	// PCM
	wavFormatPCM = 1
)

// WriteSilence writes a 16-bit PCM WAV of digital silence lasting d.
func WriteSilence(path string, d time.Duration, sampleRate, channels int) error {
	if d <= 0 {
		return fmt.Errorf("invalid silence duration: %v", d)
	}
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid audio format: %d Hz, %d channels", sampleRate, channels)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create silence track: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, silenceBitDepth, channels, wavFormatPCM)

	frames := int(math.Round(d.Seconds() * float64(sampleRate)))
	// one second per write
	chunk := sampleRate
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: silenceBitDepth,
	}

	for written := 0; written < frames; written += chunk {
		n := min(chunk, frames-written)
		buf.Data = make([]int, n*channels)
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("failed to write silence track: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize silence track: %w", err)
	}
	return f.Close()
}
