package montage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	ffgo "github.com/u2takey/ffmpeg-go"

	"github.com/keagan/reelforge/internal/logging"
)

// SilenceFile is the name of the synthesized background track inside a
// render's working directory.
const SilenceFile = "silence.wav"

// MixerOptions sets the format of synthesized silence
type MixerOptions struct {
	SampleRate int
	Channels   int
}

// Mixer assembles the soundtrack from optional music and narration
type Mixer struct {
	logger     zerolog.Logger
	prober     Prober
	sampleRate int
	channels   int
}

// NewMixer creates an audio mixer
func NewMixer(logger zerolog.Logger, prober Prober, opts MixerOptions) *Mixer {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.Channels <= 0 {
		opts.Channels = 2
	}
	return &Mixer{
		logger:     logging.WithComponent(logger, "mixer"),
		prober:     prober,
		sampleRate: opts.SampleRate,
		channels:   opts.Channels,
	}
}

// Mix builds the soundtrack. music and narration may be empty. Without
// usable music, a silent track of the nominal plan duration is written to
// workDir and used as background. The mix always ends with the background
// track. Only a failure to synthesize that silence is fatal.
func (m *Mixer) Mix(ctx context.Context, workDir, music, narration string, nominal time.Duration) (*AudioMix, error) {
	mix := &AudioMix{Nominal: nominal}

	if track, ok := m.probeTrack(ctx, "music", music, MusicGain); ok {
		mix.Background = track
	} else {
		path := filepath.Join(workDir, SilenceFile)
		if err := WriteSilence(path, nominal, m.sampleRate, m.channels); err != nil {
			return nil, &AudioMixFatalError{Err: err}
		}
		m.logger.Debug().
			Str("path", path).
			Dur("duration", nominal).
			Msg("synthesized silent background")
		mix.Background = Track{Path: path, Gain: 1, Duration: nominal}
		mix.Silent = true
	}

	if track, ok := m.probeTrack(ctx, "narration", narration, NarrationGain); ok {
		mix.Narration = &track
	}

	background := trackStream(mix.Background)
	if mix.Narration == nil {
		mix.Stream = background
		return mix, nil
	}

	mix.Stream = ffgo.Filter(
		[]*ffgo.Stream{background, trackStream(*mix.Narration)},
		"amix",
		ffgo.Args{},
		ffgo.KwArgs{"inputs": "2", "duration": "first"},
	)
	return mix, nil
}

// probeTrack returns a usable track for path. Missing, unreadable and
// audio-less files are treated as absent.
func (m *Mixer) probeTrack(ctx context.Context, role, path string, gain float64) (Track, bool) {
	if path == "" {
		return Track{}, false
	}

	info, err := m.prober.Probe(ctx, path)
	if err == nil && !info.HasAudio {
		err = fmt.Errorf("no audio stream")
	}
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("track", role).
			Str("path", path).
			Msg("ignoring unusable audio track")
		return Track{}, false
	}

	return Track{Path: path, Gain: gain, Duration: info.Duration}, true
}

func trackStream(t Track) *ffgo.Stream {
	s := ffgo.Input(t.Path).Audio()
	if t.Gain != 1 {
		s = s.Filter("volume", ffgo.Args{formatFloat(t.Gain)})
	}
	return s
}
