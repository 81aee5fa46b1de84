package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	ffgo "github.com/u2takey/ffmpeg-go"

	"github.com/keagan/reelforge/internal/config"
	"github.com/keagan/reelforge/internal/ffmpeg"
	"github.com/keagan/reelforge/internal/logging"
	"github.com/keagan/reelforge/internal/montage"
	"github.com/keagan/reelforge/internal/niche"
	"github.com/keagan/reelforge/internal/plan"
	"github.com/keagan/reelforge/pkg/util"
)

// renderFile is the encoder's target inside the work dir; it is moved to
// the requested output only after a successful encode.
const renderFile = "render.mp4"

// Pipeline renders reels: extract, compose, mix, encode
type Pipeline struct {
	logger zerolog.Logger
	engine Engine
	opts   Options
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, engine Engine, opts Options) *Pipeline {
	if opts.WorkDir == "" {
		opts.WorkDir = config.Default().WorkDir
	}
	if opts.Preset == "" {
		opts.Preset = ffmpeg.DefaultPreset
	}
	return &Pipeline{
		logger: logging.WithComponent(logger, "pipeline"),
		engine: engine,
		opts:   opts,
	}
}

// NewFromConfig creates a pipeline backed by the ffmpeg binaries named in cfg
func NewFromConfig(logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	exec, err := ffmpeg.New(logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}
	logger.Debug().Str("ffmpeg", exec.Path()).Msg("encoder ready")

	fontPath := cfg.ResolveFontPath()
	if fontPath == "" {
		logger.Warn().
			Str("font_path", cfg.Caption.FontPath).
			Msg("caption font not found, falling back to fontconfig")
	}

	return New(logger, exec, Options{
		WorkDir:      cfg.WorkDir,
		KeepWorkDir:  cfg.KeepWorkDir,
		FontPath:     fontPath,
		Preset:       cfg.FFmpeg.Preset,
		VerifyDecode: cfg.Extractor.VerifyDecode,
		SampleRate:   cfg.Audio.SampleRate,
		Channels:     cfg.Audio.Channels,
		MusicDir:     cfg.Music.FallbackDir,
	}), nil
}

// Render produces one reel. Validation failures surface as
// *plan.PlanEmptyError before any media is touched; encoder failures as
// *RenderError. The output file is replaced only on success.
func (p *Pipeline) Render(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if req.Output == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}

	editPlan := req.Plan
	if editPlan == nil {
		editPlan = plan.Fallback(len(req.Clips), req.Niche.String())
		p.logger.Info().
			Int("segments", len(editPlan.Segments)).
			Msg("no edit plan supplied, using fallback plan")
	}

	validated, err := editPlan.Validate(len(req.Clips))
	if err != nil {
		return nil, err
	}

	ws, err := newWorkspace(p.opts.WorkDir, p.opts.KeepWorkDir)
	if err != nil {
		return nil, err
	}
	logger := logging.WithRender(p.logger, ws.id)
	defer func() {
		if err := ws.cleanup(); err != nil {
			logger.Warn().Err(err).Str("dir", ws.dir).Msg("failed to remove work dir")
		}
	}()

	logger.Info().
		Int("clips", len(req.Clips)).
		Int("segments", len(validated.Segments)).
		Str("niche", req.Niche.String()).
		Bool("script", validated.HasScript()).
		Str("output", req.Output).
		Msg("starting render")

	// Stage 1: normalize segments
	var checker montage.DecodeChecker
	if p.opts.VerifyDecode {
		checker = p.engine
	}
	extraction, err := montage.NewExtractor(logger, p.engine, checker).
		Extract(ctx, req.Clips, validated.Segments)
	if err != nil {
		return nil, err
	}

	// Stage 2: composite visual
	visual, err := montage.NewCompositor(logger, p.opts.FontPath).
		Compose(extraction.Streams, req.Niche)
	if err != nil {
		return nil, err
	}

	// Stage 3: soundtrack, sized against the nominal duration
	music := req.Music
	if music == "" && p.opts.MusicDir != "" {
		if music = niche.FallbackMusic(p.opts.MusicDir, req.Niche); music != "" {
			logger.Info().Str("music", music).Msg("using fallback music")
		}
	}
	nominal := util.Seconds(validated.NominalDuration())
	mixer := montage.NewMixer(logger, p.engine, montage.MixerOptions{
		SampleRate: p.opts.SampleRate,
		Channels:   p.opts.Channels,
	})
	mix, err := mixer.Mix(ctx, ws.dir, music, req.Narration, nominal)
	if err != nil {
		return nil, err
	}

	// Stage 4: single encode
	if err := p.encode(ctx, logger, ws, visual, mix, req.Output); err != nil {
		return nil, err
	}

	result := &Result{
		RenderID:       ws.id,
		Output:         req.Output,
		Plan:           validated,
		Skipped:        extraction.Skipped,
		Caption:        visual.Caption,
		Concatenated:   visual.Concatenated,
		Nominal:        nominal,
		VisualDuration: visual.Duration,
		AudioDuration:  mix.Duration(),
		SilentAudio:    mix.Silent,
		Elapsed:        time.Since(start),
	}

	logger.Info().
		Str("output", req.Output).
		Dur("visual", result.VisualDuration).
		Dur("audio", result.AudioDuration).
		Int("skipped", len(result.Skipped)).
		Dur("elapsed", result.Elapsed).
		Msg("render complete")

	return result, nil
}

func (p *Pipeline) encode(ctx context.Context, logger zerolog.Logger, ws *workspace, visual *montage.CompositeVisual, mix *montage.AudioMix, output string) error {
	tmp := ws.path(renderFile)

	args, err := outputArgs(visual, mix, tmp, p.opts.Preset)
	if err != nil {
		return err
	}

	runOpts := ffmpeg.RunOptions{
		Args: args,
		ProgressHandler: func(pr *ffmpeg.Progress) {
			logger.Debug().
				Int("frame", pr.Frame).
				Str("time", pr.Time).
				Str("speed", pr.Speed).
				Msg("encoding")
		},
		LogHandler: func(line string) {
			logger.Trace().Str("ffmpeg", line).Msg("encoder output")
		},
	}

	if err := p.engine.Run(ctx, runOpts); err != nil {
		renderErr := &RenderError{Output: output, Err: err}
		var exitErr *ffmpeg.ExitError
		if errors.As(err, &exitErr) {
			renderErr.Diagnostic = exitErr.Stderr
		}
		return renderErr
	}

	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return &RenderError{Output: output, Err: fmt.Errorf("failed to create output dir: %w", err)}
	}
	if err := moveFile(tmp, output); err != nil {
		return &RenderError{Output: output, Err: fmt.Errorf("failed to publish output: %w", err)}
	}
	return nil
}

// outputArgs binds visual and audio into one H.264/AAC MP4 encode
func outputArgs(visual *montage.CompositeVisual, mix *montage.AudioMix, output, preset string) (args []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			args = nil
			err = &montage.CompositionError{Stage: "output", Err: fmt.Errorf("%v", r)}
		}
	}()

	out := ffgo.Output([]*ffgo.Stream{visual.Stream, mix.Stream}, output, ffgo.KwArgs{
		"c:v":    ffmpeg.DefaultVideoCodec,
		"b:v":    ffmpeg.DefaultVideoBitrate,
		"preset": preset,
		"c:a":    ffmpeg.DefaultAudioCodec,
		"f":      ffmpeg.DefaultContainer,
	}).OverWriteOutput()

	return out.GetArgs(), nil
}
