package montage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	ffgo "github.com/u2takey/ffmpeg-go"

	"github.com/keagan/reelforge/internal/logging"
	"github.com/keagan/reelforge/internal/niche"
)

// OutputFPS is the frame rate the composite is resampled to before zooming.
// zoompan emits one frame per input frame at its own rate, so both sides
// must agree for the composite to keep its scaled duration.
const OutputFPS = 30

// Compositor joins normalized segments into the final graded, zoomed and
// captioned video stream.
type Compositor struct {
	logger   zerolog.Logger
	fontPath string
}

// NewCompositor creates a compositor. An empty fontPath leaves font
// selection to ffmpeg's fontconfig.
func NewCompositor(logger zerolog.Logger, fontPath string) *Compositor {
	return &Compositor{
		logger:   logging.WithComponent(logger, "compositor"),
		fontPath: fontPath,
	}
}

// Compose concatenates streams in order with hard cuts, then applies the
// niche grade, the zoom and the caption.
func (c *Compositor) Compose(streams []NormalizedClipStream, n niche.Niche) (visual *CompositeVisual, err error) {
	if len(streams) == 0 {
		return nil, &CompositionError{Stage: "concat", Err: fmt.Errorf("no segment streams")}
	}

	stage := "concat"
	defer func() {
		if r := recover(); r != nil {
			visual = nil
			err = &CompositionError{Stage: stage, Err: fmt.Errorf("%v", r)}
		}
	}()

	var (
		stream   *ffgo.Stream
		duration time.Duration
	)
	inputs := make([]*ffgo.Stream, 0, len(streams))
	for _, s := range streams {
		if s.Stream == nil {
			return nil, &CompositionError{Stage: stage, Err: fmt.Errorf("segment %d has no stream", s.Index)}
		}
		inputs = append(inputs, s.Stream)
		duration += s.Duration
	}

	concatenated := len(inputs) > 1
	if concatenated {
		stream = ffgo.Filter(inputs, "concat", ffgo.Args{}, ffgo.KwArgs{
			"n": strconv.Itoa(len(inputs)),
			"v": "1",
			"a": "0",
		})
	} else {
		stream = inputs[0]
	}

	preset := n.Preset()

	stage = "grade"
	if grade := gradeArgs(preset.Grade); len(grade) > 0 {
		stream = stream.Filter("eq", ffgo.Args{}, grade)
	}

	stage = "zoom"
	size := fmt.Sprintf("%dx%d", OutputWidth, OutputHeight)
	stream = stream.
		Filter("fps", ffgo.Args{strconv.Itoa(OutputFPS)}).
		Filter("zoompan", ffgo.Args{}, ffgo.KwArgs{
			"z":   ZoomExpr,
			"d":   "1",
			"s":   size,
			"fps": strconv.Itoa(OutputFPS),
		})

	stage = "caption"
	stream = stream.Filter("drawtext", ffgo.Args{}, c.captionArgs(preset.Caption))

	stage = "validate"
	// compiling a throwaway sink surfaces malformed graphs here rather
	// than at encode time
	ffgo.Output([]*ffgo.Stream{stream}, "-", ffgo.KwArgs{"f": "null"}).GetArgs()

	c.logger.Debug().
		Str("niche", n.String()).
		Int("segments", len(streams)).
		Bool("concatenated", concatenated).
		Dur("duration", duration).
		Msg("composite assembled")

	return &CompositeVisual{
		Stream:       stream,
		Duration:     duration,
		Caption:      preset.Caption,
		Niche:        n,
		Concatenated: concatenated,
		Segments:     len(streams),
	}, nil
}

func (c *Compositor) captionArgs(text string) ffgo.KwArgs {
	args := ffgo.KwArgs{
		"text":      escapeOptionValue(text),
		"fontsize":  strconv.Itoa(CaptionFontSize),
		"fontcolor": CaptionColor,
		"x":         CaptionX,
		"y":         CaptionY,
		"box":       "1",
		"boxcolor":  CaptionBoxColor,
	}
	if c.fontPath != "" {
		args["fontfile"] = escapeOptionValue(c.fontPath)
	}
	return args
}

// optionValueEscaper quotes the characters ffmpeg's option parser treats
// as separators. ffmpeg-go only escapes at the filtergraph level, so a value
// like C:/Windows/Fonts/arialbd.ttf would otherwise be split at the colon.
var optionValueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)

func escapeOptionValue(v string) string {
	return optionValueEscaper.Replace(v)
}

// gradeArgs renders the non-neutral terms of a grade
func gradeArgs(g niche.Grade) ffgo.KwArgs {
	args := ffgo.KwArgs{}
	if g.Saturation != 1 {
		args["saturation"] = formatFloat(g.Saturation)
	}
	if g.Contrast != 1 {
		args["contrast"] = formatFloat(g.Contrast)
	}
	if g.Brightness != 0 {
		args["brightness"] = formatFloat(g.Brightness)
	}
	return args
}
