package montage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	ffgo "github.com/u2takey/ffmpeg-go"

	"github.com/keagan/reelforge/internal/ffmpeg"
	"github.com/keagan/reelforge/internal/logging"
	"github.com/keagan/reelforge/internal/plan"
	"github.com/keagan/reelforge/pkg/util"
)

// Prober reads stream metadata from a media file
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
}

// DecodeChecker decodes a time range of a file and reports failures
type DecodeChecker interface {
	DecodeCheck(ctx context.Context, input string, start, duration time.Duration) error
}

// Extractor turns plan segments into normalized 9:16 streams
type Extractor struct {
	logger  zerolog.Logger
	prober  Prober
	checker DecodeChecker
}

// NewExtractor creates an extractor. checker may be nil, in which case
// segments are only checked by probing their source clip.
func NewExtractor(logger zerolog.Logger, prober Prober, checker DecodeChecker) *Extractor {
	return &Extractor{
		logger:  logging.WithComponent(logger, "extractor"),
		prober:  prober,
		checker: checker,
	}
}

// Extraction is the outcome of Extract
type Extraction struct {
	// Streams holds one entry per surviving segment, in plan order
	Streams []NormalizedClipStream
	Skipped []*SegmentDecodeError
}

// Extract builds one normalized stream per segment. Segments whose source
// cannot be read are skipped and reported in Skipped. When no segment
// survives, Extract fails with *plan.PlanEmptyError.
func (x *Extractor) Extract(ctx context.Context, clips []string, segments []plan.Segment) (*Extraction, error) {
	result := &Extraction{
		Streams: make([]NormalizedClipStream, 0, len(segments)),
	}
	probes := make(map[int]probeResult, len(clips))
	seen := make(map[trimKey]int, len(segments))

	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if seg.ClipIndex < 0 || seg.ClipIndex >= len(clips) {
			result.skip(x.logger, &SegmentDecodeError{
				Index:     i,
				ClipIndex: seg.ClipIndex,
				Reason:    "clip index out of range",
			})
			continue
		}
		source := clips[seg.ClipIndex]

		pr, ok := probes[seg.ClipIndex]
		if !ok {
			info, err := x.prober.Probe(ctx, source)
			pr = probeResult{info: info, err: err}
			probes[seg.ClipIndex] = pr
		}
		if err := checkSource(pr); err != nil {
			reason := "unreadable source"
			if errors.Is(err, errFrameTooTall) {
				reason = "frame taller than 9:16, crop does not fit"
			}
			result.skip(x.logger, &SegmentDecodeError{
				Index:     i,
				ClipIndex: seg.ClipIndex,
				Source:    source,
				Reason:    reason,
				Err:       err,
			})
			continue
		}

		if pr.info.Duration > 0 && seg.StartOffset() >= pr.info.Duration {
			// the decoder yields an empty range rather than failing
			x.logger.Warn().
				Int("segment", i).
				Int("clip_index", seg.ClipIndex).
				Dur("start", seg.StartOffset()).
				Dur("clip_duration", pr.info.Duration).
				Msg("segment starts past end of clip")
		}

		if x.checker != nil {
			if err := x.checker.DecodeCheck(ctx, source, seg.StartOffset(), seg.Length()); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				result.skip(x.logger, &SegmentDecodeError{
					Index:     i,
					ClipIndex: seg.ClipIndex,
					Source:    source,
					Reason:    "decode failed",
					Err:       err,
				})
				continue
			}
		}

		ss, t := trimOptions(seg, 0)
		key := trimKey{source: source, ss: ss, t: t}
		repeat := seen[key]
		seen[key]++

		result.Streams = append(result.Streams, NormalizedClipStream{
			Segment:  seg,
			Index:    i,
			Source:   source,
			Stream:   normalize(source, seg, repeat),
			Duration: ScaledDuration(seg.Length()),
		})
	}

	if len(result.Streams) == 0 {
		errs := make([]error, 0, len(result.Skipped))
		for _, s := range result.Skipped {
			errs = append(errs, s)
		}
		return nil, &plan.PlanEmptyError{
			Requested: len(segments),
			ClipCount: len(clips),
			Reason:    "no segment could be decoded",
			Err:       errors.Join(errs...),
		}
	}

	x.logger.Debug().
		Int("segments", len(segments)).
		Int("streams", len(result.Streams)).
		Int("skipped", len(result.Skipped)).
		Msg("segments extracted")

	return result, nil
}

func (r *Extraction) skip(logger zerolog.Logger, err *SegmentDecodeError) {
	logger.Warn().
		Err(err).
		Int("segment", err.Index).
		Int("clip_index", err.ClipIndex).
		Msg("skipping segment")
	r.Skipped = append(r.Skipped, err)
}

// errFrameTooTall marks sources whose height needs a crop wider than the
// frame, such as 1080x2340 phone captures.
var errFrameTooTall = errors.New("frame taller than 9:16")

type probeResult struct {
	info *ffmpeg.MediaInfo
	err  error
}

// checkSource rejects clips the 9:16 crop cannot be applied to
func checkSource(pr probeResult) error {
	if pr.err != nil {
		return pr.err
	}
	if pr.info == nil || !pr.info.HasVideo {
		return fmt.Errorf("no video stream")
	}
	if pr.info.Width <= 0 || pr.info.Height <= 0 {
		return fmt.Errorf("unknown frame size")
	}
	// crop width is ih*9/16 and must fit inside the frame
	if pr.info.Width*16 < pr.info.Height*9 {
		return fmt.Errorf("%w: %dx%d needs a crop width of %d",
			errFrameTooTall, pr.info.Width, pr.info.Height, pr.info.Height*9/16)
	}
	return nil
}

// trimKey identifies an input node by what ffmpeg-go hashes it on
type trimKey struct {
	source string
	ss     string
	t      string
}

// trimOptions spells the -ss and -t values of a segment. ffmpeg-go merges
// graph nodes with identical parameters, so the k-th input that would
// compile to the same strings as an earlier one spells its trim options
// with k extra digits to stay a distinct input.
func trimOptions(seg plan.Segment, repeat int) (ss, t string) {
	if repeat > 0 {
		return util.FormatSeconds(seg.Start, 3+repeat), util.FormatSeconds(seg.Duration, 3+repeat)
	}
	return util.FormatDuration(seg.StartOffset()), util.FormatDuration(seg.Length())
}

// normalize trims, crops, scales, retimes and saturates one segment
func normalize(source string, seg plan.Segment, repeat int) *ffgo.Stream {
	ss, t := trimOptions(seg, repeat)

	return ffgo.Input(source, ffgo.KwArgs{"ss": ss, "t": t}).
		Video().
		Filter("crop", ffgo.Args{"ih*9/16", "ih"}).
		Filter("scale", ffgo.Args{strconv.Itoa(OutputWidth), strconv.Itoa(OutputHeight)}).
		Filter("setpts", ffgo.Args{formatFloat(SpeedFactor) + "*PTS"}).
		Filter("eq", ffgo.Args{}, ffgo.KwArgs{"saturation": formatFloat(BaseSaturation)})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
