package sequence

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	platformerrors "papla-server-go/internal/platform/errors"
	"papla-server-go/internal/platform/logging"
)

// Options tunes a Sequencer. Zero values fall back to the defaults the
// web front-end ships with.
type Options struct {
	GapMinSeconds float64
	GapMaxSeconds float64
	SampleRate    int
	ChannelLayout string
}

func (o Options) withDefaults() Options {
	if o.GapMinSeconds <= 0 {
		o.GapMinSeconds = 2
	}
	if o.GapMaxSeconds <= 0 {
		o.GapMaxSeconds = 4
	}
	if o.GapMaxSeconds < o.GapMinSeconds {
		o.GapMaxSeconds = o.GapMinSeconds
	}
	if o.SampleRate <= 0 {
		o.SampleRate = 44100
	}
	if o.ChannelLayout == "" {
		o.ChannelLayout = "stereo"
	}
	return o
}

// Result describes one completed combine run.
type Result struct {
	OutputPath string
	Clips      []Clip
	Gaps       []float64
	Elapsed    time.Duration
}

// Sequencer concatenates the audio clips of a directory into a single
// file, inserting a randomized silence gap between consecutive clips.
type Sequencer struct {
	runner *Runner
	opts   Options
	logger *logging.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSequencer(runner *Runner, opts Options, logger *logging.Logger) *Sequencer {
	return &Sequencer{
		runner: runner,
		opts:   opts.withDefaults(),
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Combine scans inputDir, renders one silence segment per gap, and
// concatenates everything into outputPath. The clips themselves are
// never modified; intermediate files live in a private temp directory
// that is removed before Combine returns, success or not.
func (s *Sequencer) Combine(ctx context.Context, inputDir, outputPath string) (*Result, error) {
	return s.CombineWithOptions(ctx, inputDir, outputPath, s.opts)
}

// CombineWithOptions runs one combine with per-request gap overrides.
func (s *Sequencer) CombineWithOptions(ctx context.Context, inputDir, outputPath string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	start := time.Now()

	if err := s.runner.Check(ctx); err != nil {
		return nil, err
	}

	clips, err := CollectClips(inputDir)
	if err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, platformerrors.New(platformerrors.KindNoInput,
			"sequence.Combine", "no audio files found in "+inputDir)
	}

	s.logger.InfoTag("SEQ", "combining clips", map[string]interface{}{
		"input_dir": inputDir,
		"clips":     len(clips),
	})

	tempDir, err := os.MkdirTemp("", fmt.Sprintf("seq-%d-%s-", os.Getpid(), uuid.NewString()))
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindFilesystem,
			"sequence.Combine", "create temp directory", err)
	}
	defer os.RemoveAll(tempDir)

	gaps, segments, err := s.buildSegments(ctx, clips, tempDir, opts)
	if err != nil {
		return nil, err
	}

	listPath := filepath.Join(tempDir, "concat.txt")
	if err := writeManifest(listPath, segments); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindFilesystem,
			"sequence.Combine", "create output directory", err)
	}

	if err := s.runner.Concat(ctx, listPath, outputPath); err != nil {
		os.Remove(outputPath)
		return nil, err
	}

	elapsed := time.Since(start)
	s.logger.InfoTag("SEQ", "combine finished", map[string]interface{}{
		"output":     outputPath,
		"clips":      len(clips),
		"gaps":       len(gaps),
		"elapsed_ms": elapsed.Milliseconds(),
	})

	return &Result{
		OutputPath: outputPath,
		Clips:      clips,
		Gaps:       gaps,
		Elapsed:    elapsed,
	}, nil
}

// buildSegments renders the silence gaps and interleaves them with the
// clips: clip, gap, clip, gap, ..., clip. A single clip yields no gaps.
func (s *Sequencer) buildSegments(ctx context.Context, clips []Clip, tempDir string, opts Options) ([]float64, []string, error) {
	segments := make([]string, 0, 2*len(clips)-1)
	gaps := make([]float64, 0, len(clips)-1)

	for i, clip := range clips {
		segments = append(segments, clip.Path)
		if i == len(clips)-1 {
			break
		}

		duration := s.gapDuration(opts)
		gapPath := filepath.Join(tempDir, fmt.Sprintf("gap_%03d.mp3", i))
		if err := s.runner.RenderSilence(ctx, gapPath, duration, opts.SampleRate, opts.ChannelLayout); err != nil {
			return nil, nil, err
		}
		gaps = append(gaps, duration)
		segments = append(segments, gapPath)
	}

	return gaps, segments, nil
}

func (s *Sequencer) gapDuration(opts Options) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return opts.GapMinSeconds + s.rng.Float64()*(opts.GapMaxSeconds-opts.GapMinSeconds)
}

// writeManifest emits a concat-demuxer file list. Single quotes in
// paths are escaped per ffmpeg's quoting rules.
func writeManifest(path string, segments []string) error {
	var b strings.Builder
	for _, segment := range segments {
		escaped := strings.ReplaceAll(segment, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return platformerrors.Wrap(platformerrors.KindFilesystem,
			"sequence.writeManifest", "write concat list", err)
	}
	return nil
}
