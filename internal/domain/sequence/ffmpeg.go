package sequence

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	platformerrors "papla-server-go/internal/platform/errors"
)

const (
	checkTimeout          = 10 * time.Second
	defaultSilenceTimeout = 30 * time.Second
	defaultConcatTimeout  = 300 * time.Second
)

// Runner shells out to ffmpeg. The binary path is configurable so
// deployments can pin a specific build and tests can substitute a stub.
type Runner struct {
	Path           string
	SilenceTimeout time.Duration
	ConcatTimeout  time.Duration
}

func NewRunner(path string) *Runner {
	if path == "" {
		path = "ffmpeg"
	}
	return &Runner{
		Path:           path,
		SilenceTimeout: defaultSilenceTimeout,
		ConcatTimeout:  defaultConcatTimeout,
	}
}

// Check verifies ffmpeg is present and answers a version probe.
func (r *Runner) Check(ctx context.Context) error {
	if _, err := exec.LookPath(r.Path); err != nil {
		return platformerrors.Wrap(platformerrors.KindDependency,
			"ffmpeg.Check", "ffmpeg not found on PATH", err)
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, r.Path, "-version").Run(); err != nil {
		return platformerrors.Wrap(platformerrors.KindDependency,
			"ffmpeg.Check", "ffmpeg version probe failed", err)
	}
	return nil
}

// RenderSilence writes duration seconds of silence to outputPath using
// the lavfi anullsrc source.
func (r *Runner) RenderSilence(ctx context.Context, outputPath string, duration float64, sampleRate int, channelLayout string) error {
	timeout := r.SilenceTimeout
	if timeout <= 0 {
		timeout = defaultSilenceTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	source := fmt.Sprintf("anullsrc=r=%d:cl=%s:duration=%.3f",
		sampleRate, channelLayout, duration)
	args := []string{"-f", "lavfi", "-i", source, "-y", outputPath}

	if err := r.run(ctx, args); err != nil {
		return platformerrors.Wrap(platformerrors.KindConcat,
			"ffmpeg.RenderSilence", "render silence segment", err)
	}
	return nil
}

// Concat joins the segments listed in listPath into outputPath using
// the concat demuxer with stream copy, so no re-encoding happens.
func (r *Runner) Concat(ctx context.Context, listPath, outputPath string) error {
	timeout := r.ConcatTimeout
	if timeout <= 0 {
		timeout = defaultConcatTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y", outputPath,
	}

	if err := r.run(ctx, args); err != nil {
		return platformerrors.Wrap(platformerrors.KindConcat,
			"ffmpeg.Concat", "concatenate segments", err)
	}
	return nil
}

// run executes ffmpeg and folds its stderr tail into the error so the
// caller sees what the tool actually complained about.
func (r *Runner) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("ffmpeg timed out: %w", ctx.Err())
	}
	if tail := lastLines(stderr.String(), 5); tail != "" {
		return fmt.Errorf("%w: %s", err, tail)
	}
	return err
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
