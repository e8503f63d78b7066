package probe

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

const (
	// CheckTimeout bounds the startup availability self-check.
	CheckTimeout = 2 * time.Second

	// QueryTimeout bounds a single duration query. A hung analyzer is
	// treated identically to a failed one; the caller must never block
	// on it indefinitely.
	QueryTimeout = 5 * time.Second

	// maxSaneDuration rejects garbage analyzer output. Nothing in a
	// personal video library runs longer than a week.
	maxSaneDuration = 7 * 24 * 60 * 60 // seconds
)

// Prober queries an external media analyzer (ffprobe) for playback
// durations. Every failure path degrades to absence: callers always need a
// fixed-duration fallback.
type Prober struct {
	binPath      string
	available    bool
	checkTimeout time.Duration
	queryTimeout time.Duration
}

// New creates a Prober for the given analyzer executable and runs the
// availability self-check once. The result gates whether exact-duration
// mode is offered at all and is logged a single time at startup.
func New(binPath string) *Prober {
	p := &Prober{
		binPath:      binPath,
		checkTimeout: CheckTimeout,
		queryTimeout: QueryTimeout,
	}
	p.available = p.check()

	if p.available {
		logging.Info("duration analyzer available: %s", binPath)
		metrics.ProbeAvailable.Set(1)
	} else {
		logging.Info("duration analyzer unavailable, using fixed segment durations: %s", binPath)
		metrics.ProbeAvailable.Set(0)
	}
	return p
}

// Available reports whether the analyzer passed its startup self-check.
func (p *Prober) Available() bool {
	return p.available
}

// check invokes the analyzer's version query under the short timeout.
// Missing executables, non-zero exits and timeouts all mean unavailable.
func (p *Prober) check() bool {
	ctx, cancel := context.WithTimeout(context.Background(), p.checkTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binPath, "-version")
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logging.Warn("duration analyzer self-check timed out after %s", p.checkTimeout)
		} else {
			logging.Debug("duration analyzer self-check failed: %v", err)
		}
		return false
	}
	return true
}

// Duration returns the media file's playback duration in seconds.
// The second return value is false when the analyzer fails, times out, or
// reports a value outside the sane window; such results are never errors.
func (p *Prober) Duration(ctx context.Context, filePath string) (float64, bool) {
	start := time.Now()
	defer func() {
		metrics.ProbeQueryDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binPath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		filePath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logging.Warn("duration query timed out after %s: %s", p.queryTimeout, filePath)
			metrics.ProbeQueriesTotal.WithLabelValues("timeout").Inc()
		} else {
			logging.Debug("duration query failed for %s: %v (%s)", filePath, err, stderr.String())
			metrics.ProbeQueriesTotal.WithLabelValues("error").Inc()
		}
		return 0, false
	}

	duration, ok := parseDuration(stdout.String())
	if !ok {
		logging.Debug("duration query returned unusable output for %s: %q", filePath, stdout.String())
		metrics.ProbeQueriesTotal.WithLabelValues("rejected").Inc()
		return 0, false
	}

	metrics.ProbeQueriesTotal.WithLabelValues("ok").Inc()
	return duration, true
}

// parseDuration interprets the first line of analyzer output as seconds
// and applies the sanity window: greater than zero, at most seven days.
func parseDuration(output string) (float64, bool) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, false
	}

	duration, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, false
	}
	if duration <= 0 || duration > maxSaneDuration {
		return 0, false
	}
	return duration, true
}
