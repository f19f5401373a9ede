package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mergeserver/api/internal/config"
)

// Muxer combines a video source and an audio source into one output file
type Muxer interface {
	Mux(ctx context.Context, req *MuxRequest, onProgress ProgressFunc) error
}

// ProgressFunc receives completion percentages in [0,100]
type ProgressFunc func(percent float64)

// MuxRequest represents one muxing run
type MuxRequest struct {
	VideoURL   string
	AudioURL   string
	OutputPath string
}

// FFmpegClient implements Muxer by running the ffmpeg binary
type FFmpegClient struct {
	ffmpegPath  string
	ffprobePath string
	audioCodec  string
	log         zerolog.Logger
}

// NewFFmpegClient creates a new ffmpeg muxing client
func NewFFmpegClient(cfg *config.MergeConfig, log zerolog.Logger) *FFmpegClient {
	return &FFmpegClient{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		audioCodec:  cfg.AudioCodec,
		log:         log.With().Str("component", "ffmpeg").Logger(),
	}
}

// Mux copies the video stream, re-encodes the audio stream and stops at the
// end of the shorter input. Progress is reported relative to that shorter
// duration; when it cannot be probed every report is 0.
func (c *FFmpegClient) Mux(ctx context.Context, req *MuxRequest, onProgress ProgressFunc) error {
	total := c.targetDuration(ctx, req)

	cmd := exec.CommandContext(ctx, c.ffmpegPath, BuildMuxArgs(req, c.audioCodec)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return &ToolError{Tool: "ffmpeg", Message: err.Error(), Err: err}
	}

	ParseProgress(stdout, total, onProgress)
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		return newToolError("ffmpeg", stderr.Bytes(), err)
	}
	return nil
}

// IsAvailable reports whether the ffmpeg binary can be found
func (c *FFmpegClient) IsAvailable() bool {
	_, err := exec.LookPath(c.ffmpegPath)
	return err == nil
}

// BuildMuxArgs returns the ffmpeg arguments for req. Machine-readable progress
// is written to stdout, diagnostics to stderr.
func BuildMuxArgs(req *MuxRequest, audioCodec string) []string {
	if audioCodec == "" {
		audioCodec = "aac"
	}
	return []string{
		"-hide_banner", "-nostats", "-loglevel", "error", "-y",
		"-i", req.VideoURL,
		"-i", req.AudioURL,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", audioCodec,
		"-shortest",
		"-progress", "pipe:1",
		req.OutputPath,
	}
}

// ParseProgress reads ffmpeg -progress key=value blocks from r and calls
// onProgress once per block with the percentage of total processed.
func ParseProgress(r io.Reader, total time.Duration, onProgress ProgressFunc) {
	scanner := bufio.NewScanner(r)
	var outTime time.Duration

	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}

		switch key {
		case "out_time_us", "out_time_ms":
			// ffmpeg reports out_time_ms in microseconds as well
			us, err := strconv.ParseInt(value, 10, 64)
			if err == nil && us >= 0 {
				outTime = time.Duration(us) * time.Microsecond
			}
		case "progress":
			if onProgress != nil {
				onProgress(percentOf(outTime, total))
			}
		}
	}
}

func percentOf(done, total time.Duration) float64 {
	if total <= 0 || done <= 0 {
		return 0
	}
	p := float64(done) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}

// targetDuration returns the shorter of the two input durations, or 0
func (c *FFmpegClient) targetDuration(ctx context.Context, req *MuxRequest) time.Duration {
	var shortest time.Duration
	for _, src := range []string{req.VideoURL, req.AudioURL} {
		d, err := c.probeDuration(ctx, src)
		if err != nil {
			c.log.Debug().Err(err).Msg("duration probe failed")
			continue
		}
		if d > 0 && (shortest == 0 || d < shortest) {
			shortest = d
		}
	}
	return shortest
}

func (c *FFmpegClient) probeDuration(ctx context.Context, src string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		src,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	return parseDuration(string(output))
}

func parseDuration(s string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", strings.TrimSpace(s), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
