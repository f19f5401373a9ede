package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/mergeserver/api/internal/config"
	"github.com/mergeserver/api/internal/model"
)

// MetadataExtractor describes the streams available for a source page
type MetadataExtractor interface {
	Extract(ctx context.Context, sourceURL string) (*model.SourceMetadata, error)
}

// YtDlpClient implements MetadataExtractor with the yt-dlp binary
type YtDlpClient struct {
	path    string
	timeout time.Duration
}

// NewYtDlpClient creates a new yt-dlp client
func NewYtDlpClient(cfg *config.MediaConfig) *YtDlpClient {
	return &YtDlpClient{
		path:    cfg.YtDlpPath,
		timeout: cfg.Timeout,
	}
}

// ytdlpInfo is the subset of yt-dlp's --dump-single-json output we read
type ytdlpInfo struct {
	Title     string        `json:"title"`
	Uploader  string        `json:"uploader"`
	Channel   string        `json:"channel"`
	Duration  float64       `json:"duration"`
	Thumbnail string        `json:"thumbnail"`
	Formats   []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	FormatID       string  `json:"format_id"`
	URL            string  `json:"url"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Height         int     `json:"height"`
	ABR            float64 `json:"abr"`
	TBR            float64 `json:"tbr"`
	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
}

// Extract runs yt-dlp without downloading and returns the normalized metadata
func (c *YtDlpClient) Extract(ctx context.Context, sourceURL string) (*model.SourceMetadata, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path,
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		"--skip-download",
		"--", sourceURL,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &ToolError{Tool: "yt-dlp", Message: "timed out", Err: ctx.Err()}
		}
		return nil, newToolError("yt-dlp", stderr.Bytes(), err)
	}

	return DecodeMetadata(output)
}

// IsAvailable reports whether the yt-dlp binary can be found
func (c *YtDlpClient) IsAvailable() bool {
	_, err := exec.LookPath(c.path)
	return err == nil
}

// DecodeMetadata converts yt-dlp JSON into SourceMetadata
func DecodeMetadata(data []byte) (*model.SourceMetadata, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	author := info.Uploader
	if author == "" {
		author = info.Channel
	}

	meta := &model.SourceMetadata{
		Title:     info.Title,
		Author:    author,
		Duration:  info.Duration,
		Thumbnail: info.Thumbnail,
		Formats:   make([]model.StreamDescriptor, 0, len(info.Formats)),
	}

	for _, f := range info.Formats {
		bitrate := f.ABR
		if bitrate <= 0 {
			bitrate = f.TBR
		}
		size := f.Filesize
		if size <= 0 {
			size = f.FilesizeApprox
		}

		meta.Formats = append(meta.Formats, model.StreamDescriptor{
			FormatID:   f.FormatID,
			URL:        f.URL,
			Ext:        f.Ext,
			VideoCodec: f.VCodec,
			AudioCodec: f.ACodec,
			Height:     f.Height,
			Bitrate:    bitrate,
			Filesize:   int64(size),
		})
	}

	return meta, nil
}
