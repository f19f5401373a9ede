package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/mergeserver/api/internal/client"
	"github.com/mergeserver/api/internal/config"
	"github.com/mergeserver/api/internal/model"
)

// MediaService describes the streams available for a source page
type MediaService struct {
	extractor client.MetadataExtractor
	limits    OptionLimits
}

// OptionLimits caps how many options of each kind are offered
type OptionLimits struct {
	Video int
	Audio int
	Muxed int
}

func NewMediaService(extractor client.MetadataExtractor, cfg *config.MediaConfig) *MediaService {
	return &MediaService{
		extractor: extractor,
		limits: OptionLimits{
			Video: cfg.MaxVideoOptions,
			Audio: cfg.MaxAudioOptions,
			Muxed: cfg.MaxMuxedOptions,
		},
	}
}

// GetVideoInfo extracts metadata for sourceURL and selects the best options
func (s *MediaService) GetVideoInfo(ctx context.Context, sourceURL string) (*model.VideoInfoResponse, error) {
	meta, err := s.extractor.Extract(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	video, audio, muxed := SelectOptions(meta.Formats, s.limits)

	return &model.VideoInfoResponse{
		Title:        meta.Title,
		Author:       meta.Author,
		Duration:     meta.Duration,
		Thumbnail:    meta.Thumbnail,
		VideoOptions: video,
		AudioOptions: audio,
		MuxedOptions: muxed,
	}, nil
}

// SelectOptions splits formats into video-only, audio-only and muxed
// options. Video and muxed are ordered by height, audio by bitrate, all
// descending, and each list is cut to its limit. Formats without a URL are
// skipped.
func SelectOptions(formats []model.StreamDescriptor, limits OptionLimits) (video, audio, muxed []model.MediaOption) {
	var videoOnly, audioOnly, combined []model.StreamDescriptor

	for _, f := range formats {
		if f.URL == "" {
			continue
		}
		switch {
		case f.HasVideo() && f.HasAudio():
			combined = append(combined, f)
		case f.HasVideo():
			videoOnly = append(videoOnly, f)
		case f.HasAudio():
			audioOnly = append(audioOnly, f)
		}
	}

	byHeight := func(s []model.StreamDescriptor) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Height > s[j].Height })
	}
	byHeight(videoOnly)
	byHeight(combined)
	sort.SliceStable(audioOnly, func(i, j int) bool { return audioOnly[i].Bitrate > audioOnly[j].Bitrate })

	return toOptions(videoOnly, limits.Video, videoQuality),
		toOptions(audioOnly, limits.Audio, audioQuality),
		toOptions(combined, limits.Muxed, videoQuality)
}

func toOptions(formats []model.StreamDescriptor, limit int, quality func(model.StreamDescriptor) string) []model.MediaOption {
	if limit >= 0 && len(formats) > limit {
		formats = formats[:limit]
	}

	options := make([]model.MediaOption, 0, len(formats))
	for _, f := range formats {
		opt := model.MediaOption{
			Quality:  quality(f) + extSuffix(f.Ext) + sizeSuffix(f.Filesize),
			URL:      f.URL,
			FormatID: f.FormatID,
		}
		if f.Height > 0 {
			h := f.Height
			opt.Height = &h
		}
		options = append(options, opt)
	}
	return options
}

func videoQuality(f model.StreamDescriptor) string {
	if f.Height <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dp", f.Height)
}

func audioQuality(f model.StreamDescriptor) string {
	if f.Bitrate <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%.0fkbps", f.Bitrate)
}

func extSuffix(ext string) string {
	if ext == "" {
		return ""
	}
	return " (" + ext + ")"
}

func sizeSuffix(size int64) string {
	if size <= 0 {
		return ""
	}
	return fmt.Sprintf(" - %.1f MB", float64(size)/1024/1024)
}
