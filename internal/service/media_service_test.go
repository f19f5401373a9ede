package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeserver/api/internal/config"
	"github.com/mergeserver/api/internal/model"
)

type fakeExtractor struct {
	meta *model.SourceMetadata
	err  error
	got  string
}

func (e *fakeExtractor) Extract(_ context.Context, sourceURL string) (*model.SourceMetadata, error) {
	e.got = sourceURL
	return e.meta, e.err
}

var defaultMediaConfig = &config.MediaConfig{MaxVideoOptions: 5, MaxAudioOptions: 3, MaxMuxedOptions: 3}

func sampleFormats() []model.StreamDescriptor {
	return []model.StreamDescriptor{
		{FormatID: "137", URL: "https://v/1080", Ext: "mp4", VideoCodec: "avc1", AudioCodec: "none", Height: 1080, Filesize: 47395635},
		{FormatID: "136", URL: "https://v/720", Ext: "mp4", VideoCodec: "avc1", AudioCodec: "none", Height: 720},
		{FormatID: "313", URL: "https://v/2160", Ext: "webm", VideoCodec: "vp9", AudioCodec: "none", Height: 2160},
		{FormatID: "139", URL: "https://a/48", Ext: "m4a", VideoCodec: "none", AudioCodec: "mp4a", Bitrate: 48},
		{FormatID: "140", URL: "https://a/128", Ext: "m4a", VideoCodec: "none", AudioCodec: "mp4a", Bitrate: 129.6, Filesize: 3250586},
		{FormatID: "18", URL: "https://m/360", Ext: "mp4", VideoCodec: "avc1", AudioCodec: "mp4a", Height: 360},
		{FormatID: "sb0", URL: "https://sb", Ext: "mhtml", VideoCodec: "none", AudioCodec: "none"},
		{FormatID: "nourl", Ext: "mp4", VideoCodec: "avc1", AudioCodec: "none", Height: 4320},
	}
}

func TestGetVideoInfo(t *testing.T) {
	extractor := &fakeExtractor{meta: &model.SourceMetadata{
		Title:     "Clip",
		Author:    "Someone",
		Duration:  212,
		Thumbnail: "https://i/thumb.jpg",
		Formats:   sampleFormats(),
	}}
	svc := NewMediaService(extractor, defaultMediaConfig)

	info, err := svc.GetVideoInfo(context.Background(), "https://example.com/watch?v=1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/watch?v=1", extractor.got)

	assert.Equal(t, "Clip", info.Title)
	assert.Equal(t, "Someone", info.Author)
	assert.Equal(t, 212.0, info.Duration)

	require.Len(t, info.VideoOptions, 3)
	assert.Equal(t, "313", info.VideoOptions[0].FormatID)
	assert.Equal(t, "137", info.VideoOptions[1].FormatID)
	assert.Equal(t, "136", info.VideoOptions[2].FormatID)
	assert.Equal(t, "1080p (mp4) - 45.2 MB", info.VideoOptions[1].Quality)
	assert.Equal(t, "720p (mp4)", info.VideoOptions[2].Quality)
	require.NotNil(t, info.VideoOptions[0].Height)
	assert.Equal(t, 2160, *info.VideoOptions[0].Height)

	require.Len(t, info.AudioOptions, 2)
	assert.Equal(t, "140", info.AudioOptions[0].FormatID)
	assert.Equal(t, "130kbps (m4a) - 3.1 MB", info.AudioOptions[0].Quality)
	assert.Nil(t, info.AudioOptions[0].Height)
	assert.Equal(t, "48kbps (m4a)", info.AudioOptions[1].Quality)

	require.Len(t, info.MuxedOptions, 1)
	assert.Equal(t, "360p (mp4)", info.MuxedOptions[0].Quality)
}

func TestSelectOptions_Limits(t *testing.T) {
	var formats []model.StreamDescriptor
	for h := 1; h <= 8; h++ {
		formats = append(formats,
			model.StreamDescriptor{FormatID: "v", URL: "u", VideoCodec: "avc1", AudioCodec: "none", Height: h * 100},
			model.StreamDescriptor{FormatID: "a", URL: "u", AudioCodec: "opus", Bitrate: float64(h * 32)},
			model.StreamDescriptor{FormatID: "m", URL: "u", VideoCodec: "avc1", AudioCodec: "mp4a", Height: h * 100},
		)
	}

	video, audio, muxed := SelectOptions(formats, OptionLimits{Video: 5, Audio: 3, Muxed: 3})
	assert.Len(t, video, 5)
	assert.Len(t, audio, 3)
	assert.Len(t, muxed, 3)
	assert.Equal(t, 800, *video[0].Height)
	assert.Equal(t, "256kbps", audio[0].Quality)
}

func TestSelectOptions_EmptyListsAreNotNil(t *testing.T) {
	video, audio, muxed := SelectOptions(nil, OptionLimits{Video: 5, Audio: 3, Muxed: 3})
	assert.NotNil(t, video)
	assert.NotNil(t, audio)
	assert.NotNil(t, muxed)
}

func TestGetVideoInfo_ExtractorError(t *testing.T) {
	svc := NewMediaService(&fakeExtractor{err: errors.New("Unsupported URL")}, defaultMediaConfig)

	_, err := svc.GetVideoInfo(context.Background(), "https://example.com")
	assert.EqualError(t, err, "Unsupported URL")
}
