package model

// VideoInfoRequest represents the query of GET /video-info
type VideoInfoRequest struct {
	URL string `query:"url" validate:"required"`
}

// StreamDescriptor describes one encoding of a source as reported by the metadata tool
type StreamDescriptor struct {
	FormatID   string
	URL        string
	Ext        string
	VideoCodec string
	AudioCodec string
	Height     int
	Bitrate    float64 // kbit/s
	Filesize   int64   // bytes, 0 when unknown
}

// HasVideo reports whether the descriptor carries a video track
func (d StreamDescriptor) HasVideo() bool {
	return d.VideoCodec != "" && d.VideoCodec != "none"
}

// HasAudio reports whether the descriptor carries an audio track
func (d StreamDescriptor) HasAudio() bool {
	return d.AudioCodec != "" && d.AudioCodec != "none"
}

// SourceMetadata is the structured description of a source URL
type SourceMetadata struct {
	Title     string
	Author    string
	Duration  float64
	Thumbnail string
	Formats   []StreamDescriptor
}

// MediaOption is one selectable stream offered to the client
type MediaOption struct {
	Quality  string `json:"quality"`
	URL      string `json:"url"`
	Height   *int   `json:"height,omitempty"`
	FormatID string `json:"format_id"`
}

// VideoInfoResponse represents the response of GET /video-info
type VideoInfoResponse struct {
	Title        string        `json:"title"`
	Author       string        `json:"author"`
	Duration     float64       `json:"duration"`
	Thumbnail    string        `json:"thumbnail"`
	VideoOptions []MediaOption `json:"videoOptions"`
	AudioOptions []MediaOption `json:"audioOptions"`
	MuxedOptions []MediaOption `json:"muxedOptions"`
}
