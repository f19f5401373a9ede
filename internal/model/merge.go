package model

// MergeRequest represents the request to mux a video and an audio stream
type MergeRequest struct {
	VideoURL string `json:"videoUrl" validate:"required"`
	AudioURL string `json:"audioUrl" validate:"required"`
	Title    string `json:"title"`
}

// MergeResponse is returned once the merge has finished successfully
type MergeResponse struct {
	JobID       string `json:"jobId"`
	DownloadURL string `json:"downloadUrl"`
	Filename    string `json:"filename"`
	Message     string `json:"message"`
}

// ProgressResponse represents the pollable state of a merge job
type ProgressResponse struct {
	Status   JobStatus `json:"status"`
	Progress float64   `json:"progress"`
	Error    *string   `json:"error"`
}
