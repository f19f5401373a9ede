package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mergeserver/api/internal/client"
	"github.com/mergeserver/api/internal/config"
	"github.com/mergeserver/api/internal/model"
	"github.com/mergeserver/api/internal/store"
	"github.com/mergeserver/api/internal/worker"
	"github.com/mergeserver/api/pkg/filename"
)

var (
	ErrMissingParameter = errors.New("missing videoUrl or audioUrl")
	ErrJobNotFound      = errors.New("job not found")
	ErrStillProcessing  = errors.New("still processing")
)

// MergeFailedError is returned by Merge when the muxer run failed.
// The job record stays in the store with status error. Tool names the
// external program that failed, empty when the run never reached it.
type MergeFailedError struct {
	JobID   string
	Tool    string
	Message string
}

func (e *MergeFailedError) Error() string {
	return e.Message
}

// JobFailedError is returned by OpenDownload for a job that ended in error
type JobFailedError struct {
	Message string
}

func (e *JobFailedError) Error() string {
	return e.Message
}

// MergeService owns the lifecycle of merge jobs from creation to delivery
type MergeService struct {
	jobs         *store.JobStore
	worker       *worker.MergeWorker
	outputDir    string
	cleanupDelay time.Duration
	log          zerolog.Logger
}

func NewMergeService(jobs *store.JobStore, w *worker.MergeWorker, cfg *config.MergeConfig, log zerolog.Logger) *MergeService {
	return &MergeService{
		jobs:         jobs,
		worker:       w,
		outputDir:    cfg.OutputDir,
		cleanupDelay: cfg.CleanupDelay,
		log:          log.With().Str("component", "merge_service").Logger(),
	}
}

// Merge creates a job, runs the mux and blocks until it reaches a terminal
// state. On success the completed record is returned.
func (s *MergeService) Merge(ctx context.Context, req *model.MergeRequest) (*model.Job, error) {
	if strings.TrimSpace(req.VideoURL) == "" || strings.TrimSpace(req.AudioURL) == "" {
		return nil, ErrMissingParameter
	}

	jobID := uuid.New().String()
	base := filename.Base(req.Title)
	outputPath := filepath.Join(s.outputDir, base+"_"+jobID+filename.Extension)
	name := filename.FromTitle(req.Title)

	s.jobs.Put(model.Job{
		ID:         jobID,
		Status:     model.JobStatusProcessing,
		Progress:   0,
		OutputPath: outputPath,
		Filename:   name,
		CreatedAt:  time.Now(),
	})
	s.log.Info().Str("job_id", jobID).Str("filename", name).Msg("merge job created")

	err := <-s.worker.Start(ctx, worker.MergeTask{
		JobID:      jobID,
		VideoURL:   req.VideoURL,
		AudioURL:   req.AudioURL,
		OutputPath: outputPath,
		Filename:   name,
	})
	if err != nil {
		failed := &MergeFailedError{JobID: jobID, Message: err.Error()}
		var toolErr *client.ToolError
		if errors.As(err, &toolErr) {
			failed.Tool = toolErr.Tool
		}
		s.log.Warn().
			Str("job_id", failed.JobID).
			Str("tool", failed.Tool).
			Str("error", failed.Message).
			Msg("merge request failed")
		return nil, failed
	}

	job, ok := s.jobs.Get(jobID)
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

// GetProgress returns the current state of a job
func (s *MergeService) GetProgress(jobID string) (*model.ProgressResponse, error) {
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return nil, ErrJobNotFound
	}

	return &model.ProgressResponse{
		Status:   job.Status,
		Progress: job.Progress,
		Error:    job.Error,
	}, nil
}

// OpenDownload claims a completed job for delivery. Closing the returned
// Download schedules removal of the file and the job record, so a job is
// delivered at most once.
func (s *MergeService) OpenDownload(jobID string) (*Download, error) {
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return nil, ErrJobNotFound
	}

	switch job.Status {
	case model.JobStatusProcessing:
		return nil, ErrStillProcessing
	case model.JobStatusError:
		return nil, &JobFailedError{Message: job.ErrorMessage()}
	}

	claimed, ok := s.jobs.Update(jobID, func(j *model.Job) bool {
		if j.Status != model.JobStatusComplete || j.Delivering {
			return false
		}
		j.Delivering = true
		return true
	})
	if !ok {
		return nil, ErrJobNotFound
	}

	f, err := os.Open(claimed.OutputPath)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("output file unavailable")
		removeJob(s.jobs, s.log, jobID, claimed.OutputPath)
		return nil, ErrJobNotFound
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		s.log.Error().Err(err).Str("job_id", jobID).Msg("failed to stat output file")
		removeJob(s.jobs, s.log, jobID, claimed.OutputPath)
		return nil, ErrJobNotFound
	}

	return &Download{
		JobID:    jobID,
		Filename: claimed.Filename,
		Size:     info.Size(),
		file:     f,
		release: func() {
			time.AfterFunc(s.cleanupDelay, func() {
				removeJob(s.jobs, s.log, jobID, claimed.OutputPath)
			})
		},
	}, nil
}

// Download streams a job's output file. Close must be called once the
// transfer ends, whether or not it succeeded.
type Download struct {
	JobID    string
	Filename string
	Size     int64

	file    *os.File
	once    sync.Once
	release func()
}

func (d *Download) Read(p []byte) (int, error) {
	return d.file.Read(p)
}

func (d *Download) Close() error {
	var err error
	d.once.Do(func() {
		err = d.file.Close()
		d.release()
	})
	return err
}

// removeJob deletes a job's output file and then its record
func removeJob(jobs *store.JobStore, log zerolog.Logger, jobID, path string) {
	if path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Error().Err(err).Str("job_id", jobID).Msg("failed to delete output file")
		}
	}
	jobs.Delete(jobID)
	log.Debug().Str("job_id", jobID).Msg("job reclaimed")
}
