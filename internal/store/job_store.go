package store

import (
	"sync"

	"github.com/mergeserver/api/internal/model"
)

// JobStore is a concurrency-safe in-memory table of merge jobs keyed by id.
// Records are stored by value, so every write replaces the whole record and
// readers never observe a half-applied update.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

// NewJobStore creates an empty store
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]model.Job),
	}
}

// Put inserts or replaces the record for job.ID
func (s *JobStore) Put(job model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns a copy of the record for id
func (s *JobStore) Get(id string) (model.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Delete removes the record for id. Deleting an unknown id is a no-op.
func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// Update applies fn to a copy of the record for id while holding the write
// lock and stores the result if fn returns true. It returns the stored record
// and whether a write happened; fn is not called for unknown ids.
func (s *JobStore) Update(id string, fn func(job *model.Job) bool) (model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	if !fn(&job) {
		return s.jobs[id], false
	}
	s.jobs[id] = job
	return job, true
}

// List returns a snapshot of every record
func (s *JobStore) List() []model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// Len returns the number of live records
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
