package queue

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Job asks a worker to reconstruct one replay capture.
type Job struct {
	JobID             string          `json:"job_id"`
	ReplayID          string          `json:"replay_id"`
	PlayerPerspective string          `json:"player_perspective"`
	ReplayHTML        string          `json:"replay_html"`
	TableHTML         string          `json:"table_html,omitempty"`
	Assignment        json.RawMessage `json:"assignment,omitempty"`
	// Reprocess forces a parse even when a record already exists.
	Reprocess  bool      `json:"reprocess,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// FailedJob is a dead-lettered job with the reason it failed.
type FailedJob struct {
	Job      *Job      `json:"job"`
	Error    string    `json:"error"`
	WorkerID string    `json:"worker_id,omitempty"`
	FailedAt time.Time `json:"failed_at"`
}

// NewJob fills in a fresh id and the enqueue time.
func NewJob(replayID, perspective, replayHTML string) *Job {
	return &Job{
		JobID:             uuid.NewString(),
		ReplayID:          replayID,
		PlayerPerspective: perspective,
		ReplayHTML:        replayHTML,
		EnqueuedAt:        time.Now().UTC(),
	}
}

// Key identifies the record the job produces.
func (j *Job) Key() string {
	return j.ReplayID + ":" + j.PlayerPerspective
}

// ToJSON converts the job to JSON bytes for Redis
func (j *Job) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// FromJSON parses a job from JSON bytes
func FromJSON(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
