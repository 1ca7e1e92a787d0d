package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// DefaultName is the list parse jobs are pushed to when no name is configured.
const DefaultName = "parse-jobs"

// ParseQueue is a FIFO of parse jobs on a Redis list, with a dead-letter list for jobs that
// failed.
type ParseQueue struct {
	client *Client
	name   string
}

func NewParseQueue(client *Client, name string) *ParseQueue {
	if name == "" {
		name = DefaultName
	}
	return &ParseQueue{
		client: client,
		name:   name,
	}
}

// Name is the Redis key of the queue.
func (q *ParseQueue) Name() string {
	return q.name
}

// FailedName is the Redis key of the dead-letter list.
func (q *ParseQueue) FailedName() string {
	return q.name + ":failed"
}

// Enqueue adds a job to the end of the queue
func (q *ParseQueue) Enqueue(ctx context.Context, job *Job) error {
	data, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue removes and returns the next job.
// Returns nil if queue is empty
func (q *ParseQueue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.rdb.LPop(ctx, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	return decode(result)
}

// BlockingDequeue waits up to timeout for a job. Returns nil when the timeout passes with
// the queue still empty.
func (q *ParseQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}
	return decode(result[1])
}

// Depth returns the number of jobs waiting
func (q *ParseQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}

// Fail moves a job to the dead-letter list along with the reason.
func (q *ParseQueue) Fail(ctx context.Context, job *Job, workerID string, cause error) error {
	entry := FailedJob{
		Job:      job,
		WorkerID: workerID,
		FailedAt: time.Now().UTC(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize failed job: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, q.FailedName(), data).Err(); err != nil {
		return fmt.Errorf("failed to dead-letter job: %w", err)
	}
	return nil
}

// Failed returns up to limit dead-lettered jobs, oldest first. A limit of 0 returns all.
func (q *ParseQueue) Failed(ctx context.Context, limit int) ([]FailedJob, error) {
	end := int64(limit - 1)
	if limit <= 0 {
		end = -1 // Get all
	}
	raw, err := q.client.rdb.LRange(ctx, q.FailedName(), 0, end).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read dead-letter list: %w", err)
	}
	out := make([]FailedJob, 0, len(raw))
	for _, item := range raw {
		var entry FailedJob
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse failed job: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func decode(raw string) (*Job, error) {
	job, err := FromJSON([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	return job, nil
}
