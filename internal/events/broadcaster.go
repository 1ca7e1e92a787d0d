package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/replay-engine/internal/queue"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeJobQueued     EventType = "job.queued"
	EventTypeJobProcessing EventType = "job.processing"
	EventTypeJobCompleted  EventType = "job.completed"
	EventTypeJobFailed     EventType = "job.failed"
)

// AllChannel receives every event regardless of replay.
const AllChannel = "replay-events"

// Event represents a generic event structure
type Event struct {
	Type              EventType      `json:"type"`
	JobID             string         `json:"job_id,omitempty"`
	ReplayID          string         `json:"replay_id"`
	PlayerPerspective string         `json:"player_perspective"`
	Data              map[string]any `json:"data,omitempty"`
}

// Broadcaster publishes job lifecycle events to Redis Pub/Sub
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel is the per-replay channel events for one capture are published to.
func Channel(replayID, perspective string) string {
	return fmt.Sprintf("replay-events:%s:%s", replayID, perspective)
}

// PublishJobQueued publishes a job.queued event
func (b *Broadcaster) PublishJobQueued(ctx context.Context, job *queue.Job) error {
	return b.publish(ctx, newEvent(EventTypeJobQueued, job, map[string]any{
		"status": "queued",
	}))
}

// PublishJobProcessing publishes a job.processing event
func (b *Broadcaster) PublishJobProcessing(ctx context.Context, job *queue.Job, workerID string) error {
	return b.publish(ctx, newEvent(EventTypeJobProcessing, job, map[string]any{
		"status":    "processing",
		"worker_id": workerID,
	}))
}

// PublishJobCompleted publishes a job.completed event
func (b *Broadcaster) PublishJobCompleted(ctx context.Context, job *queue.Job, result map[string]any) error {
	return b.publish(ctx, newEvent(EventTypeJobCompleted, job, map[string]any{
		"status": "completed",
		"result": result,
	}))
}

// PublishJobFailed publishes a job.failed event
func (b *Broadcaster) PublishJobFailed(ctx context.Context, job *queue.Job, errorMsg string) error {
	return b.publish(ctx, newEvent(EventTypeJobFailed, job, map[string]any{
		"status": "failed",
		"error":  errorMsg,
	}))
}

func newEvent(t EventType, job *queue.Job, data map[string]any) Event {
	return Event{
		Type:              t,
		JobID:             job.JobID,
		ReplayID:          job.ReplayID,
		PlayerPerspective: job.PlayerPerspective,
		Data:              data,
	}
}

// publish sends the event to the replay channel and to AllChannel.
func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := Channel(event.ReplayID, event.PlayerPerspective)
	pipe := b.redisClient.Pipeline()
	pipe.Publish(ctx, channel, data)
	pipe.Publish(ctx, AllChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"job_id", event.JobID,
	)
	return nil
}
