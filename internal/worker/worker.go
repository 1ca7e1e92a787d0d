package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/replay-engine/internal/events"
	"github.com/jwebster45206/replay-engine/internal/logger"
	"github.com/jwebster45206/replay-engine/internal/queue"
	"github.com/jwebster45206/replay-engine/internal/storage"
	"github.com/jwebster45206/replay-engine/pkg/parser"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 30 * time.Second

	// Sizing of the parsed-record pre-filter.
	expectedRecords   = 200000
	falsePositiveRate = 0.001
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Outcome is what happened to one dequeued job.
type Outcome string

const (
	OutcomeIdle     Outcome = "idle"
	OutcomeParsed   Outcome = "parsed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeRequeued Outcome = "requeued"
	OutcomeFailed   Outcome = "failed"
)

// Worker consumes parse jobs, reconstructs the replay and saves the record.
type Worker struct {
	id          string
	queue       *queue.ParseQueue
	parser      *parser.Parser
	store       storage.Store
	redisClient *redis.Client
	broadcaster *events.Broadcaster
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc

	// parsed holds the keys of records known to exist. A miss means the record is
	// definitely absent; a hit is confirmed against the store.
	mu     sync.Mutex
	parsed *bloom.BloomFilter
}

// New creates a new worker instance
func New(q *queue.ParseQueue, p *parser.Parser, store storage.Store, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       q,
		parser:      p,
		store:       store,
		redisClient: redisClient,
		broadcaster: events.NewBroadcaster(redisClient, log),
		log:         log.With("worker_id", workerID),
		ctx:         ctx,
		cancel:      cancel,
		parsed:      bloom.NewWithEstimates(expectedRecords, falsePositiveRate),
	}
}

// ID returns the worker id used for lock ownership.
func (w *Worker) ID() string {
	return w.id
}

// Warm seeds the pre-filter with every record already in the registry.
func (w *Worker) Warm(ctx context.Context) error {
	summaries, err := w.store.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm record filter: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range summaries {
		w.parsed.AddString(storage.Key(s.ReplayID, s.PlayerPerspective))
	}
	w.log.Info("Record filter warmed", "records", len(summaries))
	return nil
}

// Start begins processing jobs from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting")

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
			if _, err := w.processNext(); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				w.log.Error("Error processing job", "error", err)
				// Continue processing even on error
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

// processNext pulls the next job from the queue and handles it. Parse and save failures
// are dead-lettered and do not surface as errors.
func (w *Worker) processNext() (Outcome, error) {
	job, err := w.queue.BlockingDequeue(w.ctx, workerTimeout)
	if err != nil {
		return OutcomeIdle, fmt.Errorf("failed to dequeue job: %w", err)
	}
	if job == nil {
		return OutcomeIdle, nil
	}

	log := logger.WithReplay(w.log, job.ReplayID, job.PlayerPerspective).With("job_id", job.JobID)
	log.Info("Received job from queue")

	if !job.Reprocess {
		exists, err := w.recordExists(job)
		if err != nil {
			return OutcomeIdle, err
		}
		if exists {
			log.Info("Record already exists, skipping job")
			return OutcomeSkipped, nil
		}
	}

	locked, err := w.acquireLock(job)
	if err != nil {
		return OutcomeIdle, fmt.Errorf("failed to acquire replay lock: %w", err)
	}
	if !locked {
		// Another worker is processing this replay
		log.Info("Replay already locked, re-queueing job")
		if err := w.queue.Enqueue(w.ctx, job); err != nil {
			return OutcomeIdle, fmt.Errorf("failed to re-queue job: %w", err)
		}
		return OutcomeRequeued, nil
	}
	defer w.releaseLock(job)

	if err := w.broadcaster.PublishJobProcessing(w.ctx, job, w.id); err != nil {
		// Don't fail the job just because event publishing failed
		log.Warn("Failed to publish processing event", "error", err)
	}

	if err := w.processJob(job, log); err != nil {
		log.Error("Job failed", "error", err)
		if pubErr := w.broadcaster.PublishJobFailed(w.ctx, job, err.Error()); pubErr != nil {
			log.Warn("Failed to publish failure event", "error", pubErr)
		}
		if failErr := w.queue.Fail(w.ctx, job, w.id, err); failErr != nil {
			return OutcomeFailed, failErr
		}
		return OutcomeFailed, nil
	}
	return OutcomeParsed, nil
}

func (w *Worker) processJob(job *queue.Job, log *slog.Logger) error {
	start := time.Now()

	rec, err := w.parser.Parse(parser.Capture{
		ReplayID:          job.ReplayID,
		PlayerPerspective: job.PlayerPerspective,
		ReplayHTML:        job.ReplayHTML,
		TableHTML:         job.TableHTML,
		Assignment:        job.Assignment,
	})
	if err != nil {
		return err
	}
	if err := w.store.SaveRecord(w.ctx, rec); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	w.mu.Lock()
	w.parsed.AddString(storage.Key(job.ReplayID, job.PlayerPerspective))
	w.mu.Unlock()

	log.Info("Job processed successfully",
		"moves", len(rec.Moves),
		"winner", rec.Winner,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	result := map[string]any{
		"moves":       len(rec.Moves),
		"winner":      rec.Winner,
		"generations": rec.Generations,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err := w.broadcaster.PublishJobCompleted(w.ctx, job, result); err != nil {
		log.Warn("Failed to publish completion event", "error", err)
	}
	return nil
}

func (w *Worker) recordExists(job *queue.Job) (bool, error) {
	w.mu.Lock()
	maybe := w.parsed.TestString(storage.Key(job.ReplayID, job.PlayerPerspective))
	w.mu.Unlock()
	if !maybe {
		return false, nil
	}
	has, err := w.store.HasRecord(w.ctx, job.ReplayID, job.PlayerPerspective)
	if err != nil {
		return false, fmt.Errorf("failed to check registry: %w", err)
	}
	return has, nil
}

func lockKey(job *queue.Job) string {
	return "game-lock:" + job.Key()
}

// acquireLock returns false when another worker holds the lock.
func (w *Worker) acquireLock(job *queue.Job) (bool, error) {
	return w.redisClient.SetNX(w.ctx, lockKey(job), w.id, lockTTL).Result()
}

// releaseLock only deletes the lock if this worker owns it. It runs even after Stop.
func (w *Worker) releaseLock(job *queue.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
	defer cancel()
	if err := releaseScript.Run(ctx, w.redisClient, []string{lockKey(job)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release replay lock", "error", err, "key", job.Key())
	}
}
