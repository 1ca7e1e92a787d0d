// Package storage is the games registry: reconstructed records keyed by replay id and the
// perspective they were captured from.
package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jwebster45206/replay-engine/pkg/replay"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("record not found")

// Store persists game records.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	SaveRecord(ctx context.Context, rec *replay.GameRecord) error
	LoadRecord(ctx context.Context, replayID, perspective string) (*replay.GameRecord, error)
	DeleteRecord(ctx context.Context, replayID, perspective string) error
	HasRecord(ctx context.Context, replayID, perspective string) (bool, error)
	ListRecords(ctx context.Context) ([]Summary, error)
}

// Summary is the listing view of a stored record.
type Summary struct {
	ReplayID          string `json:"replay_id"`
	PlayerPerspective string `json:"player_perspective"`
	GameDate          string `json:"game_date"`
	Winner            string `json:"winner"`
	Generations       int    `json:"generations"`
	Players           int    `json:"players"`
	ParsedAt          string `json:"parsed_at"`
}

// Summarize builds the listing view of a record.
func Summarize(rec *replay.GameRecord) Summary {
	return Summary{
		ReplayID:          rec.ReplayID,
		PlayerPerspective: rec.PlayerPerspective,
		GameDate:          rec.GameDate,
		Winner:            rec.Winner,
		Generations:       rec.Generations,
		Players:           len(rec.Players),
		ParsedAt:          rec.Metadata.ParsedAt,
	}
}

// Key is the registry key of a record.
func Key(replayID, perspective string) string {
	return "game:" + replayID + ":" + perspective
}

func sortSummaries(s []Summary) {
	slices.SortFunc(s, func(a, b Summary) int {
		return cmp.Or(
			cmp.Compare(a.ReplayID, b.ReplayID),
			cmp.Compare(a.PlayerPerspective, b.PlayerPerspective),
		)
	})
}

// Open builds the backend named by backend ("redis" or "sqlite").
func Open(backend, redisURL, sqlitePath string, ttl time.Duration, logger *slog.Logger) (Store, error) {
	switch backend {
	case "redis", "":
		store, err := NewRedisStore(redisURL, ttl, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite":
		if ttl > 0 && logger != nil {
			logger.Warn("Record TTL is not applied by the sqlite backend", "ttl", ttl)
		}
		store, err := NewSQLiteStore(sqlitePath, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
