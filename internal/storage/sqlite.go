package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/replay-engine/pkg/replay"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
	CREATE TABLE IF NOT EXISTS games (
		replay_id TEXT NOT NULL,
		player_perspective TEXT NOT NULL,
		game_date TEXT NOT NULL,
		winner TEXT NOT NULL,
		generations INTEGER NOT NULL,
		players INTEGER NOT NULL,
		parsed_at TEXT NOT NULL,
		record TEXT NOT NULL,
		PRIMARY KEY (replay_id, player_perspective)
	);
`

// SQLiteStore keeps records in a local sqlite file with summary columns for listing.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRecord(ctx context.Context, rec *replay.GameRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	sum := Summarize(rec)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (replay_id, player_perspective, game_date, winner, generations, players, parsed_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (replay_id, player_perspective) DO UPDATE SET
			game_date = excluded.game_date,
			winner = excluded.winner,
			generations = excluded.generations,
			players = excluded.players,
			parsed_at = excluded.parsed_at,
			record = excluded.record`,
		sum.ReplayID, sum.PlayerPerspective, sum.GameDate, sum.Winner,
		sum.Generations, sum.Players, sum.ParsedAt, string(data))
	if err != nil {
		s.logger.Error("Failed to save record", "key", Key(rec.ReplayID, rec.PlayerPerspective), "error", err)
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadRecord(ctx context.Context, replayID, perspective string) (*replay.GameRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM games WHERE replay_id = ? AND player_perspective = ?`,
		replayID, perspective).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	var rec replay.GameRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", Key(replayID, perspective), err)
	}
	return &rec, nil
}

func (s *SQLiteStore) DeleteRecord(ctx context.Context, replayID, perspective string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM games WHERE replay_id = ? AND player_perspective = ?`, replayID, perspective)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) HasRecord(ctx context.Context, replayID, perspective string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM games WHERE replay_id = ? AND player_perspective = ?`,
		replayID, perspective).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check record: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT replay_id, player_perspective, game_date, winner, generations, players, parsed_at
		FROM games ORDER BY replay_id, player_perspective`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ReplayID, &sum.PlayerPerspective, &sum.GameDate, &sum.Winner,
			&sum.Generations, &sum.Players, &sum.ParsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record summary: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	// ORDER BY uses the database collation; sort again so every backend agrees.
	sortSummaries(out)
	return out, nil
}
