// Package counters replays tracker updates from the embedded log into a per-move table of
// named player counters (resources, production, tag counts).
package counters

import (
	"log/slog"

	"github.com/jwebster45206/replay-engine/pkg/gamelog"
	"github.com/jwebster45206/replay-engine/pkg/names"
	"github.com/jwebster45206/replay-engine/pkg/replay"
)

// Table maps player_id -> tracker display name -> value.
type Table = map[string]map[string]int

// Timeline holds one Table per move, from move 1 through the highest move in the log.
type Timeline struct {
	initial Table
	moves   []Table
}

// Build seeds every known player with zero for each player-specific tracker, then applies
// the log's counter updates move by move. Updates for unknown players or unseeded trackers
// are ignored; non-numeric values become 0.
func Build(l *gamelog.Log, m *names.Maps, playerIDs []string, logger *slog.Logger) *Timeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	seeded := seedNames(m)
	current := make(Table, len(playerIDs))
	for _, id := range playerIDs {
		row := make(map[string]int, len(seeded))
		for name := range seeded {
			row[name] = 0
		}
		current[id] = row
	}

	t := &Timeline{initial: replay.CloneTrackers(current)}
	maxMove := l.MaxMove()
	t.moves = make([]Table, 0, maxMove)

	applied := 0
	for move := 1; move <= maxMove; move++ {
		for _, entry := range l.ForMove(move) {
			for _, ev := range entry.Events {
				if apply(current, ev, m, seeded, move, logger) {
					applied++
				}
			}
		}
		t.moves = append(t.moves, replay.CloneTrackers(current))
	}

	logger.Info("Built counter timeline",
		"players", len(playerIDs),
		"trackers", len(seeded),
		"moves", maxMove,
		"updates", applied)
	return t
}

// seedNames collects the display names of trackers that carry a player color suffix and are
// not global parameters.
func seedNames(m *names.Maps) map[string]bool {
	out := make(map[string]bool)
	if m == nil {
		return out
	}
	for id, name := range m.Trackers {
		if names.IsPlayerTracker(id) && !names.IsGlobalTrackerName(name) {
			out[name] = true
		}
	}
	return out
}

func apply(current Table, ev gamelog.Event, m *names.Maps, seeded map[string]bool, move int, logger *slog.Logger) bool {
	c, ok := ev.Counter()
	if !ok || c.PlayerID == "" || m == nil {
		return false
	}
	name, ok := m.Trackers[c.Name]
	if !ok || !seeded[name] {
		return false
	}
	row, ok := current[c.PlayerID]
	if !ok {
		return false
	}
	value, ok := c.Int()
	if !ok {
		logger.Debug("Counter value is not an integer, using 0",
			"move", move, "tracker", c.Name, "value", c.Value.Raw)
		value = 0
	}
	row[name] = value
	return true
}

// At returns a copy of the table as of the end of move n. Moves before the first return the
// seeded table; moves past the end of the log carry the final table forward.
func (t *Timeline) At(n int) Table {
	if t == nil {
		return Table{}
	}
	switch {
	case n < 1 || len(t.moves) == 0:
		return replay.CloneTrackers(t.initial)
	case n > len(t.moves):
		return replay.CloneTrackers(t.moves[len(t.moves)-1])
	}
	return replay.CloneTrackers(t.moves[n-1])
}

// Trackers returns the number of tracker names seeded per player.
func (t *Timeline) Trackers() int {
	if t == nil {
		return 0
	}
	for _, row := range t.initial {
		return len(row)
	}
	return 0
}

// Len returns the number of moves covered.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.moves)
}
