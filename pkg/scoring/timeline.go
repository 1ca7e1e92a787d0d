// Package scoring extracts victory point snapshots from the embedded log and rewrites their
// internal ids to display names.
package scoring

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jwebster45206/replay-engine/pkg/gamelog"
	"github.com/jwebster45206/replay-engine/pkg/names"
	"github.com/jwebster45206/replay-engine/pkg/replay"
)

// Detail categories that receive special handling.
const (
	categoryTR         = "tr"
	categoryCards      = "cards"
	categoryMilestones = "milestones"
	categoryAwards     = "awards"
	categoryCities     = "cities"
	categoryGreeneries = "greeneries"
)

// Snapshot is one scoring table as reported at a move.
type Snapshot struct {
	MoveNumber int
	Time       string
	UID        string

	// VP maps player_id to that player's breakdown.
	VP map[string]replay.VPBreakdown
}

// Build returns every scoring snapshot in log order. Snapshots for the same move are all
// kept; Index resolves them.
func Build(l *gamelog.Log, m *names.Maps, logger *slog.Logger) []Snapshot {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if l.Empty() {
		return nil
	}

	var out []Snapshot
	for _, entry := range l.Entries {
		for _, ev := range entry.Events {
			table, ok := ev.ScoringTable()
			if !ok {
				continue
			}
			snap := Snapshot{
				MoveNumber: entry.MoveID,
				Time:       entry.Time,
				UID:        ev.UID,
				VP:         convertTable(table, m),
			}
			if len(snap.VP) == 0 {
				logger.Debug("Scoring table carried no player entries", "move", entry.MoveID, "uid", ev.UID)
				continue
			}
			out = append(out, snap)
		}
	}

	logger.Info("Extracted scoring snapshots", "count", len(out))
	return out
}

// Index maps move number to the last snapshot seen for that move.
func Index(snaps []Snapshot) map[int]map[string]replay.VPBreakdown {
	out := make(map[int]map[string]replay.VPBreakdown, len(snaps))
	for _, s := range snaps {
		out[s.MoveNumber] = s.VP
	}
	return out
}

func convertTable(table gjson.Result, m *names.Maps) map[string]replay.VPBreakdown {
	out := make(map[string]replay.VPBreakdown)
	table.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() {
			out[key.String()] = convertPlayer(value, m)
		}
		return true
	})
	return out
}

func convertPlayer(v gjson.Result, m *names.Maps) replay.VPBreakdown {
	vp := replay.VPBreakdown{
		Total:        int(v.Get("total").Int()),
		TotalDetails: make(map[string]int),
	}
	v.Get("total_details").ForEach(func(key, value gjson.Result) bool {
		vp.TotalDetails[key.String()] = int(value.Int())
		return true
	})

	details := v.Get("details")
	if !details.IsObject() {
		return vp
	}
	vp.Details = make(map[string]map[string]json.RawMessage)
	details.ForEach(func(key, items gjson.Result) bool {
		category := key.String()
		if category == categoryTR || !items.IsObject() {
			return true
		}
		renamed := make(map[string]json.RawMessage)
		items.ForEach(func(itemKey, item gjson.Result) bool {
			renamed[itemName(category, itemKey.String(), m)] = json.RawMessage(item.Raw)
			return true
		})
		vp.Details[category] = renamed
		return true
	})
	return vp
}

// itemName resolves a detail item id. Placed tiles are named after the hex they occupy when
// the log recorded the placement.
func itemName(category, id string, m *names.Maps) string {
	if m == nil {
		return id
	}
	switch category {
	case categoryCards:
		return m.Card(id)
	case categoryMilestones:
		return m.Milestone(id)
	case categoryAwards:
		return m.Award(id)
	case categoryCities, categoryGreeneries:
		if strings.HasPrefix(id, "tile_") {
			if hex, ok := m.TileLocation(id); ok {
				return hex
			}
		}
	}
	return id
}
