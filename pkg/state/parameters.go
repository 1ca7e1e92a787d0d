package state

import (
	"log/slog"

	"github.com/jwebster45206/replay-engine/pkg/gamelog"
)

// Global parameter tracker ids.
const (
	trackerTemperature = "tracker_t"
	trackerOxygen      = "tracker_o"
	trackerOceans      = "tracker_w"
)

// Starting values of the global parameters.
const (
	StartTemperature = -30
	StartOxygen      = 0
	StartOceans      = 0
	StartGeneration  = 1
)

// ParameterChange holds the global parameters a move set. Nil fields were not touched.
type ParameterChange struct {
	Temperature *int
	Oxygen      *int
	Oceans      *int
}

func (c ParameterChange) empty() bool {
	return c.Temperature == nil && c.Oxygen == nil && c.Oceans == nil
}

// ParameterChanges scans counter events for global parameter trackers and returns the final
// value each move left them at. Non-numeric values are skipped.
func ParameterChanges(l *gamelog.Log, logger *slog.Logger) map[int]ParameterChange {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	out := make(map[int]ParameterChange)
	if l.Empty() {
		return out
	}

	for _, entry := range l.Entries {
		change := out[entry.MoveID]
		for _, ev := range entry.Events {
			if ev.Kind() != gamelog.KindCounter {
				continue
			}
			c, ok := ev.Counter()
			if !ok {
				continue
			}
			value, ok := c.Int()
			if !ok {
				continue
			}
			switch c.Name {
			case trackerTemperature:
				change.Temperature = &value
			case trackerOxygen:
				change.Oxygen = &value
			case trackerOceans:
				change.Oceans = &value
			}
		}
		if !change.empty() {
			out[entry.MoveID] = change
		}
	}

	logger.Debug("Extracted global parameter changes", "moves", len(out))
	return out
}
