package gamelog

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind is the type tag of a sub-event.
type Kind string

const (
	KindCounter      Kind = "counter"
	KindScoringTable Kind = "scoringTable"
	KindUnknown      Kind = ""
)

// Log is the decoded embedded event stream.
type Log struct {
	Entries []Entry

	byMove  map[int][]int
	maxMove int
}

// Entry is one move's worth of sub-events.
type Entry struct {
	MoveID int
	Time   string
	Events []Event
}

// Event is a single sub-event. Args holds the raw argument bag; use the typed accessors
// rather than reading it directly.
type Event struct {
	UID  string
	Type string
	Args gjson.Result
}

func newEvent(item gjson.Result) Event {
	return Event{
		UID:  item.Get("uid").String(),
		Type: item.Get("type").String(),
		Args: item.Get("args"),
	}
}

// Kind returns the variant tag, KindUnknown for anything the engine does not interpret.
func (e Event) Kind() Kind {
	switch Kind(e.Type) {
	case KindCounter, KindScoringTable:
		return Kind(e.Type)
	}
	return KindUnknown
}

// Empty reports whether the log carries no entries.
func (l *Log) Empty() bool {
	return l == nil || len(l.Entries) == 0
}

// MaxMove is the highest move id present.
func (l *Log) MaxMove() int {
	if l == nil {
		return 0
	}
	return l.maxMove
}

// ForMove returns every entry for move n in log order.
func (l *Log) ForMove(n int) []Entry {
	if l == nil {
		return nil
	}
	idx := l.byMove[n]
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.Entries[i])
	}
	return out
}

// ActingPlayer returns the player named by the first sub-event of move n.
func (l *Log) ActingPlayer(n int) (string, bool) {
	for _, entry := range l.ForMove(n) {
		if len(entry.Events) == 0 {
			continue
		}
		return entry.Events[0].ActingPlayer()
	}
	return "", false
}

// ActingPlayer reads active_player, falling back to player_id.
func (e Event) ActingPlayer() (string, bool) {
	for _, key := range []string{"active_player", "player_id"} {
		if v := e.Args.Get(key); v.Exists() && v.String() != "" {
			return v.String(), true
		}
	}
	return "", false
}

// CounterUpdate is a tracker value change.
type CounterUpdate struct {
	Name     string
	PlayerID string
	Value    gjson.Result
}

// Counter returns the counter update carried by the event. Any event with a counter name
// and value qualifies; older logs use token_name in place of counter_name.
func (e Event) Counter() (CounterUpdate, bool) {
	value := e.Args.Get("counter_value")
	if !value.Exists() {
		return CounterUpdate{}, false
	}
	name := e.Args.Get("counter_name").String()
	if name == "" {
		name = e.Args.Get("token_name").String()
	}
	if name == "" {
		return CounterUpdate{}, false
	}
	return CounterUpdate{
		Name:     name,
		PlayerID: e.Args.Get("player_id").String(),
		Value:    value,
	}, true
}

// Int coerces the counter value. ok is false when the value is not numeric.
func (c CounterUpdate) Int() (int, bool) {
	switch c.Value.Type {
	case gjson.Number:
		f := c.Value.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(c.Value.Str))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// ScoringTable returns the per-player scoring payload. Newer logs nest it under
// args.data; older ones put the player map directly in args.
func (e Event) ScoringTable() (gjson.Result, bool) {
	if e.Kind() != KindScoringTable {
		return gjson.Result{}, false
	}
	if data := e.Args.Get("data"); data.IsObject() && len(data.Map()) > 0 {
		return data, true
	}
	if e.Args.IsObject() && len(e.Args.Map()) > 0 {
		return e.Args, true
	}
	return gjson.Result{}, false
}

// Placement is a token moved onto a board location.
type Placement struct {
	TokenID string
	PlaceID string
}

// Placement returns the tile token and hex the event places it on.
func (e Event) Placement() (Placement, bool) {
	token := e.Args.Get("token_id").String()
	place := e.Args.Get("place_id").String()
	if !strings.HasPrefix(token, "tile_") || !strings.HasPrefix(place, "hex_") {
		return Placement{}, false
	}
	return Placement{TokenID: token, PlaceID: place}, true
}
