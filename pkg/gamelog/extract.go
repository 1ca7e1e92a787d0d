package gamelog

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Marker is the script variable the replay page assigns the event log to.
const Marker = "g_gamelogs"

var markerPattern = regexp.MustCompile(Marker + `\s*=\s*`)

// MalformedLogError reports that the embedded log could not be located or decoded.
// It is never fatal: the returned Log is empty and callers fall back to the markup.
type MalformedLogError struct {
	Reason string
}

func (e *MalformedLogError) Error() string {
	return "malformed embedded log: " + e.Reason
}

// Extract locates the embedded event log in doc and decodes it. On failure it returns an
// empty, non-nil Log together with a *MalformedLogError.
func Extract(doc string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	raw, err := locate(doc)
	if err != nil {
		logger.Warn("Embedded log unavailable", "error", err)
		return &Log{}, err
	}

	l, err := Decode(raw)
	if err != nil {
		logger.Warn("Embedded log unavailable", "error", err)
		return &Log{}, err
	}

	logger.Debug("Decoded embedded log", "entries", len(l.Entries), "max_move", l.MaxMove())
	return l, nil
}

// locate returns the JSON object assigned to the marker, matching braces while skipping
// over string literals and backslash escapes.
func locate(doc string) (string, error) {
	loc := markerPattern.FindStringIndex(doc)
	if loc == nil {
		return "", &MalformedLogError{Reason: Marker + " not found"}
	}
	start := loc[1]

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(doc); i++ {
		c := doc[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return doc[start : i+1], nil
			}
			if depth < 0 {
				return "", &MalformedLogError{Reason: "unbalanced closing brace"}
			}
		case c == ';' && depth == 0:
			return "", &MalformedLogError{Reason: "statement ended before an object was found"}
		}
	}
	return "", &MalformedLogError{Reason: "braces never balanced"}
}

// Decode parses the JSON text of an embedded log. Entries whose move_id is not a positive
// integer are dropped.
func Decode(raw string) (*Log, error) {
	if !gjson.Valid(raw) {
		return &Log{}, &MalformedLogError{Reason: "invalid JSON"}
	}

	root := gjson.Parse(raw)
	entries := root.Get("data.data")
	if !entries.IsArray() {
		entries = root.Get("data")
	}
	if !entries.IsArray() {
		return &Log{}, &MalformedLogError{Reason: "no entry list in log"}
	}

	l := &Log{byMove: make(map[int][]int)}
	entries.ForEach(func(_, entry gjson.Result) bool {
		if !entry.IsObject() {
			return true
		}
		moveID, ok := parseMoveID(entry.Get("move_id"))
		if !ok {
			return true
		}
		e := Entry{
			MoveID: moveID,
			Time:   entry.Get("time").String(),
		}
		entry.Get("data").ForEach(func(_, item gjson.Result) bool {
			if item.IsObject() {
				e.Events = append(e.Events, newEvent(item))
			}
			return true
		})
		l.byMove[moveID] = append(l.byMove[moveID], len(l.Entries))
		l.Entries = append(l.Entries, e)
		if moveID > l.maxMove {
			l.maxMove = moveID
		}
		return true
	})

	return l, nil
}

func parseMoveID(v gjson.Result) (int, bool) {
	if !v.Exists() {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.String()))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// String implements fmt.Stringer for log output.
func (l *Log) String() string {
	return fmt.Sprintf("gamelog(%d entries, max move %d)", len(l.Entries), l.maxMove)
}
