// Package names resolves the opaque element ids used by the replay page (cards, milestones,
// awards, board hexes, trackers) to display names.
package names

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/replay-engine/pkg/gamelog"
)

// MinTrackerHints is the number of explicit tracker hints below which the markup is assumed
// incomplete and every tracker id is inferred.
const MinTrackerHints = 10

var (
	cardPattern      = regexp.MustCompile(`<div[^>]+id="(card_[^"]+)"[^>]+data-name="([^"]+)"`)
	milestonePattern = regexp.MustCompile(`<div[^>]+id="(milestone_\d+)"[^>]+data-name="([^"]+)"`)
	awardPattern     = regexp.MustCompile(`<div[^>]+id="(award_\d+)"[^>]+data-name="([^"]+)"`)
	hexPattern       = regexp.MustCompile(`<div[^>]+id="(hex_\d+_\d+)"[^>]+data-name="([^"]+)"`)

	trackerHintPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<[^>]*id="((?:tracker_|counter_)[^"]+)"[^>]*data-name="([^"]+)"[^>]*>`),
		regexp.MustCompile(`(?is)<[^>]*id="((?:tracker_|counter_)[^"]+)"[^>]*title="([^"]+)"[^>]*>`),
	}
	trackerIDPattern = regexp.MustCompile(`(?i)id="((?:tracker_|counter_)[^"]+)"`)

	colorSuffix = regexp.MustCompile(`(?i)_[a-f0-9]{6}$`)
)

// contextWindow is how far around a tracker element to search for a name attribute.
const contextWindow = 1000

// Maps holds every id -> display name table for one game.
type Maps struct {
	Cards      map[string]string
	Milestones map[string]string
	Awards     map[string]string
	Hexes      map[string]string
	Trackers   map[string]string

	// TileHexes maps a placed tile token to the hex it was placed on.
	TileHexes map[string]string
}

// Build scans doc (and l, when non-nil) and returns the full set of name tables.
func Build(doc string, l *gamelog.Log, logger *slog.Logger) *Maps {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Maps{
		Cards:      scanPairs(doc, cardPattern, func(id string) string { return strings.ReplaceAll(id, "_help", "") }),
		Milestones: scanPairs(doc, milestonePattern, nil),
		Awards:     scanPairs(doc, awardPattern, nil),
		Hexes:      scanPairs(doc, hexPattern, nil),
		Trackers:   extractTrackers(doc, logger),
		TileHexes:  tileHexes(l),
	}
	addLogTrackers(m.Trackers, l)

	logger.Debug("Built name maps",
		"cards", len(m.Cards),
		"milestones", len(m.Milestones),
		"awards", len(m.Awards),
		"hexes", len(m.Hexes),
		"trackers", len(m.Trackers),
		"tile_hexes", len(m.TileHexes))
	return m
}

func scanPairs(doc string, pattern *regexp.Regexp, cleanID func(string) string) map[string]string {
	out := make(map[string]string)
	for _, match := range pattern.FindAllStringSubmatch(doc, -1) {
		id := match[1]
		if cleanID != nil {
			id = cleanID(id)
		}
		out[id] = match[2]
	}
	return out
}

func extractTrackers(doc string, logger *slog.Logger) map[string]string {
	trackers := make(map[string]string)
	for _, pattern := range trackerHintPatterns {
		for _, match := range pattern.FindAllStringSubmatch(doc, -1) {
			if name := strings.TrimSpace(match[2]); name != "" {
				trackers[match[1]] = name
			}
		}
	}
	if len(trackers) >= MinTrackerHints {
		return trackers
	}

	logger.Debug("Too few tracker hints, inferring from ids", "hints", len(trackers))
	for _, match := range trackerIDPattern.FindAllStringSubmatch(doc, -1) {
		id := match[1]
		if _, ok := trackers[id]; ok {
			continue
		}
		trackers[id] = nameFromContext(doc, id)
	}
	return trackers
}

// nameFromContext looks for a name attribute on either side of the tracker's id attribute
// before falling back to the id pattern table.
func nameFromContext(doc, id string) string {
	quoted := regexp.QuoteMeta(id)
	loc := regexp.MustCompile(`id="` + quoted + `"`).FindStringIndex(doc)
	if loc == nil {
		return InferTrackerName(id)
	}
	context := doc[max(0, loc[0]-contextWindow):min(len(doc), loc[1]+contextWindow)]

	for _, expr := range []string{
		`(?i)id="` + quoted + `"[^>]*data-name="([^"]+)"`,
		`(?i)id="` + quoted + `"[^>]*title="([^"]+)"`,
		`(?i)data-name="([^"]+)"[^>]*id="` + quoted + `"`,
		`(?i)title="([^"]+)"[^>]*id="` + quoted + `"`,
	} {
		if match := regexp.MustCompile(expr).FindStringSubmatch(context); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return InferTrackerName(id)
}

// addLogTrackers gives a name to counters the log updates but the markup never declares.
func addLogTrackers(trackers map[string]string, l *gamelog.Log) {
	if l == nil {
		return
	}
	for _, entry := range l.Entries {
		for _, ev := range entry.Events {
			c, ok := ev.Counter()
			if !ok {
				continue
			}
			if _, known := trackers[c.Name]; !known && isTrackerID(c.Name) {
				trackers[c.Name] = InferTrackerName(c.Name)
			}
		}
	}
}

func isTrackerID(id string) bool {
	return strings.HasPrefix(id, "tracker_") || strings.HasPrefix(id, "counter_")
}

func tileHexes(l *gamelog.Log) map[string]string {
	out := make(map[string]string)
	if l == nil {
		return out
	}
	for _, entry := range l.Entries {
		for _, ev := range entry.Events {
			if p, ok := ev.Placement(); ok {
				out[p.TokenID] = p.PlaceID
			}
		}
	}
	return out
}

// knownTrackers maps tracker ids with the player color removed to display names.
var knownTrackers = map[string]string{
	"counter_hand":        "Hand Counter",
	"tracker_m":           "MC",
	"tracker_pm":          "MC Production",
	"tracker_s":           "Steel",
	"tracker_ps":          "Steel Production",
	"tracker_u":           "Titanium",
	"tracker_pu":          "Titanium Production",
	"tracker_p":           "Plant",
	"tracker_pp":          "Plant Production",
	"tracker_e":           "Energy",
	"tracker_pe":          "Energy Production",
	"tracker_h":           "Heat",
	"tracker_ph":          "Heat Production",
	"tracker_tagBuilding": "Count of Building tags",
	"tracker_tagSpace":    "Count of Space tags",
	"tracker_tagScience":  "Count of Science tags",
	"tracker_tagEnergy":   "Count of Power tags",
	"tracker_tagEarth":    "Count of Earth tags",
	"tracker_tagJovian":   "Count of Jovian tags",
	"tracker_tagCity":     "Count of City tags",
	"tracker_tagPlant":    "Count of Plant tags",
	"tracker_tagMicrobe":  "Count of Microbe tags",
	"tracker_tagAnimal":   "Count of Animal tags",
	"tracker_tagWild":     "Count of Wild tags",
	"tracker_tagEvent":    "Count of played Events cards",
}

// InferTrackerName derives a display name from the id alone. Ids with no known pattern
// get an "Unknown (<base id>)" placeholder so every tracker has some name.
func InferTrackerName(id string) string {
	base := colorSuffix.ReplaceAllString(id, "")
	if name, ok := knownTrackers[base]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%s)", base)
}

// IsPlayerTracker reports whether the id carries a player color suffix.
func IsPlayerTracker(id string) bool {
	return colorSuffix.MatchString(id)
}

// globalTrackerNames are substrings of display names tracked outside the per-player table.
var globalTrackerNames = []string{
	"Temperature", "Oxygen Level", "Oceans", "TR", "Global Parameters Delta",
	"Number of Greenery on Mars", "Number of owned land", "Number of Cities",
	"Number of Cities on Mars", "Pass", "Steel Exchange Rate", "Titanium Exchange Rate",
}

// IsGlobalTrackerName reports whether a display name belongs to a global parameter.
func IsGlobalTrackerName(name string) bool {
	for _, pattern := range globalTrackerNames {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

// Card resolves a card id, returning the id itself when unmapped.
func (m *Maps) Card(id string) string { return lookup(m.Cards, id) }

// Milestone resolves a milestone id, returning the id itself when unmapped.
func (m *Maps) Milestone(id string) string { return lookup(m.Milestones, id) }

// Award resolves an award id, returning the id itself when unmapped.
func (m *Maps) Award(id string) string { return lookup(m.Awards, id) }

// TileLocation returns the display name of the hex a tile was placed on.
func (m *Maps) TileLocation(tileID string) (string, bool) {
	if m == nil {
		return "", false
	}
	hex, ok := m.TileHexes[tileID]
	if !ok {
		return "", false
	}
	name, ok := m.Hexes[hex]
	return name, ok
}

// MilestoneNames returns the resolved milestone display names.
func (m *Maps) MilestoneNames() []string { return values(m, func(m *Maps) map[string]string { return m.Milestones }) }

// AwardNames returns the resolved award display names.
func (m *Maps) AwardNames() []string { return values(m, func(m *Maps) map[string]string { return m.Awards }) }

func lookup(table map[string]string, id string) string {
	if name, ok := table[id]; ok {
		return name
	}
	return id
}

func values(m *Maps, pick func(*Maps) map[string]string) []string {
	if m == nil {
		return nil
	}
	table := pick(m)
	out := make([]string, 0, len(table))
	for _, name := range table {
		out = append(out, name)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
