package moves

import (
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/jwebster45206/replay-engine/pkg/gamelog"
	"github.com/jwebster45206/replay-engine/pkg/markup"
	"github.com/jwebster45206/replay-engine/pkg/replay"
)

// Class names used by the rendered replay log.
const (
	moveClass     = "replaylogs_move"
	headerClass   = "smalltext"
	entryClass    = "gamelogreview"
	cardLinkClass = "card_hl_tt"
)

// DescriptionSeparator joins the text of a move's log entries.
const DescriptionSeparator = " | "

var (
	moveNumberPattern = regexp.MustCompile(`Move (\d+)`)
	timestampPattern  = regexp.MustCompile(`(\d{1,2}:\d{2}:\d{2})`)
	cardTextPattern   = regexp.MustCompile(`plays card (.+)`)
)

// actionVerbs must appear next to a player name for the text fallback to attribute a move.
var actionVerbs = []string{"plays", "pays", "gains", "increases", "reduces", "places", "chooses"}

// tileKinds are the tiles whose placement is captured on the move.
var tileKinds = []string{"City", "Forest", "Ocean"}

// Extractor turns rendered move blocks into Moves, consulting the embedded log for the
// acting player when it can.
type Extractor struct {
	log     *gamelog.Log
	players map[string]string
	byName  []namedPlayer
	logger  *slog.Logger
}

type namedPlayer struct {
	id   string
	name string
}

// NewExtractor builds an extractor for the given player_id -> display name roster. l may be
// empty when the embedded log was unavailable.
func NewExtractor(l *gamelog.Log, players map[string]string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	byName := make([]namedPlayer, 0, len(players))
	for id, name := range players {
		byName = append(byName, namedPlayer{id: id, name: norm.NFC.String(name)})
	}
	// Longer names first so "Ann" never shadows "Anne"; then by name for a stable order.
	slices.SortFunc(byName, func(a, b namedPlayer) int {
		if len(a.name) != len(b.name) {
			return len(b.name) - len(a.name)
		}
		return strings.Compare(a.name, b.name)
	})
	return &Extractor{log: l, players: players, byName: byName, logger: logger}
}

// Extract returns one Move per well-formed move block, ordered by move number. Blocks that
// repeat an earlier move number are dropped.
func (x *Extractor) Extract(root *html.Node) []replay.Move {
	var out []replay.Move
	for _, block := range markup.FindAll(root, "div", moveClass) {
		if m, ok := x.parseMove(block); ok {
			out = append(out, m)
		}
	}

	slices.SortStableFunc(out, func(a, b replay.Move) int { return a.MoveNumber - b.MoveNumber })
	out = slices.CompactFunc(out, func(a, b replay.Move) bool { return a.MoveNumber == b.MoveNumber })

	x.logger.Debug("Extracted moves", "count", len(out))
	return out
}

func (x *Extractor) parseMove(block *html.Node) (replay.Move, bool) {
	header := markup.Find(block, "div", headerClass)
	if header == nil {
		return replay.Move{}, false
	}
	headerText := markup.Text(header)
	numberMatch := moveNumberPattern.FindStringSubmatch(headerText)
	if numberMatch == nil {
		return replay.Move{}, false
	}
	number, err := strconv.Atoi(numberMatch[1])
	if err != nil {
		return replay.Move{}, false
	}

	entries := markup.FindAll(block, "div", entryClass)
	if len(entries) == 0 {
		return replay.Move{}, false
	}
	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = norm.NFC.String(strings.TrimSpace(markup.Text(entry)))
	}
	description := strings.Join(texts, DescriptionSeparator)

	m := replay.Move{
		MoveNumber:  number,
		Description: description,
		ActionType:  Classify(description),
	}
	if ts := timestampPattern.FindStringSubmatch(headerText); ts != nil {
		m.Timestamp = ts[1]
	}

	m.PlayerID, m.PlayerName = x.actingPlayer(number, texts)
	m.CardPlayed = cardPlayed(entries, texts)
	m.TilePlaced, m.TileLocation = tilePlacement(texts)
	return m, true
}

// actingPlayer prefers the embedded log's player field and falls back to scanning the
// rendered text.
func (x *Extractor) actingPlayer(number int, texts []string) (string, string) {
	if id, ok := x.log.ActingPlayer(number); ok {
		if name, known := x.players[id]; known {
			return id, name
		}
		x.logger.Debug("Acting player missing from roster", "move", number, "player_id", id)
		return id, "Player_" + id
	}

	for _, text := range texts {
		for _, p := range x.byName {
			if strings.Contains(text, p.name) && containsAny(text, actionVerbs) {
				return p.id, x.players[p.id]
			}
		}
		if strings.HasPrefix(text, "You ") {
			return replay.SelfPlayerID, replay.SelfPlayerName
		}
	}
	return replay.UnknownPlayerID, replay.UnknownPlayerName
}

// classifiers are tried in order; the first match wins.
var classifiers = []struct {
	kind  replay.ActionKind
	match func(string) bool
}{
	{replay.ActionPlayCard, contains("plays card")},
	{replay.ActionPlaceTile, func(s string) bool {
		return containsAny(s, []string{"places City", "places Forest", "places Ocean"})
	}},
	{replay.ActionStandardProject, contains("standard project")},
	{replay.ActionPass, contains("passes")},
	{replay.ActionConvertHeat, contains("Convert heat into temperature")},
	{replay.ActionClaimMilestone, contains("claims milestone")},
	{replay.ActionFundAward, func(s string) bool { return strings.Contains(s, "funds") && strings.Contains(s, "award") }},
	{replay.ActionActivateCard, contains("activates")},
	{replay.ActionNewGeneration, contains("New generation")},
	{replay.ActionDraftCard, contains("draft")},
	{replay.ActionBuyCard, contains("Buy Card")},
}

// Classify maps a move description to its action kind.
func Classify(description string) replay.ActionKind {
	for _, c := range classifiers {
		if c.match(description) {
			return c.kind
		}
	}
	return replay.ActionOther
}

func contains(sub string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, sub) }
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func cardPlayed(entries []*html.Node, texts []string) *string {
	for i, text := range texts {
		if !strings.Contains(text, "plays card") {
			continue
		}
		if link := markup.Find(entries[i], "div", cardLinkClass); link != nil {
			if name := strings.TrimSpace(markup.Text(link)); name != "" {
				return &name
			}
		}
		if match := cardTextPattern.FindStringSubmatch(text); match != nil {
			name := strings.TrimSpace(match[1])
			return &name
		}
	}
	return nil
}

func tilePlacement(texts []string) (*string, *string) {
	for _, text := range texts {
		if !strings.Contains(text, "places") {
			continue
		}
		for _, kind := range tileKinds {
			marker := "places " + kind + " on "
			idx := strings.Index(text, marker)
			if idx < 0 {
				continue
			}
			tile := kind
			location := strings.TrimSpace(firstLine(text[idx+len(marker):]))
			if location == "" {
				location = "Unknown"
			}
			return &tile, &location
		}
	}
	return nil, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
