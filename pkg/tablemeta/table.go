// Package tablemeta builds replay.GameMetadata from a table page or an assignment payload.
package tablemeta

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/jwebster45206/replay-engine/pkg/markup"
	"github.com/jwebster45206/replay-engine/pkg/replay"
)

// DefaultTableMode is reported when the table page carries no game mode option.
const DefaultTableMode = "Normal mode"

// Element ids of the option spans on the table page.
const (
	optionGameMode     = "mob_gameoption_201_displayed_value"
	optionMap          = "gameoption_107_displayed_value"
	optionCorporateEra = "mob_gameoption_101_displayed_value"
	optionPrelude      = "mob_gameoption_104_displayed_value"
	optionDraft        = "mob_gameoption_103_displayed_value"
	optionColonies     = "mob_gameoption_108_displayed_value"
	optionBeginners    = "gameoption_100_displayed_value"
	optionGameSpeed    = "gameoption_200_displayed_value"
)

// PlayedAtLayout is the layout of GameMetadata.PlayedAt when it is derived from the table page.
const PlayedAtLayout = "2006-01-02T15:04:05"

var (
	hrefIDPattern    = regexp.MustCompile(`id=(\d+)`)
	digitsPattern    = regexp.MustCompile(`(\d+)`)
	signedPattern    = regexp.MustCompile(`([+-]\d+)`)
	pointsPattern    = regexp.MustCompile(`(\d+)\s*pts`)
	relativePattern  = regexp.MustCompile(`(yesterday|today)\s+at\s+(\d{1,2}):(\d{2})`)
	isoDatePattern   = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})\s+at\s+(\d{1,2}):(\d{2})`)
	slashDatePattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})\s+at\s+(\d{1,2}):(\d{2})`)
	timeOnlyPattern  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

const creationTextStart = "Created "

// ParseTable reads game options, ratings and the creation date from a table page. now
// anchors relative dates such as "yesterday at 21:04".
func ParseTable(doc string, now time.Time, logger *slog.Logger) *replay.GameMetadata {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	root := markup.Parse(doc)

	md := &replay.GameMetadata{
		Map:                     optionText(root, optionMap),
		CorporateEraOn:          optionFlag(root, optionCorporateEra, "on"),
		PreludeOn:               optionFlag(root, optionPrelude, "on"),
		DraftOn:                 optionFlag(root, optionDraft, "yes"),
		ColoniesOn:              optionFlag(root, optionColonies, "on"),
		BeginnersCorporationsOn: optionFlag(root, optionBeginners, "yes"),
		GameSpeed:               optionText(root, optionGameSpeed),
		GameMode:                DefaultTableMode,
		Players:                 ratings(root),
	}
	if mode := optionText(root, optionGameMode); mode != nil {
		md.GameMode = *mode
	}

	if created := markup.FindByID(root, "div", "creationtime"); created != nil {
		text := strings.TrimSpace(markup.Text(created))
		if at, ok := CreationTime(text, now); ok {
			md.PlayedAt = at.Format(PlayedAtLayout)
		} else {
			logger.Warn("Could not parse table creation time", "text", text)
		}
	}

	logger.Info("Parsed table metadata",
		"players", len(md.Players),
		"game_mode", md.GameMode,
		"played_at", md.PlayedAt)
	return md
}

func optionText(root *html.Node, id string) *string {
	span := markup.FindByID(root, "span", id)
	if span == nil {
		return nil
	}
	text := strings.TrimSpace(markup.Text(span))
	return &text
}

func optionFlag(root *html.Node, id, enabled string) *bool {
	text := optionText(root, id)
	if text == nil {
		return nil
	}
	on := strings.EqualFold(*text, enabled)
	return &on
}

// ratings returns one entry per score block that names a player id, in page order.
func ratings(root *html.Node) []replay.RatingInfo {
	var out []replay.RatingInfo
	for _, entry := range markup.FindAll(root, "div", "score-entry") {
		link := markup.Find(entry, "a", "playername")
		if link == nil {
			continue
		}
		href, _ := markup.Attr(link, "href")
		id := hrefIDPattern.FindStringSubmatch(href)
		if id == nil {
			continue
		}

		r := replay.RatingInfo{
			PlayerID:   id[1],
			PlayerName: norm.NFC.String(strings.TrimSpace(markup.Text(link))),
		}
		if rank := markup.Find(entry, "div", "rank"); rank != nil {
			r.Position = matchInt(digitsPattern, markup.Text(rank))
		}
		if elo := markup.Find(entry, "span", "gamerank_value"); elo != nil {
			if n, err := strconv.Atoi(strings.TrimSpace(markup.Text(elo))); err == nil {
				r.GameRank = &n
			}
		}
		winpoints := markup.FindAll(entry, "div", "winpoints")
		if len(winpoints) >= 1 {
			r.ArenaPointsChange = matchInt(signedPattern, markup.Text(winpoints[0]))
		}
		if len(winpoints) >= 2 {
			r.GameRankChange = matchInt(signedPattern, markup.Text(winpoints[1]))
		}
		if newranks := markup.FindAll(entry, "div", "newrank"); len(newranks) >= 1 {
			r.ArenaPoints = matchInt(pointsPattern, markup.Text(newranks[0]))
		}
		out = append(out, r)
	}
	return out
}

func matchInt(pattern *regexp.Regexp, text string) *int {
	m := pattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// CreationTime parses the text of the table's creation time element. It accepts relative
// dates ("today at 10:04", "yesterday at 23:59"), "2025-06-15 at 00:29", day-first
// "15/06/2025 at 00:29" and a bare time, which is taken as today. The "Created " prefix is
// optional.
func CreationTime(text string, now time.Time) (time.Time, bool) {
	text = strings.TrimPrefix(strings.TrimSpace(text), creationTextStart)
	loc := now.Location()

	if m := relativePattern.FindStringSubmatch(strings.ToLower(text)); m != nil {
		day := now
		if m[1] == "yesterday" {
			day = now.AddDate(0, 0, -1)
		}
		return clock(day, atoi(m[2]), atoi(m[3]))
	}
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		return build(atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), atoi(m[5]), loc)
	}
	if m := slashDatePattern.FindStringSubmatch(text); m != nil {
		return build(atoi(m[3]), atoi(m[2]), atoi(m[1]), atoi(m[4]), atoi(m[5]), loc)
	}
	if m := timeOnlyPattern.FindStringSubmatch(text); m != nil {
		return clock(now, atoi(m[1]), atoi(m[2]))
	}
	return time.Time{}, false
}

func clock(day time.Time, hour, minute int) (time.Time, bool) {
	return build(day.Year(), int(day.Month()), day.Day(), hour, minute, day.Location())
}

// build rejects out-of-range fields rather than letting time.Date normalize them.
func build(year, month, day, hour, minute int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day || t.Hour() != hour || t.Minute() != minute {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
