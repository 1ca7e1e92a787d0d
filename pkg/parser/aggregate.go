package parser

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/replay-engine/pkg/names"
	"github.com/jwebster45206/replay-engine/pkg/replay"
	"github.com/jwebster45206/replay-engine/pkg/state"
	"github.com/jwebster45206/replay-engine/pkg/tablemeta"
)

// Placeholders for values that cannot be derived.
const (
	UnknownValue       = "Unknown"
	UnknownCorporation = "Unknown"
)

// Bounds of the generation estimate used when no move announced a generation.
const (
	minEstimatedGenerations = 8
	maxEstimatedGenerations = 12
)

// startingTR is reported as final TR when the terminal snapshot has no tr entry.
const startingTR = 20

var playedAtLayouts = []string{
	time.RFC3339Nano,
	tablemeta.PlayedAtLayout,
	"2006-01-02 15:04:05",
	time.DateOnly,
}

type aggregation struct {
	capture        Capture
	metadata       *replay.GameMetadata
	playerIDs      []string
	roster         map[string]string
	corporations   map[string]string
	maps           *names.Maps
	assembled      state.Result
	snapshots      int
	embeddedLog    bool
	fromAssignment bool
	parsedAt       time.Time
}

func (a *aggregation) record() *replay.GameRecord {
	md := a.metadata
	players := a.players()

	rec := &replay.GameRecord{
		ReplayID:                a.capture.ReplayID,
		PlayerPerspective:       a.capture.PlayerPerspective,
		GameDate:                gameDate(md.PlayedAt),
		GameDuration:            duration(a.assembled.Moves),
		Winner:                  a.winner(players),
		Generations:             a.generations(),
		Map:                     md.Map,
		PreludeOn:               md.PreludeOn,
		ColoniesOn:              md.ColoniesOn,
		CorporateEraOn:          md.CorporateEraOn,
		DraftOn:                 md.DraftOn,
		BeginnersCorporationsOn: md.BeginnersCorporationsOn,
		GameSpeed:               md.GameSpeed,
		GameMode:                md.GameMode,
		VersionID:               md.VersionID,
		Players:                 players,
		Moves:                   a.assembled.Moves,
	}
	if rec.Moves == nil {
		rec.Moves = []replay.Move{}
	}

	rated := 0
	for _, p := range players {
		if p.RatingInfo != nil {
			rated++
		}
	}
	rec.Metadata = replay.RecordMetadata{
		ParsedAt:               a.parsedAt.UTC().Format(time.RFC3339),
		TotalMoves:             totalMoves(rec.Moves),
		EmbeddedLogFound:       a.embeddedLog,
		AssignmentMetadataUsed: a.fromAssignment,
		RatingDataIncluded:     rated > 0,
		RatingPlayersFound:     rated,
	}
	return rec
}

// finalVP is the VP table of the last move that carries one.
func (a *aggregation) finalVP() map[string]replay.VPBreakdown {
	moves := a.assembled.Moves
	for i := len(moves) - 1; i >= 0; i-- {
		if gs := moves[i].GameState; gs != nil && len(gs.PlayerVP) > 0 {
			return gs.PlayerVP
		}
	}
	return nil
}

func (a *aggregation) players() map[string]*replay.Player {
	final := a.finalVP()
	milestoneNames := a.maps.MilestoneNames()
	awardNames := a.maps.AwardNames()

	out := make(map[string]*replay.Player, len(a.playerIDs))
	for _, id := range a.playerIDs {
		name := a.roster[id]
		p := &replay.Player{
			PlayerID:          id,
			PlayerName:        name,
			Corporation:       UnknownCorporation,
			VPBreakdown:       map[string]int{},
			CardsPlayed:       []string{},
			MilestonesClaimed: []string{},
			AwardsFunded:      []string{},
		}
		if corp, ok := a.corporations[name]; ok {
			p.Corporation = corp
		}

		p.FinalTR = startingTR
		if vp, ok := final[id]; ok {
			p.FinalVP = vp.Total
			if vp.TotalDetails != nil {
				p.VPBreakdown = maps.Clone(vp.TotalDetails)
			}
			if tr, ok := vp.TotalDetails["tr"]; ok {
				p.FinalTR = tr
			}
		}

		for _, m := range a.assembled.Moves {
			if m.PlayerID != id {
				continue
			}
			if m.CardPlayed != nil {
				p.CardsPlayed = append(p.CardsPlayed, *m.CardPlayed)
			}
			switch m.ActionType {
			case replay.ActionClaimMilestone:
				if ms, ok := state.MilestoneClaimed(m.Description, milestoneNames); ok {
					p.MilestonesClaimed = append(p.MilestonesClaimed, ms)
				}
			case replay.ActionFundAward:
				if aw, ok := state.AwardFunded(m.Description, awardNames); ok {
					p.AwardsFunded = append(p.AwardsFunded, aw)
				}
			}
		}

		if info, ok := a.metadata.Player(id); ok {
			p.RatingInfo = &info
		}
		out[id] = p
	}
	return out
}

// winner picks the highest final VP, then the higher final TR, then the player listed first
// in the metadata. A game where nobody scored has no winner.
func (a *aggregation) winner(players map[string]*replay.Player) string {
	var best *replay.Player
	for _, id := range a.playerIDs {
		p := players[id]
		if p == nil || p.FinalVP <= 0 {
			continue
		}
		if best == nil || p.FinalVP > best.FinalVP || (p.FinalVP == best.FinalVP && p.FinalTR > best.FinalTR) {
			best = p
		}
	}
	if best == nil {
		return UnknownValue
	}
	return best.PlayerName
}

// generations is the highest generation any state reached. When no move announced a
// generation it is estimated from the number of scoring snapshots.
func (a *aggregation) generations() int {
	if !a.assembled.GenerationObserved && a.snapshots > 0 {
		return min(maxEstimatedGenerations, max(minEstimatedGenerations, a.snapshots/2))
	}
	highest := state.StartGeneration
	for _, m := range a.assembled.Moves {
		if m.GameState != nil && m.GameState.Generation > highest {
			highest = m.GameState.Generation
		}
	}
	return highest
}

func totalMoves(moves []replay.Move) int {
	highest := 0
	for _, m := range moves {
		highest = max(highest, m.MoveNumber)
	}
	return highest
}

// gameDate formats played_at as YYYY-MM-DD.
func gameDate(playedAt string) string {
	playedAt = strings.TrimSpace(playedAt)
	if playedAt == "" {
		return UnknownValue
	}
	for _, layout := range playedAtLayouts {
		if t, err := time.Parse(layout, playedAt); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return UnknownValue
}

// duration is the HH:MM span between the first and last move. A negative span is an
// overnight session.
func duration(moves []replay.Move) string {
	if len(moves) < 2 {
		return UnknownValue
	}
	start, ok := secondsOfDay(moves[0].Timestamp)
	if !ok {
		return UnknownValue
	}
	end, ok := secondsOfDay(moves[len(moves)-1].Timestamp)
	if !ok {
		return UnknownValue
	}
	span := end - start
	if span < 0 {
		span += 24 * 3600
	}
	return fmt.Sprintf("%02d:%02d", span/3600, (span%3600)/60)
}

func secondsOfDay(ts string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 3 {
		return 0, false
	}
	var fields [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, false
		}
		fields[i] = n
	}
	return fields[0]*3600 + fields[1]*60 + fields[2], true
}
