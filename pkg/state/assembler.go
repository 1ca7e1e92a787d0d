// Package state folds the move list, scoring snapshots, counter timeline and global
// parameter changes into one GameState per move.
package state

import (
	"log/slog"
	"maps"
	"regexp"
	"strconv"

	"github.com/jwebster45206/replay-engine/pkg/counters"
	"github.com/jwebster45206/replay-engine/pkg/replay"
)

var generationPattern = regexp.MustCompile(`New generation (\d+)`)

// Assembler attaches a GameState to every move. Configure it with the With methods, then call
// Assemble once.
type Assembler struct {
	players    []string
	vp         map[int]map[string]replay.VPBreakdown
	params     map[int]ParameterChange
	counters   *counters.Timeline
	milestones []string
	awards     []string
	logger     *slog.Logger
}

// NewAssembler creates an assembler for the given players. Every state it produces carries
// VP and tracker entries for each of them.
func NewAssembler(players []string, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{players: players, logger: logger}
}

// WithScoring sets the per-move VP snapshots.
func (a *Assembler) WithScoring(vp map[int]map[string]replay.VPBreakdown) *Assembler {
	a.vp = vp
	return a
}

// WithParameters sets the per-move global parameter changes.
func (a *Assembler) WithParameters(params map[int]ParameterChange) *Assembler {
	a.params = params
	return a
}

// WithCounters sets the tracker timeline.
func (a *Assembler) WithCounters(t *counters.Timeline) *Assembler {
	a.counters = t
	return a
}

// WithClaimNames sets the resolved milestone and award display names used to read claims
// from move descriptions.
func (a *Assembler) WithClaimNames(milestones, awards []string) *Assembler {
	a.milestones = milestones
	a.awards = awards
	return a
}

// Result is the outcome of Assemble.
type Result struct {
	Moves []replay.Move

	// GenerationObserved is set when at least one move announced a new generation.
	GenerationObserved bool
}

// accumulator is the running state threaded through the fold.
type accumulator struct {
	generation  int
	temperature int
	oxygen      int
	oceans      int
	milestones  map[string]replay.MilestoneClaim
	awards      map[string]replay.AwardFunding
	lastVP      map[string]replay.VPBreakdown

	generationSeen bool
}

func (a *Assembler) newAccumulator() *accumulator {
	acc := &accumulator{
		generation:  StartGeneration,
		temperature: StartTemperature,
		oxygen:      StartOxygen,
		oceans:      StartOceans,
		milestones:  make(map[string]replay.MilestoneClaim),
		awards:      make(map[string]replay.AwardFunding),
		lastVP:      make(map[string]replay.VPBreakdown, len(a.players)),
	}
	for _, id := range a.players {
		acc.lastVP[id] = replay.DefaultVP()
	}
	return acc
}

// Assemble returns a copy of moves with GameState set on each. moves must already be
// ordered by move number.
func (a *Assembler) Assemble(moves []replay.Move) Result {
	acc := a.newAccumulator()
	out := make([]replay.Move, len(moves))
	snapshots := 0
	for i, m := range moves {
		if _, ok := a.vp[m.MoveNumber]; ok {
			snapshots++
		}
		gs := a.step(acc, m)
		m.GameState = &gs
		out[i] = m
	}

	a.logger.Debug("Assembled game states",
		"moves", len(out),
		"snapshots_matched", snapshots,
		"milestones", len(acc.milestones),
		"awards", len(acc.awards))
	return Result{Moves: out, GenerationObserved: acc.generationSeen}
}

func (a *Assembler) step(acc *accumulator, m replay.Move) replay.GameState {
	if match := generationPattern.FindStringSubmatch(m.Description); match != nil {
		if gen, err := strconv.Atoi(match[1]); err == nil {
			acc.generation = gen
			acc.generationSeen = true
		}
	}

	if change, ok := a.params[m.MoveNumber]; ok {
		if change.Temperature != nil {
			acc.temperature = *change.Temperature
		}
		if change.Oxygen != nil {
			acc.oxygen = *change.Oxygen
		}
		if change.Oceans != nil {
			acc.oceans = *change.Oceans
		}
	}

	switch m.ActionType {
	case replay.ActionClaimMilestone:
		if name, ok := MilestoneClaimed(m.Description, a.milestones); ok {
			acc.milestones[name] = replay.MilestoneClaim{
				ClaimedBy:  m.PlayerName,
				PlayerID:   m.PlayerID,
				MoveNumber: m.MoveNumber,
				Timestamp:  m.Timestamp,
			}
		}
	case replay.ActionFundAward:
		if name, ok := AwardFunded(m.Description, a.awards); ok {
			acc.awards[name] = replay.AwardFunding{
				FundedBy:   m.PlayerName,
				PlayerID:   m.PlayerID,
				MoveNumber: m.MoveNumber,
				Timestamp:  m.Timestamp,
			}
		}
	}

	if snap, ok := a.vp[m.MoveNumber]; ok && len(snap) > 0 {
		acc.lastVP = replay.CloneVP(snap)
	} else {
		a.logger.Debug("Carrying VP forward", "move", m.MoveNumber)
	}
	vp := replay.CloneVP(acc.lastVP)
	for _, id := range a.players {
		if _, ok := vp[id]; !ok {
			a.logger.Debug("Backfilling default VP", "move", m.MoveNumber, "player_id", id)
			vp[id] = replay.DefaultVP()
		}
	}

	trackers := a.counters.At(m.MoveNumber)
	for _, id := range a.players {
		if _, ok := trackers[id]; !ok {
			trackers[id] = map[string]int{}
		}
	}

	return replay.GameState{
		MoveNumber:     m.MoveNumber,
		Generation:     acc.generation,
		Temperature:    acc.temperature,
		Oxygen:         acc.oxygen,
		Oceans:         acc.oceans,
		PlayerVP:       vp,
		Milestones:     maps.Clone(acc.milestones),
		Awards:         maps.Clone(acc.awards),
		PlayerTrackers: trackers,
	}
}
