package state

import (
	"testing"

	"github.com/jwebster45206/replay-engine/pkg/counters"
	"github.com/jwebster45206/replay-engine/pkg/gamelog"
	"github.com/jwebster45206/replay-engine/pkg/names"
	"github.com/jwebster45206/replay-engine/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func move(n int, kind replay.ActionKind, desc string) replay.Move {
	return replay.Move{
		MoveNumber:  n,
		Timestamp:   "10:00:00",
		PlayerID:    "111",
		PlayerName:  "Alice",
		ActionType:  kind,
		Description: desc,
	}
}

func intp(v int) *int { return &v }

func TestAssemble_Defaults(t *testing.T) {
	res := NewAssembler([]string{"111", "222"}, nil).Assemble([]replay.Move{
		move(1, replay.ActionOther, "Alice does a thing"),
	})
	require.Len(t, res.Moves, 1)
	gs := res.Moves[0].GameState
	require.NotNil(t, gs)

	assert.Equal(t, 1, gs.MoveNumber)
	assert.Equal(t, StartGeneration, gs.Generation)
	assert.Equal(t, StartTemperature, gs.Temperature)
	assert.Equal(t, StartOxygen, gs.Oxygen)
	assert.Equal(t, StartOceans, gs.Oceans)
	assert.Equal(t, replay.DefaultVP(), gs.PlayerVP["111"])
	assert.Equal(t, replay.DefaultVP(), gs.PlayerVP["222"])
	assert.Contains(t, gs.PlayerTrackers, "111")
	assert.Contains(t, gs.PlayerTrackers, "222")
	assert.Empty(t, gs.Milestones)
	assert.False(t, res.GenerationObserved)
}

func TestAssemble_CarryForward(t *testing.T) {
	snap := map[string]replay.VPBreakdown{
		"111": {Total: 25, TotalDetails: map[string]int{"tr": 25}},
	}
	moves := make([]replay.Move, 0, 12)
	for n := 1; n <= 12; n++ {
		desc := "Alice gains 1 MC"
		if n == 3 {
			desc = "New generation 2"
		}
		moves = append(moves, move(n, replay.ActionOther, desc))
	}

	res := NewAssembler([]string{"111", "222"}, nil).
		WithScoring(map[int]map[string]replay.VPBreakdown{7: snap}).
		WithParameters(map[int]ParameterChange{
			4: {Temperature: intp(-28)},
			9: {Oxygen: intp(2), Oceans: intp(1)},
		}).
		Assemble(moves)
	require.Len(t, res.Moves, 12)
	assert.True(t, res.GenerationObserved)

	states := make([]*replay.GameState, len(res.Moves))
	for i, m := range res.Moves {
		require.NotNil(t, m.GameState, "move %d", m.MoveNumber)
		states[i] = m.GameState
	}

	assert.Equal(t, 20, states[5].PlayerVP["111"].Total)
	assert.Equal(t, 25, states[6].PlayerVP["111"].Total)
	assert.Equal(t, replay.DefaultVP(), states[6].PlayerVP["222"], "players missing from the snapshot are backfilled")
	assert.Equal(t, states[6].PlayerVP, states[11].PlayerVP)

	assert.Equal(t, 1, states[1].Generation)
	assert.Equal(t, 2, states[2].Generation)
	assert.Equal(t, 2, states[11].Generation)
	assert.Equal(t, StartTemperature, states[2].Temperature)
	assert.Equal(t, -28, states[3].Temperature)
	assert.Equal(t, -28, states[11].Temperature)
	assert.Equal(t, 0, states[7].Oxygen)
	assert.Equal(t, 2, states[8].Oxygen)
	assert.Equal(t, 1, states[11].Oceans)

	for i := 1; i < len(states); i++ {
		if states[i].MoveNumber == 7 {
			continue
		}
		assert.Equal(t, states[i-1].PlayerVP, states[i].PlayerVP, "move %d", states[i].MoveNumber)
	}
}

func TestAssemble_StatesDoNotAlias(t *testing.T) {
	snap := map[string]replay.VPBreakdown{"111": {Total: 25, TotalDetails: map[string]int{"tr": 25}}}
	res := NewAssembler([]string{"111"}, nil).
		WithScoring(map[int]map[string]replay.VPBreakdown{1: snap}).
		Assemble([]replay.Move{move(1, replay.ActionOther, ""), move(2, replay.ActionOther, "")})

	res.Moves[0].GameState.PlayerVP["111"].TotalDetails["tr"] = 99
	assert.Equal(t, 25, res.Moves[1].GameState.PlayerVP["111"].TotalDetails["tr"])
	assert.Equal(t, 25, snap["111"].TotalDetails["tr"])
}

func TestAssemble_MilestonesAndAwards(t *testing.T) {
	res := NewAssembler([]string{"111"}, nil).
		WithClaimNames([]string{"Builder", "Space Baron"}, []string{"Landlord"}).
		Assemble([]replay.Move{
			move(1, replay.ActionClaimMilestone, "Alice claims milestone Space Baron | Alice pays 8 MC"),
			move(2, replay.ActionFundAward, "Alice funds Landlord award"),
			move(3, replay.ActionOther, "Alice passes"),
		})

	first := res.Moves[0].GameState
	assert.Equal(t, replay.MilestoneClaim{ClaimedBy: "Alice", PlayerID: "111", MoveNumber: 1, Timestamp: "10:00:00"},
		first.Milestones["Space Baron"])
	assert.Empty(t, first.Awards)

	last := res.Moves[2].GameState
	assert.Len(t, last.Milestones, 1)
	assert.Equal(t, "Alice", last.Awards["Landlord"].FundedBy)
	assert.Equal(t, 2, last.Awards["Landlord"].MoveNumber)
}

func TestAssemble_Trackers(t *testing.T) {
	l, err := gamelog.Decode(`{"data":{"data":[
		{"move_id":"2","data":[{"type":"counter","args":{"counter_name":"tracker_s_ff0000","counter_value":"12","player_id":"111"}}]}
	]}}`)
	require.NoError(t, err)
	m := names.Build(`<div id="tracker_s_ff0000" data-name="Steel"></div>`, l, nil)
	tl := counters.Build(l, m, []string{"111", "222"}, nil)

	res := NewAssembler([]string{"111", "222"}, nil).WithCounters(tl).Assemble([]replay.Move{
		move(1, replay.ActionOther, ""),
		move(2, replay.ActionOther, ""),
		move(5, replay.ActionOther, ""),
	})
	assert.Equal(t, 0, res.Moves[0].GameState.PlayerTrackers["111"]["Steel"])
	assert.Equal(t, 12, res.Moves[1].GameState.PlayerTrackers["111"]["Steel"])
	assert.Equal(t, 12, res.Moves[2].GameState.PlayerTrackers["111"]["Steel"])
	assert.Equal(t, 0, res.Moves[2].GameState.PlayerTrackers["222"]["Steel"])
}

func TestParameterChanges(t *testing.T) {
	l, err := gamelog.Decode(`{"data":{"data":[
		{"move_id":"3","data":[
			{"type":"counter","args":{"token_name":"tracker_t","counter_value":"-28"}},
			{"type":"counter","args":{"token_name":"tracker_t","counter_value":"-26"}},
			{"type":"counter","args":{"token_name":"tracker_o","counter_value":"bad"}}
		]},
		{"move_id":"4","data":[{"type":"counter","args":{"counter_name":"tracker_w","counter_value":3}}]},
		{"move_id":"5","data":[{"type":"other","args":{"counter_name":"tracker_w","counter_value":4}}]}
	]}}`)
	require.NoError(t, err)

	changes := ParameterChanges(l, nil)
	require.Len(t, changes, 2)
	assert.Equal(t, -26, *changes[3].Temperature)
	assert.Nil(t, changes[3].Oxygen)
	assert.Equal(t, 3, *changes[4].Oceans)

	assert.Empty(t, ParameterChanges(&gamelog.Log{}, nil))
}

func TestClaimNames(t *testing.T) {
	tests := []struct {
		desc  string
		known []string
		want  string
		ok    bool
	}{
		{"Bob claims milestone Space Baron", []string{"Space", "Space Baron"}, "Space Baron", true},
		{"Bob claims milestone Mayor", nil, "Mayor", true},
		{"Bob claims milestone", []string{""}, "", false},
	}
	for _, tt := range tests {
		got, ok := MilestoneClaimed(tt.desc, tt.known)
		assert.Equal(t, tt.ok, ok, tt.desc)
		assert.Equal(t, tt.want, got, tt.desc)
	}

	got, ok := AwardFunded("Bob funds Cosmic Banker award", []string{"Cosmic Banker"})
	assert.True(t, ok)
	assert.Equal(t, "Cosmic Banker", got)

	got, ok = AwardFunded("Bob funds Miner award", nil)
	assert.True(t, ok)
	assert.Equal(t, "Miner", got)
}
