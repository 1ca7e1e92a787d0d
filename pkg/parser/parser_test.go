package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/replay-engine/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testParser() *Parser {
	return New(nil, WithClock(func() time.Time { return fixedNow }))
}

func twoPlayers() *replay.GameMetadata {
	arena := 1510
	return &replay.GameMetadata{
		PlayedAt: "2025-06-14T21:04:00Z",
		GameMode: "Arena mode",
		Players: []replay.RatingInfo{
			{PlayerID: "111", PlayerName: "Alice", ArenaPoints: &arena},
			{PlayerID: "222", PlayerName: "Bob"},
		},
	}
}

// replayPage renders move blocks 1..n with one entry each plus an optional embedded log.
func replayPage(texts map[int]string, n int, embedded string) string {
	var b strings.Builder
	b.WriteString(`<html><head>`)
	if embedded != "" {
		fmt.Fprintf(&b, `<script>var g_gamelogs = %s;</script>`, embedded)
	}
	b.WriteString(`</head><body>`)
	b.WriteString(`<div class="milestone" id="milestone_1" data-x="1" data-name="Terraformer"></div>`)
	b.WriteString(`<div id="tracker_s_ff0000" data-name="Steel"></div>`)
	for i := 1; i <= n; i++ {
		text, ok := texts[i]
		if !ok {
			text = "Alice gains 1 MC"
		}
		fmt.Fprintf(&b, `<div class="replaylogs_move"><div class="smalltext">Move %d : 10:%02d:00</div>`+
			`<div class="gamelogreview">%s</div></div>`, i, i*4, text)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

const scenarioLog = `{"data":{"data":[
	{"move_id":"1","data":[{"type":"x","args":{"player_id":"111"}}]},
	{"move_id":"2","data":[{"type":"x","args":{"player_id":"222"}}]},
	{"move_id":"4","data":[{"type":"counter","args":{"counter_name":"tracker_s_ff0000","counter_value":"12","player_id":"111"}}]},
	{"move_id":"5","data":[{"type":"counter","args":{"token_name":"tracker_t","counter_value":"-28"}}]},
	{"move_id":"6","data":[{"type":"x","args":{"player_id":"111"}}]},
	{"move_id":"7","data":[{"uid":"s1","type":"scoringTable","args":{"data":{
		"111":{"total":25,"total_details":{"tr":23,"milestones":2}},
		"222":{"total":20,"total_details":{"tr":20}}
	}}}]}
]}}`

var scenarioTexts = map[int]string{
	1: "Alice chooses corporation Ecoline",
	2: "Alice plays card Birds",
	3: "New generation 2",
	6: "Alice claims milestone Terraformer",
	9: "Bob funds Landlord award",
}

func parseScenario(t *testing.T) *replay.GameRecord {
	t.Helper()
	rec, err := testParser().Parse(Capture{
		ReplayID:          "42",
		PlayerPerspective: "111",
		ReplayHTML:        replayPage(scenarioTexts, 12, scenarioLog),
		Metadata:          twoPlayers(),
	})
	require.NoError(t, err)
	return rec
}

func TestParse_ScoringSnapshotCarriedToFinalMove(t *testing.T) {
	rec := parseScenario(t)
	require.Len(t, rec.Moves, 12)

	seventh := rec.Moves[6].GameState
	last := rec.Moves[11].GameState
	require.Equal(t, 7, seventh.MoveNumber)
	require.Equal(t, 12, last.MoveNumber)
	assert.Equal(t, seventh.PlayerVP, last.PlayerVP)
	assert.Equal(t, 25, last.PlayerVP["111"].Total)

	assert.Equal(t, 25, rec.Players["111"].FinalVP)
	assert.Equal(t, 23, rec.Players["111"].FinalTR)
	assert.Equal(t, map[string]int{"tr": 23, "milestones": 2}, rec.Players["111"].VPBreakdown)
	assert.Equal(t, "Alice", rec.Winner)
}

func TestParse_RecordFields(t *testing.T) {
	rec := parseScenario(t)

	assert.Equal(t, "42", rec.ReplayID)
	assert.Equal(t, "111", rec.PlayerPerspective)
	assert.Equal(t, "2025-06-14", rec.GameDate)
	assert.Equal(t, "00:44", rec.GameDuration)
	assert.Equal(t, 2, rec.Generations)
	assert.Equal(t, "Arena mode", rec.GameMode)

	alice := rec.Players["111"]
	assert.Equal(t, "Ecoline", alice.Corporation)
	assert.Equal(t, []string{"Terraformer"}, alice.MilestonesClaimed)
	require.NotNil(t, alice.RatingInfo)
	assert.Equal(t, 1510, *alice.RatingInfo.ArenaPoints)

	bob := rec.Players["222"]
	assert.Equal(t, UnknownCorporation, bob.Corporation)
	assert.Equal(t, []string{"Birds"}, bob.CardsPlayed)
	assert.Equal(t, 20, bob.FinalVP)

	assert.Equal(t, "222", rec.Moves[1].PlayerID, "log player wins over text")
	assert.Equal(t, "Alice", rec.Moves[5].GameState.Milestones["Terraformer"].ClaimedBy)

	assert.Equal(t, 12, rec.Moves[3].GameState.PlayerTrackers["111"]["Steel"])
	assert.Equal(t, 12, rec.Moves[11].GameState.PlayerTrackers["111"]["Steel"])
	assert.Equal(t, 0, rec.Moves[2].GameState.PlayerTrackers["111"]["Steel"])
	assert.Equal(t, -30, rec.Moves[3].GameState.Temperature)
	assert.Equal(t, -28, rec.Moves[4].GameState.Temperature)

	assert.Equal(t, "2025-06-15T12:00:00Z", rec.Metadata.ParsedAt)
	assert.Equal(t, 12, rec.Metadata.TotalMoves)
	assert.True(t, rec.Metadata.EmbeddedLogFound)
	assert.False(t, rec.Metadata.AssignmentMetadataUsed)
	assert.True(t, rec.Metadata.RatingDataIncluded)
	assert.Equal(t, 2, rec.Metadata.RatingPlayersFound)
}

func TestParse_Invariants(t *testing.T) {
	rec := parseScenario(t)
	prev := 0
	for _, m := range rec.Moves {
		assert.Greater(t, m.MoveNumber, prev)
		prev = m.MoveNumber
		require.NotNil(t, m.GameState)
		assert.Equal(t, m.MoveNumber, m.GameState.MoveNumber)
		for _, id := range []string{"111", "222"} {
			assert.Contains(t, m.GameState.PlayerVP, id)
			assert.Contains(t, m.GameState.PlayerTrackers, id)
			assert.Contains(t, m.GameState.PlayerTrackers[id], "Steel")
		}
	}
}

func TestParse_MissingEmbeddedLog(t *testing.T) {
	rec, err := testParser().Parse(Capture{
		ReplayID:   "43",
		ReplayHTML: replayPage(scenarioTexts, 9, ""),
		Metadata:   twoPlayers(),
	})
	require.NoError(t, err)
	require.Len(t, rec.Moves, 9)
	assert.False(t, rec.Metadata.EmbeddedLogFound)

	for _, m := range rec.Moves {
		for _, id := range []string{"111", "222"} {
			assert.Equal(t, 20, m.GameState.PlayerVP[id].Total, "move %d", m.MoveNumber)
		}
	}
	assert.Equal(t, "111", rec.Moves[0].PlayerID, "text fallback attributes the move")
	assert.Equal(t, "Alice", rec.Winner, "ties break on metadata order")
}

func TestParse_Deterministic(t *testing.T) {
	first, err := json.Marshal(parseScenario(t))
	require.NoError(t, err)
	second, err := json.Marshal(parseScenario(t))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestParse_MissingPlayers(t *testing.T) {
	_, err := testParser().Parse(Capture{
		ReplayHTML: replayPage(nil, 2, ""),
		Metadata:   &replay.GameMetadata{Players: []replay.RatingInfo{{PlayerID: "1"}}},
	})
	var missing *MissingInputError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "players", missing.Field)

	_, err = testParser().Parse(Capture{ReplayHTML: replayPage(nil, 2, "")})
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "metadata", missing.Field)
}

func TestParse_Assignment(t *testing.T) {
	rec, err := testParser().Parse(Capture{
		ReplayID:   "44",
		ReplayHTML: replayPage(nil, 3, ""),
		Assignment: []byte(`{"playedAt":"2025-01-02T03:04:05Z","players":[{"playerId":111,"playerName":"Alice"}]}`),
	})
	require.NoError(t, err)
	assert.True(t, rec.Metadata.AssignmentMetadataUsed)
	assert.Equal(t, "Arena mode", rec.GameMode)
	assert.Equal(t, "2025-01-02", rec.GameDate)
	assert.Contains(t, rec.Players, "111")

	_, err = testParser().Parse(Capture{ReplayHTML: "x", Assignment: []byte(`{`)})
	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "assignment", invalid.Field)
}

func TestParse_TablePage(t *testing.T) {
	table := `<div id="creationtime">Created yesterday at 21:04</div>
<div class="score-entry"><a class="playername" href="/player?id=111">Alice</a></div>
<div class="score-entry"><a class="playername" href="/player?id=222">Bob</a></div>`
	rec, err := testParser().Parse(Capture{
		ReplayID:   "45",
		ReplayHTML: replayPage(nil, 2, ""),
		TableHTML:  table,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-14", rec.GameDate)
	assert.Equal(t, "Normal mode", rec.GameMode)
	assert.Len(t, rec.Players, 2)
}

func TestDuration(t *testing.T) {
	mv := func(ts ...string) []replay.Move {
		out := make([]replay.Move, len(ts))
		for i, s := range ts {
			out[i] = replay.Move{MoveNumber: i + 1, Timestamp: s}
		}
		return out
	}
	assert.Equal(t, "01:30", duration(mv("10:00:00", "11:30:59")))
	assert.Equal(t, "01:15", duration(mv("23:30:00", "00:45:00")))
	assert.Equal(t, UnknownValue, duration(mv("10:00:00")))
	assert.Equal(t, UnknownValue, duration(mv("10:00", "11:00:00")))
}

func TestGameDate(t *testing.T) {
	assert.Equal(t, "2025-06-14", gameDate("2025-06-14T21:04:00+02:00"))
	assert.Equal(t, "2025-06-14", gameDate("2025-06-14T21:04:00"))
	assert.Equal(t, "2025-06-14", gameDate("2025-06-14"))
	assert.Equal(t, UnknownValue, gameDate(""))
	assert.Equal(t, UnknownValue, gameDate("last week"))
}

func TestGenerations_EstimateWhenUnannounced(t *testing.T) {
	a := aggregation{snapshots: 30}
	assert.Equal(t, 12, a.generations())
	a.snapshots = 4
	assert.Equal(t, 8, a.generations())
	a.snapshots = 0
	assert.Equal(t, 1, a.generations())
}

func TestWinner_TieBreaks(t *testing.T) {
	a := aggregation{playerIDs: []string{"1", "2", "3"}}
	players := map[string]*replay.Player{
		"1": {PlayerName: "A", FinalVP: 30, FinalTR: 25},
		"2": {PlayerName: "B", FinalVP: 30, FinalTR: 28},
		"3": {PlayerName: "C", FinalVP: 30, FinalTR: 28},
	}
	assert.Equal(t, "B", a.winner(players))

	assert.Equal(t, UnknownValue, a.winner(map[string]*replay.Player{}))
}
