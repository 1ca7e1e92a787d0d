package moves

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jwebster45206/replay-engine/pkg/gamelog"
	"github.com/jwebster45206/replay-engine/pkg/markup"
	"github.com/jwebster45206/replay-engine/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moveBlock(number int, clock string, entries ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="replaylogs_move"><div class="smalltext">Move %d : %s</div>`, number, clock)
	for _, e := range entries {
		fmt.Fprintf(&b, `<div class="gamelogreview whiteblock">%s</div>`, e)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func page(blocks ...string) string {
	return `<html><body><div id="logs">` + strings.Join(blocks, "") + `</div></body></html>`
}

var roster = map[string]string{"111": "Alice", "222": "Bob"}

func TestExtractor_Extract(t *testing.T) {
	doc := page(
		moveBlock(2, "10:01:00", `Bob plays card <div class="card_hl_tt">Mining Guild</div>`, `Bob pays 5`),
		moveBlock(1, "10:00:00", `Alice chooses corporation Tharsis Republic`),
		moveBlock(3, "10:02:30", `Alice places City on Noctis City`),
		moveBlock(3, "10:02:31", `duplicate block`),
		`<div class="replaylogs_move"><div class="smalltext">no number</div><div class="gamelogreview">x</div></div>`,
		`<div class="replaylogs_move"><div class="smalltext">Move 9</div></div>`,
	)
	x := NewExtractor(&gamelog.Log{}, roster, nil)
	moves := x.Extract(markup.Parse(doc))

	require.Len(t, moves, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{moves[0].MoveNumber, moves[1].MoveNumber, moves[2].MoveNumber})

	assert.Equal(t, "111", moves[0].PlayerID)
	assert.Equal(t, "10:00:00", moves[0].Timestamp)
	assert.Equal(t, replay.ActionOther, moves[0].ActionType)

	assert.Equal(t, "222", moves[1].PlayerID)
	assert.Equal(t, "Bob", moves[1].PlayerName)
	assert.Equal(t, replay.ActionPlayCard, moves[1].ActionType)
	assert.Equal(t, "Bob plays card Mining Guild | Bob pays 5", moves[1].Description)
	require.NotNil(t, moves[1].CardPlayed)
	assert.Equal(t, "Mining Guild", *moves[1].CardPlayed)

	assert.Equal(t, replay.ActionPlaceTile, moves[2].ActionType)
	require.NotNil(t, moves[2].TilePlaced)
	assert.Equal(t, "City", *moves[2].TilePlaced)
	assert.Equal(t, "Noctis City", *moves[2].TileLocation)
	assert.Equal(t, "10:02:30", moves[2].Timestamp, "first block for a move number wins")
}

func TestExtractor_PlayerFromLog(t *testing.T) {
	l, err := gamelog.Decode(`{"data":{"data":[
		{"move_id":"1","data":[{"type":"x","args":{"active_player":"222","player_id":"111"}}]},
		{"move_id":"2","data":[{"type":"x","args":{"player_id":333}}]},
		{"move_id":"3","data":[{"type":"x","args":{}}]}
	]}}`)
	require.NoError(t, err)

	doc := page(
		moveBlock(1, "10:00:00", `Alice plays card Birds`),
		moveBlock(2, "10:00:10", `Someone passes`),
		moveBlock(3, "10:00:20", `Alice gains 2 MC`),
		moveBlock(4, "10:00:30", `You pass`),
		moveBlock(5, "10:00:40", `Nothing recognisable`),
	)
	moves := NewExtractor(l, roster, nil).Extract(markup.Parse(doc))
	require.Len(t, moves, 5)

	tests := []struct {
		id   string
		name string
	}{
		{"222", "Bob"},
		{"333", "Player_333"},
		{"111", "Alice"},
		{replay.SelfPlayerID, replay.SelfPlayerName},
		{replay.UnknownPlayerID, replay.UnknownPlayerName},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.id, moves[i].PlayerID, "move %d", moves[i].MoveNumber)
		assert.Equal(t, tt.name, moves[i].PlayerName, "move %d", moves[i].MoveNumber)
	}
}

func TestExtractor_LongestNameWins(t *testing.T) {
	doc := page(moveBlock(1, "09:00:00", `Annette plays card Birds`))
	moves := NewExtractor(nil, map[string]string{"1": "Ann", "2": "Annette"}, nil).Extract(markup.Parse(doc))
	require.Len(t, moves, 1)
	assert.Equal(t, "2", moves[0].PlayerID)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want replay.ActionKind
	}{
		{"Alice plays card Birds | Alice places Forest on hex", replay.ActionPlayCard},
		{"Alice places Ocean on Lake", replay.ActionPlaceTile},
		{"Alice uses standard project Aquifer", replay.ActionStandardProject},
		{"Alice passes", replay.ActionPass},
		{"Alice: Convert heat into temperature", replay.ActionConvertHeat},
		{"Alice claims milestone Builder", replay.ActionClaimMilestone},
		{"Alice funds Landlord award", replay.ActionFundAward},
		{"Alice funds something", replay.ActionOther},
		{"Alice activates Development Center", replay.ActionActivateCard},
		{"New generation 3", replay.ActionNewGeneration},
		{"Alice drafts a card", replay.ActionDraftCard},
		{"Alice: Buy Card", replay.ActionBuyCard},
		{"", replay.ActionOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.text), tt.text)
	}
}

func TestCardPlayed_TextFallback(t *testing.T) {
	doc := page(moveBlock(1, "09:00:00", `Alice plays card Birds`))
	moves := NewExtractor(nil, roster, nil).Extract(markup.Parse(doc))
	require.Len(t, moves, 1)
	require.NotNil(t, moves[0].CardPlayed)
	assert.Equal(t, "Birds", *moves[0].CardPlayed)
	assert.Nil(t, moves[0].TilePlaced)
}

func TestExtractCorporations(t *testing.T) {
	doc := page(
		moveBlock(1, "09:00:00", `Alice chooses corporation Cheung Shing Mars`),
		moveBlock(2, "09:00:05", `Bob Smith chooses corporation Ecoline`),
		moveBlock(3, "09:00:10", `Bob plays card Birds`),
	)
	corps := ExtractCorporations(markup.Parse(doc))
	assert.Equal(t, map[string]string{
		"Alice":     "Cheung Shing Mars",
		"Bob Smith": "Ecoline",
	}, corps)
}
