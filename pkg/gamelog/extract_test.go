package gamelog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"status":1,"data":{"valid":1,"data":[
	{"move_id":"1","time":"1700000000","data":[
		{"uid":"a1","type":"playCard","log":"${player_name} plays {card}","args":{"player_id":"111","note":"brace } inside \"quoted\" text {"}},
		{"uid":"a2","type":"counter","args":{"counter_name":"tracker_m_ff0000","counter_value":"12","player_id":"111"}}
	]},
	{"move_id":2,"time":"1700000100","data":[
		{"uid":"b1","type":"scoringTable","args":{"data":{"111":{"total":25},"222":{"total":20}}}},
		{"uid":"b2","type":"tokenMoved","args":{"token_id":"tile_3_1","place_id":"hex_5_6"}}
	]},
	{"move_id":"x","data":[]},
	{"move_id":"2","data":[{"uid":"c1","type":"counter","args":{"token_name":"tracker_t","counter_value":-28}}]}
]}}`

func TestExtract(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantErr     bool
		wantEntries int
	}{
		{
			name:        "assignment inside script",
			doc:         `<html><script>var x = 1; g_gamelogs = ` + sampleLog + `; g_other = {};</script></html>`,
			wantEntries: 3,
		},
		{
			name:        "no spaces around assignment",
			doc:         `<script>g_gamelogs=` + sampleLog + `</script>`,
			wantEntries: 3,
		},
		{
			name:    "marker missing",
			doc:     `<html><body>nothing here</body></html>`,
			wantErr: true,
		},
		{
			name:    "braces never close",
			doc:     `<script>g_gamelogs = {"data":{"data":[{"move_id":"1"</script>`,
			wantErr: true,
		},
		{
			name:    "statement ends before object",
			doc:     `<script>g_gamelogs = null; var y = {};</script>`,
			wantErr: true,
		},
		{
			name:    "balanced but not JSON",
			doc:     `<script>g_gamelogs = {data: [1,2]};</script>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Extract(tt.doc, nil)
			require.NotNil(t, l)
			if tt.wantErr {
				var malformed *MalformedLogError
				require.Error(t, err)
				assert.True(t, errors.As(err, &malformed))
				assert.True(t, l.Empty())
				return
			}
			require.NoError(t, err)
			assert.Len(t, l.Entries, tt.wantEntries)
		})
	}
}

func TestLog_Accessors(t *testing.T) {
	l, err := Decode(sampleLog)
	require.NoError(t, err)

	assert.Equal(t, 2, l.MaxMove())
	assert.Len(t, l.ForMove(2), 2)
	assert.Empty(t, l.ForMove(3))

	player, ok := l.ActingPlayer(1)
	assert.True(t, ok)
	assert.Equal(t, "111", player)

	_, ok = l.ActingPlayer(2)
	assert.False(t, ok, "scoring table carries no player field")

	counter, ok := l.ForMove(1)[0].Events[1].Counter()
	require.True(t, ok)
	assert.Equal(t, "tracker_m_ff0000", counter.Name)
	assert.Equal(t, "111", counter.PlayerID)
	v, ok := counter.Int()
	assert.True(t, ok)
	assert.Equal(t, 12, v)

	global, ok := l.ForMove(2)[1].Events[0].Counter()
	require.True(t, ok)
	assert.Equal(t, "tracker_t", global.Name)
	v, _ = global.Int()
	assert.Equal(t, -28, v)

	table, ok := l.ForMove(2)[0].Events[0].ScoringTable()
	require.True(t, ok)
	assert.Equal(t, int64(25), table.Get("111.total").Int())

	placement, ok := l.ForMove(2)[0].Events[1].Placement()
	require.True(t, ok)
	assert.Equal(t, Placement{TokenID: "tile_3_1", PlaceID: "hex_5_6"}, placement)

	assert.Equal(t, KindUnknown, l.ForMove(2)[0].Events[1].Kind())
}

func TestEvent_ScoringTableFlatFormat(t *testing.T) {
	l, err := Decode(`{"data":{"data":[{"move_id":"4","data":[{"type":"scoringTable","args":{"111":{"total":31}}}]}]}}`)
	require.NoError(t, err)

	table, ok := l.Entries[0].Events[0].ScoringTable()
	require.True(t, ok)
	assert.Equal(t, int64(31), table.Get("111.total").Int())
}

func TestCounterUpdate_Int(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{`{"counter_name":"c","counter_value":"7"}`, 7, true},
		{`{"counter_name":"c","counter_value":" 7 "}`, 7, true},
		{`{"counter_name":"c","counter_value":3}`, 3, true},
		{`{"counter_name":"c","counter_value":"abc"}`, 0, false},
		{`{"counter_name":"c","counter_value":null}`, 0, false},
		{`{"counter_name":"c","counter_value":true}`, 0, false},
	}
	for _, tt := range tests {
		l, err := Decode(`{"data":{"data":[{"move_id":"1","data":[{"type":"counter","args":` + tt.raw + `}]}]}}`)
		require.NoError(t, err)
		c, ok := l.Entries[0].Events[0].Counter()
		require.True(t, ok, tt.raw)
		got, ok := c.Int()
		assert.Equal(t, tt.wantOK, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}
