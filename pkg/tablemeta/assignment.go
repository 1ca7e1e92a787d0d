package tablemeta

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"

	"github.com/jwebster45206/replay-engine/pkg/replay"
)

// DefaultAssignmentMode is the game mode assumed for assignments that omit one.
const DefaultAssignmentMode = "Arena mode"

// Assignment is a previously recorded description of a table, keyed the way the
// assignment service writes it.
type Assignment struct {
	PlayedAt                string             `json:"playedAt"`
	Map                     *string            `json:"map"`
	PreludeOn               *bool              `json:"preludeOn"`
	ColoniesOn              *bool              `json:"coloniesOn"`
	CorporateEraOn          *bool              `json:"corporateEraOn"`
	DraftOn                 *bool              `json:"draftOn"`
	BeginnersCorporationsOn *bool              `json:"beginnersCorporationsOn"`
	GameSpeed               *string            `json:"gameSpeed"`
	GameMode                *string            `json:"gameMode"`
	VersionID               flexString         `json:"versionId"`
	Players                 []AssignmentPlayer `json:"players"`
}

// AssignmentPlayer is one player entry of an Assignment.
type AssignmentPlayer struct {
	PlayerID          flexString `json:"playerId"`
	PlayerName        string     `json:"playerName"`
	Position          *int       `json:"position"`
	ArenaPoints       *int       `json:"arenaPoints"`
	ArenaPointsChange *int       `json:"arenaPointsChange"`
	Elo               *int       `json:"elo"`
	EloChange         *int       `json:"eloChange"`
}

// flexString accepts either a JSON string or a number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(b)
	return nil
}

// FromAssignment decodes an assignment payload into the common metadata shape. Players
// without an id are dropped.
func FromAssignment(payload []byte) (*replay.GameMetadata, error) {
	var a Assignment
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode assignment: %w", err)
	}
	return a.Metadata(), nil
}

// Metadata converts the assignment.
func (a *Assignment) Metadata() *replay.GameMetadata {
	md := &replay.GameMetadata{
		PlayedAt:                a.PlayedAt,
		Map:                     a.Map,
		PreludeOn:               a.PreludeOn,
		ColoniesOn:              a.ColoniesOn,
		CorporateEraOn:          a.CorporateEraOn,
		DraftOn:                 a.DraftOn,
		BeginnersCorporationsOn: a.BeginnersCorporationsOn,
		GameSpeed:               a.GameSpeed,
		GameMode:                DefaultAssignmentMode,
		VersionID:               string(a.VersionID),
	}
	if a.GameMode != nil {
		md.GameMode = *a.GameMode
	}
	for _, p := range a.Players {
		id := strings.TrimSpace(string(p.PlayerID))
		if id == "" {
			continue
		}
		md.Players = append(md.Players, replay.RatingInfo{
			PlayerID:          id,
			PlayerName:        norm.NFC.String(strings.TrimSpace(p.PlayerName)),
			Position:          p.Position,
			ArenaPoints:       p.ArenaPoints,
			ArenaPointsChange: p.ArenaPointsChange,
			GameRank:          p.Elo,
			GameRankChange:    p.EloChange,
		})
	}
	return md
}
