package replay

import (
	"encoding/json"
	"maps"
)

// ActionKind classifies what a move did.
type ActionKind string

const (
	ActionPlayCard        ActionKind = "play_card"
	ActionPlaceTile       ActionKind = "place_tile"
	ActionStandardProject ActionKind = "standard_project"
	ActionPass            ActionKind = "pass"
	ActionConvertHeat     ActionKind = "convert_heat"
	ActionClaimMilestone  ActionKind = "claim_milestone"
	ActionFundAward       ActionKind = "fund_award"
	ActionActivateCard    ActionKind = "activate_card"
	ActionNewGeneration   ActionKind = "new_generation"
	ActionDraftCard       ActionKind = "draft_card"
	ActionBuyCard         ActionKind = "buy_card"
	ActionOther           ActionKind = "other"
)

// Sentinel identities for moves whose actor cannot be resolved.
const (
	UnknownPlayerID   = "unknown"
	UnknownPlayerName = "Unknown"
	SelfPlayerID      = "you"
	SelfPlayerName    = "You"
)

// Move is one top-level turn in the rendered move log.
type Move struct {
	MoveNumber   int        `json:"move_number"`
	Timestamp    string     `json:"timestamp"`
	PlayerID     string     `json:"player_id"`
	PlayerName   string     `json:"player_name"`
	ActionType   ActionKind `json:"action_type"`
	Description  string     `json:"description"`
	CardPlayed   *string    `json:"card_played"`
	TilePlaced   *string    `json:"tile_placed"`
	TileLocation *string    `json:"tile_location"`
	GameState    *GameState `json:"game_state"`
}

// VPBreakdown is one player's victory points as reported by a scoring snapshot.
type VPBreakdown struct {
	Total        int                                   `json:"total"`
	TotalDetails map[string]int                        `json:"total_details"`
	Details      map[string]map[string]json.RawMessage `json:"details,omitempty"`
}

// DefaultVP is the breakdown every player starts the game with.
func DefaultVP() VPBreakdown {
	return VPBreakdown{
		Total: 20,
		TotalDetails: map[string]int{
			"tr":         20,
			"awards":     0,
			"milestones": 0,
			"cities":     0,
			"greeneries": 0,
			"cards":      0,
		},
	}
}

// Clone returns a deep copy.
func (v VPBreakdown) Clone() VPBreakdown {
	out := VPBreakdown{Total: v.Total, TotalDetails: maps.Clone(v.TotalDetails)}
	if v.Details != nil {
		out.Details = make(map[string]map[string]json.RawMessage, len(v.Details))
		for category, items := range v.Details {
			copied := make(map[string]json.RawMessage, len(items))
			for name, raw := range items {
				copied[name] = append(json.RawMessage(nil), raw...)
			}
			out.Details[category] = copied
		}
	}
	return out
}

// CloneVP deep-copies a player_id -> breakdown map.
func CloneVP(in map[string]VPBreakdown) map[string]VPBreakdown {
	out := make(map[string]VPBreakdown, len(in))
	for id, vp := range in {
		out[id] = vp.Clone()
	}
	return out
}

// CloneTrackers deep-copies a player_id -> tracker -> value table.
func CloneTrackers(in map[string]map[string]int) map[string]map[string]int {
	out := make(map[string]map[string]int, len(in))
	for id, trackers := range in {
		out[id] = maps.Clone(trackers)
		if out[id] == nil {
			out[id] = map[string]int{}
		}
	}
	return out
}

// MilestoneClaim records who claimed a milestone and when.
type MilestoneClaim struct {
	ClaimedBy  string `json:"claimed_by"`
	PlayerID   string `json:"player_id"`
	MoveNumber int    `json:"move_number"`
	Timestamp  string `json:"timestamp"`
}

// AwardFunding records who funded an award and when.
type AwardFunding struct {
	FundedBy   string `json:"funded_by"`
	PlayerID   string `json:"player_id"`
	MoveNumber int    `json:"move_number"`
	Timestamp  string `json:"timestamp"`
}

// GameState is the derived state of the game as of one move.
type GameState struct {
	MoveNumber     int                       `json:"move_number"`
	Generation     int                       `json:"generation"`
	Temperature    int                       `json:"temperature"`
	Oxygen         int                       `json:"oxygen"`
	Oceans         int                       `json:"oceans"`
	PlayerVP       map[string]VPBreakdown    `json:"player_vp"`
	Milestones     map[string]MilestoneClaim `json:"milestones"`
	Awards         map[string]AwardFunding   `json:"awards"`
	PlayerTrackers map[string]map[string]int `json:"player_trackers"`
}

// RatingInfo is a player's arena and game rank outcome for one table.
type RatingInfo struct {
	PlayerID          string `json:"player_id,omitempty"`
	PlayerName        string `json:"player_name,omitempty"`
	Position          *int   `json:"position,omitempty"`
	ArenaPoints       *int   `json:"arena_points,omitempty"`
	ArenaPointsChange *int   `json:"arena_points_change,omitempty"`
	GameRank          *int   `json:"game_rank,omitempty"`
	GameRankChange    *int   `json:"game_rank_change,omitempty"`
}

// GameMetadata is the caller-supplied description of a table, either scraped from the
// table page or converted from an assignment payload.
type GameMetadata struct {
	PlayedAt                string  `json:"played_at,omitempty"`
	Map                     *string `json:"map,omitempty"`
	PreludeOn               *bool   `json:"prelude_on,omitempty"`
	ColoniesOn              *bool   `json:"colonies_on,omitempty"`
	CorporateEraOn          *bool   `json:"corporate_era_on,omitempty"`
	DraftOn                 *bool   `json:"draft_on,omitempty"`
	BeginnersCorporationsOn *bool   `json:"beginners_corporations_on,omitempty"`
	GameSpeed               *string `json:"game_speed,omitempty"`
	GameMode                string  `json:"game_mode,omitempty"`
	VersionID               string  `json:"version_id,omitempty"`

	// Players keeps the order players were listed in; it drives tie-breaks.
	Players []RatingInfo `json:"players"`
}

// PlayerIDs returns the ids of players that carry a display name, in listed order.
func (m *GameMetadata) PlayerIDs() []string {
	if m == nil {
		return nil
	}
	ids := make([]string, 0, len(m.Players))
	seen := make(map[string]bool, len(m.Players))
	for _, p := range m.Players {
		if p.PlayerID == "" || p.PlayerName == "" || seen[p.PlayerID] {
			continue
		}
		seen[p.PlayerID] = true
		ids = append(ids, p.PlayerID)
	}
	return ids
}

// Player returns the rating entry for id.
func (m *GameMetadata) Player(id string) (RatingInfo, bool) {
	if m == nil {
		return RatingInfo{}, false
	}
	for _, p := range m.Players {
		if p.PlayerID == id {
			return p, true
		}
	}
	return RatingInfo{}, false
}

// Player is the derived end-of-game summary for one participant.
type Player struct {
	PlayerID          string         `json:"player_id"`
	PlayerName        string         `json:"player_name"`
	Corporation       string         `json:"corporation"`
	FinalVP           int            `json:"final_vp"`
	FinalTR           int            `json:"final_tr"`
	VPBreakdown       map[string]int `json:"vp_breakdown"`
	CardsPlayed       []string       `json:"cards_played"`
	MilestonesClaimed []string       `json:"milestones_claimed"`
	AwardsFunded      []string       `json:"awards_funded"`
	RatingInfo        *RatingInfo    `json:"elo_data"`
}

// RecordMetadata describes the parse run itself.
type RecordMetadata struct {
	ParsedAt               string `json:"parsed_at"`
	TotalMoves             int    `json:"total_moves"`
	EmbeddedLogFound       bool   `json:"embedded_log_found"`
	AssignmentMetadataUsed bool   `json:"assignment_metadata_used"`
	RatingDataIncluded     bool   `json:"elo_data_included"`
	RatingPlayersFound     int    `json:"elo_players_found"`
}

// GameRecord is the complete reconstruction of one replay from one player's perspective.
type GameRecord struct {
	ReplayID                string             `json:"replay_id"`
	PlayerPerspective       string             `json:"player_perspective"`
	GameDate                string             `json:"game_date"`
	GameDuration            string             `json:"game_duration"`
	Winner                  string             `json:"winner"`
	Generations             int                `json:"generations"`
	Map                     *string            `json:"map"`
	PreludeOn               *bool              `json:"prelude_on"`
	ColoniesOn              *bool              `json:"colonies_on"`
	CorporateEraOn          *bool              `json:"corporate_era_on"`
	DraftOn                 *bool              `json:"draft_on"`
	BeginnersCorporationsOn *bool              `json:"beginners_corporations_on"`
	GameSpeed               *string            `json:"game_speed"`
	GameMode                string             `json:"game_mode"`
	VersionID               string             `json:"version_id,omitempty"`
	Players                 map[string]*Player `json:"players"`
	Moves                   []Move             `json:"moves"`
	Metadata                RecordMetadata     `json:"metadata"`
}
