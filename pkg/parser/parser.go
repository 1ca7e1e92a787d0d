// Package parser runs the full reconstruction pipeline over one replay capture and
// aggregates the result into a replay.GameRecord.
package parser

import (
	"log/slog"
	"time"

	"github.com/jwebster45206/replay-engine/pkg/counters"
	"github.com/jwebster45206/replay-engine/pkg/gamelog"
	"github.com/jwebster45206/replay-engine/pkg/markup"
	"github.com/jwebster45206/replay-engine/pkg/moves"
	"github.com/jwebster45206/replay-engine/pkg/names"
	"github.com/jwebster45206/replay-engine/pkg/replay"
	"github.com/jwebster45206/replay-engine/pkg/scoring"
	"github.com/jwebster45206/replay-engine/pkg/state"
	"github.com/jwebster45206/replay-engine/pkg/tablemeta"
)

// Capture is the raw input for one run. Metadata, when set, takes precedence over
// Assignment, which takes precedence over TableHTML.
type Capture struct {
	ReplayID          string
	PlayerPerspective string
	ReplayHTML        string
	TableHTML         string
	Assignment        []byte
	Metadata          *replay.GameMetadata
}

// Parser reconstructs game records. It holds no per-run state and is safe for concurrent
// use.
type Parser struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock replaces the wall clock used for parsed_at and relative table dates.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// New creates a parser.
func New(logger *slog.Logger, opts ...Option) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Parser{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Metadata resolves the capture's game metadata and reports whether it came from an
// assignment payload.
func (p *Parser) Metadata(c Capture) (*replay.GameMetadata, bool, error) {
	switch {
	case c.Metadata != nil:
		return c.Metadata, false, nil
	case len(c.Assignment) > 0:
		md, err := tablemeta.FromAssignment(c.Assignment)
		if err != nil {
			return nil, false, &InvalidInputError{Field: "assignment", Err: err}
		}
		return md, true, nil
	case c.TableHTML != "":
		return tablemeta.ParseTable(c.TableHTML, p.now(), p.logger), false, nil
	}
	return nil, false, &MissingInputError{Field: "metadata"}
}

// Parse runs the pipeline. The only errors are MissingInputError when no players can be
// identified and InvalidInputError for an undecodable assignment; every other problem in
// the capture degrades to placeholder or carried-forward values.
func (p *Parser) Parse(c Capture) (*replay.GameRecord, error) {
	logger := p.logger.With("replay_id", c.ReplayID, "player_perspective", c.PlayerPerspective)

	md, fromAssignment, err := p.Metadata(c)
	if err != nil {
		return nil, err
	}
	ids := md.PlayerIDs()
	if len(ids) == 0 {
		return nil, &MissingInputError{Field: "players"}
	}
	roster := make(map[string]string, len(ids))
	for _, id := range ids {
		info, _ := md.Player(id)
		roster[id] = info.PlayerName
	}

	log, logErr := gamelog.Extract(c.ReplayHTML, logger)
	maps := names.Build(c.ReplayHTML, log, logger)

	root := markup.Parse(c.ReplayHTML)
	extracted := moves.NewExtractor(log, roster, logger).Extract(root)
	corporations := moves.ExtractCorporations(root)

	snapshots := scoring.Build(log, maps, logger)
	timeline := counters.Build(log, maps, ids, logger)

	assembled := state.NewAssembler(ids, logger).
		WithScoring(scoring.Index(snapshots)).
		WithParameters(state.ParameterChanges(log, logger)).
		WithCounters(timeline).
		WithClaimNames(maps.MilestoneNames(), maps.AwardNames()).
		Assemble(extracted)

	agg := aggregation{
		capture:        c,
		metadata:       md,
		playerIDs:      ids,
		roster:         roster,
		corporations:   corporations,
		maps:           maps,
		assembled:      assembled,
		snapshots:      len(snapshots),
		embeddedLog:    logErr == nil,
		fromAssignment: fromAssignment,
		parsedAt:       p.now(),
	}
	record := agg.record()

	logger.Info("Parsed replay",
		"moves", len(record.Moves),
		"players", len(record.Players),
		"snapshots", len(snapshots),
		"embedded_log", record.Metadata.EmbeddedLogFound,
		"winner", record.Winner)
	return record, nil
}
