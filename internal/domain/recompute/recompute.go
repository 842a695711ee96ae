// Package recompute rescores every squad deployed against an episode after
// its outcome changes.
package recompute

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fantabrigade/internal/domain/elimination"
	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/internal/domain/scoring"
	"github.com/okian/fantabrigade/pkg/logger"
	"github.com/okian/fantabrigade/pkg/metrics"
)

const defaultParallelism = 8

// Store is the storage surface the driver needs.
type Store interface {
	elimination.FlagWriter

	// GetEpisode returns the current outcome snapshot for key.
	GetEpisode(ctx context.Context, key model.EpisodeKey) (*model.EpisodeOutcome, error)
	// ListSquads returns every squad deployed against key.
	ListSquads(ctx context.Context, key model.EpisodeKey) ([]model.Squad, error)
	// EliminationStatus resolves ids in bulk; unknown ids are omitted.
	EliminationStatus(ctx context.Context, ids []string, asOf model.EpisodeKey) (map[string]bool, error)
	// SaveResult replaces the stored result for the squad's episode.
	SaveResult(ctx context.Context, squad model.Squad, result model.ScoringResult) error
}

// Stage labels where a squad's recompute failed.
type Stage string

// Failure stages.
const (
	StageEliminate Stage = "eliminate"
	StagePersist   Stage = "persist"
)

// SquadFailure reports a recoverable failure for one squad.
type SquadFailure struct {
	SquadID   string `json:"squadId"`
	LeagueID  string `json:"leagueId"`
	ManagerID string `json:"managerId"`
	Stage     Stage  `json:"stage"`
	Message   string `json:"error"`
	Err       error  `json:"-"`
}

func (f SquadFailure) Error() string {
	return fmt.Sprintf("squad %s (%s): %s", f.SquadID, f.Stage, f.Message)
}

func (f SquadFailure) Unwrap() error { return f.Err }

// Report summarizes one batch.
type Report struct {
	Episode   model.EpisodeKey `json:"episode"`
	Squads    int              `json:"squads"`
	Persisted int              `json:"persisted"`
	Flagged   []string         `json:"flagged"`
	Failures  []SquadFailure   `json:"failures,omitempty"`
	Duration  time.Duration    `json:"durationNs"`
}

// OK reports whether every squad was fully processed.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// Option applies a configuration option to the Driver.
type Option func(*Driver)

// WithParallelism bounds how many squads are processed at once.
func WithParallelism(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.parallelism = n
		}
	}
}

// WithScorer overrides the scoring engine.
func WithScorer(s scoring.Scorer) Option {
	return func(d *Driver) {
		if s != nil {
			d.scorer = s
		}
	}
}

// WithLogger sets a custom logger for the driver.
func WithLogger(l logger.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// Driver runs scoring, elimination and persistence for every squad of an
// episode.
type Driver struct {
	store       Store
	scorer      scoring.Scorer
	parallelism int
	logger      logger.Logger
}

// NewDriver creates a driver over store.
func NewDriver(store Store, opts ...Option) *Driver {
	d := &Driver{
		store:       store,
		scorer:      scoring.NewEngine(),
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named("recompute")
	}
	return d
}

type squadOutcome struct {
	persisted bool
	flagged   []string
	failures  []SquadFailure
}

// Recompute rescores every squad deployed against key.
//
// The roster is resolved once for the whole batch, before any elimination
// flag is written, so every squad sees competitor status as of the previous
// episodes. Squad failures are collected in the report; the returned error
// covers only batch-level problems (loading the outcome, squads or roster,
// or cancellation).
func (d *Driver) Recompute(ctx context.Context, key model.EpisodeKey) (Report, error) {
	start := time.Now()
	report := Report{Episode: key, Flagged: []string{}}
	ctx = logger.ContextWith(ctx, logger.String("episode", key.String()))

	outcome, err := d.store.GetEpisode(ctx, key)
	if err != nil {
		return report, fmt.Errorf("%w: load episode %s: %w", ErrLoad, key, err)
	}
	squads, err := d.store.ListSquads(ctx, key)
	if err != nil {
		return report, fmt.Errorf("%w: list squads for %s: %w", ErrLoad, key, err)
	}
	report.Squads = len(squads)
	if len(squads) == 0 {
		d.logger.Info(ctx, "no squads deployed for episode")
		return report, nil
	}

	status, err := d.store.EliminationStatus(ctx, rosterIDs(squads), key)
	if err != nil {
		return report, fmt.Errorf("%w: resolve roster for %s: %w", ErrLoad, key, err)
	}
	roster := scoring.Roster(status)

	results := make([]squadOutcome, len(squads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallelism)
	for i := range squads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.processSquad(gctx, squads[i], outcome, roster)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("recompute %s interrupted: %w", key, err)
	}

	for _, r := range results {
		if r.persisted {
			report.Persisted++
		}
		report.Flagged = append(report.Flagged, r.flagged...)
		report.Failures = append(report.Failures, r.failures...)
	}
	slices.Sort(report.Flagged)
	report.Flagged = slices.Compact(report.Flagged)
	report.Duration = time.Since(start)

	metrics.RecordRecompute(float64(report.Duration.Milliseconds()))
	d.logger.Info(ctx, "episode recomputed",
		logger.Int("squads", report.Squads),
		logger.Int("persisted", report.Persisted),
		logger.Int("flagged", len(report.Flagged)),
		logger.Int("failures", len(report.Failures)),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

// processSquad scores, propagates eliminations and persists one squad. The
// two writes are independent: a failed flag update does not block the
// result from being stored.
func (d *Driver) processSquad(ctx context.Context, squad model.Squad, outcome *model.EpisodeOutcome, roster scoring.Roster) squadOutcome {
	var out squadOutcome

	result := d.scorer.Evaluate(squad, outcome, roster)
	for _, e := range result.Events {
		metrics.RecordScoreEvent(string(e.Kind))
	}

	flagged, err := elimination.Apply(ctx, squad, outcome, d.store)
	out.flagged = flagged
	metrics.RecordEliminationsFlagged(len(flagged))
	if err != nil {
		out.failures = append(out.failures, d.fail(ctx, squad, StageEliminate, err))
	}

	if err := d.store.SaveResult(ctx, squad, result); err != nil {
		out.failures = append(out.failures, d.fail(ctx, squad, StagePersist, err))
		return out
	}
	out.persisted = true
	metrics.RecordSquadScored()
	d.logger.Debug(ctx, "squad scored",
		logger.String("squad_id", squad.ID),
		logger.String("league_id", squad.LeagueID),
		logger.String("manager_id", squad.ManagerID),
		logger.Int("points", result.TotalPoints),
		logger.Int("events", len(result.Events)),
	)
	return out
}

func (d *Driver) fail(ctx context.Context, squad model.Squad, stage Stage, err error) SquadFailure {
	metrics.RecordSquadFailure(string(stage))
	d.logger.Error(ctx, "squad recompute step failed",
		logger.String("squad_id", squad.ID),
		logger.String("league_id", squad.LeagueID),
		logger.String("manager_id", squad.ManagerID),
		logger.String("stage", string(stage)),
		logger.Error(err),
	)
	return SquadFailure{
		SquadID:   squad.ID,
		LeagueID:  squad.LeagueID,
		ManagerID: squad.ManagerID,
		Stage:     stage,
		Message:   err.Error(),
		Err:       err,
	}
}

func rosterIDs(squads []model.Squad) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, s := range squads {
		for _, id := range s.Members() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
