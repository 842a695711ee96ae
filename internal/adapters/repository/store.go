// Package repository stores competitors, episodes, leagues, squads and their
// scored results.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/internal/domain/types"
)

// Store provides read/write access to the league state.
//
// Lists returned by a Store are owned by the caller.
type Store interface {
	// UpsertCompetitor creates the competitor, or replaces it when the id
	// already exists. An empty id gets a generated one. A stored elimination
	// flag, and the episode that set it, survive the update.
	UpsertCompetitor(ctx context.Context, c model.Competitor) (model.Competitor, error)
	// GetCompetitor returns ErrNotFound when the id is unknown.
	GetCompetitor(ctx context.Context, id string) (model.Competitor, error)
	// ListCompetitors orders by last name, then name, both descending.
	ListCompetitors(ctx context.Context) ([]model.Competitor, error)
	DeleteCompetitor(ctx context.Context, id string) error

	// EliminationStatus resolves ids in bulk. Unknown ids are absent from the
	// map. A competitor counts as eliminated as of asOf only when it was
	// flagged by an earlier episode or by hand.
	EliminationStatus(ctx context.Context, ids []string, asOf model.EpisodeKey) (map[string]bool, error)
	// SetEliminated flags the competitor as eliminated by episode in with a
	// single conditional write. changed is false when it was already flagged
	// or the id is unknown.
	SetEliminated(ctx context.Context, id string, in model.EpisodeKey) (changed bool, err error)

	// UpsertEpisode creates the episode or updates its metadata, keeping any
	// outcome lists already loaded.
	UpsertEpisode(ctx context.Context, e model.EpisodeOutcome) (*model.EpisodeOutcome, error)
	GetEpisode(ctx context.Context, key model.EpisodeKey) (*model.EpisodeOutcome, error)
	// ListEpisodes orders by edition, then number, both descending.
	ListEpisodes(ctx context.Context) ([]model.EpisodeOutcome, error)
	// SaveOutcome applies a partial outcome update to an existing episode.
	SaveOutcome(ctx context.Context, key model.EpisodeKey, patch model.OutcomePatch) (*model.EpisodeOutcome, error)

	// UpsertLeague creates the league, or renames it and replaces its admins
	// when the id exists. An empty id gets a generated one. The default
	// league always exists.
	UpsertLeague(ctx context.Context, l model.League) (model.League, error)
	GetLeague(ctx context.Context, id string) (model.League, error)
	// ListLeagues orders by name, then id.
	ListLeagues(ctx context.Context) ([]model.League, error)

	// UpsertBrigade stores the manager's roster in a league, replacing any
	// earlier one. The league must exist.
	UpsertBrigade(ctx context.Context, b model.Brigade) (model.Brigade, error)
	GetBrigade(ctx context.Context, leagueID, managerID string) (model.Brigade, error)
	// ListBrigades returns a league's rosters by manager id.
	ListBrigades(ctx context.Context, leagueID string) ([]model.Brigade, error)

	// UpsertSquad stores the manager's squad for the episode in its league,
	// replacing any earlier deployment and discarding its result. An empty
	// league id means the default league.
	UpsertSquad(ctx context.Context, s model.Squad) (model.Squad, error)
	// ListSquads returns every squad deployed against key across leagues,
	// by league id then manager id.
	ListSquads(ctx context.Context, key model.EpisodeKey) ([]model.Squad, error)
	// ListSquadsByManager returns the manager's squads in a league, newest
	// episode first.
	ListSquadsByManager(ctx context.Context, leagueID, managerID string) ([]model.Squad, error)

	// SaveResult replaces the stored result of the squad's episode. The
	// result is filed under the league of the stored squad.
	SaveResult(ctx context.Context, squad model.Squad, result model.ScoringResult) error
	// ListResultsByManager orders by episode, newest first. Each result lists
	// the line-up that was scored, which may lag a later redeploy.
	ListResultsByManager(ctx context.Context, leagueID, managerID string) ([]types.EpisodeResult, error)
	// Standings sums a league's results per manager. edition 0 covers every
	// edition.
	Standings(ctx context.Context, leagueID string, edition int) ([]types.Standing, error)

	Close() error
}

// Storage kinds accepted by Open.
const (
	KindSQLite = "sqlite"
	KindMemory = "memory"
)

// Open creates the store selected by kind. path is only used by SQLite.
func Open(ctx context.Context, kind, path string, opts ...Option) (Store, error) {
	switch kind {
	case KindSQLite:
		return NewSQLiteStore(ctx, path, opts...)
	case KindMemory:
		return NewMemoryStore(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, kind)
	}
}
