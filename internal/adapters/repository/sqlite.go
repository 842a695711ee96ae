package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/internal/domain/types"
)

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and migrates it.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := applyOptions(opts)
	db, err := openDatabase(ctx, path, o.logger)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, opts: o}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const competitorColumns = `id, name, last_name, edition_number, description, image_name,
	eliminated, eliminated_edition, eliminated_number, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompetitor(row rowScanner) (model.Competitor, error) {
	var (
		c          model.Competitor
		elimEd     sql.NullInt64
		elimNumber sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Name, &c.LastName, &c.EditionNumber, &c.Description, &c.ImageName,
		&c.Eliminated, &elimEd, &elimNumber, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Competitor{}, err
	}
	if elimEd.Valid && elimNumber.Valid {
		c.EliminatedIn = &model.EpisodeKey{Edition: int(elimEd.Int64), Number: int(elimNumber.Int64)}
	}
	return c, nil
}

func (s *SQLiteStore) UpsertCompetitor(ctx context.Context, c model.Competitor) (out model.Competitor, err error) {
	defer observe("upsert_competitor", time.Now(), &err)
	if err := validateCompetitor(c); err != nil {
		return model.Competitor{}, err
	}
	if c.ID == "" {
		if c.ID, err = s.opts.newID(); err != nil {
			return model.Competitor{}, fmt.Errorf("generate competitor id: %w", err)
		}
	}
	now := s.opts.now()
	c.EliminatedIn = eliminatedIn(c)
	var elimEd, elimNumber sql.NullInt64
	if c.EliminatedIn != nil {
		elimEd = sql.NullInt64{Int64: int64(c.EliminatedIn.Edition), Valid: true}
		elimNumber = sql.NullInt64{Int64: int64(c.EliminatedIn.Number), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO competitors (`+competitorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			last_name = excluded.last_name,
			edition_number = excluded.edition_number,
			description = excluded.description,
			image_name = excluded.image_name,
			eliminated = MAX(competitors.eliminated, excluded.eliminated),
			eliminated_edition = CASE WHEN competitors.eliminated = 1
				THEN competitors.eliminated_edition ELSE excluded.eliminated_edition END,
			eliminated_number = CASE WHEN competitors.eliminated = 1
				THEN competitors.eliminated_number ELSE excluded.eliminated_number END,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, c.LastName, c.EditionNumber, c.Description, c.ImageName,
		c.Eliminated, elimEd, elimNumber, now, now)
	if err != nil {
		return model.Competitor{}, fmt.Errorf("upsert competitor %s: %w", c.ID, err)
	}
	return s.GetCompetitor(ctx, c.ID)
}

func (s *SQLiteStore) GetCompetitor(ctx context.Context, id string) (out model.Competitor, err error) {
	defer observe("get_competitor", time.Now(), &err)
	row := s.db.QueryRowContext(ctx, `SELECT `+competitorColumns+` FROM competitors WHERE id = ?`, id)
	c, err := scanCompetitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Competitor{}, fmt.Errorf("competitor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Competitor{}, fmt.Errorf("get competitor %s: %w", id, err)
	}
	return c, nil
}

func (s *SQLiteStore) ListCompetitors(ctx context.Context) (out []model.Competitor, err error) {
	defer observe("list_competitors", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+competitorColumns+` FROM competitors ORDER BY last_name DESC, name DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	defer rows.Close()

	out = []model.Competitor{}
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteCompetitor(ctx context.Context, id string) (err error) {
	defer observe("delete_competitor", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `DELETE FROM competitors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete competitor %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("competitor %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) EliminationStatus(ctx context.Context, ids []string, asOf model.EpisodeKey) (out map[string]bool, err error) {
	defer observe("elimination_status", time.Now(), &err)
	out = make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + competitorColumns + ` FROM competitors WHERE id IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve elimination status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		out[c.ID] = c.EliminatedBefore(asOf)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetEliminated(ctx context.Context, id string, in model.EpisodeKey) (changed bool, err error) {
	defer observe("set_eliminated", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `
		UPDATE competitors
		SET eliminated = 1, eliminated_edition = ?, eliminated_number = ?, updated_at = ?
		WHERE id = ? AND eliminated = 0`,
		in.Edition, in.Number, s.opts.now(), id)
	if err != nil {
		return false, fmt.Errorf("flag competitor %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("flag competitor %s: %w", id, err)
	}
	return n == 1, nil
}

const episodeColumns = `edition_number, number, is_outside, aired_at, description,
	mystery_box_podium, mystery_box_worst, invention_test_podium, invention_test_worst,
	red_brigade, blue_brigade, pressure_test, eliminated, red_brigade_wins`

func scanEpisode(row rowScanner) (*model.EpisodeOutcome, error) {
	var (
		e       model.EpisodeOutcome
		airedAt sql.NullTime
		lists   [8]sql.NullString
		redWins sql.NullBool
	)
	err := row.Scan(&e.Key.Edition, &e.Key.Number, &e.IsOutside, &airedAt, &e.Description,
		&lists[0], &lists[1], &lists[2], &lists[3], &lists[4], &lists[5], &lists[6], &lists[7], &redWins)
	if err != nil {
		return nil, err
	}
	if airedAt.Valid {
		e.AiredAt = airedAt.Time
	}
	dsts := []*[]string{
		&e.MysteryBoxPodium, &e.MysteryBoxWorst, &e.InventionTestPodium, &e.InventionTestWorst,
		&e.RedBrigade, &e.BlueBrigade, &e.PressureTest, &e.Eliminated,
	}
	for i, dst := range dsts {
		if *dst, err = decodeList(lists[i]); err != nil {
			return nil, err
		}
	}
	if redWins.Valid {
		v := redWins.Bool
		e.RedBrigadeWins = &v
	}
	return &e, nil
}

func (s *SQLiteStore) UpsertEpisode(ctx context.Context, e model.EpisodeOutcome) (out *model.EpisodeOutcome, err error) {
	defer observe("upsert_episode", time.Now(), &err)
	if err := validateEpisodeKey(e.Key); err != nil {
		return nil, err
	}
	now := s.opts.now()
	var airedAt sql.NullTime
	if !e.AiredAt.IsZero() {
		airedAt = sql.NullTime{Time: e.AiredAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO episodes (edition_number, number, is_outside, aired_at, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(edition_number, number) DO UPDATE SET
			is_outside = excluded.is_outside,
			aired_at = excluded.aired_at,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		e.Key.Edition, e.Key.Number, e.IsOutside, airedAt, e.Description, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert episode %s: %w", e.Key, err)
	}
	return s.GetEpisode(ctx, e.Key)
}

func (s *SQLiteStore) GetEpisode(ctx context.Context, key model.EpisodeKey) (out *model.EpisodeOutcome, err error) {
	defer observe("get_episode", time.Now(), &err)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE edition_number = ? AND number = ?`,
		key.Edition, key.Number)
	e, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("episode %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get episode %s: %w", key, err)
	}
	return e, nil
}

func (s *SQLiteStore) ListEpisodes(ctx context.Context) (out []model.EpisodeOutcome, err error) {
	defer observe("list_episodes", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes ORDER BY edition_number DESC, number DESC`)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	out = []model.EpisodeOutcome{}
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// SaveOutcome reads, patches and writes the episode inside one transaction.
func (s *SQLiteStore) SaveOutcome(ctx context.Context, key model.EpisodeKey, patch model.OutcomePatch) (out *model.EpisodeOutcome, err error) {
	defer observe("save_outcome", time.Now(), &err)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE edition_number = ? AND number = ?`,
		key.Edition, key.Number)
	e, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("episode %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get episode %s: %w", key, err)
	}
	patch.Apply(e)

	lists := make([]any, 0, 8)
	for _, l := range [][]string{
		e.MysteryBoxPodium, e.MysteryBoxWorst, e.InventionTestPodium, e.InventionTestWorst,
		e.RedBrigade, e.BlueBrigade, e.PressureTest, e.Eliminated,
	} {
		enc, err := encodeList(l)
		if err != nil {
			return nil, err
		}
		lists = append(lists, enc)
	}
	var redWins sql.NullBool
	if e.RedBrigadeWins != nil {
		redWins = sql.NullBool{Bool: *e.RedBrigadeWins, Valid: true}
	}
	args := append(lists, redWins, s.opts.now(), key.Edition, key.Number)
	_, err = tx.ExecContext(ctx, `
		UPDATE episodes SET
			mystery_box_podium = ?, mystery_box_worst = ?,
			invention_test_podium = ?, invention_test_worst = ?,
			red_brigade = ?, blue_brigade = ?,
			pressure_test = ?, eliminated = ?,
			red_brigade_wins = ?, updated_at = ?
		WHERE edition_number = ? AND number = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("save outcome %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit outcome %s: %w", key, err)
	}
	return e, nil
}

const leagueColumns = `id, name, admins, created_at, updated_at`

func scanLeague(row rowScanner) (model.League, error) {
	var (
		l      model.League
		admins sql.NullString
	)
	if err := row.Scan(&l.ID, &l.Name, &admins, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return model.League{}, err
	}
	list, err := decodeList(admins)
	if err != nil {
		return model.League{}, err
	}
	l.Admins = list
	if l.Admins == nil {
		l.Admins = []string{}
	}
	return l, nil
}

func (s *SQLiteStore) UpsertLeague(ctx context.Context, l model.League) (out model.League, err error) {
	defer observe("upsert_league", time.Now(), &err)
	if err := validateLeague(l); err != nil {
		return model.League{}, err
	}
	if l.ID == "" {
		if l.ID, err = s.opts.newID(); err != nil {
			return model.League{}, fmt.Errorf("generate league id: %w", err)
		}
	}
	admins, err := encodeList(l.Admins)
	if err != nil {
		return model.League{}, err
	}
	now := s.opts.now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leagues (`+leagueColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			admins = excluded.admins,
			updated_at = excluded.updated_at`,
		l.ID, l.Name, admins, now, now)
	if err != nil {
		return model.League{}, fmt.Errorf("upsert league %s: %w", l.ID, err)
	}
	return s.GetLeague(ctx, l.ID)
}

func (s *SQLiteStore) GetLeague(ctx context.Context, id string) (out model.League, err error) {
	defer observe("get_league", time.Now(), &err)
	row := s.db.QueryRowContext(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id = ?`, id)
	l, err := scanLeague(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.League{}, fmt.Errorf("league %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.League{}, fmt.Errorf("get league %s: %w", id, err)
	}
	return l, nil
}

func (s *SQLiteStore) ListLeagues(ctx context.Context) (out []model.League, err error) {
	defer observe("list_leagues", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `SELECT `+leagueColumns+` FROM leagues ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list leagues: %w", err)
	}
	defer rows.Close()

	out = []model.League{}
	for rows.Next() {
		l, err := scanLeague(rows)
		if err != nil {
			return nil, fmt.Errorf("scan league: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const brigadeColumns = `id, league_id, manager_id, competitors, updated_at`

func scanBrigade(row rowScanner) (model.Brigade, error) {
	var (
		b           model.Brigade
		competitors sql.NullString
	)
	if err := row.Scan(&b.ID, &b.LeagueID, &b.ManagerID, &competitors, &b.UpdatedAt); err != nil {
		return model.Brigade{}, err
	}
	list, err := decodeList(competitors)
	if err != nil {
		return model.Brigade{}, err
	}
	b.Competitors = list
	return b, nil
}

func (s *SQLiteStore) UpsertBrigade(ctx context.Context, b model.Brigade) (out model.Brigade, err error) {
	defer observe("upsert_brigade", time.Now(), &err)
	if err := validateBrigade(b); err != nil {
		return model.Brigade{}, err
	}
	b.LeagueID = model.LeagueOrDefault(b.LeagueID)
	competitors, err := encodeList(b.Competitors)
	if err != nil {
		return model.Brigade{}, err
	}
	id, err := s.opts.newID()
	if err != nil {
		return model.Brigade{}, fmt.Errorf("generate brigade id: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO brigades (`+brigadeColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(league_id, manager_id) DO UPDATE SET
			competitors = excluded.competitors,
			updated_at = excluded.updated_at`,
		id, b.LeagueID, b.ManagerID, competitors, s.opts.now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Brigade{}, fmt.Errorf("league %s: %w", b.LeagueID, ErrNotFound)
		}
		return model.Brigade{}, fmt.Errorf("upsert brigade: %w", err)
	}
	return s.GetBrigade(ctx, b.LeagueID, b.ManagerID)
}

func (s *SQLiteStore) GetBrigade(ctx context.Context, leagueID, managerID string) (out model.Brigade, err error) {
	defer observe("get_brigade", time.Now(), &err)
	leagueID = model.LeagueOrDefault(leagueID)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+brigadeColumns+` FROM brigades WHERE league_id = ? AND manager_id = ?`, leagueID, managerID)
	b, err := scanBrigade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Brigade{}, fmt.Errorf("brigade of %s in league %s: %w", managerID, leagueID, ErrNotFound)
	}
	if err != nil {
		return model.Brigade{}, fmt.Errorf("get brigade: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) ListBrigades(ctx context.Context, leagueID string) (out []model.Brigade, err error) {
	defer observe("list_brigades", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+brigadeColumns+` FROM brigades WHERE league_id = ? ORDER BY manager_id`,
		model.LeagueOrDefault(leagueID))
	if err != nil {
		return nil, fmt.Errorf("list brigades: %w", err)
	}
	defer rows.Close()

	out = []model.Brigade{}
	for rows.Next() {
		b, err := scanBrigade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan brigade: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const squadColumns = `id, league_id, manager_id, edition_number, number, competitors, updated_at`

func scanSquad(row rowScanner) (model.Squad, error) {
	var (
		sq          model.Squad
		competitors sql.NullString
	)
	if err := row.Scan(&sq.ID, &sq.LeagueID, &sq.ManagerID, &sq.Episode.Edition, &sq.Episode.Number, &competitors, &sq.UpdatedAt); err != nil {
		return model.Squad{}, err
	}
	list, err := decodeList(competitors)
	if err != nil {
		return model.Squad{}, err
	}
	sq.Competitors = list
	return sq, nil
}

// UpsertSquad replaces the manager's deployment for the episode and drops
// any result computed for the previous line-up.
func (s *SQLiteStore) UpsertSquad(ctx context.Context, sq model.Squad) (out model.Squad, err error) {
	defer observe("upsert_squad", time.Now(), &err)
	if err := validateSquad(sq); err != nil {
		return model.Squad{}, err
	}
	sq.LeagueID = model.LeagueOrDefault(sq.LeagueID)
	competitors, err := encodeList(sq.Competitors)
	if err != nil {
		return model.Squad{}, err
	}
	id, err := s.opts.newID()
	if err != nil {
		return model.Squad{}, fmt.Errorf("generate squad id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Squad{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM episodes WHERE edition_number = ? AND number = ?`,
		sq.Episode.Edition, sq.Episode.Number).Scan(&exists)
	if err != nil {
		return model.Squad{}, fmt.Errorf("check episode %s: %w", sq.Episode, err)
	}
	if exists == 0 {
		return model.Squad{}, fmt.Errorf("episode %s: %w", sq.Episode, ErrNotFound)
	}
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM leagues WHERE id = ?`, sq.LeagueID).Scan(&exists)
	if err != nil {
		return model.Squad{}, fmt.Errorf("check league %s: %w", sq.LeagueID, err)
	}
	if exists == 0 {
		return model.Squad{}, fmt.Errorf("league %s: %w", sq.LeagueID, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO squads (`+squadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(league_id, manager_id, edition_number, number) DO UPDATE SET
			competitors = excluded.competitors,
			updated_at = excluded.updated_at`,
		id, sq.LeagueID, sq.ManagerID, sq.Episode.Edition, sq.Episode.Number, competitors, s.opts.now())
	if err != nil {
		return model.Squad{}, fmt.Errorf("upsert squad: %w", err)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+squadColumns+` FROM squads
		WHERE league_id = ? AND manager_id = ? AND edition_number = ? AND number = ?`,
		sq.LeagueID, sq.ManagerID, sq.Episode.Edition, sq.Episode.Number)
	if out, err = scanSquad(row); err != nil {
		return model.Squad{}, fmt.Errorf("reload squad: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM results WHERE squad_id = ?`, out.ID); err != nil {
		return model.Squad{}, fmt.Errorf("drop stale result: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return model.Squad{}, fmt.Errorf("commit squad: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) querySquads(ctx context.Context, query string, args ...any) ([]model.Squad, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list squads: %w", err)
	}
	defer rows.Close()

	var out []model.Squad
	for rows.Next() {
		sq, err := scanSquad(rows)
		if err != nil {
			return nil, fmt.Errorf("scan squad: %w", err)
		}
		out = append(out, sq)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListSquads(ctx context.Context, key model.EpisodeKey) (out []model.Squad, err error) {
	defer observe("list_squads", time.Now(), &err)
	return s.querySquads(ctx,
		`SELECT `+squadColumns+` FROM squads WHERE edition_number = ? AND number = ? ORDER BY league_id, manager_id`,
		key.Edition, key.Number)
}

func (s *SQLiteStore) ListSquadsByManager(ctx context.Context, leagueID, managerID string) (out []model.Squad, err error) {
	defer observe("list_squads_by_manager", time.Now(), &err)
	return s.querySquads(ctx, `SELECT `+squadColumns+` FROM squads
		WHERE league_id = ? AND manager_id = ? ORDER BY edition_number DESC, number DESC`,
		model.LeagueOrDefault(leagueID), managerID)
}

func (s *SQLiteStore) SaveResult(ctx context.Context, sq model.Squad, result model.ScoringResult) (err error) {
	defer observe("save_result", time.Now(), &err)
	events := result.Events
	if events == nil {
		events = []model.ScoreEvent{}
	}
	encoded, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	lineup, err := encodeList(sq.Competitors)
	if err != nil {
		return err
	}

	// The league comes from the stored squad. An unknown squad inserts nothing.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO results (squad_id, league_id, manager_id, edition_number, number, competitors, total_points, events, updated_at)
		SELECT id, league_id, ?, ?, ?, ?, ?, ?, ? FROM squads WHERE id = ?
		ON CONFLICT(squad_id) DO UPDATE SET
			competitors = excluded.competitors,
			total_points = excluded.total_points,
			events = excluded.events,
			updated_at = excluded.updated_at`,
		sq.ManagerID, sq.Episode.Edition, sq.Episode.Number, lineup,
		result.TotalPoints, string(encoded), s.opts.now(), sq.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("squad %s: %w", sq.ID, ErrNotFound)
		}
		return fmt.Errorf("save result for squad %s: %w", sq.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("squad %s: %w", sq.ID, ErrNotFound)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func (s *SQLiteStore) ListResultsByManager(ctx context.Context, leagueID, managerID string) (out []types.EpisodeResult, err error) {
	defer observe("list_results_by_manager", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.squad_id, r.league_id, r.manager_id, r.edition_number, r.number,
			COALESCE(r.competitors, s.competitors),
			r.total_points, r.events, r.updated_at
		FROM results r
		JOIN squads s ON s.id = r.squad_id
		WHERE r.league_id = ? AND r.manager_id = ?
		ORDER BY r.edition_number DESC, r.number DESC`, model.LeagueOrDefault(leagueID), managerID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	out = []types.EpisodeResult{}
	for rows.Next() {
		var (
			r           types.EpisodeResult
			competitors sql.NullString
			events      string
		)
		err := rows.Scan(&r.SquadID, &r.LeagueID, &r.ManagerID, &r.Episode.Edition, &r.Episode.Number,
			&competitors, &r.TotalPoints, &events, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Competitors, err = decodeList(competitors); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(events), &r.Events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Standings(ctx context.Context, leagueID string, edition int) (out []types.Standing, err error) {
	defer observe("standings", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `
		SELECT manager_id, SUM(total_points), COUNT(*)
		FROM results
		WHERE league_id = ? AND (? = 0 OR edition_number = ?)
		GROUP BY manager_id`, model.LeagueOrDefault(leagueID), edition, edition)
	if err != nil {
		return nil, fmt.Errorf("standings: %w", err)
	}
	defer rows.Close()

	out = []types.Standing{}
	for rows.Next() {
		var st types.Standing
		if err := rows.Scan(&st.ManagerID, &st.Points, &st.Episodes); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return types.RankStandings(out), nil
}

// encodeList stores nil as NULL so that "not loaded" survives a round trip.
func encodeList(list []string) (sql.NullString, error) {
	if list == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode list: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeList(v sql.NullString) ([]string, error) {
	if !v.Valid {
		return nil, nil
	}
	list := []string{}
	if err := json.Unmarshal([]byte(v.String), &list); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return list, nil
}
