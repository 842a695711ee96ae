package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/internal/domain/types"
	"github.com/okian/fantabrigade/pkg/logger"
)

type squadKey struct {
	leagueID  string
	managerID string
	episode   model.EpisodeKey
}

type brigadeKey struct {
	leagueID  string
	managerID string
}

type storedResult struct {
	squad     model.Squad
	result    model.ScoringResult
	updatedAt time.Time
}

// MemoryStore is an in-process Store guarded by a single RWMutex.
type MemoryStore struct {
	mu          sync.RWMutex
	competitors map[string]model.Competitor
	episodes    map[model.EpisodeKey]*model.EpisodeOutcome
	leagues     map[string]model.League
	brigades    map[brigadeKey]model.Brigade
	squads      map[string]model.Squad
	squadIndex  map[squadKey]string
	results     map[string]storedResult

	opts options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		competitors: make(map[string]model.Competitor),
		episodes:    make(map[model.EpisodeKey]*model.EpisodeOutcome),
		leagues:     make(map[string]model.League),
		brigades:    make(map[brigadeKey]model.Brigade),
		squads:      make(map[string]model.Squad),
		squadIndex:  make(map[squadKey]string),
		results:     make(map[string]storedResult),
		opts:        applyOptions(opts),
	}
	now := s.opts.now()
	s.leagues[model.DefaultLeagueID] = model.League{
		ID: model.DefaultLeagueID, Name: defaultLeagueName, Admins: []string{}, CreatedAt: now, UpdatedAt: now,
	}
	s.opts.logger.Info(context.Background(), "memory store ready")
	return s
}

func (s *MemoryStore) UpsertCompetitor(_ context.Context, c model.Competitor) (out model.Competitor, err error) {
	defer observe("upsert_competitor", time.Now(), &err)
	if err := validateCompetitor(c); err != nil {
		return model.Competitor{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now()
	if c.ID == "" {
		id, err := s.opts.newID()
		if err != nil {
			return model.Competitor{}, fmt.Errorf("generate competitor id: %w", err)
		}
		c.ID = id
	}
	c.CreatedAt = now
	c.EliminatedIn = eliminatedIn(c)
	if prev, ok := s.competitors[c.ID]; ok {
		c.CreatedAt = prev.CreatedAt
		if prev.Eliminated {
			c.Eliminated, c.EliminatedIn = true, prev.EliminatedIn
		}
	}
	c.UpdatedAt = now
	s.competitors[c.ID] = c
	return c, nil
}

func (s *MemoryStore) GetCompetitor(_ context.Context, id string) (out model.Competitor, err error) {
	defer observe("get_competitor", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.competitors[id]
	if !ok {
		return model.Competitor{}, fmt.Errorf("competitor %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) ListCompetitors(_ context.Context) (out []model.Competitor, err error) {
	defer observe("list_competitors", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out = make([]model.Competitor, 0, len(s.competitors))
	for _, c := range s.competitors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName > out[j].LastName
		}
		if out[i].Name != out[j].Name {
			return out[i].Name > out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) DeleteCompetitor(_ context.Context, id string) (err error) {
	defer observe("delete_competitor", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.competitors[id]; !ok {
		return fmt.Errorf("competitor %s: %w", id, ErrNotFound)
	}
	delete(s.competitors, id)
	return nil
}

func (s *MemoryStore) EliminationStatus(_ context.Context, ids []string, asOf model.EpisodeKey) (out map[string]bool, err error) {
	defer observe("elimination_status", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out = make(map[string]bool, len(ids))
	for _, id := range ids {
		if c, ok := s.competitors[id]; ok {
			out[id] = c.EliminatedBefore(asOf)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetEliminated(_ context.Context, id string, in model.EpisodeKey) (changed bool, err error) {
	defer observe("set_eliminated", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.competitors[id]
	if !ok || c.Eliminated {
		return false, nil
	}
	key := in
	c.Eliminated = true
	c.EliminatedIn = &key
	c.UpdatedAt = s.opts.now()
	s.competitors[id] = c
	return true, nil
}

func (s *MemoryStore) UpsertEpisode(_ context.Context, e model.EpisodeOutcome) (out *model.EpisodeOutcome, err error) {
	defer observe("upsert_episode", time.Now(), &err)
	if err := validateEpisodeKey(e.Key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.episodes[e.Key]
	if !ok {
		stored = e.Clone()
		s.episodes[e.Key] = stored
		return stored.Clone(), nil
	}
	stored.IsOutside = e.IsOutside
	stored.AiredAt = e.AiredAt
	stored.Description = e.Description
	return stored.Clone(), nil
}

func (s *MemoryStore) GetEpisode(_ context.Context, key model.EpisodeKey) (out *model.EpisodeOutcome, err error) {
	defer observe("get_episode", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.episodes[key]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", key, ErrNotFound)
	}
	return e.Clone(), nil
}

func (s *MemoryStore) ListEpisodes(_ context.Context) (out []model.EpisodeOutcome, err error) {
	defer observe("list_episodes", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out = make([]model.EpisodeOutcome, 0, len(s.episodes))
	for _, e := range s.episodes {
		out = append(out, *e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Key.Before(out[i].Key) })
	return out, nil
}

func (s *MemoryStore) SaveOutcome(_ context.Context, key model.EpisodeKey, patch model.OutcomePatch) (out *model.EpisodeOutcome, err error) {
	defer observe("save_outcome", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.episodes[key]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", key, ErrNotFound)
	}
	patch.Apply(e)
	return e.Clone(), nil
}

func (s *MemoryStore) UpsertLeague(_ context.Context, l model.League) (out model.League, err error) {
	defer observe("upsert_league", time.Now(), &err)
	if err := validateLeague(l); err != nil {
		return model.League{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		if l.ID, err = s.opts.newID(); err != nil {
			return model.League{}, fmt.Errorf("generate league id: %w", err)
		}
	}
	now := s.opts.now()
	l.CreatedAt = now
	if prev, ok := s.leagues[l.ID]; ok {
		l.CreatedAt = prev.CreatedAt
	}
	l.UpdatedAt = now
	l.Admins = append([]string{}, l.Admins...)
	s.leagues[l.ID] = l
	return cloneLeague(l), nil
}

func (s *MemoryStore) GetLeague(_ context.Context, id string) (out model.League, err error) {
	defer observe("get_league", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leagues[id]
	if !ok {
		return model.League{}, fmt.Errorf("league %s: %w", id, ErrNotFound)
	}
	return cloneLeague(l), nil
}

func (s *MemoryStore) ListLeagues(_ context.Context) (out []model.League, err error) {
	defer observe("list_leagues", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out = make([]model.League, 0, len(s.leagues))
	for _, l := range s.leagues {
		out = append(out, cloneLeague(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpsertBrigade(_ context.Context, b model.Brigade) (out model.Brigade, err error) {
	defer observe("upsert_brigade", time.Now(), &err)
	if err := validateBrigade(b); err != nil {
		return model.Brigade{}, err
	}
	b.LeagueID = model.LeagueOrDefault(b.LeagueID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leagues[b.LeagueID]; !ok {
		return model.Brigade{}, fmt.Errorf("league %s: %w", b.LeagueID, ErrNotFound)
	}
	k := brigadeKey{leagueID: b.LeagueID, managerID: b.ManagerID}
	if prev, ok := s.brigades[k]; ok {
		b.ID = prev.ID
	} else if b.ID, err = s.opts.newID(); err != nil {
		return model.Brigade{}, fmt.Errorf("generate brigade id: %w", err)
	}
	b.Competitors = append([]string(nil), b.Competitors...)
	b.UpdatedAt = s.opts.now()
	s.brigades[k] = b
	return cloneBrigade(b), nil
}

func (s *MemoryStore) GetBrigade(_ context.Context, leagueID, managerID string) (out model.Brigade, err error) {
	defer observe("get_brigade", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.brigades[brigadeKey{leagueID: model.LeagueOrDefault(leagueID), managerID: managerID}]
	if !ok {
		return model.Brigade{}, fmt.Errorf("brigade of %s in league %s: %w", managerID, leagueID, ErrNotFound)
	}
	return cloneBrigade(b), nil
}

func (s *MemoryStore) ListBrigades(_ context.Context, leagueID string) (out []model.Brigade, err error) {
	defer observe("list_brigades", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	leagueID = model.LeagueOrDefault(leagueID)
	out = []model.Brigade{}
	for k, b := range s.brigades {
		if k.leagueID == leagueID {
			out = append(out, cloneBrigade(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ManagerID < out[j].ManagerID })
	return out, nil
}

func (s *MemoryStore) UpsertSquad(_ context.Context, sq model.Squad) (out model.Squad, err error) {
	defer observe("upsert_squad", time.Now(), &err)
	if err := validateSquad(sq); err != nil {
		return model.Squad{}, err
	}
	sq.LeagueID = model.LeagueOrDefault(sq.LeagueID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.episodes[sq.Episode]; !ok {
		return model.Squad{}, fmt.Errorf("episode %s: %w", sq.Episode, ErrNotFound)
	}
	if _, ok := s.leagues[sq.LeagueID]; !ok {
		return model.Squad{}, fmt.Errorf("league %s: %w", sq.LeagueID, ErrNotFound)
	}
	k := squadKey{leagueID: sq.LeagueID, managerID: sq.ManagerID, episode: sq.Episode}
	if id, ok := s.squadIndex[k]; ok {
		sq.ID = id
	} else {
		id, err := s.opts.newID()
		if err != nil {
			return model.Squad{}, fmt.Errorf("generate squad id: %w", err)
		}
		sq.ID = id
	}
	sq.Competitors = append([]string(nil), sq.Competitors...)
	sq.UpdatedAt = s.opts.now()
	s.squads[sq.ID] = sq
	s.squadIndex[k] = sq.ID
	delete(s.results, sq.ID)
	return sq, nil
}

func (s *MemoryStore) ListSquads(_ context.Context, key model.EpisodeKey) (out []model.Squad, err error) {
	defer observe("list_squads", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sq := range s.squads {
		if sq.Episode == key {
			out = append(out, cloneSquad(sq))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LeagueID != out[j].LeagueID {
			return out[i].LeagueID < out[j].LeagueID
		}
		return out[i].ManagerID < out[j].ManagerID
	})
	return out, nil
}

func (s *MemoryStore) ListSquadsByManager(_ context.Context, leagueID, managerID string) (out []model.Squad, err error) {
	defer observe("list_squads_by_manager", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	leagueID = model.LeagueOrDefault(leagueID)
	for _, sq := range s.squads {
		if sq.ManagerID == managerID && sq.LeagueID == leagueID {
			out = append(out, cloneSquad(sq))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Episode.Before(out[i].Episode) })
	return out, nil
}

func (s *MemoryStore) SaveResult(_ context.Context, sq model.Squad, result model.ScoringResult) (err error) {
	defer observe("save_result", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.squads[sq.ID]
	if !ok {
		return fmt.Errorf("squad %s: %w", sq.ID, ErrNotFound)
	}
	sq.LeagueID = stored.LeagueID
	s.results[sq.ID] = storedResult{
		squad: cloneSquad(sq),
		result: model.ScoringResult{
			Events:      append([]model.ScoreEvent{}, result.Events...),
			TotalPoints: result.TotalPoints,
		},
		updatedAt: s.opts.now(),
	}
	return nil
}

func (s *MemoryStore) ListResultsByManager(_ context.Context, leagueID, managerID string) (out []types.EpisodeResult, err error) {
	defer observe("list_results_by_manager", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	leagueID = model.LeagueOrDefault(leagueID)
	out = []types.EpisodeResult{}
	for _, r := range s.results {
		if r.squad.ManagerID != managerID || r.squad.LeagueID != leagueID {
			continue
		}
		out = append(out, types.EpisodeResult{
			SquadID:     r.squad.ID,
			LeagueID:    r.squad.LeagueID,
			ManagerID:   r.squad.ManagerID,
			Episode:     r.squad.Episode,
			Competitors: append([]string(nil), r.squad.Competitors...),
			TotalPoints: r.result.TotalPoints,
			Events:      append([]model.ScoreEvent{}, r.result.Events...),
			UpdatedAt:   r.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Episode.Before(out[i].Episode) })
	return out, nil
}

func (s *MemoryStore) Standings(_ context.Context, leagueID string, edition int) (out []types.Standing, err error) {
	defer observe("standings", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()

	leagueID = model.LeagueOrDefault(leagueID)
	byManager := make(map[string]*types.Standing)
	for _, r := range s.results {
		if r.squad.LeagueID != leagueID || (edition > 0 && r.squad.Episode.Edition != edition) {
			continue
		}
		st, ok := byManager[r.squad.ManagerID]
		if !ok {
			st = &types.Standing{ManagerID: r.squad.ManagerID}
			byManager[r.squad.ManagerID] = st
		}
		st.Points += r.result.TotalPoints
		st.Episodes++
	}
	out = make([]types.Standing, 0, len(byManager))
	for _, st := range byManager {
		out = append(out, *st)
	}
	return types.RankStandings(out), nil
}

func (s *MemoryStore) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.opts.logger.Debug(context.Background(), "memory store closed", logger.Int("competitors", len(s.competitors)))
	return nil
}

func cloneSquad(sq model.Squad) model.Squad {
	sq.Competitors = append([]string(nil), sq.Competitors...)
	return sq
}

func cloneLeague(l model.League) model.League {
	l.Admins = append([]string{}, l.Admins...)
	return l
}

func cloneBrigade(b model.Brigade) model.Brigade {
	b.Competitors = append([]string(nil), b.Competitors...)
	return b
}
