// Package service wires storage, scoring, the recompute driver and the
// worker pool into the operations the HTTP API exposes.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/fantabrigade/internal/adapters/mq/queue"
	"github.com/okian/fantabrigade/internal/adapters/mq/worker"
	"github.com/okian/fantabrigade/internal/adapters/repository"
	"github.com/okian/fantabrigade/internal/domain/dedupe"
	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/internal/domain/recompute"
	"github.com/okian/fantabrigade/internal/domain/types"
	"github.com/okian/fantabrigade/pkg/logger"
	"github.com/okian/fantabrigade/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize   = 1024
	defaultDedupeSize  = 10000
	defaultParallelism = 8
	defaultStorage     = repository.KindMemory
)

// Service implements the API dependencies for the league.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	driver  *recompute.Driver
	pool    *worker.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	parallelism int
	storageKind string
	dbPath      string
	ownsStore   bool

	started   bool
	startedAt time.Time
	logger    logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the recompute queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize caps how many pending episode keys are tracked.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRecomputeParallelism bounds how many squads one recompute scores at once.
func WithRecomputeParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithStorage selects the store Start opens.
func WithStorage(kind, dbPath string) Option {
	return func(s *Service) {
		if kind != "" {
			s.storageKind = kind
		}
		s.dbPath = dbPath
	}
}

// WithStore injects an already opened store. The service does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithOwnedStore injects an already opened store and hands it over: Stop
// closes it once the workers are done with it.
func WithOwnedStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.ownsStore = true
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		parallelism: defaultParallelism,
		storageKind: defaultStorage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens storage and launches the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting league service", logger.String("storage", s.storageKind))

	if s.store == nil {
		store, err := repository.Open(ctx, s.storageKind, s.dbPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.driver = recompute.NewDriver(s.store, recompute.WithParallelism(s.parallelism))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.driver, worker.WithReleaser(s.deduper))
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "league service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("parallelism", s.parallelism),
	)
	return nil
}

// Stop drains the workers and closes storage the service owns. When ctx
// expires before the workers finish, the store is closed in the background
// once the last running recompute returns.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping league service")

	err := s.pool.Shutdown(ctx)
	if s.ownsStore {
		if err != nil {
			s.logger.Warn(ctx, "workers still running, storage close deferred")
			go closeAfter(s.pool, s.store, s.logger)
		} else if cerr := s.store.Close(); cerr != nil {
			err = fmt.Errorf("close storage: %w", cerr)
		}
		s.store = nil
	}
	s.started = false
	s.logger.Info(ctx, "league service stopped")
	return err
}

func closeAfter(pool *worker.Pool, store repository.Store, log logger.Logger) {
	pool.Wait()
	if err := store.Close(); err != nil {
		log.Error(context.Background(), "close storage", logger.Error(err))
		return
	}
	log.Info(context.Background(), "storage closed after workers drained")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// SaveCompetitor creates or updates a competitor.
func (s *Service) SaveCompetitor(ctx context.Context, c model.Competitor) (model.Competitor, error) {
	if err := s.ready(); err != nil {
		return model.Competitor{}, err
	}
	return s.store.UpsertCompetitor(ctx, c)
}

func (s *Service) GetCompetitor(ctx context.Context, id string) (model.Competitor, error) {
	if err := s.ready(); err != nil {
		return model.Competitor{}, err
	}
	return s.store.GetCompetitor(ctx, id)
}

func (s *Service) ListCompetitors(ctx context.Context) ([]model.Competitor, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListCompetitors(ctx)
}

func (s *Service) DeleteCompetitor(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.DeleteCompetitor(ctx, id)
}

// SaveEpisode creates an episode or updates its metadata.
func (s *Service) SaveEpisode(ctx context.Context, e model.EpisodeOutcome) (*model.EpisodeOutcome, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.UpsertEpisode(ctx, e)
}

func (s *Service) GetEpisode(ctx context.Context, key model.EpisodeKey) (*model.EpisodeOutcome, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.GetEpisode(ctx, key)
}

func (s *Service) ListEpisodes(ctx context.Context) ([]model.EpisodeOutcome, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListEpisodes(ctx)
}

// SaveLeague creates a league or renames it.
func (s *Service) SaveLeague(ctx context.Context, l model.League) (model.League, error) {
	if err := s.ready(); err != nil {
		return model.League{}, err
	}
	return s.store.UpsertLeague(ctx, l)
}

// GetLeague resolves id, with the empty id meaning the default league.
func (s *Service) GetLeague(ctx context.Context, id string) (model.League, error) {
	if err := s.ready(); err != nil {
		return model.League{}, err
	}
	return s.store.GetLeague(ctx, model.LeagueOrDefault(id))
}

func (s *Service) ListLeagues(ctx context.Context) ([]model.League, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListLeagues(ctx)
}

// SaveBrigade replaces the manager's roster in the brigade's league.
func (s *Service) SaveBrigade(ctx context.Context, b model.Brigade) (model.Brigade, error) {
	if err := s.ready(); err != nil {
		return model.Brigade{}, err
	}
	return s.store.UpsertBrigade(ctx, b)
}

// Brigade returns the manager's roster in a league with the resolved
// participants and the manager's scored episodes.
func (s *Service) Brigade(ctx context.Context, leagueID, managerID string) (types.BrigadeView, error) {
	if err := s.ready(); err != nil {
		return types.BrigadeView{}, err
	}
	b, err := s.store.GetBrigade(ctx, leagueID, managerID)
	if err != nil {
		return types.BrigadeView{}, err
	}
	all, err := s.store.ListCompetitors(ctx)
	if err != nil {
		return types.BrigadeView{}, err
	}
	byID := make(map[string]model.Competitor, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	results, err := s.store.ListResultsByManager(ctx, b.LeagueID, managerID)
	if err != nil {
		return types.BrigadeView{}, err
	}
	return types.NewBrigadeView(b, byID, results), nil
}

// ListBrigades returns the rosters of a league.
func (s *Service) ListBrigades(ctx context.Context, leagueID string) ([]model.Brigade, error) {
	if err := s.leagueReady(ctx, leagueID); err != nil {
		return nil, err
	}
	return s.store.ListBrigades(ctx, leagueID)
}

// leagueReady fails with repository.ErrNotFound for unknown leagues so that
// reads do not answer with an empty page.
func (s *Service) leagueReady(ctx context.Context, leagueID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.store.GetLeague(ctx, model.LeagueOrDefault(leagueID))
	return err
}

// LoadResults stores a partial outcome and schedules the episode's
// recompute. The outcome stays saved when scheduling fails.
func (s *Service) LoadResults(ctx context.Context, key model.EpisodeKey, patch model.OutcomePatch) (*model.EpisodeOutcome, types.ScheduleStatus, error) {
	if err := s.ready(); err != nil {
		return nil, "", err
	}
	outcome, err := s.store.SaveOutcome(ctx, key, patch)
	if err != nil {
		return nil, "", err
	}
	status, err := s.schedule(ctx, key)
	return outcome, status, err
}

// Recompute rescores the episode synchronously.
func (s *Service) Recompute(ctx context.Context, key model.EpisodeKey) (recompute.Report, error) {
	if err := s.ready(); err != nil {
		return recompute.Report{}, err
	}
	return s.driver.Recompute(ctx, key)
}

// schedule enqueues a recompute unless one is already pending for key.
func (s *Service) schedule(ctx context.Context, key model.EpisodeKey) (types.ScheduleStatus, error) {
	job := model.RecomputeJob{Episode: key, RequestedAt: time.Now()}
	if s.deduper.SeenAndRecord(ctx, job.DedupeKey()) {
		metrics.RecordJobCoalesced()
		s.logger.Debug(ctx, "recompute already pending", logger.String("episode", key.String()))
		return types.Coalesced, nil
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, job.DedupeKey())
		s.logger.Warn(ctx, "recompute not scheduled",
			logger.String("episode", key.String()),
			logger.Error(err),
		)
		return "", fmt.Errorf("%w: %w", recompute.ErrBackpressure, err)
	}
	return types.Scheduled, nil
}

// Deploy stores the manager's squad. When the episode already has results
// the episode is rescheduled so the new line-up gets scored.
func (s *Service) Deploy(ctx context.Context, squad model.Squad) (model.Squad, error) {
	if err := s.ready(); err != nil {
		return model.Squad{}, err
	}
	squad.LeagueID = model.LeagueOrDefault(squad.LeagueID)
	saved, err := s.store.UpsertSquad(ctx, squad)
	if err != nil {
		return model.Squad{}, err
	}

	outcome, err := s.store.GetEpisode(ctx, saved.Episode)
	if err != nil {
		return saved, nil
	}
	if len(outcome.ReferencedIDs()) > 0 {
		if _, err := s.schedule(ctx, saved.Episode); err != nil {
			s.logger.Warn(ctx, "deployment saved without rescoring",
				logger.String("league_id", saved.LeagueID),
				logger.String("manager_id", saved.ManagerID),
				logger.Error(err),
			)
		}
	}
	return saved, nil
}

// ManagerResults returns the manager's scored episodes and total in a league.
func (s *Service) ManagerResults(ctx context.Context, leagueID, managerID string) (types.ManagerResults, error) {
	if err := s.leagueReady(ctx, leagueID); err != nil {
		return types.ManagerResults{}, err
	}
	results, err := s.store.ListResultsByManager(ctx, leagueID, managerID)
	if err != nil {
		return types.ManagerResults{}, err
	}
	return types.NewManagerResults(managerID, results), nil
}

// Standings returns a league's leaderboard, truncated to limit when
// limit > 0.
func (s *Service) Standings(ctx context.Context, leagueID string, edition, limit int) ([]types.Standing, error) {
	if err := s.leagueReady(ctx, leagueID); err != nil {
		return nil, err
	}
	rows, err := s.store.Standings(ctx, leagueID, edition)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"storage":     s.storageKind,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"parallelism": s.parallelism,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(context.Background())
		stats["pendingRecomputes"] = s.deduper.Size()
		stats["workers"] = s.pool.Stats()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	}
	return stats
}
