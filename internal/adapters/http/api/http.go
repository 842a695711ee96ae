// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/fantabrigade/internal/adapters/repository"
	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/internal/domain/recompute"
	"github.com/okian/fantabrigade/internal/domain/types"
	"github.com/okian/fantabrigade/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SaveCompetitor(ctx context.Context, c model.Competitor) (model.Competitor, error)
	GetCompetitor(ctx context.Context, id string) (model.Competitor, error)
	ListCompetitors(ctx context.Context) ([]model.Competitor, error)
	DeleteCompetitor(ctx context.Context, id string) error

	SaveEpisode(ctx context.Context, e model.EpisodeOutcome) (*model.EpisodeOutcome, error)
	GetEpisode(ctx context.Context, key model.EpisodeKey) (*model.EpisodeOutcome, error)
	ListEpisodes(ctx context.Context) ([]model.EpisodeOutcome, error)

	// LoadResults stores a partial outcome and schedules its recompute.
	LoadResults(ctx context.Context, key model.EpisodeKey, patch model.OutcomePatch) (*model.EpisodeOutcome, types.ScheduleStatus, error)
	// Recompute rescores an episode synchronously.
	Recompute(ctx context.Context, key model.EpisodeKey) (recompute.Report, error)

	SaveLeague(ctx context.Context, l model.League) (model.League, error)
	GetLeague(ctx context.Context, id string) (model.League, error)
	ListLeagues(ctx context.Context) ([]model.League, error)

	SaveBrigade(ctx context.Context, b model.Brigade) (model.Brigade, error)
	Brigade(ctx context.Context, leagueID, managerID string) (types.BrigadeView, error)
	ListBrigades(ctx context.Context, leagueID string) ([]model.Brigade, error)

	Deploy(ctx context.Context, squad model.Squad) (model.Squad, error)
	ManagerResults(ctx context.Context, leagueID, managerID string) (types.ManagerResults, error)
	Standings(ctx context.Context, leagueID string, edition, limit int) ([]types.Standing, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

const defaultMaxLeaderboardLimit = 100

// Server wires HTTP routes for the business API.
type Server struct {
	participants *ParticipantsHandler
	episodes     *EpisodesHandler
	leagues      *LeaguesHandler
	brigades     *BrigadesHandler
	deployments  *DeploymentsHandler
	leaderboard  *LeaderboardHandler
	health       *HealthHandler
	stats        *StatsHandler

	maxLimit       int
	allowedOrigins []string
	logger         logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps the limit query parameter of GET /leaderboard.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithAllowedOrigins sets the CORS allow-list.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxLimit: defaultMaxLeaderboardLimit}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	s.participants = NewParticipantsHandler(deps)
	s.episodes = NewEpisodesHandler(deps)
	s.leagues = NewLeaguesHandler(deps)
	s.brigades = NewBrigadesHandler(deps)
	s.deployments = NewDeploymentsHandler(deps)
	s.leaderboard = NewLeaderboardHandler(deps, s.maxLimit)
	s.health = NewHealthHandler()
	s.stats = NewStatsHandler(statsProvider)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("POST /participants", "participants", s.participants.HandleSave)
	route("GET /participants", "participants", s.participants.HandleList)
	route("GET /participants/{id}", "participant", s.participants.HandleGet)
	route("DELETE /participants/{id}", "participant", s.participants.HandleDelete)

	route("POST /episodes", "episodes", s.episodes.HandleSave)
	route("GET /episodes", "episodes", s.episodes.HandleList)
	route("GET /episodes/{edition}/{number}", "episode", s.episodes.HandleGet)
	route("POST /episodes/{edition}/{number}/results", "episode_results", s.episodes.HandleLoadResults)
	route("POST /episodes/{edition}/{number}/recompute", "episode_recompute", s.episodes.HandleRecompute)

	route("POST /leagues", "leagues", s.leagues.HandleSave)
	route("GET /leagues", "leagues", s.leagues.HandleList)
	route("GET /leagues/{id}", "league", s.leagues.HandleGet)

	route("POST /brigades", "brigades", s.brigades.HandleSave)
	route("GET /brigades", "brigades", s.brigades.HandleList)
	route("GET /brigades/mine", "brigades_mine", s.brigades.HandleMine)

	route("POST /deployments", "deployments", s.deployments.HandleDeploy)
	route("GET /deployments/mine", "deployments_mine", s.deployments.HandleMine)

	route("GET /leaderboard", "leaderboard", s.leaderboard.HandleGetLeaderboard)
	route("GET /healthz", "healthz", s.health.HandleHealth)
	route("GET /stats", "stats", s.stats.HandleStats)
	mux.Handle("GET /metrics", s.health.MetricsHandler())
}

// Handler wraps h with request ids, access logs and CORS.
func (s *Server) Handler(h http.Handler) http.Handler {
	return CORS(RequestID(h, s.logger), s.allowedOrigins)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageResponse struct {
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a dependency error onto a status and error code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	wrapped := wrap(op, err)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, wrapped)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidCompetitor),
		errors.Is(err, repository.ErrInvalidEpisode),
		errors.Is(err, repository.ErrInvalidSquad),
		errors.Is(err, repository.ErrInvalidLeague),
		errors.Is(err, repository.ErrInvalidBrigade):
		writeError(w, http.StatusBadRequest, CodeGeneric, wrapped)
	case errors.Is(err, recompute.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, CodeGeneric, wrapped)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, CodeGeneric, wrapped)
	default:
		writeError(w, http.StatusInternalServerError, CodeGeneric, wrapped)
	}
}
