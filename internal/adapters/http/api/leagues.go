package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/fantabrigade/internal/domain/model"
)

// HeaderLeagueID scopes squads, rosters and standings to one league. A
// request without it addresses the default league.
const HeaderLeagueID = "X-League-ID"

func leagueID(r *http.Request) string {
	return model.LeagueOrDefault(strings.TrimSpace(r.Header.Get(HeaderLeagueID)))
}

// leagueRequest mirrors the OpenAPI schema for POST /leagues.
type leagueRequest struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Admins []string `json:"admins"`
}

func (l leagueRequest) validate() (string, string) {
	if strings.TrimSpace(l.Name) == "" {
		return CodeNameRequired, "name is required"
	}
	if len(l.Admins) == 0 {
		return CodeAdminsRequired, "admins are required"
	}
	for _, id := range l.Admins {
		if strings.TrimSpace(id) == "" {
			return CodeAdminsRequired, "admin ids must not be empty"
		}
	}
	return "", ""
}

// LeaguesHandler serves the leagues managers play in.
type LeaguesHandler struct {
	deps Dependencies
}

// NewLeaguesHandler creates a new leagues handler.
func NewLeaguesHandler(deps Dependencies) *LeaguesHandler {
	return &LeaguesHandler{deps: deps}
}

// HandleSave handles POST /leagues requests.
func (h *LeaguesHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_league"
	var req leagueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeGeneric, badRequest(op, err.Error()))
		return
	}
	if code, msg := req.validate(); code != "" {
		writeError(w, http.StatusBadRequest, code, badRequest(op, msg))
		return
	}
	saved, err := h.deps.SaveLeague(r.Context(), model.League{
		ID:     strings.TrimSpace(req.ID),
		Name:   strings.TrimSpace(req.Name),
		Admins: req.Admins,
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleList handles GET /leagues requests.
func (h *LeaguesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListLeagues(r.Context())
	if err != nil {
		writeFailure(w, "api.list_leagues", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /leagues/{id} requests.
func (h *LeaguesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	l, err := h.deps.GetLeague(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, "api.get_league", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
