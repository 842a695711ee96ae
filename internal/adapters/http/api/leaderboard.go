package api

import (
	"net/http"
	"strconv"
)

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetLeaderboard handles GET /leaderboard?edition=E&limit=N requests
// for the league named by X-League-ID. Both parameters are optional; edition
// 0 spans every edition and limit defaults to the configured maximum.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	q := r.URL.Query()

	edition := 0
	if v := q.Get("edition"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, CodeGeneric, badRequest(op, "edition must be a non-negative integer"))
			return
		}
		edition = n
	}

	limit := h.maxLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, CodeGeneric, badRequest(op, "limit must be a positive integer"))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, CodeGeneric, badRequest(op, "limit exceeds "+strconv.Itoa(h.maxLimit)))
			return
		}
		limit = n
	}

	rows, err := h.deps.Standings(r.Context(), leagueID(r), edition, limit)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
