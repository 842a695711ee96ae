package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/fantabrigade/internal/domain/model"
)

// brigadeRequest mirrors the OpenAPI schema for POST /brigades.
type brigadeRequest struct {
	Participants []string `json:"participants"`
}

// BrigadesHandler serves the per-league rosters of managers.
type BrigadesHandler struct {
	deps Dependencies
}

// NewBrigadesHandler creates a new brigades handler.
func NewBrigadesHandler(deps Dependencies) *BrigadesHandler {
	return &BrigadesHandler{deps: deps}
}

// HandleSave handles POST /brigades requests.
func (h *BrigadesHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_brigade"
	manager := managerID(r)
	if manager == "" {
		writeError(w, http.StatusBadRequest, CodeManagerIDRequired, badRequest(op, "X-Manager-ID header is required"))
		return
	}
	var req brigadeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeGeneric, badRequest(op, err.Error()))
		return
	}
	if len(req.Participants) == 0 {
		writeError(w, http.StatusBadRequest, CodeParticipantsRequired, badRequest(op, "participants are required"))
		return
	}
	saved, err := h.deps.SaveBrigade(r.Context(), model.Brigade{
		LeagueID:    leagueID(r),
		ManagerID:   manager,
		Competitors: req.Participants,
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleList handles GET /brigades requests.
func (h *BrigadesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListBrigades(r.Context(), leagueID(r))
	if err != nil {
		writeFailure(w, "api.list_brigades", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleMine handles GET /brigades/mine requests.
func (h *BrigadesHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	const op = "api.my_brigade"
	manager := managerID(r)
	if manager == "" {
		writeError(w, http.StatusBadRequest, CodeManagerIDRequired, badRequest(op, "X-Manager-ID header is required"))
		return
	}
	view, err := h.deps.Brigade(r.Context(), leagueID(r), manager)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
