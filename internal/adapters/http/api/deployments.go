package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/fantabrigade/internal/domain/model"
)

// HeaderManagerID identifies the calling manager. Authentication happens
// upstream of this service.
const HeaderManagerID = "X-Manager-ID"

// deploymentRequest mirrors the OpenAPI schema for POST /deployments.
type deploymentRequest struct {
	EditionNumber int      `json:"editionNumber"`
	Number        int      `json:"number"`
	Participants  []string `json:"participants"`
}

func (d deploymentRequest) validate() (string, string) {
	switch {
	case d.EditionNumber < 1 || d.Number < 1:
		return CodeEpisodeIDRequired, "editionNumber and number are required"
	case len(d.Participants) == 0:
		return CodeParticipantsRequired, "participants are required"
	}
	seen := make(map[string]struct{}, len(d.Participants))
	for _, id := range d.Participants {
		if strings.TrimSpace(id) == "" {
			return CodeParticipantsRequired, "participant ids must not be empty"
		}
		seen[id] = struct{}{}
	}
	if len(d.Participants) != model.SquadSize || len(seen) != model.SquadSize {
		return CodeParticipantsNumber, "exactly 4 distinct participants are required"
	}
	return "", ""
}

// DeploymentsHandler serves manager squads and their scores.
type DeploymentsHandler struct {
	deps Dependencies
}

// NewDeploymentsHandler creates a new deployments handler.
func NewDeploymentsHandler(deps Dependencies) *DeploymentsHandler {
	return &DeploymentsHandler{deps: deps}
}

func managerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderManagerID))
}

// HandleDeploy handles POST /deployments requests.
func (h *DeploymentsHandler) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	const op = "api.deploy"
	manager := managerID(r)
	if manager == "" {
		writeError(w, http.StatusBadRequest, CodeManagerIDRequired, badRequest(op, "X-Manager-ID header is required"))
		return
	}
	var req deploymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeGeneric, badRequest(op, err.Error()))
		return
	}
	if code, msg := req.validate(); code != "" {
		writeError(w, http.StatusBadRequest, code, badRequest(op, msg))
		return
	}
	saved, err := h.deps.Deploy(r.Context(), model.Squad{
		LeagueID:    leagueID(r),
		ManagerID:   manager,
		Episode:     model.EpisodeKey{Edition: req.EditionNumber, Number: req.Number},
		Competitors: req.Participants,
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleMine handles GET /deployments/mine requests.
func (h *DeploymentsHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	const op = "api.my_deployments"
	manager := managerID(r)
	if manager == "" {
		writeError(w, http.StatusBadRequest, CodeManagerIDRequired, badRequest(op, "X-Manager-ID header is required"))
		return
	}
	res, err := h.deps.ManagerResults(r.Context(), leagueID(r), manager)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
