package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/fantabrigade/internal/domain/model"
)

// participantRequest mirrors the OpenAPI schema for POST /participants.
type participantRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LastName      string `json:"lastName"`
	EditionNumber int    `json:"editionNumber"`
	Description   string `json:"description"`
	ImageName     string `json:"imgName"`
	Eliminated    *bool  `json:"eliminated"`
}

// validate returns the error code of the first missing field.
func (p participantRequest) validate() (string, string) {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return CodeNameRequired, "name is required"
	case strings.TrimSpace(p.LastName) == "":
		return CodeLastNameRequired, "lastName is required"
	case p.EditionNumber < 1:
		return CodeEditionNumberRequired, "editionNumber is required"
	}
	return "", ""
}

func (p participantRequest) competitor() model.Competitor {
	return model.Competitor{
		ID:            p.ID,
		Name:          strings.TrimSpace(p.Name),
		LastName:      strings.TrimSpace(p.LastName),
		EditionNumber: p.EditionNumber,
		Description:   p.Description,
		ImageName:     p.ImageName,
		Eliminated:    p.Eliminated != nil && *p.Eliminated,
	}
}

// ParticipantsHandler serves the competitor catalogue.
type ParticipantsHandler struct {
	deps Dependencies
}

// NewParticipantsHandler creates a new participants handler.
func NewParticipantsHandler(deps Dependencies) *ParticipantsHandler {
	return &ParticipantsHandler{deps: deps}
}

// HandleSave handles POST /participants requests.
func (h *ParticipantsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_participant"
	var req participantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeGeneric, badRequest(op, err.Error()))
		return
	}
	if code, msg := req.validate(); code != "" {
		writeError(w, http.StatusBadRequest, code, badRequest(op, msg))
		return
	}
	saved, err := h.deps.SaveCompetitor(r.Context(), req.competitor())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleList handles GET /participants requests.
func (h *ParticipantsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListCompetitors(r.Context())
	if err != nil {
		writeFailure(w, "api.list_participants", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /participants/{id} requests.
func (h *ParticipantsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.GetCompetitor(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, "api.get_participant", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleDelete handles DELETE /participants/{id} requests.
func (h *ParticipantsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteCompetitor(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, "api.delete_participant", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: MessageDeleted})
}
