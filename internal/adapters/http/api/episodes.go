package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/fantabrigade/internal/domain/model"
	"github.com/okian/fantabrigade/internal/domain/types"
)

// episodeRequest mirrors the OpenAPI schema for POST /episodes.
type episodeRequest struct {
	Number        int       `json:"number"`
	EditionNumber int       `json:"editionNumber"`
	IsOutside     *bool     `json:"isOutside"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
}

func (e episodeRequest) validate() (string, string) {
	switch {
	case e.Number < 1:
		return CodeNumberRequired, "number is required"
	case e.EditionNumber < 1:
		return CodeEditionNumberRequired, "editionNumber is required"
	case e.IsOutside == nil:
		return CodeIsOutsideRequired, "isOutside is required"
	}
	return "", ""
}

// resultsRequest is a partial results upload. Omitted or null lists are
// left untouched; an empty list clears the stored one.
type resultsRequest struct {
	MysteryBoxPodium    []string `json:"mysteryBoxPodium"`
	MysteryBoxWorst     []string `json:"mysteryBoxWorst"`
	InventionTestPodium []string `json:"inventionTestPodium"`
	InventionTestWorst  []string `json:"inventionTestWorst"`
	RedBrigade          []string `json:"redBrigade"`
	BlueBrigade         []string `json:"blueBrigade"`
	PressureTest        []string `json:"pressureTest"`
	Eliminated          []string `json:"eliminated"`
	RedBrigadeWins      *bool    `json:"redBrigadeWins"`
}

func (r resultsRequest) patch() model.OutcomePatch {
	return model.OutcomePatch(r)
}

type resultsResponse struct {
	Status  types.ScheduleStatus  `json:"status"`
	Episode *model.EpisodeOutcome `json:"episode"`
}

// EpisodesHandler serves episodes, their results and recomputes.
type EpisodesHandler struct {
	deps Dependencies
}

// NewEpisodesHandler creates a new episodes handler.
func NewEpisodesHandler(deps Dependencies) *EpisodesHandler {
	return &EpisodesHandler{deps: deps}
}

// episodeKey reads {edition}/{number} from the request path.
func episodeKey(r *http.Request) (model.EpisodeKey, bool) {
	edition, err := strconv.Atoi(r.PathValue("edition"))
	if err != nil || edition < 1 {
		return model.EpisodeKey{}, false
	}
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		return model.EpisodeKey{}, false
	}
	return model.EpisodeKey{Edition: edition, Number: number}, true
}

// HandleSave handles POST /episodes requests.
func (h *EpisodesHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_episode"
	var req episodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeGeneric, badRequest(op, err.Error()))
		return
	}
	if code, msg := req.validate(); code != "" {
		writeError(w, http.StatusBadRequest, code, badRequest(op, msg))
		return
	}
	saved, err := h.deps.SaveEpisode(r.Context(), model.EpisodeOutcome{
		Key:         model.EpisodeKey{Edition: req.EditionNumber, Number: req.Number},
		IsOutside:   *req.IsOutside,
		AiredAt:     req.Date,
		Description: req.Description,
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleList handles GET /episodes requests.
func (h *EpisodesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListEpisodes(r.Context())
	if err != nil {
		writeFailure(w, "api.list_episodes", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /episodes/{edition}/{number} requests.
func (h *EpisodesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_episode"
	key, ok := episodeKey(r)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeEpisodeIDRequired, badRequest(op, "invalid episode id"))
		return
	}
	e, err := h.deps.GetEpisode(r.Context(), key)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleLoadResults handles POST /episodes/{edition}/{number}/results.
// The recompute runs asynchronously; the response is 202 Accepted.
func (h *EpisodesHandler) HandleLoadResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.load_results"
	key, ok := episodeKey(r)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeEpisodeIDRequired, badRequest(op, "invalid episode id"))
		return
	}
	var req resultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeGeneric, badRequest(op, err.Error()))
		return
	}
	saved, status, err := h.deps.LoadResults(r.Context(), key, req.patch())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resultsResponse{Status: status, Episode: saved})
}

// HandleRecompute handles POST /episodes/{edition}/{number}/recompute.
func (h *EpisodesHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.recompute"
	key, ok := episodeKey(r)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeEpisodeIDRequired, badRequest(op, "invalid episode id"))
		return
	}
	report, err := h.deps.Recompute(r.Context(), key)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
