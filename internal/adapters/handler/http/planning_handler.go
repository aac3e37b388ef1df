package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vncsmyrnk/planner/internal/core/ports"
)

type PlanningHandler struct {
	plannings ports.PlanningService
	options   ports.OptionService
	logger    *slog.Logger
}

func NewPlanningHandler(plannings ports.PlanningService, options ports.OptionService, logger *slog.Logger) *PlanningHandler {
	return &PlanningHandler{
		plannings: plannings,
		options:   options,
		logger:    logger,
	}
}

type optionResponse struct {
	Ordinal      int    `json:"ordinal"`
	Text         string `json:"text"`
	Participants int    `json:"participants"`
}

type planningResponse struct {
	ID            int64            `json:"id"`
	Title         string           `json:"title"`
	Status        string           `json:"status"`
	InlineQueryID string           `json:"inline_query_id"`
	Options       []optionResponse `json:"options"`
	Participants  int              `json:"participants"`
}

// GetPlanning returns an opened planning with its current tally.
func (h *PlanningHandler) GetPlanning(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid planning id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	planning, err := h.plannings.FindOpenedByID(ctx, id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if planning == nil {
		http.Error(w, "planning not found", http.StatusNotFound)
		return
	}

	options, err := h.plannings.Options(ctx, planning)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	resp := planningResponse{
		ID:            planning.ID(),
		Title:         planning.Title(),
		Status:        planning.Status().Code(),
		InlineQueryID: planning.InlineQueryID(),
		Options:       make([]optionResponse, 0, len(options)),
	}
	for _, opt := range options {
		voters, err := h.options.Voters(ctx, opt)
		if err != nil {
			h.internalError(w, r, err)
			return
		}
		resp.Options = append(resp.Options, optionResponse{
			Ordinal:      opt.Ordinal(),
			Text:         opt.Text(),
			Participants: len(voters),
		})
	}

	voters, err := h.plannings.Voters(ctx, planning)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	resp.Participants = len(voters)

	writeJSON(w, http.StatusOK, resp)
}

func (h *PlanningHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
