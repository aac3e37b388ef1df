package http

import (
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/planner/internal/core/ports"
)

type VoterHandler struct {
	voters ports.VoterService
	logger *slog.Logger
}

func NewVoterHandler(voters ports.VoterService, logger *slog.Logger) *VoterHandler {
	return &VoterHandler{voters: voters, logger: logger}
}

type voterResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

func (h *VoterHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := h.voters.All(r.Context())
	if err != nil {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]voterResponse, 0, len(voters))
	for _, v := range voters {
		resp = append(resp, voterResponse{ID: v.ID(), FirstName: v.FirstName(), LastName: v.LastName()})
	}
	writeJSON(w, http.StatusOK, resp)
}
