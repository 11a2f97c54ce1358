package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ahrav/go-tender/internal/application"
	"github.com/ahrav/go-tender/internal/domain"
)

func bidID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "bidID"))
}

// PUT /bids/{bidID}/evaluation
func (h *handlers) submitEvaluation(w http.ResponseWriter, r *http.Request) {
	var req application.EvaluationRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.BidID = bidID(r)
	req.EvaluatorID = UserFromContext(r.Context())
	res, err := h.svc.Evaluations.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /bids/{bidID}/shortlist
func (h *handlers) shortlist(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Shortlists.Shortlist)
}

// DELETE /bids/{bidID}/shortlist
func (h *handlers) removeShortlist(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Shortlists.RemoveShortlist)
}

func (h *handlers) transition(
	w http.ResponseWriter,
	r *http.Request,
	move func(ctx context.Context, actorID, bidID string) (domain.Bid, error),
) {
	bid, err := move(r.Context(), UserFromContext(r.Context()), bidID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}
