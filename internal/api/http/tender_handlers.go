package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ahrav/go-tender/internal/application"
	"github.com/ahrav/go-tender/internal/domain"
)

type shortlistSettingsReq struct {
	Enabled   *bool    `json:"shortlist_automatically" validate:"required"`
	Threshold *float64 `json:"shortlist_threshold" validate:"required"`
}

type awardReq struct {
	SelectedBidID string `json:"selected_bid_id" validate:"required"`
	// ShortlistedBidIDs is optional; when absent the current shortlist is used.
	ShortlistedBidIDs []string `json:"shortlisted_bid_ids,omitempty"`
}

func tenderID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "tenderID"))
}

// POST /tenders
func (h *handlers) createTender(w http.ResponseWriter, r *http.Request) {
	var draft application.TenderDraft
	if !h.decode(w, r, &draft) {
		return
	}
	draft.OwnerID = UserFromContext(r.Context())
	t, err := h.svc.Tenders.CreateTender(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GET /tenders/{tenderID}
func (h *handlers) getTender(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Tenders.GetTender(r.Context(), tenderID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GET /tenders/{tenderID}/leaderboard
func (h *handlers) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.svc.Leaderboard.Leaderboard(r.Context(), tenderID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// PUT /tenders/{tenderID}/shortlist
func (h *handlers) updateShortlistSettings(w http.ResponseWriter, r *http.Request) {
	var req shortlistSettingsReq
	if !h.decodeValid(w, r, &req) {
		return
	}
	policy := domain.ShortlistPolicy{Enabled: *req.Enabled, Threshold: *req.Threshold}
	if err := h.svc.Shortlists.UpdateSettings(r.Context(), UserFromContext(r.Context()), tenderID(r), policy); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

// POST /tenders/{tenderID}/award
func (h *handlers) finalizeAward(w http.ResponseWriter, r *http.Request) {
	var req awardReq
	if !h.decodeValid(w, r, &req) {
		return
	}
	award, err := h.svc.Awards.Finalize(r.Context(), UserFromContext(r.Context()),
		tenderID(r), req.SelectedBidID, req.ShortlistedBidIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, award)
}

// POST /tenders/{tenderID}/bids
func (h *handlers) submitBid(w http.ResponseWriter, r *http.Request) {
	var draft application.BidDraft
	if !h.decode(w, r, &draft) {
		return
	}
	draft.TenderID = tenderID(r)
	draft.BidderID = UserFromContext(r.Context())
	bid, err := h.svc.Tenders.SubmitBid(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bid)
}
