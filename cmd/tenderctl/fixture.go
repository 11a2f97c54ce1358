package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ahrav/go-tender/infrastructure/codec"
	"github.com/ahrav/go-tender/internal/domain"
)

// fixture is a tender export as rows come out of the database: the rubric,
// responses and scores are loosely typed blobs.
type fixture struct {
	Tender struct {
		ID                     string          `json:"id"`
		Title                  string          `json:"title"`
		ShortlistAutomatically bool            `json:"shortlist_automatically"`
		ShortlistThreshold     *float64        `json:"shortlist_threshold"`
		Criteria               json.RawMessage `json:"evaluation_criteria"`
	} `json:"tender"`
	Bids []struct {
		ID                string          `json:"id"`
		BidderID          string          `json:"bidder_id"`
		Status            string          `json:"status"`
		CriteriaResponses json.RawMessage `json:"criteria_responses"`
		Evaluation        *struct {
			CriteriaScores json.RawMessage `json:"criteria_scores"`
		} `json:"evaluation"`
	} `json:"bids"`
}

func loadFixture(r io.Reader) (domain.Tender, []domain.Bid, error) {
	var f fixture
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return domain.Tender{}, nil, fmt.Errorf("decode fixture: %w", err)
	}

	tender := domain.Tender{
		ID:                     f.Tender.ID,
		Title:                  f.Tender.Title,
		ShortlistAutomatically: f.Tender.ShortlistAutomatically,
		ShortlistThreshold:     domain.DefaultShortlistThreshold,
		Criteria:               codec.ParseCriteriaJSON(f.Tender.Criteria),
	}
	if f.Tender.ShortlistThreshold != nil {
		tender.ShortlistThreshold = *f.Tender.ShortlistThreshold
	}

	bids := make([]domain.Bid, 0, len(f.Bids))
	for i, raw := range f.Bids {
		if raw.ID == "" {
			return domain.Tender{}, nil, fmt.Errorf("bid %d: missing id", i)
		}
		status, ok := codec.ParseBidStatus(raw.Status)
		if !ok {
			status = domain.StatusSubmitted
		}
		b := domain.Bid{
			ID:                raw.ID,
			TenderID:          tender.ID,
			BidderID:          raw.BidderID,
			Status:            status,
			CriteriaResponses: codec.ParseCriteriaResponsesJSON(raw.CriteriaResponses),
		}
		if raw.Evaluation != nil {
			b.Evaluation = &domain.BidEvaluation{
				BidID:          raw.ID,
				CriteriaScores: codec.ParseCriteriaScoresJSON(raw.Evaluation.CriteriaScores),
			}
		}
		bids = append(bids, b)
	}
	return tender, bids, nil
}
