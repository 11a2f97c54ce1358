package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ahrav/go-tender/infrastructure/codec"
	"github.com/ahrav/go-tender/internal/domain"
)

// Loosely typed fields decode into `any` and go through the codec, so
// documents written in older shapes still load.

type tenderDoc struct {
	ID                     string    `bson:"_id"`
	Title                  string    `bson:"title"`
	OwnerID                string    `bson:"owner_id"`
	Status                 string    `bson:"status"`
	ShortlistAutomatically bool      `bson:"shortlist_automatically"`
	ShortlistThreshold     float64   `bson:"shortlist_threshold"`
	WinningBidID           string    `bson:"winning_bid_id,omitempty"`
	Criteria               any       `bson:"evaluation_criteria"`
	RequiredSpecifications any       `bson:"required_specifications"`
	CreatedAt              time.Time `bson:"created_at"`
}

func newTenderDoc(t domain.Tender) tenderDoc {
	return tenderDoc{
		ID:                     t.ID,
		Title:                  t.Title,
		OwnerID:                t.OwnerID,
		Status:                 string(t.Status),
		ShortlistAutomatically: t.ShortlistAutomatically,
		ShortlistThreshold:     t.ShortlistThreshold,
		WinningBidID:           t.WinningBidID,
		Criteria:               nonNilSlice(t.Criteria),
		RequiredSpecifications: nonNilSlice(t.RequiredSpecifications),
		CreatedAt:              t.CreatedAt,
	}
}

func (d tenderDoc) toDomain() domain.Tender {
	return domain.Tender{
		ID:                     d.ID,
		Title:                  d.Title,
		OwnerID:                d.OwnerID,
		Status:                 domain.TenderStatus(d.Status),
		ShortlistAutomatically: d.ShortlistAutomatically,
		ShortlistThreshold:     d.ShortlistThreshold,
		WinningBidID:           d.WinningBidID,
		Criteria:               codec.ParseCriteria(plain(d.Criteria)),
		RequiredSpecifications: codec.ParseRequiredSpecifications(plain(d.RequiredSpecifications)),
		CreatedAt:              d.CreatedAt,
	}
}

type bidDoc struct {
	ID                string    `bson:"_id"`
	TenderID          string    `bson:"tender_id"`
	BidderID          string    `bson:"bidder_id"`
	Amount            string    `bson:"amount"`
	Specifications    any       `bson:"specifications"`
	Proposal          string    `bson:"proposal"`
	CriteriaResponses any       `bson:"criteria_responses"`
	Status            string    `bson:"status"`
	SubmittedAt       time.Time `bson:"submitted_at"`
}

func newBidDoc(b domain.Bid) bidDoc {
	specs := b.Specifications
	if specs == nil {
		specs = map[string]any{}
	}
	responses := b.CriteriaResponses
	if responses == nil {
		responses = map[string]domain.CriterionResponse{}
	}
	return bidDoc{
		ID:                b.ID,
		TenderID:          b.TenderID,
		BidderID:          b.BidderID,
		Amount:            b.Amount.String(),
		Specifications:    specs,
		Proposal:          b.Proposal,
		CriteriaResponses: responses,
		Status:            string(b.Status),
		SubmittedAt:       b.SubmittedAt,
	}
}

type evaluationDoc struct {
	ID             string    `bson:"_id"`
	BidID          string    `bson:"bid_id"`
	EvaluatorID    string    `bson:"evaluator_id"`
	CriteriaScores any       `bson:"criteria_scores"`
	Comments       string    `bson:"comments"`
	TotalScore     float64   `bson:"total_score"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func (d evaluationDoc) toDomain() *domain.BidEvaluation {
	return &domain.BidEvaluation{
		ID:             d.ID,
		BidID:          d.BidID,
		EvaluatorID:    d.EvaluatorID,
		CriteriaScores: codec.ParseCriteriaScores(plain(d.CriteriaScores)),
		Comments:       d.Comments,
		TotalScore:     d.TotalScore,
		UpdatedAt:      d.UpdatedAt,
	}
}

type profileDoc struct {
	ID           string `bson:"_id"`
	Role         string `bson:"role"`
	FullName     string `bson:"full_name"`
	Organization string `bson:"organization"`
}

// plain converts BSON container types into the map[string]any / []any
// shapes the codec understands.
func plain(v any) any {
	switch x := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = plain(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = plain(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = plain(val)
		}
		return m
	case primitive.A:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = plain(val)
		}
		return out
	default:
		return v
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
