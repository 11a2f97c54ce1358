package domain

import "time"

// Operation names reported in outcomes.
const (
	OpSubmitEvaluation = "submit_evaluation"
	OpShortlist        = "shortlist"
	OpRemoveShortlist  = "remove_shortlist"
	OpAutoShortlist    = "auto_shortlist"
	OpUpdateSettings   = "update_shortlist_settings"
	OpFinalize         = "finalize_award"
	OpSubmitBid        = "submit_bid"
	OpCreateTender     = "create_tender"
	OpReconcileScores  = "reconcile_scores"
)

// Outcome is the success or failure report of one engine operation. How it
// is surfaced (toast, log line, metric) is up to the OutcomeSink.
type Outcome struct {
	Operation string    `json:"operation"`
	TenderID  string    `json:"tender_id,omitempty"`
	BidID     string    `json:"bid_id,omitempty"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Err       error     `json:"-"`
	At        time.Time `json:"at"`
}

// Succeeded builds a successful outcome.
func Succeeded(op, tenderID, bidID, msg string) Outcome {
	return Outcome{Operation: op, TenderID: tenderID, BidID: bidID, Success: true, Message: msg, At: time.Now().UTC()}
}

// Failed builds a failed outcome carrying err.
func Failed(op, tenderID, bidID string, err error) Outcome {
	return Outcome{Operation: op, TenderID: tenderID, BidID: bidID, Message: err.Error(), Err: err, At: time.Now().UTC()}
}
