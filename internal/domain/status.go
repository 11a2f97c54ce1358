package domain

// transitions lists the status changes a bid may make outside award
// finalization:
//
//	submitted    -> shortlisted   (manual shortlist or auto-shortlist)
//	under_review -> shortlisted   (auto-shortlist)
//	shortlisted  -> submitted     (manual removal)
//
// selected and rejected are written only by award finalization, see PlanAward.
var transitions = map[BidStatus][]BidStatus{
	StatusSubmitted:   {StatusShortlisted},
	StatusUnderReview: {StatusShortlisted},
	StatusShortlisted: {StatusSubmitted},
}

// CanTransition reports whether a bid may move from one status to another
// through a shortlisting action.
func CanTransition(from, to BidStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a *StateTransitionError when from -> to is not allowed.
func CheckTransition(bidID string, from, to BidStatus) error {
	if !CanTransition(from, to) {
		return NewStateTransitionError(bidID, from, to)
	}
	return nil
}

// Promotable reports whether the automatic shortlist rule may act on a bid
// in status s. Automation only promotes; it never demotes or touches
// terminal bids.
func Promotable(s BidStatus) bool { return CanTransition(s, StatusShortlisted) }
