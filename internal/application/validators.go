package application

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/ahrav/go-tender/infrastructure/codec"
	"github.com/ahrav/go-tender/internal/domain"
)

// RegisterConfigValidators registers the custom tags used by Config.
// RegisterConfigValidators returns an error if any validator registration
// fails.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("cronspec", validateCronSpec); err != nil {
		return fmt.Errorf("failed to register cronspec validator: %w", err)
	}
	if err := v.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return fmt.Errorf("failed to register loglevel validator: %w", err)
	}
	return nil
}

// validateCronSpec accepts standard five-field cron expressions and the
// @every/@hourly style descriptors.
func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateLogLevel accepts debug, info, warn and error in any case.
func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := ParseLogLevel(fl.Field().String())
	return err == nil
}

// ParseLogLevel maps a configured level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// validateBidSubmission checks a bid against its tender before insert:
// non-negative amount, every required specification present with a value
// of the declared type, and bidder responses in [0,100] that reference
// bidder criteria only.
func validateBidSubmission(tender domain.Tender, bid domain.Bid) error {
	verr := domain.NewValidationError("bid")

	if bid.BidderID == "" {
		verr.AddError("bidder id is required")
	}
	if bid.Amount.IsNegative() {
		verr.AddError(fmt.Sprintf("amount %s must be >= 0", bid.Amount.String()))
	}

	for _, spec := range tender.RequiredSpecifications {
		value, ok := bid.Specifications[spec.ID]
		if !ok || value == nil {
			if spec.Required {
				verr.AddError(fmt.Sprintf("specification %q is required", spec.ID))
			}
			continue
		}
		if !specValueMatches(spec.Type, value) {
			verr.AddError(fmt.Sprintf("specification %q must be a %s", spec.ID, spec.Type))
		}
	}

	bidderCriteria, _ := domain.PartitionCriteria(tender.Criteria)
	allowed := make(map[string]bool, len(bidderCriteria))
	for _, c := range bidderCriteria {
		allowed[c.ID] = true
	}
	for id, resp := range bid.CriteriaResponses {
		if !allowed[id] {
			verr.AddError(fmt.Sprintf("criterion %q does not accept bidder responses", id))
			continue
		}
		if !validScore(resp.Score) {
			verr.AddError(fmt.Sprintf("criterion %q score %v must be between 0 and 100", id, resp.Score))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func specValueMatches(t domain.SpecType, value any) bool {
	switch t {
	case domain.SpecNumber:
		_, ok := codec.Number(value)
		return ok
	case domain.SpecBoolean:
		_, ok := value.(bool)
		return ok
	case domain.SpecText:
		s, ok := value.(string)
		return ok && strings.TrimSpace(s) != ""
	default:
		return false
	}
}

func validScore(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 100
}

// validateEvaluationScores requires a finite score for every evaluator
// criterion and rejects scores for criteria that are not evaluator input.
func validateEvaluationScores(criteria []domain.EvaluationCriterion, scores map[string]float64) error {
	verr := domain.NewValidationError("evaluation")
	_, evaluatorCriteria := domain.PartitionCriteria(criteria)

	allowed := make(map[string]bool, len(evaluatorCriteria))
	for _, c := range evaluatorCriteria {
		allowed[c.ID] = true
		v, ok := scores[c.ID]
		switch {
		case !ok:
			verr.AddError(fmt.Sprintf("criterion %q requires a score", c.ID))
		case math.IsNaN(v) || math.IsInf(v, 0):
			verr.AddError(fmt.Sprintf("criterion %q score must be a finite number", c.ID))
		}
	}
	for id := range scores {
		if !allowed[id] {
			verr.AddError(fmt.Sprintf("criterion %q is not scored by evaluators", id))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
