package codec

import "github.com/ahrav/go-tender/internal/domain"

// ParseCriteria converts a stored evaluation_criteria blob. Anything other
// than a list yields an empty rubric; list elements that are not objects are
// skipped. A weight that is not a JSON number, "60" included, is 0. An unknown input_type is kept verbatim so the criterion contributes
// nothing to scoring instead of being misattributed.
func ParseCriteria(v any) []domain.EvaluationCriterion {
	items, ok := v.([]any)
	if !ok {
		return []domain.EvaluationCriterion{}
	}
	out := make([]domain.EvaluationCriterion, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c := domain.EvaluationCriterion{
			ID:          str(m["id"]),
			Name:        str(m["name"]),
			Description: str(m["description"]),
		}
		c.Weight, _ = numeric(m["weight"])
		c.InputType, _ = ParseInputType(str(m["input_type"]))
		out = append(out, c)
	}
	return out
}

// ParseCriteriaJSON is ParseCriteria over a raw JSON column.
func ParseCriteriaJSON(data []byte) []domain.EvaluationCriterion {
	return ParseCriteria(decodeJSON(data))
}

// ParseRequiredSpecifications converts a stored required_specifications
// blob. Non-lists yield an empty slice.
func ParseRequiredSpecifications(v any) []domain.RequiredSpecification {
	items, ok := v.([]any)
	if !ok {
		return []domain.RequiredSpecification{}
	}
	out := make([]domain.RequiredSpecification, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		s := domain.RequiredSpecification{
			ID:          str(m["id"]),
			Name:        str(m["name"]),
			Description: str(m["description"]),
			Unit:        str(m["unit"]),
		}
		s.Type, _ = ParseSpecType(str(m["type"]))
		s.Required, _ = m["required"].(bool)
		out = append(out, s)
	}
	return out
}

// ParseRequiredSpecificationsJSON is ParseRequiredSpecifications over a raw
// JSON column.
func ParseRequiredSpecificationsJSON(data []byte) []domain.RequiredSpecification {
	return ParseRequiredSpecifications(decodeJSON(data))
}

// ParseCriteriaResponses converts a stored criteria_responses blob.
//
// Three shapes are accepted per entry:
//
//	80                                   legacy bare number
//	{"score": 80, "justification": "…"}  current format
//	anything else                        score 0, empty justification
//
// A non-numeric score inside an object also becomes 0.
func ParseCriteriaResponses(v any) map[string]domain.CriterionResponse {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]domain.CriterionResponse{}
	}
	out := make(map[string]domain.CriterionResponse, len(m))
	for id, raw := range m {
		var resp domain.CriterionResponse
		switch val := raw.(type) {
		case map[string]any:
			resp.Score, _ = numeric(val["score"])
			resp.Justification = str(val["justification"])
		default:
			resp.Score, _ = numeric(val)
		}
		out[id] = resp
	}
	return out
}

// ParseCriteriaResponsesJSON is ParseCriteriaResponses over a raw JSON column.
func ParseCriteriaResponsesJSON(data []byte) map[string]domain.CriterionResponse {
	return ParseCriteriaResponses(decodeJSON(data))
}

// ParseCriteriaScores converts a stored criteria_scores blob. Entries whose
// value is not a finite JSON number, "80" included, are dropped and
// therefore score 0.
func ParseCriteriaScores(v any) map[string]float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(m))
	for id, raw := range m {
		if f, ok := numeric(raw); ok {
			out[id] = f
		}
	}
	return out
}

// ParseCriteriaScoresJSON is ParseCriteriaScores over a raw JSON column.
func ParseCriteriaScoresJSON(data []byte) map[string]float64 {
	return ParseCriteriaScores(decodeJSON(data))
}

// ParseSpecifications converts a bid's specifications blob. Non-objects
// yield an empty map; values are kept as decoded.
func ParseSpecifications(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// ParseSpecificationsJSON is ParseSpecifications over a raw JSON column.
func ParseSpecificationsJSON(data []byte) map[string]any {
	return ParseSpecifications(decodeJSON(data))
}

// numeric is Number restricted to number types, so a numeric string is
// rejected. Scores and weights go through it; only specification values
// accept numeric strings.
func numeric(v any) (float64, bool) {
	if !isNumeric(v) {
		return 0, false
	}
	return Number(v)
}

// isNumeric reports whether v is a number type. A score of "80" is not a
// number and scores 0.
func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}
