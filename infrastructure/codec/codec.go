// Package codec converts loosely typed stored values into domain types.
//
// Rows written by older clients carry JSON blobs whose shape drifted over
// time: criteria responses were once bare numbers, scores may arrive as
// strings (they score 0), and a blob that should be a list may be null or an object. Every
// parser here is total: malformed input degrades to an empty value or a zero
// score instead of an error, so one bad row never hides a whole leaderboard.
//
// Parsers accept the generic shapes produced by encoding/json (map[string]any,
// []any, float64) plus the integer types document stores return.
package codec

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ahrav/go-tender/internal/domain"
)

// foldKey normalizes an enum spelling: case folded, trimmed, with spaces and
// hyphens turned into underscores. A Caser is stateful, so one is built per call.
func foldKey(s string) string {
	s = cases.Fold().String(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// Number extracts a finite float64 from a decoded value. Numeric strings are
// accepted, which suits specification values; scores and weights must not
// use it. NaN, infinities and everything else report false.
func Number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// decodeJSON unmarshals data into a generic value. Empty or invalid input
// decodes to nil.
func decodeJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}

// ParseInputType folds s into a known input type.
func ParseInputType(s string) (domain.InputType, bool) {
	t := domain.InputType(foldKey(s))
	return t, t.Valid()
}

// ParseBidStatus folds s into a known bid status. "Under Review" and
// "under-review" both map to under_review.
func ParseBidStatus(s string) (domain.BidStatus, bool) {
	st := domain.BidStatus(foldKey(s))
	return st, st.Valid()
}

// ParseSpecType folds s into a known specification value type.
func ParseSpecType(s string) (domain.SpecType, bool) {
	switch t := domain.SpecType(foldKey(s)); t {
	case domain.SpecNumber, domain.SpecText, domain.SpecBoolean:
		return t, true
	default:
		return t, false
	}
}

// ParseRole folds s into a known role.
func ParseRole(s string) (domain.Role, bool) {
	r := domain.Role(foldKey(s))
	return r, r.Valid()
}
