package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tender/internal/domain"
)

const sample = `{
  "tender": {
    "id": "t-9",
    "title": "Water treatment upgrade",
    "shortlist_automatically": true,
    "shortlist_threshold": 60,
    "evaluation_criteria": [
      {"id": "c1", "name": "Price", "weight": 40, "input_type": "Bidder"},
      {"id": "c2", "name": "Quality", "weight": 60, "input_type": "evaluator"}
    ]
  },
  "bids": [
    {"id": "b1", "bidder_id": "acme", "status": "submitted", "criteria_responses": {"c1": 50},
     "evaluation": {"criteria_scores": {"c2": 50}}},
    {"id": "b2", "bidder_id": "globex", "status": "shortlisted",
     "criteria_responses": {"c1": {"score": 100, "justification": "lowest"}},
     "evaluation": {"criteria_scores": {"c2": 90}}},
    {"id": "b3", "bidder_id": "initech", "status": "weird", "criteria_responses": "garbage"}
  ]
}`

func TestLoadFixture(t *testing.T) {
	tender, bids, err := loadFixture(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 60.0, tender.ShortlistThreshold)
	require.Len(t, tender.Criteria, 2)
	assert.Equal(t, domain.InputBidder, tender.Criteria[0].InputType)

	require.Len(t, bids, 3)
	assert.Equal(t, 50.0, bids[0].CriteriaResponses["c1"].Score, "legacy numeric response")
	assert.Equal(t, domain.StatusShortlisted, bids[1].Status)
	assert.Equal(t, domain.StatusSubmitted, bids[2].Status, "unknown status falls back")
	assert.Empty(t, bids[2].CriteriaResponses)
	assert.Nil(t, bids[2].Evaluation)
}

func TestLoadFixture_Errors(t *testing.T) {
	_, _, err := loadFixture(strings.NewReader(`{`))
	assert.Error(t, err)

	_, _, err = loadFixture(strings.NewReader(`{"tender":{"id":"t"},"bids":[{"bidder_id":"x"}]}`))
	assert.ErrorContains(t, err, "missing id")
}

func TestRun(t *testing.T) {
	color.NoColor = true
	path := filepath.Join(t.TempDir(), "tender.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-fixture", path}, &out))

	text := out.String()
	assert.Contains(t, text, "Water treatment upgrade")
	assert.Contains(t, text, "auto-shortlist at 60.0")
	// b2: 40 + 54 = 94, b1: 20 + 30 = 50, b3: 0.
	b2 := strings.Index(text, "b2")
	b1 := strings.Index(text, "b1")
	b3 := strings.Index(text, "b3")
	require.True(t, b2 >= 0 && b1 >= 0 && b3 >= 0, text)
	assert.Less(t, b2, b1)
	assert.Less(t, b1, b3)
	assert.Contains(t, text, "94.00")
	assert.NotContains(t, text, "warning")
}

func TestRun_RequiresFixture(t *testing.T) {
	t.Setenv("TENDER_FIXTURE", "")
	var out bytes.Buffer
	assert.ErrorContains(t, run(nil, &out), "-fixture")
}
