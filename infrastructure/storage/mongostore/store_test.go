package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
	"github.com/ahrav/go-tender/internal/testutils"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Connect(ctx, uri, "tender_test_"+uuid.NewString()[:8], DefaultTimeout)
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = s.tenders.Database().Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestStore_Contract(t *testing.T) {
	testutils.RunStoreSuite(t, func(t *testing.T) ports.Store { return newTestStore(t) })
}

func TestStore_LegacyDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.tenders.InsertOne(ctx, bson.M{"_id": "t-old", "title": "Legacy", "evaluation_criteria": "n/a"})
	require.NoError(t, err)
	_, err = s.bids.InsertOne(ctx, bson.M{
		"_id": "b-old", "tender_id": "t-old", "bidder_id": "bidder-1", "amount": "10",
		"criteria_responses": bson.M{"c1": int32(75), "c2": bson.M{"score": 40.5, "justification": "ok"}},
		"status": "submitted", "submitted_at": time.Now(),
	})
	require.NoError(t, err)

	criteria, err := s.ListCriteria(ctx, "t-old")
	require.NoError(t, err)
	assert.Empty(t, criteria)

	bid, err := s.GetBid(ctx, "b-old")
	require.NoError(t, err)
	assert.Equal(t, domain.CriterionResponse{Score: 75}, bid.CriteriaResponses["c1"])
	assert.Equal(t, domain.CriterionResponse{Score: 40.5, Justification: "ok"}, bid.CriteriaResponses["c2"])
}

func TestPlain(t *testing.T) {
	in := primitive.D{
		{Key: "list", Value: primitive.A{primitive.M{"score": int32(3)}, "x"}},
		{Key: "n", Value: int64(7)},
	}

	got := plain(in)

	assert.Equal(t, map[string]any{
		"list": []any{map[string]any{"score": int32(3)}, "x"},
		"n":    int64(7),
	}, got)
}
