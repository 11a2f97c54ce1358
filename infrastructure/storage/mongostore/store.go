// Package mongostore implements ports.Store on MongoDB.
//
// Awards are applied inside a multi-document transaction, which requires the
// server to run as a replica set or sharded cluster.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	"github.com/ahrav/go-tender/infrastructure/codec"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// DefaultTimeout bounds each store operation when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Store keeps tenders, bids, evaluations and profiles in four collections.
type Store struct {
	client      *mongo.Client
	tenders     *mongo.Collection
	bids        *mongo.Collection
	evaluations *mongo.Collection
	profiles    *mongo.Collection
	timeout     time.Duration
}

// New builds a Store on an existing client.
func New(client *mongo.Client, dbName string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	db := client.Database(dbName)
	return &Store{
		client:      client,
		tenders:     db.Collection("tenders"),
		bids:        db.Collection("bids"),
		evaluations: db.Collection("bid_evaluations"),
		profiles:    db.Collection("profiles"),
		timeout:     timeout,
	}
}

// Connect dials uri, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, dbName string, timeout time.Duration) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := New(client, dbName, timeout)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return s, nil
}

// EnsureIndexes creates the uniqueness and ordering indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.bids.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tender_id", Value: 1}, {Key: "bidder_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tender_id", Value: 1}, {Key: "submitted_at", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.evaluations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "bid_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// Drop removes every collection of the store. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.tenders, s.bids, s.evaluations, s.profiles} {
		if err := c.Drop(ctx); err != nil {
			return err
		}
	}
	return s.EnsureIndexes(ctx)
}

func (s *Store) GetTender(ctx context.Context, tenderID string) (domain.Tender, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc tenderDoc
	err := s.tenders.FindOne(ctx, bson.M{"_id": tenderID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Tender{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Tender{}, wrap("GetTender", tenderID, err)
	}
	return doc.toDomain(), nil
}

func (s *Store) ListCriteria(ctx context.Context, tenderID string) ([]domain.EvaluationCriterion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc struct {
		Criteria any `bson:"evaluation_criteria"`
	}
	opts := options.FindOne().SetProjection(bson.M{"evaluation_criteria": 1})
	err := s.tenders.FindOne(ctx, bson.M{"_id": tenderID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, wrap("ListCriteria", tenderID, err)
	}
	return codec.ParseCriteria(plain(doc.Criteria)), nil
}

func (s *Store) InsertTender(ctx context.Context, t domain.Tender) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.tenders.InsertOne(ctx, newTenderDoc(t))
	if mongo.IsDuplicateKeyError(err) {
		return ports.NewStorageError("InsertTender", t.ID, ports.ErrConflict)
	}
	return wrap("InsertTender", t.ID, err)
}

func (s *Store) UpdateShortlistPolicy(ctx context.Context, tenderID string, policy domain.ShortlistPolicy) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.tenders.UpdateOne(ctx, bson.M{"_id": tenderID}, bson.M{"$set": bson.M{
		"shortlist_automatically": policy.Enabled,
		"shortlist_threshold":     policy.Threshold,
	}})
	if err != nil {
		return wrap("UpdateShortlistPolicy", tenderID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListTenderIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.tenders.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrap("ListTenderIDs", "", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("ListTenderIDs", "", err)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

func (s *Store) ListBids(ctx context.Context, tenderID string) ([]domain.Bid, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.bids.Find(ctx, bson.M{"tender_id": tenderID}, opts)
	if err != nil {
		return nil, wrap("ListBids", tenderID, err)
	}
	var docs []bidDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("ListBids", tenderID, err)
	}
	bids, err := s.hydrate(ctx, docs)
	if err != nil {
		return nil, wrap("ListBids", tenderID, err)
	}
	return bids, nil
}

func (s *Store) GetBid(ctx context.Context, bidID string) (domain.Bid, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc bidDoc
	err := s.bids.FindOne(ctx, bson.M{"_id": bidID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Bid{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Bid{}, wrap("GetBid", bidID, err)
	}
	bids, err := s.hydrate(ctx, []bidDoc{doc})
	if err != nil {
		return domain.Bid{}, wrap("GetBid", bidID, err)
	}
	return bids[0], nil
}

// hydrate converts bid documents and attaches evaluations and profiles with
// one $in query each.
func (s *Store) hydrate(ctx context.Context, docs []bidDoc) ([]domain.Bid, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	bidIDs := make([]string, len(docs))
	bidderIDs := make([]string, len(docs))
	for i, d := range docs {
		bidIDs[i] = d.ID
		bidderIDs[i] = d.BidderID
	}

	cur, err := s.evaluations.Find(ctx, bson.M{"bid_id": bson.M{"$in": bidIDs}})
	if err != nil {
		return nil, err
	}
	var evDocs []evaluationDoc
	if err := cur.All(ctx, &evDocs); err != nil {
		return nil, err
	}
	evals := make(map[string]evaluationDoc, len(evDocs))
	for _, e := range evDocs {
		evals[e.BidID] = e
	}

	cur, err = s.profiles.Find(ctx, bson.M{"_id": bson.M{"$in": bidderIDs}})
	if err != nil {
		return nil, err
	}
	var profDocs []profileDoc
	if err := cur.All(ctx, &profDocs); err != nil {
		return nil, err
	}
	profiles := make(map[string]profileDoc, len(profDocs))
	for _, p := range profDocs {
		profiles[p.ID] = p
	}

	out := make([]domain.Bid, len(docs))
	for i, d := range docs {
		b := domain.Bid{
			ID:                d.ID,
			TenderID:          d.TenderID,
			BidderID:          d.BidderID,
			Specifications:    codec.ParseSpecifications(plain(d.Specifications)),
			Proposal:          d.Proposal,
			CriteriaResponses: codec.ParseCriteriaResponses(plain(d.CriteriaResponses)),
			Status:            domain.BidStatus(d.Status),
			SubmittedAt:       d.SubmittedAt,
		}
		b.Amount, _ = decimal.NewFromString(d.Amount)
		if e, ok := evals[d.ID]; ok {
			b.Evaluation = e.toDomain()
		}
		if p, ok := profiles[d.BidderID]; ok {
			b.Bidder = &domain.BidderProfile{FullName: p.FullName, Organization: p.Organization}
		}
		out[i] = b
	}
	return out, nil
}

func (s *Store) InsertBid(ctx context.Context, b domain.Bid) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.tenders.CountDocuments(ctx, bson.M{"_id": b.TenderID})
	if err != nil {
		return wrap("InsertBid", b.ID, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	_, err = s.bids.InsertOne(ctx, newBidDoc(b))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateBid
	}
	return wrap("InsertBid", b.ID, err)
}

// UpdateBidStatus filters on the expected status so a bid that moved on
// since it was read is left alone.
func (s *Store) UpdateBidStatus(ctx context.Context, bidID string, from, to domain.BidStatus) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.bids.UpdateOne(ctx,
		bson.M{"_id": bidID, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}})
	if err != nil {
		return wrap("UpdateBidStatus", bidID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	var doc struct {
		Status string `bson:"status"`
	}
	err = s.bids.FindOne(ctx, bson.M{"_id": bidID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	if err != nil {
		return wrap("UpdateBidStatus", bidID, err)
	}
	return domain.NewStateTransitionError(bidID, domain.BidStatus(doc.Status), to)
}

// UpsertEvaluation replaces every field of the bid's evaluation except its
// id, which is only set on insert.
func (s *Store) UpsertEvaluation(ctx context.Context, ev domain.BidEvaluation) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.bids.CountDocuments(ctx, bson.M{"_id": ev.BidID})
	if err != nil {
		return wrap("UpsertEvaluation", ev.BidID, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	scores := ev.CriteriaScores
	if scores == nil {
		scores = map[string]float64{}
	}
	update := bson.M{
		"$set": bson.M{
			"evaluator_id":    ev.EvaluatorID,
			"criteria_scores": scores,
			"comments":        ev.Comments,
			"total_score":     ev.TotalScore,
			"updated_at":      ev.UpdatedAt,
		},
		"$setOnInsert": bson.M{"_id": ev.ID},
	}
	_, err = s.evaluations.UpdateOne(ctx, bson.M{"bid_id": ev.BidID}, update, options.Update().SetUpsert(true))
	return wrap("UpsertEvaluation", ev.BidID, err)
}

// ApplyAward runs the award writes in one transaction. WithTransaction
// retries the callback on transient transaction errors.
func (s *Store) ApplyAward(ctx context.Context, award domain.Award) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session, err := s.client.StartSession()
	if err != nil {
		return wrap("ApplyAward", award.TenderID, err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		n, err := s.bids.CountDocuments(sc, bson.M{"_id": award.WinningBidID, "tender_id": award.TenderID})
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, domain.ErrNotFound
		}

		// $in with nil also matches documents without the field.
		res, err := s.tenders.UpdateOne(sc, bson.M{
			"_id":            award.TenderID,
			"winning_bid_id": bson.M{"$in": bson.A{nil, "", award.WinningBidID}},
		}, bson.M{"$set": bson.M{
			"winning_bid_id": award.WinningBidID,
			"status":         string(domain.TenderAwarded),
		}})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, domain.ErrAlreadyAwarded
		}

		if _, err := s.bids.UpdateOne(sc, bson.M{"_id": award.WinningBidID},
			bson.M{"$set": bson.M{"status": string(domain.StatusSelected)}}); err != nil {
			return nil, err
		}
		_, err = s.bids.UpdateMany(sc,
			bson.M{"tender_id": award.TenderID, "_id": bson.M{"$ne": award.WinningBidID}},
			bson.M{"$set": bson.M{"status": string(domain.StatusRejected)}})
		return nil, err
	})
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyAwarded) {
		return err
	}
	return wrap("ApplyAward", award.TenderID, err)
}

func (s *Store) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc profileDoc
	err := s.profiles.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", wrap("GetRole", userID, err)
	}
	role, _ := codec.ParseRole(doc.Role)
	return role, nil
}

func (s *Store) PutProfile(ctx context.Context, userID string, role domain.Role, p domain.BidderProfile) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := profileDoc{ID: userID, Role: string(role), FullName: p.FullName, Organization: p.Organization}
	_, err := s.profiles.ReplaceOne(ctx, bson.M{"_id": userID}, doc, options.Replace().SetUpsert(true))
	return wrap("PutProfile", userID, err)
}

// wrap converts a driver error into a *ports.StorageError whose cause is one
// of the ports sentinels when the failure is transient.
func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return ports.NewStorageError(op, key, classify(err))
}

func classify(err error) error {
	var labeled mongo.LabeledError
	switch {
	case mongo.IsTimeout(err):
		return errors.Join(ports.ErrTimeout, err)
	case mongo.IsNetworkError(err):
		return errors.Join(ports.ErrStoreUnavailable, err)
	case errors.As(err, &labeled) && labeled.HasErrorLabel(driver.TransientTransactionError):
		return errors.Join(ports.ErrConflict, err)
	}
	return err
}
