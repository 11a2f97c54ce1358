package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahrav/go-tender/infrastructure/codec"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// Store is a ports.Store over a *sql.DB. Queries use $n placeholders, which
// both drivers accept.
type Store struct {
	db     *sql.DB
	driver Driver
}

// New wraps an open database. Use Open to create db with the schema in place.
func New(db *sql.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying database.
func (s *Store) Close(context.Context) error { return s.db.Close() }

// DB exposes the handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) GetTender(ctx context.Context, tenderID string) (domain.Tender, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,owner_id,status,shortlist_automatically,shortlist_threshold,
		winning_bid_id,evaluation_criteria,required_specifications,created_at
		FROM tenders WHERE id=$1`, tenderID)

	var (
		t               domain.Tender
		status          string
		winner          sql.NullString
		criteria, specs string
		createdAt       int64
	)
	err := row.Scan(&t.ID, &t.Title, &t.OwnerID, &status, &t.ShortlistAutomatically, &t.ShortlistThreshold,
		&winner, &criteria, &specs, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Tender{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Tender{}, wrap("GetTender", tenderID, err)
	}
	t.Status = domain.TenderStatus(status)
	t.WinningBidID = winner.String
	t.Criteria = codec.ParseCriteriaJSON([]byte(criteria))
	t.RequiredSpecifications = codec.ParseRequiredSpecificationsJSON([]byte(specs))
	t.CreatedAt = fromNanos(createdAt)
	return t, nil
}

func (s *Store) ListCriteria(ctx context.Context, tenderID string) ([]domain.EvaluationCriterion, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT evaluation_criteria FROM tenders WHERE id=$1`, tenderID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, wrap("ListCriteria", tenderID, err)
	}
	return codec.ParseCriteriaJSON([]byte(raw)), nil
}

func (s *Store) InsertTender(ctx context.Context, t domain.Tender) error {
	criteria, err := json.Marshal(t.Criteria)
	if err != nil {
		return fmt.Errorf("encode criteria: %w", err)
	}
	specs, err := json.Marshal(t.RequiredSpecifications)
	if err != nil {
		return fmt.Errorf("encode specifications: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tenders
		(id,title,owner_id,status,shortlist_automatically,shortlist_threshold,winning_bid_id,
		 evaluation_criteria,required_specifications,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.Title, t.OwnerID, string(t.Status), t.ShortlistAutomatically, t.ShortlistThreshold,
		nullString(t.WinningBidID), string(criteria), string(specs), toNanos(t.CreatedAt))
	if isUniqueViolation(err) {
		return ports.NewStorageError("InsertTender", t.ID, ports.ErrConflict)
	}
	return wrap("InsertTender", t.ID, err)
}

func (s *Store) UpdateShortlistPolicy(ctx context.Context, tenderID string, policy domain.ShortlistPolicy) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tenders SET shortlist_automatically=$1, shortlist_threshold=$2 WHERE id=$3`,
		policy.Enabled, policy.Threshold, tenderID)
	if err != nil {
		return wrap("UpdateShortlistPolicy", tenderID, err)
	}
	return requireRow(res, "UpdateShortlistPolicy", tenderID)
}

func (s *Store) ListTenderIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tenders ORDER BY id`)
	if err != nil {
		return nil, wrap("ListTenderIDs", "", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("ListTenderIDs", "", err)
		}
		ids = append(ids, id)
	}
	return ids, wrap("ListTenderIDs", "", rows.Err())
}

// bidColumns selects a bid joined with its evaluation and bidder profile in
// one pass. A single statement per read keeps SQLite, which runs on one
// connection, free of nested queries.
const bidColumns = `SELECT b.id,b.tender_id,b.bidder_id,b.amount,b.specifications,b.proposal,
	b.criteria_responses,b.status,b.submitted_at,
	e.id,e.evaluator_id,e.criteria_scores,e.comments,e.total_score,e.updated_at,
	p.full_name,p.organization
	FROM bids b
	LEFT JOIN bid_evaluations e ON e.bid_id=b.id
	LEFT JOIN profiles p ON p.id=b.bidder_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanBid(row scanner) (domain.Bid, error) {
	var (
		b                      domain.Bid
		amount, specs, resp    string
		status                 string
		submittedAt            int64
		evID, evaluator        sql.NullString
		scores, comments       sql.NullString
		total                  sql.NullFloat64
		updatedAt              sql.NullInt64
		fullName, organization sql.NullString
	)
	err := row.Scan(&b.ID, &b.TenderID, &b.BidderID, &amount, &specs, &b.Proposal, &resp, &status, &submittedAt,
		&evID, &evaluator, &scores, &comments, &total, &updatedAt,
		&fullName, &organization)
	if err != nil {
		return domain.Bid{}, err
	}

	// An unparsable amount is kept as zero rather than hiding the bid.
	b.Amount, _ = decimal.NewFromString(amount)
	b.Specifications = codec.ParseSpecificationsJSON([]byte(specs))
	b.CriteriaResponses = codec.ParseCriteriaResponsesJSON([]byte(resp))
	b.Status = domain.BidStatus(status)
	b.SubmittedAt = fromNanos(submittedAt)

	if evID.Valid {
		b.Evaluation = &domain.BidEvaluation{
			ID:             evID.String,
			BidID:          b.ID,
			EvaluatorID:    evaluator.String,
			CriteriaScores: codec.ParseCriteriaScoresJSON([]byte(scores.String)),
			Comments:       comments.String,
			TotalScore:     total.Float64,
			UpdatedAt:      fromNanos(updatedAt.Int64),
		}
	}
	if fullName.Valid || organization.Valid {
		b.Bidder = &domain.BidderProfile{FullName: fullName.String, Organization: organization.String}
	}
	return b, nil
}

func (s *Store) ListBids(ctx context.Context, tenderID string) ([]domain.Bid, error) {
	rows, err := s.db.QueryContext(ctx, bidColumns+` WHERE b.tender_id=$1 ORDER BY b.submitted_at, b.id`, tenderID)
	if err != nil {
		return nil, wrap("ListBids", tenderID, err)
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, wrap("ListBids", tenderID, err)
		}
		bids = append(bids, b)
	}
	return bids, wrap("ListBids", tenderID, rows.Err())
}

func (s *Store) GetBid(ctx context.Context, bidID string) (domain.Bid, error) {
	b, err := scanBid(s.db.QueryRowContext(ctx, bidColumns+` WHERE b.id=$1`, bidID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bid{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Bid{}, wrap("GetBid", bidID, err)
	}
	return b, nil
}

func (s *Store) InsertBid(ctx context.Context, b domain.Bid) error {
	specs, err := json.Marshal(b.Specifications)
	if err != nil {
		return fmt.Errorf("encode specifications: %w", err)
	}
	resp, err := json.Marshal(b.CriteriaResponses)
	if err != nil {
		return fmt.Errorf("encode criteria responses: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("InsertBid", b.ID, err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM tenders WHERE id=$1`, b.TenderID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return wrap("InsertBid", b.ID, err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO bids
		(id,tender_id,bidder_id,amount,specifications,proposal,criteria_responses,status,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		b.ID, b.TenderID, b.BidderID, b.Amount.String(), string(specs), b.Proposal, string(resp),
		string(b.Status), toNanos(b.SubmittedAt))
	if isUniqueViolation(err) {
		return domain.ErrDuplicateBid
	}
	if err != nil {
		return wrap("InsertBid", b.ID, err)
	}
	return wrap("InsertBid", b.ID, tx.Commit())
}

// UpdateBidStatus is a compare-and-set on the status column. When no row
// matches, a second read tells a missing bid from one that moved on.
func (s *Store) UpdateBidStatus(ctx context.Context, bidID string, from, to domain.BidStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE bids SET status=$1 WHERE id=$2 AND status=$3`,
		string(to), bidID, string(from))
	if err != nil {
		return wrap("UpdateBidStatus", bidID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("UpdateBidStatus", bidID, err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM bids WHERE id=$1`, bidID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return wrap("UpdateBidStatus", bidID, err)
	}
	return domain.NewStateTransitionError(bidID, domain.BidStatus(current), to)
}

// UpsertEvaluation writes the bid's single evaluation row. On conflict the
// row keeps its id and every other column is overwritten, so concurrent
// writers resolve to the last committed write.
func (s *Store) UpsertEvaluation(ctx context.Context, ev domain.BidEvaluation) error {
	scores, err := json.Marshal(ev.CriteriaScores)
	if err != nil {
		return fmt.Errorf("encode criteria scores: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("UpsertEvaluation", ev.BidID, err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM bids WHERE id=$1`, ev.BidID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return wrap("UpsertEvaluation", ev.BidID, err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO bid_evaluations
		(id,bid_id,evaluator_id,criteria_scores,comments,total_score,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (bid_id) DO UPDATE SET evaluator_id=EXCLUDED.evaluator_id,
			criteria_scores=EXCLUDED.criteria_scores, comments=EXCLUDED.comments,
			total_score=EXCLUDED.total_score, updated_at=EXCLUDED.updated_at`,
		ev.ID, ev.BidID, ev.EvaluatorID, string(scores), ev.Comments, ev.TotalScore, toNanos(ev.UpdatedAt))
	if err != nil {
		return wrap("UpsertEvaluation", ev.BidID, err)
	}
	return wrap("UpsertEvaluation", ev.BidID, tx.Commit())
}

// ApplyAward writes the award in one transaction: the tender's winner and
// status, the winning bid and every other bid of the tender.
func (s *Store) ApplyAward(ctx context.Context, award domain.Award) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("ApplyAward", award.TenderID, err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT tender_id FROM bids WHERE id=$1`, award.WinningBidID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != award.TenderID) {
		return domain.ErrNotFound
	}
	if err != nil {
		return wrap("ApplyAward", award.TenderID, err)
	}

	// The winner guard sits in the WHERE clause so a concurrent award of a
	// different bid updates zero rows instead of overwriting.
	res, err := tx.ExecContext(ctx, `UPDATE tenders SET winning_bid_id=$1, status=$2
		WHERE id=$3 AND (winning_bid_id IS NULL OR winning_bid_id='' OR winning_bid_id=$1)`,
		award.WinningBidID, string(domain.TenderAwarded), award.TenderID)
	if err != nil {
		return wrap("ApplyAward", award.TenderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("ApplyAward", award.TenderID, err)
	}
	if n == 0 {
		return domain.ErrAlreadyAwarded
	}

	if _, err := tx.ExecContext(ctx, `UPDATE bids SET status=$1 WHERE id=$2`,
		string(domain.StatusSelected), award.WinningBidID); err != nil {
		return wrap("ApplyAward", award.TenderID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE bids SET status=$1 WHERE tender_id=$2 AND id<>$3`,
		string(domain.StatusRejected), award.TenderID, award.WinningBidID); err != nil {
		return wrap("ApplyAward", award.TenderID, err)
	}
	return wrap("ApplyAward", award.TenderID, tx.Commit())
}

func (s *Store) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM profiles WHERE id=$1`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", wrap("GetRole", userID, err)
	}
	r, _ := codec.ParseRole(role)
	return r, nil
}

func (s *Store) PutProfile(ctx context.Context, userID string, role domain.Role, p domain.BidderProfile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles (id,role,full_name,organization)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET role=EXCLUDED.role, full_name=EXCLUDED.full_name,
			organization=EXCLUDED.organization`,
		userID, string(role), p.FullName, p.Organization)
	return wrap("PutProfile", userID, err)
}

func requireRow(res sql.Result, op, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, key, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
