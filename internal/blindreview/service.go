// Package blindreview conceals submitted reviews until both parties have
// reviewed or a deadline passes, so neither review can be written in
// reaction to the other.
package blindreview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/internal/reviews"
	"github.com/swapgrid/trust-engine/internal/transactions"
	"github.com/swapgrid/trust-engine/internal/weighting"
	"github.com/swapgrid/trust-engine/pkg/eventbus"
	"github.com/swapgrid/trust-engine/pkg/logger"
	"github.com/swapgrid/trust-engine/pkg/security"
)

// ErrNotEligible wraps an eligibility denial so handlers can surface the
// reason.
type ErrNotEligible struct {
	Reason               string
	RequiresVerification bool
}

func (e *ErrNotEligible) Error() string {
	return "not eligible to review: " + e.Reason
}

// ErrTransactionBlocked is returned when the risk aggregator blocks the
// transaction outright.
var ErrTransactionBlocked = errors.New("transaction blocked by risk analysis")

const expiredSweepBatch = 200

var (
	revealsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blind_review_reveals_total",
			Help: "Review pair reveals by reason",
		},
		[]string{"reason"},
	)

	decryptFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blind_review_decrypt_failures_total",
			Help: "Concealed reviews dropped because decryption failed",
		},
	)
)

// Service coordinates concealed submission and reveal.
type Service struct {
	store          PendingStore
	box            *cipherBox
	eligibility    EligibilityChecker
	riskAnalyzer   RiskAnalyzer
	weights        WeightSource
	txns           TransactionLookup
	moderation     ModerationQueue
	publisher      Publisher
	revealDeadline time.Duration
	now            func() time.Time
}

// NewService creates a blind-review service. masterKey must be 32 bytes.
func NewService(
	store PendingStore,
	masterKey []byte,
	elig EligibilityChecker,
	riskAnalyzer RiskAnalyzer,
	weights WeightSource,
	txns TransactionLookup,
	moderation ModerationQueue,
	publisher Publisher,
	revealDeadlineDays int,
) (*Service, error) {
	box, err := newCipherBox(masterKey)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:          store,
		box:            box,
		eligibility:    elig,
		riskAnalyzer:   riskAnalyzer,
		weights:        weights,
		txns:           txns,
		moderation:     moderation,
		publisher:      publisher,
		revealDeadline: time.Duration(revealDeadlineDays) * 24 * time.Hour,
		now:            time.Now,
	}, nil
}

// Submit accepts a concealed review. When it is the second of the pair,
// both reviews are revealed before returning.
func (s *Service) Submit(ctx context.Context, transactionID uuid.UUID, req *SubmitReviewRequest) (*SubmitResult, error) {
	txn, err := s.txns.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	targetID := txn.Counterparty(req.ReviewerID)

	elig, err := s.eligibility.CheckEligibility(ctx, req.ReviewerID, targetID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("check eligibility: %w", err)
	}
	if !elig.Allowed {
		return nil, &ErrNotEligible{Reason: elig.Reason, RequiresVerification: elig.RequiresVerification}
	}

	pendingExists, err := s.store.HasPending(ctx, req.ReviewerID, transactionID)
	if err != nil {
		return nil, err
	}
	if pendingExists {
		return nil, ErrAlreadySubmitted
	}

	report, err := s.riskAnalyzer.AnalyzeTransactionRisk(ctx, transactionID, txn.PartyA, txn.PartyB)
	if err != nil {
		return nil, fmt.Errorf("analyze risk: %w", err)
	}
	if report.Level.Blocked() {
		return nil, ErrTransactionBlocked
	}

	weightInput, err := s.weights.WeightInput(ctx, req.ReviewerID, txn)
	if err != nil {
		return nil, fmt.Errorf("resolve weight input: %w", err)
	}
	weight := weighting.ComputeWeight(weightInput) * report.Level.ReviewWeightMultiplier()
	if weight < weighting.MinWeight {
		weight = weighting.MinWeight
	}

	now := s.now().UTC()
	plaintext, err := json.Marshal(payload{
		Rating:     req.Rating,
		ReviewText: security.SanitizeString(req.ReviewText),
		Weight:     weight,
		IsVerified: txn.LocationConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	dataKey, err := s.pairKey(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	ciphertext, nonce, err := s.box.sealPayload(dataKey, plaintext)
	if err != nil {
		return nil, err
	}

	err = s.store.CreatePending(ctx, &PendingReview{
		TransactionID:  transactionID,
		ReviewerID:     req.ReviewerID,
		TargetUserID:   targetID,
		Ciphertext:     ciphertext,
		Nonce:          nonce,
		SubmittedAt:    now,
		RevealDeadline: now.Add(s.revealDeadline),
	})
	if err != nil {
		return nil, err
	}

	if txn.Status == transactions.StatusScam {
		s.reportScamReview(ctx, txn, req.ReviewerID)
	}

	s.publishEvent(ctx, eventbus.SubjectReviewSubmitted, "review.submitted", eventbus.ReviewSubmittedData{
		TransactionID: transactionID,
		AuthorID:      req.ReviewerID,
		SubjectID:     targetID,
	})

	pair, err := s.store.GetPair(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if len(pair) >= 2 {
		if err := s.reveal(ctx, transactionID, pair, "mutual"); err != nil && !errors.Is(err, ErrAlreadyRevealed) {
			return nil, err
		}
		return &SubmitResult{State: StateRevealed, RevealDeadline: pair[0].RevealDeadline}, nil
	}
	return &SubmitResult{State: StateAwaitingSecond, RevealDeadline: now.Add(s.revealDeadline)}, nil
}

// pairKey returns the transaction's data key, creating and wrapping a fresh
// one on first use.
func (s *Service) pairKey(ctx context.Context, transactionID uuid.UUID) ([]byte, error) {
	rec, err := s.store.GetKey(ctx, transactionID)
	if err == nil {
		return s.box.unwrapKey(rec.WrappedKey, rec.WrapNonce)
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	dataKey, err := s.box.newDataKey()
	if err != nil {
		return nil, err
	}
	wrapped, wrapNonce, err := s.box.wrapKey(dataKey)
	if err != nil {
		return nil, err
	}
	err = s.store.CreateKey(ctx, &keyRecord{
		TransactionID: transactionID,
		WrappedKey:    wrapped,
		WrapNonce:     wrapNonce,
	})
	if err != nil {
		return nil, err
	}
	// Re-read in case a concurrent first submission won the insert.
	rec, err = s.store.GetKey(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return s.box.unwrapKey(rec.WrappedKey, rec.WrapNonce)
}

// reveal decrypts the pending rows and promotes them to visible reviews in
// one storage transaction. Rows that fail to decrypt are dropped and routed
// to moderation, never surfaced as zero ratings.
func (s *Service) reveal(ctx context.Context, transactionID uuid.UUID, pair []*PendingReview, reason string) error {
	rec, err := s.store.GetKey(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load pair key: %w", err)
	}

	at := s.now().UTC()
	revealed := make([]*reviews.Review, 0, len(pair))
	var failed []*PendingReview

	dataKey, keyErr := s.box.unwrapKey(rec.WrappedKey, rec.WrapNonce)
	for _, p := range pair {
		if p.Revealed {
			continue
		}
		if keyErr != nil {
			failed = append(failed, p)
			continue
		}
		plaintext, err := s.box.openPayload(dataKey, p.Ciphertext, p.Nonce)
		if err != nil {
			failed = append(failed, p)
			continue
		}
		var pl payload
		if err := json.Unmarshal(plaintext, &pl); err != nil {
			failed = append(failed, p)
			continue
		}
		revealedAt := at
		revealed = append(revealed, &reviews.Review{
			ID:            uuid.New(),
			TransactionID: p.TransactionID,
			ReviewerID:    p.ReviewerID,
			TargetUserID:  p.TargetUserID,
			Rating:        pl.Rating,
			ReviewText:    pl.ReviewText,
			Weight:        pl.Weight,
			IsVisible:     true,
			IsVerified:    pl.IsVerified,
			SubmittedAt:   p.SubmittedAt,
			RevealedAt:    &revealedAt,
		})
	}

	s.reportFailures(ctx, transactionID, failed)

	if err := s.store.MarkRevealedAndInsert(ctx, transactionID, revealed, at); err != nil {
		return err
	}
	revealsTotal.WithLabelValues(reason).Inc()

	ids := make([]uuid.UUID, 0, len(revealed))
	for _, rv := range revealed {
		ids = append(ids, rv.ID)
	}
	s.publishEvent(ctx, eventbus.SubjectReviewsRevealed, "review.revealed", eventbus.ReviewsRevealedData{
		TransactionID: transactionID,
		ReviewIDs:     ids,
		Reason:        reason,
		RevealedAt:    at,
	})
	return nil
}

// reportScamReview queues reviews on scam-status transactions for moderator
// attention. The review itself stays accepted.
func (s *Service) reportScamReview(ctx context.Context, txn *transactions.Transaction, reviewerID uuid.UUID) {
	evidence := map[string]interface{}{
		"transaction_id": txn.ID.String(),
		"reviewer_id":    reviewerID.String(),
		"reason":         "review submitted on a scam-status transaction",
	}
	if err := s.moderation.Enqueue(ctx, 7, evidence, []uuid.UUID{txn.PartyA, txn.PartyB}); err != nil {
		logger.WithContext(ctx).Error("failed to enqueue scam review for moderation", zap.Error(err))
	}
}

func (s *Service) reportFailures(ctx context.Context, transactionID uuid.UUID, failed []*PendingReview) {
	for _, p := range failed {
		decryptFailuresTotal.Inc()
		logger.WithContext(ctx).Error("dropping undecryptable review",
			zap.String("transaction_id", transactionID.String()),
			zap.String("reviewer_id", p.ReviewerID.String()))
		evidence := map[string]interface{}{
			"transaction_id": transactionID.String(),
			"reviewer_id":    p.ReviewerID.String(),
			"reason":         "review payload could not be decrypted",
		}
		if err := s.moderation.Enqueue(ctx, 8, evidence, []uuid.UUID{p.ReviewerID, p.TargetUserID}); err != nil {
			logger.WithContext(ctx).Error("failed to report decrypt failure to moderation", zap.Error(err))
		}
	}
}

// SweepExpired unilaterally reveals pending reviews past their deadline.
// Idempotent: transactions revealed by a concurrent sweep are skipped.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now().UTC()
	ids, err := s.store.ListExpiredTransactions(ctx, now, expiredSweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list expired pending reviews: %w", err)
	}

	swept := 0
	for _, id := range ids {
		pair, err := s.store.GetPair(ctx, id)
		if err != nil {
			logger.WithContext(ctx).Error("failed to load expired pair",
				zap.String("transaction_id", id.String()), zap.Error(err))
			continue
		}
		if err := s.reveal(ctx, id, pair, "deadline"); err != nil {
			if errors.Is(err, ErrAlreadyRevealed) {
				continue
			}
			logger.WithContext(ctx).Error("failed to reveal expired pair",
				zap.String("transaction_id", id.String()), zap.Error(err))
			continue
		}
		swept++
	}
	return swept, nil
}

// PairState reports the review state of a transaction.
func (s *Service) PairState(ctx context.Context, transactionID uuid.UUID) (PairState, error) {
	pair, err := s.store.GetPair(ctx, transactionID)
	if err != nil {
		return "", err
	}
	switch {
	case len(pair) == 0:
		return StateAwaitingFirst, nil
	case !pair[0].Revealed:
		return StateAwaitingSecond, nil
	case len(pair) == 1:
		return StateRevealedByDeadline, nil
	default:
		return StateRevealed, nil
	}
}

func (s *Service) publishEvent(ctx context.Context, subject, eventType string, data interface{}) {
	if err := s.publisher.Publish(ctx, subject, eventType, data); err != nil {
		logger.WithContext(ctx).Warn("failed to publish event",
			zap.String("subject", subject), zap.Error(err))
	}
}
