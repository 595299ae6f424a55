package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yasinarafat4/reluxrent-sub000/internal/db"
	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// IPolicyService manages cancellation policy reference data and computes
// refund amounts from it. Policies are immutable once referenced by bookings,
// so there is no update operation.
type IPolicyService interface {
	CreatePolicy(ctx context.Context, input *models.CancellationPolicy) (*models.CancellationPolicy, error)
	FindPolicyByID(ctx context.Context, policyID utils.SixID) (*models.CancellationPolicy, error)
	ListPolicies(ctx context.Context) ([]models.CancellationPolicy, error)
}

const policiesCollection = "cancellation_policies"

// policyService implements IPolicyService.
type policyService struct {
	db *mongo.Database
}

// NewPolicyService creates a new PolicyService.
func NewPolicyService(database *mongo.Database) IPolicyService {
	return &policyService{db: database}
}

// CreatePolicy inserts a new cancellation policy.
func (s *policyService) CreatePolicy(ctx context.Context, input *models.CancellationPolicy) (*models.CancellationPolicy, error) {
	if input.BeforeDays < 0 {
		return nil, fmt.Errorf("before_days cannot be negative, got %d", input.BeforeDays)
	}
	if input.BeforeDayRefundPct < 0 || input.BeforeDayRefundPct > 100 ||
		input.AfterDayRefundPct < 0 || input.AfterDayRefundPct > 100 {
		return nil, errors.New("refund percentages must be within [0, 100]")
	}

	collection := s.db.Collection(policiesCollection)

	var policy *models.CancellationPolicy
	operation := func() error {
		policy = &models.CancellationPolicy{
			ID:                 utils.NewSixID(),
			Name:               input.Name,
			BeforeDays:         input.BeforeDays,
			BeforeDayRefundPct: input.BeforeDayRefundPct,
			AfterDayRefundPct:  input.AfterDayRefundPct,
		}
		_, insertErr := collection.InsertOne(ctx, policy)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert cancellation policy after multiple retries: %w", err)
	}
	return policy, nil
}

// FindPolicyByID finds a cancellation policy by its ID.
func (s *policyService) FindPolicyByID(ctx context.Context, policyID utils.SixID) (*models.CancellationPolicy, error) {
	var policy models.CancellationPolicy
	collection := s.db.Collection(policiesCollection)
	err := collection.FindOne(ctx, bson.M{"_id": policyID}).Decode(&policy)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("cancellation policy %s: %w", policyID.String(), models.ErrPolicyMissing)
		}
		return nil, fmt.Errorf("error finding cancellation policy %s: %w", policyID.String(), err)
	}
	return &policy, nil
}

// ListPolicies returns all cancellation policies.
func (s *policyService) ListPolicies(ctx context.Context) ([]models.CancellationPolicy, error) {
	collection := s.db.Collection(policiesCollection)
	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error listing cancellation policies: %w", err)
	}
	defer cursor.Close(ctx)

	var policies []models.CancellationPolicy
	if err := cursor.All(ctx, &policies); err != nil {
		return nil, fmt.Errorf("error decoding cancellation policies: %w", err)
	}
	return policies, nil
}

// RefundAmount computes the guest refund for cancelling a confirmed booking.
// Pure function of the policy, the charged guest total and the two instants:
// cancelling at least policy.BeforeDays days before check-in gets the
// before-threshold percentage, anything later gets the after percentage.
// Rounded half-up to 2 decimal places, like every money output.
func RefundAmount(policy *models.CancellationPolicy, guestTotal float64, checkIn, cancelledAt time.Time) float64 {
	if policy == nil || guestTotal <= 0 {
		return 0
	}

	threshold := models.Midnight(checkIn).AddDate(0, 0, -policy.BeforeDays)
	pct := policy.AfterDayRefundPct
	if !cancelledAt.After(threshold) {
		pct = policy.BeforeDayRefundPct
	}

	refund := decimal.NewFromFloat(guestTotal).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100))
	f, _ := refund.Round(2).Float64()
	return f
}
