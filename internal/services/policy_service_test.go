package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

func TestPolicy_CreateAndFind(t *testing.T) {
	database := utils.SetupTestDB(t, "testdb_policy_crud", policiesCollection)
	svc := NewPolicyService(database)
	ctx := context.Background()

	policy, err := svc.CreatePolicy(ctx, &models.CancellationPolicy{
		Name:               "Strict",
		BeforeDays:         14,
		BeforeDayRefundPct: 50,
		AfterDayRefundPct:  0,
	})
	require.NoError(t, err)

	found, err := svc.FindPolicyByID(ctx, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, "Strict", found.Name)
	assert.Equal(t, 14, found.BeforeDays)

	_, err = svc.FindPolicyByID(ctx, utils.NewSixID())
	require.ErrorIs(t, err, models.ErrPolicyMissing)

	all, err := svc.ListPolicies(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Validation.
	_, err = svc.CreatePolicy(ctx, &models.CancellationPolicy{BeforeDays: -1})
	require.Error(t, err)
	_, err = svc.CreatePolicy(ctx, &models.CancellationPolicy{BeforeDayRefundPct: 120})
	require.Error(t, err)
}

func TestPolicy_RefundAmount(t *testing.T) {
	policy := &models.CancellationPolicy{
		Name:               "Moderate",
		BeforeDays:         5,
		BeforeDayRefundPct: 100,
		AfterDayRefundPct:  50,
	}
	checkIn := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	// Well before the threshold: full refund.
	early := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 2154.6, RefundAmount(policy, 2154.6, checkIn, early))

	// Cancelling exactly BeforeDays days before check-in still earns the
	// generous percentage.
	onThreshold := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2154.6, RefundAmount(policy, 2154.6, checkIn, onThreshold))

	// One second past the threshold is late.
	justAfter := onThreshold.Add(time.Second)
	assert.Equal(t, 1077.3, RefundAmount(policy, 2154.6, checkIn, justAfter))

	// After check-in: late percentage.
	late := checkIn.Add(24 * time.Hour)
	assert.Equal(t, 1077.3, RefundAmount(policy, 2154.6, checkIn, late))

	// Rounding is half-up at 2 decimal places.
	assert.Equal(t, 50.01, RefundAmount(policy, 100.01, checkIn, late))

	// Degenerate inputs.
	assert.Equal(t, 0.0, RefundAmount(nil, 100, checkIn, early))
	assert.Equal(t, 0.0, RefundAmount(policy, 0, checkIn, early))

	zeroPct := &models.CancellationPolicy{BeforeDays: 5, BeforeDayRefundPct: 0, AfterDayRefundPct: 0}
	assert.Equal(t, 0.0, RefundAmount(zeroPct, 500, checkIn, early))
}
