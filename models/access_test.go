package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fipehub/billing-processor/utils"
)

var evaluationTime = time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)

func TestEvaluateAccessWithoutSubscription(t *testing.T) {
	decision := EvaluateAccess(nil, evaluationTime)

	assert.False(t, decision.HasAccess)
	assert.Equal(t, "no active subscription", decision.Reason)
}

func TestEvaluateAccessBlocked(t *testing.T) {
	// A blocked subscription denies access regardless of any grace period
	// still stored on the record.
	graceValues := []utils.NullTime{
		{},
		utils.NewNullTime(evaluationTime.Add(24 * time.Hour)),
		utils.NewNullTime(evaluationTime.Add(-24 * time.Hour)),
	}

	for _, grace := range graceValues {
		sub := &Subscription{
			Status:            SubscriptionBlocked,
			GracePeriodEndsAt: grace,
		}

		decision := EvaluateAccess(sub, evaluationTime)
		assert.False(t, decision.HasAccess)
		assert.Equal(t, "blocked for non-payment", decision.Reason)
	}
}

func TestEvaluateAccessActive(t *testing.T) {
	sub := &Subscription{Status: SubscriptionActive}

	decision := EvaluateAccess(sub, evaluationTime)
	assert.True(t, decision.HasAccess)
	assert.Empty(t, decision.Reason)
}

func TestEvaluateAccessPendingPayment(t *testing.T) {
	t.Run("should grant access inside the grace period", func(t *testing.T) {
		sub := &Subscription{
			Status:            SubscriptionPendingPayment,
			GracePeriodEndsAt: utils.NewNullTime(evaluationTime.Add(time.Second)),
		}

		decision := EvaluateAccess(sub, evaluationTime)
		assert.True(t, decision.HasAccess)
		assert.Contains(t, decision.Reason, "payment pending")
		assert.Contains(t, decision.Reason, "2024-02-10")
	})

	t.Run("should grant access exactly at the deadline", func(t *testing.T) {
		sub := &Subscription{
			Status:            SubscriptionPendingPayment,
			GracePeriodEndsAt: utils.NewNullTime(evaluationTime),
		}

		decision := EvaluateAccess(sub, evaluationTime)
		assert.True(t, decision.HasAccess)
	})

	t.Run("should deny access after the deadline", func(t *testing.T) {
		sub := &Subscription{
			Status:            SubscriptionPendingPayment,
			GracePeriodEndsAt: utils.NewNullTime(evaluationTime.Add(-time.Second)),
		}

		decision := EvaluateAccess(sub, evaluationTime)
		assert.False(t, decision.HasAccess)
		assert.Equal(t, "grace period expired", decision.Reason)
	})

	t.Run("should deny access when no grace period was set", func(t *testing.T) {
		sub := &Subscription{Status: SubscriptionPendingPayment}

		decision := EvaluateAccess(sub, evaluationTime)
		assert.False(t, decision.HasAccess)
		assert.Equal(t, "grace period expired", decision.Reason)
	})
}

func TestEvaluateAccessCancelledOrUnknown(t *testing.T) {
	for _, status := range []SubscriptionStatus{SubscriptionCancelled, "suspended", ""} {
		sub := &Subscription{Status: status}

		decision := EvaluateAccess(sub, evaluationTime)
		assert.False(t, decision.HasAccess)
		assert.Equal(t, "invalid subscription status", decision.Reason)
	}
}
