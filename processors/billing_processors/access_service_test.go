package billing_processors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/utils"
)

func TestCheckAccess(t *testing.T) {
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)

	t.Run("should grant access to an active subscription", func(t *testing.T) {
		repository := &mockRepository{
			activeResult: utils.SuccessResult(&models.Subscription{
				ID:      "sub_1",
				OwnerID: "owner_1",
				Status:  models.SubscriptionActive,
			}),
		}
		service := NewAccessService(repository)

		result := service.CheckAccess("owner_1", now)

		assert.True(t, result.Success())
		assert.True(t, result.Value().HasAccess)
	})

	t.Run("should deny access when the owner has no subscription", func(t *testing.T) {
		repository := &mockRepository{
			activeResult: notFoundSubscriptionResult(),
		}
		service := NewAccessService(repository)

		result := service.CheckAccess("owner_1", now)

		assert.True(t, result.Success())
		assert.False(t, result.Value().HasAccess)
		assert.Equal(t, "no active subscription", result.Value().Reason)
	})

	t.Run("should grant access during the grace period", func(t *testing.T) {
		repository := &mockRepository{
			activeResult: utils.SuccessResult(&models.Subscription{
				ID:                "sub_1",
				OwnerID:           "owner_1",
				Status:            models.SubscriptionPendingPayment,
				GracePeriodEndsAt: utils.NewNullTime(now.Add(24 * time.Hour)),
			}),
		}
		service := NewAccessService(repository)

		result := service.CheckAccess("owner_1", now)

		assert.True(t, result.Success())
		assert.True(t, result.Value().HasAccess)
		assert.Contains(t, result.Value().Reason, "payment pending")
	})

	t.Run("should propagate store failures", func(t *testing.T) {
		repository := &mockRepository{
			activeResult: utils.FailedResult[*models.Subscription](errors.New("connection refused")),
		}
		service := NewAccessService(repository)

		result := service.CheckAccess("owner_1", now)

		assert.True(t, result.Failure())
		assert.True(t, result.IsRetryable())
		assert.Equal(t, "fetch_active_subscription", result.ErrorCode())
	})
}
