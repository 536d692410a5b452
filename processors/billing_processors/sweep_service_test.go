package billing_processors

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/tests"
	"github.com/fipehub/billing-processor/utils"
)

func setupSweepService(repository *mockRepository) (*SweepService, *tests.MockFlagStore) {
	flagStore := &tests.MockFlagStore{}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	return NewSweepService(repository, flagStore, logger), flagStore
}

func TestSweepExpired(t *testing.T) {
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)

	t.Run("should move expired subscriptions to pending payment", func(t *testing.T) {
		repository := &mockRepository{
			expiredResult: utils.SuccessResult([]models.Subscription{
				{ID: "sub_1", OwnerID: "owner_1", Status: models.SubscriptionActive},
				{ID: "sub_2", OwnerID: "owner_2", Status: models.SubscriptionActive},
			}),
			updateResult: utils.SuccessResult(&models.Subscription{
				Status: models.SubscriptionPendingPayment,
			}),
		}
		service, flagStore := setupSweepService(repository)

		result := service.SweepExpired(now)

		assert.True(t, result.Success())
		assert.Equal(t, 2, result.Value())
		assert.Len(t, repository.updates, 2)
		for _, update := range repository.updates {
			assert.Equal(t, models.SubscriptionPendingPayment, update.Status)
		}
		assert.ElementsMatch(t, []string{"owner_1", "owner_2"}, flagStore.Keys)
	})

	t.Run("should keep sweeping past a stuck record", func(t *testing.T) {
		repository := &mockRepository{
			expiredResult: utils.SuccessResult([]models.Subscription{
				{ID: "sub_1", OwnerID: "owner_1", Status: models.SubscriptionActive},
			}),
			updateResult: utils.FailedResult[*models.Subscription](errors.New("deadlock")).NonCapturable(),
		}
		service, flagStore := setupSweepService(repository)

		result := service.SweepExpired(now)

		assert.True(t, result.Success())
		assert.Equal(t, 0, result.Value())
		assert.Equal(t, 0, flagStore.ExecutionCount)
	})

	t.Run("should fail when the lookup fails", func(t *testing.T) {
		repository := &mockRepository{
			expiredResult: utils.FailedResult[[]models.Subscription](errors.New("connection refused")),
		}
		service, _ := setupSweepService(repository)

		result := service.SweepExpired(now)

		assert.True(t, result.Failure())
		assert.Equal(t, "find_expired", result.ErrorCode())
	})
}

func TestSweepBlockable(t *testing.T) {
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)

	t.Run("should block subscriptions past their grace period", func(t *testing.T) {
		repository := &mockRepository{
			blockableResult: utils.SuccessResult([]models.Subscription{
				{ID: "sub_1", OwnerID: "owner_1", Status: models.SubscriptionPendingPayment},
			}),
			updateResult: utils.SuccessResult(&models.Subscription{
				Status: models.SubscriptionBlocked,
			}),
		}
		service, flagStore := setupSweepService(repository)

		result := service.SweepBlockable(now)

		assert.True(t, result.Success())
		assert.Equal(t, 1, result.Value())
		assert.Equal(t, models.SubscriptionBlocked, repository.updates[0].Status)
		assert.Equal(t, []string{"owner_1"}, flagStore.Keys)
	})

	t.Run("should do nothing when no grace period has expired", func(t *testing.T) {
		repository := &mockRepository{
			blockableResult: utils.SuccessResult([]models.Subscription{}),
		}
		service, flagStore := setupSweepService(repository)

		result := service.SweepBlockable(now)

		assert.True(t, result.Success())
		assert.Equal(t, 0, result.Value())
		assert.Empty(t, repository.updates)
		assert.Equal(t, 0, flagStore.ExecutionCount)
	})
}
