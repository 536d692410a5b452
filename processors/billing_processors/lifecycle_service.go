package billing_processors

import (
	"errors"
	"log/slog"
	"time"

	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/utils"
)

// LifecycleService drives subscription status transitions. Every transition
// flags the owner in the access changed set so the dashboard re-evaluates
// access on its next read.
type LifecycleService struct {
	repository SubscriptionRepository
	flagStore  models.Flagger
	logger     *slog.Logger
}

func NewLifecycleService(repository SubscriptionRepository, flagStore models.Flagger, logger *slog.Logger) *LifecycleService {
	return &LifecycleService{
		repository: repository,
		flagStore:  flagStore,
		logger:     logger,
	}
}

// CreateSubscription opens a new subscription for the owner. Any existing
// active or pending one is cancelled first, so an owner never holds two
// current subscriptions. This is also the recovery path from blocked.
func (s *LifecycleService) CreateSubscription(ownerID string, planType models.PlanType, providerCustomerID *string, now time.Time) utils.Result[*models.Subscription] {
	currentResult := s.repository.FetchActiveSubscription(ownerID)
	if currentResult.Failure() && !isNotFound(currentResult) {
		return failedSubscriptionResult(currentResult, "fetch_active_subscription", "Error fetching active subscription")
	}

	if current := currentResult.Value(); currentResult.Success() && current != nil {
		cancelResult := s.repository.UpdateSubscriptionStatus(current.ID, models.SubscriptionCancelled, nil, now)
		if cancelResult.Failure() {
			return failedSubscriptionResult(cancelResult, "cancel_superseded_subscription", "Error cancelling superseded subscription")
		}

		s.logger.Info("superseded subscription cancelled",
			slog.String("owner_id", ownerID),
			slog.String("subscription_id", current.ID),
		)
	}

	subResult := models.NewSubscription(ownerID, planType, providerCustomerID, now)
	if subResult.Failure() {
		return failedSubscriptionResult(subResult, "build_subscription", "Error building subscription")
	}

	createResult := s.repository.CreateSubscription(subResult.Value())
	if createResult.Failure() {
		return failedSubscriptionResult(createResult, "create_subscription", "Error creating subscription")
	}

	return s.flagAccessChanged(createResult)
}

// CancelSubscription cancels from any status. Cancelling an already cancelled
// subscription succeeds without touching the record.
func (s *LifecycleService) CancelSubscription(id string, now time.Time) utils.Result[*models.Subscription] {
	updateResult := s.repository.UpdateSubscriptionStatus(id, models.SubscriptionCancelled, nil, now)
	if updateResult.Failure() {
		return failedSubscriptionResult(updateResult, "cancel_subscription", "Error cancelling subscription")
	}

	return s.flagAccessChanged(updateResult)
}

// RenewSubscription rolls the subscription into its next period and leaves it
// waiting for payment.
func (s *LifecycleService) RenewSubscription(id string, now time.Time) utils.Result[*models.Subscription] {
	renewResult := s.repository.RenewSubscription(id, now)
	if renewResult.Failure() {
		return failedSubscriptionResult(renewResult, "renew_subscription", "Error renewing subscription")
	}

	return s.flagAccessChanged(renewResult)
}

// ConfirmPayment reactivates a pending_payment subscription and records the
// settled payment. A confirmation landing on an already active subscription
// is a duplicate delivery and succeeds without a transition.
func (s *LifecycleService) ConfirmPayment(subscriptionID string, paymentID string, now time.Time) utils.Result[*models.Subscription] {
	subResult := s.repository.FetchSubscription(subscriptionID)
	if subResult.Failure() {
		return failedSubscriptionResult(subResult, "fetch_subscription", "Error fetching subscription")
	}
	sub := subResult.Value()
	if sub == nil {
		return utils.FailedResult[*models.Subscription](errors.New(models.ERROR_NOT_FOUND)).
			AddErrorDetails("fetch_subscription", "Error fetching subscription").
			NonRetryable().
			NonCapturable()
	}

	if sub.Status == models.SubscriptionActive {
		s.logger.Info("duplicate payment confirmation ignored",
			slog.String("subscription_id", subscriptionID),
			slog.String("payment_id", paymentID),
		)
		return utils.SuccessResult(sub)
	}

	updateResult := s.repository.UpdateSubscriptionStatus(subscriptionID, models.SubscriptionActive, &paymentID, now)
	if updateResult.Failure() {
		return failedSubscriptionResult(updateResult, "confirm_payment", "Error applying payment confirmation")
	}

	return s.flagAccessChanged(updateResult)
}

func (s *LifecycleService) flagAccessChanged(subResult utils.Result[*models.Subscription]) utils.Result[*models.Subscription] {
	sub := subResult.Value()
	if sub == nil {
		return subResult
	}

	if err := s.flagStore.Flag(sub.OwnerID); err != nil {
		return failedSubscriptionResult(
			utils.FailedResult[*models.Subscription](err),
			"flag_access_changed",
			"Error flagging access change",
		)
	}

	return subResult
}
