package billing_processors

import (
	"time"

	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/utils"
)

// SubscriptionRepository is the slice of the store the services need. The
// production implementation is models.SubscriptionStore.
type SubscriptionRepository interface {
	FetchActiveSubscription(ownerID string) utils.Result[*models.Subscription]
	FetchSubscription(id string) utils.Result[*models.Subscription]
	CreateSubscription(sub *models.Subscription) utils.Result[*models.Subscription]
	UpdateSubscriptionStatus(id string, status models.SubscriptionStatus, paymentID *string, now time.Time) utils.Result[*models.Subscription]
	RenewSubscription(id string, now time.Time) utils.Result[*models.Subscription]
	FindExpired(now time.Time) utils.Result[[]models.Subscription]
	FindBlockable(now time.Time) utils.Result[[]models.Subscription]
}

func failedSubscriptionResult(r utils.AnyResult, code string, message string) utils.Result[*models.Subscription] {
	result := utils.FailedResult[*models.Subscription](r.Error()).AddErrorDetails(code, message)
	result.Retryable = r.IsRetryable()
	result.Capture = r.IsCapturable()
	return result
}

func isNotFound(r utils.AnyResult) bool {
	return r.Failure() && r.ErrorMsg() == models.ERROR_NOT_FOUND
}
