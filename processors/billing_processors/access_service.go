package billing_processors

import (
	"time"

	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/utils"
)

type AccessService struct {
	repository SubscriptionRepository
}

func NewAccessService(repository SubscriptionRepository) *AccessService {
	return &AccessService{
		repository: repository,
	}
}

// CheckAccess evaluates the owner's current subscription. An owner without a
// subscription is a denied decision, not an error; only store failures
// propagate.
func (s *AccessService) CheckAccess(ownerID string, now time.Time) utils.Result[models.AccessDecision] {
	subResult := s.repository.FetchActiveSubscription(ownerID)
	if subResult.Failure() {
		if isNotFound(subResult) {
			return utils.SuccessResult(models.EvaluateAccess(nil, now))
		}

		result := utils.FailedResult[models.AccessDecision](subResult.Error()).
			AddErrorDetails("fetch_active_subscription", "Error fetching active subscription")
		result.Retryable = subResult.IsRetryable()
		result.Capture = subResult.IsCapturable()
		return result
	}

	return utils.SuccessResult(models.EvaluateAccess(subResult.Value(), now))
}
