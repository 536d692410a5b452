package billing_processors

import (
	"context"
	"time"

	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/utils"
)

// PaymentLister is the slice of the provider client the aggregation needs.
type PaymentLister interface {
	ListPayments(ctx context.Context, customerID string) utils.Result[[]models.PaymentRecord]
}

type AggregationService struct {
	lister PaymentLister
}

func NewAggregationService(lister PaymentLister) *AggregationService {
	return &AggregationService{
		lister: lister,
	}
}

// SummarizeCustomerPayments folds the provider's payment list for the
// customer into a summary. A provider failure propagates as a failure; it is
// never rendered as an empty summary.
func (s *AggregationService) SummarizeCustomerPayments(ctx context.Context, customerID string, now time.Time) utils.Result[*models.PaymentSummary] {
	paymentsResult := s.lister.ListPayments(ctx, customerID)
	if paymentsResult.Failure() {
		result := utils.FailedResult[*models.PaymentSummary](paymentsResult.Error()).
			AddErrorDetails("list_payments", "Error listing payments from provider")
		result.Retryable = paymentsResult.IsRetryable()
		result.Capture = paymentsResult.IsCapturable()
		return result
	}

	summary := models.SummarizePayments(paymentsResult.Value(), now)
	return utils.SuccessResult(&summary)
}
