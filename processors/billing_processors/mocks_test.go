package billing_processors

import (
	"context"
	"errors"
	"time"

	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/utils"
)

type statusUpdate struct {
	ID        string
	Status    models.SubscriptionStatus
	PaymentID *string
}

// mockRepository satisfies SubscriptionRepository with canned results. Calls
// that mutate state are recorded for assertions.
type mockRepository struct {
	activeResult    utils.Result[*models.Subscription]
	fetchResult     utils.Result[*models.Subscription]
	createErr       error
	updateResult    utils.Result[*models.Subscription]
	renewResult     utils.Result[*models.Subscription]
	expiredResult   utils.Result[[]models.Subscription]
	blockableResult utils.Result[[]models.Subscription]

	created []*models.Subscription
	updates []statusUpdate
}

func notFoundSubscriptionResult() utils.Result[*models.Subscription] {
	return utils.FailedResult[*models.Subscription](errors.New(models.ERROR_NOT_FOUND)).
		NonRetryable().
		NonCapturable()
}

func (m *mockRepository) FetchActiveSubscription(ownerID string) utils.Result[*models.Subscription] {
	return m.activeResult
}

func (m *mockRepository) FetchSubscription(id string) utils.Result[*models.Subscription] {
	return m.fetchResult
}

func (m *mockRepository) CreateSubscription(sub *models.Subscription) utils.Result[*models.Subscription] {
	m.created = append(m.created, sub)

	if m.createErr != nil {
		return utils.FailedResult[*models.Subscription](m.createErr)
	}

	return utils.SuccessResult(sub)
}

func (m *mockRepository) UpdateSubscriptionStatus(id string, status models.SubscriptionStatus, paymentID *string, now time.Time) utils.Result[*models.Subscription] {
	m.updates = append(m.updates, statusUpdate{ID: id, Status: status, PaymentID: paymentID})
	return m.updateResult
}

func (m *mockRepository) RenewSubscription(id string, now time.Time) utils.Result[*models.Subscription] {
	return m.renewResult
}

func (m *mockRepository) FindExpired(now time.Time) utils.Result[[]models.Subscription] {
	return m.expiredResult
}

func (m *mockRepository) FindBlockable(now time.Time) utils.Result[[]models.Subscription] {
	return m.blockableResult
}

type mockPaymentLister struct {
	result     utils.Result[[]models.PaymentRecord]
	customerID string
	calls      int
}

func (m *mockPaymentLister) ListPayments(ctx context.Context, customerID string) utils.Result[[]models.PaymentRecord] {
	m.customerID = customerID
	m.calls++
	return m.result
}
