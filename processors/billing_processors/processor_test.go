package billing_processors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/tests"
	"github.com/fipehub/billing-processor/utils"
)

func setupConfirmationProcessor(repository *mockRepository) (*ConfirmationProcessor, *tests.MockFlagStore, *tests.MockMessageProducer) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	flagStore := &tests.MockFlagStore{}
	deadLetterProducer := tests.NewMockMessageProducer()

	lister := &mockPaymentLister{result: utils.SuccessResult([]models.PaymentRecord{})}

	processor := NewConfirmationProcessor(
		logger,
		NewLifecycleService(repository, flagStore, logger),
		NewAggregationService(lister),
		deadLetterProducer,
	)

	return processor, flagStore, deadLetterProducer
}

func confirmationRecord(event string, subscriptionID string, dateCreated string) *kgo.Record {
	payload := fmt.Sprintf(`{
		"event": %q,
		"dateCreated": %q,
		"payment": {
			"id": "pay_123",
			"customer": "cus_456",
			"externalReference": %q,
			"status": "CONFIRMED",
			"value": 299.00,
			"paymentDate": "2024-02-03"
		}
	}`, event, dateCreated, subscriptionID)

	return &kgo.Record{Value: []byte(payload)}
}

func TestProcessConfirmations(t *testing.T) {
	t.Run("should apply a confirmation and commit the record", func(t *testing.T) {
		repository := &mockRepository{
			fetchResult: utils.SuccessResult(&models.Subscription{
				ID:      "sub_789",
				OwnerID: "owner_1",
				Status:  models.SubscriptionPendingPayment,
			}),
			updateResult: utils.SuccessResult(&models.Subscription{
				ID:      "sub_789",
				OwnerID: "owner_1",
				Status:  models.SubscriptionActive,
			}),
		}
		processor, flagStore, _ := setupConfirmationProcessor(repository)

		record := confirmationRecord(models.EventPaymentConfirmed, "sub_789", "2024-02-03")
		processed := processor.ProcessConfirmations(context.Background(), []*kgo.Record{record})

		assert.Len(t, processed, 1)
		assert.Len(t, repository.updates, 1)
		assert.Equal(t, models.SubscriptionActive, repository.updates[0].Status)
		assert.Equal(t, "pay_123", *repository.updates[0].PaymentID)
		assert.Equal(t, 1, flagStore.ExecutionCount)
	})

	t.Run("should commit non settlement events without a transition", func(t *testing.T) {
		repository := &mockRepository{}
		processor, flagStore, deadLetterProducer := setupConfirmationProcessor(repository)

		record := confirmationRecord("PAYMENT_OVERDUE", "sub_789", "2024-02-03")
		processed := processor.ProcessConfirmations(context.Background(), []*kgo.Record{record})

		assert.Len(t, processed, 1)
		assert.Empty(t, repository.updates)
		assert.Equal(t, 0, flagStore.ExecutionCount)
		assert.Equal(t, 0, deadLetterProducer.ExecutionCount)
	})

	t.Run("should commit a record that cannot be unmarshalled", func(t *testing.T) {
		repository := &mockRepository{}
		processor, _, _ := setupConfirmationProcessor(repository)

		record := &kgo.Record{Value: []byte(`[not json`)}
		processed := processor.ProcessConfirmations(context.Background(), []*kgo.Record{record})

		assert.Len(t, processed, 1)
		assert.Empty(t, repository.updates)
	})

	t.Run("should dead letter a confirmation missing its subscription reference", func(t *testing.T) {
		repository := &mockRepository{}
		processor, _, deadLetterProducer := setupConfirmationProcessor(repository)

		record := confirmationRecord(models.EventPaymentConfirmed, "", "2024-02-03")
		processed := processor.ProcessConfirmations(context.Background(), []*kgo.Record{record})

		assert.Len(t, processed, 1)
		assert.Empty(t, repository.updates)

		// Give some time to the go routine to complete
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 1, deadLetterProducer.ExecutionCount)
	})

	t.Run("should leave a fresh retryable failure uncommitted", func(t *testing.T) {
		repository := &mockRepository{
			fetchResult: utils.FailedResult[*models.Subscription](errors.New("connection refused")).NonCapturable(),
		}
		processor, _, deadLetterProducer := setupConfirmationProcessor(repository)

		record := confirmationRecord(
			models.EventPaymentConfirmed,
			"sub_789",
			time.Now().UTC().Format(time.RFC3339),
		)
		processed := processor.ProcessConfirmations(context.Background(), []*kgo.Record{record})

		assert.Empty(t, processed)
		assert.Equal(t, 0, deadLetterProducer.ExecutionCount)
	})
}

func TestProcessConfirmation(t *testing.T) {
	t.Run("should reject a confirmation without a payment id", func(t *testing.T) {
		repository := &mockRepository{}
		processor, _, _ := setupConfirmationProcessor(repository)

		event := &models.PaymentConfirmationEvent{
			Event:          models.EventPaymentConfirmed,
			SubscriptionID: "sub_789",
		}

		result := processor.processConfirmation(event)

		assert.True(t, result.Failure())
		assert.False(t, result.IsRetryable())
		assert.Equal(t, "invalid_confirmation", result.ErrorCode())
	})

	t.Run("should ignore other webhook event types", func(t *testing.T) {
		repository := &mockRepository{}
		processor, _, _ := setupConfirmationProcessor(repository)

		event := &models.PaymentConfirmationEvent{Event: "PAYMENT_CREATED"}

		result := processor.processConfirmation(event)

		assert.True(t, result.Success())
		assert.Nil(t, result.Value())
	})
}
