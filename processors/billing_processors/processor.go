package billing_processors

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"

	tracer "github.com/fipehub/billing-processor/config"
	"github.com/fipehub/billing-processor/config/kafka"
	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/utils"
)

// ConfirmationProcessor consumes payment confirmation events from the
// webhook topic and applies them to subscriptions.
type ConfirmationProcessor struct {
	logger             *slog.Logger
	LifecycleService   *LifecycleService
	AggregationService *AggregationService
	DeadLetterProducer kafka.MessageProducer
}

func NewConfirmationProcessor(logger *slog.Logger, lifecycleService *LifecycleService, aggregationService *AggregationService, deadLetterProducer kafka.MessageProducer) *ConfirmationProcessor {
	return &ConfirmationProcessor{
		logger:             logger,
		LifecycleService:   lifecycleService,
		AggregationService: aggregationService,
		DeadLetterProducer: deadLetterProducer,
	}
}

func (processor *ConfirmationProcessor) ProcessConfirmations(ctx context.Context, records []*kgo.Record) []*kgo.Record {
	span := tracer.GetTracerSpan(ctx, "billing_processor", "BillingProcessor.ProcessConfirmations")
	recordsAttr := attribute.Int("records.length", len(records))
	span.SetAttributes(recordsAttr)
	defer span.End()

	wg := sync.WaitGroup{}
	wg.Add(len(records))

	var mu sync.Mutex
	processedRecords := make([]*kgo.Record, 0)

	for _, record := range records {
		go func(record *kgo.Record) {
			defer wg.Done()

			sp := tracer.GetTracerSpan(ctx, "billing_processor", "BillingProcessor.ProcessOneConfirmation")
			defer sp.End()

			eventResult := models.ParsePaymentConfirmationEvent(record.Value)
			if eventResult.Failure() {
				processor.logger.Error("Error unmarshalling confirmation", slog.String("error", eventResult.ErrorMsg()))
				utils.CaptureError(eventResult.Error())

				mu.Lock()
				// If we fail to unmarshal the record, we should commit it as it will fail forever
				processedRecords = append(processedRecords, record)
				mu.Unlock()
				return
			}
			event := eventResult.Value()

			result := processor.processConfirmation(event)
			if result.Failure() {
				processor.logger.Error(
					result.ErrorMessage(),
					slog.String("error_code", result.ErrorCode()),
					slog.String("error", result.ErrorMsg()),
				)

				if result.IsCapturable() {
					utils.CaptureErrorResultWithExtra(result, "confirmation", event)
				}

				if result.IsRetryable() && time.Since(event.CreatedAt.Time()) < 12*time.Hour {
					// For retryable errors, we should avoid commiting the record,
					// It will be consumed again and reprocessed
					// Confirmations older than 12 hours go to the dead letter queue
					return
				}

				// Push failed records to the dead letter queue
				go processor.ProduceToDeadLetterQueue(ctx, *event, result)
			}

			if result.Success() && result.Value() != nil && event.CustomerID != "" {
				go processor.logPaymentSummary(ctx, event.CustomerID)
			}

			// Track processed records
			mu.Lock()
			processedRecords = append(processedRecords, record)
			mu.Unlock()
		}(record)
	}

	wg.Wait()

	return processedRecords
}

func (processor *ConfirmationProcessor) processConfirmation(event *models.PaymentConfirmationEvent) utils.Result[*models.Subscription] {
	if !event.IsConfirmation() {
		// The topic carries every webhook event type; only settlements
		// drive a transition.
		return utils.SuccessResult[*models.Subscription](nil)
	}

	if err := event.Validate(); err != nil {
		return utils.FailedResult[*models.Subscription](err).
			AddErrorDetails("invalid_confirmation", "Confirmation event missing required fields").
			NonRetryable()
	}

	return processor.LifecycleService.ConfirmPayment(event.SubscriptionID, event.PaymentID, time.Now())
}

// logPaymentSummary snapshots the customer's payment buckets after a
// settlement. Best effort; a provider failure here never fails the record.
func (processor *ConfirmationProcessor) logPaymentSummary(ctx context.Context, customerID string) {
	summaryResult := processor.AggregationService.SummarizeCustomerPayments(ctx, customerID, time.Now())
	if summaryResult.Failure() {
		processor.logger.Warn("could not summarize customer payments",
			slog.String("customer_id", customerID),
			slog.String("error", summaryResult.ErrorMsg()),
		)
		return
	}

	summary := summaryResult.Value()
	processor.logger.Info("customer payment summary",
		slog.String("customer_id", customerID),
		slog.Int("total", summary.Total),
		slog.Int("paid", summary.Paid),
		slog.Int("pending", summary.Pending),
		slog.Int("overdue", summary.Overdue),
		slog.String("overdue_value", summary.OverdueValue.String()),
	)
}

func (processor *ConfirmationProcessor) ProduceToDeadLetterQueue(ctx context.Context, event models.PaymentConfirmationEvent, errorResult utils.AnyResult) {
	failedConfirmation := models.FailedConfirmation{
		Event:               event,
		InitialErrorMessage: errorResult.ErrorMsg(),
		ErrorCode:           errorResult.ErrorCode(),
		ErrorMessage:        errorResult.ErrorMessage(),
		FailedAt:            time.Now(),
	}

	payload, err := json.Marshal(failedConfirmation)
	if err != nil {
		processor.logger.Error("error while marshaling failed confirmation with error details")
		return
	}

	pushed := processor.DeadLetterProducer.Produce(ctx, &kafka.ProducerMessage{
		Value: payload,
	})

	if !pushed {
		processor.logger.Error("error while pushing to dead letter topic", slog.String("topic", processor.DeadLetterProducer.GetTopic()))
		utils.CaptureErrorResultWithExtra(errorResult, "confirmation", event)
	}
}
