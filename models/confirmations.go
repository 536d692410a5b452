package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fipehub/billing-processor/utils"
)

const (
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentReceived  = "PAYMENT_RECEIVED"
)

// PaymentConfirmationEvent is the webhook-shaped payload the edge publishes
// to the confirmations topic when the provider settles a charge. The payment
// fields sit nested under "payment", the subscription id rides in the
// provider's externalReference.
type PaymentConfirmationEvent struct {
	Event          string           `json:"event"`
	PaymentID      string           `json:"payment.id"`
	CustomerID     string           `json:"payment.customer"`
	SubscriptionID string           `json:"payment.externalReference"`
	Status         string           `json:"payment.status"`
	Value          *decimal.Decimal `json:"payment.value"`
	PaymentDate    utils.CustomTime `json:"payment.paymentDate"`
	CreatedAt      utils.CustomTime `json:"dateCreated"`
}

func ParsePaymentConfirmationEvent(data []byte) utils.Result[*PaymentConfirmationEvent] {
	var event PaymentConfirmationEvent
	if err := utils.UnmarshalNestedJSON(data, &event); err != nil {
		return utils.FailedResult[*PaymentConfirmationEvent](err).NonRetryable()
	}

	return utils.SuccessResult(&event)
}

// IsConfirmation reports whether the event settles a charge. Other webhook
// event types share the topic and are ignored.
func (ev *PaymentConfirmationEvent) IsConfirmation() bool {
	return ev.Event == EventPaymentConfirmed || ev.Event == EventPaymentReceived
}

func (ev *PaymentConfirmationEvent) Validate() error {
	if ev.PaymentID == "" {
		return errors.New("confirmation event missing payment id")
	}
	if ev.SubscriptionID == "" {
		return errors.New("confirmation event missing subscription reference")
	}

	return nil
}

// FailedConfirmation is the dead letter payload: the original event plus the
// error details that prevented it from being applied.
type FailedConfirmation struct {
	Event               PaymentConfirmationEvent `json:"event"`
	InitialErrorMessage string                   `json:"initial_error_message"`
	ErrorCode           string                   `json:"error_code"`
	ErrorMessage        string                   `json:"error_message"`
	FailedAt            time.Time                `json:"failed_at"`
}
