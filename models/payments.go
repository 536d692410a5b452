package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fipehub/billing-processor/utils"
)

// ProviderPaymentStatus is the payment provider's status vocabulary. The
// enumeration is open ended on their side; anything we do not recognize
// falls into the Other bucket but keeps its raw value for display.
type ProviderPaymentStatus string

const (
	PaymentStatusPending         ProviderPaymentStatus = "PENDING"
	PaymentStatusAwaitingPayment ProviderPaymentStatus = "AWAITING_PAYMENT"
	PaymentStatusReceived        ProviderPaymentStatus = "RECEIVED"
	PaymentStatusConfirmed       ProviderPaymentStatus = "CONFIRMED"
	PaymentStatusReceivedInCash  ProviderPaymentStatus = "RECEIVED_IN_CASH"
	PaymentStatusOverdue         ProviderPaymentStatus = "OVERDUE"
)

type BillingMethod string

const (
	BillingCreditCard BillingMethod = "CREDIT_CARD"
	BillingPix        BillingMethod = "PIX"
	BillingBoleto     BillingMethod = "BOLETO"
	BillingTransfer   BillingMethod = "TRANSFER"
	BillingDebitCard  BillingMethod = "DEBIT_CARD"
)

// DisplayLabel is cosmetic only; unrecognized methods fall back to the raw
// provider value.
func (bm BillingMethod) DisplayLabel() string {
	switch bm {
	case BillingCreditCard:
		return "Card"
	case BillingPix:
		return "Pix"
	case BillingBoleto:
		return "Bank slip"
	default:
		return string(bm)
	}
}

// PaymentRecord is owned by the payment provider and read-only here. Value is
// a pointer so a record missing its amount can be told apart from a zero one.
type PaymentRecord struct {
	ID            string                `json:"id"`
	CustomerID    string                `json:"customer"`
	Status        ProviderPaymentStatus `json:"status"`
	Value         *decimal.Decimal      `json:"value"`
	DueDate       utils.CustomTime      `json:"dueDate"`
	PaymentDate   utils.CustomTime      `json:"paymentDate"`
	BillingMethod BillingMethod         `json:"billingType"`
	Description   string                `json:"description,omitempty"`
	InvoiceURL    string                `json:"invoiceUrl,omitempty"`
	BankSlipURL   string                `json:"bankSlipUrl,omitempty"`
}

// Valid reports whether the record carries the fields classification needs.
// Invalid records are skipped by SummarizePayments instead of failing the
// whole batch.
func (p *PaymentRecord) Valid() bool {
	return p.ID != "" && p.Status != "" && p.Value != nil && !p.DueDate.IsZero()
}

type PaymentBucket string

const (
	BucketPaid    PaymentBucket = "paid"
	BucketPending PaymentBucket = "pending"
	BucketOverdue PaymentBucket = "overdue"
	BucketOther   PaymentBucket = "other"
)

type PaymentClassification struct {
	Bucket       PaymentBucket
	DisplayLabel string
}

// Classify maps the provider status to a bucket. A payment the provider
// still reports as pending counts as overdue once its due date has passed.
func (p *PaymentRecord) Classify(now time.Time) PaymentClassification {
	switch p.Status {
	case PaymentStatusReceived, PaymentStatusConfirmed, PaymentStatusReceivedInCash:
		return PaymentClassification{Bucket: BucketPaid, DisplayLabel: "Paid"}

	case PaymentStatusPending, PaymentStatusAwaitingPayment:
		if p.DueDate.Time().Before(now) {
			return PaymentClassification{Bucket: BucketOverdue, DisplayLabel: "Overdue"}
		}
		return PaymentClassification{Bucket: BucketPending, DisplayLabel: "Pending"}

	case PaymentStatusOverdue:
		return PaymentClassification{Bucket: BucketOverdue, DisplayLabel: "Overdue"}

	default:
		return PaymentClassification{Bucket: BucketOther, DisplayLabel: string(p.Status)}
	}
}

// PaymentSummary is recomputed on every read, never persisted.
type PaymentSummary struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Paid    int `json:"paid"`
	Overdue int `json:"overdue"`

	TotalValue   decimal.Decimal `json:"total_value"`
	PendingValue decimal.Decimal `json:"pending_value"`
	PaidValue    decimal.Decimal `json:"paid_value"`
	OverdueValue decimal.Decimal `json:"overdue_value"`
}

// SummarizePayments folds a payment list into bucket counts and sums in a
// single pass. The fold is order independent: any permutation of the list
// yields the same summary. Records missing required fields are skipped.
func SummarizePayments(payments []PaymentRecord, now time.Time) PaymentSummary {
	summary := PaymentSummary{
		TotalValue:   decimal.Zero,
		PendingValue: decimal.Zero,
		PaidValue:    decimal.Zero,
		OverdueValue: decimal.Zero,
	}

	for i := range payments {
		payment := &payments[i]
		if !payment.Valid() {
			continue
		}

		summary.Total++
		summary.TotalValue = summary.TotalValue.Add(*payment.Value)

		switch payment.Classify(now).Bucket {
		case BucketPaid:
			summary.Paid++
			summary.PaidValue = summary.PaidValue.Add(*payment.Value)
		case BucketPending:
			summary.Pending++
			summary.PendingValue = summary.PendingValue.Add(*payment.Value)
		case BucketOverdue:
			summary.Overdue++
			summary.OverdueValue = summary.OverdueValue.Add(*payment.Value)
		}
	}

	return summary
}

// UnmarshalPaymentList accepts the two shapes the provider returns: a
// pagination envelope with a data array, or a raw array. A present envelope
// without data means an empty list.
func UnmarshalPaymentList(data []byte) utils.Result[[]PaymentRecord] {
	var envelope struct {
		Data []PaymentRecord `json:"data"`
	}

	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Data == nil {
			envelope.Data = []PaymentRecord{}
		}
		return utils.SuccessResult(envelope.Data)
	}

	var list []PaymentRecord
	if err := json.Unmarshal(data, &list); err == nil {
		if list == nil {
			list = []PaymentRecord{}
		}
		return utils.SuccessResult(list)
	}

	return utils.FailedResult[[]PaymentRecord](fmt.Errorf("unrecognized payment list payload")).NonRetryable()
}
