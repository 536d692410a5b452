package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fipehub/billing-processor/utils"
)

const (
	// SubscriptionPeriod is the length of one paid period.
	SubscriptionPeriod = 30 * 24 * time.Hour
	// GracePeriod is the window after entering pending_payment during which
	// access is still granted.
	GracePeriod = 5 * 24 * time.Hour
)

type SubscriptionStatus string

const (
	SubscriptionActive         SubscriptionStatus = "active"
	SubscriptionPendingPayment SubscriptionStatus = "pending_payment"
	SubscriptionBlocked        SubscriptionStatus = "blocked"
	SubscriptionCancelled      SubscriptionStatus = "cancelled"
)

var ErrInvalidTransition = errors.New("invalid subscription status transition")

// CanTransitionTo enforces the status state machine. Cancelled is terminal
// and blocked can only be cancelled; recovery from blocked goes through a new
// subscription.
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	switch s {
	case SubscriptionActive:
		return next == SubscriptionPendingPayment || next == SubscriptionCancelled
	case SubscriptionPendingPayment:
		return next == SubscriptionActive || next == SubscriptionBlocked || next == SubscriptionCancelled
	case SubscriptionBlocked:
		return next == SubscriptionCancelled
	default:
		return false
	}
}

type Subscription struct {
	ID                 string             `gorm:"primaryKey" json:"id"`
	OwnerID            string             `json:"owner_id"`
	PlanType           PlanType           `json:"plan_type"`
	PlanValue          decimal.Decimal    `gorm:"type:numeric" json:"plan_value"`
	StartDate          time.Time          `json:"start_date"`
	EndDate            time.Time          `json:"end_date"`
	Status             SubscriptionStatus `json:"status"`
	LastPaymentID      *string            `json:"last_payment_id,omitempty"`
	ProviderCustomerID *string            `json:"provider_customer_id,omitempty"`
	GracePeriodEndsAt  utils.NullTime     `json:"grace_period_ends_at"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewSubscription builds a subscription record for the given owner, priced
// from the plan catalog. The first period starts immediately.
func NewSubscription(ownerID string, planType PlanType, providerCustomerID *string, now time.Time) utils.Result[*Subscription] {
	config, ok := planType.Config()
	if !ok {
		return utils.FailedResult[*Subscription](errors.New("unknown plan type")).NonRetryable()
	}

	sub := &Subscription{
		ID:                 uuid.New().String(),
		OwnerID:            ownerID,
		PlanType:           planType,
		PlanValue:          config.Value,
		StartDate:          now,
		EndDate:            now.Add(SubscriptionPeriod),
		Status:             SubscriptionActive,
		ProviderCustomerID: providerCustomerID,
	}

	return utils.SuccessResult(sub)
}

// FetchActiveSubscription returns the owner's current subscription, meaning
// the most recent one in active or pending_payment status.
func (store *SubscriptionStore) FetchActiveSubscription(ownerID string) utils.Result[*Subscription] {
	var sub Subscription

	result := store.db.Connection.
		Table("subscriptions").
		Where(
			"owner_id = ? AND status IN ?",
			ownerID,
			[]SubscriptionStatus{SubscriptionActive, SubscriptionPendingPayment},
		).
		Order("created_at DESC").
		Limit(1).
		Find(&sub)

	if result.Error != nil {
		return failedSubscriptionResult(result.Error)
	}
	if sub.ID == "" {
		return failedSubscriptionResult(gorm.ErrRecordNotFound)
	}

	return utils.SuccessResult(&sub)
}

func (store *SubscriptionStore) FetchSubscription(id string) utils.Result[*Subscription] {
	var sub Subscription

	result := store.db.Connection.
		Table("subscriptions").
		Where("id = ?", id).
		Limit(1).
		Find(&sub)

	if result.Error != nil {
		return failedSubscriptionResult(result.Error)
	}
	if sub.ID == "" {
		return failedSubscriptionResult(gorm.ErrRecordNotFound)
	}

	return utils.SuccessResult(&sub)
}

func (store *SubscriptionStore) CreateSubscription(sub *Subscription) utils.Result[*Subscription] {
	result := store.db.Connection.Create(sub)
	if result.Error != nil {
		return utils.FailedResult[*Subscription](result.Error)
	}

	return utils.SuccessResult(sub)
}

// UpdateSubscriptionStatus applies a status transition. Entering
// pending_payment sets the grace period deadline; every other status clears
// it. A cancel on an already cancelled record is a no-op, any other
// unreachable edge fails with ErrInvalidTransition.
func (store *SubscriptionStore) UpdateSubscriptionStatus(id string, status SubscriptionStatus, paymentID *string, now time.Time) utils.Result[*Subscription] {
	subResult := store.FetchSubscription(id)
	if subResult.Failure() {
		return subResult
	}
	sub := subResult.Value()

	if sub.Status == SubscriptionCancelled && status == SubscriptionCancelled {
		return utils.SuccessResult(sub)
	}

	if !sub.Status.CanTransitionTo(status) {
		return utils.FailedResult[*Subscription](ErrInvalidTransition).NonRetryable().NonCapturable()
	}

	updates := map[string]any{
		"status": status,
	}

	if status == SubscriptionPendingPayment {
		updates["grace_period_ends_at"] = now.Add(GracePeriod)
	} else {
		updates["grace_period_ends_at"] = nil
	}

	if paymentID != nil {
		updates["last_payment_id"] = *paymentID
	}

	result := store.db.Connection.
		Model(&Subscription{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return utils.FailedResult[*Subscription](result.Error)
	}

	sub.Status = status
	if status == SubscriptionPendingPayment {
		sub.GracePeriodEndsAt = utils.NewNullTime(now.Add(GracePeriod))
	} else {
		sub.GracePeriodEndsAt = utils.NullTime{}
	}
	if paymentID != nil {
		sub.LastPaymentID = paymentID
	}

	return utils.SuccessResult(sub)
}

// RenewSubscription rolls the subscription into its next period: the new
// period starts where the old one ended, payment is expected and access runs
// on the grace window anchored at the new period end.
func (store *SubscriptionStore) RenewSubscription(id string, now time.Time) utils.Result[*Subscription] {
	subResult := store.FetchSubscription(id)
	if subResult.Failure() {
		return subResult
	}
	sub := subResult.Value()

	newStart := sub.EndDate
	newEnd := newStart.Add(SubscriptionPeriod)
	graceEnd := newEnd.Add(GracePeriod)

	updates := map[string]any{
		"start_date":           newStart,
		"end_date":             newEnd,
		"status":               SubscriptionPendingPayment,
		"grace_period_ends_at": graceEnd,
	}

	result := store.db.Connection.
		Model(&Subscription{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return utils.FailedResult[*Subscription](result.Error)
	}

	sub.StartDate = newStart
	sub.EndDate = newEnd
	sub.Status = SubscriptionPendingPayment
	sub.GracePeriodEndsAt = utils.NewNullTime(graceEnd)

	return utils.SuccessResult(sub)
}

// FindExpired returns active subscriptions whose period has ended. Callers
// transition each to pending_payment.
func (store *SubscriptionStore) FindExpired(now time.Time) utils.Result[[]Subscription] {
	var subscriptions []Subscription

	result := store.db.Connection.
		Table("subscriptions").
		Where("status = ? AND end_date < ?", SubscriptionActive, now).
		Find(&subscriptions)
	if result.Error != nil {
		return utils.FailedResult[[]Subscription](result.Error)
	}

	return utils.SuccessResult(subscriptions)
}

// FindBlockable returns pending_payment subscriptions whose grace period has
// run out. Callers transition each to blocked.
func (store *SubscriptionStore) FindBlockable(now time.Time) utils.Result[[]Subscription] {
	var subscriptions []Subscription

	result := store.db.Connection.
		Table("subscriptions").
		Where(
			"status = ? AND grace_period_ends_at IS NOT NULL AND grace_period_ends_at < ?",
			SubscriptionPendingPayment,
			now,
		).
		Find(&subscriptions)
	if result.Error != nil {
		return utils.FailedResult[[]Subscription](result.Error)
	}

	return utils.SuccessResult(subscriptions)
}

func failedSubscriptionResult(err error) utils.Result[*Subscription] {
	result := utils.FailedResult[*Subscription](err)

	if err.Error() == gorm.ErrRecordNotFound.Error() {
		result = result.NonCapturable().NonRetryable()
	}

	return result
}
