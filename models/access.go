package models

import (
	"fmt"
	"time"
)

// AccessDecision is the outcome of evaluating a subscription at a point in
// time. Reason is empty when access is granted unconditionally.
type AccessDecision struct {
	HasAccess bool   `json:"has_access"`
	Reason    string `json:"reason,omitempty"`
}

// EvaluateAccess decides whether the owning account has access right now.
// It only reads state; transitions are the sweeps' job.
func EvaluateAccess(sub *Subscription, now time.Time) AccessDecision {
	if sub == nil {
		return AccessDecision{
			HasAccess: false,
			Reason:    "no active subscription",
		}
	}

	switch sub.Status {
	case SubscriptionBlocked:
		return AccessDecision{
			HasAccess: false,
			Reason:    "blocked for non-payment",
		}

	case SubscriptionActive:
		return AccessDecision{
			HasAccess: true,
		}

	case SubscriptionPendingPayment:
		if sub.GracePeriodEndsAt.Valid && !now.After(sub.GracePeriodEndsAt.Time) {
			return AccessDecision{
				HasAccess: true,
				Reason: fmt.Sprintf(
					"payment pending, access granted until %s",
					sub.GracePeriodEndsAt.Time.UTC().Format("2006-01-02"),
				),
			}
		}
		return AccessDecision{
			HasAccess: false,
			Reason:    "grace period expired",
		}

	default:
		return AccessDecision{
			HasAccess: false,
			Reason:    "invalid subscription status",
		}
	}
}
