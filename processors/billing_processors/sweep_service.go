package billing_processors

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/utils"
)

// SweepService runs the time-driven transitions: active subscriptions whose
// period ended go to pending_payment, pending ones whose grace period ran out
// go to blocked.
type SweepService struct {
	repository SubscriptionRepository
	flagStore  models.Flagger
	logger     *slog.Logger
}

func NewSweepService(repository SubscriptionRepository, flagStore models.Flagger, logger *slog.Logger) *SweepService {
	return &SweepService{
		repository: repository,
		flagStore:  flagStore,
		logger:     logger,
	}
}

// SweepExpired transitions every active subscription whose period has ended
// to pending_payment, which starts its grace window. Returns the number of
// subscriptions transitioned.
func (s *SweepService) SweepExpired(now time.Time) utils.Result[int] {
	expiredResult := s.repository.FindExpired(now)
	if expiredResult.Failure() {
		return utils.FailedResult[int](expiredResult.Error()).
			AddErrorDetails("find_expired", "Error finding expired subscriptions")
	}

	return s.transitionAll(expiredResult.Value(), models.SubscriptionPendingPayment, now)
}

// SweepBlockable transitions every pending_payment subscription whose grace
// period has run out to blocked.
func (s *SweepService) SweepBlockable(now time.Time) utils.Result[int] {
	blockableResult := s.repository.FindBlockable(now)
	if blockableResult.Failure() {
		return utils.FailedResult[int](blockableResult.Error()).
			AddErrorDetails("find_blockable", "Error finding blockable subscriptions")
	}

	return s.transitionAll(blockableResult.Value(), models.SubscriptionBlocked, now)
}

func (s *SweepService) transitionAll(subscriptions []models.Subscription, status models.SubscriptionStatus, now time.Time) utils.Result[int] {
	transitioned := 0

	for i := range subscriptions {
		sub := &subscriptions[i]

		updateResult := s.repository.UpdateSubscriptionStatus(sub.ID, status, nil, now)
		if updateResult.Failure() {
			// One stuck record must not stop the sweep; the next pass
			// picks it up again.
			s.logger.Error("error transitioning subscription",
				slog.String("subscription_id", sub.ID),
				slog.String("status", string(status)),
				slog.String("error", updateResult.ErrorMsg()),
			)
			if updateResult.IsCapturable() {
				utils.CaptureErrorResultWithExtra(updateResult, "subscription_id", sub.ID)
			}
			continue
		}

		if err := s.flagStore.Flag(sub.OwnerID); err != nil {
			s.logger.Error("error flagging access change",
				slog.String("owner_id", sub.OwnerID),
				slog.String("error", err.Error()),
			)
		}

		transitioned++
	}

	return utils.SuccessResult(transitioned)
}

// Run executes both sweeps every interval until the context is cancelled.
// The two passes run concurrently; they touch disjoint status sets.
func (s *SweepService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return ctx.Err()

		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *SweepService) sweepOnce(ctx context.Context) {
	now := time.Now()

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		result := s.SweepExpired(now)
		if result.Failure() {
			return result.Error()
		}
		if result.Value() > 0 {
			s.logger.Info("expired subscriptions moved to pending payment", slog.Int("count", result.Value()))
		}
		return nil
	})

	g.Go(func() error {
		result := s.SweepBlockable(now)
		if result.Failure() {
			return result.Error()
		}
		if result.Value() > 0 {
			s.logger.Info("grace expired subscriptions blocked", slog.Int("count", result.Value()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("sweep pass failed", slog.String("error", err.Error()))
		utils.CaptureError(err)
	}
}
