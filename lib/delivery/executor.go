package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inventerdesign/pushdeck/config"
	"github.com/inventerdesign/pushdeck/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Executor fans one campaign out to its eligible subscribers. Attempts within
// a chunk run concurrently; delivery records and tallies are written on the
// calling goroutine between chunks, so each attempt is durably recorded
// before the batch result is reported.
type Executor struct {
	db     *gorm.DB
	log    *zap.Logger
	pusher Pusher

	concurrency int
}

func NewExecutor(lc fx.Lifecycle, cfg *config.Config, db *gorm.DB, log *zap.Logger, pusher Pusher) *Executor {
	concurrency := cfg.SendConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Executor{db, log, pusher, concurrency}
}

func (x *Executor) Execute(ctx context.Context, campaign *models.Campaign, subs models.Subscribers) (*BatchResult, error) {
	payload, err := campaign.Payload()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload for campaign %s: %w", campaign.ID, err)
	}

	result := &BatchResult{}
	for start := 0; start < len(subs); start += x.concurrency {
		end := start + x.concurrency
		if end > len(subs) {
			end = len(subs)
		}

		attempts := x.deliverChunk(ctx, subs[start:end], payload)
		if err := x.recordChunk(ctx, campaign, attempts, result); err != nil {
			return result, err
		}
		if result.Fatal {
			break
		}
	}

	x.log.Sugar().Infow(fmt.Sprintf("Campaign %s batch complete", campaign.ID),
		"sent", result.Sent, "failed", result.Failed, "fatal", result.Fatal)
	return result, nil
}

func (x *Executor) deliverChunk(ctx context.Context, chunk models.Subscribers, payload []byte) []attempt {
	var wg sync.WaitGroup
	attempts := make([]attempt, len(chunk))

	for i, sub := range chunk {
		i, sub := i, sub
		wg.Add(1)
		go func() {
			defer wg.Done()
			attempts[i] = attempt{sub: sub, err: x.pusher.Deliver(ctx, sub, payload)}
		}()
	}

	wg.Wait()
	return attempts
}

// recordChunk persists one delivery record per attempt and folds outcomes
// into the running tally. A storage error here is systemic and aborts the
// batch; records already written stand.
func (x *Executor) recordChunk(ctx context.Context, campaign *models.Campaign, attempts []attempt, result *BatchResult) error {
	for _, att := range attempts {
		record := &models.Delivery{
			CampaignID:   campaign.ID,
			SubscriberID: att.sub.ID,
			Status:       models.DeliverySent,
		}

		if att.err == nil {
			result.Sent++
		} else {
			record.Status = models.DeliveryFailed
			result.Failed++

			if derr, ok := AsError(att.err); ok {
				switch {
				case derr.Fatal():
					result.Fatal = true
				case derr.Kind == KindEndpointGone:
					if err := x.deactivateSubscriber(ctx, att.sub); err != nil {
						return err
					}
				}
			}
			x.log.Sugar().Infow("Delivery attempt failed",
				"campaign_id", campaign.ID, "subscriber_id", att.sub.ID, "err", att.err)
		}

		tx := x.db.WithContext(ctx).Create(record)
		if err := tx.Error; err != nil {
			return fmt.Errorf("failed to persist delivery record: %w", err)
		}
	}
	return nil
}

func (x *Executor) deactivateSubscriber(ctx context.Context, sub *models.Subscriber) error {
	tx := x.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("id = ?", sub.ID).
		Updates(map[string]any{
			"status":      models.SubscriberUnsubscribed,
			"last_active": time.Now().UTC(),
		})
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to deactivate subscriber %s: %w", sub.ID, err)
	}
	x.log.Sugar().Infof("Deactivated subscriber %s (endpoint gone)", sub.ID)
	return nil
}
