package lib

import (
	"context"
	"time"

	"github.com/inventerdesign/pushdeck/lib/models"
	"gorm.io/gorm"
)

// RecordClick credits one click to the campaign. The increment happens at the
// storage layer so concurrent clicks never lose updates. An unknown campaign
// id is a silent no-op: the caller is a notification-click handler running in
// a disconnected browser context and cannot react to errors.
func (svc *Service) RecordClick(ctx context.Context, campaignID string) error {
	tx := svc.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		UpdateColumn("total_clicked", gorm.Expr("total_clicked + ?", 1))
	if err := tx.Error; err != nil {
		return err
	}
	if tx.RowsAffected == 0 {
		return nil
	}

	svc.flagDeliveryClicked(ctx, campaignID)
	return nil
}

// flagDeliveryClicked marks the oldest unclicked delivery record of the
// campaign. Best-effort: the campaign counter is the source of truth.
func (svc *Service) flagDeliveryClicked(ctx context.Context, campaignID string) {
	oldest := svc.db.
		Model(&models.Delivery{}).
		Select("id").
		Where("campaign_id = ? AND clicked = ?", campaignID, false).
		Order("sent_at asc").
		Limit(1)

	tx := svc.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id IN (?)", oldest).
		Updates(map[string]any{
			"clicked":    true,
			"clicked_at": time.Now().UTC(),
		})
	if err := tx.Error; err != nil {
		svc.log.Sugar().Infow("Failed to flag delivery click", "campaign_id", campaignID, "err", err)
	}
}
