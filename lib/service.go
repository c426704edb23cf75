package lib

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/inventerdesign/pushdeck/config"
	"github.com/inventerdesign/pushdeck/lib/delivery"
	"github.com/inventerdesign/pushdeck/lib/models"
	"github.com/inventerdesign/pushdeck/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrFeedNotFound     = errors.New("feed not found")
	ErrAlreadySent      = errors.New("campaign is no longer in draft")
	ErrFeedExists       = errors.New("feed url already registered")
)

type Service struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry

	*registerSubscriber
	*campaignSender
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, executor *delivery.Executor, senders senders.Registry) *Service {
	svc := &Service{
		cfg, log, db, senders,
		&registerSubscriber{cfg, log, db},
		&campaignSender{cfg, log, db, executor, senders},
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.ReconcileInterrupted(ctx)
		},
	})

	return svc
}

func (svc *Service) ListSubscribers(ctx context.Context, browser string) (models.Subscribers, error) {
	subs := models.Subscribers{}
	tx := svc.db.WithContext(ctx).Order("created_at desc")
	if browser != "" && browser != "all" {
		tx = tx.Where("browser = ?", browser)
	}
	if err := tx.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (svc *Service) DeleteSubscriber(ctx context.Context, id string) error {
	return svc.db.WithContext(ctx).Delete(&models.Subscriber{}, "id = ?", id).Error
}

type OverviewStats struct {
	ActiveSubscribers int64   `json:"total_subscribers"`
	TotalSent         int64   `json:"total_sent"`
	TotalFailed       int64   `json:"total_failed"`
	TotalClicked      int64   `json:"total_clicked"`
	ClickRate         float64 `json:"click_rate"`
}

func (svc *Service) GetOverviewStats(ctx context.Context) (*OverviewStats, error) {
	stats := &OverviewStats{}

	tx := svc.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("status = ?", models.SubscriberActive).
		Count(&stats.ActiveSubscribers)
	if err := tx.Error; err != nil {
		return nil, err
	}

	var agg struct {
		Sent    int64
		Failed  int64
		Clicked int64
	}
	tx = svc.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Select("COALESCE(SUM(total_sent), 0) AS sent, COALESCE(SUM(total_failed), 0) AS failed, COALESCE(SUM(total_clicked), 0) AS clicked").
		Scan(&agg)
	if err := tx.Error; err != nil {
		return nil, err
	}

	stats.TotalSent = agg.Sent
	stats.TotalFailed = agg.Failed
	stats.TotalClicked = agg.Clicked
	if agg.Sent > 0 {
		stats.ClickRate = float64(agg.Clicked) / float64(agg.Sent) * 100
	}
	return stats, nil
}

func sqlNow() sql.NullTime {
	return sql.NullTime{Time: time.Now().UTC(), Valid: true}
}
