package lib

import (
	"context"
	"errors"
	"time"

	"github.com/inventerdesign/pushdeck/config"
	"github.com/inventerdesign/pushdeck/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type registerSubscriber struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

type SubscriberInput struct {
	Endpoint string   `json:"endpoint"`
	P256dh   string   `json:"p256dh"`
	Auth     string   `json:"auth"`
	Browser  string   `json:"browser"`
	Device   string   `json:"device"`
	Segments []string `json:"segments"`
}

func (in SubscriberInput) validate() error {
	if in.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if in.P256dh == "" || in.Auth == "" {
		return errors.New("p256dh and auth keys are required")
	}
	return nil
}

// RegisterSubscriber resolves a repeat subscription from the same browser to
// the existing record; the endpoint is the identity.
func (svc *registerSubscriber) RegisterSubscriber(ctx context.Context, input SubscriberInput) (*models.Subscriber, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	existing := &models.Subscriber{}
	tx := svc.db.WithContext(ctx).Where("endpoint = ?", input.Endpoint).First(existing)
	if tx.Error == nil {
		return existing, nil
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, tx.Error
	}

	sub := &models.Subscriber{
		Endpoint:   input.Endpoint,
		P256dh:     input.P256dh,
		Auth:       input.Auth,
		Browser:    input.Browser,
		Device:     input.Device,
		Status:     models.SubscriberActive,
		Segments:   models.StringList(input.Segments),
		LastActive: sqlNow(),
	}
	tx = svc.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(sub)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if tx.RowsAffected == 0 {
		// Lost a race on the unique endpoint index; the winner's row is the
		// canonical record.
		tx = svc.db.WithContext(ctx).Where("endpoint = ?", input.Endpoint).First(existing)
		if err := tx.Error; err != nil {
			return nil, err
		}
		return existing, nil
	}

	svc.log.Sugar().Infof("Registered subscriber %s (%s/%s)", sub.ID, sub.Browser, sub.Device)
	return sub, nil
}

// Unsubscribe flips the subscriber's status by endpoint. Unknown endpoints
// are a no-op.
func (svc *registerSubscriber) Unsubscribe(ctx context.Context, endpoint string) error {
	tx := svc.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("endpoint = ?", endpoint).
		Updates(map[string]any{
			"status":      models.SubscriberUnsubscribed,
			"last_active": time.Now().UTC(),
		})
	return tx.Error
}
