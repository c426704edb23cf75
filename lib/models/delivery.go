package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// Delivery is one attempt record: exactly one per subscriber per campaign
// send. The click flag transitions false to true at most once, after
// creation.
type Delivery struct {
	ID           string `gorm:"primaryKey"`
	CampaignID   string `gorm:"index:idx_campaign_subscriber"`
	SubscriberID string `gorm:"index:idx_campaign_subscriber"`
	Status       string
	Clicked      bool
	SentAt       time.Time
	ClickedAt    sql.NullTime
}

type Deliveries []*Delivery

func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.SentAt.IsZero() {
		d.SentAt = time.Now().UTC()
	}
	return nil
}
