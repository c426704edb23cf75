package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubscriberActive       = "active"
	SubscriberUnsubscribed = "unsubscribed"
)

type Subscriber struct {
	ID         string `gorm:"primaryKey"`
	Endpoint   string `gorm:"uniqueIndex"`
	P256dh     string
	Auth       string
	Browser    string
	Device     string
	Status     string `gorm:"index"`
	Segments   StringList
	CreatedAt  time.Time
	LastActive sql.NullTime
}

type Subscribers []*Subscriber

func (s *Subscriber) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = SubscriberActive
	}
	return nil
}
