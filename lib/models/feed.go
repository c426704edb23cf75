package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feed is an RSS source polled on a schedule. LastItemDate and LastItemLink
// are the new-item watermark; LastItemLink covers feeds that publish no
// usable dates.
type Feed struct {
	ID             string `gorm:"primaryKey"`
	Name           string
	URL            string `gorm:"uniqueIndex"`
	Enabled        bool
	AutoSend       bool
	TemplateID     string
	TargetSegments StringList
	LastFetched    sql.NullTime
	LastItemDate   sql.NullTime
	LastItemLink   string
	CreatedAt      time.Time
}

type Feeds []*Feed

func (f *Feed) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
