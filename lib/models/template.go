package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Template is a reusable content blueprint. Its fields are copied into a
// campaign at use time; campaigns never reference a template live.
type Template struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Title     string
	Body      string
	Icon      string
	Badge     string
	Image     string
	URL       string
	CreatedBy string
	CreatedAt time.Time
}

type Templates []*Template

func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *Template) Apply(c *Campaign) {
	c.Title = t.Title
	c.Body = t.Body
	c.Icon = t.Icon
	c.Badge = t.Badge
	c.Image = t.Image
	c.URL = t.URL
}
