package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CampaignDraft   = "draft"
	CampaignSending = "sending"
	CampaignSent    = "sent"
	CampaignFailed  = "failed"
)

type Campaign struct {
	ID             string `gorm:"primaryKey"`
	Title          string
	Body           string
	Icon           string
	Badge          string
	Image          string
	URL            string
	Status         string `gorm:"index"`
	TargetSegments StringList
	TargetBrowsers StringList
	CreatedBy      string
	CreatedAt      time.Time
	SentAt         sql.NullTime
	TotalSent      int
	TotalFailed    int
	TotalClicked   int
}

type Campaigns []*Campaign

func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = CampaignDraft
	}
	return nil
}

// PushPayload is the wire contract consumed by the browser's service worker.
// CampaignID is mandatory so the notification-click handler can report back
// which campaign to credit.
type PushPayload struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Icon       string `json:"icon,omitempty"`
	Badge      string `json:"badge,omitempty"`
	Image      string `json:"image,omitempty"`
	URL        string `json:"url,omitempty"`
	CampaignID string `json:"campaignId"`
}

func (c *Campaign) Payload() ([]byte, error) {
	return json.Marshal(PushPayload{
		Title:      c.Title,
		Body:       c.Body,
		Icon:       c.Icon,
		Badge:      c.Badge,
		Image:      c.Image,
		URL:        c.URL,
		CampaignID: c.ID,
	})
}

// Targets reports whether the subscriber falls inside the campaign's
// targeting filters. Empty filters mean "everyone".
func (c *Campaign) Targets(sub *Subscriber) bool {
	if len(c.TargetBrowsers) > 0 && !c.TargetBrowsers.Contains(sub.Browser) {
		return false
	}
	if len(c.TargetSegments) > 0 && !sub.Segments.ContainsAny(c.TargetSegments) {
		return false
	}
	return true
}
