package app

import (
	"database/sql"
	"time"

	"github.com/inventerdesign/pushdeck/lib/models"
)

type SubscriberView struct {
	ID         string   `json:"id"`
	Endpoint   string   `json:"endpoint"`
	Browser    string   `json:"browser"`
	Device     string   `json:"device"`
	Status     string   `json:"status"`
	Segments   []string `json:"segments"`
	CreatedAt  string   `json:"created_at"`
	LastActive *string  `json:"last_active"`
}

func (view SubscriberView) From(entity *models.Subscriber) SubscriberView {
	return SubscriberView{
		ID:         entity.ID,
		Endpoint:   entity.Endpoint,
		Browser:    entity.Browser,
		Device:     entity.Device,
		Status:     entity.Status,
		Segments:   entity.Segments,
		CreatedAt:  entity.CreatedAt.UTC().Format(time.RFC3339),
		LastActive: isoformat(entity.LastActive),
	}
}

type CampaignView struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	Icon           string   `json:"icon,omitempty"`
	Badge          string   `json:"badge,omitempty"`
	Image          string   `json:"image,omitempty"`
	URL            string   `json:"url,omitempty"`
	Status         string   `json:"status"`
	TargetSegments []string `json:"target_segments"`
	TargetBrowsers []string `json:"target_browsers"`
	CreatedBy      string   `json:"created_by"`
	CreatedAt      string   `json:"created_at"`
	SentAt         *string  `json:"sent_at"`
	TotalSent      int      `json:"total_sent"`
	TotalFailed    int      `json:"total_failed"`
	TotalClicked   int      `json:"total_clicked"`
}

func (view CampaignView) From(entity *models.Campaign) CampaignView {
	return CampaignView{
		ID:             entity.ID,
		Title:          entity.Title,
		Body:           entity.Body,
		Icon:           entity.Icon,
		Badge:          entity.Badge,
		Image:          entity.Image,
		URL:            entity.URL,
		Status:         entity.Status,
		TargetSegments: entity.TargetSegments,
		TargetBrowsers: entity.TargetBrowsers,
		CreatedBy:      entity.CreatedBy,
		CreatedAt:      entity.CreatedAt.UTC().Format(time.RFC3339),
		SentAt:         isoformat(entity.SentAt),
		TotalSent:      entity.TotalSent,
		TotalFailed:    entity.TotalFailed,
		TotalClicked:   entity.TotalClicked,
	}
}

type TemplateView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Icon      string `json:"icon,omitempty"`
	Badge     string `json:"badge,omitempty"`
	Image     string `json:"image,omitempty"`
	URL       string `json:"url,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (view TemplateView) From(entity *models.Template) TemplateView {
	return TemplateView{
		ID:        entity.ID,
		Name:      entity.Name,
		Title:     entity.Title,
		Body:      entity.Body,
		Icon:      entity.Icon,
		Badge:     entity.Badge,
		Image:     entity.Image,
		URL:       entity.URL,
		CreatedAt: entity.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type FeedView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	Enabled        bool     `json:"enabled"`
	AutoSend       bool     `json:"auto_send"`
	TemplateID     string   `json:"template_id,omitempty"`
	TargetSegments []string `json:"target_segments"`
	LastFetched    *string  `json:"last_fetched"`
	LastItemDate   *string  `json:"last_item_date"`
}

func (view FeedView) From(entity *models.Feed) FeedView {
	return FeedView{
		ID:             entity.ID,
		Name:           entity.Name,
		URL:            entity.URL,
		Enabled:        entity.Enabled,
		AutoSend:       entity.AutoSend,
		TemplateID:     entity.TemplateID,
		TargetSegments: entity.TargetSegments,
		LastFetched:    isoformat(entity.LastFetched),
		LastItemDate:   isoformat(entity.LastItemDate),
	}
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}

func isoformat(t sql.NullTime) *string {
	if t.Valid {
		s := t.Time.UTC().Format(time.RFC3339)
		return &s
	}
	return nil
}
