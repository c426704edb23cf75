package lib

import (
	"context"
	"errors"

	"github.com/inventerdesign/pushdeck/lib/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeedInput struct {
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	Enabled        *bool    `json:"enabled"`
	AutoSend       bool     `json:"auto_send"`
	TemplateID     string   `json:"template_id"`
	TargetSegments []string `json:"target_segments"`
}

func (svc *Service) CreateFeed(ctx context.Context, input FeedInput) (*models.Feed, error) {
	if input.Name == "" || input.URL == "" {
		return nil, errors.New("feed name and url are required")
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}
	feed := &models.Feed{
		Name:           input.Name,
		URL:            input.URL,
		Enabled:        enabled,
		AutoSend:       input.AutoSend,
		TemplateID:     input.TemplateID,
		TargetSegments: models.StringList(input.TargetSegments),
	}

	tx := svc.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(feed)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if tx.RowsAffected == 0 {
		return nil, ErrFeedExists
	}
	svc.log.Sugar().Infof("Created feed %s (%s)", feed.ID, feed.URL)
	return feed, nil
}

func (svc *Service) ListFeeds(ctx context.Context) (models.Feeds, error) {
	feeds := models.Feeds{}
	tx := svc.db.WithContext(ctx).Order("created_at desc").Find(&feeds)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return feeds, nil
}

// FeedPatch carries partial updates from the admin API; nil fields are left
// untouched.
type FeedPatch struct {
	Name           *string   `json:"name"`
	Enabled        *bool     `json:"enabled"`
	AutoSend       *bool     `json:"auto_send"`
	TemplateID     *string   `json:"template_id"`
	TargetSegments *[]string `json:"target_segments"`
}

func (svc *Service) UpdateFeed(ctx context.Context, id string, patch FeedPatch) (*models.Feed, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Enabled != nil {
		updates["enabled"] = *patch.Enabled
	}
	if patch.AutoSend != nil {
		updates["auto_send"] = *patch.AutoSend
	}
	if patch.TemplateID != nil {
		updates["template_id"] = *patch.TemplateID
	}
	if patch.TargetSegments != nil {
		updates["target_segments"] = models.StringList(*patch.TargetSegments)
	}

	if len(updates) > 0 {
		tx := svc.db.WithContext(ctx).
			Model(&models.Feed{}).
			Where("id = ?", id).
			Updates(updates)
		if err := tx.Error; err != nil {
			return nil, err
		}
		if tx.RowsAffected == 0 {
			return nil, ErrFeedNotFound
		}
	}

	feed := &models.Feed{}
	tx := svc.db.WithContext(ctx).Where("id = ?", id).First(feed)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, ErrFeedNotFound
	} else if tx.Error != nil {
		return nil, tx.Error
	}
	return feed, nil
}

func (svc *Service) DeleteFeed(ctx context.Context, id string) error {
	return svc.db.WithContext(ctx).Delete(&models.Feed{}, "id = ?", id).Error
}
