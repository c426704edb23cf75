package lib

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inventerdesign/pushdeck/config"
	"github.com/inventerdesign/pushdeck/lib/delivery"
	"github.com/inventerdesign/pushdeck/lib/models"
	"github.com/inventerdesign/pushdeck/senders"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type campaignSender struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *gorm.DB
	executor *delivery.Executor
	senders  senders.Registry
}

type CampaignInput struct {
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	Icon           string   `json:"icon"`
	Badge          string   `json:"badge"`
	Image          string   `json:"image"`
	URL            string   `json:"url"`
	TemplateID     string   `json:"template_id"`
	TargetSegments []string `json:"target_segments"`
	TargetBrowsers []string `json:"target_browsers"`
	CreatedBy      string   `json:"-"`
}

// CreateCampaign copies the linked template's fields at creation time, with
// explicit input fields taking precedence. Later template edits never touch
// the campaign.
func (svc *campaignSender) CreateCampaign(ctx context.Context, input CampaignInput) (*models.Campaign, error) {
	campaign := &models.Campaign{
		Status:         models.CampaignDraft,
		TargetSegments: models.StringList(input.TargetSegments),
		TargetBrowsers: models.StringList(input.TargetBrowsers),
		CreatedBy:      input.CreatedBy,
	}

	if input.TemplateID != "" {
		tmpl := &models.Template{}
		tx := svc.db.WithContext(ctx).Where("id = ?", input.TemplateID).First(tmpl)
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		} else if tx.Error != nil {
			return nil, tx.Error
		}
		tmpl.Apply(campaign)
	}

	applyContent(campaign, input)
	if campaign.Title == "" || campaign.Body == "" {
		return nil, errors.New("campaign title and body are required")
	}

	if err := svc.db.WithContext(ctx).Create(campaign).Error; err != nil {
		return nil, err
	}
	svc.log.Sugar().Infof("Created campaign %s (%s)", campaign.ID, campaign.Title)
	return campaign, nil
}

func applyContent(campaign *models.Campaign, input CampaignInput) {
	if input.Title != "" {
		campaign.Title = input.Title
	}
	if input.Body != "" {
		campaign.Body = input.Body
	}
	if input.Icon != "" {
		campaign.Icon = input.Icon
	}
	if input.Badge != "" {
		campaign.Badge = input.Badge
	}
	if input.Image != "" {
		campaign.Image = input.Image
	}
	if input.URL != "" {
		campaign.URL = input.URL
	}
}

func (svc *campaignSender) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	tx := svc.db.WithContext(ctx).Where("id = ?", id).First(campaign)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, ErrCampaignNotFound
	} else if tx.Error != nil {
		return nil, tx.Error
	}
	return campaign, nil
}

func (svc *campaignSender) ListCampaigns(ctx context.Context, limit int) (models.Campaigns, error) {
	campaigns := models.Campaigns{}
	tx := svc.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

// SendCampaign runs the draft -> sending -> sent|failed lifecycle. The
// transition out of draft is a conditional update, so concurrent duplicate
// send requests lose the race and get ErrAlreadySent.
func (svc *campaignSender) SendCampaign(ctx context.Context, id string) (*delivery.BatchResult, error) {
	campaign, err := svc.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	tx := svc.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, models.CampaignDraft).
		Update("status", models.CampaignSending)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, ErrAlreadySent
	}

	subs, err := svc.eligibleSubscribers(ctx, campaign)
	if err != nil {
		svc.finalize(ctx, id, models.CampaignFailed, &delivery.BatchResult{Fatal: true})
		return nil, fmt.Errorf("failed to list eligible subscribers: %w", err)
	}

	result, execErr := svc.executor.Execute(ctx, campaign, subs)
	if result == nil {
		result = &delivery.BatchResult{Fatal: true}
	}

	status := models.CampaignSent
	if result.Fatal || execErr != nil {
		status = models.CampaignFailed
		result.Fatal = true
	}

	if err := svc.finalize(ctx, id, status, result); err != nil {
		return result, err
	}

	if status == models.CampaignFailed {
		svc.alertFailure(ctx, campaign, result, execErr)
	}
	return result, execErr
}

// eligibleSubscribers loads active subscribers and applies the campaign's
// targeting filters. Filters are binding: a non-matching subscriber is
// excluded from the send.
func (svc *campaignSender) eligibleSubscribers(ctx context.Context, campaign *models.Campaign) (models.Subscribers, error) {
	subs := models.Subscribers{}
	tx := svc.db.WithContext(ctx).Where("status = ?", models.SubscriberActive).Find(&subs)
	if err := tx.Error; err != nil {
		return nil, err
	}

	eligible := make(models.Subscribers, 0, len(subs))
	for _, sub := range subs {
		if campaign.Targets(sub) {
			eligible = append(eligible, sub)
		}
	}
	return eligible, nil
}

func (svc *campaignSender) finalize(ctx context.Context, id, status string, result *delivery.BatchResult) error {
	tx := svc.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       status,
			"sent_at":      time.Now().UTC(),
			"total_sent":   result.Sent,
			"total_failed": result.Failed,
		})
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to finalize campaign %s: %w", id, err)
	}
	svc.log.Sugar().Infow(fmt.Sprintf("Campaign %s finalized as %s", id, status),
		"sent", result.Sent, "failed", result.Failed)
	return nil
}

// ReconcileInterrupted finalizes campaigns left in the transient sending
// state by a crash, recomputing counters from the delivery records that made
// it to disk.
func (svc *campaignSender) ReconcileInterrupted(ctx context.Context) error {
	stuck := models.Campaigns{}
	tx := svc.db.WithContext(ctx).Where("status = ?", models.CampaignSending).Find(&stuck)
	if err := tx.Error; err != nil {
		return err
	}

	for _, campaign := range stuck {
		var sent, failed int64
		if err := svc.db.WithContext(ctx).
			Model(&models.Delivery{}).
			Where("campaign_id = ? AND status = ?", campaign.ID, models.DeliverySent).
			Count(&sent).Error; err != nil {
			return err
		}
		if err := svc.db.WithContext(ctx).
			Model(&models.Delivery{}).
			Where("campaign_id = ? AND status = ?", campaign.ID, models.DeliveryFailed).
			Count(&failed).Error; err != nil {
			return err
		}

		result := &delivery.BatchResult{Sent: int(sent), Failed: int(failed)}
		if err := svc.finalize(ctx, campaign.ID, models.CampaignSent, result); err != nil {
			return err
		}
		svc.log.Sugar().Infof("Reconciled interrupted campaign %s from %d delivery records", campaign.ID, sent+failed)
	}
	return nil
}

func (svc *campaignSender) alertFailure(ctx context.Context, campaign *models.Campaign, result *delivery.BatchResult, cause error) {
	if !svc.cfg.AlertsEnabled() {
		return
	}

	sender, ok := svc.senders["email"]
	if !ok {
		return
	}

	subject := fmt.Sprintf("Pushdeck: campaign %q failed", campaign.Title)
	body := fmt.Sprintf(
		"Campaign %s aborted fatally.<br>Sent: %d<br>Failed: %d<br>Cause: %v",
		campaign.ID, result.Sent, result.Failed, cause,
	)
	if _, err := sender.Send(ctx, subject, body, svc.cfg.Mailgun.AlertRecipient); err != nil {
		svc.log.Sugar().Infow("Failed to send failure alert", "err", err)
	}
}
