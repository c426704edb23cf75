package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/inventerdesign/pushdeck/lib"
	"github.com/inventerdesign/pushdeck/lib/models"
	"github.com/mmcdole/gofeed"
)

func (p *Poller) pollFeeds(ctx context.Context, tickTime time.Time) {
	feeds := models.Feeds{}
	tx := p.db.WithContext(ctx).Where("enabled = ?", true).Find(&feeds)
	if err := tx.Error; err != nil {
		// Storage outage: abandon the whole tick until the next scheduled run.
		p.log.Sugar().Errorw("Feed tick aborted", "err", err)
		return
	}

	var errored int
	for _, feed := range feeds {
		if err := p.pollFeed(ctx, feed, tickTime); err != nil {
			errored++
			p.log.Sugar().Warnf("Feed %s (%s) errored: %v", feed.ID, feed.URL, err)
		}
	}

	elapsed := time.Now().UTC().Sub(tickTime)
	p.log.Sugar().Infow(fmt.Sprintf("Polled %d feeds", len(feeds)),
		"errored", errored, "elapsed_msecs", int(elapsed.Milliseconds()))
}

func (p *Poller) pollFeed(ctx context.Context, feed *models.Feed, tickTime time.Time) error {
	doc, fetchErr := p.fetchFeed(ctx, feed.URL)

	// The attempt is recorded even when the fetch fails, so a broken feed
	// stays distinguishable from an idle one.
	tx := p.db.WithContext(ctx).
		Model(&models.Feed{}).
		Where("id = ?", feed.ID).
		UpdateColumn("last_fetched", tickTime)
	if err := tx.Error; err != nil {
		return err
	}
	if fetchErr != nil {
		return fetchErr
	}

	newest := newestItem(doc.Items, feed)
	if newest == nil {
		return nil
	}

	// Advance the watermark before sending: ticks are at-least-once, and a
	// re-run must not produce a second campaign for the same item.
	updates := map[string]any{"last_item_link": newest.Link}
	if newest.PublishedParsed != nil {
		updates["last_item_date"] = newest.PublishedParsed.UTC()
	}
	tx = p.db.WithContext(ctx).
		Model(&models.Feed{}).
		Where("id = ?", feed.ID).
		Updates(updates)
	if err := tx.Error; err != nil {
		return err
	}

	if !feed.AutoSend {
		return nil
	}
	return p.autoSend(ctx, feed, newest)
}

func (p *Poller) fetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	var body string
	err := requests.URL(url).
		Transport(p.transport).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	doc, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return doc, nil
}

// newestItem returns the most recent item strictly newer than the feed's
// watermark, or nil when nothing is new. Feeds that publish no dates degrade
// to comparing the top item's link against the last one seen.
func newestItem(items []*gofeed.Item, feed *models.Feed) *gofeed.Item {
	var newest *gofeed.Item
	dated := false
	for _, item := range items {
		if item == nil || item.PublishedParsed == nil {
			continue
		}
		dated = true
		if feed.LastItemDate.Valid && !item.PublishedParsed.After(feed.LastItemDate.Time) {
			continue
		}
		if newest == nil || item.PublishedParsed.After(*newest.PublishedParsed) {
			newest = item
		}
	}
	if newest != nil || dated {
		return newest
	}

	if len(items) == 0 || items[0] == nil || items[0].Link == feed.LastItemLink {
		return nil
	}
	return items[0]
}

// autoSend collapses all of a tick's new items into a single campaign built
// from the newest one, then dispatches it through the campaign lifecycle.
func (p *Poller) autoSend(ctx context.Context, feed *models.Feed, item *gofeed.Item) error {
	input := lib.CampaignInput{
		Title:          item.Title,
		URL:            item.Link,
		TemplateID:     feed.TemplateID,
		TargetSegments: feed.TargetSegments,
		CreatedBy:      "feed:" + feed.ID,
	}
	if feed.TemplateID == "" {
		input.Body = itemSummary(item)
	}
	if img := lib.ExtractImageURL(item.Content); img != "" {
		input.Image = img
	} else if img := lib.ExtractImageURL(item.Description); img != "" {
		input.Image = img
	}

	campaign, err := p.svc.CreateCampaign(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create campaign for feed %s: %w", feed.ID, err)
	}

	result, err := p.svc.SendCampaign(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to send campaign %s for feed %s: %w", campaign.ID, feed.ID, err)
	}

	p.log.Sugar().Infow(fmt.Sprintf("Auto-sent campaign %s for feed %s", campaign.ID, feed.ID),
		"item", item.Link, "sent", result.Sent, "failed", result.Failed)
	return nil
}

func itemSummary(item *gofeed.Item) string {
	summary := item.Description
	if summary == "" {
		summary = item.Title
	}
	if len(summary) > 200 {
		summary = summary[:200]
	}
	return summary
}
