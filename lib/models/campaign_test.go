package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadContract(t *testing.T) {
	campaign := &Campaign{
		ID:    "c-1",
		Title: "Fresh post",
		Body:  "Read all about it",
		URL:   "https://example.com/post",
	}

	raw, err := campaign.Payload()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "c-1", decoded["campaignId"])
	assert.Equal(t, "Fresh post", decoded["title"])
	assert.Equal(t, "Read all about it", decoded["body"])
	assert.Equal(t, "https://example.com/post", decoded["url"])

	// empty optional fields stay off the wire
	assert.NotContains(t, decoded, "icon")
	assert.NotContains(t, decoded, "badge")
	assert.NotContains(t, decoded, "image")
}

func TestTargets(t *testing.T) {
	chromeNews := &Subscriber{Browser: "chrome", Segments: StringList{"news"}}
	firefoxSports := &Subscriber{Browser: "firefox", Segments: StringList{"sports"}}
	untagged := &Subscriber{Browser: "safari"}

	everyone := &Campaign{}
	assert.True(t, everyone.Targets(chromeNews))
	assert.True(t, everyone.Targets(firefoxSports))
	assert.True(t, everyone.Targets(untagged))

	newsOnly := &Campaign{TargetSegments: StringList{"news"}}
	assert.True(t, newsOnly.Targets(chromeNews))
	assert.False(t, newsOnly.Targets(firefoxSports))
	assert.False(t, newsOnly.Targets(untagged))

	chromeOnly := &Campaign{TargetBrowsers: StringList{"chrome"}}
	assert.True(t, chromeOnly.Targets(chromeNews))
	assert.False(t, chromeOnly.Targets(firefoxSports))

	both := &Campaign{TargetBrowsers: StringList{"chrome", "firefox"}, TargetSegments: StringList{"sports"}}
	assert.False(t, both.Targets(chromeNews))
	assert.True(t, both.Targets(firefoxSports))
}

func TestTemplateApplyCopies(t *testing.T) {
	tmpl := &Template{Title: "Weekly digest", Body: "The news", Icon: "/icon.png", URL: "https://example.com"}

	campaign := &Campaign{}
	tmpl.Apply(campaign)

	assert.Equal(t, "Weekly digest", campaign.Title)
	assert.Equal(t, "The news", campaign.Body)
	assert.Equal(t, "/icon.png", campaign.Icon)
	assert.Equal(t, "https://example.com", campaign.URL)

	// later template edits must not retroactively change the campaign
	tmpl.Title = "Edited"
	tmpl.Body = "Rewritten"
	assert.Equal(t, "Weekly digest", campaign.Title)
	assert.Equal(t, "The news", campaign.Body)
}
