package delivery

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/inventerdesign/pushdeck/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Subscriber{}, &models.Campaign{}, &models.Delivery{}))
	return db
}

// stubPusher fails endpoints by suffix so tests can mix outcomes in one
// batch.
type stubPusher struct {
	outcomes map[string]error
	calls    int
}

func (p *stubPusher) Deliver(ctx context.Context, sub *models.Subscriber, payload []byte) error {
	p.calls++
	return p.outcomes[sub.Endpoint]
}

func seedSubscribers(t *testing.T, db *gorm.DB, endpoints ...string) models.Subscribers {
	t.Helper()
	subs := models.Subscribers{}
	for _, endpoint := range endpoints {
		sub := &models.Subscriber{Endpoint: endpoint, P256dh: "k", Auth: "a", Status: models.SubscriberActive}
		require.NoError(t, db.Create(sub).Error)
		subs = append(subs, sub)
	}
	return subs
}

func newTestExecutor(db *gorm.DB, pusher Pusher, concurrency int) *Executor {
	return &Executor{db: db, log: zap.NewNop(), pusher: pusher, concurrency: concurrency}
}

func TestExecuteAllDelivered(t *testing.T) {
	db := newTestDB(t)
	subs := seedSubscribers(t, db, "https://push/1", "https://push/2", "https://push/3")
	campaign := &models.Campaign{Title: "t", Body: "b"}
	require.NoError(t, db.Create(campaign).Error)

	x := newTestExecutor(db, &stubPusher{}, 2)
	result, err := x.Execute(context.Background(), campaign, subs)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.False(t, result.Fatal)

	var count int64
	db.Model(&models.Delivery{}).Where("campaign_id = ?", campaign.ID).Count(&count)
	assert.EqualValues(t, 3, count)
}

func TestExecutePartialFailure(t *testing.T) {
	db := newTestDB(t)
	subs := seedSubscribers(t, db, "https://push/ok", "https://push/flaky")
	campaign := &models.Campaign{Title: "t", Body: "b"}
	require.NoError(t, db.Create(campaign).Error)

	pusher := &stubPusher{outcomes: map[string]error{
		"https://push/flaky": &Error{Kind: KindTransient, StatusCode: 503},
	}}
	x := newTestExecutor(db, pusher, 2)

	result, err := x.Execute(context.Background(), campaign, subs)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Fatal)

	var failed int64
	db.Model(&models.Delivery{}).
		Where("campaign_id = ? AND status = ?", campaign.ID, models.DeliveryFailed).
		Count(&failed)
	assert.EqualValues(t, 1, failed)

	// transient failures leave the subscriber untouched
	flaky := &models.Subscriber{}
	require.NoError(t, db.Where("endpoint = ?", "https://push/flaky").First(flaky).Error)
	assert.Equal(t, models.SubscriberActive, flaky.Status)
}

func TestExecuteEndpointGoneDeactivates(t *testing.T) {
	db := newTestDB(t)
	subs := seedSubscribers(t, db, "https://push/live", "https://push/gone")
	campaign := &models.Campaign{Title: "t", Body: "b"}
	require.NoError(t, db.Create(campaign).Error)

	pusher := &stubPusher{outcomes: map[string]error{
		"https://push/gone": &Error{Kind: KindEndpointGone, StatusCode: 410},
	}}
	x := newTestExecutor(db, pusher, 2)

	result, err := x.Execute(context.Background(), campaign, subs)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)

	gone := &models.Subscriber{}
	require.NoError(t, db.Where("endpoint = ?", "https://push/gone").First(gone).Error)
	assert.Equal(t, models.SubscriberUnsubscribed, gone.Status)
}

func TestExecuteUnauthorizedAbortsBatch(t *testing.T) {
	db := newTestDB(t)
	subs := seedSubscribers(t, db, "https://push/1", "https://push/2", "https://push/3", "https://push/4")
	campaign := &models.Campaign{Title: "t", Body: "b"}
	require.NoError(t, db.Create(campaign).Error)

	pusher := &stubPusher{outcomes: map[string]error{
		"https://push/2": &Error{Kind: KindUnauthorized, StatusCode: 401},
	}}
	// concurrency 1 makes the abort point deterministic
	x := newTestExecutor(db, pusher, 1)

	result, err := x.Execute(context.Background(), campaign, subs)
	require.NoError(t, err)

	assert.True(t, result.Fatal)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, pusher.calls)

	// one record per processed subscriber, none for the aborted remainder
	var count int64
	db.Model(&models.Delivery{}).Where("campaign_id = ?", campaign.ID).Count(&count)
	assert.EqualValues(t, 2, count)
}
