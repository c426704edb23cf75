package delivery

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/inventerdesign/pushdeck/config"
	"github.com/inventerdesign/pushdeck/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPusher(t *testing.T) *webpushPusher {
	t.Helper()
	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	cfg := &config.Config{
		MaxPayloadBytes: 4096,
		PushTimeoutSecs: 5,
		PushTTLSecs:     60,
		VAPIDSubject:    "mailto:ops@example.com",
		VAPIDPublicKey:  public,
		VAPIDPrivateKey: private,
	}
	return &webpushPusher{
		cfg:    cfg,
		log:    zap.NewNop(),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// newTestSubscriber fabricates a subscription with a real P-256 keypair so
// payload encryption succeeds.
func newTestSubscriber(t *testing.T, endpoint string) *models.Subscriber {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return &models.Subscriber{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
		Status:   models.SubscriberActive,
	}
}

func TestDeliverSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	pusher := newTestPusher(t)
	sub := newTestSubscriber(t, server.URL)

	err := pusher.Deliver(context.Background(), sub, []byte(`{"title":"hi"}`))
	assert.NoError(t, err)
}

func TestDeliverStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{http.StatusNotFound, KindEndpointGone},
		{http.StatusGone, KindEndpointGone},
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindUnauthorized},
		{http.StatusRequestEntityTooLarge, KindPayloadTooLarge},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		pusher := newTestPusher(t)
		sub := newTestSubscriber(t, server.URL)

		err := pusher.Deliver(context.Background(), sub, []byte(`{"title":"hi"}`))
		derr, ok := AsError(err)
		require.True(t, ok, "status %d should yield a delivery error", tc.status)
		assert.Equal(t, tc.kind, derr.Kind, "status %d", tc.status)
		assert.Equal(t, tc.status, derr.StatusCode)

		server.Close()
	}
}

func TestDeliverNetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	pusher := newTestPusher(t)
	sub := newTestSubscriber(t, server.URL)

	err := pusher.Deliver(context.Background(), sub, []byte(`{"title":"hi"}`))
	derr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransient, derr.Kind)
}

func TestDeliverOversizedPayloadSkipsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("oversized payload must be rejected before any network call")
	}))
	defer server.Close()

	pusher := newTestPusher(t)
	sub := newTestSubscriber(t, server.URL)

	payload := bytes.Repeat([]byte("x"), pusher.cfg.MaxPayloadBytes+1)
	err := pusher.Deliver(context.Background(), sub, payload)

	derr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindPayloadTooLarge, derr.Kind)
}

func TestUnauthorizedIsFatal(t *testing.T) {
	assert.True(t, (&Error{Kind: KindUnauthorized}).Fatal())
	assert.False(t, (&Error{Kind: KindTransient}).Fatal())
	assert.False(t, (&Error{Kind: KindEndpointGone}).Fatal())
	assert.False(t, (&Error{Kind: KindPayloadTooLarge}).Fatal())
}
