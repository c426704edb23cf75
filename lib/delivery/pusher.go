package delivery

import (
	"context"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/inventerdesign/pushdeck/config"
	"github.com/inventerdesign/pushdeck/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Pusher performs exactly one delivery attempt against a subscriber's push
// endpoint. It never touches storage.
type Pusher interface {
	Deliver(ctx context.Context, sub *models.Subscriber, payload []byte) error
}

func NewPusher(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, transport http.RoundTripper) Pusher {
	client := &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.PushTimeoutSecs) * time.Second,
	}
	return &webpushPusher{cfg: cfg, log: log, client: client}
}

type webpushPusher struct {
	cfg    *config.Config
	log    *zap.Logger
	client *http.Client
}

func (p *webpushPusher) Deliver(ctx context.Context, sub *models.Subscriber, payload []byte) error {
	if len(payload) > p.cfg.MaxPayloadBytes {
		return &Error{Kind: KindPayloadTooLarge}
	}

	ctx, cancel := context.WithTimeout(ctx, p.client.Timeout)
	defer cancel()

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      p.client,
		Subscriber:      p.cfg.VAPIDSubject,
		VAPIDPublicKey:  p.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: p.cfg.VAPIDPrivateKey,
		TTL:             p.cfg.PushTTLSecs,
	})
	if err != nil {
		return &Error{Kind: KindTransient, cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &Error{Kind: classifyStatus(resp.StatusCode), StatusCode: resp.StatusCode}
}
