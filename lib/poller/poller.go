package poller

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/inventerdesign/pushdeck/config"
	"github.com/inventerdesign/pushdeck/lib"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Poller runs the scheduled RSS ingestion. Each tick is a pure function of
// current store state: it can be re-run, restarted, or executed by a
// redundant process without double-sending.
type Poller struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *gorm.DB
	svc       *lib.Service
	transport http.RoundTripper

	mu          sync.Mutex
	alarmClock  *alarmClock
	tickTimeout time.Duration
}

func NewPoller(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, transport http.RoundTripper, svc *lib.Service) *Poller {
	interval := time.Duration(cfg.FeedPollInterval) * time.Minute

	p := &Poller{
		cfg:         cfg,
		log:         log,
		db:          db,
		svc:         svc,
		transport:   transport,
		alarmClock:  newAlarmClock(interval),
		tickTimeout: 5 * time.Minute,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go p.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop feed poller")
			p.Stop()
			return nil
		},
	})

	return p
}

func (p *Poller) Start(ctx context.Context) {
	c := p.alarmClock.Start(ctx)

	go func() {
		for t := range c {
			p.handleTick(t)
		}
	}()
}

func (p *Poller) Stop() {
	p.alarmClock.Stop()
	p.log.Sugar().Info("Feed poller stopped")
}

func (p *Poller) handleTick(tickTime time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.tickTimeout)
	defer cancel()

	p.pollFeeds(ctx, tickTime)
}
