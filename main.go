package main

import (
	"net/http"
	"os"
	"time"

	"github.com/inventerdesign/pushdeck/app"
	"github.com/inventerdesign/pushdeck/config"
	"github.com/inventerdesign/pushdeck/lib"
	"github.com/inventerdesign/pushdeck/lib/delivery"
	"github.com/inventerdesign/pushdeck/lib/poller"
	"github.com/inventerdesign/pushdeck/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(senders.NewSenderRegistry),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewTransport),
		fx.Provide(delivery.NewPusher),
		fx.Provide(delivery.NewExecutor),
		fx.Provide(lib.NewService),
		fx.Provide(poller.NewPoller),
		fx.Provide(app.NewHTTPServer),

		fx.Invoke(func(*http.Server) {}),
		fx.Invoke(func(*poller.Poller) {}),
	).Run()
}
