package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env          string `env:"ENVIRONMENT"`
	ServerPort   int    `env:"SERVER_PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"pushdeck.sqlite"`

	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`

	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `env:"VAPID_SUBJECT" envDefault:"mailto:info@inventerdesignstudio.com"`

	PushTimeoutSecs  int `env:"PUSH_TIMEOUT_SECS" envDefault:"10"`
	PushTTLSecs      int `env:"PUSH_TTL_SECS" envDefault:"86400"`
	MaxPayloadBytes  int `env:"MAX_PAYLOAD_BYTES" envDefault:"4096"`
	SendConcurrency  int `env:"SEND_CONCURRENCY" envDefault:"8"`
	FeedPollInterval int `env:"FEED_POLL_INTERVAL_MINS" envDefault:"60"`

	Mailgun struct {
		Domain         string `env:"MAILGUN_DOMAIN"`
		APIKey         string `env:"MAILGUN_API_KEY"`
		SenderFrom     string `env:"MAILGUN_SENDER_FROM"`
		AlertRecipient string `env:"MAILGUN_ALERT_RECIPIENT"`
		TimeoutSecs    int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}

	log   *zap.Logger
	creds map[string]string
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		log.Sugar().Panicf("failed to parse environment: %v", err)
	}

	creds, err := cfg.parseCreds()
	if err != nil {
		if cfg.Env != "production" {
			cfg.log.Sugar().Infof("%s (credentials will be set to default in development env)", err)
			creds = map[string]string{"admin": "password"}
		} else {
			cfg.log.Sugar().Panic(err)
		}
	}
	cfg.creds = creds

	return cfg
}

func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

// AlertsEnabled reports whether operator alert emails are configured.
func (cfg *Config) AlertsEnabled() bool {
	return cfg.Mailgun.Domain != "" && cfg.Mailgun.APIKey != "" && cfg.Mailgun.AlertRecipient != ""
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar must be populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")
	if len(creds) == 0 {
		return nil, errors.New("BASIC_AUTH_CREDS envvar should be filled with comma-separated values -- user1:pass1,user2:pass2")
	}

	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}
