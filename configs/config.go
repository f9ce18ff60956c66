package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type R2 struct {
	AccountID    string        `env:"R2_ACCOUNT_ID"`
	AccessKey    string        `env:"R2_ACCESS_KEY"`
	SecretKey    string        `env:"R2_SECRET_KEY"`
	BucketName   string        `env:"R2_BUCKET_NAME"`
	Endpoint     string        `env:"R2_ENDPOINT"`
	CDNBaseURL   string        `env:"CDN_BASE_URL"`
	SignedURLTTL time.Duration `env:"SIGNED_URL_TTL,default=1h"`
}

// Endpoint resolution falls back to the account-scoped R2 host.
func (r R2) EndpointURL() string {
	if r.Endpoint != "" {
		return r.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.AccountID)
}

type Instagram struct {
	BaseURL    string `env:"INSTAGRAM_BASE_URL,default=https://graph.instagram.com"`
	APIVersion string `env:"INSTAGRAM_API_VERSION,default=v21.0"`
}

type Facebook struct {
	BaseURL    string `env:"FACEBOOK_BASE_URL,default=https://graph.facebook.com/"`
	APIVersion string `env:"FACEBOOK_API_VERSION,default=v21.0"`
	AppID      string `env:"FACEBOOK_APP_ID"`
	AppSecret  string `env:"FACEBOOK_APP_SECRET"`
}

type Pinterest struct {
	BaseURL      string `env:"PINTEREST_BASE_URL,default=https://api.pinterest.com/v5"`
	ClientID     string `env:"PINTEREST_CLIENT_ID"`
	ClientSecret string `env:"PINTEREST_CLIENT_SECRET"`
}

// Publish holds the thresholds shared by every platform adapter and the sweep.
type Publish struct {
	PollInterval   time.Duration `env:"PUBLISH_POLL_INTERVAL,default=5s"`
	MaxWait        time.Duration `env:"PUBLISH_MAX_WAIT,default=5m"`
	CarouselSettle time.Duration `env:"PUBLISH_CAROUSEL_SETTLE,default=3s"`
	RetryAttempts  int           `env:"PUBLISH_RETRY_ATTEMPTS,default=3"`
	RetryDelay     time.Duration `env:"PUBLISH_RETRY_DELAY,default=3s"`
	StaleAfter     time.Duration `env:"PUBLISH_STALE_AFTER,default=30m"`
	TaskTimeout    time.Duration `env:"PUBLISH_TASK_TIMEOUT,default=15m"`

	SweepBatchSize       int           `env:"SWEEP_BATCH_SIZE,default=10"`
	SweepPacing          time.Duration `env:"SWEEP_PACING,default=1s"`
	SweepSchedule        string        `env:"SWEEP_SCHEDULE,default=@every 1m"`
	TokenRefreshSchedule string        `env:"TOKEN_REFRESH_SCHEDULE,default=@every 10m"`
}

// PostBudget is the longest one publish attempt may block: a full readiness
// wait plus every retry pause. TaskTimeout must exceed it.
func (p Publish) PostBudget() time.Duration {
	return p.MaxWait + time.Duration(p.RetryAttempts)*p.RetryDelay
}

// SweepTimeout bounds a sweep task. A sweep publishes up to SweepBatchSize
// posts one after another with pacing pauses in between, and each post may
// take up to TaskTimeout.
func (p Publish) SweepTimeout() time.Duration {
	n := p.SweepBatchSize
	if n <= 0 {
		n = 1
	}
	return time.Duration(n)*p.TaskTimeout + time.Duration(n-1)*p.SweepPacing
}

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR,default=:3000"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	PostgresURI string `env:"POSTGRES_URI"`
	RedisURI    string `env:"REDIS_URI,default=localhost:6379"`
	FrontendURL string `env:"FRONTEND_URL,default=http://localhost:5173"`
	SecretKey   string `env:"SECRET_KEY"`
	CookieName  string `env:"COOKIE_NAME,default=session"`

	R2        R2
	Instagram Instagram
	Facebook  Facebook
	Pinterest Pinterest
	Publish   Publish
}

func LoadConfig(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, cfg, l); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if n := len(cfg.SecretKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("SECRET_KEY must be 16, 24 or 32 bytes, got %d", n)
	}
	if budget := cfg.Publish.PostBudget(); cfg.Publish.TaskTimeout <= budget {
		return nil, fmt.Errorf("PUBLISH_TASK_TIMEOUT (%s) must exceed PUBLISH_MAX_WAIT plus retry delays (%s)", cfg.Publish.TaskTimeout, budget)
	}
	return cfg, nil
}
