package app

import (
	"strings"
	"time"

	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/media"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
	"github.com/yungbote/coursegen-backend/internal/platform/redis"
	"github.com/yungbote/coursegen-backend/internal/platform/youtube"
	"github.com/yungbote/coursegen-backend/internal/temporalx"
)

const (
	RunModeAPI    = "api"
	RunModeWorker = "worker"
	RunModeAll    = "all"
)

type Config struct {
	ServiceName  string
	Port         string
	RunMode      string
	JWTSecretKey string
	CORSOrigins  []string

	WorkerConcurrency int
	JobMaxAttempts    int
	JobBackoff        time.Duration
	JobPollInterval   time.Duration
	JobStaleAfter     time.Duration
	JobHeartbeat      time.Duration
	PublishTxTimeout  time.Duration
	MediaConcurrency  int

	QuotaMonthlyLimit int

	OpenAI   openai.Config
	YouTube  youtube.Config
	Redis    redis.Config
	Temporal temporalx.Config
}

func LoadConfig() Config {
	return Config{
		ServiceName:  envutil.String("SERVICE_NAME", "coursegen-backend"),
		Port:         envutil.String("PORT", "8080"),
		RunMode:      normalizeRunMode(envutil.String("RUN_MODE", RunModeAll)),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		CORSOrigins:  splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),
		JobMaxAttempts:    envutil.Int("JOB_MAX_ATTEMPTS", 3),
		JobBackoff:        envutil.Duration("JOB_BACKOFF_SECONDS", 60*time.Second),
		JobPollInterval:   envutil.Duration("JOB_POLL_INTERVAL", time.Second),
		JobStaleAfter:     envutil.Duration("JOB_STALE_AFTER", 10*time.Minute),
		JobHeartbeat:      envutil.Duration("JOB_HEARTBEAT_INTERVAL", 15*time.Second),
		PublishTxTimeout:  envutil.Duration("PUBLISH_TX_TIMEOUT", 30*time.Second),
		MediaConcurrency:  envutil.Int("MEDIA_CONCURRENCY", media.DefaultConcurrency),

		QuotaMonthlyLimit: envutil.Int("QUOTA_DEFAULT_MONTHLY_LIMIT", 50000),

		OpenAI: openai.LoadConfig(),
		YouTube: youtube.Config{
			APIKey:  envutil.String("YOUTUBE_API_KEY", ""),
			Timeout: envutil.Duration("YOUTUBE_TIMEOUT_SECONDS", 10*time.Second),
		},
		Redis: redis.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Channel:  envutil.String("REDIS_JOB_CHANNEL", redis.DefaultJobChannel),
		},
		Temporal: temporalx.LoadConfig(),
	}
}

func (c Config) ServesAPI() bool { return c.RunMode == RunModeAPI || c.RunMode == RunModeAll }
func (c Config) RunsWorkers() bool { return c.RunMode == RunModeWorker || c.RunMode == RunModeAll }

func normalizeRunMode(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case RunModeAPI:
		return RunModeAPI
	case RunModeWorker:
		return RunModeWorker
	default:
		return RunModeAll
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
