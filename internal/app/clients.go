package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
	"github.com/yungbote/coursegen-backend/internal/platform/redis"
	"github.com/yungbote/coursegen-backend/internal/platform/youtube"
	"github.com/yungbote/coursegen-backend/internal/temporalx"
)

// Clients are the external connections, built once at startup and closed
// by App.Close. Optional ones stay nil when not configured.
type Clients struct {
	LLM      openai.Client
	YouTube  youtube.Searcher
	JobBus   redis.JobBus
	Temporal temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if cfg.Redis.Addr != "" {
		bus, err := redis.NewJobBus(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis job bus: %w", err)
		}
		out.JobBus = bus
	} else {
		log.Info("REDIS_ADDR not set; job events are only logged")
	}

	// Temporal
	tc, err := temporalx.NewClient(log, cfg.Temporal)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	out.Temporal = tc

	if !cfg.RunsWorkers() {
		return out, nil
	}

	// OpenAI
	llm, err := openai.NewClient(log, cfg.OpenAI)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	out.LLM = llm

	// YouTube
	if cfg.YouTube.APIKey != "" {
		yt, err := youtube.NewClient(ctx, log, cfg.YouTube)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init youtube client: %w", err)
		}
		out.YouTube = yt
	} else {
		log.Info("YOUTUBE_API_KEY not set; lessons get search sentinels")
	}
	return out, nil
}

func (c Clients) Close() {
	if c.JobBus != nil {
		_ = c.JobBus.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
}
