package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

var ErrNoResults = errors.New("youtube: no results")

const watchURL = "https://www.youtube.com/watch?v="

// Searcher maps a keyword to the canonical URL of its first video result.
type Searcher interface {
	FirstVideoURL(ctx context.Context, keyword string) (string, error)
}

type Config struct {
	APIKey string
	// Endpoint overrides the API base URL (tests).
	Endpoint string
	Timeout  time.Duration
}

type client struct {
	log     *logger.Logger
	svc     *yt.Service
	timeout time.Duration
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (Searcher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing YOUTUBE_API_KEY")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.Endpoint, "/")+"/"))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &client{log: log.With("service", "YouTubeClient"), svc: svc, timeout: cfg.Timeout}, nil
}

func (c *client) FirstVideoURL(ctx context.Context, keyword string) (string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", fmt.Errorf("youtube: empty keyword")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.svc.Search.List([]string{"id"}).
		Q(keyword).
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("youtube search: %w", err)
	}
	if resp.HTTPStatusCode != 0 && resp.HTTPStatusCode != http.StatusOK {
		return "", fmt.Errorf("youtube search: status %d", resp.HTTPStatusCode)
	}
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		return watchURL + item.Id.VideoId, nil
	}
	return "", ErrNoResults
}
