package media

import (
	"context"
	"strings"

	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/youtube"
)

// SentinelPrefix marks an unresolved video link.
const SentinelPrefix = "search:"

// Strategy resolves a keyword to a link. ok=false means try the next one.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, keyword string) (url string, ok bool)
}

func Sentinel(keyword string) string { return SentinelPrefix + strings.TrimSpace(keyword) }

func IsSentinel(url string) bool { return strings.HasPrefix(url, SentinelPrefix) }

// YouTubeStrategy looks up the first video result. Every failure is
// swallowed and reported as "try next".
type YouTubeStrategy struct {
	Search youtube.Searcher
	Log    *logger.Logger
}

func (s YouTubeStrategy) Name() string { return "youtube" }

func (s YouTubeStrategy) Resolve(ctx context.Context, keyword string) (string, bool) {
	if s.Search == nil {
		return "", false
	}
	url, err := s.Search.FirstVideoURL(ctx, keyword)
	if err != nil {
		if s.Log != nil {
			s.Log.Warn("Video search failed, using sentinel", "keyword", keyword, "error", err)
		}
		return "", false
	}
	return url, url != ""
}

// SentinelStrategy always succeeds.
type SentinelStrategy struct{}

func (SentinelStrategy) Name() string { return "sentinel" }

func (SentinelStrategy) Resolve(_ context.Context, keyword string) (string, bool) {
	return Sentinel(keyword), true
}
