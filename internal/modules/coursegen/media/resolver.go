// Package media turns generated search keywords into lesson video links.
// It performs network I/O and must run before any persistence transaction
// opens.
package media

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/youtube"
)

const DefaultConcurrency = 4

// Position addresses a lesson by zero-based module and lesson index.
type Position struct {
	Module int
	Lesson int
}

type Resolver struct {
	log         *logger.Logger
	strategies  []Strategy
	concurrency int
}

// NewResolver builds the default chain. A nil searcher (no credential)
// leaves only the sentinel strategy, so no network call is ever made.
func NewResolver(baseLog *logger.Logger, searcher youtube.Searcher, concurrency int) *Resolver {
	log := baseLog.With("service", "MediaResolver")
	var chain []Strategy
	if searcher != nil {
		chain = append(chain, YouTubeStrategy{Search: searcher, Log: log})
	}
	chain = append(chain, SentinelStrategy{})
	return NewResolverWith(log, concurrency, chain...)
}

func NewResolverWith(log *logger.Logger, concurrency int, strategies ...Strategy) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Resolver{log: log, strategies: strategies, concurrency: concurrency}
}

// ResolveYouTubeURL returns a video URL or a sentinel. It returns "" only
// for an empty keyword.
func (r *Resolver) ResolveYouTubeURL(ctx context.Context, keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return ""
	}
	for _, s := range r.strategies {
		if url, ok := s.Resolve(ctx, keyword); ok {
			return url
		}
	}
	return Sentinel(keyword)
}

// Resolve looks up every keyword in parallel. Empty keywords map to nil.
// It never returns an error.
func (r *Resolver) Resolve(ctx context.Context, keywords map[Position]string) map[Position]*string {
	out := make(map[Position]*string, len(keywords))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for pos, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			mu.Lock()
			out[pos] = nil
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			url := r.ResolveYouTubeURL(gctx, kw)
			mu.Lock()
			out[pos] = &url
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resolved := 0
	for _, v := range out {
		if v != nil && !IsSentinel(*v) {
			resolved++
		}
	}
	r.log.Debug("Media resolved", "lessons", len(keywords), "videos", resolved)
	return out
}
