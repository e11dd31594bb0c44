package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/sync/errgroup"

	"github.com/tabgrab/tabgrab/internal/cache"
	"github.com/tabgrab/tabgrab/internal/config"
	"github.com/tabgrab/tabgrab/internal/models"
	"github.com/tabgrab/tabgrab/internal/storage"
)

// FailedTrack records a track whose fetch ultimately failed after all
// retry attempts, or whose body was not valid JSON.
type FailedTrack struct {
	Track models.ResolvedTrack
	Err   error
}

// TrackFetcher downloads resolved track payloads and persists them through
// a storage.Writer. Downloads run with bounded parallelism; a single
// track's failure never aborts the batch.
type TrackFetcher struct {
	httpClient  *http.Client
	userAgent   string
	retryPolicy retrypolicy.RetryPolicy[[]byte]
	concurrency int
	cache       cache.Cache
}

// NewTrackFetcher creates a fetcher from configuration. The HTTP client
// clones DefaultTransport to preserve its pooling and timeout settings and
// wraps it with the decompressing transport.
func NewTrackFetcher(cfg *config.Config) *TrackFetcher {
	timeout := cfg.Duration(cfg.ClientTimeout, 30*time.Second)

	baseTransport := http.DefaultTransport.(*http.Transport).Clone()
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: newCompressionTransport(baseTransport),
	}

	maxAttempts := cfg.Fetch.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	retryDelay := cfg.Duration(cfg.Fetch.RetryDelay, 500*time.Millisecond)

	retryPolicy := retrypolicy.Builder[[]byte]().
		WithMaxAttempts(maxAttempts).
		WithDelay(retryDelay).
		OnRetry(func(e failsafe.ExecutionEvent[[]byte]) {
			logger := config.GetLogger()
			logger.Debug().
				Err(e.LastError()).
				Int("attempt", e.Attempts()).
				Msg("Retrying track fetch")
		}).
		Build()

	concurrency := cfg.Fetch.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	cacheSize := cfg.Fetch.CacheSize
	if cacheSize < 1 {
		cacheSize = 64
	}
	cacheTTL := cfg.Duration(cfg.Fetch.CacheTTL, time.Hour)

	return &TrackFetcher{
		httpClient:  httpClient,
		userAgent:   cfg.UserAgent,
		retryPolicy: retryPolicy,
		concurrency: concurrency,
		cache:       cache.NewMemory(cacheSize, cacheTTL, nil),
	}
}

// FetchAll downloads every resolved track, writing each validated payload
// through the writer as soon as it lands. Failed tracks are returned in
// descriptor-index order; the caller decides how to report them.
func (f *TrackFetcher) FetchAll(ctx context.Context, tracks []models.ResolvedTrack, writer *storage.Writer) []FailedTrack {
	logger := config.GetLogger()

	var (
		mu     sync.Mutex
		failed []FailedTrack
	)
	record := func(track models.ResolvedTrack, err error) {
		mu.Lock()
		failed = append(failed, FailedTrack{Track: track, Err: err})
		mu.Unlock()
		logger.Warn().
			Err(err).
			Str("url", track.SourceURL).
			Str("file", track.LocalFilename).
			Msg("Track fetch failed, continuing with remaining tracks")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, track := range tracks {
		g.Go(func() error {
			body, err := f.FetchPayload(gctx, track.SourceURL)
			if err != nil {
				record(track, err)
				return nil
			}
			if err := writer.WriteTrack(track.Descriptor.Index, track.LocalFilename, body); err != nil {
				record(track, err)
			}
			return nil
		})
	}
	// Workers never return errors; Wait only observes context cancellation.
	_ = g.Wait()

	sort.Slice(failed, func(i, j int) bool {
		return failed[i].Track.Descriptor.Index < failed[j].Track.Descriptor.Index
	})
	return failed
}

// FetchPayload downloads one URL with retries and validates that the body
// is JSON. A body that downloads fine but fails to parse is a
// classification false positive and is reported as an error, not retried.
func (f *TrackFetcher) FetchPayload(ctx context.Context, url string) ([]byte, error) {
	logger := config.GetLogger()

	if cached, found := f.cache.Get(url); found {
		logger.Debug().Str("url", url).Msg("Track payload served from cache")
		return cached, nil
	}

	body, err := failsafe.NewExecutor[[]byte](f.retryPolicy).
		WithContext(ctx).
		Get(func() ([]byte, error) {
			return f.get(ctx, url)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("response from %s is not valid JSON, dropping", url)
	}

	f.cache.Set(url, body)
	return body, nil
}

func (f *TrackFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
