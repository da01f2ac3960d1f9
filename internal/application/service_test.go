package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-precis/infrastructure/cache"
	"github.com/ahrav/go-precis/infrastructure/summarizer"
	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/log"
	"github.com/ahrav/go-precis/internal/ports"
	"github.com/ahrav/go-precis/internal/testutils"
)

type serviceFixture struct {
	service   *SummaryService
	backend   *summarizer.MockBackend
	collector *testutils.RecordingCollector
}

func newServiceFixture(t *testing.T, withCache bool) serviceFixture {
	t.Helper()

	registry, err := summarizer.NewRegistry(summarizer.RegistryConfig{
		Engines: []summarizer.EngineSpec{
			{Name: "bart", Type: "huggingface"},
			{Name: "gemini", Type: "google", APIKeyEnv: "GEMINI_API_KEY"},
		},
		Getenv: func(string) string { return "" },
	})
	require.NoError(t, err)

	backend := summarizer.NewMockBackend("bart")
	backend.Response = obamaSummary
	require.NoError(t, registry.Register(backend))

	collector := &testutils.RecordingCollector{}
	opts := ServiceOptions{Collector: collector, Logger: log.Nop()}
	if withCache {
		opts.Cache = cache.NewMemoryStore(time.Minute, 16)
	}

	service, err := NewSummaryService(registry, newTestEngine(t, EngineOptions{}), opts)
	require.NoError(t, err)
	return serviceFixture{service: service, backend: backend, collector: collector}
}

// TestSummaryService_Summarize verifies defaults, scoring and caching.
func TestSummaryService_Summarize(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()

	resp, err := f.service.Summarize(ctx, SummarizeRequest{Text: obamaOriginal})
	require.NoError(t, err)

	_, err = uuid.Parse(resp.ID)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, domain.StyleNeutral, resp.Style)
	assert.Equal(t, domain.DefaultMaxWords, resp.MaxWords)
	assert.Equal(t, obamaSummary, resp.Summary.Text)
	assert.Equal(t, "bart", resp.Summary.Engine)
	assert.Equal(t, 40.0, resp.Metrics.CompressionRatio)
	assert.Equal(t, 100.0, resp.Metrics.EntityRetention)
	assert.Equal(t, domain.ReferenceNotSupplied, resp.Metrics.Reference.Status)
	assert.Equal(t, domain.SummaryRequest{Text: obamaOriginal, Style: domain.StyleNeutral, MaxWords: 150}, f.backend.LastRequest)

	again, err := f.service.Summarize(ctx, SummarizeRequest{Text: obamaOriginal, Reference: ptr(obamaSummary)})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.NotEqual(t, resp.ID, again.ID)
	assert.Equal(t, domain.ReferenceScored, again.Metrics.Reference.Status)
	assert.Equal(t, 1, f.backend.GetCallCount())

	assert.Equal(t, 1.0, f.collector.Sum(ports.MetricCacheLookups, map[string]string{"result": "miss"}))
	assert.Equal(t, 1.0, f.collector.Sum(ports.MetricCacheLookups, map[string]string{"result": "hit"}))
}

// TestSummaryService_CacheKeyedByRequest verifies style and length change the key.
func TestSummaryService_CacheKeyedByRequest(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()

	for _, req := range []SummarizeRequest{
		{Text: obamaOriginal, Style: "neutral"},
		{Text: obamaOriginal, Style: "POLICY"},
		{Text: obamaOriginal, Style: "policy", MaxWords: 100},
		{Text: obamaOriginal, Engine: "bart", Style: "policy", MaxWords: 100},
	} {
		_, err := f.service.Summarize(ctx, req)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.backend.GetCallCount())
}

// TestSummaryService_Validation verifies request errors and their sentinels.
func TestSummaryService_Validation(t *testing.T) {
	f := newServiceFixture(t, false)

	tests := []struct {
		name    string
		req     SummarizeRequest
		wantErr error
	}{
		{name: "blank text", req: SummarizeRequest{Text: " \n"}, wantErr: domain.ErrInvalidInput},
		{name: "unknown style", req: SummarizeRequest{Text: "x", Style: "poetic"}, wantErr: domain.ErrUnknownStyle},
		{name: "max words below range", req: SummarizeRequest{Text: "x", MaxWords: 40}, wantErr: domain.ErrInvalidInput},
		{name: "max words above range", req: SummarizeRequest{Text: "x", MaxWords: 510}, wantErr: domain.ErrInvalidInput},
		{name: "max words off step", req: SummarizeRequest{Text: "x", MaxWords: 155}, wantErr: domain.ErrInvalidInput},
		{name: "unknown engine", req: SummarizeRequest{Text: "x", Engine: "gpt"}, wantErr: domain.ErrUnknownEngine},
		{name: "engine without key", req: SummarizeRequest{Text: "x", Engine: "gemini"}, wantErr: ports.ErrAuthenticationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Summarize(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, f.backend.GetCallCount())
}

// TestSummaryService_BackendError verifies backend failures propagate and are not cached.
func TestSummaryService_BackendError(t *testing.T) {
	f := newServiceFixture(t, true)
	f.backend.Error = ports.ErrRateLimited

	_, err := f.service.Summarize(context.Background(), SummarizeRequest{Text: obamaOriginal})
	require.ErrorIs(t, err, ports.ErrRateLimited)

	f.backend.Error = nil
	resp, err := f.service.Summarize(context.Background(), SummarizeRequest{Text: obamaOriginal})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, 2, f.backend.GetCallCount())
}

// TestSummaryService_CollapsesConcurrentRequests verifies identical in-flight
// requests share one backend call.
func TestSummaryService_CollapsesConcurrentRequests(t *testing.T) {
	f := newServiceFixture(t, false)
	f.backend.ResponseDelay = 50 * time.Millisecond

	const n = 8
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.service.Summarize(context.Background(), SummarizeRequest{Text: obamaOriginal})
			assert.NoError(t, err)
			assert.Equal(t, obamaSummary, resp.Summary.Text)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.backend.GetCallCount())
}

// TestSummaryService_CallerCancellation verifies a caller stops waiting when its context ends.
func TestSummaryService_CallerCancellation(t *testing.T) {
	f := newServiceFixture(t, false)
	f.backend.ResponseDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.service.Summarize(ctx, SummarizeRequest{Text: obamaOriginal})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

// TestNewSummaryService verifies construction defaults and failures.
func TestNewSummaryService(t *testing.T) {
	engine := newTestEngine(t, EngineOptions{})
	registry, err := summarizer.NewRegistry(summarizer.RegistryConfig{
		Engines: []summarizer.EngineSpec{{Name: "bart", Type: "huggingface"}},
	})
	require.NoError(t, err)

	_, err = NewSummaryService(nil, engine, ServiceOptions{})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewSummaryService(registry, engine, ServiceOptions{DefaultStyle: "poetic"})
	require.ErrorIs(t, err, domain.ErrUnknownStyle)

	svc, err := NewSummaryService(registry, engine, ServiceOptions{DefaultStyle: "Concise"})
	require.NoError(t, err)
	assert.Equal(t, domain.StyleConcise, svc.opts.DefaultStyle)
	assert.Equal(t, domain.DefaultMaxWords, svc.opts.DefaultMaxWords)
}

// TestCacheKey verifies every component of the request changes the key.
func TestCacheKey(t *testing.T) {
	base := domain.SummaryRequest{Text: "t", Style: domain.StyleNeutral, MaxWords: 150}
	key := CacheKey("e", "m", base)
	assert.Len(t, key, 64)
	assert.Equal(t, key, CacheKey("e", "m", base))

	variants := []string{
		CacheKey("e2", "m", base),
		CacheKey("e", "m2", base),
		CacheKey("e", "m", domain.SummaryRequest{Text: "t", Style: domain.StylePolicy, MaxWords: 150}),
		CacheKey("e", "m", domain.SummaryRequest{Text: "t", Style: domain.StyleNeutral, MaxWords: 160}),
		CacheKey("e", "m", domain.SummaryRequest{Text: "t2", Style: domain.StyleNeutral, MaxWords: 150}),
	}
	for _, v := range variants {
		assert.NotEqual(t, key, v)
	}
}
