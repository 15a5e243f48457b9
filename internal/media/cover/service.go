package cover

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/metrics"
	"github.com/shareboard/shareboard/internal/ratelimit"
)

const (
	// maxCoverSize limits download size to prevent memory exhaustion.
	maxCoverSize = 10 * 1024 * 1024

	defaultTimeout = 15 * time.Second

	// maxConcurrent bounds downloads for one page of placeholders.
	maxConcurrent = 4
)

// Options configures a Service.
type Options struct {
	RatePerSecond float64 // per cover host; 0 disables throttling
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Service downloads covers and computes their placeholders. Results are kept
// in Storage keyed by work id and recomputed when the cover URL changes.
type Service struct {
	client  *http.Client
	timeout time.Duration
	storage *Storage
	limiter *ratelimit.KeyedRateLimiter
	metrics *metrics.Metrics
	logger  *slog.Logger
	group   singleflight.Group
}

// NewService creates a Service.
func NewService(storage *Storage, opts Options, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	var limiter *ratelimit.KeyedRateLimiter
	if opts.RatePerSecond > 0 {
		limiter = ratelimit.New(opts.RatePerSecond, max(1, int(opts.RatePerSecond)))
	}

	return &Service{
		client:  opts.HTTPClient,
		timeout: opts.Timeout,
		storage: storage,
		limiter: limiter,
		metrics: m,
		logger:  logger,
	}
}

// Close stops the host limiter.
func (s *Service) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Placeholder returns the placeholder for a work's cover, downloading and
// encoding it on first use.
func (s *Service) Placeholder(ctx context.Context, workID, coverURL string) (*Placeholder, error) {
	if coverURL == "" {
		return nil, domainerrors.NotFound("work has no cover")
	}

	cached, err := s.storage.Get(workID)
	if err != nil {
		s.logger.Warn("failed to read cached placeholder",
			slog.String("work_id", workID),
			slog.String("error", err.Error()))
	}
	if cached != nil && cached.Source == coverURL {
		s.metrics.CoverPlaceholder("hit")
		return cached, nil
	}

	v, err, _ := s.group.Do(workID+"\x00"+coverURL, func() (any, error) {
		return s.compute(ctx, workID, coverURL)
	})
	if err != nil {
		s.metrics.CoverPlaceholder("error")
		return nil, err
	}
	s.metrics.CoverPlaceholder("computed")
	return v.(*Placeholder), nil
}

// Placeholders computes placeholders for works concurrently, keyed by work id.
// Works without a cover or whose cover cannot be fetched are left out.
func (s *Service) Placeholders(ctx context.Context, works []*domain.Work) map[string]*Placeholder {
	out := make(map[string]*Placeholder, len(works))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for _, w := range works {
		if w == nil || w.CoverURL == "" {
			continue
		}
		g.Go(func() error {
			p, err := s.Placeholder(gctx, w.ID, w.CoverURL)
			if err != nil {
				s.logger.Debug("cover placeholder unavailable",
					slog.String("work_id", w.ID),
					slog.String("error", err.Error()))
				return nil
			}
			mu.Lock()
			out[w.ID] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (s *Service) compute(ctx context.Context, workID, coverURL string) (*Placeholder, error) {
	u, err := url.Parse(coverURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, domainerrors.Validationf("invalid cover URL %q", coverURL)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, u.Host); err != nil {
			return nil, fmt.Errorf("wait for %s: %w", u.Host, err)
		}
	}

	data, err := s.download(ctx, coverURL)
	if err != nil {
		return nil, err
	}

	p, err := Encode(data)
	if err != nil {
		return nil, err
	}
	p.Source = coverURL

	if err := s.storage.Save(workID, p); err != nil {
		s.logger.Warn("failed to cache placeholder",
			slog.String("work_id", workID),
			slog.String("error", err.Error()))
	}

	s.logger.Debug("computed cover placeholder",
		slog.String("work_id", workID),
		slog.Int("bytes", len(data)),
		slog.Int("width", p.Width),
		slog.Int("height", p.Height))
	return p, nil
}

func (s *Service) download(ctx context.Context, coverURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize+1))
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if len(data) > maxCoverSize {
		return nil, fmt.Errorf("cover exceeds %d bytes", maxCoverSize)
	}
	return data, nil
}
