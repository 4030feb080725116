package catalog

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"linvo/internal/retry"
)

// maxSearchResults is the largest page search.list accepts.
const maxSearchResults = 50

// Config configures the Data API client.
type Config struct {
	// APIKey is the Data API credential.
	APIKey string
	// Endpoint overrides the API base URL (tests, proxies).
	Endpoint string
	// HTTPClient overrides the HTTP client. The API key is then sent as a
	// query parameter on every call.
	HTTPClient *http.Client
	// Timeout bounds each request attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
	// RequestsPerSecond paces outgoing calls. Zero disables pacing.
	RequestsPerSecond float64
	// DailyQuota and QuotaReserve drive the quota estimate.
	DailyQuota   int
	QuotaReserve int
	// FetchDurations adds a videos.list call per listing to fill durations.
	FetchDurations bool
	// BreakerThreshold consecutive transient failures open the circuit for
	// BreakerCooldown. Zero values use the defaults.
	BreakerThreshold int
	BreakerCooldown  time.Duration
	// Retry configures transport-level retries.
	Retry retry.Config
}

// DefaultConfig returns defaults suitable for interactive use.
func DefaultConfig() Config {
	return Config{
		Timeout:           15 * time.Second,
		RequestsPerSecond: 5,
		DailyQuota:        DefaultDailyQuota,
		Retry:             retry.DefaultConfig(),
	}
}

// APIClient implements Client on top of the YouTube Data API v3.
type APIClient struct {
	service  *youtube.Service
	cfg      Config
	callOpts []googleapi.CallOption
	limiter  *rate.Limiter
	quota    *quotaTracker
	breaker  *breaker
	log      *log.Helper
}

var _ Client = (*APIClient)(nil)

// NewAPIClient creates a Data API client.
func NewAPIClient(ctx context.Context, cfg Config, logger log.Logger) (*APIClient, error) {
	if cfg.APIKey == "" && cfg.HTTPClient == nil {
		return nil, fmt.Errorf("catalog: api key required")
	}

	var opts []option.ClientOption
	var callOpts []googleapi.CallOption
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
		if cfg.APIKey != "" {
			callOpts = append(callOpts, googleapi.QueryParameter("key", cfg.APIKey))
		}
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("catalog: create youtube service: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	helper := log.NewHelper(log.With(logger, "module", "catalog"))
	return &APIClient{
		service:  service,
		cfg:      cfg,
		callOpts: callOpts,
		limiter:  limiter,
		quota:    newQuotaTracker(cfg.DailyQuota, cfg.QuotaReserve, helper),
		breaker:  newBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		log:      helper,
	}, nil
}

// ResolveChannel looks up a channel by ID, or by handle when identifier
// starts with "@".
func (c *APIClient) ResolveChannel(ctx context.Context, identifier string) (*ChannelInfo, error) {
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrNotFound)
	}

	var info *ChannelInfo
	err := c.call(ctx, "channels.list", costChannelsList, func(ctx context.Context) error {
		call := c.service.Channels.List([]string{"snippet"}).Context(ctx)
		if IsHandle(identifier) {
			call = call.ForHandle(identifier)
		} else {
			call = call.Id(identifier)
		}

		resp, err := call.Do(c.callOpts...)
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 || resp.Items[0].Id == "" {
			return retry.Permanent(fmt.Errorf("%w: %s", ErrNotFound, identifier))
		}

		ch := resp.Items[0]
		info = &ChannelInfo{ChannelID: ch.Id}
		if ch.Snippet != nil {
			info.Title = ch.Snippet.Title
			if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.Default != nil {
				info.ThumbnailURL = ch.Snippet.Thumbnails.Default.Url
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ListRecentVideos lists the newest uploads of a channel in the order the
// API reports them (publish date, newest first).
func (c *APIClient) ListRecentVideos(ctx context.Context, channelID string, limit int) ([]VideoInfo, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > maxSearchResults {
		limit = maxSearchResults
	}

	var videos []VideoInfo
	err := c.call(ctx, "search.list", costSearchList, func(ctx context.Context) error {
		resp, err := c.service.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			Order("date").
			Type("video").
			MaxResults(int64(limit)).
			Context(ctx).
			Do(c.callOpts...)
		if err != nil {
			return err
		}

		videos = make([]VideoInfo, 0, len(resp.Items))
		for _, item := range resp.Items {
			if item.Id == nil || item.Id.VideoId == "" {
				continue
			}
			v := VideoInfo{VideoID: item.Id.VideoId}
			if item.Snippet != nil {
				// search.list returns HTML-escaped titles
				v.Title = html.UnescapeString(item.Snippet.Title)
				v.ChannelTitle = html.UnescapeString(item.Snippet.ChannelTitle)
				if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
					v.PublishedAt = t
				}
				if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.Medium != nil {
					v.ThumbnailURL = item.Snippet.Thumbnails.Medium.Url
				}
			}
			videos = append(videos, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.cfg.FetchDurations && len(videos) > 0 {
		if err := c.fillDurations(ctx, videos); err != nil {
			c.log.Warnw("msg", "failed to fetch video durations", "channel", channelID, "err", err)
		}
	}
	return videos, nil
}

// fillDurations sets Duration on videos from videos.list contentDetails.
func (c *APIClient) fillDurations(ctx context.Context, videos []VideoInfo) error {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.VideoID
	}

	durations := make(map[string]time.Duration, len(ids))
	err := c.call(ctx, "videos.list", costVideosList, func(ctx context.Context) error {
		resp, err := c.service.Videos.List([]string{"contentDetails"}).
			Id(ids...).
			Context(ctx).
			Do(c.callOpts...)
		if err != nil {
			return err
		}
		for _, item := range resp.Items {
			if item.ContentDetails == nil {
				continue
			}
			if d, err := ParseISODuration(item.ContentDetails.Duration); err == nil {
				durations[item.Id] = d
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := range videos {
		videos[i].Duration = durations[videos[i].VideoID]
	}
	return nil
}

// Quota returns the estimated remaining quota units and whether the
// client stopped issuing calls because of it.
func (c *APIClient) Quota() (remaining int, exhausted bool) {
	return c.quota.estimate()
}

// call runs one API operation with quota accounting, pacing, a per-attempt
// timeout and transport-level retries. Failures come back as *TransportError
// except for ErrNotFound.
func (c *APIClient) call(ctx context.Context, op string, units int, fn func(context.Context) error) error {
	cfg := c.cfg.Retry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.log.Warnw("msg", "retrying catalog request", "op", op, "attempt", attempt, "wait", wait, "err", err)
	}

	err := retry.Do(ctx, cfg, classify, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Op: op, Err: err}
		}
		if err := c.breaker.allow(); err != nil {
			return retry.Permanent(&TransportError{Op: op, Err: err})
		}
		if err := c.quota.reserveUnits(units); err != nil {
			c.breaker.abandon()
			return retry.Permanent(&TransportError{Op: op, Err: err})
		}

		attemptCtx := ctx
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}

		err := fn(attemptCtx)
		if err == nil || errors.Is(err, ErrNotFound) {
			c.breaker.success()
			return err
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			// only this attempt ran out of time; the caller is still waiting
			err = fmt.Errorf("%w after %s", ErrAttemptTimeout, c.cfg.Timeout)
		}
		err = toTransportError(op, err)
		switch {
		case errors.Is(err, context.Canceled):
			c.breaker.abandon()
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrAttemptTimeout), classify(err):
			c.breaker.failure()
			if c.breaker.current() == circuitOpen {
				c.log.Warnw("msg", "circuit opened", "op", op)
			}
		default:
			c.breaker.success()
		}
		return err
	})
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	// cancellation while backing off surfaces as a bare context error
	var terr *TransportError
	if !errors.As(err, &terr) {
		err = &TransportError{Op: op, Err: err}
	}
	c.log.Errorw("msg", "catalog request failed", "op", op, "err", err)
	return err
}

func toTransportError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &TransportError{Op: op, StatusCode: gerr.Code, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}

// classify retries network failures, attempt timeouts, 429 and 5xx
// responses.
func classify(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}
	var terr *TransportError
	if errors.As(err, &terr) && terr.StatusCode != 0 {
		return terr.StatusCode == http.StatusTooManyRequests || terr.StatusCode >= 500
	}
	return true
}
