package adreal

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatsOptions tunes the stats fetch retry behavior.
type StatsOptions struct {
	// Timeout bounds each stats HTTP call. Default 120s; stats queries
	// are much slower than catalog pages.
	Timeout time.Duration
	// MaxAttempts is the total attempt budget for transient failures.
	// Each retry re-authenticates before reissuing the request. Default 3.
	MaxAttempts int
	// BackoffBase scales the linear backoff: delay = base * attempt.
	// Default 3s.
	BackoffBase time.Duration
}

func (o StatsOptions) withDefaults() StatsOptions {
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 3 * time.Second
	}
	return o
}

// FetchStats issues a single stats request for the query. The API is
// expected to honor the caller's limit, so there is no pagination here;
// use FetchStatsPaged when the result set can exceed the limit.
//
// Transient failures (transport errors, 5xx, 403 without "no permission"
// semantics) are retried with linear backoff, re-authenticating before
// each retry. A "no permission" 403 propagates as *PermissionError
// without retry; see FetchStatsWithProbe for the degradation path.
func (c *Client) FetchStats(ctx context.Context, q StatsQuery, opts StatsOptions) ([]StatEntry, error) {
	opts = opts.withDefaults()
	log := zap.L().With(zap.String("period_range", q.Range.String()))

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		entries, err := c.fetchStatsOnce(ctx, q, opts.Timeout, 0)
		if err == nil {
			return entries, nil
		}
		lastErr = err

		if !retryable(err) || attempt == opts.MaxAttempts {
			return nil, err
		}

		logStatsFailure(log, err, attempt, opts.MaxAttempts)

		delay := opts.BackoffBase * time.Duration(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, eris.Wrap(lastErr, "adreal: stats fetch canceled")
		case <-timer.C:
		}

		if err := c.Login(ctx); err != nil {
			return nil, eris.Wrap(err, "adreal: re-login before stats retry")
		}
	}

	return nil, lastErr
}

// logStatsFailure dumps response diagnostics for a failed stats call.
func logStatsFailure(log *zap.Logger, err error, attempt, budget int) {
	fields := []zap.Field{
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", budget),
		zap.Error(err),
	}
	var he *HTTPError
	if errors.As(err, &he) {
		fields = append(fields,
			zap.Int("status", he.StatusCode),
			zap.String("url", he.URL),
			zap.String("body", he.Body),
		)
	}
	log.Warn("stats request failed, re-authenticating and retrying", fields...)
}

// fetchStatsOnce performs one stats GET at the given offset.
func (c *Client) fetchStatsOnce(ctx context.Context, q StatsQuery, timeout time.Duration, offset int) ([]StatEntry, error) {
	entries, _, err := c.fetchStatsPage(ctx, q, timeout, offset)
	return entries, err
}

func (c *Client) fetchStatsPage(ctx context.Context, q StatsQuery, timeout time.Duration, offset int) ([]StatEntry, int, error) {
	params := url.Values{
		"limit":         {strconv.Itoa(q.Limit)},
		"brands":        {q.brandsParam()},
		"format":        {"json"},
		"metrics":       {q.metricsParam()},
		"periods_range": {q.Range.String()},
		"platforms":     {q.platformsParam()},
		"page_types":    {q.pageTypesParam()},
		"segments":      {q.segmentsParam()},
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	body, err := c.get(ctx, c.endpoint("stats")+"?"+params.Encode(), timeout)
	if err != nil {
		return nil, 0, err
	}

	var page listResponse[StatEntry]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, 0, eris.Wrap(err, "adreal: unmarshal stats")
	}
	total := page.TotalCount
	if total == 0 {
		total = len(page.Results)
	}
	return page.Results, total, nil
}

// FetchStatsPaged fetches a stats query whose result set can exceed the
// per-request limit, paginating by offset with the same bounded worker
// pool as the catalog fetchers.
func (c *Client) FetchStatsPaged(ctx context.Context, q StatsQuery, opts StatsOptions, concurrency int) ([]StatEntry, error) {
	opts = opts.withDefaults()
	if concurrency <= 0 {
		concurrency = 5
	}

	first, total, err := c.fetchStatsPage(ctx, q, opts.Timeout, 0)
	if err != nil {
		return nil, err
	}
	zap.L().Info("stats fetch started", zap.Int("total_count", total), zap.Int("limit", q.Limit))

	if total <= q.Limit {
		return first, nil
	}

	var mu sync.Mutex
	results := first

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, offset := range PageOffsets(total, q.Limit) {
		g.Go(func() error {
			page, _, err := c.fetchStatsPage(gctx, q, opts.Timeout, offset)
			if err != nil {
				return eris.Wrapf(err, "adreal: stats page at offset %d", offset)
			}
			mu.Lock()
			results = append(results, page...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
