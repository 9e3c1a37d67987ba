// Package pipeline implements the fetch–reconcile–normalize flow: pull
// stats and dimension catalogs from AdReal, join them, and project the
// result into the warehouse schema for one reporting month.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/umsgroup/adreal-sync/internal/config"
	"github.com/umsgroup/adreal-sync/internal/warehouse"
	"github.com/umsgroup/adreal-sync/pkg/adreal"
)

// API is the slice of the AdReal client the pipeline uses. Each call to
// a Runner's factory yields a fresh session; fetchers never share one.
type API interface {
	Login(ctx context.Context) error
	FetchBrands(ctx context.Context, period string, opts adreal.CatalogOptions) ([]adreal.Brand, error)
	FetchPublishers(ctx context.Context, period string, opts adreal.CatalogOptions) ([]adreal.Publisher, error)
	FetchStats(ctx context.Context, q adreal.StatsQuery, opts adreal.StatsOptions) ([]adreal.StatEntry, error)
	FetchStatsWithProbe(ctx context.Context, q adreal.StatsQuery, opts adreal.StatsOptions) ([]adreal.StatEntry, *adreal.ProbeResult, error)
}

// Runner orchestrates one client's monthly sync.
type Runner struct {
	cfg       config.AdRealConfig
	newClient func() API
}

// NewRunner builds a Runner whose sessions authenticate with the given
// credentials against the configured market.
func NewRunner(cfg config.AdRealConfig, username, password string) *Runner {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = adreal.DefaultBaseURL
	}
	return &Runner{
		cfg: cfg,
		newClient: func() API {
			opts := []adreal.Option{
				adreal.WithBaseURL(baseURL),
				adreal.WithTimeout(time.Duration(cfg.CatalogTimeoutSecs) * time.Second),
			}
			if cfg.RateLimitPerSec > 0 {
				opts = append(opts, adreal.WithRateLimit(cfg.RateLimitPerSec, int(cfg.RateLimitPerSec)))
			}
			return adreal.NewClient(username, password, cfg.Market, opts...)
		},
	}
}

// NewRunnerWithFactory injects a session factory (for tests).
func NewRunnerWithFactory(cfg config.AdRealConfig, factory func() API) *Runner {
	return &Runner{cfg: cfg, newClient: factory}
}

// Result is the outcome of one pipeline run.
type Result struct {
	Rows []warehouse.Row
	// Forbidden lists brand ids excluded by the permission probe, if any.
	Forbidden []string
}

// Run fetches, merges, and normalizes one reporting month for a client
// profile.
func (r *Runner) Run(ctx context.Context, client config.ClientConfig, month ReportingMonth) (*Result, error) {
	merged, probeRes, err := r.FetchMerged(ctx, client, month)
	if err != nil {
		return nil, err
	}

	rows := Normalize(merged, NormalizeOptions{
		Date: month.FirstDay(),
		Schema: warehouse.Schema{
			KeepProduct:    client.KeepProduct,
			DropMediaOwner: client.DropMediaOwner,
		},
	})

	res := &Result{Rows: rows}
	if probeRes != nil {
		res.Forbidden = probeRes.Forbidden
	}

	zap.L().Info("pipeline run complete",
		zap.String("month", month.String()),
		zap.Int("merged_rows", len(merged)),
		zap.Int("warehouse_rows", len(rows)),
		zap.Strings("forbidden_brand_ids", res.Forbidden),
	)
	return res, nil
}

// FetchMerged fetches the stats stream and both dimension catalogs
// concurrently — each on its own authenticated session — and joins them
// into flat merged rows filtered to the month's period label.
func (r *Runner) FetchMerged(ctx context.Context, client config.ClientConfig, month ReportingMonth) ([]MergedRow, *adreal.ProbeResult, error) {
	log := zap.L().With(zap.String("month", month.String()))
	log.Info("fetch starting", zap.Int("brand_ids", len(client.BrandIDs)))

	catalogOpts := adreal.CatalogOptions{
		PageSize:    r.cfg.CatalogPageSize,
		Concurrency: r.cfg.Concurrency,
	}
	statsOpts := adreal.StatsOptions{
		Timeout:     time.Duration(r.cfg.StatsTimeoutSecs) * time.Second,
		MaxAttempts: r.cfg.MaxAttempts,
		BackoffBase: time.Duration(r.cfg.BackoffBaseSecs) * time.Second,
	}
	query := adreal.StatsQuery{
		BrandIDs:  client.BrandIDs,
		Metrics:   r.cfg.Metrics,
		Platforms: r.cfg.Platforms,
		PageTypes: r.cfg.PageTypes,
		Segments:  r.cfg.Segments,
		Range:     month.Range(),
		Limit:     r.cfg.StatsLimit,
	}

	var (
		brands     []adreal.Brand
		publishers []adreal.Publisher
		stats      []adreal.StatEntry
		probeRes   *adreal.ProbeResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c := r.newClient()
		if err := c.Login(gctx); err != nil {
			return eris.Wrap(err, "pipeline: brand fetcher login")
		}
		var err error
		brands, err = c.FetchBrands(gctx, month.Label(), catalogOpts)
		return err
	})
	g.Go(func() error {
		c := r.newClient()
		if err := c.Login(gctx); err != nil {
			return eris.Wrap(err, "pipeline: publisher fetcher login")
		}
		var err error
		publishers, err = c.FetchPublishers(gctx, month.Label(), catalogOpts)
		return err
	})
	g.Go(func() error {
		c := r.newClient()
		if err := c.Login(gctx); err != nil {
			return eris.Wrap(err, "pipeline: stats fetcher login")
		}
		var err error
		if client.ProbeOnForbidden {
			stats, probeRes, err = c.FetchStatsWithProbe(gctx, query, statsOpts)
		} else {
			stats, err = c.FetchStats(gctx, query, statsOpts)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	merged := Merge(stats, NewBrandCatalog(brands), NewPublisherCatalog(publishers), month.Label())
	return merged, probeRes, nil
}
