package adreal

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CatalogOptions tunes the paginated catalog fetch.
type CatalogOptions struct {
	// PageSize is the limit parameter sent per request. Default 100000.
	PageSize int
	// Concurrency bounds the worker pool fetching remaining pages. Default 5.
	Concurrency int
}

func (o CatalogOptions) withDefaults() CatalogOptions {
	if o.PageSize <= 0 {
		o.PageSize = 100000
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	return o
}

// FetchBrands retrieves the full brand catalog snapshot for a period
// label (e.g. "month_20250801"). Page order is not preserved; downstream
// lookups are keyed by id.
func (c *Client) FetchBrands(ctx context.Context, period string, opts CatalogOptions) ([]Brand, error) {
	return fetchCatalog[Brand](ctx, c, "brands", period, opts)
}

// FetchPublishers retrieves the full website/publisher catalog snapshot
// for a period label.
func (c *Client) FetchPublishers(ctx context.Context, period string, opts CatalogOptions) ([]Publisher, error) {
	return fetchCatalog[Publisher](ctx, c, "publishers", period, opts)
}

// fetchCatalog issues one request at offset 0 to learn total_count, then
// fetches any remaining offsets concurrently. Any page failing with a
// non-2xx status aborts the whole fetch.
func fetchCatalog[T any](ctx context.Context, c *Client, endpoint, period string, opts CatalogOptions) ([]T, error) {
	opts = opts.withDefaults()
	log := zap.L().With(zap.String("endpoint", endpoint), zap.String("period", period))

	first, total, err := fetchCatalogPage[T](ctx, c, endpoint, period, opts.PageSize, 0)
	if err != nil {
		return nil, err
	}
	log.Info("catalog fetch started", zap.Int("total_count", total))

	if total <= opts.PageSize {
		return first, nil
	}

	var mu sync.Mutex
	results := first

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for offset := opts.PageSize; offset < total; offset += opts.PageSize {
		g.Go(func() error {
			page, _, err := fetchCatalogPage[T](gctx, c, endpoint, period, opts.PageSize, offset)
			if err != nil {
				return eris.Wrapf(err, "adreal: %s page at offset %d", endpoint, offset)
			}
			log.Debug("fetched catalog page", zap.Int("offset", offset), zap.Int("rows", len(page)))
			mu.Lock()
			results = append(results, page...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("catalog fetch complete", zap.Int("rows", len(results)))
	return results, nil
}

func fetchCatalogPage[T any](ctx context.Context, c *Client, endpoint, period string, limit, offset int) ([]T, int, error) {
	params := url.Values{
		"period": {period},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	body, err := c.get(ctx, c.endpoint(endpoint)+"?"+params.Encode(), c.pageTimeout)
	if err != nil {
		return nil, 0, err
	}

	var page listResponse[T]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, 0, eris.Wrapf(err, "adreal: unmarshal %s page", endpoint)
	}
	total := page.TotalCount
	if total == 0 {
		total = len(page.Results)
	}
	return page.Results, total, nil
}

// FetchPlatforms lists the measurement platforms available to the account.
func (c *Client) FetchPlatforms(ctx context.Context) ([]Platform, error) {
	body, err := c.get(ctx, c.endpoint("platforms"), c.pageTimeout)
	if err != nil {
		return nil, err
	}
	var page listResponse[Platform]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, "adreal: unmarshal platforms")
	}
	return page.Results, nil
}

// PageOffsets returns the offsets needed to cover total rows at the given
// page size, excluding offset 0 which the caller has already fetched.
func PageOffsets(total, pageSize int) []int {
	if pageSize <= 0 || total <= pageSize {
		return nil
	}
	var offsets []int
	for o := pageSize; o < total; o += pageSize {
		offsets = append(offsets, o)
	}
	return offsets
}
