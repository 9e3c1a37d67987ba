package adreal

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ProbeFunc reports whether the account may query the given brand ids.
// A nil error means allowed; a *PermissionError means at least one id in
// the set is forbidden; any other error aborts the probe.
type ProbeFunc func(ctx context.Context, brandIDs []string) error

// ProbeResult partitions a brand-id set by account permission.
type ProbeResult struct {
	Allowed   []string
	Forbidden []string
}

// ProbePermissions isolates forbidden brand ids by divide and conquer:
// a set that probes clean is allowed wholesale, a failing set is split in
// half until failing singletons are isolated. Expected O(log n) probes
// when few ids are forbidden, O(n) worst case.
func ProbePermissions(ctx context.Context, ids []string, probe ProbeFunc) (ProbeResult, error) {
	var res ProbeResult
	if err := probeSplit(ctx, ids, probe, &res); err != nil {
		return ProbeResult{}, err
	}
	return res, nil
}

func probeSplit(ctx context.Context, ids []string, probe ProbeFunc, res *ProbeResult) error {
	if len(ids) == 0 {
		return nil
	}

	err := probe(ctx, ids)
	if err == nil {
		res.Allowed = append(res.Allowed, ids...)
		return nil
	}
	if !IsPermissionDenied(err) {
		return eris.Wrap(err, "adreal: permission probe")
	}
	if len(ids) == 1 {
		res.Forbidden = append(res.Forbidden, ids[0])
		return nil
	}

	mid := len(ids) / 2
	if err := probeSplit(ctx, ids[:mid], probe, res); err != nil {
		return err
	}
	return probeSplit(ctx, ids[mid:], probe, res)
}

// FetchStatsWithProbe fetches stats, degrading gracefully when the
// account lacks rights to part of the requested brand-id set: on a
// "no permission" 403 it bisects the set, drops the forbidden ids, and
// reissues the query with the survivors. The pipeline still produces
// data for every permitted brand and reports exactly which ids were
// excluded.
func (c *Client) FetchStatsWithProbe(ctx context.Context, q StatsQuery, opts StatsOptions) ([]StatEntry, *ProbeResult, error) {
	entries, err := c.FetchStats(ctx, q, opts)
	if err == nil {
		return entries, nil, nil
	}
	if !IsPermissionDenied(err) {
		return nil, nil, err
	}

	log := zap.L().With(zap.Int("requested_brands", len(q.BrandIDs)))
	log.Warn("stats request rejected for missing permissions, probing brand ids")

	probe := func(ctx context.Context, ids []string) error {
		pq := q
		pq.BrandIDs = ids
		pq.Limit = 1
		_, err := c.fetchStatsOnce(ctx, pq, opts.withDefaults().Timeout, 0)
		return err
	}

	res, err := ProbePermissions(ctx, q.BrandIDs, probe)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Allowed) == 0 {
		return nil, &res, &AllForbiddenError{Forbidden: res.Forbidden}
	}

	log.Info("permission probe complete",
		zap.Int("allowed", len(res.Allowed)),
		zap.Strings("forbidden", res.Forbidden),
	)

	q.BrandIDs = res.Allowed
	entries, err = c.FetchStats(ctx, q, opts)
	if err != nil {
		return nil, &res, eris.Wrap(err, "adreal: stats refetch with allowed brand ids")
	}
	return entries, &res, nil
}
