package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umsgroup/adreal-sync/internal/config"
	"github.com/umsgroup/adreal-sync/pkg/adreal"
)

// fakeAPI is a canned-response API session. The pipeline builds one
// session per fetcher, so the fakes share state through the parent.
type fakeAPI struct {
	logins *atomic.Int32

	brands     []adreal.Brand
	publishers []adreal.Publisher
	stats      []adreal.StatEntry
	probeRes   *adreal.ProbeResult

	statsErr error

	gotQuery *adreal.StatsQuery
}

func (f *fakeAPI) Login(ctx context.Context) error {
	f.logins.Add(1)
	return nil
}

func (f *fakeAPI) FetchBrands(ctx context.Context, period string, opts adreal.CatalogOptions) ([]adreal.Brand, error) {
	return f.brands, nil
}

func (f *fakeAPI) FetchPublishers(ctx context.Context, period string, opts adreal.CatalogOptions) ([]adreal.Publisher, error) {
	return f.publishers, nil
}

func (f *fakeAPI) FetchStats(ctx context.Context, q adreal.StatsQuery, opts adreal.StatsOptions) ([]adreal.StatEntry, error) {
	f.gotQuery = &q
	return f.stats, f.statsErr
}

func (f *fakeAPI) FetchStatsWithProbe(ctx context.Context, q adreal.StatsQuery, opts adreal.StatsOptions) ([]adreal.StatEntry, *adreal.ProbeResult, error) {
	f.gotQuery = &q
	return f.stats, f.probeRes, f.statsErr
}

func testAdRealConfig() config.AdRealConfig {
	return config.AdRealConfig{
		Market:    "ro",
		Metrics:   []string{"ru", "ad_cont", "reach"},
		Platforms: []string{"pc"},
		PageTypes: []string{"search", "social", "standard"},
		Segments:  []string{"brand", "product", "content_type", "website"},
	}
}

func TestRunnerRun(t *testing.T) {
	var logins atomic.Int32
	fake := &fakeAPI{
		logins: &logins,
		brands: []adreal.Brand{
			{ID: "1", Name: "Acme Group"},
			{ID: "2", Name: "Acme Soda", ParentID: "1"},
		},
		publishers: []adreal.Publisher{{ID: "501", Name: "hotnews.ro"}},
		stats: []adreal.StatEntry{{
			Segment: adreal.Segment{Brand: "2", Website: "501", Platform: "pc"},
			Stats: []adreal.Observation{{
				Period: "month_20250701",
				Values: map[string]float64{"ad_cont": 99.7},
			}},
		}},
	}

	r := NewRunnerWithFactory(testAdRealConfig(), func() API { return fake })
	client := config.ClientConfig{Table: "acme", BrandIDs: []string{"2"}}

	res, err := r.Run(context.Background(), client, ReportingMonth{Year: 2025, Month: time.July})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), row.Date)
	assert.Equal(t, "Acme Group", row.BrandOwner)
	assert.Equal(t, "Acme Soda", row.Brand)
	assert.Equal(t, "hotnews.ro", row.MediaChannel)
	assert.Equal(t, int64(100), row.AdContacts)
	assert.Empty(t, res.Forbidden)

	// One session per fetcher.
	assert.Equal(t, int32(3), logins.Load())

	require.NotNil(t, fake.gotQuery)
	assert.Equal(t, []string{"2"}, fake.gotQuery.BrandIDs)
	assert.Equal(t, "20250701,20250731,month", fake.gotQuery.Range.String())
}

func TestRunnerRunWithProbe(t *testing.T) {
	var logins atomic.Int32
	fake := &fakeAPI{
		logins:     &logins,
		brands:     []adreal.Brand{{ID: "2", Name: "Acme Soda"}},
		publishers: []adreal.Publisher{{ID: "501", Name: "hotnews.ro"}},
		stats: []adreal.StatEntry{{
			Segment: adreal.Segment{Brand: "2", Website: "501"},
			Stats:   []adreal.Observation{{Period: "month_20250701", Values: map[string]float64{"ad_cont": 1}}},
		}},
		probeRes: &adreal.ProbeResult{Allowed: []string{"2"}, Forbidden: []string{"9"}},
	}

	r := NewRunnerWithFactory(testAdRealConfig(), func() API { return fake })
	client := config.ClientConfig{Table: "acme", BrandIDs: []string{"2", "9"}, ProbeOnForbidden: true}

	res, err := r.Run(context.Background(), client, ReportingMonth{Year: 2025, Month: time.July})
	require.NoError(t, err)
	assert.Equal(t, []string{"9"}, res.Forbidden)
	assert.Len(t, res.Rows, 1)
}

func TestRunnerRunPropagatesFetchError(t *testing.T) {
	var logins atomic.Int32
	fake := &fakeAPI{
		logins:   &logins,
		statsErr: &adreal.AllForbiddenError{Forbidden: []string{"2"}},
	}

	r := NewRunnerWithFactory(testAdRealConfig(), func() API { return fake })
	client := config.ClientConfig{Table: "acme", BrandIDs: []string{"2"}}

	_, err := r.Run(context.Background(), client, ReportingMonth{Year: 2025, Month: time.July})
	require.Error(t, err)

	var afe *adreal.AllForbiddenError
	assert.ErrorAs(t, err, &afe)
}
