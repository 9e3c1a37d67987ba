package adreal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastStatsOpts() StatsOptions {
	return StatsOptions{Timeout: 5 * time.Second, MaxAttempts: 3, BackoffBase: time.Millisecond}
}

func testQuery() StatsQuery {
	return StatsQuery{
		BrandIDs:  []string{"11", "22"},
		Metrics:   []string{"ru", "ad_cont", "reach"},
		Platforms: []string{"pc"},
		PageTypes: []string{"search", "social", "standard"},
		Segments:  []string{"brand", "product", "content_type", "website"},
		Range:     MonthRange(2025, time.August),
		Limit:     1000000,
	}
}

func sampleEntries() []StatEntry {
	return []StatEntry{
		{
			Segment: Segment{Brand: "11", Website: "501", Platform: "pc", ContentType: "Standard"},
			Stats: []Observation{{
				Period:      "month_20250801",
				Values:      map[string]float64{"ad_cont": 1200, "ru": 300, "reach": 0.4},
				Uncertainty: map[string]float64{"ad_cont": 10},
			}},
		},
	}
}

func TestFetchStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ro/stats/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "11,22", q.Get("brands"))
		assert.Equal(t, "ru,ad_cont,reach", q.Get("metrics"))
		assert.Equal(t, "20250801,20250831,month", q.Get("periods_range"))
		assert.Equal(t, "pc", q.Get("platforms"))
		assert.Equal(t, "search,social,standard", q.Get("page_types"))
		assert.Equal(t, "brand,product,content_type,website", q.Get("segments"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1000000", q.Get("limit"))
		assert.Empty(t, q.Get("offset"))

		json.NewEncoder(w).Encode(listResponse[StatEntry]{TotalCount: 1, Results: sampleEntries()})
	}))
	defer srv.Close()

	c := NewClient("u", "p", "ro", WithBaseURL(srv.URL))
	entries, err := c.FetchStats(context.Background(), testQuery(), fastStatsOpts())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ID("11"), entries[0].Segment.Brand)
	assert.Equal(t, "month_20250801", entries[0].Stats[0].Period)
	assert.Equal(t, 1200.0, entries[0].Stats[0].Values["ad_cont"])
}

func TestFetchStatsRetriesTransientAndRelogs(t *testing.T) {
	var statsCalls, loginGets int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login/":
			if r.Method == http.MethodGet {
				loginGets++
				http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok", Path: "/"})
			}
			w.Write([]byte("ok"))
		case "/ro/stats/":
			statsCalls++
			if statsCalls < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(listResponse[StatEntry]{TotalCount: 1, Results: sampleEntries()})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient("u", "p", "ro", WithBaseURL(srv.URL), WithRateLimit(1000, 1000))
	entries, err := c.FetchStats(context.Background(), testQuery(), fastStatsOpts())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 3, statsCalls)
	// One re-login per retry.
	assert.Equal(t, 2, loginGets)
}

func TestFetchStatsExhaustsAttempts(t *testing.T) {
	var statsCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login/" {
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok", Path: "/"})
			w.Write([]byte("ok"))
			return
		}
		statsCalls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("u", "p", "ro", WithBaseURL(srv.URL), WithRateLimit(1000, 1000))
	_, err := c.FetchStats(context.Background(), testQuery(), fastStatsOpts())
	require.Error(t, err)
	assert.Equal(t, 3, statsCalls)

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusInternalServerError, he.StatusCode)
}

func TestFetchStatsPermissionDeniedNotRetried(t *testing.T) {
	var statsCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		statsCalls++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("You have no permission to these brands"))
	}))
	defer srv.Close()

	c := NewClient("u", "p", "ro", WithBaseURL(srv.URL))
	_, err := c.FetchStats(context.Background(), testQuery(), fastStatsOpts())
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))
	assert.Equal(t, 1, statsCalls)
}

func TestFetchStatsPaged(t *testing.T) {
	const total = 25
	q := testQuery()
	q.Limit = 10

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := 0
		if v := r.URL.Query().Get("offset"); v != "" {
			var err error
			offset, err = strconv.Atoi(v)
			require.NoError(t, err)
		}
		n := q.Limit
		if offset+n > total {
			n = total - offset
		}
		results := make([]StatEntry, n)
		json.NewEncoder(w).Encode(listResponse[StatEntry]{TotalCount: total, Results: results})
	}))
	defer srv.Close()

	c := NewClient("u", "p", "ro", WithBaseURL(srv.URL), WithRateLimit(1000, 1000))
	entries, err := c.FetchStatsPaged(context.Background(), q, fastStatsOpts(), 2)
	require.NoError(t, err)
	assert.Len(t, entries, total)
}
