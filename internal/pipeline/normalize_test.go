package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umsgroup/adreal-sync/internal/warehouse"
)

func augOpts(schema warehouse.Schema) NormalizeOptions {
	return NormalizeOptions{
		Date:   time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		Schema: schema,
	}
}

func TestNormalize(t *testing.T) {
	rows := []MergedRow{{
		Period:      "month_20250801",
		BrandOwner:  "Acme Group",
		Brand:       "Acme Soda",
		Product:     "Acme Soda Zero",
		Website:     "hotnews.ro",
		Platform:    "pc",
		ContentType: ContentStandard,
		Values:      map[string]float64{"ad_cont": 1234.6, "ru": 10},
	}}

	out := Normalize(rows, augOpts(warehouse.Schema{KeepProduct: true}))
	require.Len(t, out, 1)

	r := out[0]
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), r.Date)
	assert.Equal(t, "Acme Group", r.BrandOwner)
	assert.Equal(t, "Acme Soda", r.Brand)
	assert.Equal(t, "Acme Soda Zero", r.Product)
	assert.Equal(t, "hotnews.ro", r.MediaChannel)
	assert.Equal(t, "Standard", r.ContentType)
	assert.Equal(t, int64(1235), r.AdContacts)
}

func TestNormalizeDropsProductWithoutVariant(t *testing.T) {
	rows := []MergedRow{{Brand: "b", Product: "p", Website: "w"}}

	out := Normalize(rows, augOpts(warehouse.Schema{}))
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Product)
}

func TestNormalizeSkipsSummaryChannel(t *testing.T) {
	rows := []MergedRow{
		{Brand: "b", Website: "Segment summary"},
		{Brand: "b", Website: "hotnews.ro"},
	}

	out := Normalize(rows, augOpts(warehouse.Schema{}))
	require.Len(t, out, 1)
	assert.Equal(t, "hotnews.ro", out[0].MediaChannel)
}

func TestNormalizeForcesDateToFirstOfMonth(t *testing.T) {
	rows := []MergedRow{{Brand: "b", Website: "w"}}

	opts := NormalizeOptions{Date: time.Date(2025, 8, 19, 15, 4, 5, 0, time.UTC)}
	out := Normalize(rows, opts)
	require.Len(t, out, 1)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), out[0].Date)
}

func TestNormalizeClassifierOverridesAPIContentType(t *testing.T) {
	// The API tagged a Google placement as Standard; the final projection
	// re-derives the content type from the channel name.
	rows := []MergedRow{{Brand: "b", Website: "google.com", ContentType: ContentStandard}}

	out := Normalize(rows, augOpts(warehouse.Schema{}))
	require.Len(t, out, 1)
	assert.Equal(t, "Search", out[0].ContentType)
}

func TestNormalizeDeduplicates(t *testing.T) {
	dup := MergedRow{
		Period:  "month_20250801",
		Brand:   "b",
		Website: "w",
		Values:  map[string]float64{"ad_cont": 7},
	}
	distinct := dup
	distinct.Values = map[string]float64{"ad_cont": 8}

	out := Normalize([]MergedRow{dup, dup, distinct}, augOpts(warehouse.Schema{}))
	assert.Len(t, out, 2)
}

func TestCoerceContacts(t *testing.T) {
	assert.Equal(t, int64(0), coerceContacts(math.NaN()))
	assert.Equal(t, int64(0), coerceContacts(math.Inf(1)))
	assert.Equal(t, int64(0), coerceContacts(-5))
	assert.Equal(t, int64(0), coerceContacts(0))
	assert.Equal(t, int64(2), coerceContacts(1.5))
	assert.Equal(t, int64(1234), coerceContacts(1234.4))
}
