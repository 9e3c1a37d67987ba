package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/umsgroup/adreal-sync/internal/warehouse"
)

// summaryChannel is the reserved channel marker the API emits for
// aggregate rows; these never reach the warehouse.
const summaryChannel = "Segment summary"

// NormalizeOptions controls the projection into the warehouse schema.
type NormalizeOptions struct {
	// Date is forced onto every row: the first day of the reporting month.
	Date time.Time
	// Schema selects the client's column variant.
	Schema warehouse.Schema
}

// Normalize projects merged rows into the fixed warehouse schema:
// dedupe, drop summary rows, force the reporting date, re-derive the
// content type from the final channel name (the classifier always wins
// over anything upstream), and coerce ad contacts to a non-negative
// integer.
func Normalize(rows []MergedRow, opts NormalizeOptions) []warehouse.Row {
	date := time.Date(opts.Date.Year(), opts.Date.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := make([]warehouse.Row, 0, len(rows))
	for _, r := range deduplicate(rows) {
		if r.Website == summaryChannel {
			continue
		}

		row := warehouse.Row{
			Date:         date,
			BrandOwner:   r.BrandOwner,
			Brand:        r.Brand,
			MediaChannel: r.Website,
			ContentType:  string(ClassifyContentType(r.Website)),
			AdContacts:   coerceContacts(r.Values["ad_cont"]),
		}
		if opts.Schema.KeepProduct {
			row.Product = r.Product
		}
		out = append(out, row)
	}

	return out
}

// deduplicate removes exact duplicates among merged rows before
// projection, mirroring the pre-normalization dedupe of the source data.
func deduplicate(rows []MergedRow) []MergedRow {
	seen := make(map[string]bool, len(rows))
	out := make([]MergedRow, 0, len(rows))
	for _, r := range rows {
		key := mergedKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func mergedKey(r MergedRow) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%s",
		r.Period, r.BrandOwner, r.Brand, r.Product, r.Website, r.Platform, r.ContentType,
		metricsKey(r.Values), metricsKey(r.Uncertainty))
}

func metricsKey(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for _, k := range keys {
		s += fmt.Sprintf("%s=%g;", k, m[k])
	}
	return s
}

// coerceContacts turns a metric value into a non-negative integer.
// Missing or non-finite values become 0.
func coerceContacts(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int64(math.Round(v))
}
