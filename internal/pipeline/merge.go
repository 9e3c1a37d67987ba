package pipeline

import (
	"go.uber.org/zap"

	"github.com/umsgroup/adreal-sync/pkg/adreal"
)

// Metrics is the fixed metric set every merged row carries. Each metric
// contributes a value column and a matching <metric>_uncertainty column.
var Metrics = []string{"ad_cont", "ru", "reach"}

// contentTypeNone is the API's placeholder for an unclassified placement.
const contentTypeNone = "None"

// MergedRow is the denormalized join of one observation against its
// segment's resolved dimensions.
type MergedRow struct {
	Period      string
	BrandOwner  string
	Brand       string
	Product     string
	Website     string
	Platform    string
	ContentType ContentType

	// Values and Uncertainty are keyed by the names in Metrics. Missing
	// metrics are absent, not zero; the normalizer coerces.
	Values      map[string]float64
	Uncertainty map[string]float64
}

// BrandCatalog is an id-keyed brand lookup.
type BrandCatalog map[adreal.ID]adreal.Brand

// PublisherCatalog is an id-keyed publisher lookup.
type PublisherCatalog map[adreal.ID]adreal.Publisher

// NewBrandCatalog indexes a brand snapshot by id.
func NewBrandCatalog(brands []adreal.Brand) BrandCatalog {
	m := make(BrandCatalog, len(brands))
	for _, b := range brands {
		m[b.ID] = b
	}
	return m
}

// NewPublisherCatalog indexes a publisher snapshot by id.
func NewPublisherCatalog(pubs []adreal.Publisher) PublisherCatalog {
	m := make(PublisherCatalog, len(pubs))
	for _, p := range pubs {
		m[p.ID] = p
	}
	return m
}

// ResolveOwner walks at most one parent link to the owning brand's name.
// A brand with no parent owns itself. Returns ("", false) when the brand
// or its parent is missing from the catalog; the caller propagates the
// missing value rather than failing.
func ResolveOwner(id adreal.ID, catalog BrandCatalog) (string, bool) {
	brand, ok := catalog[id]
	if !ok {
		return "", false
	}
	if brand.ParentID == "" {
		return brand.Name, true
	}
	parent, ok := catalog[brand.ParentID]
	if !ok {
		return "", false
	}
	return parent.Name, true
}

// brandName resolves a brand or product id to its name, falling back to
// the raw id string when the catalog has no entry.
func brandName(id adreal.ID, catalog BrandCatalog) string {
	if b, ok := catalog[id]; ok {
		return b.Name
	}
	return id.String()
}

func publisherName(id adreal.ID, catalog PublisherCatalog) string {
	if p, ok := catalog[id]; ok {
		return p.Name
	}
	return id.String()
}

// Merge joins stats entries against the two dimension catalogs and emits
// one row per (segment, observation) pair whose period matches
// periodLabel. An empty periodLabel keeps every observation.
func Merge(stats []adreal.StatEntry, brands BrandCatalog, publishers PublisherCatalog, periodLabel string) []MergedRow {
	rows := make([]MergedRow, 0, len(stats))
	skipped := 0

	for _, entry := range stats {
		seg := entry.Segment
		if seg.Brand == "" {
			skipped++
			continue
		}

		owner, _ := ResolveOwner(seg.Brand, brands)
		website := publisherName(seg.Website, publishers)

		contentType := ContentType(seg.ContentType)
		if seg.ContentType == "" || seg.ContentType == contentTypeNone {
			contentType = ClassifyContentType(website)
		}

		for _, obs := range entry.Stats {
			if periodLabel != "" && obs.Period != periodLabel {
				continue
			}
			rows = append(rows, MergedRow{
				Period:      obs.Period,
				BrandOwner:  owner,
				Brand:       brandName(seg.Brand, brands),
				Product:     brandName(seg.Product, brands),
				Website:     website,
				Platform:    seg.Platform,
				ContentType: contentType,
				Values:      obs.Values,
				Uncertainty: obs.Uncertainty,
			})
		}
	}

	if skipped > 0 {
		zap.L().Warn("dropped stats entries without a brand segment", zap.Int("count", skipped))
	}
	return rows
}
