package adreal

import (
	"fmt"
	"strings"
	"time"
)

// Brand is one entry from the brand catalog. A brand with an empty
// ParentID is a top-level owner.
type Brand struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	ParentID ID     `json:"parent_id,omitempty"`
}

// Publisher is one entry from the website/publisher catalog.
type Publisher struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Platform describes one measurement platform (e.g. pc, mobile).
type Platform struct {
	ID    int    `json:"id"`
	Code  string `json:"code"`
	Label string `json:"label"`
	Name  string `json:"name"`
}

// Segment is the dimensional key attached to a stats observation.
// ContentType may be empty or the literal "None" when the API does not
// classify the placement; callers fall back to channel classification.
type Segment struct {
	Brand       ID     `json:"brand"`
	Product     ID     `json:"product,omitempty"`
	Website     ID     `json:"website,omitempty"`
	Platform    string `json:"platform,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Observation is one period's worth of metric values for a segment.
// Values and Uncertainty are keyed by metric name (ad_cont, ru, reach).
type Observation struct {
	Period      string             `json:"period"`
	Values      map[string]float64 `json:"values"`
	Uncertainty map[string]float64 `json:"uncertainty"`
}

// StatEntry bundles one segment with its observations. The API returns
// several observations per segment when the requested range spans more
// than one period; callers filter by period label.
type StatEntry struct {
	Segment Segment       `json:"segment"`
	Stats   []Observation `json:"stats"`
}

// PeriodRange identifies the reporting interval of a stats request.
type PeriodRange struct {
	Start       time.Time
	End         time.Time
	Granularity string
}

// String renders the range in the API wire format "YYYYMMDD,YYYYMMDD,<granularity>".
func (r PeriodRange) String() string {
	return fmt.Sprintf("%s,%s,%s", r.Start.Format("20060102"), r.End.Format("20060102"), r.Granularity)
}

// Label returns the period label the API attaches to observations in
// this range, e.g. "month_20250801".
func (r PeriodRange) Label() string {
	return fmt.Sprintf("%s_%s", r.Granularity, r.Start.Format("20060102"))
}

// MonthRange returns the PeriodRange covering a full calendar month.
func MonthRange(year int, month time.Month) PeriodRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return PeriodRange{
		Start:       start,
		End:         start.AddDate(0, 1, -1),
		Granularity: "month",
	}
}

// StatsQuery describes one stats request.
type StatsQuery struct {
	BrandIDs  []string
	Metrics   []string
	Platforms []string
	PageTypes []string
	Segments  []string
	Range     PeriodRange
	Limit     int
}

func (q StatsQuery) brandsParam() string    { return strings.Join(q.BrandIDs, ",") }
func (q StatsQuery) metricsParam() string   { return strings.Join(q.Metrics, ",") }
func (q StatsQuery) platformsParam() string { return strings.Join(q.Platforms, ",") }
func (q StatsQuery) pageTypesParam() string { return strings.Join(q.PageTypes, ",") }
func (q StatsQuery) segmentsParam() string  { return strings.Join(q.Segments, ",") }

// listResponse is the common paginated envelope for catalog endpoints.
type listResponse[T any] struct {
	TotalCount int `json:"total_count"`
	Results    []T `json:"results"`
}
