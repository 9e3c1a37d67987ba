// Package warehouse loads normalized ad-exposure rows into Postgres with
// replace-month semantics: for every calendar month present in a batch,
// the month's existing rows are deleted before the batch is appended.
package warehouse

import (
	"time"

	"github.com/rotisserie/eris"
)

// Core column names, in load order. Date is a DATE column pinned to the
// first day of the reporting month; AdContacts is a non-null integer.
const (
	ColDate         = "date"
	ColBrandOwner   = "brand_owner"
	ColBrand        = "brand"
	ColProduct      = "product"
	ColContentType  = "content_type"
	ColMediaOwner   = "media_owner"
	ColMediaChannel = "media_channel"
	ColAdContacts   = "ad_contacts"
)

// Row is one warehouse record in the fixed schema. Product participates
// only for schema variants that keep it; MediaOwner is part of the base
// schema but has no upstream source, so it loads empty.
type Row struct {
	Date         time.Time
	BrandOwner   string
	Brand        string
	Product      string
	ContentType  string
	MediaOwner   string
	MediaChannel string
	AdContacts   int64
}

// Schema describes a client table's column variant: some tables add
// Product, some omit MediaOwner.
type Schema struct {
	KeepProduct    bool
	DropMediaOwner bool
}

// Columns returns the ordered column list for this schema variant.
func (s Schema) Columns() []string {
	cols := []string{ColDate, ColBrandOwner, ColBrand}
	if s.KeepProduct {
		cols = append(cols, ColProduct)
	}
	cols = append(cols, ColContentType)
	if !s.DropMediaOwner {
		cols = append(cols, ColMediaOwner)
	}
	return append(cols, ColMediaChannel, ColAdContacts)
}

// Values renders a row as COPY values in the schema's column order.
func (s Schema) Values(r Row) []any {
	vals := []any{r.Date, r.BrandOwner, r.Brand}
	if s.KeepProduct {
		vals = append(vals, r.Product)
	}
	vals = append(vals, r.ContentType)
	if !s.DropMediaOwner {
		vals = append(vals, r.MediaOwner)
	}
	return append(vals, r.MediaChannel, r.AdContacts)
}

// Validate checks batch-level invariants before any warehouse mutation.
func Validate(rows []Row) error {
	for i, r := range rows {
		if r.Date.IsZero() {
			return eris.Errorf("warehouse: row %d has no date", i)
		}
		if r.Date.Day() != 1 {
			return eris.Errorf("warehouse: row %d date %s is not the first of a month", i, r.Date.Format("2006-01-02"))
		}
		if r.AdContacts < 0 {
			return eris.Errorf("warehouse: row %d has negative ad contacts", i)
		}
	}
	return nil
}

// MonthsOf returns the distinct (year, month) partitions present in the
// batch, in first-seen order.
func MonthsOf(rows []Row) []time.Time {
	seen := make(map[time.Time]bool)
	var months []time.Time
	for _, r := range rows {
		m := time.Date(r.Date.Year(), r.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	return months
}
