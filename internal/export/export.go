// Package export writes merged rows to spreadsheet files for manual
// inspection, bypassing the warehouse.
package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/umsgroup/adreal-sync/internal/pipeline"
)

// header is the flat column layout of an export file: the dimensional
// columns followed by a value and uncertainty column per metric.
func header() []string {
	cols := []string{"period", "brand_owner", "brand", "product", "website", "platform", "content_type"}
	for _, m := range pipeline.Metrics {
		cols = append(cols, m, m+"_uncertainty")
	}
	return cols
}

func record(r pipeline.MergedRow) []string {
	rec := []string{
		r.Period, r.BrandOwner, r.Brand, r.Product, r.Website, r.Platform, string(r.ContentType),
	}
	for _, m := range pipeline.Metrics {
		rec = append(rec, formatMetric(r.Values, m), formatMetric(r.Uncertainty, m))
	}
	return rec
}

func formatMetric(values map[string]float64, name string) string {
	v, ok := values[name]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes merged rows to a CSV file.
func WriteCSV(path string, rows []pipeline.MergedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(header()); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, r := range rows {
		if err := w.Write(record(r)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteXLSX writes merged rows to a single-sheet Excel workbook.
func WriteXLSX(path string, rows []pipeline.MergedRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("AdReal")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	hr := sheet.AddRow()
	for _, col := range header() {
		hr.AddCell().SetString(col)
	}
	for _, r := range rows {
		xr := sheet.AddRow()
		for _, cell := range record(r) {
			xr.AddCell().SetString(cell)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
