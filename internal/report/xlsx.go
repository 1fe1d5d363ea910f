// Package report renders market data as Excel workbooks.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"vegprice-service/internal/domain/produce"
)

const (
	summarySheet = "Summary"
	pricesSheet  = "Prices"
	historySheet = "History"
	dateLayout   = "2006-01-02"
)

func newWorkbook(firstSheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", firstSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	return f, nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9EAD3"}, Pattern: 1},
	})
}

func writeRows(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", style); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func finish(f *excelize.File) ([]byte, error) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// MarketSummaryWorkbook has a key/value "Summary" sheet and a per-vegetable "Prices" sheet.
func MarketSummaryWorkbook(summary produce.MarketSummary, vegetables []string) ([]byte, error) {
	f, err := newWorkbook(summarySheet)
	if err != nil {
		return nil, err
	}

	overview := [][]any{
		{"Location", summary.Location},
		{"Date", summary.Date.Format(dateLayout)},
		{"Total vegetables", summary.TotalVegetables},
		{"Average price", summary.AveragePrice},
		{"Price std dev", summary.PriceStdDev},
		{"Trending up", len(summary.TrendingUp)},
		{"Trending down", len(summary.TrendingDown)},
		{"Stable", len(summary.Stable)},
	}
	if err := writeRows(f, summarySheet, []any{"Metric", "Value"}, overview); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(pricesSheet); err != nil {
		f.Close()
		return nil, err
	}
	bucket := make(map[string]string, len(vegetables))
	for _, v := range summary.TrendingUp {
		bucket[v] = "trending_up"
	}
	for _, v := range summary.TrendingDown {
		bucket[v] = "trending_down"
	}
	for _, v := range summary.Stable {
		bucket[v] = "stable"
	}
	rows := make([][]any, 0, len(vegetables))
	for _, v := range vegetables {
		r, ok := summary.PriceRanges[v]
		if !ok {
			continue
		}
		rows = append(rows, []any{v, r.Current, r.Predicted, string(r.Trend), bucket[v]})
	}
	header := []any{"Vegetable", "Current (INR/kg)", "Predicted (INR/kg)", "Trend", "Bucket"}
	if err := writeRows(f, pricesSheet, header, rows); err != nil {
		f.Close()
		return nil, err
	}

	return finish(f)
}

func PriceHistoryWorkbook(points []produce.HistoryPoint) ([]byte, error) {
	f, err := newWorkbook(historySheet)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{p.Date.Format(dateLayout), p.Vegetable, p.Location, p.Price})
	}
	if err := writeRows(f, historySheet, []any{"Date", "Vegetable", "Location", "Price (INR/kg)"}, rows); err != nil {
		f.Close()
		return nil, err
	}

	return finish(f)
}
