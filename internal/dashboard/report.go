package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	trendSheet   = "Trend"
)

// MonthlyReport renders the month's profit and loss plus the year's trend as
// an xlsx workbook.
func (s *Service) MonthlyReport(ctx context.Context, year, month int) ([]byte, error) {
	pl, err := s.ProfitLoss(ctx, year, month)
	if err != nil {
		return nil, err
	}
	trend, err := s.YearlyTrend(ctx, year)
	if err != nil {
		return nil, err
	}
	stock, err := s.StockSummary(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(trendSheet); err != nil {
		return nil, err
	}

	rows := [][]any{
		{"Period", fmt.Sprintf("%04d-%02d", year, month)},
		{"Income", pl.Income.InexactFloat64()},
	}
	types := make([]string, 0, len(pl.Expenses))
	for k := range pl.Expenses {
		types = append(types, k)
	}
	sort.Strings(types)
	for _, k := range types {
		rows = append(rows, []any{"Expense: " + k, pl.Expenses[k].InexactFloat64()})
	}
	rows = append(rows,
		[]any{"Total expense", pl.TotalExpense.InexactFloat64()},
		[]any{"Profit", pl.Profit.InexactFloat64()},
		[]any{"Cloth remaining (m)", stock.TotalRemainingMeters.InexactFloat64()},
		[]any{"Low stock lots", stock.LowStockItems},
	)
	if err := writeRows(f, summarySheet, rows); err != nil {
		return nil, err
	}

	trendRows := [][]any{{"Month", "Income", "Expense", "Profit"}}
	for _, m := range trend.Months {
		trendRows = append(trendRows, []any{m.Month, m.Income.InexactFloat64(), m.Expense.InexactFloat64(), m.Profit.InexactFloat64()})
	}
	if err := writeRows(f, trendSheet, trendRows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("dashboard: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
