package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/qaydhq/qayd/internal/entity"
)

const (
	receiptsSheet = "Receipts"
	summarySheet  = "By Category"
)

var receiptHeaders = []string{
	"Receipt ID", "Vendor", "Date", "Time", "Invoice Number", "Category",
	"Subtotal", "Tax", "Tip", "Total", "Currency", "Payment", "Items", "Note",
}

// Service renders receipt records into an Excel workbook.
type Service struct {
	logger *zap.Logger
}

func NewService(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// Workbook builds the export workbook: one flat row per receipt, plus a
// per-category totals sheet. The caller is responsible for closing it.
func (s *Service) Workbook(records []*entity.ReceiptRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", receiptsSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}

	if err := s.writeReceipts(f, records); err != nil {
		f.Close()
		return nil, err
	}
	if err := s.writeSummary(f, records); err != nil {
		f.Close()
		return nil, err
	}

	s.logger.Info("export workbook built", zap.Int("receipts", len(records)))
	return f, nil
}

func (s *Service) writeReceipts(f *excelize.File, records []*entity.ReceiptRecord) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for col, h := range receiptHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(receiptsSheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(receiptHeaders), 1)
	if err := f.SetCellStyle(receiptsSheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, rec := range records {
		row := []any{
			rec.ReceiptID,
			rec.Vendor.Name,
			rec.Date,
			rec.Time,
			rec.InvoiceNumber,
			rec.Category,
			rec.Financials.Subtotal,
			rec.Financials.Tax,
			rec.Financials.Tip,
			rec.Financials.Total,
			rec.Financials.Currency,
			rec.Payment.DisplayName,
			itemsSummary(rec.LineItems),
			rec.Note,
		}
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(receiptsSheet, cell, v); err != nil {
				return fmt.Errorf("writing row %d: %w", i+2, err)
			}
		}
	}

	for col := range receiptHeaders {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(receiptsSheet, name, name, 18); err != nil {
			return err
		}
	}
	return nil
}

// writeSummary totals receipt amounts per category. Amounts are verbatim
// OCR strings, so anything that fails decimal parsing is skipped rather
// than coerced to zero, and the skip is logged.
func (s *Service) writeSummary(f *excelize.File, records []*entity.ReceiptRecord) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, rec := range records {
		category := rec.Category
		if category == "" {
			category = "Other"
		}
		counts[category]++
		amount, err := decimal.NewFromString(strings.TrimSpace(rec.Financials.Total))
		if err != nil {
			s.logger.Warn("skipping unparseable total",
				zap.String("receipt_id", rec.ReceiptID),
				zap.String("total", rec.Financials.Total))
			continue
		}
		totals[category] = totals[category].Add(amount)
	}

	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for col, h := range []string{"Category", "Receipts", "Total Spent"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(summarySheet, cell, h); err != nil {
			return err
		}
	}
	grand := decimal.Zero
	for i, category := range categories {
		row := i + 2
		cells := []any{category, counts[category], totals[category].StringFixed(2)}
		for col, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return err
			}
		}
		grand = grand.Add(totals[category])
	}
	totalRow := len(categories) + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := f.SetCellValue(summarySheet, cell, "Total"); err != nil {
		return err
	}
	cell, _ = excelize.CoordinatesToCellName(3, totalRow)
	return f.SetCellValue(summarySheet, cell, grand.StringFixed(2))
}

func itemsSummary(items []entity.LineItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		desc := it.Description
		if desc == "" {
			desc = fmt.Sprintf("item %d", it.ID)
		}
		parts = append(parts, fmt.Sprintf("%s x%s (%s)", desc, it.Quantity, it.TotalPrice))
	}
	return strings.Join(parts, "; ")
}
