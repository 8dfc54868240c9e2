package dataset

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Additional-Code/salesboard/internal/entity"
)

// ParseReport summarises a workbook conversion.
type ParseReport struct {
	Sheet          string   `json:"sheet"`
	Rows           int      `json:"rows"`
	SkippedRows    int      `json:"skipped_rows"`
	NullDates      int      `json:"null_dates"`
	NullAmounts    int      `json:"null_amounts"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// MissingColumnError reports a required header absent from the sheet.
type MissingColumnError struct {
	Sheet  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("sheet %q has no %q column", e.Sheet, e.Column)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01-02-06",
	"01-02-2006",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
}

// ParseWorkbook reads the order sheet of an xlsx workbook. An empty sheet name
// selects the first sheet. Unparseable dates and amounts become null.
func ParseWorkbook(r io.Reader, sheet string) ([]entity.Order, ParseReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ParseReport{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ParseReport{}, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	report := ParseReport{Sheet: sheet}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, report, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, report, &MissingColumnError{Sheet: sheet, Column: ColOrderID}
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[normalizeHeader(h)] = i
	}
	for _, col := range Columns {
		if _, ok := index[normalizeHeader(col.Header)]; ok {
			continue
		}
		if col.Required {
			return nil, report, &MissingColumnError{Sheet: sheet, Column: col.Header}
		}
		report.MissingColumns = append(report.MissingColumns, col.Header)
	}

	date1904 := uses1904(f)
	orders := make([]entity.Order, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cell := func(header string) string {
			i, ok := index[normalizeHeader(header)]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if isBlank(row) {
			report.SkippedRows++
			continue
		}

		o := entity.Order{
			OrderID:        cell(ColOrderID),
			Status:         cell(ColStatus),
			Fulfilment:     cell(ColFulfilment),
			SalesChannel:   cell(ColSalesChannel),
			ServiceLevel:   cell(ColServiceLevel),
			Style:          cell(ColStyle),
			SKU:            cell(ColSKU),
			Category:       cell(ColCategory),
			Currency:       cell(ColCurrency),
			ShipCity:       cell(ColShipCity),
			ShipState:      cell(ColShipState),
			ShipPostalCode: cell(ColShipPostal),
			ShipCountry:    cell(ColShipCountry),
			PromotionIDs:   cell(ColPromotionIDs),
			B2B:            parseBool(cell(ColB2B)),
			FulfilledBy:    cell(ColFulfilledBy),
		}
		if d, ok := ParseDate(cell(ColOrderDate), date1904); ok {
			o.OrderDate = &d
		} else {
			report.NullDates++
		}
		if amount, err := decimal.NewFromString(cell(ColAmount)); err == nil {
			o.Amount = decimal.NewNullDecimal(amount)
		} else {
			report.NullAmounts++
		}
		orders = append(orders, o)
	}
	report.Rows = len(orders)
	return orders, report, nil
}

// ParseDate converts a raw cell into a date. Numeric values are treated as
// spreadsheet date serials.
func ParseDate(raw string, date1904 bool) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "verdadeiro", "sim", "yes", "y":
		return true
	}
	v, _ := strconv.ParseBool(raw)
	return v
}

func uses1904(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
