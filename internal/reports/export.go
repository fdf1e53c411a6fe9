package reports

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// table is one report section, shared by the CSV and XLSX writers.
type table struct {
	name    string
	headers []string
	rows    [][]any
	widths  []float64
}

func tables(r SalesReport) []table {
	summary := table{
		name:    "Summary",
		headers: []string{"Metric", "Value"},
		rows: [][]any{
			{"From", r.From},
			{"To", r.To},
			{"Approved quotations", r.ApprovedCount},
			{"Approved total", r.ApprovedTotal},
			{"Decided quotations", r.DecidedCount},
			{"Conversion rate (%)", r.ConversionRate},
		},
		widths: []float64{24, 18},
	}
	months := table{name: "By month", headers: []string{"Month", "Approved", "Total"}, widths: []float64{12, 10, 16}}
	for _, m := range r.ByMonth {
		months.rows = append(months.rows, []any{m.Month, m.Count, m.Total})
	}
	statuses := table{name: "By status", headers: []string{"Status", "Quotations", "Total"}, widths: []float64{12, 12, 16}}
	for _, s := range r.ByStatus {
		statuses.rows = append(statuses.rows, []any{s.Status, s.Count, s.Total})
	}
	users := table{name: "By sales user", headers: []string{"Sales user", "Approved", "Total"}, widths: []float64{24, 10, 16}}
	for _, u := range r.ByUser {
		users.rows = append(users.rows, []any{u.Name, u.Count, u.Total})
	}
	products := table{name: "Top products", headers: []string{"SKU", "Product", "Quantity", "Revenue"}, widths: []float64{14, 30, 10, 16}}
	for _, p := range r.TopProducts {
		products.rows = append(products.rows, []any{p.SKU, p.Name, p.Quantity, p.Revenue})
	}
	quotes := table{
		name:    "Approved quotations",
		headers: []string{"Reference", "Date", "Customer", "Sales user", "Currency", "Subtotal", "Discount", "Tax", "Total"},
		widths:  []float64{20, 12, 28, 20, 9, 14, 12, 12, 14},
	}
	for _, q := range r.Quotations {
		quotes.rows = append(quotes.rows, []any{
			q.Reference, q.QuoteDate.Format(dateLayout), q.CustomerName, q.OwnerName, q.Currency,
			q.Subtotal, q.Discount, q.Tax, q.Total,
		})
	}
	return []table{summary, months, statuses, users, products, quotes}
}

// WriteCSV writes every report section one after another, separated by a
// blank line and introduced by the section name.
func WriteCSV(w io.Writer, r SalesReport) error {
	writer := csv.NewWriter(w)
	for i, t := range tables(r) {
		if i > 0 {
			if err := writer.Write([]string{}); err != nil {
				return err
			}
		}
		if err := writer.Write([]string{t.name}); err != nil {
			return err
		}
		if err := writer.Write(t.headers); err != nil {
			return err
		}
		for _, row := range t.rows {
			record := make([]string, len(row))
			for j, v := range row {
				record[j] = csvValue(v)
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvValue(v any) string {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.StringFixed(2)
	case string:
		return val
	}
	return fmt.Sprint(v)
}

// WriteXLSX writes one worksheet per report section.
func WriteXLSX(w io.Writer, r SalesReport) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return err
	}
	for i, t := range tables(r) {
		sheet := t.name
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		headers := make([]any, len(t.headers))
		for j, h := range t.headers {
			headers[j] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
			return err
		}
		last, _ := excelize.ColumnNumberToName(len(t.headers))
		if err := f.SetCellStyle(sheet, "A1", last+"1", header); err != nil {
			return err
		}
		for j, row := range t.rows {
			values := make([]any, len(row))
			for k, v := range row {
				values[k] = xlsxValue(v)
			}
			if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", j+2), &values); err != nil {
				return err
			}
		}
		for j, width := range t.widths {
			col, _ := excelize.ColumnNumberToName(j + 1)
			if err := f.SetColWidth(sheet, col, col, width); err != nil {
				return err
			}
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func xlsxValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.Round(2).InexactFloat64()
	}
	return v
}
