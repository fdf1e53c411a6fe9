package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/quotedesk/quotedesk/internal/rbac"
)

func sampleReport(t *testing.T) SalesReport {
	t.Helper()
	svc, _, _ := newService(t)
	f, err := svc.ParseFilter(user(rbac.RoleManager, 9), "2025-09-01", "2025-10-31", "")
	require.NoError(t, err)
	report, err := svc.Sales(context.Background(), f)
	require.NoError(t, err)
	return report
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport(t)))

	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Summary"}, records[0])
	assert.Equal(t, []string{"Metric", "Value"}, records[1])
	assert.Contains(t, records, []string{"Approved total", "1750.50"})
	assert.Contains(t, records, []string{"2025-10", "2", "1250.50"})
	assert.Contains(t, records, []string{"QT-202510-0001", "2025-10-02", "Acme, Ltd", "Sam", "USD", "1000.00", "0.00", "100.00", "1100.00"})
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "By month", "By status", "By sales user", "Top products", "Approved quotations"}, f.GetSheetList())

	v, err := f.GetCellValue("By month", "A3")
	require.NoError(t, err)
	assert.Equal(t, "2025-10", v)

	v, err = f.GetCellValue("Top products", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Desk", v)

	v, err = f.GetCellValue("Approved quotations", "A2")
	require.NoError(t, err)
	assert.Equal(t, "QT-202510-0001", v)
}
