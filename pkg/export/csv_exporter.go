package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Roster defines ordered tabular export content. Rows are positional and
// follow the Columns order.
type Roster struct {
	Title    string
	Subtitle string
	Columns  []string
	Rows     [][]string
}

// CSVExporter renders Roster records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the roster.
func (e *CSVExporter) Render(roster Roster) ([]byte, error) {
	if len(roster.Columns) == 0 {
		return nil, fmt.Errorf("csv roster requires at least one column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(roster.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range roster.Rows {
		record := make([]string, len(roster.Columns))
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
