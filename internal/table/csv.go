package table

import (
	"encoding/csv"
	"fmt"
	"io"

	"cpstables/pkg/domain"
)

// ContentType of encoded tables.
const ContentType = "text/csv"

// WriteCSV writes a header and one line per row. Undefined values are empty.
func WriteCSV(w io.Writer, rows []domain.AggregateRow, withSmoothed bool) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(domain.TableColumns(withSmoothed)); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write(r.Values(withSmoothed)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a table written by WriteCSV. The header decides whether the
// smoothed columns are present.
func ReadCSV(r io.Reader) (rows []domain.AggregateRow, withSmoothed bool, err error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, false, fmt.Errorf("read header: %w", err)
	}
	switch len(header) {
	case len(domain.TableColumns(true)):
		withSmoothed = true
	case len(domain.TableColumns(false)):
	default:
		return nil, false, fmt.Errorf("read header: unexpected %d columns", len(header))
	}
	want := domain.TableColumns(withSmoothed)
	for i, c := range header {
		if c != want[i] {
			return nil, false, fmt.Errorf("read header: column %d is %q, want %q", i, c, want[i])
		}
	}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			return rows, withSmoothed, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("read line %d: %w", line, err)
		}
		row, err := domain.ParseAggregateRow(rec, withSmoothed)
		if err != nil {
			return nil, false, fmt.Errorf("read line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
}
