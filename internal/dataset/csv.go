package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ReadCSV parses delimited text into a Table. The first record is the header;
// short rows are padded with missing cells.
func ReadCSV(data []byte, delim rune) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if delim != 0 {
		r.Comma = delim
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	ncol := len(header)
	headers := make([]string, ncol)
	copy(headers, header)

	tbl := &Table{Headers: headers}
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(tbl.Records)+1, err)
		}
		row := make([]Cell, ncol)
		for i := range row {
			if i < len(rec) {
				row[i] = parseCell(rec[i])
			} else {
				row[i] = Cell{Kind: KindMissing}
			}
		}
		tbl.Records = append(tbl.Records, row)
	}
	return tbl, nil
}
