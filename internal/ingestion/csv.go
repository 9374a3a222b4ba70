package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"watchlens/internal/types"
)

// CSVHeader is the column row of the processed history table
var CSVHeader = []string{"Video Title", "Channel Name", "Watch Date & Time"}

// ReadCSV reads a processed history table. Dates stay raw so Normalize applies one filter to every source.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []RawRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	// a UTF-8 BOM ahead of the first column is common in spreadsheet exports
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, want := range CSVHeader {
		if header[i] != want {
			return nil, fmt.Errorf("csv column %d is %q, want %q", i+1, header[i], want)
		}
	}

	rows := make([]RawRow, 0)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, RawRow{Title: rec[0], Channel: rec[1], RawDate: rec[2]})
	}
}

// ReadCSVFile opens path and reads it with ReadCSV
func ReadCSVFile(path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes records as a processed history table with RFC 3339 timestamps
func WriteCSV(w io.Writer, records []types.WatchRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Title, r.Channel, r.WatchedAt.Format(time.RFC3339)}); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to path, creating its directory
func WriteCSVFile(path string, records []types.WatchRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create csv directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
