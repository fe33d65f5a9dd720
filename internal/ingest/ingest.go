// Package ingest is the boundary collaborator feeding the engine: it turns
// delimited text into ordered (column, raw value) pairs and builds records
// against a schema. The core packages never open files or parse delimiters.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tabula-lab/tabula/internal/core/record"
	"github.com/tabula-lab/tabula/internal/core/schema"
)

// Source yields one row of raw cells at a time, io.EOF when exhausted.
type Source interface {
	Next() ([]record.Pair, error)
}

// CSVSource adapts a delimited-text stream to the Source contract. The first
// row is the header; every later row pairs cells with header names in order.
type CSVSource struct {
	r      *csv.Reader
	header []string
}

// NewCSVSource reads the header row and prepares the source.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	return &CSVSource{r: cr, header: header}, nil
}

// Header returns the column names from the header row.
func (s *CSVSource) Header() []string { return s.header }

// Next returns the next row as (column, raw) pairs in header order.
func (s *CSVSource) Next() ([]record.Pair, error) {
	row, err := s.r.Read()
	if err != nil {
		return nil, err
	}
	pairs := make([]record.Pair, len(row))
	for i, raw := range row {
		pairs[i] = record.Pair{Name: s.header[i], Raw: raw}
	}
	return pairs, nil
}

// RowError reports one rejected row. Row numbers count data rows from 1.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }
func (e RowError) Unwrap() error { return e.Err }

// Report is the outcome of loading one batch: the records that built cleanly
// plus the rows that did not. A malformed row never aborts the batch.
type Report struct {
	BatchID uuid.UUID
	Records []*record.Record
	Failed  []RowError
}

// Load drains the source, building a record per row against the schema. Rows
// that fail to parse — bad cell syntax, unknown columns, missing grouping
// columns, ragged csv lines — are collected in the report and skipped.
// Source-level failures (unreadable input) abort with an error.
func Load(ctx context.Context, sc *schema.Ctx, src Source) (*Report, error) {
	report := &Report{BatchID: uuid.New()}
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pairs, err := src.Next()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			report.Failed = append(report.Failed, RowError{Row: row, Err: err})
			slog.Warn("Skipping malformed row", "batch_id", report.BatchID, "row", row, "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", row, err)
		}

		rec, err := record.Build(sc, pairs)
		if err != nil {
			report.Failed = append(report.Failed, RowError{Row: row, Err: err})
			slog.Warn("Skipping row", "batch_id", report.BatchID, "row", row, "error", err)
			continue
		}
		report.Records = append(report.Records, rec)
	}

	slog.Info("Batch loaded",
		"batch_id", report.BatchID,
		"records", len(report.Records),
		"rejected", len(report.Failed),
	)
	return report, nil
}
