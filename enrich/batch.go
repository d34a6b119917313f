package enrich

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// RowResult pairs one CSV row with its enrichment outcome. Err is set when
// the row failed without aborting the file.
type RowResult struct {
	// Line is the 1-based line number in the source file, header included.
	Line int `json:"line"`

	Enrichment *Enrichment `json:"enrichment,omitempty"`
	Err        string      `json:"error,omitempty"`
}

// FileResult collects the row results for one CSV file.
type FileResult struct {
	Path string      `json:"path"`
	Rows []RowResult `json:"rows"`
}

// EnrichCSV reads a headered CSV stream and enriches every row. Rows that
// fail transiently or lack a name column are recorded in their RowResult;
// only malformed CSV or context cancellation aborts the whole stream.
func (e *Enricher) EnrichCSV(ctx context.Context, r io.Reader, opts Options) ([]RowResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	var results []RowResult
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return results, fmt.Errorf("read CSV row: %w", err)
		}
		line++

		if err := ctx.Err(); err != nil {
			return results, err
		}

		row := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			}
		}

		enrichment, err := e.EnrichRow(ctx, row, opts)
		if err != nil {
			results = append(results, RowResult{Line: line, Err: err.Error()})
			e.logger.Warn("Row enrichment failed",
				"line", line,
				"error", err)
			continue
		}
		results = append(results, RowResult{Line: line, Enrichment: enrichment})
	}

	return results, nil
}

// EnrichFile enriches one CSV file on disk.
func (e *Enricher) EnrichFile(ctx context.Context, path string, opts Options) (*FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := e.EnrichCSV(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("enrich %s: %w", path, err)
	}
	return &FileResult{Path: path, Rows: rows}, nil
}

// EnrichGlob enriches every file matching a doublestar pattern, e.g.
// "data/**/*.csv". Files process in sorted path order.
func (e *Enricher) EnrichGlob(ctx context.Context, pattern string, opts Options) ([]*FileResult, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(paths)

	var results []*FileResult
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := e.EnrichFile(ctx, path, opts)
		if err != nil {
			return results, err
		}
		results = append(results, result)

		e.logger.Info("Enriched file",
			"path", path,
			"rows", len(result.Rows))
	}
	return results, nil
}
