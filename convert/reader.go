package main

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// pipeReader streams records from a pipe-delimited CMS text file.
// The header row is consumed at construction and normalized to
// lower_snake column names.
type pipeReader struct {
	reader  *csv.Reader
	cols    map[string]int
	rowNum  int64
	closers []io.Closer
}

func newPipeReader(r io.Reader, latin1 bool) (*pipeReader, error) {
	if latin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}

	// Buffered reader for better I/O performance
	br := bufio.NewReaderSize(r, 256*1024)

	// Skip UTF-8 BOM if present
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.Comma = '|'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1 // trailing columns vary across quarters

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[columnName(h)] = i
	}

	return &pipeReader{reader: cr, cols: cols, rowNum: 1}, nil
}

// openArchiveTable opens the pipe-delimited .txt member of a CMS ZIP
// archive. Each quarterly archive holds exactly one table.
func openArchiveTable(zipPath string, latin1 bool) (*pipeReader, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	for _, f := range zr.File {
		if !strings.EqualFold(filepath.Ext(f.Name), ".txt") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			zr.Close()
			return nil, fmt.Errorf("open archive member %s: %w", f.Name, err)
		}
		pr, err := newPipeReader(rc, latin1)
		if err != nil {
			rc.Close()
			zr.Close()
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		pr.closers = []io.Closer{rc, zr}
		return pr, nil
	}

	zr.Close()
	return nil, fmt.Errorf("no .txt member in %s", zipPath)
}

// findArchive locates the quarterly ZIP for a dataset by normalized
// name prefix. CMS archive names carry the quarter suffix and
// inconsistent double spaces, so exact names cannot be hardcoded.
func findArchive(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read data directory: %w", err)
	}

	want := normalizeName(prefix)
	for _, e := range entries {
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".zip") {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.HasPrefix(normalizeName(base), want) {
			return filepath.Join(dir, name), nil
		}
	}
	return "", fmt.Errorf("no archive matching %q in %s", prefix, dir)
}

// normalizeName lowercases and collapses runs of whitespace.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Next returns the next non-empty record.
func (r *pipeReader) Next() ([]string, error) {
	for {
		rec, err := r.reader.Read()
		if err != nil {
			return nil, err
		}
		r.rowNum++
		if len(rec) == 0 || (len(rec) == 1 && rec[0] == "") {
			continue
		}
		return rec, nil
	}
}

// Field returns the named column of a record, "" when the column is
// absent or the record is short.
func (r *pipeReader) Field(rec []string, name string) string {
	idx, ok := r.cols[name]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func (r *pipeReader) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// columnName normalizes a source header to lower_snake.
func columnName(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// planKey builds the canonical contract|plan|segment join key.
func planKey(contractID, planID, segmentID string) string {
	return contractID + "|" + planID + "|" + segmentID
}

// parseFloat parses a string to float64 pointer, returns nil for empty
// or malformed values.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// Remove commas
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseInt32 parses a string to int32 pointer, nil for empty or
// malformed values. Accepts float renderings of integers ("30.0").
func parseInt32(s string) *int32 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int32(f)
	if float64(n) != f {
		return nil
	}
	return &n
}

// yn decodes the CMS Y/N flag columns.
func yn(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "Y")
}
