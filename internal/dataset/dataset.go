// Package dataset extracts the raw entity names of a dataset file.
//
// Names are trimmed, empty values dropped and duplicates removed keeping
// the first occurrence, so the result can be handed straight to a
// harmonization session.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"entity-harmonizer/internal/common"
)

// ErrColumnNotFound is returned when the requested column is not in the header.
var ErrColumnNotFound = errors.New("column not found")

// ReadFile reads the names of path. ".txt" files hold one name per line;
// ".tsv" files are tab separated; anything else is read as CSV with a
// header row, taking column (or the first column when empty).
func ReadFile(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var names []string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		names, err = ReadLines(f)
	case ".tsv":
		names, err = readColumn(f, column, '\t')
	default:
		names, err = ReadColumn(f, column)
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	return names, nil
}

// ReadColumn reads a CSV document with a header row and returns the
// distinct values of column. Column names match case-insensitively.
func ReadColumn(r io.Reader, column string) ([]string, error) {
	return readColumn(r, column, ',')
}

func readColumn(r io.Reader, column string, comma rune) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}

		return nil, err
	}

	col := findColumn(header, column)
	if col < 0 {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrColumnNotFound, column, strings.Join(header, ", "))
	}

	var values []string

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		if col < len(row) {
			values = append(values, row[col])
		}
	}

	return Distinct(values), nil
}

// ReadLines returns the distinct non-empty lines of r.
func ReadLines(r io.Reader) ([]string, error) {
	var values []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		values = append(values, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return Distinct(values), nil
}

// Distinct trims values, drops empty ones and removes duplicates keeping
// the first occurrence.
func Distinct(values []string) []string {
	trimmed := make([]string, 0, len(values))

	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			trimmed = append(trimmed, v)
		}
	}

	return common.Unique(trimmed)
}

func findColumn(header []string, column string) int {
	if column == "" {
		if len(header) == 0 {
			return -1
		}

		return 0
	}

	for i, h := range header {
		if strings.EqualFold(cleanCell(h), strings.TrimSpace(column)) {
			return i
		}
	}

	return -1
}

func cleanCell(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}
