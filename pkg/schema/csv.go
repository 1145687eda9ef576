package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// csvSampleRows bounds how much of a file is read for inference.
	csvSampleRows    = 1000
	sampleRowLimit   = 5
	sampleValueLimit = 3
)

// datetimeLayouts are tried in order when sniffing datetime columns.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// InferCSV reads up to the first 1000 rows of the file at path and
// infers per-column types and statistics. The first record is treated
// as the header row.
func InferCSV(path string, logger *slog.Logger) (*Schema, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV file %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("CSV file %q is empty", path)
		}
		return nil, fmt.Errorf("reading CSV header from %q: %w", path, err)
	}

	rows := make([][]string, 0, 64)
	for len(rows) < csvSampleRows {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d from %q: %w", len(rows)+2, path, err)
		}
		rows = append(rows, record)
	}

	schema := &Schema{
		RowCount: len(rows),
		Columns:  make([]Column, 0, len(header)),
	}

	for i, name := range header {
		schema.Columns = append(schema.Columns, inferColumn(name, columnValues(rows, i)))
	}

	for _, row := range rows[:min(sampleRowLimit, len(rows))] {
		sample := make(map[string]any, len(header))
		for i, name := range header {
			if i >= len(row) || row[i] == "" {
				sample[name] = nil
				continue
			}
			sample[name] = coerce(row[i], schema.Columns[i].Type)
		}
		schema.SampleRows = append(schema.SampleRows, sample)
	}

	logger.Debug("inferred CSV schema",
		"path", path,
		"columns", len(schema.Columns),
		"rows_sampled", schema.RowCount)

	return schema, nil
}

// columnValues extracts column i from every row, padding short rows
// with the empty string.
func columnValues(rows [][]string, i int) []string {
	values := make([]string, len(rows))
	for j, row := range rows {
		if i < len(row) {
			values[j] = row[i]
		}
	}
	return values
}

func inferColumn(name string, values []string) Column {
	col := Column{Name: name}

	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			col.Nullable = true
			continue
		}
		nonEmpty = append(nonEmpty, v)
	}

	col.Type = sniffType(nonEmpty)

	seen := make(map[string]struct{}, len(nonEmpty))
	for _, v := range nonEmpty {
		seen[v] = struct{}{}
	}
	col.UniqueCount = len(seen)

	for _, v := range nonEmpty[:min(sampleValueLimit, len(nonEmpty))] {
		col.SampleValues = append(col.SampleValues, coerce(v, col.Type))
	}

	if col.Type == TypeInteger || col.Type == TypeNumber {
		col.Min, col.Max, col.Mean = numericStats(nonEmpty)
	}
	return col
}

// sniffType picks the narrowest type every non-empty value fits. An
// all-empty column defaults to text.
func sniffType(values []string) string {
	if len(values) == 0 {
		return TypeText
	}

	isInt, isNum, isBool, isTime := true, true, true, true
	for _, v := range values {
		v = strings.TrimSpace(v)
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isNum {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isNum = false
			}
		}
		if isBool && !parseableBool(v) {
			isBool = false
		}
		if isTime && !parseableTime(v) {
			isTime = false
		}
	}

	switch {
	case isBool:
		return TypeBoolean
	case isInt:
		return TypeInteger
	case isNum:
		return TypeNumber
	case isTime:
		return TypeDatetime
	default:
		return TypeText
	}
}

func parseableBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false":
		return true
	}
	return false
}

func parseableTime(v string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// coerce converts a raw CSV field according to the inferred column
// type so that sample values marshal as JSON numbers and booleans
// rather than strings.
func coerce(v, typ string) any {
	v = strings.TrimSpace(v)
	switch typ {
	case TypeInteger:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case TypeNumber:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case TypeBoolean:
		return strings.EqualFold(v, "true")
	}
	return v
}

func numericStats(values []string) (minV, maxV, mean *float64) {
	var sum float64
	var count int
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			continue
		}
		sum += f
		count++
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if count == 0 {
		return nil, nil, nil
	}
	avg := sum / float64(count)
	return &lo, &hi, &avg
}
