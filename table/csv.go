package table

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// WriteCSV persists the table as one CSV file, header first, creating
// parent directories as needed.
func (t *Table) WriteCSV(path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(t.cols); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(t.cols))
	for _, row := range t.rows {
		for i, col := range t.cols {
			record[i] = formatValue(row[col])
		}
		if err := writer.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv records: %w", err)
	}
	return f.Close()
}

// WriteJSONL persists the table as newline-delimited JSON objects.
func (t *Table) WriteJSONL(path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create jsonl file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	for _, row := range t.rows {
		if err := encoder.Encode(row); err != nil {
			f.Close()
			return fmt.Errorf("encode jsonl record: %w", err)
		}
	}

	if err := buffer.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush jsonl writer: %w", err)
	}
	return f.Close()
}

// ReadCSV loads a previously written flat file. All cell values come back
// as strings.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv file: %w", err)
	}
	if len(records) == 0 {
		return New(), nil
	}

	header := records[0]
	t := &Table{cols: append([]string(nil), header...)}
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// Compile concatenates every prefix*.csv file under dir into one table,
// files in lexical order. It is the read-back step consumed by the external
// preprocessing stage.
func Compile(dir, prefix string) (*Table, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob %s*.csv: %w", prefix, err)
	}
	sort.Strings(matches)

	combined := New()
	for _, path := range matches {
		part, err := ReadCSV(path)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", filepath.Base(path), err)
		}
		combined.Concat(part)
	}
	return combined, nil
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		// Residual nested values (maps, slices) are kept as JSON text.
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(encoded)
	}
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
