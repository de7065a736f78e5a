// Package lookup maps AIS vessel-type and cargo codes to human readable
// descriptions.
package lookup

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Table maps integer codes to descriptions.
type Table struct {
	entries map[int]string
}

// NewTable creates a table from a code map. The map is copied.
func NewTable(entries map[int]string) *Table {
	t := &Table{entries: make(map[int]string, len(entries))}
	for code, desc := range entries {
		t.entries[code] = desc
	}
	return t
}

// Describe returns the description for code, or "Unknown".
func (t *Table) Describe(code int) string {
	if t != nil {
		if desc, ok := t.entries[code]; ok {
			return desc
		}
	}
	return "Unknown"
}

// Lookup returns the description for code and whether it exists.
func (t *Table) Lookup(code int) (string, bool) {
	if t == nil {
		return "", false
	}
	desc, ok := t.entries[code]
	return desc, ok
}

// Match returns every code whose description contains fragment
// (case-insensitive), in ascending order.
func (t *Table) Match(fragment string) []int {
	if t == nil {
		return nil
	}
	needle := strings.ToLower(strings.TrimSpace(fragment))
	if needle == "" {
		return nil
	}

	var codes []int
	for code, desc := range t.entries {
		if strings.Contains(strings.ToLower(desc), needle) {
			codes = append(codes, code)
		}
	}
	sort.Ints(codes)
	return codes
}

// Len returns the number of codes in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Merge overlays other onto t, replacing existing codes.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	for code, desc := range other.entries {
		t.entries[code] = desc
	}
}

// ReadCSV parses a Code,Description table. Extra columns are ignored.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	codeIdx, descIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "code":
			codeIdx = i
		case "description":
			descIdx = i
		}
	}
	if codeIdx < 0 || descIdx < 0 {
		return nil, fmt.Errorf("lookup table needs Code and Description columns, got %v", header)
	}

	entries := make(map[int]string)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if codeIdx >= len(row) || descIdx >= len(row) {
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(row[codeIdx]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad code %q: %w", line, row[codeIdx], err)
		}
		entries[code] = strings.TrimSpace(row[descIdx])
	}

	return &Table{entries: entries}, nil
}

// LoadFile reads a CSV table from path and overlays it on base.
// An empty path returns base unchanged.
func LoadFile(path string, base *Table) (*Table, error) {
	if path == "" {
		return base, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lookup table: %w", err)
	}
	defer func() { _ = f.Close() }()

	custom, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	merged := NewTable(nil)
	if base != nil {
		merged.Merge(base)
	}
	merged.Merge(custom)
	return merged, nil
}
