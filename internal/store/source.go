package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoSources is returned when the configured sources expand to nothing.
var ErrNoSources = errors.New("no AIS sources found")

// ErrNoRecords is returned when every source was read but none held a record.
var ErrNoRecords = errors.New("AIS sources hold no records")

// Source produces tabular AIS rows in a stable order.
type Source interface {
	// Name identifies the source in errors and statistics.
	Name() string

	// Scan calls fn for every data row. Returning an error from fn stops the scan.
	Scan(ctx context.Context, fn func(Row) error) error
}

// Row is one data row with access to cells by column name.
type Row struct {
	Source string
	Line   int // 1-based line in the source; the header is line 1 for delimited files
	header *header
	values []string
}

// Get returns the trimmed cell for column and whether it is present and non-empty.
func (r Row) Get(column string) (string, bool) {
	idx, ok := r.header.index[column]
	if !ok || idx >= len(r.values) {
		return "", false
	}
	v := strings.TrimSpace(r.values[idx])
	if v == "" {
		return "", false
	}
	return v, true
}

type header struct {
	index map[string]int
}

// newHeader maps column names to positions. Names are matched exactly after
// trimming whitespace and a UTF-8 byte order mark.
func newHeader(columns []string) *header {
	h := &header{index: make(map[string]int, len(columns))}
	for i, col := range columns {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, dup := h.index[col]; !dup {
			h.index[col] = i
		}
	}
	return h
}

func (h *header) missing(required []string) []string {
	var out []string
	for _, col := range required {
		if _, ok := h.index[col]; !ok {
			out = append(out, col)
		}
	}
	return out
}

// ExpandSources turns source specifications into Sources. Local directories
// are walked for data files, globs are expanded, s3:// and SQL URLs are
// handed to their respective implementations. Order follows specs, and
// files within a directory or glob are sorted by path.
func ExpandSources(ctx context.Context, specs []string, opts Options) ([]Source, error) {
	var sources []Source
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		switch {
		case strings.HasPrefix(spec, "s3://"):
			s3Sources, err := expandS3(ctx, spec, opts)
			if err != nil {
				return nil, fmt.Errorf("expand %s: %w", spec, err)
			}
			sources = append(sources, s3Sources...)

		case isSQLSpec(spec):
			src, err := newSQLSource(spec)
			if err != nil {
				return nil, fmt.Errorf("expand %s: %w", spec, err)
			}
			sources = append(sources, src)

		default:
			paths, err := expandLocal(spec)
			if err != nil {
				return nil, fmt.Errorf("expand %s: %w", spec, err)
			}
			for _, p := range paths {
				sources = append(sources, newFileSource(p, opts.delimiter()))
			}
		}
	}

	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	return sources, nil
}

func expandLocal(spec string) ([]string, error) {
	if strings.ContainsAny(spec, "*?[") {
		matches, err := filepath.Glob(spec)
		if err != nil {
			return nil, err
		}
		var paths []string
		for _, m := range matches {
			if isDataFile(m) {
				paths = append(paths, m)
			}
		}
		sort.Strings(paths)
		return paths, nil
	}

	info, err := os.Stat(spec)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{spec}, nil
	}

	var paths []string
	err = filepath.WalkDir(spec, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isDataFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// isDataFile reports whether name looks like an AIS extract or archive.
func isDataFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range []string{".csv", ".tsv", ".gz", ".zip", ".zst"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
