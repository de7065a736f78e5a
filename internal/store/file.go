package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/ppiankov/vesselinfo/internal/model"
)

// fileSource reads a local delimited file, optionally compressed.
type fileSource struct {
	path      string
	delimiter rune
}

func newFileSource(p string, delimiter rune) *fileSource {
	return &fileSource{path: p, delimiter: delimiterFor(p, delimiter)}
}

func (s *fileSource) Name() string { return s.path }

func (s *fileSource) Scan(ctx context.Context, fn func(Row) error) error {
	if strings.HasSuffix(strings.ToLower(s.path), ".zip") {
		zr, err := zip.OpenReader(s.path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer func() { _ = zr.Close() }()
		return scanZip(ctx, s.path, &zr.Reader, s.delimiter, fn)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	r, closeFn, err := decompress(s.path, f)
	if err != nil {
		return err
	}
	defer closeFn()

	return scanDelimited(ctx, s.path, r, s.delimiter, fn)
}

// decompress wraps r according to the file extension of name.
func decompress(name string, r io.Reader) (io.Reader, func(), error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return gz, func() { _ = gz.Close() }, nil
	case strings.HasSuffix(lower, ".zst"):
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return dec, dec.Close, nil
	default:
		return r, func() {}, nil
	}
}

// scanZip reads every delimited member of an archive in name order. Each
// member is reported as "archive!member".
func scanZip(ctx context.Context, archive string, zr *zip.Reader, delimiter rune, fn func(Row) error) error {
	members := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(f.Name))
		if ext == ".csv" || ext == ".tsv" {
			members = append(members, f)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })

	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return err
		}
		rc, err := m.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", m.Name, err)
		}
		name := archive + "!" + m.Name
		err = scanDelimited(ctx, name, rc, delimiterFor(m.Name, delimiter), fn)
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// scanDelimited reads a header row followed by data rows.
func scanDelimited(ctx context.Context, name string, r io.Reader, delimiter rune, fn func(Row) error) error {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	columns, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewLoadError(name, 1, strings.Join(RequiredColumns, ","), "missing required column", nil)
		}
		return fmt.Errorf("read header: %w", err)
	}
	h := newHeader(columns)
	if missing := h.missing(RequiredColumns); len(missing) > 0 {
		return model.NewLoadError(name, 1, strings.Join(missing, ","), "missing required column", nil)
	}

	var line int
	for {
		values, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return model.NewLoadError(name, perr.Line, "", "malformed row", perr.Err)
			}
			return fmt.Errorf("read line %d: %w", line, err)
		}
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		ln, _ := reader.FieldPos(0)
		if err := fn(Row{Source: name, Line: ln, header: h, values: values}); err != nil {
			return err
		}
	}
}

// delimiterFor picks tab for .tsv files and def otherwise.
func delimiterFor(name string, def rune) rune {
	lower := strings.ToLower(name)
	lower = strings.TrimSuffix(lower, ".gz")
	lower = strings.TrimSuffix(lower, ".zst")
	if strings.HasSuffix(lower, ".tsv") {
		return '\t'
	}
	if def == 0 {
		return ','
	}
	return def
}
