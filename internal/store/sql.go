package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const defaultTable = "ais"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// sqlSource reads the AIS columns from a database table.
type sqlSource struct {
	name   string
	driver string
	dsn    string
	table  string
}

func isSQLSpec(spec string) bool {
	for _, prefix := range []string{"sqlite://", "postgres://", "postgresql://", "mysql://"} {
		if strings.HasPrefix(spec, prefix) {
			return true
		}
	}
	return false
}

// newSQLSource parses sqlite://path, postgres://... or mysql://... URLs. The
// table is taken from the "table" query parameter and defaults to "ais";
// remaining parameters are passed to the driver.
func newSQLSource(spec string) (*sqlSource, error) {
	scheme, rest, _ := strings.Cut(spec, "://")
	base, rawQuery, _ := strings.Cut(rest, "?")

	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	table := params.Get("table")
	params.Del("table")
	if table == "" {
		table = defaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	src := &sqlSource{table: table}
	switch scheme {
	case "sqlite":
		src.driver = "sqlite"
		src.dsn = base
	case "postgres", "postgresql":
		src.driver = "pgx"
		src.dsn = scheme + "://" + base
	case "mysql":
		src.driver = "mysql"
		src.dsn = base
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}
	if encoded := params.Encode(); encoded != "" {
		src.dsn += "?" + encoded
	}
	if base == "" {
		return nil, fmt.Errorf("%s url has no database", scheme)
	}

	src.name = redact(scheme, base) + "#" + table
	return src, nil
}

func (s *sqlSource) Name() string { return s.name }

func (s *sqlSource) Scan(ctx context.Context, fn func(Row) error) error {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.driver, err)
	}
	defer func() { _ = db.Close() }()

	// table is validated against tableNamePattern
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+s.table)
	if err != nil {
		return fmt.Errorf("query %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns: %w", err)
	}
	h := newHeader(columns)
	if missing := h.missing(RequiredColumns); len(missing) > 0 {
		return fmt.Errorf("table %s: missing required columns %s", s.table, strings.Join(missing, ", "))
	}

	cells := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range cells {
		ptrs[i] = &cells[i]
	}

	line := 0
	for rows.Next() {
		line++
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row %d: %w", line, err)
		}
		values := make([]string, len(cells))
		for i, c := range cells {
			values[i] = cellString(c)
		}
		if err := fn(Row{Source: s.name, Line: line, header: h, values: values}); err != nil {
			return err
		}
	}
	return rows.Err()
}

// cellString renders a driver value the way it would appear in a CSV extract.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// redact drops credentials from a DSN so it can appear in logs and errors.
func redact(scheme, base string) string {
	if at := strings.LastIndex(base, "@"); at >= 0 {
		base = base[at+1:]
	}
	return scheme + "://" + base
}
