// Package karpdb executes compiled plans against the MySQL/MariaDB store:
// one scoped connection per request, concurrent per-resource count
// probes, and the cumulative cross-resource pagination algorithm.
package karpdb

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/sprakbanken/karp-s/internal/apperr"
	"github.com/sprakbanken/karp-s/internal/sqlplan"
)

// DB wraps the connection pool and the SQL audit logger.
type DB struct {
	pool   *sqlx.DB
	logger *logrus.Logger
}

// Open establishes the connection pool against the given MySQL DSN.
func Open(dsn string, logger *logrus.Logger) (*DB, error) {
	pool, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("karpdb: open: %w", err)
	}
	return &DB{pool: pool, logger: logger}, nil
}

func (db *DB) Close() error { return db.pool.Close() }

// Session acquires one scoped connection for the lifetime of a single
// caller request, matching the concurrency model where readers never
// share a connection across requests.
func (db *DB) Session(ctx context.Context) (*Session, error) {
	conn, err := db.pool.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("karpdb: acquire session: %w", err)
	}
	return &Session{conn: conn, logger: db.logger}, nil
}

// Session is one request-scoped database connection.
type Session struct {
	conn   *sqlx.Conn
	logger *logrus.Logger
}

func (s *Session) Close() error { return s.conn.Close() }

// Row is one decoded result row, column name to decoded value.
type Row map[string]any

// fetchAll executes sql and returns its column names and raw scanned
// rows, logging the query text and its execution time to the SQL audit
// log regardless of outcome.
func (s *Session) fetchAll(ctx context.Context, query string) ([]string, [][]any, error) {
	start := time.Now()
	rows, err := s.conn.QueryContext(ctx, query)
	took := time.Since(start)

	fields := logrus.Fields{"q": query, "took_s": took.Seconds()}
	if err != nil {
		fields["error"] = true
		s.logger.WithFields(fields).Error("query failed")
		return nil, nil, fmt.Errorf("karpdb: query: %w", err)
	}
	defer rows.Close()
	s.logger.WithFields(fields).Info("query")

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("karpdb: columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("karpdb: scan: %w", err)
		}
		for i, v := range raw {
			if b, ok := v.([]byte); ok {
				raw[i] = string(b)
			}
		}
		out = append(out, raw)
	}
	return columns, out, rows.Err()
}

// CountOnly renders and executes a plan's count-only form, returning the
// single COUNT(*) scalar.
func (s *Session) CountOnly(ctx context.Context, q *sqlplan.Query) (int, error) {
	_, countSQL := q.ToString(true, true)
	if countSQL == "" {
		return 0, apperr.NewInternal("count query has no count-only rendering")
	}
	_, rows, err := s.fetchAll(ctx, countSQL)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, apperr.NewInternal("count query returned no rows")
	}
	return toInt(rows[0][0])
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		var out int
		_, err := fmt.Sscanf(n, "%d", &out)
		return out, err
	default:
		return 0, apperr.NewInternal("unexpected count value type %T", v)
	}
}
