package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/lambda-platform/lambda-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeResult implements sql.Result for the fake DBTX.
type fakeResult struct {
	rowsAffected int64
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// fakeDBTX implements store.DBTX, capturing ExecContext calls so write-path
// behavior can be checked without a live database. Query methods are not
// implemented; tests using them need a real connection.
type fakeDBTX struct {
	execFn    func(ctx context.Context, query string, args ...any) (sql.Result, error)
	execCalls int
	lastQuery string
	lastArgs  []any
}

var _ store.DBTX = (*fakeDBTX)(nil)

func (f *fakeDBTX) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.execCalls++
	f.lastQuery = query
	f.lastArgs = args
	if f.execFn != nil {
		return f.execFn(ctx, query, args...)
	}
	return fakeResult{rowsAffected: 1}, nil
}

func (f *fakeDBTX) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	panic("PrepareContext not supported by fakeDBTX")
}

func (f *fakeDBTX) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	panic("QueryContext not supported by fakeDBTX")
}

func (f *fakeDBTX) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	panic("QueryRowContext not supported by fakeDBTX")
}
