package journal

import (
	"context"
	"database/sql/driver"
	"errors"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// traceConnector opens sqlite3 connections that log every statement at
// debug level.
type traceConnector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
	logger *slog.Logger
}

func newTraceConnector(dsn string, logger *slog.Logger) *traceConnector {
	return &traceConnector{dsn: dsn, driver: &sqlite3.SQLiteDriver{}, logger: logger}
}

func (c *traceConnector) Connect(context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	sc, ok := conn.(*sqlite3.SQLiteConn)
	if !ok {
		_ = conn.Close()
		return nil, errors.New("journal: unexpected sqlite3 connection type")
	}
	return &traceConn{SQLiteConn: sc, logger: c.logger}, nil
}

func (c *traceConnector) Driver() driver.Driver { return c.driver }

// traceConn forwards to the sqlite3 connection, logging direct Exec and
// Query calls. Multi-statement scripts go through ExecContext unchanged.
type traceConn struct {
	*sqlite3.SQLiteConn
	logger *slog.Logger
}

func (c *traceConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := c.SQLiteConn.ExecContext(ctx, query, args)
	c.trace("exec", query, args, start, err)
	return res, err
}

func (c *traceConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	rows, err := c.SQLiteConn.QueryContext(ctx, query, args)
	c.trace("query", query, args, start, err)
	return rows, err
}

func (c *traceConn) trace(op, query string, args []driver.NamedValue, start time.Time, err error) {
	if !c.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	attrs := []any{"op", op, "sql", query, "args", vals, "took", time.Since(start)}
	if err != nil {
		attrs = append(attrs, "err", err)
	}
	c.logger.Debug("journal sql", attrs...)
}
