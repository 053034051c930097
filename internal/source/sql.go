package source

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"go-pgcopy-export/internal/model"
)

// SQLOpener opens sessions through database/sql.
type SQLOpener struct {
	Log logrus.FieldLogger
}

// Open implements Opener.
func (o SQLOpener) Open(ctx context.Context, spec model.SourceSpec) (Conn, error) {
	return OpenSQL(ctx, spec, o.Log)
}

// SQLConn is a source session pinned to one physical connection, so the
// session directives apply to the query that follows them.
type SQLConn struct {
	spec model.SourceSpec
	db   *sql.DB
	conn *sql.Conn
	log  logrus.FieldLogger
}

// OpenSQL connects to the database described by spec.
func OpenSQL(ctx context.Context, spec model.SourceSpec, log logrus.FieldLogger) (*SQLConn, error) {
	if !Supported(spec.Driver) {
		return nil, errors.Errorf("unsupported source driver %q", spec.Driver)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	dsn, err := DataSourceName(spec)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(spec.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s source", spec.Driver)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connect to %s source", spec.Driver)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, errors.Wrapf(err, "ping %s source", spec.Driver)
	}

	log.WithField("driver", spec.Driver).Debug("source connected")
	return &SQLConn{spec: spec, db: db, conn: conn, log: log}, nil
}

// ApplySession implements Conn.
func (c *SQLConn) ApplySession(ctx context.Context) error {
	for _, stmt := range SessionStatements(c.spec.Driver, c.spec.SessionSQL) {
		if _, err := c.conn.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "session directive %q", stmt)
		}
		c.log.WithField("sql", stmt).Debug("session directive applied")
	}
	return nil
}

// Query implements Conn.
func (c *SQLConn) Query(ctx context.Context, query string) (Cursor, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "run export query")
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "read result columns")
	}

	cur := &sqlCursor{
		rows: rows,
		cols: make([]Column, len(types)),
		dest: make([]any, len(types)),
		ptrs: make([]any, len(types)),
	}
	for i, t := range types {
		cur.cols[i] = Column{Name: t.Name(), DatabaseType: t.DatabaseTypeName()}
		cur.ptrs[i] = &cur.dest[i]
	}
	return cur, nil
}

// Close implements Conn.
func (c *SQLConn) Close() error {
	err := c.conn.Close()
	if dbErr := c.db.Close(); err == nil {
		err = dbErr
	}
	return errors.Wrap(err, "close source")
}

type sqlCursor struct {
	rows *sql.Rows
	cols []Column
	dest []any
	ptrs []any
}

func (c *sqlCursor) Columns() []Column { return c.cols }

func (c *sqlCursor) Next() bool { return c.rows.Next() }

func (c *sqlCursor) Values() ([]any, error) {
	for i := range c.dest {
		c.dest[i] = nil
	}
	// scanning into *any copies []byte values out of the driver's buffers
	if err := c.rows.Scan(c.ptrs...); err != nil {
		return nil, errors.Wrap(err, "scan row")
	}
	out := make([]any, len(c.dest))
	copy(out, c.dest)
	return out, nil
}

func (c *sqlCursor) Err() error {
	return errors.Wrap(c.rows.Err(), "iterate rows")
}

func (c *sqlCursor) Close() error {
	return errors.Wrap(c.rows.Close(), "close cursor")
}
