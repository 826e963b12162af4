package pg

import (
	"context"
	"errors"

	// Packages
	pgx "github.com/jackc/pgx/v5"
	pgxpool "github.com/jackc/pgx/v5/pgxpool"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type Conn interface {
	// Return a new connection with bound parameters
	With(...any) Conn

	// Return a new connection with bound queries
	WithQueries(...*Queries) Conn

	// Perform a transaction within a function
	Tx(context.Context, func(Conn) error) error

	// Perform a SERIALIZABLE transaction within a function. Only available
	// on a pool connection, as the isolation level cannot be changed once a
	// transaction has started.
	Serializable(context.Context, func(Conn) error) error

	// Execute a query
	Exec(context.Context, string) error

	// Perform an insert
	Insert(context.Context, Reader, Writer) error

	// Perform an update
	Update(context.Context, Reader, Selector, Writer) error

	// Perform a get
	Get(context.Context, Reader, Selector) error

	// Perform a list. If the reader is a ListReader, then the
	// count of items is also calculated
	List(context.Context, Reader, Selector) error
}

// Op represents a database operation type.
type Op uint

// Row is a pgx.Row for scanning query results.
type Row pgx.Row

// Reader scans a database row into an object.
type Reader interface {
	// Scan row into a result
	Scan(Row) error
}

// ListReader scans database rows and counts total results.
type ListReader interface {
	Reader

	// Scan count into the result
	ScanCount(Row) error
}

// Writer binds object fields for insert or update operations.
type Writer interface {
	// Set bind parameters for an insert
	Insert(*Bind) (string, error)

	// Set bind parameters for an update
	Update(*Bind) error
}

// Selector binds parameters for get, update or list operations.
type Selector interface {
	// Set bind parameters for getting, updating or listing
	Select(*Bind, Op) (string, error)
}

// Connection within a transaction
type conn struct {
	tx   pgx.Tx
	bind *Bind
}

// Ensure interfaces are satisfied
var _ Conn = (*conn)(nil)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Operations
const (
	None Op = iota
	Get
	Insert
	Update
	List
)

func (o Op) String() string {
	switch o {
	case Get:
		return "GET"
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case List:
		return "LIST"
	}
	return "UNKNOWN"
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - CONN

func (p *conn) With(params ...any) Conn {
	return &conn{p.tx, p.bind.Copy(params...)}
}

func (p *conn) WithQueries(queries ...*Queries) Conn {
	return &conn{p.tx, p.bind.withQueries(queries...)}
}

// Tx creates a savepoint within the current transaction
func (p *conn) Tx(ctx context.Context, fn func(Conn) error) error {
	return tx(ctx, p.tx, p.bind, fn)
}

func (p *conn) Serializable(context.Context, func(Conn) error) error {
	return ErrNotAvailable.With("isolation level cannot be set within a transaction")
}

func (p *conn) Exec(ctx context.Context, query string) error {
	return pgerror(p.bind.exec(ctx, p.tx, query))
}

func (p *conn) Insert(ctx context.Context, reader Reader, writer Writer) error {
	return insert(ctx, p.tx, p.bind, reader, writer)
}

func (p *conn) Update(ctx context.Context, reader Reader, sel Selector, writer Writer) error {
	return update(ctx, p.tx, p.bind, reader, sel, writer)
}

func (p *conn) Get(ctx context.Context, reader Reader, sel Selector) error {
	return get(ctx, p.tx, p.bind, reader, sel)
}

func (p *conn) List(ctx context.Context, reader Reader, sel Selector) error {
	return list(ctx, p.tx, p.bind, reader, sel)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// Each operation works on a copy of the bind, so that selectors and writers
// can set variables without affecting the connection

func tx(ctx context.Context, parent executor, bind *Bind, fn func(Conn) error) error {
	tx, err := parent.Begin(ctx)
	if err != nil {
		return pgerror(err)
	}
	return run(ctx, tx, bind, fn)
}

func serializable(ctx context.Context, pool *pgxpool.Pool, bind *Bind, fn func(Conn) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return pgerror(err)
	}
	return run(ctx, tx, bind, fn)
}

// run calls fn, then commits on success or rolls back on error. A commit
// which fails (for example with a serialization failure) is returned.
func run(ctx context.Context, tx pgx.Tx, bind *Bind, fn func(Conn) error) error {
	if err := fn(&conn{tx, bind.Copy()}); err != nil {
		return errors.Join(pgerror(err), tx.Rollback(ctx))
	}
	return pgerror(tx.Commit(ctx))
}

func insert(ctx context.Context, conn executor, bind *Bind, reader Reader, writer Writer) error {
	bind = bind.Copy()
	query, err := writer.Insert(bind)
	if err != nil {
		return err
	}
	return exec(ctx, conn, bind, query, reader)
}

func update(ctx context.Context, conn executor, bind *Bind, reader Reader, sel Selector, writer Writer) error {
	bind = bind.Copy()
	query, err := sel.Select(bind, Update)
	if err != nil {
		return err
	}
	if writer != nil {
		if err := writer.Update(bind); err != nil {
			return err
		}
	}
	return exec(ctx, conn, bind, query, reader)
}

func get(ctx context.Context, conn executor, bind *Bind, reader Reader, sel Selector) error {
	bind = bind.Copy()
	query, err := sel.Select(bind, Get)
	if err != nil {
		return err
	}
	return exec(ctx, conn, bind, query, reader)
}

func list(ctx context.Context, conn executor, bind *Bind, reader Reader, sel Selector) error {
	bind = bind.Copy()
	bind.Set("offsetlimit", "")
	query, err := sel.Select(bind, List)
	if err != nil {
		return err
	}

	// Count the rows if the reader is a ListReader
	if counter, ok := reader.(ListReader); ok {
		row := bind.queryRow(ctx, conn, `WITH sq AS (`+query+`) SELECT COUNT(*) AS "count" FROM sq`)
		if err := counter.ScanCount(row); err != nil {
			return pgerror(err)
		}
	}

	// An empty list is not an error
	if err := exec(ctx, conn, bind, query+` ${offsetlimit}`, reader); errors.Is(err, ErrNotFound) {
		return nil
	} else {
		return err
	}
}

func exec(ctx context.Context, conn executor, bind *Bind, query string, reader Reader) error {
	if reader == nil {
		return pgerror(bind.exec(ctx, conn, query))
	}

	rows, err := bind.query(ctx, conn, query)
	if err != nil {
		return pgerror(err)
	}
	defer rows.Close()

	var scanned bool
	for rows.Next() {
		if err := reader.Scan(rows); err != nil {
			return pgerror(err)
		}
		scanned = true
	}
	if err := rows.Err(); err != nil {
		return pgerror(err)
	} else if !scanned {
		return ErrNotFound
	}

	return nil
}
