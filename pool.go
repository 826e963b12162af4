package pg

import (
	"context"
	"strings"

	// Packages
	pgxpool "github.com/jackc/pgx/v5/pgxpool"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type PoolConn interface {
	Conn

	// Acquire a connection and ping it
	Ping(context.Context) error

	// Release resources
	Close()

	// Return a listener which holds a dedicated connection from the pool
	Listener() Listener
}

type poolconn struct {
	pool *pgxpool.Pool
	bind *Bind
}

// Ensure interfaces are satisfied
var _ PoolConn = (*poolconn)(nil)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewPool creates a new connection pool to a PostgreSQL server.
func NewPool(ctx context.Context, opts ...Opt) (PoolConn, error) {
	o, err := apply(opts...)
	if err != nil {
		return nil, err
	}
	config, err := pgxpool.ParseConfig(o.Encode())
	if err != nil {
		return nil, err
	}

	// Set the query tracer, and report the connection parameters
	// (without the password) through it
	if o.tracer != nil {
		config.ConnConfig.Tracer = o.tracer
		if o.tracer.TraceFn != nil {
			params := make(map[string]string)
			for _, part := range o.encode("password") {
				if kv := strings.SplitN(part, "=", 2); len(kv) == 2 {
					params[kv[0]] = kv[1]
				}
			}
			o.tracer.TraceFn(ctx, "CONNECT", params, nil)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	// Return success
	return &poolconn{pool, o.bind}, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (p *poolconn) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *poolconn) Close() {
	p.pool.Close()
}

func (p *poolconn) Listener() Listener {
	return newListener(p.pool)
}

func (p *poolconn) With(params ...any) Conn {
	return &poolconn{p.pool, p.bind.Copy(params...)}
}

func (p *poolconn) WithQueries(queries ...*Queries) Conn {
	return &poolconn{p.pool, p.bind.withQueries(queries...)}
}

func (p *poolconn) Tx(ctx context.Context, fn func(Conn) error) error {
	return tx(ctx, p.pool, p.bind, fn)
}

func (p *poolconn) Serializable(ctx context.Context, fn func(Conn) error) error {
	return serializable(ctx, p.pool, p.bind, fn)
}

func (p *poolconn) Exec(ctx context.Context, query string) error {
	return pgerror(p.bind.exec(ctx, p.pool, query))
}

func (p *poolconn) Insert(ctx context.Context, reader Reader, writer Writer) error {
	return insert(ctx, p.pool, p.bind, reader, writer)
}

func (p *poolconn) Update(ctx context.Context, reader Reader, sel Selector, writer Writer) error {
	return update(ctx, p.pool, p.bind, reader, sel, writer)
}

func (p *poolconn) Get(ctx context.Context, reader Reader, sel Selector) error {
	return get(ctx, p.pool, p.bind, reader, sel)
}

func (p *poolconn) List(ctx context.Context, reader Reader, sel Selector) error {
	return list(ctx, p.pool, p.bind, reader, sel)
}
