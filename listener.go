package pg

import (
	"context"
	"sync"

	// Packages
	pgx "github.com/jackc/pgx/v5"
	pgxpool "github.com/jackc/pgx/v5/pgxpool"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Listener receives notifications sent with NOTIFY on one or more channels.
// A listener holds a dedicated connection from the pool from the first call
// to Listen until Close.
type Listener interface {
	// Subscribe to a channel
	Listen(context.Context, string) error

	// Unsubscribe from a channel
	Unlisten(context.Context, string) error

	// Block until a notification is received or the context is done
	WaitForNotification(context.Context) (*Notification, error)

	// Release the connection back to the pool
	Close(context.Context) error
}

// Notification is a message received on a channel
type Notification struct {
	Channel string
	Payload []byte
}

type listener struct {
	sync.Mutex
	pool *pgxpool.Pool
	conn *pgxpool.Conn
}

// Ensure interfaces are satisfied
var _ Listener = (*listener)(nil)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newListener(pool *pgxpool.Pool) *listener {
	return &listener{pool: pool}
}

// Close unsubscribes from all channels and releases the connection
func (l *listener) Close(ctx context.Context) error {
	l.Lock()
	defer l.Unlock()

	if l.conn == nil {
		return nil
	}

	// A connection which cannot be reset is destroyed rather than returned
	var result error
	if _, err := l.conn.Exec(ctx, "UNLISTEN *"); err != nil {
		result = err
		_ = l.conn.Conn().Close(ctx)
	}
	l.conn.Release()
	l.conn = nil

	return result
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (l *listener) Listen(ctx context.Context, channel string) error {
	conn, err := l.acquire(ctx)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize())
	return err
}

func (l *listener) Unlisten(ctx context.Context, channel string) error {
	conn, err := l.acquire(ctx)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, "UNLISTEN "+pgx.Identifier{channel}.Sanitize())
	return err
}

func (l *listener) WaitForNotification(ctx context.Context) (*Notification, error) {
	l.Lock()
	conn := l.conn
	l.Unlock()
	if conn == nil {
		return nil, ErrNotAvailable.With("listener has no subscriptions")
	}

	n, err := conn.Conn().WaitForNotification(ctx)
	if err != nil {
		return nil, err
	}
	return &Notification{
		Channel: n.Channel,
		Payload: []byte(n.Payload),
	}, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (l *listener) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	l.Lock()
	defer l.Unlock()

	if l.conn == nil {
		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		l.conn = conn
	}
	return l.conn, nil
}
