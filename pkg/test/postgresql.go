package test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	// Packages
	pg "github.com/mutablelogic/go-pgjobs"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Conn is a connection to a test database. The value set up by Main is
// shared by all tests in a package, and Begin returns a connection for a
// single test.
type Conn struct {
	pg.PoolConn
	url       string
	schema    string
	container *tcpostgres.PostgresContainer
	err       error
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	// Set this environment variable to a postgres:// URL to use an existing
	// server rather than starting a container
	EnvURL = "PGJOBS_TEST_URL"

	pgImage    = "postgres:17-alpine"
	pgDatabase = "pgjobs_test"
	pgUser     = "pgjobs"
	pgPassword = "password"
	pgTimeout  = 2 * time.Minute
)

var (
	seq atomic.Uint64
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// Main starts a database and runs the tests in the package. When no
// database can be started, tests which call Begin are skipped.
func Main(m *testing.M, conn *Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	*conn = connect(ctx)
	cancel()
	if conn.err != nil {
		fmt.Fprintln(os.Stderr, "postgres not available, skipping integration tests:", conn.err)
	}

	code := m.Run()

	// Tear down
	if conn.container != nil {
		if err := conn.container.Terminate(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	os.Exit(code)
}

// Begin returns a new pool for a test, with a schema name which is unique
// within the package. The test is skipped when there is no database.
func (c *Conn) Begin(t *testing.T) *Conn {
	t.Helper()
	if c.err != nil {
		t.Skip("postgres not available:", c.err)
	}

	pool, err := pg.NewPool(context.Background(), pg.WithURL(c.url), pg.WithApplicationName(t.Name()))
	if err != nil {
		t.Fatal(err)
	}
	return &Conn{
		PoolConn: pool,
		url:      c.url,
		schema:   fmt.Sprintf("test_%s_%d", sanitize(t.Name()), seq.Add(1)),
	}
}

// Close releases the pool
func (c *Conn) Close() {
	if c.PoolConn != nil {
		c.PoolConn.Close()
	}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Schema returns a schema name for the test
func (c *Conn) Schema() string {
	return c.schema
}

// URL returns the connection URL of the test database
func (c *Conn) URL() string {
	return c.url
}

// NewPool returns an additional pool to the same database, to simulate
// a second process
func (c *Conn) NewPool(t *testing.T) pg.PoolConn {
	t.Helper()
	pool, err := pg.NewPool(context.Background(), pg.WithURL(c.url))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	return pool
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func connect(ctx context.Context) (result Conn) {
	// Use an existing server
	if url := os.Getenv(EnvURL); url != "" {
		result.url = url
		result.err = ping(ctx, url)
		return
	}

	// The container runtime may panic when it cannot find a docker socket
	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("%v", r)
		}
	}()

	container, err := tcpostgres.Run(ctx, pgImage,
		tcpostgres.WithDatabase(pgDatabase),
		tcpostgres.WithUsername(pgUser),
		tcpostgres.WithPassword(pgPassword),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		result.err = err
		return
	}
	result.container = container

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		result.err = err
		return
	}
	result.url = url
	result.err = ping(ctx, url)
	return
}

func ping(ctx context.Context, url string) error {
	pool, err := pg.NewPool(ctx, pg.WithURL(url))
	if err != nil {
		return err
	}
	defer pool.Close()
	return pool.Ping(ctx)
}

// sanitize returns a test name suitable for a schema identifier
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	return name
}
