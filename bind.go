package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"strings"
	"sync"

	// Packages
	pgx "github.com/jackc/pgx/v5"
	pgconn "github.com/jackc/pgx/v5/pgconn"
	types "github.com/mutablelogic/go-pgjobs/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Bind holds the named variables for a query. Variables are used in two
// ways: ${key} is substituted into the query text before execution, and
// @key is passed to the server as a named argument.
type Bind struct {
	sync.RWMutex
	vars pgx.NamedArgs
}

// executor is satisfied by both a pool and a transaction
type executor interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewBind creates a Bind from name/value pairs. Returns nil if the pairs
// are unbalanced or a name is empty.
func NewBind(pairs ...any) *Bind {
	vars, ok := pairsToArgs(make(pgx.NamedArgs, len(pairs)>>1), pairs...)
	if !ok {
		return nil
	}
	return &Bind{vars: vars}
}

// Copy returns a new Bind with the same variables plus any additional
// name/value pairs. Returns nil if the pairs are invalid.
func (bind *Bind) Copy(pairs ...any) *Bind {
	bind.RLock()
	vars := make(pgx.NamedArgs, len(bind.vars)+(len(pairs)>>1))
	maps.Copy(vars, bind.vars)
	bind.RUnlock()

	if vars, ok := pairsToArgs(vars, pairs...); !ok {
		return nil
	} else {
		return &Bind{vars: vars}
	}
}

// withQueries returns a copy of the bind with each named query set as
// a variable, so that ${query.key} expands to the query text.
func (bind *Bind) withQueries(queries ...*Queries) *Bind {
	if len(queries) == 0 {
		return bind
	}
	c := bind.Copy()
	for _, q := range queries {
		for _, key := range q.Keys() {
			c.vars[key] = q.Get(key)
		}
	}
	return c
}

///////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (bind *Bind) MarshalJSON() ([]byte, error) {
	bind.RLock()
	defer bind.RUnlock()
	return json.Marshal(bind.vars)
}

func (bind *Bind) String() string {
	data, err := json.MarshalIndent(bind, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Set sets a variable and returns the named-argument placeholder for it.
func (bind *Bind) Set(key string, value any) string {
	if key == "" {
		return ""
	}

	bind.Lock()
	defer bind.Unlock()
	bind.vars[key] = value
	return "@" + key
}

// Get returns a variable, or nil if it does not exist.
func (bind *Bind) Get(key string) any {
	bind.RLock()
	defer bind.RUnlock()
	return bind.vars[key]
}

// Has returns true if the variable exists.
func (bind *Bind) Has(key string) bool {
	bind.RLock()
	defer bind.RUnlock()
	_, ok := bind.vars[key]
	return ok
}

// Del removes a variable.
func (bind *Bind) Del(key string) {
	bind.Lock()
	defer bind.Unlock()
	delete(bind.vars, key)
}

// Append appends a value to a list variable, creating it if necessary.
// Returns false if the variable exists and is not a list.
func (bind *Bind) Append(key string, value any) bool {
	bind.Lock()
	defer bind.Unlock()

	if _, exists := bind.vars[key]; !exists {
		bind.vars[key] = make([]any, 0, 4)
	}
	list, ok := bind.vars[key].([]any)
	if !ok {
		return false
	}
	bind.vars[key] = append(list, value)
	return true
}

// Join returns a list variable joined with a separator, or the variable
// formatted as a string when it is not a list.
func (bind *Bind) Join(key, sep string) string {
	bind.RLock()
	defer bind.RUnlock()

	value, exists := bind.vars[key]
	if !exists {
		return ""
	}
	list, ok := value.([]any)
	if !ok {
		return fmt.Sprint(value)
	}
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, sep)
}

// Query returns the named query with ${...} references substituted, and
// sets the query name as the span name for tracing.
func (bind *Bind) Query(key string) string {
	bind.Lock()
	defer bind.Unlock()
	bind.vars[TraceSpanNameArg] = key
	query, _ := bind.vars[key].(string)
	return replace(query, bind.vars)
}

// Replace returns the query with ${...} references substituted:
//   - ${key} => value
//   - ${'key'} => 'value' (a []string becomes a comma-separated list)
//   - ${"key"} => "value"
//   - $1 => $1
//   - $$ => $$
func (bind *Bind) Replace(query string) string {
	bind.RLock()
	defer bind.RUnlock()
	return replace(query, bind.vars)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - QUERY

func (bind *Bind) queryRow(ctx context.Context, conn executor, query string) pgx.Row {
	bind.RLock()
	defer bind.RUnlock()
	return conn.QueryRow(ctx, replace(query, bind.vars), bind.vars)
}

func (bind *Bind) query(ctx context.Context, conn executor, query string) (pgx.Rows, error) {
	bind.RLock()
	defer bind.RUnlock()
	return conn.Query(ctx, replace(query, bind.vars), bind.vars)
}

func (bind *Bind) exec(ctx context.Context, conn executor, query string) error {
	bind.RLock()
	defer bind.RUnlock()
	_, err := conn.Exec(ctx, replace(query, bind.vars), bind.vars)
	return err
}

func pairsToArgs(vars pgx.NamedArgs, pairs ...any) (pgx.NamedArgs, bool) {
	if len(pairs)%2 != 0 {
		return nil, false
	}
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok || key == "" {
			return nil, false
		}
		vars[key] = pairs[i+1]
	}
	return vars, true
}

func replace(query string, vars pgx.NamedArgs) string {
	fetch := func(key string) string {
		return fmt.Sprint(vars[key])
	}
	return os.Expand(query, func(key string) string {
		switch {
		case key == "$":
			return "$$"
		case types.IsNumeric(key):
			return "$" + key
		case types.IsSingleQuoted(key):
			key = strings.Trim(key, "'")
			if list, ok := vars[key].([]string); ok {
				quoted := make([]string, len(list))
				for i, s := range list {
					quoted[i] = types.Quote(s)
				}
				return strings.Join(quoted, ",")
			}
			return types.Quote(fetch(key))
		case types.IsDoubleQuoted(key):
			return types.DoubleQuote(fetch(strings.Trim(key, `"`)))
		default:
			return fetch(key)
		}
	})
}
