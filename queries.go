package pg

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Queries is an ordered set of named SQL statements. In the source text,
// each statement is introduced by a line of the form "-- name". Lines before
// the first name are ignored.
//
//	-- job.get
//	SELECT * FROM ${"schema"}.jobs WHERE id = @id
type Queries struct {
	keys []string
	sql  map[string]string
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	reQueryName = regexp.MustCompile(`^--\s*([a-zA-Z0-9_.-]+)\s*$`)
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewQueries reads named statements. Returns ErrBadParameter when a name is
// repeated or a statement is empty.
func NewQueries(r io.Reader) (*Queries, error) {
	q := &Queries{sql: make(map[string]string)}

	var name string
	var body strings.Builder
	flush := func() error {
		if name == "" {
			return nil
		}
		stmt := strings.TrimSpace(body.String())
		if stmt == "" {
			return ErrBadParameter.Withf("empty statement %q", name)
		}
		q.sql[name] = stmt
		q.keys = append(q.keys, name)
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if m := reQueryName.FindStringSubmatch(line); m != nil {
			if err := flush(); err != nil {
				return nil, err
			}
			if _, exists := q.sql[m[1]]; exists {
				return nil, ErrBadParameter.Withf("duplicate statement %q", m[1])
			}
			name = m[1]
			body.Reset()
		} else if name != "" {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return q, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Keys returns the statement names in the order they were read
func (q *Queries) Keys() []string {
	return q.keys
}

// Get returns a statement, or an empty string if it does not exist
func (q *Queries) Get(key string) string {
	return q.sql[key]
}
