package sql

import (
	_ "embed"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Objects are the statements which create the schema, in order. They are
// idempotent and are run in a single transaction.
//
//go:embed objects.sql
var Objects string

// Queries are the named statements used by the manager, publisher and runner
//
//go:embed queries.sql
var Queries string
