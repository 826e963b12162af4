package types

import (
	"regexp"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	reIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	reNumeric    = regexp.MustCompile(`^[0-9]+$`)
)

// Maximum length of a postgres identifier
const identifierMaxLen = 63

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Quote returns a string as a single-quoted SQL literal
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// DoubleQuote returns a string as a double-quoted SQL identifier
func DoubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// IsIdentifier returns true if the string can be used unquoted as a
// schema, table or channel name
func IsIdentifier(s string) bool {
	return len(s) <= identifierMaxLen && reIdentifier.MatchString(s)
}

// IsNumeric returns true if the string is a sequence of digits
func IsNumeric(s string) bool {
	return reNumeric.MatchString(s)
}

// IsSingleQuoted returns true if the string is surrounded by single quotes
func IsSingleQuoted(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'")
}

// IsDoubleQuoted returns true if the string is surrounded by double quotes
func IsDoubleQuoted(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)
}
