package pg

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"

	// Packages
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type opt struct {
	url.Values
	tracer *tracer
	bind   *Bind
}

// Opt is a function which applies options for a connection pool
type Opt func(*opt) error

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	DefaultPort     = "5432"
	DefaultMaxConns = 10
	defaultHost     = "localhost"
	defaultDatabase = "postgres"
)

var (
	schemes = []string{"postgres", "postgresql"}
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func apply(opts ...Opt) (*opt, error) {
	o := &opt{
		Values: url.Values{
			"host":           []string{defaultHost},
			"port":           []string{DefaultPort},
			"pool_max_conns": []string{strconv.Itoa(DefaultMaxConns)},
		},
		bind: NewBind(),
	}
	for _, fn := range opts {
		if err := fn(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithURL sets connection parameters from a postgres:// URL. Query
// parameters are passed through as connection parameters.
func WithURL(value string) Opt {
	return func(o *opt) error {
		u, err := parseURL(value)
		if err != nil {
			return err
		}
		host, port, _ := net.SplitHostPort(u.Host)
		o.Set("host", host)
		o.Set("port", port)
		o.Set("dbname", strings.TrimPrefix(u.Path, "/"))
		if u.User != nil {
			if user := u.User.Username(); user != "" {
				o.Set("user", user)
			}
			if password, ok := u.User.Password(); ok {
				o.Set("password", password)
			}
		}
		for key, values := range u.Query() {
			o.Del(key)
			for _, v := range values {
				o.Add(key, v)
			}
		}
		return nil
	}
}

// WithCredentials sets the user and password. The user name is also the
// database name when none has been set.
func WithCredentials(user, password string) Opt {
	return func(o *opt) error {
		if user != "" {
			o.Set("user", user)
			if !o.Has("dbname") {
				o.Set("dbname", user)
			}
		}
		if password != "" {
			o.Set("password", password)
		}
		return nil
	}
}

// WithDatabase sets the database name, or removes it when empty
func WithDatabase(name string) Opt {
	return func(o *opt) error {
		if name == "" {
			o.Del("dbname")
		} else {
			o.Set("dbname", name)
		}
		return nil
	}
}

// WithSchemaSearchPath sets the search_path for each connection, or
// removes it when no schemas are given
func WithSchemaSearchPath(schemas ...string) Opt {
	return func(o *opt) error {
		if len(schemas) == 0 {
			o.Del("search_path")
		} else {
			o.Set("search_path", strings.Join(schemas, ","))
		}
		return nil
	}
}

// WithAddr sets the host, or host and port, of the server
func WithAddr(addr string) Opt {
	return func(o *opt) error {
		if !strings.Contains(addr, ":") {
			return WithHostPort(addr, "")(o)
		}
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return ErrBadParameter.With(err)
		}
		return WithHostPort(host, port)(o)
	}
}

// WithHostPort sets the host and port of the server. Empty values are ignored.
func WithHostPort(host, port string) Opt {
	return func(o *opt) error {
		if host != "" {
			o.Set("host", host)
		}
		if port != "" {
			if _, err := strconv.ParseUint(port, 10, 16); err != nil {
				return ErrBadParameter.Withf("invalid port %q", port)
			}
			o.Set("port", port)
		}
		return nil
	}
}

// WithSSLMode sets the ssl mode: "disable", "allow", "prefer", "require",
// "verify-ca" or "verify-full"
func WithSSLMode(mode string) Opt {
	return func(o *opt) error {
		switch mode {
		case "":
			return nil
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
			o.Set("sslmode", mode)
			return nil
		default:
			return ErrBadParameter.Withf("invalid sslmode %q", mode)
		}
	}
}

// WithApplicationName sets the name reported in pg_stat_activity
func WithApplicationName(name string) Opt {
	return func(o *opt) error {
		if name != "" {
			o.Set("application_name", name)
		}
		return nil
	}
}

// WithMaxConns sets the maximum number of pooled connections. Each runner
// and publisher holds one extra connection while listening.
func WithMaxConns(n int) Opt {
	return func(o *opt) error {
		if n <= 0 {
			return ErrBadParameter.Withf("invalid max connections %d", n)
		}
		o.Set("pool_max_conns", strconv.Itoa(n))
		return nil
	}
}

// WithTrace sets a function which is called after every query
func WithTrace(fn TraceFn) Opt {
	return func(o *opt) error {
		o.withTracer().TraceFn = fn
		return nil
	}
}

// WithTracer emits an OpenTelemetry span for every query
func WithTracer(t trace.Tracer) Opt {
	return func(o *opt) error {
		o.withTracer().otel = t
		return nil
	}
}

// WithBind sets a variable which is bound to every query on the pool
func WithBind(key string, value any) Opt {
	return func(o *opt) error {
		if o.bind.Set(key, value) == "" {
			return ErrBadParameter.With("empty bind key")
		}
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Encode returns the options as a keyword/value connection string
func (o *opt) Encode() string {
	return strings.Join(o.encode(), " ")
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (o *opt) withTracer() *tracer {
	if o.tracer == nil {
		o.tracer = new(tracer)
	}
	return o.tracer
}

// encode returns sorted key=value pairs, omitting the keys in skip
func (o *opt) encode(skip ...string) []string {
	keys := make([]string, 0, len(o.Values))
	for key := range o.Values {
		if !slices.Contains(skip, key) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if value := o.Get(key); value != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", key, quoteValue(value)))
		}
	}
	return parts
}

// quoteValue quotes a connection string value containing spaces or quotes
func quoteValue(value string) string {
	if !strings.ContainsAny(value, ` '\`) {
		return value
	}
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return "'" + value + "'"
}

// parseURL checks the scheme and fills in a missing host, port and database
func parseURL(value string) (*url.URL, error) {
	u, err := url.Parse(value)
	if err != nil {
		return nil, ErrBadParameter.With(err)
	}
	if u.Scheme == "" {
		u.Scheme = schemes[0]
	} else if !slices.Contains(schemes, u.Scheme) {
		return nil, ErrBadParameter.Withf("invalid database scheme %q", u.Scheme)
	}

	host, port := u.Hostname(), u.Port()
	if host == "" {
		host = defaultHost
	}
	if port == "" {
		port = DefaultPort
	}
	u.Host = net.JoinHostPort(host, port)

	if u.Path == "" || u.Path == "/" {
		if u.User != nil && u.User.Username() != "" {
			u.Path = "/" + u.User.Username()
		} else {
			u.Path = "/" + defaultDatabase
		}
	}

	return u, nil
}
