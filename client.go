package wowsql

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// KeyRole is the credential tier of an API key. The SDK only transmits the
// key; the role is derived from the key prefix for the caller's convenience
// and carries no client-side permission logic.
type KeyRole string

const (
	// KeyRoleService is a service-role key (sk_ prefix), full access.
	KeyRoleService KeyRole = "service"
	// KeyRoleAnonymous is an anonymous/public key (pk_ prefix).
	KeyRoleAnonymous KeyRole = "anonymous"
	// KeyRoleUnknown is any key without a recognized prefix.
	KeyRoleUnknown KeyRole = "unknown"
)

func roleForKey(key string) KeyRole {
	switch {
	case strings.HasPrefix(key, "sk_"):
		return KeyRoleService
	case strings.HasPrefix(key, "pk_"):
		return KeyRoleAnonymous
	default:
		return KeyRoleUnknown
	}
}

// Client talks to the WowSQL database API. It is safe for concurrent use;
// builders produced by Table are not.
type Client struct {
	t    *transport
	role KeyRole
}

// NewClient creates a database client for the given base URL and API key.
// The default request timeout is DefaultTimeout.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	t, err := newTransport(baseURL, apiKey, o)
	if err != nil {
		return nil, err
	}
	return &Client{t: t, role: roleForKey(apiKey)}, nil
}

// KeyRole returns the credential tier derived from the configured API key.
func (c *Client) KeyRole() KeyRole {
	return c.role
}

// Table returns a fresh QueryBuilder scoped to the named table. An empty
// name surfaces as a configuration error on the builder's terminal call.
func (c *Client) Table(name string) *QueryBuilder {
	return newQueryBuilder(c.t, name)
}

// ListTables returns the project's table names in the server's order.
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	var wire struct {
		Tables []string `json:"tables"`
	}
	desc := &RequestDescriptor{Method: "GET", Path: "/v1/tables"}
	if err := c.t.doJSON(ctx, desc, &wire); err != nil {
		return nil, err
	}
	return wire.Tables, nil
}

// Column describes one column of a table schema.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
	Default    any    `json:"default,omitempty"`
}

// TableSchema is the introspected schema of a single table.
type TableSchema struct {
	Table   string
	Columns []Column
}

// GetTableSchema fetches the column definitions for a table.
func (c *Client) GetTableSchema(ctx context.Context, table string) (*TableSchema, error) {
	if table == "" {
		return nil, configurationError("table name is required")
	}
	var wire struct {
		Columns []Column `json:"columns"`
	}
	desc := &RequestDescriptor{Method: "GET", Path: "/v1/tables/" + url.PathEscape(table) + "/schema"}
	if err := c.t.doJSON(ctx, desc, &wire); err != nil {
		return nil, err
	}
	return &TableSchema{Table: table, Columns: wire.Columns}, nil
}

// HealthStatus is the service liveness report.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Health reports service liveness. A degraded-but-reachable service (any
// HTTP status with a decodable status body) is a successful call; only
// transport and authentication failures return an error.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	desc := &RequestDescriptor{Method: "GET", Path: "/v1/health"}
	resp, err := c.t.roundTrip(ctx, desc)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, classifyResponse(resp.StatusCode, raw)
	}

	var hs HealthStatus
	if err := decodeJSON(raw, &hs); err == nil && hs.Status != "" {
		return &hs, nil
	}
	if resp.StatusCode >= 400 {
		return nil, classifyResponse(resp.StatusCode, raw)
	}
	return nil, schemaError(nil, raw)
}
