package core

import (
	"context"
	"time"
)

type (
	// Row is a single record as returned by the backend's row-query primitive.
	Row map[string]interface{}

	// Rows is the normalized response of a row query: the data is never nil,
	// a failed query yields an error and an empty (but valid) Data slice.
	Rows struct {
		Data   []Row
		Status int
	}

	// Query narrows a table read. Filters are column -> PostgREST-style
	// conditions (e.g. "eq.someid"). Select defaults to "*".
	Query struct {
		Select     string
		Filters    map[string]string
		OrderBy    string
		Descending bool
		Limit      int
	}

	// Session is an authenticated backend session.
	Session struct {
		AccessToken  string
		RefreshToken string
		ExpiresAt    time.Time
		UserID       string
		Email        string
		Role         string
	}

	// UserAttrs are the mutable attributes of the session user.
	UserAttrs map[string]interface{}

	// BackendClient is the narrow contract consumed from the hosted
	// backend-as-a-service: row queries, named RPCs, auth session primitives
	// and a lightweight liveness probe. The service's full API surface is an
	// external collaborator; nothing else of it is assumed.
	BackendClient interface {
		Select(ctx context.Context, table string, q Query) (Rows, error)
		Insert(ctx context.Context, table string, row Row) (Rows, error)
		Update(ctx context.Context, table, id string, row Row) (Rows, error)
		Delete(ctx context.Context, table, id string) error

		// RPC calls a named remote procedure; out is JSON-populated.
		RPC(ctx context.Context, fn string, args, out interface{}) error

		SignIn(ctx context.Context, email, password string) (Session, error)
		GetSession(ctx context.Context) (Session, error)
		UpdateSessionUser(ctx context.Context, attrs UserAttrs) (Session, error)

		// Ping is a side-effect-free HEAD probe of the backend's base endpoint.
		Ping(ctx context.Context) error
	}
)

// String reads a string column, tolerating absent or differently-typed values.
func (r Row) String(col string) string {
	if v, ok := r[col].(string); ok {
		return v
	}
	return ""
}

func (r Row) Int(col string) int {
	switch v := r[col].(type) {
	case float64: // encoding/json numbers
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (r Row) Bool(col string) bool {
	if v, ok := r[col].(bool); ok {
		return v
	}
	return false
}

func (r Row) Time(col string) time.Time {
	if v, ok := r[col].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC()
		}
	}
	if v, ok := r[col].(time.Time); ok {
		return v.UTC()
	}
	return time.Time{}
}
