package connect

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Nono8Six/ia-learning-sub000/core"
)

// Kind is the closed taxonomy of backend failure categories.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindAuth      Kind = "auth"
	KindServer    Kind = "server"
	KindRateLimit Kind = "rate_limit"
	KindDatabase  Kind = "database"
	KindUnknown   Kind = "unknown"
)

// Retryable reports whether failures of this kind may be retried automatically.
// Auth failures need user action and rate limits need restraint, never retries.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindServer, KindDatabase, KindUnknown:
		return true
	}
	return false
}

var errConnectionOffline = errors.New("connection is offline")

// Error is the classified, normalized failure envelope every backend call
// resolves to. Raw transport errors never escape this package.
type Error struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Status    int       `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// IsOffline reports whether err is the fail-fast error raised when a call is
// refused because the connection is already known to be offline.
func IsOffline(err error) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return errors.Is(cerr.cause, errConnectionOffline)
	}
	return errors.Is(err, errConnectionOffline)
}

func newError(kind Kind, msg string, status int, at time.Time, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Status: status, Timestamp: at, cause: cause}
}

// Classify maps any error to its failure Kind. It is pure and deterministic:
// the same error shape always yields the same kind. Rule order is fixed and
// first match wins.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}

	cause := errors.Cause(err)

	// offline signal & transport-level failures
	if errors.Is(cause, errConnectionOffline) {
		return KindNetwork
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(cause, &netErr) {
		return KindNetwork
	}
	var urlErr *url.Error
	if errors.As(cause, &urlErr) {
		return KindNetwork
	}

	// backend error envelopes
	var apiErr *core.APIError
	if errors.As(cause, &apiErr) {
		switch {
		case apiErr.Status == 401:
			return KindAuth
		case apiErr.Status == 429:
			return KindRateLimit
		case apiErr.Status >= 500:
			return KindServer
		case isDatabaseCode(apiErr.Code):
			return KindDatabase
		case isAuthMessage(apiErr.Message):
			return KindAuth
		}
		return KindUnknown
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "timeout"):
		return KindNetwork
	case isAuthMessage(msg):
		return KindAuth
	}
	return KindUnknown
}

// classify wraps err into a timestamped *Error, preserving an existing one.
func classify(err error, at time.Time) *Error {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}
	status := 0
	var apiErr *core.APIError
	if errors.As(errors.Cause(err), &apiErr) {
		status = apiErr.Status
	}
	return newError(Classify(err), err.Error(), status, at, err)
}

func isAuthMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "jwt") ||
		strings.Contains(msg, "api key") ||
		strings.Contains(msg, "not authenticated") ||
		strings.Contains(msg, "not authorized") ||
		strings.Contains(msg, "invalid credentials")
}

// isDatabaseCode matches the backend's database error codes: PostgREST codes
// and Postgres SQLSTATEs for integrity (23xxx), syntax/access (42xxx) and
// insufficient resources (53xxx).
func isDatabaseCode(code string) bool {
	if code == "" {
		return false
	}
	if strings.HasPrefix(code, "PGRST") {
		return true
	}
	if len(code) == 5 {
		switch code[:2] {
		case "23", "42", "53":
			return true
		}
	}
	return false
}
