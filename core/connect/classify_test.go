package connect

import (
	"context"
	"net"
	"net/url"
	"testing"

	"github.com/pkg/errors"

	"github.com/Nono8Six/ia-learning-sub000/core"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "offline sentinel", err: errConnectionOffline, want: KindNetwork},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: KindNetwork},
		{name: "net timeout", err: timeoutErr{}, want: KindNetwork},
		{name: "url error", err: &url.Error{Op: "Get", URL: "https://x", Err: errors.New("connection refused")}, want: KindNetwork},
		{name: "connection refused message", err: errors.New("dial tcp 10.0.0.1:443: connect: connection refused"), want: KindNetwork},
		{name: "http 401", err: core.NewAPIError(401, "", "JWT expired"), want: KindAuth},
		{name: "auth message", err: core.NewAPIError(400, "", "invalid API key provided"), want: KindAuth},
		{name: "http 429", err: core.NewAPIError(429, "", "too many requests"), want: KindRateLimit},
		{name: "http 500", err: core.NewAPIError(500, "", "internal error"), want: KindServer},
		{name: "http 503", err: core.NewAPIError(503, "", "service unavailable"), want: KindServer},
		{name: "postgrest code", err: core.NewAPIError(400, "PGRST301", "JWT malformed... or not"), want: KindDatabase},
		{name: "integrity sqlstate", err: core.NewAPIError(409, "23505", "duplicate key value"), want: KindDatabase},
		{name: "5xx beats sqlstate", err: core.NewAPIError(500, "42703", "column does not exist"), want: KindServer},
		{name: "wrapped api error", err: errors.Wrap(core.NewAPIError(500, "", "boom"), "selecting courses"), want: KindServer},
		{name: "already classified", err: newError(KindDatabase, "db", 0, at(0), nil), want: KindDatabase},
		{name: "plain error", err: errors.New("something odd"), want: KindUnknown},
		{name: "nil", err: nil, want: KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
			// pure function: repeated calls agree
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() second call = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindNetwork, true},
		{KindServer, true},
		{KindDatabase, true},
		{KindUnknown, true},
		{KindAuth, false},
		{KindRateLimit, false},
	}
	for _, tt := range tests {
		if got := tt.kind.Retryable(); got != tt.want {
			t.Errorf("%v.Retryable() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
