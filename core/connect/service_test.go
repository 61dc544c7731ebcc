package connect

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/Nono8Six/ia-learning-sub000/core"
	dummymail "github.com/Nono8Six/ia-learning-sub000/services/email/dummy"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeProbe struct {
	err   error
	calls int
}

func (p *fakeProbe) Ping(context.Context) error {
	p.calls++
	return p.err
}

func at(sec int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, sec, 0, time.UTC)
}

func newTestService(probe Prober) *Service {
	conf := &core.Config{}
	conf.Backend.CallTimeout = time.Second
	conf.Backend.ProbeTimeout = time.Second
	conf.Backend.RetryBaseDelay = time.Millisecond
	conf.Backend.RetryMaxDelay = 5 * time.Millisecond
	if probe == nil {
		probe = &fakeProbe{}
	}
	return NewService(conf, probe, nopLogger{}, nil)
}

func TestDoSuccessResetsCounters(t *testing.T) {
	svc := newTestService(nil)

	// pile up failures first
	fail := func(context.Context) error { return core.NewAPIError(500, "", "boom") }
	for i := 0; i < 3; i++ {
		if err := svc.Do(context.Background(), "op", fail); err == nil {
			t.Fatal("Do() expected error")
		}
	}
	svc.status.setRetryAttempt(2)

	snap := svc.Status()
	if snap.ConsecutiveErrors != 3 || snap.ErrorCount != 3 {
		t.Fatalf("unexpected pre-state: %+v", snap)
	}

	if err := svc.Do(context.Background(), "op", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	snap = svc.Status()
	if snap.ConsecutiveErrors != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0", snap.ConsecutiveErrors)
	}
	if snap.RetryAttempt != 0 {
		t.Errorf("RetryAttempt = %d, want 0", snap.RetryAttempt)
	}
	if !snap.Online {
		t.Error("Online = false, want true")
	}
	if snap.ErrorCount != 3 {
		t.Errorf("ErrorCount = %d, want 3 (lifetime count not reset)", snap.ErrorCount)
	}
}

func TestDoOfflineFailsFast(t *testing.T) {
	svc := newTestService(nil)
	svc.SetOffline("flight mode")

	var calls int
	err := svc.Do(context.Background(), "list courses", func(context.Context) error {
		calls++
		return nil
	})

	if calls != 0 {
		t.Errorf("transport invoked %d times, want 0", calls)
	}
	if !IsOffline(err) {
		t.Errorf("IsOffline() = false, err = %v", err)
	}
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindNetwork {
		t.Errorf("error kind = %v, want %v", Classify(err), KindNetwork)
	}
}

func TestDoRemapsTimeout(t *testing.T) {
	svc := newTestService(nil)
	svc.conf.Backend.CallTimeout = 10 * time.Millisecond

	err := svc.Do(context.Background(), "slow op", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Do() error = %v, want *connect.Error", err)
	}
	if cerr.Kind != KindNetwork {
		t.Errorf("Kind = %v, want %v", cerr.Kind, KindNetwork)
	}
	if cerr.Message != "slow op: timed out contacting backend" {
		t.Errorf("unexpected timeout message: %q", cerr.Message)
	}
	if svc.Online() {
		t.Error("Online = true after network failure, want false")
	}
}

func TestDoNetworkFailureFlipsOffline(t *testing.T) {
	svc := newTestService(nil)

	_ = svc.Do(context.Background(), "op", func(context.Context) error { return timeoutErr{} })
	if svc.Online() {
		t.Error("Online = true after network error, want false")
	}

	// non-network failures must not flip reachability
	svc2 := newTestService(nil)
	_ = svc2.Do(context.Background(), "op", func(context.Context) error { return core.NewAPIError(500, "", "boom") })
	if !svc2.Online() {
		t.Error("Online = false after server error, want true")
	}
}

func TestDoAlertEmailOnThreshold(t *testing.T) {
	mail := dummymail.NewService()
	conf := &core.Config{AlertEmail: "ops@example.com"}
	conf.Backend.CallTimeout = time.Second
	conf.Backend.AlertThreshold = 3
	svc := NewService(conf, &fakeProbe{}, nopLogger{}, mail)

	fail := func(context.Context) error { return core.NewAPIError(500, "", "boom") }
	for i := 0; i < 5; i++ {
		_ = svc.Do(context.Background(), "op", fail)
	}

	sent := mail.Sent()
	if len(sent) != 1 {
		t.Fatalf("alert emails sent = %d, want exactly 1 per outage", len(sent))
	}
	if to := sent[0].To[0].Address; to != "ops@example.com" {
		t.Errorf("alert recipient = %q", to)
	}

	// a success ends the outage; the next threshold crossing alerts again
	_ = svc.Do(context.Background(), "op", func(context.Context) error { return nil })
	for i := 0; i < 3; i++ {
		_ = svc.Do(context.Background(), "op", fail)
	}
	if got := len(mail.Sent()); got != 2 {
		t.Errorf("alert emails sent = %d, want 2 after a second outage", got)
	}
}

func TestWithRetryExhaustion(t *testing.T) {
	svc := newTestService(nil)

	var calls int
	err := svc.WithRetry(context.Background(), "op", func(context.Context) error {
		calls++
		return core.NewAPIError(500, "", "still down")
	}, 3)

	if calls != 4 {
		t.Errorf("operation invoked %d times, want 4 (initial + 3 retries)", calls)
	}
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindServer {
		t.Errorf("WithRetry() error = %v, want server-classified", err)
	}
}

func TestWithRetryAuthNotRetried(t *testing.T) {
	svc := newTestService(nil)

	var calls int
	err := svc.WithRetry(context.Background(), "op", func(context.Context) error {
		calls++
		return core.NewAPIError(401, "", "JWT expired")
	}, 5)

	if calls != 1 {
		t.Errorf("operation invoked %d times, want 1", calls)
	}
	if kind := Classify(err); kind != KindAuth {
		t.Errorf("error kind = %v, want %v", kind, KindAuth)
	}
}

func TestWithRetryRateLimitNotRetried(t *testing.T) {
	svc := newTestService(nil)

	var calls int
	_ = svc.WithRetry(context.Background(), "op", func(context.Context) error {
		calls++
		return core.NewAPIError(429, "", "slow down")
	}, 5)

	if calls != 1 {
		t.Errorf("operation invoked %d times, want 1", calls)
	}
}

func TestWithRetryOfflineNoAttempt(t *testing.T) {
	svc := newTestService(nil)
	svc.SetOffline("")

	var calls int
	err := svc.WithRetry(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	}, 3)

	if calls != 0 {
		t.Errorf("operation invoked %d times while offline, want 0", calls)
	}
	if !IsOffline(err) {
		t.Errorf("IsOffline() = false, err = %v", err)
	}
}

func TestWithRetryRecovers(t *testing.T) {
	svc := newTestService(nil)

	var calls int
	err := svc.WithRetry(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return timeoutErr{} // network kind: flips offline mid-retry
		}
		return nil
	}, 5)

	if err != nil {
		t.Fatalf("WithRetry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("operation invoked %d times, want 3", calls)
	}
	if !svc.Online() {
		t.Error("Online = false after recovery, want true")
	}
}

func TestCheckConnection(t *testing.T) {
	probe := &fakeProbe{err: timeoutErr{}}
	svc := newTestService(probe)

	ok, err := svc.CheckConnection(context.Background())
	if ok || err == nil {
		t.Fatalf("CheckConnection() = %v, %v; want unhealthy", ok, err)
	}
	if svc.Online() {
		t.Error("Online = true after failed probe, want false")
	}

	probe.err = nil
	ok, err = svc.CheckConnection(context.Background())
	if !ok || err != nil {
		t.Fatalf("CheckConnection() = %v, %v; want healthy", ok, err)
	}
	if !svc.Online() {
		t.Error("Online = false after successful probe, want true")
	}
}

func TestSetOnlineNotifiesSubscribers(t *testing.T) {
	probe := &fakeProbe{}
	svc := newTestService(probe)
	svc.SetOffline("")

	var reloaded int
	svc.Subscribe(func() { reloaded++ })

	if ok := svc.SetOnline(context.Background()); !ok {
		t.Fatal("SetOnline() = false, want true")
	}
	if reloaded != 1 {
		t.Errorf("subscriber invoked %d times, want 1", reloaded)
	}
	if !svc.Online() {
		t.Error("Online = false after online signal, want true")
	}
}

func TestSetOnlineUnhealthyProbeStaysOffline(t *testing.T) {
	probe := &fakeProbe{err: timeoutErr{}}
	svc := newTestService(probe)
	svc.SetOffline("")

	var reloaded int
	svc.Subscribe(func() { reloaded++ })

	if ok := svc.SetOnline(context.Background()); ok {
		t.Fatal("SetOnline() = true, want false")
	}
	if reloaded != 0 {
		t.Errorf("subscriber invoked %d times, want 0", reloaded)
	}
	if svc.Online() {
		t.Error("Online = true after failed probe, want false")
	}
}

func TestStatusDiscardsStaleUpdates(t *testing.T) {
	status := NewStatus()

	status.recordSuccess(at(10))
	status.recordFailure(newError(KindNetwork, "late straggler", 0, at(5), nil))

	snap := status.Snapshot()
	if !snap.Online {
		t.Error("stale failure overwrote fresher success")
	}
	if snap.ErrorCount != 0 {
		t.Errorf("ErrorCount = %d, want 0", snap.ErrorCount)
	}
	if !snap.LastChecked.Equal(at(10)) {
		t.Errorf("LastChecked = %v, want %v", snap.LastChecked, at(10))
	}

	status.recordFailure(newError(KindNetwork, "fresh failure", 0, at(15), nil))
	status.recordSuccess(at(12))
	snap = status.Snapshot()
	if snap.Online {
		t.Error("stale success overwrote fresher failure")
	}
}

func TestBackoffDelayBounds(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second
	for attempt := 0; attempt < 20; attempt++ {
		d := backoffDelay(attempt, base, max)
		if d < 0 {
			t.Fatalf("attempt %d: negative delay %v", attempt, d)
		}
		if d > max+max/4 {
			t.Fatalf("attempt %d: delay %v beyond cap + jitter", attempt, d)
		}
	}
}
