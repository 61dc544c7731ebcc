package connect

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Nono8Six/ia-learning-sub000/core"
)

type (
	// Prober issues the lightweight liveness probe (core.BackendClient fits).
	Prober interface {
		Ping(ctx context.Context) error
	}

	// Service wraps every outbound backend call so failures are uniform,
	// observable and, where safe, retried. It owns the shared Status and
	// notifies subscribers when connectivity is regained.
	Service struct {
		conf   *core.Config
		probe  Prober
		logger core.Logger
		mail   core.EmailService // optional alert sink

		status  *Status
		nowFunc func() time.Time // mockable

		mu      sync.Mutex
		subs    []func()
		alerted bool
	}
)

// NewService wires the resilience layer. mail may be nil to disable the
// unreachable-backend alert email.
func NewService(conf *core.Config, probe Prober, logger core.Logger, mail core.EmailService) *Service {
	return &Service{
		conf:    conf,
		probe:   probe,
		logger:  logger,
		mail:    mail,
		status:  NewStatus(),
		nowFunc: time.Now,
	}
}

func (svc *Service) Status() StatusSnapshot { return svc.status.Snapshot() }

func (svc *Service) Online() bool { return svc.status.Online() }

// Subscribe registers fn to run whenever connectivity is confirmed regained.
func (svc *Service) Subscribe(fn func()) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.subs = append(svc.subs, fn)
}

// Do runs one backend call under the configured timeout, classifying any
// failure and updating the shared Status. When the connection is already
// known offline it fails fast with a network-classified error without
// touching the transport. The returned error is always a *connect.Error.
func (svc *Service) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return svc.do(ctx, name, fn, true)
}

func (svc *Service) do(ctx context.Context, name string, fn func(ctx context.Context) error, failFast bool) error {
	if failFast && !svc.status.Online() {
		return svc.offlineError(name)
	}

	ctx, cancel := context.WithTimeout(ctx, svc.conf.Backend.CallTimeout)
	defer cancel()

	err := fn(ctx)
	at := svc.nowFunc().UTC()
	if err == nil {
		svc.status.recordSuccess(at)
		svc.clearAlert()
		return nil
	}

	var cerr *Error
	if errors.Is(errors.Cause(err), context.DeadlineExceeded) {
		// distinct message from a plain connectivity failure, same kind
		cerr = newError(KindNetwork, fmt.Sprintf("%s: timed out contacting backend", name), 0, at, err)
	} else {
		cerr = classify(err, at)
	}
	svc.status.recordFailure(cerr)
	svc.logger.Warn(fmt.Sprintf("backend call %q failed: %v", name, cerr), cerr)
	svc.maybeAlert()
	return cerr
}

// WithRetry runs fn through Do and retries it up to maxAttempts extra times
// when the failure kind is retryable, with capped, jittered exponential
// backoff. A connection already known offline fails fast with no attempt at
// all; auth and rate-limit failures are surfaced after a single attempt.
func (svc *Service) WithRetry(ctx context.Context, name string, fn func(ctx context.Context) error, maxAttempts int) error {
	if !svc.status.Online() {
		return svc.offlineError(name)
	}

	var last error
	for attempt := 0; ; attempt++ {
		// bypass the offline fail-fast after the first attempt: a mid-retry
		// network failure has already flipped the status and the remaining
		// attempts are this call's chance to see it recover
		err := svc.do(ctx, name, fn, false)
		if err == nil {
			return nil
		}
		last = err
		if attempt >= maxAttempts || !Classify(err).Retryable() {
			break
		}

		svc.status.setRetryAttempt(attempt + 1)
		delay := backoffDelay(attempt, svc.conf.Backend.RetryBaseDelay, svc.conf.Backend.RetryMaxDelay)
		svc.logger.Debug(fmt.Sprintf("retrying %q in %v (attempt %d/%d)", name, delay, attempt+1, maxAttempts))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return last
		}
	}
	return last
}

// CheckConnection probes the backend's base endpoint under a short timeout
// and updates the Status exactly like Do's success/failure paths. It is safe
// to call repeatedly and concurrently.
func (svc *Service) CheckConnection(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.conf.Backend.ProbeTimeout)
	defer cancel()

	err := svc.probe.Ping(ctx)
	at := svc.nowFunc().UTC()
	if err == nil {
		svc.status.recordSuccess(at)
		svc.clearAlert()
		return true, nil
	}

	cerr := classify(err, at)
	svc.status.recordFailure(cerr)
	svc.maybeAlert()
	return false, cerr
}

// SetOffline applies a device/environment offline signal: reachability flips
// immediately, without waiting for a failed call.
func (svc *Service) SetOffline(reason string) {
	if reason == "" {
		reason = "offline signal received"
	}
	at := svc.nowFunc().UTC()
	svc.status.markOffline(newError(KindNetwork, reason, 0, at, errConnectionOffline))
	svc.logger.Info("connection marked offline: " + reason)
}

// SetOnline handles a device/environment online signal: the connection is
// probed and, when healthy, subscribers are told to reload.
func (svc *Service) SetOnline(ctx context.Context) bool {
	ok, err := svc.CheckConnection(ctx)
	if !ok {
		svc.logger.Warn(fmt.Sprintf("online signal received but probe failed: %v", err))
		return false
	}

	svc.mu.Lock()
	subs := make([]func(), len(svc.subs))
	copy(subs, svc.subs)
	svc.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
	return true
}

func (svc *Service) offlineError(name string) *Error {
	at := svc.nowFunc().UTC()
	return newError(KindNetwork, fmt.Sprintf("%s: connection is offline", name), 0, at, errConnectionOffline)
}

// maybeAlert emails the operator once per outage when the consecutive-error
// count crosses the configured threshold.
func (svc *Service) maybeAlert() {
	threshold := svc.conf.Backend.AlertThreshold
	if threshold <= 0 || svc.mail == nil || svc.conf.AlertEmail == "" {
		return
	}
	if svc.status.consecutive() < threshold {
		return
	}

	svc.mu.Lock()
	if svc.alerted {
		svc.mu.Unlock()
		return
	}
	svc.alerted = true
	svc.mu.Unlock()

	snap := svc.status.Snapshot()
	msg := fmt.Sprintf("The backend has failed %d calls in a row.\nLast error: %v\nLast checked: %s\n",
		snap.ConsecutiveErrors, snap.LastError, snap.LastChecked.Format(time.RFC3339))
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: svc.conf.AlertEmail}},
		Subject: "backend unreachable",
		Body:    msg,
	})
}

func (svc *Service) clearAlert() {
	svc.mu.Lock()
	svc.alerted = false
	svc.mu.Unlock()
}
