package admin

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Nono8Six/ia-learning-sub000/core/connect"
)

// PrivilegeState is the admin-access resolution state machine. The four
// non-checking states are terminal: only an explicit retry re-enters checking.
type PrivilegeState string

const (
	PrivilegeUnknown       PrivilegeState = ""
	PrivilegeChecking      PrivilegeState = "checking"
	Privileged             PrivilegeState = "privileged"
	NotPrivileged          PrivilegeState = "not_privileged"
	PrivilegeOfflineDenied PrivilegeState = "offline_denied"
	PrivilegeTimedOut      PrivilegeState = "timed_out"
)

// Granted reports whether admin access is allowed. Every state but
// Privileged denies: verification that cannot complete fails closed.
func (s PrivilegeState) Granted() bool { return s == Privileged }

func (svc *Service) Privilege() PrivilegeState {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.privilege
}

func (svc *Service) setPrivilege(st PrivilegeState) {
	svc.mu.Lock()
	svc.privilege = st
	svc.mu.Unlock()
}

// ResolvePrivilege asks the backend whether the current principal is an
// admin. Offline at check time denies conservatively; an unanswered check
// within the call ceiling resolves to timed-out, which denies like
// not-privileged but surfaces its own message.
func (svc *Service) ResolvePrivilege(ctx context.Context) PrivilegeState {
	svc.setPrivilege(PrivilegeChecking)

	if !svc.conn.Online() {
		svc.setPrivilege(PrivilegeOfflineDenied)
		return PrivilegeOfflineDenied
	}

	var isAdmin bool
	err := svc.conn.Do(ctx, "privilege check", func(ctx context.Context) error {
		return svc.backend.RPC(ctx, "is_admin", nil, &isAdmin)
	})

	var st PrivilegeState
	switch {
	case err == nil && isAdmin:
		st = Privileged
	case err == nil:
		st = NotPrivileged
	case errors.Is(err, context.DeadlineExceeded):
		st = PrivilegeTimedOut
	case connect.Classify(err) == connect.KindNetwork:
		st = PrivilegeOfflineDenied
	default:
		// auth failures and anything unconfirmed deny access
		st = NotPrivileged
	}
	if err != nil {
		svc.recordError(err)
	}
	svc.setPrivilege(st)
	return st
}

// RetryPrivilege re-enters checking from any terminal state.
func (svc *Service) RetryPrivilege(ctx context.Context) PrivilegeState {
	return svc.ResolvePrivilege(ctx)
}
