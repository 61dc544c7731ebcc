package admin

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Nono8Six/ia-learning-sub000/core/connect"
)

// Resource identifies an independently loaded admin collection.
type Resource string

const (
	ResourceUsers     Resource = "users"
	ResourceCourses   Resource = "courses"
	ResourceModules   Resource = "modules"
	ResourceCoupons   Resource = "coupons"
	ResourceDashboard Resource = "dashboard"
)

// beginLoad registers a new load for res and returns its sequence token.
// A token that is no longer current at commit time means the load was
// superseded by a newer one and its result must be discarded.
func (svc *Service) beginLoad(res Resource) uint64 {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.loadSeq[res]++
	svc.loading[res] = true
	return svc.loadSeq[res]
}

// commit applies a load result iff seq is still the current load for res.
func (svc *Service) commit(res Resource, seq uint64, apply func()) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.loadSeq[res] != seq {
		return false // superseded: the latest request's result wins
	}
	svc.loading[res] = false
	apply()
	return true
}

// loadCollection is the single load-with-fallback strategy applied to every
// resource loader: privilege guard, offline short-circuit to the fixed mock
// dataset, resilience-wrapped live load, and mock substitution on any
// failure. Callers always get a renderable, never-nil collection; load
// failures never escape as errors except the privilege guard.
func loadCollection[T any](
	ctx context.Context,
	svc *Service,
	res Resource,
	load func(ctx context.Context) ([]T, error),
	mock func() []T,
	store func([]T),
) ([]T, error) {
	if !svc.Privilege().Granted() {
		return nil, ErrNotPrivileged
	}
	seq := svc.beginLoad(res)

	if !svc.conn.Online() {
		data := mock()
		svc.commit(res, seq, func() {
			store(data)
			svc.offlineMode = true
		})
		return data, nil
	}

	var data []T
	err := svc.conn.WithRetry(ctx, fmt.Sprintf("load %s", res), func(ctx context.Context) error {
		var lerr error
		data, lerr = load(ctx)
		return lerr
	}, svc.conf.Backend.MaxRetries)

	if err != nil {
		cerr := asConnectError(err)
		svc.logger.Warn(fmt.Sprintf("loading %s failed, substituting demo data: %v", res, err), err)
		data = mock()
		svc.commit(res, seq, func() {
			store(data)
			svc.offlineMode = true
			svc.lastError = cerr
		})
		return data, nil
	}

	if data == nil {
		data = []T{}
	}
	svc.commit(res, seq, func() {
		store(data)
		svc.offlineMode = false
		svc.lastError = nil
	})
	return data, nil
}

func asConnectError(err error) *connect.Error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}
	return nil
}
