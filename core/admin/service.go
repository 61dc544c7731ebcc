package admin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Nono8Six/ia-learning-sub000/core"
	"github.com/Nono8Six/ia-learning-sub000/core/connect"
)

var (
	// errors
	ErrNotPrivileged      = errors.New("admin privilege required")
	ErrUnavailableOffline = errors.New("unavailable while offline")
)

type (
	// Service is the admin-session coordinator: it gates access by
	// privilege, loads and mutates each admin resource collection through
	// the resilience layer, and guarantees the caller always has a
	// renderable (real-or-mock) dataset. It exclusively owns the in-memory
	// copies; the backend owns the durable ones.
	Service struct {
		conf     *core.Config
		conn     *connect.Service
		backend  core.BackendClient
		notify   core.Notifier
		logger   core.Logger
		validate *validator.Validate

		mu               sync.Mutex
		privilege        PrivilegeState
		offlineMode      bool
		lastError        *connect.Error
		loading          map[Resource]bool
		loadSeq          map[Resource]uint64
		users            []AdminUser
		courses          []Course
		modules          []Module
		expandedCourseID string
		coupons          []Coupon
		dashboard        Dashboard
	}

	// State is a read-only snapshot of the session for the UI layer.
	State struct {
		Privilege        PrivilegeState    `json:"privilege"`
		OfflineMode      bool              `json:"offline_mode"`
		LastError        *connect.Error    `json:"last_error,omitempty"`
		Loading          map[Resource]bool `json:"loading"`
		Users            []AdminUser       `json:"users"`
		Courses          []Course          `json:"courses"`
		Modules          []Module          `json:"modules"`
		ExpandedCourseID string            `json:"expanded_course_id,omitempty"`
		Coupons          []Coupon          `json:"coupons"`
		Dashboard        Dashboard         `json:"dashboard"`
	}
)

func NewService(
	conf *core.Config,
	conn *connect.Service,
	backend core.BackendClient,
	notify core.Notifier,
	logger core.Logger,
	validate *validator.Validate,
) *Service {
	svc := &Service{
		conf:     conf,
		conn:     conn,
		backend:  backend,
		notify:   notify,
		logger:   logger,
		validate: validate,
		loading:  make(map[Resource]bool),
		loadSeq:  make(map[Resource]uint64),
	}
	conn.Subscribe(svc.onReconnect)
	return svc
}

// State returns a copy of the current session state.
func (svc *Service) State() State {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	st := State{
		Privilege:        svc.privilege,
		OfflineMode:      svc.offlineMode,
		LastError:        svc.lastError,
		Loading:          make(map[Resource]bool, len(svc.loading)),
		Users:            append([]AdminUser(nil), svc.users...),
		Courses:          append([]Course(nil), svc.courses...),
		Modules:          append([]Module(nil), svc.modules...),
		ExpandedCourseID: svc.expandedCourseID,
		Coupons:          append([]Coupon(nil), svc.coupons...),
		Dashboard:        svc.dashboard,
	}
	for res, b := range svc.loading {
		st.Loading[res] = b
	}
	return st
}

func (svc *Service) OfflineMode() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.offlineMode
}

func (svc *Service) recordError(err error) {
	if cerr := asConnectError(err); cerr != nil {
		svc.mu.Lock()
		svc.lastError = cerr
		svc.mu.Unlock()
	}
}

// onReconnect replaces previously substituted demo data with live data as
// soon as connectivity is confirmed back, without user action.
func (svc *Service) onReconnect() {
	if !svc.Privilege().Granted() {
		return
	}
	svc.notify.Info("connection restored, refreshing data")
	svc.ReloadAll(context.Background())
}

// ReloadAll re-issues every collection load the session currently cares
// about. Loads are independent: one failing does not block the others.
func (svc *Service) ReloadAll(ctx context.Context) {
	_, _ = svc.LoadCourses(ctx)
	_, _ = svc.LoadUsers(ctx)
	_, _ = svc.LoadCoupons(ctx)
	_, _ = svc.LoadDashboard(ctx)

	svc.mu.Lock()
	courseID := svc.expandedCourseID
	svc.mu.Unlock()
	if courseID != "" {
		_, _ = svc.LoadModules(ctx, courseID)
	}
}

// Collection loads

func (svc *Service) LoadCourses(ctx context.Context) ([]Course, error) {
	return loadCollection(ctx, svc, ResourceCourses,
		func(ctx context.Context) ([]Course, error) {
			rows, err := svc.backend.Select(ctx, "courses", core.Query{
				Select:  "*, modules(count)",
				OrderBy: "order_index",
			})
			if err != nil {
				return nil, err
			}
			out := make([]Course, 0, len(rows.Data))
			for _, r := range rows.Data {
				out = append(out, courseFromRow(r))
			}
			return out, nil
		},
		MockCourses,
		func(data []Course) { svc.courses = data },
	)
}

func (svc *Service) LoadModules(ctx context.Context, courseID string) ([]Module, error) {
	if courseID == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "this field is required"})
	}
	return loadCollection(ctx, svc, ResourceModules,
		func(ctx context.Context) ([]Module, error) {
			rows, err := svc.backend.Select(ctx, "modules", core.Query{
				Filters: map[string]string{"course_id": "eq." + courseID},
				OrderBy: "order_index",
			})
			if err != nil {
				return nil, err
			}
			out := make([]Module, 0, len(rows.Data))
			for _, r := range rows.Data {
				out = append(out, moduleFromRow(r))
			}
			return out, nil
		},
		func() []Module { return MockModules(courseID) },
		func(data []Module) {
			svc.modules = data
			svc.expandedCourseID = courseID
		},
	)
}

func (svc *Service) LoadCoupons(ctx context.Context) ([]Coupon, error) {
	return loadCollection(ctx, svc, ResourceCoupons,
		func(ctx context.Context) ([]Coupon, error) {
			rows, err := svc.backend.Select(ctx, "coupons", core.Query{
				OrderBy:    "created_at",
				Descending: true,
			})
			if err != nil {
				return nil, err
			}
			out := make([]Coupon, 0, len(rows.Data))
			for _, r := range rows.Data {
				out = append(out, couponFromRow(r))
			}
			return out, nil
		},
		MockCoupons,
		func(data []Coupon) { svc.coupons = data },
	)
}

func (svc *Service) LoadUsers(ctx context.Context) ([]AdminUser, error) {
	return loadCollection(ctx, svc, ResourceUsers,
		func(ctx context.Context) ([]AdminUser, error) {
			rows, err := svc.backend.Select(ctx, "profiles", core.Query{
				Select:     "*, enrollments(progress_percent)",
				OrderBy:    "created_at",
				Descending: true,
			})
			if err != nil {
				return nil, err
			}
			out := make([]AdminUser, 0, len(rows.Data))
			for _, r := range rows.Data {
				out = append(out, userFromRow(r))
			}
			return out, nil
		},
		MockUsers,
		func(data []AdminUser) { svc.users = data },
	)
}

// LoadDashboard loads the aggregate's four sub-queries. All four must
// succeed: a partial result is discarded in favor of the complete mock
// aggregate so the dashboard is never internally inconsistent.
func (svc *Service) LoadDashboard(ctx context.Context) (Dashboard, error) {
	if !svc.Privilege().Granted() {
		return Dashboard{}, ErrNotPrivileged
	}
	seq := svc.beginLoad(ResourceDashboard)

	if !svc.conn.Online() {
		dash := MockDashboard()
		svc.commit(ResourceDashboard, seq, func() {
			svc.dashboard = dash
			svc.offlineMode = true
		})
		return dash, nil
	}

	var dash Dashboard
	err := svc.conn.WithRetry(ctx, "load dashboard", func(ctx context.Context) error {
		d, lerr := svc.fetchDashboard(ctx)
		if lerr != nil {
			return lerr
		}
		dash = d
		return nil
	}, svc.conf.Backend.MaxRetries)

	if err != nil {
		svc.logger.Warn(fmt.Sprintf("loading dashboard failed, substituting demo data: %v", err), err)
		dash = MockDashboard()
		svc.commit(ResourceDashboard, seq, func() {
			svc.dashboard = dash
			svc.offlineMode = true
			svc.lastError = asConnectError(err)
		})
		return dash, nil
	}

	svc.commit(ResourceDashboard, seq, func() {
		svc.dashboard = dash
		svc.offlineMode = false
		svc.lastError = nil
	})
	return dash, nil
}

func (svc *Service) fetchDashboard(ctx context.Context) (Dashboard, error) {
	var dash Dashboard

	if err := svc.backend.RPC(ctx, "get_user_stats", nil, &dash.UserStats); err != nil {
		return Dashboard{}, errors.Wrap(err, "fetching user stats")
	}
	if err := svc.backend.RPC(ctx, "get_course_stats", nil, &dash.CourseStats); err != nil {
		return Dashboard{}, errors.Wrap(err, "fetching course stats")
	}

	rows, err := svc.backend.Select(ctx, "activity_log", core.Query{
		OrderBy:    "occurred_at",
		Descending: true,
		Limit:      10,
	})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "fetching recent activities")
	}
	dash.RecentActivities = make([]Activity, 0, len(rows.Data))
	for _, r := range rows.Data {
		dash.RecentActivities = append(dash.RecentActivities, activityFromRow(r))
	}

	rows, err = svc.backend.Select(ctx, "experiments", core.Query{
		Select:  "*, experiment_variants(*)",
		Filters: map[string]string{"status": "eq.running"},
	})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "fetching active experiments")
	}
	dash.ActiveExperiments = make([]Experiment, 0, len(rows.Data))
	for _, r := range rows.Data {
		dash.ActiveExperiments = append(dash.ActiveExperiments, experimentFromRow(r))
	}

	return dash, nil
}

// Mutations.
//
// Reads fall back to demo data; mutations never do. Offline mutations are
// rejected up front, and a failed mutation leaves prior state untouched.
// Successful mutations re-fetch the owning collection from the source of
// truth rather than patching the in-memory copy.

func (svc *Service) guardMutation(what string) error {
	if !svc.Privilege().Granted() {
		return ErrNotPrivileged
	}
	if !svc.conn.Online() {
		svc.notify.Error(what + " is unavailable while offline")
		return ErrUnavailableOffline
	}
	return nil
}

func (svc *Service) CreateCourse(ctx context.Context, data NewCourse) (*Course, error) {
	if err := svc.guardMutation("creating a course"); err != nil {
		return nil, err
	}
	if err := data.Validate(svc.validate); err != nil {
		return nil, err
	}

	row := core.Row{
		"title":       data.Title,
		"description": data.Description,
		"phase":       data.Phase,
		"duration":    data.Duration,
		"status":      data.Status,
		"order_index": data.OrderIndex,
	}
	var rows core.Rows
	if err := svc.conn.Do(ctx, "create course", func(ctx context.Context) error {
		var derr error
		rows, derr = svc.backend.Insert(ctx, "courses", row)
		return derr
	}); err != nil {
		svc.recordError(err)
		svc.notify.Error("could not create course: " + err.Error())
		return nil, err
	}

	crs := Course{Title: data.Title}
	if len(rows.Data) > 0 {
		crs = courseFromRow(rows.Data[0])
	}
	svc.notify.Success(fmt.Sprintf("course %q created", data.Title))
	if _, err := svc.LoadCourses(ctx); err != nil {
		svc.logger.Warn(fmt.Sprintf("reloading courses after create: %v", err))
	}
	return &crs, nil
}

func (svc *Service) UpdateCourse(ctx context.Context, id string, data UpdateCourse) (*Course, error) {
	if err := svc.guardMutation("updating a course"); err != nil {
		return nil, err
	}
	if err := data.Validate(svc.validate); err != nil {
		return nil, err
	}

	row := core.Row{}
	if data.Title != "" {
		row["title"] = data.Title
	}
	if data.Description != "" {
		row["description"] = data.Description
	}
	if data.Phase != "" {
		row["phase"] = data.Phase
	}
	if data.Duration != "" {
		row["duration"] = data.Duration
	}
	if data.Status != "" {
		row["status"] = data.Status
	}
	if data.OrderIndex != nil {
		row["order_index"] = *data.OrderIndex
	}

	var rows core.Rows
	if err := svc.conn.Do(ctx, "update course", func(ctx context.Context) error {
		var derr error
		rows, derr = svc.backend.Update(ctx, "courses", id, row)
		return derr
	}); err != nil {
		svc.recordError(err)
		svc.notify.Error("could not update course: " + err.Error())
		return nil, err
	}

	var crs Course
	if len(rows.Data) > 0 {
		crs = courseFromRow(rows.Data[0])
	}
	svc.notify.Success("course updated")
	if _, err := svc.LoadCourses(ctx); err != nil {
		svc.logger.Warn(fmt.Sprintf("reloading courses after update: %v", err))
	}
	return &crs, nil
}

// DeleteCourse removes the course. Its modules are not cascade-removed from
// the session: a later module load against the dead course id degrades to an
// empty or mock collection instead of crashing.
func (svc *Service) DeleteCourse(ctx context.Context, id string) error {
	if err := svc.guardMutation("deleting a course"); err != nil {
		return err
	}

	if err := svc.conn.Do(ctx, "delete course", func(ctx context.Context) error {
		return svc.backend.Delete(ctx, "courses", id)
	}); err != nil {
		svc.recordError(err)
		svc.notify.Error("could not delete course: " + err.Error())
		return err
	}

	svc.notify.Success("course deleted")
	if _, err := svc.LoadCourses(ctx); err != nil {
		svc.logger.Warn(fmt.Sprintf("reloading courses after delete: %v", err))
	}
	return nil
}

func (svc *Service) CreateModule(ctx context.Context, data NewModule) (*Module, error) {
	if err := svc.guardMutation("creating a module"); err != nil {
		return nil, err
	}
	if err := data.Validate(svc.validate); err != nil {
		return nil, err
	}

	row := core.Row{
		"course_id":   data.CourseID,
		"title":       data.Title,
		"duration":    data.Duration,
		"status":      data.Status,
		"order_index": data.OrderIndex,
	}
	var rows core.Rows
	if err := svc.conn.Do(ctx, "create module", func(ctx context.Context) error {
		var derr error
		rows, derr = svc.backend.Insert(ctx, "modules", row)
		return derr
	}); err != nil {
		svc.recordError(err)
		svc.notify.Error("could not create module: " + err.Error())
		return nil, err
	}

	mod := Module{CourseID: data.CourseID, Title: data.Title}
	if len(rows.Data) > 0 {
		mod = moduleFromRow(rows.Data[0])
	}
	svc.notify.Success(fmt.Sprintf("module %q created", data.Title))
	if _, err := svc.LoadModules(ctx, data.CourseID); err != nil {
		svc.logger.Warn(fmt.Sprintf("reloading modules after create: %v", err))
	}
	return &mod, nil
}

func (svc *Service) UpdateModule(ctx context.Context, id string, data UpdateModule) (*Module, error) {
	if err := svc.guardMutation("updating a module"); err != nil {
		return nil, err
	}
	if err := data.Validate(svc.validate); err != nil {
		return nil, err
	}

	row := core.Row{}
	if data.Title != "" {
		row["title"] = data.Title
	}
	if data.Duration != "" {
		row["duration"] = data.Duration
	}
	if data.Status != "" {
		row["status"] = data.Status
	}
	if data.OrderIndex != nil {
		row["order_index"] = *data.OrderIndex
	}

	var rows core.Rows
	if err := svc.conn.Do(ctx, "update module", func(ctx context.Context) error {
		var derr error
		rows, derr = svc.backend.Update(ctx, "modules", id, row)
		return derr
	}); err != nil {
		svc.recordError(err)
		svc.notify.Error("could not update module: " + err.Error())
		return nil, err
	}

	var mod Module
	if len(rows.Data) > 0 {
		mod = moduleFromRow(rows.Data[0])
	}
	svc.notify.Success("module updated")
	if mod.CourseID != "" {
		if _, err := svc.LoadModules(ctx, mod.CourseID); err != nil {
			svc.logger.Warn(fmt.Sprintf("reloading modules after update: %v", err))
		}
	}
	return &mod, nil
}

func (svc *Service) DeleteModule(ctx context.Context, id string) error {
	if err := svc.guardMutation("deleting a module"); err != nil {
		return err
	}

	if err := svc.conn.Do(ctx, "delete module", func(ctx context.Context) error {
		return svc.backend.Delete(ctx, "modules", id)
	}); err != nil {
		svc.recordError(err)
		svc.notify.Error("could not delete module: " + err.Error())
		return err
	}

	svc.notify.Success("module deleted")
	svc.mu.Lock()
	courseID := svc.expandedCourseID
	svc.mu.Unlock()
	if courseID != "" {
		if _, err := svc.LoadModules(ctx, courseID); err != nil {
			svc.logger.Warn(fmt.Sprintf("reloading modules after delete: %v", err))
		}
	}
	return nil
}

func (svc *Service) CreateCoupon(ctx context.Context, data NewCoupon) (*Coupon, error) {
	if err := svc.guardMutation("creating a coupon"); err != nil {
		return nil, err
	}
	if err := data.Validate(svc.validate); err != nil {
		return nil, err
	}

	row := core.Row{
		"code":             data.Code,
		"discount_percent": data.DiscountPercent,
		"max_uses":         data.MaxUses,
		"is_active":        data.IsActive,
	}
	if !data.ValidFrom.IsZero() {
		row["valid_from"] = data.ValidFrom.UTC().Format(time.RFC3339)
	}
	if !data.ValidUntil.IsZero() {
		row["valid_until"] = data.ValidUntil.UTC().Format(time.RFC3339)
	}

	var rows core.Rows
	if err := svc.conn.Do(ctx, "create coupon", func(ctx context.Context) error {
		var derr error
		rows, derr = svc.backend.Insert(ctx, "coupons", row)
		return derr
	}); err != nil {
		svc.recordError(err)
		svc.notify.Error("could not create coupon: " + err.Error())
		return nil, err
	}

	cpn := Coupon{Code: data.Code}
	if len(rows.Data) > 0 {
		cpn = couponFromRow(rows.Data[0])
	}
	svc.notify.Success(fmt.Sprintf("coupon %q created", data.Code))
	if _, err := svc.LoadCoupons(ctx); err != nil {
		svc.logger.Warn(fmt.Sprintf("reloading coupons after create: %v", err))
	}
	return &cpn, nil
}

func (svc *Service) UpdateCoupon(ctx context.Context, id string, data UpdateCoupon) (*Coupon, error) {
	if err := svc.guardMutation("updating a coupon"); err != nil {
		return nil, err
	}
	if err := data.Validate(svc.validate); err != nil {
		return nil, err
	}

	row := core.Row{}
	if data.DiscountPercent != nil {
		row["discount_percent"] = *data.DiscountPercent
	}
	if data.MaxUses != nil {
		row["max_uses"] = *data.MaxUses
	}
	if data.ValidUntil != nil {
		row["valid_until"] = data.ValidUntil.UTC().Format(time.RFC3339)
	}
	if data.IsActive != nil {
		row["is_active"] = *data.IsActive
	}

	var rows core.Rows
	if err := svc.conn.Do(ctx, "update coupon", func(ctx context.Context) error {
		var derr error
		rows, derr = svc.backend.Update(ctx, "coupons", id, row)
		return derr
	}); err != nil {
		svc.recordError(err)
		svc.notify.Error("could not update coupon: " + err.Error())
		return nil, err
	}

	var cpn Coupon
	if len(rows.Data) > 0 {
		cpn = couponFromRow(rows.Data[0])
	}
	svc.notify.Success("coupon updated")
	if _, err := svc.LoadCoupons(ctx); err != nil {
		svc.logger.Warn(fmt.Sprintf("reloading coupons after update: %v", err))
	}
	return &cpn, nil
}

func (svc *Service) DeleteCoupon(ctx context.Context, id string) error {
	if err := svc.guardMutation("deleting a coupon"); err != nil {
		return err
	}

	if err := svc.conn.Do(ctx, "delete coupon", func(ctx context.Context) error {
		return svc.backend.Delete(ctx, "coupons", id)
	}); err != nil {
		svc.recordError(err)
		svc.notify.Error("could not delete coupon: " + err.Error())
		return err
	}

	svc.notify.Success("coupon deleted")
	if _, err := svc.LoadCoupons(ctx); err != nil {
		svc.logger.Warn(fmt.Sprintf("reloading coupons after delete: %v", err))
	}
	return nil
}

func (svc *Service) UpdateUserRole(ctx context.Context, userID, role string) (*AdminUser, error) {
	if err := svc.guardMutation("changing a user role"); err != nil {
		return nil, err
	}
	if role != "student" && role != "admin" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "must be one of: student, admin"})
	}

	var rows core.Rows
	if err := svc.conn.Do(ctx, "update user role", func(ctx context.Context) error {
		var derr error
		rows, derr = svc.backend.Update(ctx, "profiles", userID, core.Row{"role": role})
		return derr
	}); err != nil {
		svc.recordError(err)
		svc.notify.Error("could not change user role: " + err.Error())
		return nil, err
	}

	var usr AdminUser
	if len(rows.Data) > 0 {
		usr = userFromRow(rows.Data[0])
	}
	svc.notify.Success(fmt.Sprintf("user role changed to %s", role))
	if _, err := svc.LoadUsers(ctx); err != nil {
		svc.logger.Warn(fmt.Sprintf("reloading users after role change: %v", err))
	}
	return &usr, nil
}
