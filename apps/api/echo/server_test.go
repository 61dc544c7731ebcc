package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nono8Six/ia-learning-sub000/core"
	"github.com/Nono8Six/ia-learning-sub000/core/admin"
	"github.com/Nono8Six/ia-learning-sub000/core/connect"
	dummybackend "github.com/Nono8Six/ia-learning-sub000/services/backend/dummy"
	logsvc "github.com/Nono8Six/ia-learning-sub000/services/logger"
	dummynotify "github.com/Nono8Six/ia-learning-sub000/services/notifier/dummy"
)

type testApp struct {
	server  *Server
	conf    *core.Config
	backend *dummybackend.Service
	conn    *connect.Service
	notify  *dummynotify.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{TestMode: true, AppName: "IA Learning", SecretKey: "test-secret"}
	conf.Backend.CallTimeout = time.Second
	conf.Backend.ProbeTimeout = time.Second
	conf.Backend.MaxRetries = 0
	conf.Backend.RetryBaseDelay = time.Millisecond
	conf.Backend.RetryMaxDelay = 5 * time.Millisecond

	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0))
	backend := dummybackend.NewService()
	backend.SetRPC("is_admin", func(interface{}) (interface{}, error) { return true, nil })

	conn := connect.NewService(conf, backend, logger, nil)
	notify := dummynotify.NewService()

	validate := validator.New()
	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")
	core.InitValidators(validate, translator)

	adminSvc := admin.NewService(conf, conn, backend, notify, logger, validate)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		AdminSvc:       adminSvc,
		ConnSvc:        conn,
		Backend:        backend,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return &testApp{server: server, conf: conf, backend: backend, conn: conn, notify: notify}
}

func (app *testApp) token(t *testing.T, role string) string {
	t.Helper()
	sess := core.Session{
		UserID:    "usr-1",
		Email:     "admin@example.com",
		Role:      role,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	token, err := GenerateToken(GetSessionClaims(sess, app.conf), app.conf)
	require.NoError(t, err)
	return token
}

func (app *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func TestHome(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodPost, "/v1/login", "", map[string]string{
		"email": "admin@example.com", "password": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func TestLoginBadPayload(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodPost, "/v1/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodGet, "/v1/admin/state", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminPrivilegeDenied(t *testing.T) {
	app := setup(t)
	app.backend.SetRPC("is_admin", func(interface{}) (interface{}, error) { return false, nil })

	rec := app.do(http.MethodGet, "/v1/admin/state", app.token(t, "student"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminState(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodGet, "/v1/admin/state", app.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state admin.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, admin.Privileged, state.Privilege)
}

func TestAdminCourses(t *testing.T) {
	app := setup(t)
	app.backend.Seed("courses",
		core.Row{"id": "crs-1", "title": "AI Foundations", "status": "published", "order_index": 1},
		core.Row{"id": "crs-2", "title": "Prompting", "status": "draft", "order_index": 2},
	)

	rec := app.do(http.MethodGet, "/v1/admin/courses", app.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var courses []admin.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
	require.Len(t, courses, 2)
	assert.Equal(t, "AI Foundations", courses[0].Title)
}

func TestAdminCreateCourse(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodPost, "/v1/admin/courses", app.token(t, "admin"), admin.NewCourse{
		Title: "Shipping AI", Phase: "Phase 3", Status: "draft", OrderIndex: 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var crs admin.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crs))
	assert.NotEmpty(t, crs.ID)
	assert.Equal(t, "Shipping AI", crs.Title)
}

func TestAdminCreateCourseInvalid(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodPost, "/v1/admin/courses", app.token(t, "admin"), admin.NewCourse{
		Title: "No Status", Phase: "Phase 1", Status: "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminMutationOffline(t *testing.T) {
	app := setup(t)

	// resolve privilege first, then flip offline
	rec := app.do(http.MethodGet, "/v1/admin/state", app.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	app.conn.SetOffline("flight mode")

	rec = app.do(http.MethodPost, "/v1/admin/courses", app.token(t, "admin"), admin.NewCourse{
		Title: "Offline Course", Phase: "Phase 1", Status: "draft",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminCouponsOfflineServeDemoData(t *testing.T) {
	app := setup(t)

	// resolve privilege while online
	rec := app.do(http.MethodGet, "/v1/admin/state", app.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	app.conn.SetOffline("")

	rec = app.do(http.MethodGet, "/v1/admin/coupons", app.token(t, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var coupons []admin.Coupon
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coupons))
	assert.Len(t, coupons, 4)
}

func TestHealthStatus(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodGet, "/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap connect.StatusSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, snap.Online)
}

func TestHealthOfflineSignal(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodPost, "/v1/health/offline", "", map[string]string{"reason": "flight mode"})
	require.Equal(t, http.StatusOK, rec.Code)

	var snap connect.StatusSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.False(t, snap.Online)

	rec = app.do(http.MethodPost, "/v1/health/online", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, snap.Online)
}

func TestHealthCheckUnreachableBackend(t *testing.T) {
	app := setup(t)
	app.backend.FailWith(core.NewAPIError(http.StatusServiceUnavailable, "", "maintenance"))

	rec := app.do(http.MethodPost, "/v1/health/check", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
