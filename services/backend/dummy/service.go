package dummybackend

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Nono8Six/ia-learning-sub000/core"
)

// Service is an in-memory core.BackendClient for tests and local runs.
// Tables are plain row slices; rows get a generated id on insert. Behavior
// can be bent per test with FailWith and SetRPC.
type Service struct {
	mu     sync.RWMutex
	tables map[string][]core.Row
	rpcs   map[string]func(args interface{}) (interface{}, error)
	err    error
	calls  []string

	session core.Session
}

var _ core.BackendClient = (*Service)(nil)

func NewService() *Service {
	return &Service{
		tables: make(map[string][]core.Row),
		rpcs:   make(map[string]func(args interface{}) (interface{}, error)),
	}
}

// Seed replaces a table's rows.
func (svc *Service) Seed(table string, rows ...core.Row) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.tables[table] = append([]core.Row(nil), rows...)
}

// SetRPC installs a handler for a named remote procedure.
func (svc *Service) SetRPC(fn string, handler func(args interface{}) (interface{}, error)) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.rpcs[fn] = handler
}

// FailWith makes every subsequent call fail with err; nil restores normal
// operation.
func (svc *Service) FailWith(err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.err = err
}

// Calls returns the operations seen so far, in order.
func (svc *Service) Calls() []string {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return append([]string(nil), svc.calls...)
}

// SetSession installs an authenticated session.
func (svc *Service) SetSession(sess core.Session) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.session = sess
}

func (svc *Service) record(op string) error {
	svc.calls = append(svc.calls, op)
	return svc.err
}

func (svc *Service) Select(_ context.Context, table string, q core.Query) (core.Rows, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if err := svc.record("select " + table); err != nil {
		return core.Rows{Data: []core.Row{}}, err
	}

	out := make([]core.Row, 0, len(svc.tables[table]))
	for _, row := range svc.tables[table] {
		if matches(row, q.Filters) {
			out = append(out, row)
		}
	}
	if q.OrderBy != "" {
		sortRows(out, q.OrderBy, q.Descending)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return core.Rows{Data: out, Status: http.StatusOK}, nil
}

func (svc *Service) Insert(_ context.Context, table string, row core.Row) (core.Rows, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if err := svc.record("insert " + table); err != nil {
		return core.Rows{Data: []core.Row{}}, err
	}

	stored := make(core.Row, len(row)+1)
	for k, v := range row {
		stored[k] = v
	}
	if stored.String("id") == "" {
		stored["id"] = uuid.NewString()
	}
	svc.tables[table] = append(svc.tables[table], stored)
	return core.Rows{Data: []core.Row{stored}, Status: http.StatusCreated}, nil
}

func (svc *Service) Update(_ context.Context, table, id string, row core.Row) (core.Rows, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if err := svc.record("update " + table); err != nil {
		return core.Rows{Data: []core.Row{}}, err
	}

	for _, stored := range svc.tables[table] {
		if stored.String("id") == id {
			for k, v := range row {
				stored[k] = v
			}
			return core.Rows{Data: []core.Row{stored}, Status: http.StatusOK}, nil
		}
	}
	return core.Rows{Data: []core.Row{}}, core.NewAPIError(http.StatusNotFound, "PGRST116", "no rows found")
}

func (svc *Service) Delete(_ context.Context, table, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if err := svc.record("delete " + table); err != nil {
		return err
	}

	rows := svc.tables[table]
	for i, stored := range rows {
		if stored.String("id") == id {
			svc.tables[table] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return core.NewAPIError(http.StatusNotFound, "PGRST116", "no rows found")
}

func (svc *Service) RPC(_ context.Context, fn string, args, out interface{}) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if err := svc.record("rpc " + fn); err != nil {
		return err
	}

	handler, ok := svc.rpcs[fn]
	if !ok {
		return core.NewAPIError(http.StatusNotFound, "PGRST202", "function "+fn+" not found")
	}
	result, err := handler(args)
	if err != nil {
		return err
	}
	assign(out, result)
	return nil
}

func (svc *Service) SignIn(_ context.Context, email, _ string) (core.Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if err := svc.record("signin"); err != nil {
		return core.Session{}, err
	}

	svc.session = core.Session{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		UserID:       uuid.NewString(),
		Email:        email,
	}
	return svc.session, nil
}

func (svc *Service) GetSession(context.Context) (core.Session, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if svc.session.AccessToken == "" {
		return core.Session{}, core.NewAPIError(http.StatusUnauthorized, "", "not authenticated")
	}
	return svc.session, nil
}

func (svc *Service) UpdateSessionUser(_ context.Context, attrs core.UserAttrs) (core.Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if err := svc.record("update session user"); err != nil {
		return core.Session{}, err
	}
	if email, ok := attrs["email"].(string); ok {
		svc.session.Email = email
	}
	return svc.session, nil
}

func (svc *Service) Ping(context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.record("ping")
}

func matches(row core.Row, filters map[string]string) bool {
	for col, cond := range filters {
		want := cond
		if i := strings.IndexByte(cond, '.'); i >= 0 {
			want = cond[i+1:] // only eq.<value> conditions are supported here
		}
		if row.String(col) != want {
			return false
		}
	}
	return true
}

func sortRows(rows []core.Row, col string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		less := false
		if _, ok := rows[i][col].(string); ok {
			less = rows[i].String(col) < rows[j].String(col)
		} else {
			less = rows[i].Float(col) < rows[j].Float(col)
		}
		if desc {
			return !less
		}
		return less
	})
}

func assign(out, result interface{}) {
	if out == nil || result == nil {
		return
	}
	switch dst := out.(type) {
	case *bool:
		if v, ok := result.(bool); ok {
			*dst = v
		}
	case *string:
		if v, ok := result.(string); ok {
			*dst = v
		}
	case *int:
		if v, ok := result.(int); ok {
			*dst = v
		}
	case *core.Row:
		if v, ok := result.(core.Row); ok {
			*dst = v
		}
	default:
		assignJSON(out, result)
	}
}

// assignJSON copies result into out through a JSON round trip, covering
// struct-shaped RPC results.
func assignJSON(out, result interface{}) {
	b, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = json.Unmarshal(b, out)
}
