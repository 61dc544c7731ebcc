package backendsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/Nono8Six/ia-learning-sub000/core"
)

var (
	restPath = "/rest/v1"
	authPath = "/auth/v1"
)

// service talks to the hosted backend over its PostgREST-style row API and
// its auth endpoints. Every request carries the project API key; once a user
// session exists its access token replaces the key as the bearer.
type service struct {
	baseURL string
	apiKey  string
	client  *rest.Client

	mu      sync.RWMutex
	session core.Session
}

var _ core.BackendClient = (*service)(nil)

func NewService(conf *core.Config) core.BackendClient {
	return &service{
		baseURL: conf.Backend.BaseURL,
		apiKey:  conf.Backend.APIKey,
		client:  &rest.Client{HTTPClient: http.DefaultClient},
	}
}

func (svc *service) headers() map[string]string {
	bearer := svc.apiKey
	svc.mu.RLock()
	if svc.session.AccessToken != "" {
		bearer = svc.session.AccessToken
	}
	svc.mu.RUnlock()

	return map[string]string{
		"apikey":        svc.apiKey,
		"Authorization": "Bearer " + bearer,
		"Content-Type":  "application/json",
	}
}

func (svc *service) send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	res, err := svc.client.SendWithContext(ctx, req)
	if err != nil {
		return nil, err // transport failure, classified upstream
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, apiError(res)
	}
	return res, nil
}

// apiError decodes the backend's error envelope, falling back to the raw
// body when it is not the expected JSON shape.
func apiError(res *rest.Response) error {
	var envelope struct {
		Message          string `json:"message"`
		Code             string `json:"code"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
	}
	msg := res.Body
	var code string
	if err := json.Unmarshal([]byte(res.Body), &envelope); err == nil {
		code = envelope.Code
		switch {
		case envelope.Message != "":
			msg = envelope.Message
		case envelope.Msg != "":
			msg = envelope.Msg
		case envelope.ErrorDescription != "":
			msg = envelope.ErrorDescription
		}
	}
	return core.NewAPIError(res.StatusCode, code, msg)
}

func decodeRows(res *rest.Response) (core.Rows, error) {
	rows := core.Rows{Data: []core.Row{}, Status: res.StatusCode}
	if res.Body == "" {
		return rows, nil
	}
	if err := json.Unmarshal([]byte(res.Body), &rows.Data); err != nil {
		return rows, errors.Wrap(err, "decoding rows")
	}
	if rows.Data == nil {
		rows.Data = []core.Row{}
	}
	return rows, nil
}

func (svc *service) Select(ctx context.Context, table string, q core.Query) (core.Rows, error) {
	params := map[string]string{"select": "*"}
	if q.Select != "" {
		params["select"] = q.Select
	}
	for col, cond := range q.Filters {
		params[col] = cond
	}
	if q.OrderBy != "" {
		dir := ".asc"
		if q.Descending {
			dir = ".desc"
		}
		params["order"] = q.OrderBy + dir
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}

	res, err := svc.send(ctx, rest.Request{
		Method:      rest.Get,
		BaseURL:     svc.baseURL + restPath + "/" + table,
		Headers:     svc.headers(),
		QueryParams: params,
	})
	if err != nil {
		return core.Rows{Data: []core.Row{}}, err
	}
	return decodeRows(res)
}

func (svc *service) Insert(ctx context.Context, table string, row core.Row) (core.Rows, error) {
	body, err := json.Marshal(row)
	if err != nil {
		return core.Rows{Data: []core.Row{}}, errors.Wrap(err, "encoding row")
	}

	headers := svc.headers()
	headers["Prefer"] = "return=representation"
	res, err := svc.send(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: svc.baseURL + restPath + "/" + table,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return core.Rows{Data: []core.Row{}}, err
	}
	return decodeRows(res)
}

func (svc *service) Update(ctx context.Context, table, id string, row core.Row) (core.Rows, error) {
	body, err := json.Marshal(row)
	if err != nil {
		return core.Rows{Data: []core.Row{}}, errors.Wrap(err, "encoding row")
	}

	headers := svc.headers()
	headers["Prefer"] = "return=representation"
	res, err := svc.send(ctx, rest.Request{
		Method:      rest.Patch,
		BaseURL:     svc.baseURL + restPath + "/" + table,
		Headers:     headers,
		QueryParams: map[string]string{"id": "eq." + id},
		Body:        body,
	})
	if err != nil {
		return core.Rows{Data: []core.Row{}}, err
	}
	return decodeRows(res)
}

func (svc *service) Delete(ctx context.Context, table, id string) error {
	_, err := svc.send(ctx, rest.Request{
		Method:      rest.Delete,
		BaseURL:     svc.baseURL + restPath + "/" + table,
		Headers:     svc.headers(),
		QueryParams: map[string]string{"id": "eq." + id},
	})
	return err
}

func (svc *service) RPC(ctx context.Context, fn string, args, out interface{}) error {
	var body []byte
	if args != nil {
		var err error
		if body, err = json.Marshal(args); err != nil {
			return errors.Wrapf(err, "encoding %s args", fn)
		}
	}

	res, err := svc.send(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: svc.baseURL + restPath + "/rpc/" + fn,
		Headers: svc.headers(),
		Body:    body,
	})
	if err != nil {
		return err
	}
	if out == nil || res.Body == "" {
		return nil
	}
	if err = json.Unmarshal([]byte(res.Body), out); err != nil {
		return errors.Wrapf(err, "decoding %s result", fn)
	}
	return nil
}

// Auth

type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

func (p sessionPayload) session() core.Session {
	return core.Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(p.ExpiresIn) * time.Second),
		UserID:       p.User.ID,
		Email:        p.User.Email,
		Role:         p.User.Role,
	}
}

func (svc *service) SignIn(ctx context.Context, email, password string) (core.Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return core.Session{}, errors.Wrap(err, "encoding credentials")
	}

	res, err := svc.send(ctx, rest.Request{
		Method:      rest.Post,
		BaseURL:     svc.baseURL + authPath + "/token",
		Headers:     svc.headers(),
		QueryParams: map[string]string{"grant_type": "password"},
		Body:        body,
	})
	if err != nil {
		return core.Session{}, err
	}

	var payload sessionPayload
	if err = json.Unmarshal([]byte(res.Body), &payload); err != nil {
		return core.Session{}, errors.Wrap(err, "decoding session")
	}
	sess := payload.session()

	svc.mu.Lock()
	svc.session = sess
	svc.mu.Unlock()
	return sess, nil
}

func (svc *service) GetSession(ctx context.Context) (core.Session, error) {
	svc.mu.RLock()
	sess := svc.session
	svc.mu.RUnlock()
	if sess.AccessToken == "" {
		return core.Session{}, core.NewAPIError(http.StatusUnauthorized, "", "not authenticated")
	}

	// validate the token against the auth endpoint
	res, err := svc.send(ctx, rest.Request{
		Method:  rest.Get,
		BaseURL: svc.baseURL + authPath + "/user",
		Headers: svc.headers(),
	})
	if err != nil {
		return core.Session{}, err
	}

	var usr struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err = json.Unmarshal([]byte(res.Body), &usr); err != nil {
		return core.Session{}, errors.Wrap(err, "decoding session user")
	}
	sess.UserID = usr.ID
	sess.Email = usr.Email
	sess.Role = usr.Role
	return sess, nil
}

func (svc *service) UpdateSessionUser(ctx context.Context, attrs core.UserAttrs) (core.Session, error) {
	body, err := json.Marshal(attrs)
	if err != nil {
		return core.Session{}, errors.Wrap(err, "encoding user attributes")
	}

	res, err := svc.send(ctx, rest.Request{
		Method:  rest.Put,
		BaseURL: svc.baseURL + authPath + "/user",
		Headers: svc.headers(),
		Body:    body,
	})
	if err != nil {
		return core.Session{}, err
	}

	var payload sessionPayload
	if err = json.Unmarshal([]byte(res.Body), &payload); err != nil {
		return core.Session{}, errors.Wrap(err, "decoding session")
	}

	svc.mu.Lock()
	sess := svc.session
	if payload.AccessToken != "" {
		sess = payload.session()
		svc.session = sess
	}
	svc.mu.Unlock()
	return sess, nil
}

// Ping probes the row API root without reading any table.
func (svc *service) Ping(ctx context.Context) error {
	_, err := svc.send(ctx, rest.Request{
		Method:  rest.Method(http.MethodHead),
		BaseURL: svc.baseURL + restPath + "/",
		Headers: svc.headers(),
	})
	return errors.Wrap(err, fmt.Sprintf("pinging %s", svc.baseURL))
}
