package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Nono8Six/ia-learning-sub000/core"
)

var contextTokenKey = "sessionToken"

// newJWTConfig is the JWT auth middleware config. Tokens are signed by us at
// login time after the hosted backend has verified the credentials.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func GetSessionClaims(sess core.Session, conf *core.Config) *Claims {
	now := time.Now()
	exp := sess.ExpiresAt
	if exp.IsZero() {
		exp = now.Add(time.Hour)
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   sess.UserID,
			ExpiresAt: exp.Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: sess.Email,
		Role:  sess.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

type authResource struct {
	deps ServerDeps
}

func registerAuthAPI(g *echo.Group, deps ServerDeps) {
	res := authResource{deps: deps}
	g.POST("/login", res.login)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// login verifies the credentials against the hosted backend and issues an
// app token carrying the session's identity and role.
func (res authResource) login(ctx echo.Context) error {
	var data loginRequest
	if err := ctx.Bind(&data); err != nil {
		return errAuthenticationFailed
	}
	data.Email = core.CleanString(data.Email, true)
	if err := res.deps.Validate.Struct(data); err != nil {
		return err
	}

	var sess core.Session
	err := res.deps.ConnSvc.Do(ctx.Request().Context(), "sign in", func(c context.Context) error {
		var serr error
		sess, serr = res.deps.Backend.SignIn(c, data.Email, data.Password)
		return serr
	})
	if err != nil {
		return err
	}

	token, err := GenerateToken(GetSessionClaims(sess, res.deps.Conf), res.deps.Conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, loginResponse{Token: token})
}
