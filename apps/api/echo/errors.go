package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Nono8Six/ia-learning-sub000/core"
	"github.com/Nono8Six/ia-learning-sub000/core/admin"
	"github.com/Nono8Six/ia-learning-sub000/core/connect"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
)

// kindStatus maps a connection failure kind to the HTTP status the API
// reports for it.
func kindStatus(kind connect.Kind) int {
	switch kind {
	case connect.KindNetwork:
		return http.StatusServiceUnavailable
	case connect.KindAuth:
		return http.StatusUnauthorized
	case connect.KindRateLimit:
		return http.StatusTooManyRequests
	case connect.KindServer, connect.KindDatabase:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *connect.Error:
			code = kindStatus(origErr.Kind)
			message = origErr.Message
		case *core.APIError:
			code = origErr.Status
			message = origErr.Message
		default:
			switch {
			case errors.Is(err, admin.ErrNotPrivileged):
				code = http.StatusForbidden
				message = admin.ErrNotPrivileged.Error()
			case errors.Is(err, admin.ErrUnavailableOffline):
				code = http.StatusServiceUnavailable
				message = admin.ErrUnavailableOffline.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var sess core.Session
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					sess.UserID = claims.Subject
					sess.Email = claims.Email
					sess.Role = claims.Role
				}
				logger.Error(msg, errors.Wrap(err, msg), sess)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
