package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainHTTPError maps the sentinel errors of the core packages to their HTTP counterpart.
func domainHTTPError(err error) (*echo.HTTPError, bool) {
	switch err {
	case user.ErrNotFound, classroom.ErrNotFound:
		return errHttpNotFound, true
	case classroom.ErrForbidden:
		return errHttpForbidden, true
	case user.ErrInvalidCredentials:
		return errAuthenticationFailed, true
	case user.ErrAccountDeactivated:
		return errAccountDeactivated, true
	}
	return nil, false
}

// errorResponse maps err to a status code and a JSON body: {"error": "..."} or a field -> message map.
// ok is false for unexpected errors, which are answered with a bare 500.
func errorResponse(err error, translator ut.Translator) (code int, body interface{}, ok bool) {
	if flds, isValidation := core.FieldErrors(err, translator); isValidation {
		return http.StatusBadRequest, flds, true
	}

	cause := errors.Cause(err)
	if herr, isDomain := domainHTTPError(cause); isDomain {
		cause = herr
	}
	switch origErr := cause.(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, echo.Map{"error": origErr.Message}, true
		}
		if herr, isHTTP := origErr.Internal.(*echo.HTTPError); isHTTP {
			origErr = herr
		}
		if msg, isString := origErr.Message.(string); isString {
			return origErr.Code, echo.Map{"error": msg}, true
		}
		return origErr.Code, origErr.Message, true
	case *core.ValidationError:
		return http.StatusBadRequest, echo.Map{"error": origErr.Error()}, true
	}
	return http.StatusInternalServerError, echo.Map{"error": http.StatusText(http.StatusInternalServerError)}, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// Unexpected errors are logged with the acting user; a core.shutdown error also asks the server to shut down.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := errorResponse(err, translator)
		if !ok {
			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID, _ = claims.UserID()
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error("unexpected API error", errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()), usr)

			if core.IsShutdown(err) {
				signalShutdown()
			}
		}
		if ctx.Echo().Debug {
			body = echo.Map{"error": err.Error()}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			logger.Error("sending error response", err)
		}
	}
}
