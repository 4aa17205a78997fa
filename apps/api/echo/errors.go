package echoapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	errInvalidQuery    = errors.New("invalid query parameters")
	errMissingToken    = errors.Wrap(core.ErrInvalidToken, "missing or malformed bearer token")
	errRefreshExpired  = errors.Wrap(core.ErrInvalidToken, "refresh has expired")
	errNoUserInContext = errors.Wrap(core.ErrInvalidToken, "no authenticated user in context")

	msgValidationFailed = "validation failed"
)

// httpError is the body of every error response.
type httpError struct {
	Error     string            `json:"error"`
	Details   []core.FieldError `json:"details,omitempty"`
	LockUntil *time.Time        `json:"lockUntil,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}
		code, body := errorResponse(err, translator)

		if code >= http.StatusInternalServerError {
			args := []interface{}{err, map[string]interface{}{
				"method":    ctx.Request().Method,
				"path":      ctx.Path(),
				"requestId": ctx.Response().Header().Get(echo.HeaderXRequestID),
			}}
			if usr, uErr := contextUser(ctx); uErr == nil {
				args = append(args, usr.Profile)
			}
			logger.Error(body.Error, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				body.Error = err.Error()
			}
		} else if errors.Cause(err) == core.ErrForbidden {
			logger.Debug("access denied", err)
		}

		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// errorResponse maps the cause of err to a status code and a client-safe body.
func errorResponse(err error, translator ut.Translator) (int, httpError) {
	cause := errors.Cause(err)

	switch origErr := cause.(type) {
	case *echo.HTTPError:
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		if origErr.Code >= http.StatusInternalServerError {
			break
		}
		return origErr.Code, httpError{Error: fmt.Sprint(origErr.Message)}
	case validator.ValidationErrors:
		details := make([]core.FieldError, 0, len(origErr))
		for _, vErr := range origErr {
			details = append(details, core.FieldError{Field: fieldPath(vErr), Error: vErr.Translate(translator)})
		}
		return http.StatusBadRequest, httpError{Error: msgValidationFailed, Details: details}
	case *core.ValidationError:
		if len(origErr.Fields) == 0 {
			return http.StatusBadRequest, httpError{Error: origErr.Error()}
		}
		return http.StatusBadRequest, httpError{Error: msgValidationFailed, Details: origErr.Fields}
	case core.LockedError:
		until := origErr.Until.UTC()
		return http.StatusLocked, httpError{Error: origErr.Error(), LockUntil: &until}
	}

	switch cause {
	case core.ErrInvalidToken:
		return http.StatusUnauthorized, httpError{Error: detail(err, cause)}
	case core.ErrAccountNotFound, user.ErrInvalidCredentials: // wraps carry internal context only
		return http.StatusUnauthorized, httpError{Error: cause.Error()}
	case core.ErrForbidden: // role and scope denials look the same
		return http.StatusForbidden, httpError{Error: core.ErrForbidden.Error()}
	case user.ErrEmailNotVerified, user.ErrAccountInactive:
		return http.StatusForbidden, httpError{Error: cause.Error()}
	case core.ErrNotFound:
		return http.StatusNotFound, httpError{Error: cause.Error()}
	case core.ErrDuplicate:
		return http.StatusConflict, httpError{Error: detail(err, cause)}
	case core.ErrInvalidTransition:
		return http.StatusBadRequest, httpError{Error: detail(err, cause)}
	case user.ErrInvalidResetLink:
		return http.StatusBadRequest, httpError{Error: cause.Error()}
	case core.ErrRateLimited:
		return http.StatusTooManyRequests, httpError{Error: cause.Error()}
	}

	// any other error (ProfileMissing included) is a server error
	return http.StatusInternalServerError, httpError{Error: http.StatusText(http.StatusInternalServerError)}
}

// detail returns the message attached right above cause, e.g. "course already exists" in
// "inserting course: course already exists: resource already exists".
// Only for causes the service layer always wraps with a client-facing message.
func detail(err, cause error) string {
	msg := strings.TrimSuffix(err.Error(), cause.Error())
	msg = strings.TrimSuffix(msg, ": ")
	if msg == "" {
		return cause.Error()
	}
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}

// fieldPath is the json path of a failing field, without the root struct and embedded structs:
// "studentAttendance[0].status".
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	path := make([]string, 0, len(parts))
	for _, part := range parts[1:] {
		if part != "" && unicode.IsUpper([]rune(part)[0]) {
			continue
		}
		path = append(path, part)
	}
	if len(path) == 0 {
		return fe.Field()
	}
	return strings.Join(path, ".")
}
