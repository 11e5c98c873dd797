package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/billing"
	"github.com/estetika/academy/core/client"
	"github.com/estetika/academy/core/learning"
	"github.com/estetika/academy/core/outline"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/support"
	"github.com/estetika/academy/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")

	// domainErrorCodes maps the sentinel errors of the core packages to a status code.
	// Their message is sent as is.
	domainErrorCodes = map[error]int{
		user.ErrNotFound:               http.StatusNotFound,
		program.ErrNotFound:            http.StatusNotFound,
		program.ErrLessonNotFound:      http.StatusNotFound,
		program.ErrAttachmentNotFound:  http.StatusNotFound,
		outline.ErrNodeNotFound:        http.StatusNotFound,
		learning.ErrGrantNotFound:      http.StatusNotFound,
		learning.ErrSubmissionNotFound: http.StatusNotFound,
		support.ErrNotFound:            http.StatusNotFound,
		billing.ErrPaymentNotFound:     http.StatusNotFound,
		billing.ErrExpenseNotFound:     http.StatusNotFound,
		client.ErrNoteNotFound:         http.StatusNotFound,

		outline.ErrNotContainer: http.StatusBadRequest,
		outline.ErrCycle:        http.StatusBadRequest,
		outline.ErrDuplicateID:  http.StatusBadRequest,
		outline.ErrUnknownKind:  http.StatusBadRequest,
		outline.ErrOrderGap:     http.StatusBadRequest,
		learning.ErrNoPractice:  http.StatusBadRequest,

		learning.ErrNoAccess:      http.StatusForbidden,
		learning.ErrLessonLocked:  http.StatusForbidden,
		learning.ErrLessonStopped: http.StatusForbidden,

		learning.ErrAlreadySubmitted: http.StatusConflict,
		learning.ErrAlreadyReviewed:  http.StatusConflict,
		support.ErrTicketClosed:      http.StatusConflict,
		support.ErrAlreadyClosed:     http.StatusConflict,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if c, ok := domainErrorCodes[cause]; ok {
			code = c
			message = cause.Error()
		} else {
			switch origErr := cause.(type) {
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
				if flds := origErr.FieldErrors(); flds != nil {
					message = flds
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Name = claims.Name
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
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
