package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error represents an application error
type Error struct {
	Code    int
	Message string
	Err     error
	// Fields are merged into the JSON response body next to "message".
	Fields map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// With returns a copy of the error carrying an extra response field.
func (e *Error) With(key string, value interface{}) *Error {
	cp := *e
	cp.Fields = make(map[string]interface{}, len(e.Fields)+1)
	for k, v := range e.Fields {
		cp.Fields[k] = v
	}
	cp.Fields[key] = value
	return &cp
}

// Wrap returns a copy of the error with err attached as its cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// Body builds the JSON response body. The cause is only exposed when
// includeCause is set (non-production environments).
func (e *Error) Body(includeCause bool) gin.H {
	body := gin.H{"message": e.Message}
	for k, v := range e.Fields {
		body[k] = v
	}
	if includeCause && e.Err != nil {
		body["error"] = e.Err.Error()
	}
	return body
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AuthRequired is returned when a protected route is called without a token.
func AuthRequired(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

// TokenInvalid covers bad signatures, expired tokens and revoked sessions.
func TokenInvalid(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

// Conflict is reported as 400 to stay compatible with existing clients.
func Conflict(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// Common error types
var (
	ErrInvalidCredentials = New(http.StatusBadRequest, "Invalid email or password", nil)
	ErrEmptyCart          = New(http.StatusBadRequest, "Cart is empty", nil)
	ErrInsufficientStock  = New(http.StatusBadRequest, "Insufficient stock", nil)
)

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an *Error with the given HTTP status.
func HasCode(err error, code int) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// ErrorMiddleware renders the last error pushed with c.Error as JSON.
func ErrorMiddleware(logger *zap.Logger, exposeCause bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := As(err)
		if !ok {
			appErr = Internal("Internal server error", err)
		}

		if appErr.Code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString("request_id")),
				zap.Error(err),
			)
		}

		c.AbortWithStatusJSON(appErr.Code, appErr.Body(exposeCause))
	}
}
