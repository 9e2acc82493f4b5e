package response

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Err is the JSON error body. Err carries the cause for logging and is
// never rendered.
type Err struct {
	HTTPStatusCode int    `json:"-"`
	Message        string `json:"error"`
	Retryable      *bool  `json:"retryable,omitempty"`
	PassID         string `json:"pass_id,omitempty"`
	Err            error  `json:"-"`
}

func (e *Err) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// RenderErr aborts the request with e. Server side failures are logged
// with the request id so the cause can be traced.
func RenderErr(ctx *gin.Context, e *Err) {
	if e.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", requestid.Get(ctx)),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Int("status", e.HTTPStatusCode),
			zap.Error(e.Err),
		)
	}

	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}

func ErrBadRequest(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusBadRequest,
		Message:        err.Error(),
		Err:            err,
	}
}

func ErrInvalidToken(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusUnauthorized,
		Message:        "invalid or missing token",
		Err:            err,
	}
}

func ErrWrongCredentials(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusUnauthorized,
		Message:        "email or password is incorrect",
		Err:            err,
	}
}

func ErrPermissionDenied(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusForbidden,
		Message:        "permission denied",
		Err:            err,
	}
}

func ErrNotFound(resource, field string, value any) *Err {
	return &Err{
		HTTPStatusCode: http.StatusNotFound,
		Message:        fmt.Sprintf("%s with %s %v not found", resource, field, value),
	}
}

func ErrConflict(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusConflict,
		Message:        err.Error(),
		Err:            err,
	}
}

func ErrInternalServerError(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusInternalServerError,
		Message:        "internal server error",
		Err:            err,
	}
}

func ErrBadGateway(err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusBadGateway,
		Message:        "upstream service failed",
		Err:            err,
	}
}

func ErrServiceUnavailable(message string, err error) *Err {
	return &Err{
		HTTPStatusCode: http.StatusServiceUnavailable,
		Message:        message,
		Err:            err,
	}
}

// ErrIssuance reports a pass whose record exists but whose wallet file
// is not available yet. Retryable failures are 503, the rest 500.
func ErrIssuance(passID string, retryable bool, err error) *Err {
	status := http.StatusInternalServerError
	message := "pass could not be generated"
	if retryable {
		status = http.StatusServiceUnavailable
		message = "pass generation failed, please retry"
	}

	return &Err{
		HTTPStatusCode: status,
		Message:        message,
		Retryable:      &retryable,
		PassID:         passID,
		Err:            err,
	}
}

// ErrResourceNotFound is used when the handler cannot tell which lookup
// failed; message names the missing resource.
func ErrResourceNotFound(message string) *Err {
	return &Err{
		HTTPStatusCode: http.StatusNotFound,
		Message:        message,
	}
}
