package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	platformerrors "papla-server-go/internal/platform/errors"
)

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// RespondSuccess writes a success envelope.
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	resp := APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondError writes a failure envelope.
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	resp := APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// StatusForError maps sequencer and domain error kinds to HTTP status
// codes plus a message the operator can act on.
func StatusForError(err error) (int, string) {
	switch platformerrors.KindOf(err) {
	case platformerrors.KindNoInput:
		return http.StatusUnprocessableEntity,
			"no audio clips to combine; generate speech first"
	case platformerrors.KindDependency:
		return http.StatusServiceUnavailable,
			"ffmpeg is not available; install ffmpeg and restart the server"
	case platformerrors.KindConcat:
		return http.StatusBadGateway,
			"audio concatenation failed; see server logs for ffmpeg output"
	case platformerrors.KindFilesystem:
		return http.StatusInternalServerError,
			"filesystem error while processing audio"
	case platformerrors.KindSession:
		return http.StatusUnauthorized,
			"session is invalid or expired; create a new session"
	case platformerrors.KindProvider:
		return http.StatusBadGateway,
			"speech provider request failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// RespondDomainError maps err through StatusForError and writes the
// failure envelope.
func RespondDomainError(c *gin.Context, err error) {
	status, message := StatusForError(err)
	RespondError(c, status, message, gin.H{"detail": err.Error()})
}
