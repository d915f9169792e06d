package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError renders err with the status and code of the *apierr.Error it wraps.
// Untyped errors become 500 generation_failed.
func RespondAPIError(c *gin.Context, err error) {
	e := apierr.From(err)
	if e == nil {
		RespondError(c, http.StatusInternalServerError, apierr.CodeGenerationFailed, nil)
		return
	}
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	RespondError(c, status, e.Code, e)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
