package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teachback/teachback-backend/internal/platform/apierr"
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

// RespondAPIError maps an error from the service layer onto the envelope
// using its apierr status and code.
func RespondAPIError(c *gin.Context, err error) {
	RespondError(c, apierr.Status(err), apierr.Code(err), err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
