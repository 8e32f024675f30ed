package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope. A nil err falls back to the status
// text; the request id set by the trace middleware is echoed for support.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "unknown error"
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message:   msg,
			Code:      code,
			RequestID: c.GetString("request_id"),
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
