package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgard/baristabot/internal/database"
)

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

const (
	codeBadRequest = "bad_request"
	codeNotFound   = "not_found"
	codeInternal   = "internal_error"
	codeEmptyCart  = "empty_cart"
)

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// respondStoreError maps store sentinels to statuses. Unexpected errors are
// reported with a fixed message so internals do not leak.
func respondStoreError(c *gin.Context, what string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(c, http.StatusNotFound, codeNotFound, errors.New(what+" not found"))
	case errors.Is(err, database.ErrInvalidQuantity):
		respondError(c, http.StatusBadRequest, codeBadRequest, database.ErrInvalidQuantity)
	case errors.Is(err, database.ErrEmptyCart):
		respondError(c, http.StatusBadRequest, codeEmptyCart, database.ErrEmptyCart)
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorEnvelope{Error: APIError{
			Message: "error processing " + what,
			Code:    codeInternal,
		}})
	}
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

type messageResponse struct {
	Message string `json:"message"`
}
