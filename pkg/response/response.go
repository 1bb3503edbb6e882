package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

// ErrorRenderer writes err to the client in a route group's error format.
type ErrorRenderer func(c *gin.Context, err error)

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// AdminError is the flat error body of the admin endpoints.
type AdminError struct {
	Error string `json:"error"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Accepted responds with HTTP 202 Accepted.
func Accepted(c *gin.Context, data interface{}) {
	JSON(c, http.StatusAccepted, data, nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// Admin sends a bare JSON body, as the admin endpoints do on success.
func Admin(c *gin.Context, body interface{}) {
	noStore(c)
	c.JSON(http.StatusOK, body)
}

// AdminFailure renders err as {"error": message}. Only 400, 403 and 500 are
// used on these routes; authentication failures map to 403 and backend
// failures to 500.
func AdminFailure(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	status := appErr.Status
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		status = http.StatusForbidden
	case status >= http.StatusInternalServerError:
		status = http.StatusInternalServerError
	case status == http.StatusNotFound || status == http.StatusConflict:
		status = http.StatusBadRequest
	}
	noStore(c)
	c.JSON(status, AdminError{Error: appErr.Message})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
