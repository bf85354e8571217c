package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mediflow-server/internal/booking"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Error:   errorMessage,
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// Conflict sends a 409 Conflict error response.
func Conflict(c *gin.Context, errorMessage string) {
	Error(c, http.StatusConflict, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}

// domainStatus maps booking error kinds to transport statuses.
var domainStatus = map[booking.Kind]int{
	booking.KindValidation:        http.StatusBadRequest,
	booking.KindAuthorization:     http.StatusForbidden,
	booking.KindCapacity:          http.StatusConflict,
	booking.KindConflict:          http.StatusConflict,
	booking.KindInvalidTransition: http.StatusConflict,
	booking.KindNotFound:          http.StatusNotFound,
	booking.KindInternal:          http.StatusInternalServerError,
}

// DomainError maps a booking error onto the response envelope, carrying the
// kind as a stable machine-readable code.
func DomainError(c *gin.Context, err error) {
	kind := booking.KindOf(err)
	status, ok := domainStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := "An unexpected error occurred"
	if e := booking.AsError(err); e != nil {
		message = e.Message
	}
	if kind == booking.KindInternal {
		// Storage internals never leak past this boundary.
		message = "An unexpected error occurred"
	}
	c.JSON(status, ResponseData{
		Status:  status,
		Message: "An error occurred",
		Error:   message,
		Code:    string(kind),
	})
}
