package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeBadRequest          ErrorType = "BAD_REQUEST"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden           ErrorType = "FORBIDDEN"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeRateLimit           ErrorType = "RATE_LIMIT"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"
)

// CustomError represents a custom error with an associated HTTP status code,
// error type and a stable machine-readable code clients can dispatch on.
type CustomError struct {
	Type       ErrorType
	Code       string
	Message    string
	StatusCode int
	Internal   error
}

// Error implements the error interface
func (e *CustomError) Error() string {
	return e.Message
}

// newError creates a new CustomError
func newError(errType ErrorType, code, message string, statusCode int, internal error) *CustomError {
	return &CustomError{
		Type:       errType,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(code, message string) *CustomError {
	return newError(ErrorTypeBadRequest, code, message, http.StatusBadRequest, nil)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(code string) *CustomError {
	return newError(ErrorTypeUnauthorized, code, "You need to sign in before continuing.", http.StatusUnauthorized, nil)
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(code, message string) *CustomError {
	return newError(ErrorTypeForbidden, code, message, http.StatusForbidden, nil)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *CustomError {
	return newError(ErrorTypeNotFound, code, message, http.StatusNotFound, nil)
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(code string) *CustomError {
	return newError(ErrorTypeRateLimit, code,
		"You have exceeded your maximum number of messages for the day. Please try again later.",
		http.StatusTooManyRequests, nil)
}

// NewInternalError creates a new internal server error
func NewInternalError(internal error) *CustomError {
	return newError(ErrorTypeInternalServerError, "offline:chat", "An unexpected error occurred.", http.StatusInternalServerError, internal)
}

// HandleError handles the custom error and sends an appropriate JSON response.
// Errors outside the known taxonomy are mapped to a generic 500, never dropped.
func HandleError(c *gin.Context, err error) {
	var customErr *CustomError
	var ok bool

	if customErr, ok = err.(*CustomError); !ok {
		customErr = NewInternalError(err)
	}

	// Log internal server errors
	if customErr.Type == ErrorTypeInternalServerError {
		log.Error().
			Err(customErr.Internal).
			Str("url", c.Request.URL.String()).
			Msg("Internal Server Error")
	}

	c.JSON(customErr.StatusCode, gin.H{
		"code":    customErr.Code,
		"message": customErr.Message,
	})
}
