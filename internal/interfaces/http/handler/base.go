// Package handler implements the storefront JSON API
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/catalog"
	"github.com/knwn/storefront/internal/domain/shared"
	"github.com/knwn/storefront/internal/infrastructure/logger"
	"github.com/knwn/storefront/internal/interfaces/http/dto"
	"github.com/knwn/storefront/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, code, message string) {
	h.Error(c, http.StatusBadRequest, code, message)
}

// HandleError converts an error to an HTTP response. Domain errors keep
// their code; anything else is logged and reported as an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.HandleErrorWithData(c, err, nil)
}

// HandleErrorWithData is HandleError with a data payload, used when the
// client should still see the resulting state, e.g. the cart with its notice
// after a rejected add.
func (h *BaseHandler) HandleErrorWithData(c *gin.Context, err error, data any) {
	if err == nil {
		return
	}
	code, message := classify(err)
	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.GetGinLogger(c).Error("request failed", zap.String("code", code), zap.Error(err))
	}
	resp := dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c))
	resp.Data = data
	c.JSON(status, resp)
}

func classify(err error) (code, message string) {
	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr.Code, domainErr.Message
	case errors.Is(err, catalog.ErrItemNotFound):
		return dto.ErrCodeItemNotFound, "Item is not on the menu for that day"
	case errors.Is(err, availability.ErrInvalidHorizon):
		return dto.ErrCodeBadRequest, "Horizon must be a positive number of days"
	case errors.Is(err, context.DeadlineExceeded):
		return dto.ErrCodeUnavailable, "The request timed out, please try again"
	default:
		return dto.ErrCodeInternal, "An unexpected error occurred"
	}
}

// BindJSON decodes the request body into req. It writes the error response
// itself and reports false when the body is unusable.
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Request validation failed", middleware.GetRequestID(c), details))
		return false
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
		return false
	}
	if errors.Is(err, io.EOF) {
		h.BadRequest(c, dto.ErrCodeInvalidJSON, "Request body is required")
		return false
	}
	h.BadRequest(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
	return false
}

// parseDay parses a YYYY-MM-DD service day, answering 400 when it is not one
func (h *BaseHandler) parseDay(c *gin.Context, raw string) (availability.ServiceDay, bool) {
	day, err := availability.ParseServiceDay(raw)
	if err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidDate, "Date must be formatted as YYYY-MM-DD")
		return availability.ServiceDay{}, false
	}
	return day, true
}
