package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/logger"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/interfaces/http/dto"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return logger.GetRequestID(c.Request.Context())
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// BindJSON binds the body into obj and writes a validation error on failure
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// BindQuery binds query parameters into obj and writes a validation error on failure
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// HandleError converts service errors to HTTP responses. Missing step fields
// are listed so the wizard can highlight them; unknown errors become 500s.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, info := resolveError(c, err)
	requestID := getRequestID(c)
	c.JSON(status, dto.Response{Success: false, Error: &info, RequestID: requestID})
}

// HandleSaveError is HandleError for the wizard save call, which answers
// failures in the flat {success, error, details} shape.
func (h *BaseHandler) HandleSaveError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, info := resolveError(c, err)
	c.JSON(status, dto.NewSaveErrorResponse(info, getRequestID(c)))
}

// SaveError writes a flat save failure with an explicit code
func (h *BaseHandler) SaveError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewSaveErrorResponse(dto.ErrorInfo{Code: code, Message: message}, getRequestID(c)))
}

// SaveAuthError writes a session failure on the save call in the flat save
// shape. It is the OnError hook of the save route's session middleware.
func SaveAuthError(c *gin.Context, err error) {
	status, code, message := middleware.AuthErrorInfo(err)
	c.JSON(status, dto.NewSaveErrorResponse(dto.ErrorInfo{Code: code, Message: message}, getRequestID(c)))
}

// BindSaveJSON is BindJSON with binding failures in the flat save shape
func (h *BaseHandler) BindSaveJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		requestID := getRequestID(c)
		resp := middleware.FormatValidationErrors(err, requestID)
		c.JSON(http.StatusBadRequest, dto.NewSaveErrorResponse(*resp.Error, requestID))
		return false
	}
	return true
}

func resolveError(c *gin.Context, err error) (int, dto.ErrorInfo) {
	var validationErr *form.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, dto.ErrorInfo{
			Code:          dto.ErrCodeValidation,
			Message:       validationErr.Message,
			MissingFields: validationErr.MissingFields,
		}
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Warn("Request failed",
				zap.String("code", code), zap.Error(err))
		}
		return status, dto.ErrorInfo{Code: code, Message: domainErr.Message}
	}

	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	return http.StatusInternalServerError, dto.ErrorInfo{
		Code:    dto.ErrCodeInternal,
		Message: "An unexpected error occurred",
	}
}
