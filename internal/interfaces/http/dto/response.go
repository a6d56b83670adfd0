package dto

import "strings"

// Response represents a standard API response
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Meta      *Meta      `json:"meta,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details []ValidationDetail `json:"details,omitempty"`
	// MissingFields lists the required step fields a submit lacked
	MissingFields []string `json:"missing_fields,omitempty"`
}

// ValidationDetail describes one invalid request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta represents pagination metadata
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewSuccessResponseWithMeta creates a success response with pagination meta
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		},
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithRequestID creates an error response tagged with the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	resp := NewErrorResponse(code, message)
	resp.RequestID = requestID
	return resp
}

// NewValidationErrorResponse creates a request validation error response
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    ErrCodeRequestValidation,
			Message: message,
			Details: details,
		},
		RequestID: requestID,
	}
}

// NewMissingFieldsResponse reports the required fields a step submit lacked
func NewMissingFieldsResponse(message, requestID string, missing []string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:          ErrCodeValidation,
			Message:       message,
			MissingFields: missing,
		},
		RequestID: requestID,
	}
}

// SaveErrorResponse is the flat failure shape of the wizard save call. Error
// is the user-facing message; Details lists missing or invalid fields.
type SaveErrorResponse struct {
	Success       bool     `json:"success"`
	Error         string   `json:"error"`
	Details       string   `json:"details,omitempty"`
	Code          string   `json:"code"`
	MissingFields []string `json:"missingFields,omitempty"`
	RequestID     string   `json:"requestId,omitempty"`
}

// NewSaveErrorResponse flattens an error envelope into the save failure shape
func NewSaveErrorResponse(info ErrorInfo, requestID string) SaveErrorResponse {
	resp := SaveErrorResponse{
		Error:         info.Message,
		Code:          info.Code,
		MissingFields: info.MissingFields,
		RequestID:     requestID,
	}
	switch {
	case len(info.MissingFields) > 0:
		resp.Details = strings.Join(info.MissingFields, ", ")
	case len(info.Details) > 0:
		parts := make([]string, 0, len(info.Details))
		for _, d := range info.Details {
			parts = append(parts, d.Field+": "+d.Message)
		}
		resp.Details = strings.Join(parts, "; ")
	}
	return resp
}
