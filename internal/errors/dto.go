package errors

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Display string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorResponse renders err the way transport adapters return it.
func NewErrorResponse(err error) ErrorResponse {
	display := Hint(err)
	if display == "" {
		display = "An unexpected error occurred"
	}
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    Code(err),
			Display: display,
			Details: Details(err),
		},
	}
}
