package models

// ErrorResponse is the generic error body returned by the API. No internal
// directory detail is ever placed in Message.
type ErrorResponse struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	Code    int          `json:"code"`
}

// FieldError reports a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
