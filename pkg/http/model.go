package http

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string            `json:"error" example:"Alert not found"`
	Code    string            `json:"code" example:"ERR_NOT_FOUND"`
	Details []ValidationError `json:"details,omitempty"`
}

// ReadinessBody is the /readyz payload, one entry per dependency.
type ReadinessBody struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"stock_symbol"`
	Message string                 `json:"message,omitempty" example:"stock_symbol is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
