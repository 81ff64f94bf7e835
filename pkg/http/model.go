package http

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"name"`
	Message string                 `json:"message,omitempty" example:"Name is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// FirstMessage returns the first human readable message of a
// ReadAndValidateRequest result, or "" when there is none.
func FirstMessage(errs interface{}) string {
	switch v := errs.(type) {
	case []ValidationError:
		if len(v) > 0 {
			return v[0].Message
		}
	case error:
		return v.Error()
	}
	return ""
}
