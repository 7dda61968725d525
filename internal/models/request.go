package models

type CreateCheckoutSessionRequest struct {
	ProjectID string `json:"projectId"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
