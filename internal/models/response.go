package models

import "time"

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

type GenerateResponse struct {
	OutputURL string `json:"outputUrl"`
	ProjectID string `json:"projectId,omitempty"`
}

type CreateProjectResponse struct {
	ProjectID string `json:"projectId"`
}

type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type DeleteProjectResponse struct {
	Success bool `json:"success"`
}

type ProjectResponse struct {
	ID             string    `json:"id"`
	Prompt         string    `json:"prompt"`
	InputImageURL  string    `json:"input_image_url"`
	OutputImageURL *string   `json:"output_image_url"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	PaymentAmount  *float64  `json:"payment_amount"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ProjectListResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

func NewProjectResponse(p *Project) ProjectResponse {
	resp := ProjectResponse{
		ID:            p.ID.String(),
		Prompt:        p.Prompt,
		InputImageURL: p.InputImageURL,
		Status:        string(p.Status),
		PaymentStatus: string(p.PaymentStatus),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.OutputImageURL.Valid {
		out := p.OutputImageURL.String
		resp.OutputImageURL = &out
	}
	if p.PaymentAmount.Valid {
		amount := p.PaymentAmount.Float64
		resp.PaymentAmount = &amount
	}
	return resp
}
