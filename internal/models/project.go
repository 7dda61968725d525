package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "pending"
	ProjectStatusCompleted ProjectStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Project is one image transformation request owned by a user.
type Project struct {
	ID                      uuid.UUID
	UserID                  uuid.UUID
	Prompt                  string
	InputImageURL           string
	InputImagePath          sql.NullString
	OutputImageURL          sql.NullString
	OutputImagePath         sql.NullString
	Status                  ProjectStatus
	PaymentStatus           PaymentStatus
	PaymentAmount           sql.NullFloat64
	StripeCheckoutSessionID sql.NullString
	StripePaymentIntentID   sql.NullString
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (p *Project) IsPaid() bool {
	return p.PaymentStatus == PaymentStatusPaid
}

func (p *Project) IsCompleted() bool {
	return p.Status == ProjectStatusCompleted || p.OutputImageURL.Valid
}

// NewProject is the set of columns written when a project row is inserted.
type NewProject struct {
	UserID          uuid.UUID
	Prompt          string
	InputImageURL   string
	InputImagePath  string
	OutputImageURL  string
	OutputImagePath string
	Status          ProjectStatus
	PaymentStatus   PaymentStatus
	PaymentAmount   float64
}

// PaymentUpdate is applied when the payment provider confirms a checkout.
type PaymentUpdate struct {
	ProjectID         uuid.UUID
	AmountTotalCents  int64
	CheckoutSessionID string
	PaymentIntentID   string
}
