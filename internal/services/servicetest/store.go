// Package servicetest provides an in-memory services.ProjectStore.
package servicetest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-image-editor-backend/internal/models"
	"ai-image-editor-backend/internal/supabase"
)

type MemoryStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]models.Project
	clock    time.Time

	InsertErr error
	PaidErr   error
	DeleteErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[uuid.UUID]models.Project),
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *MemoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// Add stores p as is, filling ID and timestamps when unset.
func (m *MemoryStore) Add(p models.Project) models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.tick()
		p.UpdatedAt = p.CreatedAt
	}
	m.projects[p.ID] = p
	return p
}

func (m *MemoryStore) Project(id uuid.UUID) (models.Project, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	return p, ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.projects)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (m *MemoryStore) InsertProject(_ context.Context, np models.NewProject) (*models.Project, error) {
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	p := models.Project{
		UserID:          np.UserID,
		Prompt:          np.Prompt,
		InputImageURL:   np.InputImageURL,
		InputImagePath:  nullString(np.InputImagePath),
		OutputImageURL:  nullString(np.OutputImageURL),
		OutputImagePath: nullString(np.OutputImagePath),
		Status:          np.Status,
		PaymentStatus:   np.PaymentStatus,
	}
	if np.PaymentAmount > 0 {
		p.PaymentAmount = sql.NullFloat64{Float64: np.PaymentAmount, Valid: true}
	}
	p = m.Add(p)
	return &p, nil
}

func (m *MemoryStore) GetProject(_ context.Context, projectID uuid.UUID) (*models.Project, error) {
	p, ok := m.Project(projectID)
	if !ok {
		return nil, supabase.ErrProjectNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListProjects(_ context.Context, userID uuid.UUID) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Project
	for _, p := range m.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CompleteProject(_ context.Context, projectID uuid.UUID, outputURL, outputPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return supabase.ErrProjectNotFound
	}
	if p.OutputImageURL.Valid {
		return supabase.ErrProjectAlreadyCompleted
	}
	p.OutputImageURL = nullString(outputURL)
	p.OutputImagePath = nullString(outputPath)
	p.Status = models.ProjectStatusCompleted
	p.UpdatedAt = m.tick()
	m.projects[projectID] = p
	return nil
}

func (m *MemoryStore) AttachCheckoutSession(_ context.Context, projectID, userID uuid.UUID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.UserID != userID {
		return supabase.ErrProjectNotFound
	}
	p.StripeCheckoutSessionID = nullString(sessionID)
	m.projects[projectID] = p
	return nil
}

func (m *MemoryStore) MarkProjectPaid(_ context.Context, update models.PaymentUpdate) error {
	if m.PaidErr != nil {
		return m.PaidErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[update.ProjectID]
	if !ok {
		return supabase.ErrProjectNotFound
	}
	p.PaymentStatus = models.PaymentStatusPaid
	p.PaymentAmount = sql.NullFloat64{Float64: float64(update.AmountTotalCents) / 100, Valid: true}
	if update.PaymentIntentID != "" {
		p.StripePaymentIntentID = nullString(update.PaymentIntentID)
	}
	if update.CheckoutSessionID != "" {
		p.StripeCheckoutSessionID = nullString(update.CheckoutSessionID)
	}
	m.projects[update.ProjectID] = p
	return nil
}

func (m *MemoryStore) DeleteProject(_ context.Context, projectID, userID uuid.UUID) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.UserID != userID {
		return supabase.ErrProjectNotFound
	}
	delete(m.projects, projectID)
	return nil
}
