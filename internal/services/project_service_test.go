package services_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"ai-image-editor-backend/internal/apperr"
	"ai-image-editor-backend/internal/generation"
	"ai-image-editor-backend/internal/logging"
	"ai-image-editor-backend/internal/models"
	"ai-image-editor-backend/internal/payments"
	"ai-image-editor-backend/internal/services"
	"ai-image-editor-backend/internal/services/servicetest"
	"ai-image-editor-backend/internal/storage"
	"ai-image-editor-backend/internal/storage/storagetest"
)

const webhookSecret = "whsec_service_test"

type blob []byte

func (b blob) Bytes() ([]byte, error) { return b, nil }

type stubProvider struct{ calls int }

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(context.Context, generation.Request) (any, error) {
	s.calls++
	return blob("generated pixels"), nil
}

type stubCheckout struct {
	err   error
	calls int
}

func (s *stubCheckout) CreateCheckoutSession(_ context.Context, projectID, _ uuid.UUID) (*payments.CheckoutSession, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &payments.CheckoutSession{ID: "cs_" + projectID.String()[:8], URL: "https://checkout.test/session"}, nil
}

type fixture struct {
	svc      *services.ProjectService
	store    *servicetest.MemoryStore
	backend  *storagetest.Memory
	provider *stubProvider
	checkout *stubCheckout
}

func newFixture() *fixture {
	store := servicetest.NewMemoryStore()
	backend := storagetest.NewMemory()
	provider := &stubProvider{}
	checkout := &stubCheckout{}

	pipeline := generation.NewPipeline(
		generation.Options{InputBucket: "inputs", OutputBucket: "outputs"},
		generation.Deps{
			Storage:  backend,
			Access:   storage.NewAccessResolver(backend, nil, "3600", logging.Nop()),
			Provider: provider,
			Projects: store,
			Logger:   logging.Nop(),
		},
	)
	svc := services.NewProjectService(
		services.Config{InputBucket: "inputs", OutputBucket: "outputs", PriceCents: 250, WebhookSecret: webhookSecret},
		store, pipeline, backend, checkout, logging.Nop(),
	)
	return &fixture{svc: svc, store: store, backend: backend, provider: provider, checkout: checkout}
}

func TestCreatePendingProject(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	project, err := f.svc.CreatePendingProject(context.Background(), generation.Input{
		UserID:      userID,
		Image:       []byte("raw jpeg"),
		Filename:    "cat.jpg",
		ContentType: "image/jpeg",
		Prompt:      "make it winter",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ProjectStatusPending, project.Status)
	assert.Equal(t, models.PaymentStatusPending, project.PaymentStatus)
	assert.InDelta(t, 2.50, project.PaymentAmount.Float64, 0.0001)
	assert.False(t, project.OutputImageURL.Valid)
	assert.Zero(t, f.provider.calls)

	_, ok := f.backend.Object("inputs", project.InputImagePath.String)
	assert.True(t, ok)
}

func TestCreatePendingProjectValidation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreatePendingProject(context.Background(), generation.Input{UserID: uuid.New(), Prompt: "x"})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
	assert.Zero(t, f.store.Len())
}

func TestGetOwnedProject(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	p := f.store.Add(models.Project{UserID: owner, Status: models.ProjectStatusPending})

	got, err := f.svc.GetOwnedProject(context.Background(), p.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.svc.GetOwnedProject(context.Background(), p.ID, uuid.New())
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))

	_, err = f.svc.GetOwnedProject(context.Background(), uuid.New(), owner)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestListProjectsNewestFirst(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	first := f.store.Add(models.Project{UserID: owner})
	second := f.store.Add(models.Project{UserID: owner})
	f.store.Add(models.Project{UserID: uuid.New()})

	projects, err := f.svc.ListProjects(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, second.ID, projects[0].ID)
	assert.Equal(t, first.ID, projects[1].ID)
}

func storedProject(f *fixture, owner uuid.UUID) models.Project {
	f.backend.Put("inputs", "in/1-a.jpg", []byte("in"))
	f.backend.Put("outputs", "out/1-b.png", []byte("out"))
	return f.store.Add(models.Project{
		UserID:          owner,
		InputImageURL:   "https://storage.test/object/sign/inputs/in/1-a.jpg?token=t",
		InputImagePath:  sql.NullString{String: "in/1-a.jpg", Valid: true},
		OutputImageURL:  sql.NullString{String: "https://storage.test/object/public/outputs/out/1-b.png", Valid: true},
		OutputImagePath: sql.NullString{String: "out/1-b.png", Valid: true},
		Status:          models.ProjectStatusCompleted,
	})
}

func TestDeleteProjectByNonOwner(t *testing.T) {
	f := newFixture()
	p := storedProject(f, uuid.New())

	err := f.svc.DeleteProject(context.Background(), p.ID, uuid.New())
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
	assert.Equal(t, 403, apperr.HTTPStatus(apperr.KindOf(err)))

	_, ok := f.store.Project(p.ID)
	assert.True(t, ok)
	assert.Equal(t, 2, f.backend.Len())
	assert.Empty(t, f.backend.Removed)
}

func TestDeleteProjectRemovesObjects(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	p := storedProject(f, owner)

	require.NoError(t, f.svc.DeleteProject(context.Background(), p.ID, owner))

	_, ok := f.store.Project(p.ID)
	assert.False(t, ok)
	assert.Zero(t, f.backend.Len())
	assert.ElementsMatch(t, []string{"inputs/in/1-a.jpg", "outputs/out/1-b.png"}, f.backend.Removed)
}

func TestDeleteProjectFallsBackToURL(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	p := storedProject(f, owner)
	p.InputImagePath = sql.NullString{}
	p.OutputImagePath = sql.NullString{}
	f.store.Add(p)

	require.NoError(t, f.svc.DeleteProject(context.Background(), p.ID, owner))
	assert.ElementsMatch(t, []string{"inputs/in/1-a.jpg", "outputs/out/1-b.png"}, f.backend.Removed)
}

func TestDeleteProjectStorageFailureIsBestEffort(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	p := storedProject(f, owner)
	f.backend.RemoveErr = errors.New("storage unavailable")

	require.NoError(t, f.svc.DeleteProject(context.Background(), p.ID, owner))
	_, ok := f.store.Project(p.ID)
	assert.False(t, ok)
}

func TestGenerateForProjectRequiresOwner(t *testing.T) {
	f := newFixture()
	p := f.store.Add(models.Project{UserID: uuid.New(), PaymentStatus: models.PaymentStatusPaid, Prompt: "x"})

	_, err := f.svc.GenerateForProject(context.Background(), p.ID, uuid.New())
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
	assert.Zero(t, f.provider.calls)
}

func TestGenerateForProjectCompletes(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	f.backend.Put("inputs", "in.jpg", []byte("input pixels"))
	p := f.store.Add(models.Project{
		UserID:         owner,
		Prompt:         "make it winter",
		InputImagePath: sql.NullString{String: "in.jpg", Valid: true},
		Status:         models.ProjectStatusPending,
		PaymentStatus:  models.PaymentStatusPaid,
	})

	res, err := f.svc.GenerateForProject(context.Background(), p.ID, owner)
	require.NoError(t, err)

	updated, _ := f.store.Project(p.ID)
	assert.Equal(t, models.ProjectStatusCompleted, updated.Status)
	assert.Equal(t, res.OutputURL, updated.OutputImageURL.String)

	_, err = f.svc.GenerateForProject(context.Background(), p.ID, owner)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	assert.Equal(t, 1, f.provider.calls)
}

func TestCreateCheckoutSession(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	p := f.store.Add(models.Project{UserID: owner})

	cs, err := f.svc.CreateCheckoutSession(context.Background(), p.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/session", cs.URL)

	updated, _ := f.store.Project(p.ID)
	assert.Equal(t, cs.ID, updated.StripeCheckoutSessionID.String)

	_, err = f.svc.CreateCheckoutSession(context.Background(), p.ID, uuid.New())
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, 1, f.checkout.calls)

	f.checkout.err = payments.ErrNotConfigured
	_, err = f.svc.CreateCheckoutSession(context.Background(), p.ID, owner)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
}

func signedEvent(t *testing.T, payload string) string {
	t.Helper()
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	}).Header
}

func completedEvent(projectID string, amount int64) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_test_9","object":"checkout.session","amount_total":%d,"payment_intent":"pi_9","metadata":{"project_id":%q}}}}`, amount, projectID)
}

func TestHandleWebhookMarksPaid(t *testing.T) {
	f := newFixture()
	p := f.store.Add(models.Project{UserID: uuid.New(), PaymentStatus: models.PaymentStatusPending})
	payload := completedEvent(p.ID.String(), 250)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte(payload), signedEvent(t, payload)))

	updated, _ := f.store.Project(p.ID)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
	assert.InDelta(t, 2.50, updated.PaymentAmount.Float64, 0.0001)
	assert.Equal(t, "pi_9", updated.StripePaymentIntentID.String)
	assert.Equal(t, "cs_test_9", updated.StripeCheckoutSessionID.String)

	// Redelivery is harmless.
	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte(payload), signedEvent(t, payload)))
}

func TestHandleWebhookRejections(t *testing.T) {
	f := newFixture()
	p := f.store.Add(models.Project{UserID: uuid.New(), PaymentStatus: models.PaymentStatusPending})
	payload := completedEvent(p.ID.String(), 250)

	err := f.svc.HandleWebhook(context.Background(), []byte(payload), "")
	assert.Equal(t, apperr.WebhookVerification, apperr.KindOf(err))

	err = f.svc.HandleWebhook(context.Background(), []byte(payload), "t=1,v1=deadbeef")
	assert.Equal(t, apperr.WebhookVerification, apperr.KindOf(err))

	bad := completedEvent("not-a-uuid", 250)
	err = f.svc.HandleWebhook(context.Background(), []byte(bad), signedEvent(t, bad))
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	updated, _ := f.store.Project(p.ID)
	assert.Equal(t, models.PaymentStatusPending, updated.PaymentStatus)

	unknown := completedEvent(uuid.NewString(), 250)
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte(unknown), signedEvent(t, unknown)))

	f.store.PaidErr = errors.New("connection reset")
	err = f.svc.HandleWebhook(context.Background(), []byte(payload), signedEvent(t, payload))
	assert.Equal(t, apperr.Persistence, apperr.KindOf(err))
}

func TestHandleWebhookWithoutSecret(t *testing.T) {
	store := servicetest.NewMemoryStore()
	svc := services.NewProjectService(services.Config{}, store, nil, storagetest.NewMemory(), &stubCheckout{}, logging.Nop())

	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "t=1,v1=abc")
	assert.Equal(t, apperr.WebhookMisconfigured, apperr.KindOf(err))
	assert.Equal(t, 500, apperr.HTTPStatus(apperr.KindOf(err)))
}
