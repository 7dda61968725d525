package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ai-image-editor-backend/internal/apperr"
	"ai-image-editor-backend/internal/generation"
	"ai-image-editor-backend/internal/models"
	"ai-image-editor-backend/internal/payments"
	"ai-image-editor-backend/internal/storage"
	"ai-image-editor-backend/internal/supabase"
)

const (
	MsgProjectNotFound      = "Project not found."
	MsgAccessDenied         = "Access denied."
	MsgCheckoutNotFound     = "Project not found or not authorized."
	MsgCheckoutFailed       = "Failed to create checkout session."
	MsgListFailed           = "Failed to load projects."
	MsgDeleteFailed         = "Failed to delete project."
	MsgNoSignature          = "No signature"
	MsgWebhookSecretMissing = "Webhook secret not configured"
	MsgNoProjectMetadata    = "No project_id in metadata"
	MsgInvalidProjectID     = "Invalid project_id in metadata"
	MsgDatabaseError        = "Database error"
)

// ProjectStore is the persistence the service needs on top of what the
// pipeline writes.
type ProjectStore interface {
	generation.ProjectStore
	GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	AttachCheckoutSession(ctx context.Context, projectID, userID uuid.UUID, sessionID string) error
	MarkProjectPaid(ctx context.Context, update models.PaymentUpdate) error
	DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error
}

type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, projectID, userID uuid.UUID) (*payments.CheckoutSession, error)
}

type Config struct {
	InputBucket   string
	OutputBucket  string
	PriceCents    int64
	WebhookSecret string
}

type ProjectService struct {
	cfg      Config
	projects ProjectStore
	pipeline *generation.Pipeline
	storage  storage.Backend
	checkout CheckoutCreator
	logger   *slog.Logger
}

func NewProjectService(
	cfg Config,
	projects ProjectStore,
	pipeline *generation.Pipeline,
	backend storage.Backend,
	checkout CheckoutCreator,
	logger *slog.Logger,
) *ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectService{
		cfg:      cfg,
		projects: projects,
		pipeline: pipeline,
		storage:  backend,
		checkout: checkout,
		logger:   logger.With("component", "project_service"),
	}
}

// Generate runs the full pipeline for an uploaded image.
func (s *ProjectService) Generate(ctx context.Context, in generation.Input) (*generation.Result, error) {
	return s.pipeline.Generate(ctx, in)
}

// CreatePendingProject stores the input image and records an unpaid project.
func (s *ProjectService) CreatePendingProject(ctx context.Context, in generation.Input) (*models.Project, error) {
	stored, err := s.pipeline.StoreInput(ctx, in)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.InsertProject(ctx, models.NewProject{
		UserID:         in.UserID,
		Prompt:         in.Prompt,
		InputImageURL:  stored.URL,
		InputImagePath: stored.Path,
		Status:         models.ProjectStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		PaymentAmount:  float64(s.cfg.PriceCents) / 100,
	})
	if err != nil {
		return nil, apperr.New(apperr.Persistence, generation.StagePersist, generation.MsgSaveProjectFailed, err)
	}

	s.logger.Info("pending project created", "project_id", project.ID, "user_id", in.UserID)
	return project, nil
}

func (s *ProjectService) ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	projects, err := s.projects.ListProjects(ctx, userID)
	if err != nil {
		return nil, apperr.New(apperr.Persistence, "list_projects", MsgListFailed, err)
	}
	return projects, nil
}

// GetOwnedProject loads a project and checks it belongs to userID.
func (s *ProjectService) GetOwnedProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if errors.Is(err, supabase.ErrProjectNotFound) {
		return nil, apperr.New(apperr.NotFound, "load_project", MsgProjectNotFound, err)
	}
	if err != nil {
		return nil, apperr.New(apperr.Persistence, "load_project", MsgProjectNotFound, err)
	}
	if project.UserID != userID {
		return nil, apperr.New(apperr.Unauthorized, "load_project", MsgAccessDenied, nil)
	}
	return project, nil
}

// GenerateForProject runs the pipeline for a paid project owned by userID.
func (s *ProjectService) GenerateForProject(ctx context.Context, projectID, userID uuid.UUID) (*generation.Result, error) {
	project, err := s.GetOwnedProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	return s.pipeline.GenerateForProject(ctx, project)
}

func (s *ProjectService) CreateCheckoutSession(ctx context.Context, projectID, userID uuid.UUID) (*payments.CheckoutSession, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil || project.UserID != userID {
		return nil, apperr.New(apperr.NotFound, "checkout", MsgCheckoutNotFound, err)
	}

	cs, err := s.checkout.CreateCheckoutSession(ctx, projectID, userID)
	if err != nil {
		return nil, apperr.New(apperr.Internal, "checkout", MsgCheckoutFailed, err)
	}

	if err := s.projects.AttachCheckoutSession(ctx, projectID, userID, cs.ID); err != nil {
		s.logger.Warn("failed to store checkout session on project",
			"project_id", projectID, "session_id", cs.ID, "error", err)
	}
	return cs, nil
}

// HandleWebhook verifies a payment provider event and records completed
// checkouts. Nothing is written unless the signature is valid.
func (s *ProjectService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := payments.ParseWebhook(payload, signature, s.cfg.WebhookSecret)
	switch {
	case errors.Is(err, payments.ErrMissingSignature):
		return apperr.New(apperr.WebhookVerification, "webhook", MsgNoSignature, err)
	case errors.Is(err, payments.ErrWebhookSecretMissing):
		return apperr.New(apperr.WebhookMisconfigured, "webhook", MsgWebhookSecretMissing, err)
	case errors.Is(err, payments.ErrMissingProjectMetadata):
		return apperr.New(apperr.InvalidInput, "webhook", MsgNoProjectMetadata, err)
	case err != nil:
		return apperr.New(apperr.WebhookVerification, "webhook", "Webhook Error: "+err.Error(), err)
	}

	if event.Checkout == nil {
		s.logger.Debug("ignoring webhook event", "event_id", event.ID, "type", event.Type)
		return nil
	}

	checkout := event.Checkout
	projectID, err := uuid.Parse(checkout.ProjectID)
	if err != nil {
		return apperr.New(apperr.InvalidInput, "webhook", MsgInvalidProjectID, err)
	}

	err = s.projects.MarkProjectPaid(ctx, models.PaymentUpdate{
		ProjectID:         projectID,
		AmountTotalCents:  checkout.AmountTotal,
		CheckoutSessionID: checkout.SessionID,
		PaymentIntentID:   checkout.PaymentIntentID,
	})
	if errors.Is(err, supabase.ErrProjectNotFound) {
		s.logger.Warn("payment received for unknown project", "project_id", projectID, "session_id", checkout.SessionID)
		return nil
	}
	if err != nil {
		return apperr.New(apperr.Persistence, "webhook", MsgDatabaseError, err)
	}

	s.logger.Info("project marked paid",
		"project_id", projectID,
		"session_id", checkout.SessionID,
		"amount_total", checkout.AmountTotal)
	return nil
}

// DeleteProject removes a project owned by userID. Its stored images are
// removed first on a best-effort basis; failures are logged and the record
// is deleted regardless.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error {
	project, err := s.GetOwnedProject(ctx, projectID, userID)
	if err != nil {
		return err
	}

	inputPath := storedPath(project.InputImagePath.String, project.InputImageURL, s.cfg.InputBucket)
	outputPath := storedPath(project.OutputImagePath.String, project.OutputImageURL.String, s.cfg.OutputBucket)

	objects := []struct{ bucket, path string }{
		{s.cfg.InputBucket, inputPath},
		{s.cfg.OutputBucket, outputPath},
	}

	var g errgroup.Group
	for _, obj := range objects {
		if obj.path == "" {
			continue
		}
		g.Go(func() error {
			if err := s.storage.Remove(ctx, obj.bucket, obj.path); err != nil {
				s.logger.Warn("unable to remove image from storage",
					"project_id", projectID, "bucket", obj.bucket, "path", obj.path, "error", err)
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := s.projects.DeleteProject(ctx, projectID, userID); err != nil {
		if errors.Is(err, supabase.ErrProjectNotFound) {
			return apperr.New(apperr.NotFound, "delete_project", MsgProjectNotFound, err)
		}
		return apperr.New(apperr.Persistence, "delete_project", MsgDeleteFailed, err)
	}

	s.logger.Info("project deleted", "project_id", projectID, "user_id", userID)
	return nil
}

func storedPath(path, url, bucket string) string {
	if path != "" {
		return path
	}
	return storage.ExtractPath(url, bucket)
}
