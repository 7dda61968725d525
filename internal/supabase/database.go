package supabase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"ai-image-editor-backend/internal/models"
)

var (
	ErrProjectNotFound         = errors.New("project not found")
	ErrProjectAlreadyCompleted = errors.New("project already has an output image")
)

const projectColumns = `
	id, user_id, COALESCE(prompt, ''), input_image_url, input_image_path,
	output_image_url, output_image_path, status, payment_status, payment_amount,
	stripe_checkout_session_id, stripe_payment_intent_id, created_at, updated_at`

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// NewDatabaseClientFromDB wraps an existing handle.
func NewDatabaseClientFromDB(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

// DB exposes the underlying handle for the migrator.
func (d *DatabaseClient) DB() *sql.DB {
	return d.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID, &p.UserID, &p.Prompt, &p.InputImageURL, &p.InputImagePath,
		&p.OutputImageURL, &p.OutputImagePath, &p.Status, &p.PaymentStatus, &p.PaymentAmount,
		&p.StripeCheckoutSessionID, &p.StripePaymentIntentID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DatabaseClient) InsertProject(ctx context.Context, np models.NewProject) (*models.Project, error) {
	var amount sql.NullFloat64
	if np.PaymentAmount > 0 {
		amount = sql.NullFloat64{Float64: np.PaymentAmount, Valid: true}
	}

	row := d.db.QueryRowContext(ctx, `
		INSERT INTO projects (user_id, prompt, input_image_url, input_image_path,
			output_image_url, output_image_path, status, payment_status, payment_amount)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
		RETURNING `+projectColumns,
		np.UserID, np.Prompt, np.InputImageURL, np.InputImagePath,
		np.OutputImageURL, np.OutputImagePath, np.Status, np.PaymentStatus, amount,
	)
	project, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return project, nil
}

func (d *DatabaseClient) GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, projectID)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

func (d *DatabaseClient) ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// CompleteProject records the output of a project. The output is written at
// most once.
func (d *DatabaseClient) CompleteProject(ctx context.Context, projectID uuid.UUID, outputURL, outputPath string) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE projects
		SET output_image_url = $1, output_image_path = NULLIF($2, ''), status = 'completed', updated_at = NOW()
		WHERE id = $3 AND output_image_url IS NULL
	`, outputURL, outputPath, projectID)
	if err != nil {
		return fmt.Errorf("failed to complete project: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete project: %w", err)
	}
	if n > 0 {
		return nil
	}

	if _, err := d.GetProject(ctx, projectID); err != nil {
		return err
	}
	return ErrProjectAlreadyCompleted
}

func (d *DatabaseClient) AttachCheckoutSession(ctx context.Context, projectID, userID uuid.UUID, sessionID string) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE projects
		SET stripe_checkout_session_id = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
	`, sessionID, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to store checkout session: %w", err)
	}
	return requireRow(res)
}

// MarkProjectPaid applies a confirmed payment. Re-applying the same update is
// harmless, so redelivered webhooks succeed.
func (d *DatabaseClient) MarkProjectPaid(ctx context.Context, update models.PaymentUpdate) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE projects
		SET payment_status = 'paid',
			payment_amount = $1,
			stripe_payment_intent_id = COALESCE(NULLIF($2, ''), stripe_payment_intent_id),
			stripe_checkout_session_id = COALESCE(NULLIF($3, ''), stripe_checkout_session_id),
			updated_at = NOW()
		WHERE id = $4
	`, float64(update.AmountTotalCents)/100, update.PaymentIntentID, update.CheckoutSessionID, update.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to mark project paid: %w", err)
	}
	return requireRow(res)
}

func (d *DatabaseClient) DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error {
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM projects
		WHERE id = $1 AND user_id = $2
	`, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireRow(res)
}

func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrProjectNotFound
	}
	return nil
}
