package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

var ErrNotConfigured = errors.New("STRIPE_SECRET_KEY is not configured")

const (
	productName        = "Génération d'image IA"
	productDescription = "Une génération d'image avec IA"
)

type GatewayConfig struct {
	SecretKey  string
	Currency   string
	PriceCents int64
	PublicURL  string
	// Backend overrides the Stripe API backend, for tests.
	Backend stripe.Backend
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway creates Stripe Checkout sessions for one generation.
type Gateway struct {
	cfg      GatewayConfig
	sessions session.Client
	logger   *slog.Logger
}

func NewGateway(cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if cfg.Currency == "" {
		cfg.Currency = "eur"
	}
	backend := cfg.Backend
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		cfg:      cfg,
		sessions: session.Client{B: backend, Key: cfg.SecretKey},
		logger:   logger.With("component", "payments"),
	}
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, projectID, userID uuid.UUID) (*CheckoutSession, error) {
	if g.cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.cfg.PublicURL + "/dashboard?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(g.cfg.PublicURL + "/dashboard"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(productName),
						Description: stripe.String(productDescription),
					},
					UnitAmount: stripe.Int64(g.cfg.PriceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("project_id", projectID.String())
	params.AddMetadata("user_id", userID.String())
	params.Context = ctx

	cs, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	g.logger.Info("checkout session created", "project_id", projectID, "session_id", cs.ID)
	return &CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}
