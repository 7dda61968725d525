package replicate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/replicate/replicate-go"

	"ai-image-editor-backend/internal/generation"
)

const defaultPollInterval = time.Second

// Client runs a Replicate model and hands back its raw output.
type Client struct {
	client       *replicate.Client
	model        *replicate.Identifier
	apiOptions   []replicate.ClientOption
	pollInterval time.Duration
	logger       *slog.Logger
}

type Option func(*Client)

// WithAPIOptions passes options through to the underlying API client.
func WithAPIOptions(opts ...replicate.ClientOption) Option {
	return func(c *Client) {
		c.apiOptions = append(c.apiOptions, opts...)
	}
}

// WithPollInterval sets how often a running prediction is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewClient accepts model identifiers with or without a version:
// "owner/name" runs the model's latest version, "owner/name:version" pins one.
func NewClient(token, model string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN is not set")
	}
	if model == "" {
		return nil, fmt.Errorf("REPLICATE_MODEL is not set")
	}

	id, err := replicate.ParseIdentifier(model)
	if err != nil || (id.Version != nil && *id.Version == "") {
		return nil, fmt.Errorf("invalid REPLICATE_MODEL %q: expected owner/name or owner/name:version", model)
	}

	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		model:        id,
		pollInterval: defaultPollInterval,
		logger:       logger.With("component", "replicate"),
	}
	for _, opt := range opts {
		opt(c)
	}

	apiOptions := append([]replicate.ClientOption{replicate.WithToken(token)}, c.apiOptions...)
	client, err := replicate.NewClient(apiOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create replicate client: %w", err)
	}
	c.client = client

	return c, nil
}

func (c *Client) Name() string {
	return "replicate"
}

// Generate blocks until the prediction finishes. No timeout or retry is
// added on top of the client's own behaviour.
func (c *Client) Generate(ctx context.Context, req generation.Request) (any, error) {
	c.logger.Debug("running model", "model", c.model.String(), "input", req.Input)

	prediction, err := c.createPrediction(ctx, replicate.PredictionInput(req.Input))
	if err != nil {
		return nil, fmt.Errorf("replicate run %s: %w", c.model, err)
	}

	if !prediction.Status.Terminated() {
		if err := c.client.Wait(ctx, prediction, replicate.WithPollingInterval(c.pollInterval)); err != nil {
			return nil, fmt.Errorf("replicate run %s: %w", c.model, err)
		}
	}

	switch prediction.Status {
	case replicate.Failed, replicate.Canceled:
		return nil, fmt.Errorf("replicate run %s: prediction %s %s: %v",
			c.model, prediction.ID, prediction.Status, prediction.Error)
	}
	return prediction.Output, nil
}

// createPrediction uses the versioned endpoint when a version is pinned and
// the model endpoint otherwise.
func (c *Client) createPrediction(ctx context.Context, input replicate.PredictionInput) (*replicate.Prediction, error) {
	if c.model.Version != nil {
		return c.client.CreatePrediction(ctx, *c.model.Version, input, nil, false)
	}
	return c.client.CreatePredictionWithModel(ctx, c.model.Owner, c.model.Name, input, nil, false)
}

var _ generation.Provider = (*Client)(nil)
