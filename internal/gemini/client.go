package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/genai"

	"ai-image-editor-backend/internal/generation"
)

// InlineImage is an image returned inline by the model.
type InlineImage struct {
	data     []byte
	mimeType string
}

func (i InlineImage) Bytes() ([]byte, error) {
	return i.data, nil
}

func (i InlineImage) ContentType() string {
	return i.mimeType
}

// Client edits images with a Gemini image model.
type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewClient(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		client: client,
		model:  model,
		logger: logger.With("component", "gemini"),
	}, nil
}

func (c *Client) Name() string {
	return "gemini"
}

// Generate sends the prompt with the input image inline and returns the
// inline images of the response as a list.
func (c *Client) Generate(ctx context.Context, req generation.Request) (any, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("gemini requires inline image data")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt),
		{
			InlineData: &genai.Blob{
				MIMEType: http.DetectContentType(req.Image),
				Data:     req.Image,
			},
		},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	c.logger.Debug("generating content", "model", c.model)

	response, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("error editing image: %w", err)
	}

	return inlineImages(response), nil
}

func inlineImages(response *genai.GenerateContentResponse) []any {
	if response == nil {
		return nil
	}
	var images []any
	for _, candidate := range response.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			images = append(images, InlineImage{data: part.InlineData.Data, mimeType: part.InlineData.MIMEType})
		}
	}
	return images
}

var _ generation.Provider = (*Client)(nil)
