package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"ai-image-editor-backend/internal/generation"
)

func TestInlineImagesResolve(t *testing.T) {
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				genai.NewPartFromText("here is your image"),
				{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte("jpeg")}},
			}}},
		},
	}

	images := inlineImages(response)
	require.Len(t, images, 1)

	resolved, err := generation.ResolveOutput(images)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, generation.OutputBytes, resolved.Kind)
	assert.Equal(t, []byte("jpeg"), resolved.Data)
	assert.Equal(t, "image/jpeg", resolved.ContentType)
}

func TestInlineImagesEmpty(t *testing.T) {
	assert.Nil(t, inlineImages(nil))

	textOnly := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText("I cannot edit this image", genai.RoleModel)},
		},
	}
	images := inlineImages(textOnly)
	assert.Empty(t, images)

	resolved, err := generation.ResolveOutput(images)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}
