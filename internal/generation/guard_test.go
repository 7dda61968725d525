package generation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ai-image-editor-backend/internal/apperr"
	"ai-image-editor-backend/internal/generation"
)

func TestCheckDegenerate(t *testing.T) {
	input := []byte("input image")
	output := []byte("output image")
	inHash, outHash := generation.ContentHash(input), generation.ContentHash(output)

	err := generation.CheckDegenerate(nil, "https://in", inHash, outHash)
	assert.Equal(t, apperr.UnresolvedOutput, apperr.KindOf(err))

	// Echo is detected from the URL alone, whatever the bytes.
	echoed := &generation.Resolved{Kind: generation.OutputURL, URL: "https://in"}
	err = generation.CheckDegenerate(echoed, "https://in", inHash, outHash)
	assert.Equal(t, apperr.EchoedInput, apperr.KindOf(err))

	// Identical bytes behind a different URL.
	other := &generation.Resolved{Kind: generation.OutputURL, URL: "https://elsewhere"}
	err = generation.CheckDegenerate(other, "https://in", inHash, generation.ContentHash([]byte("input image")))
	assert.Equal(t, apperr.IdenticalContent, apperr.KindOf(err))

	bytesOut := &generation.Resolved{Kind: generation.OutputBytes, Data: output}
	assert.NoError(t, generation.CheckDegenerate(bytesOut, "https://in", inHash, outHash))
	assert.NoError(t, generation.CheckDegenerate(other, "https://in", inHash, outHash))
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", generation.ContentHash(nil))
	assert.NotEqual(t, generation.ContentHash([]byte("ab")), generation.ContentHash([]byte("ba")))
}
