package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ai-image-editor-backend/internal/apperr"
	"ai-image-editor-backend/internal/generation"
)

const (
	defaultMaxUploadBytes = 32 << 20
	msgUploadTooLarge     = "Image file is too large."
	msgInvalidForm        = "Invalid multipart form."
)

// readImageForm reads the `image` file and `prompt` field of a multipart
// request. A missing file or prompt is left empty so the pipeline reports it.
func readImageForm(c *gin.Context, userID uuid.UUID, maxBytes int64) (generation.Input, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	in := generation.Input{UserID: userID}

	if err := c.Request.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return in, apperr.New(apperr.InvalidInput, generation.StageValidate, msgUploadTooLarge, err)
		}
		return in, apperr.New(apperr.InvalidInput, generation.StageValidate, msgInvalidForm, err)
	}

	in.Prompt = strings.TrimSpace(c.Request.FormValue("prompt"))

	file, header, err := c.Request.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return in, apperr.New(apperr.InvalidInput, generation.StageValidate, generation.MsgImageRequired, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return in, apperr.New(apperr.InvalidInput, generation.StageValidate, generation.MsgImageRequired,
			fmt.Errorf("failed to read %s: %w", header.Filename, err))
	}

	in.Image = data
	in.Filename = header.Filename
	in.ContentType = header.Header.Get("Content-Type")
	return in, nil
}
