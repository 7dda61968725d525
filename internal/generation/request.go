package generation

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"strings"

	"ai-image-editor-backend/internal/apperr"
)

const MsgMissingImageInput = "Replicate model input is missing the image URL."

// RequestBuilder composes the provider input from the prompt, the input image
// URL and an optional set of fixed extra parameters.
type RequestBuilder struct {
	PromptParam  string
	ImageParam   string
	ImageAsArray bool
	Extra        map[string]any
}

// ParseExtraInputs decodes a JSON object. Anything else is logged and ignored.
func ParseExtraInputs(raw string, logger *slog.Logger) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		if logger != nil {
			logger.Warn("ignoring extra provider inputs, not a JSON object", "error", err)
		}
		return nil
	}
	return extra
}

func (b *RequestBuilder) Build(prompt, imageURL string) (map[string]any, error) {
	promptParam := b.PromptParam
	if promptParam == "" {
		promptParam = "prompt"
	}
	imageParam := b.ImageParam
	if imageParam == "" {
		imageParam = "image"
	}

	var image any = imageURL
	if b.ImageAsArray {
		image = []string{imageURL}
	}

	input := map[string]any{
		promptParam: strings.TrimSpace(prompt),
		imageParam:  image,
	}
	for k, v := range b.Extra {
		input[k] = v
	}

	if isEmptyValue(input[imageParam]) {
		return nil, apperr.New(apperr.EmptyImageInput, StageBuildRequest, MsgMissingImageInput, nil)
	}
	return input, nil
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	}
	return false
}
