package generation

import (
	"crypto/sha256"
	"encoding/hex"

	"ai-image-editor-backend/internal/apperr"
)

const (
	MsgGenerateFailed   = "Failed to generate image."
	MsgEchoedInput      = "Generated image matches the original input. Please adjust model settings or prompt."
	MsgIdenticalContent = "Generated image is identical to the source image. This model may not be using the input image."
)

// CheckEcho fails when the provider handed back the input URL itself.
func CheckEcho(resolved *Resolved, inputURL string) error {
	if resolved == nil {
		return apperr.New(apperr.UnresolvedOutput, StageResolveOutput, MsgGenerateFailed, nil)
	}
	if resolved.Kind == OutputURL && resolved.URL == inputURL {
		return apperr.New(apperr.EchoedInput, StageGuardEcho, MsgEchoedInput, nil)
	}
	return nil
}

// ContentHash is the hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CheckDegenerate runs every guard: unresolved output, echoed input URL and
// byte-identical content.
func CheckDegenerate(resolved *Resolved, inputURL, inputHash, outputHash string) error {
	if err := CheckEcho(resolved, inputURL); err != nil {
		return err
	}
	if inputHash == outputHash {
		return apperr.New(apperr.IdenticalContent, StageGuardIdentical, MsgIdenticalContent, nil)
	}
	return nil
}
