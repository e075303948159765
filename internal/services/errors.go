package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRemoteHTTP         = errors.New("remote http error")
	ErrTranscriptionParse = errors.New("transcription parse error")
	ErrNoAssetFound       = errors.New("no asset found")
	ErrRateLimited        = errors.New("rate limited")
	ErrUploadConflict     = errors.New("upload conflict")
	ErrExternalTool       = errors.New("external tool error")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
	ErrTimeout            = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the first sentinel err matches. Batch
// summaries use it to group failures.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoAssetFound):
		return "no_asset"
	case errors.Is(err, ErrUploadConflict):
		return "upload_conflict"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTranscriptionParse):
		return "transcription_parse"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrRemoteHTTP):
		return "remote_http"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
