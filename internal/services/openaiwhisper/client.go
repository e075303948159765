package openaiwhisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"autocap/internal/language"
	"autocap/internal/services"
)

const defaultModel = openai.AudioModelWhisper1

// Config describes the client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	HTTPClient *http.Client
}

// Client calls the audio transcription API.
type Client struct {
	api   openai.Client
	model openai.AudioModel
}

// New creates a Client. The API key is required.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openaiwhisper: api key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	model := openai.AudioModel(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = defaultModel
	}
	return &Client{api: openai.NewClient(opts...), model: model}, nil
}

// Segment is one timed span of the verbose transcription.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the decoded verbose_json response.
type Transcript struct {
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Transcribe uploads the file at path. lang may be empty or "auto" to let
// the service detect it.
func (c *Client) Transcribe(ctx context.Context, path, lang string) (Transcript, error) {
	if c == nil {
		return Transcript{}, errors.New("openaiwhisper: client is nil")
	}
	file, err := os.Open(path)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrValidation, "transcribe", "openai", "open media", err)
	}
	defer file.Close()

	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          c.model,
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}
	if code := language.ToISO2(lang); code != "" && lang != language.Auto {
		params.Language = openai.String(code)
	}

	resp, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Transcript{}, wrapAPIError("transcribe", err)
	}
	return decodeTranscript(resp.RawJSON())
}

// HealthCheck verifies the key by looking up the configured model.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil {
		return errors.New("openaiwhisper: client is nil")
	}
	if _, err := c.api.Models.Get(ctx, string(c.model)); err != nil {
		return wrapAPIError("preflight", err)
	}
	return nil
}

func wrapAPIError(stage string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		marker := services.ErrRemoteHTTP
		if apiErr.StatusCode == http.StatusTooManyRequests {
			marker = services.ErrRateLimited
		}
		return services.Wrap(marker, stage, "openai", fmt.Sprintf("status %d", apiErr.StatusCode), err)
	}
	return services.Wrap(services.ErrRemoteHTTP, stage, "openai", "request failed", err)
}

// decodeTranscript reads the verbose fields the typed response omits.
func decodeTranscript(raw string) (Transcript, error) {
	if strings.TrimSpace(raw) == "" {
		return Transcript{}, services.Wrap(services.ErrTranscriptionParse, "transcribe", "openai", "empty response", nil)
	}
	var transcript Transcript
	if err := json.Unmarshal([]byte(raw), &transcript); err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscriptionParse, "transcribe", "openai", "decode response", err)
	}
	return transcript, nil
}
