package nlpcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autocap/internal/services"
)

const (
	defaultBaseURL     = "https://api.nlpcloud.io/v1"
	defaultModel       = "whisper"
	defaultHTTPTimeout = 60 * time.Second
	userAgent          = "autocap-nlpcloud-client"
)

// Config describes the client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	GPU        bool
	HTTPClient *http.Client
}

// Client wraps the async ASR endpoints.
type Client struct {
	apiKey  string
	rootURL *url.URL
	http    *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("nlpcloud: api key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("nlpcloud: parse base url: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	root := baseURL
	if cfg.GPU {
		root = root.JoinPath("gpu")
	}
	root = root.JoinPath("async", model)

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{apiKey: apiKey, rootURL: root, http: client}, nil
}

// AsyncHandle is the submission response: where the result will be published.
type AsyncHandle struct {
	URL string `json:"url"`
}

// Segment is one timed span of the recognized speech.
type Segment struct {
	ID    int     `json:"id"`
	Seek  int     `json:"seek"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Content is the decoded transcription payload.
type Content struct {
	Text     string    `json:"text"`
	Duration float64   `json:"duration"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Result is a finished async job.
type Result struct {
	CreatedOn   string
	FinishedOn  string
	HTTPCode    int
	ErrorDetail string
	Content     Content
}

type resultPayload struct {
	CreatedOn   string `json:"created_on"`
	RequestBody string `json:"request_body"`
	FinishedOn  string `json:"finished_on"`
	HTTPCode    int    `json:"http_code"`
	ErrorDetail string `json:"error_detail"`
	Content     string `json:"content"`
}

// Submit queues speech recognition for mediaURL.
func (c *Client) Submit(ctx context.Context, mediaURL string) (AsyncHandle, error) {
	if c == nil {
		return AsyncHandle{}, errors.New("nlpcloud: client is nil")
	}
	if strings.TrimSpace(mediaURL) == "" {
		return AsyncHandle{}, services.Wrap(services.ErrValidation, "transcribe", "submit", "media url required", nil)
	}
	body, err := json.Marshal(map[string]string{"url": mediaURL})
	if err != nil {
		return AsyncHandle{}, fmt.Errorf("nlpcloud: encode submit body: %w", err)
	}
	endpoint := c.rootURL.JoinPath("asr")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return AsyncHandle{}, fmt.Errorf("nlpcloud: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return AsyncHandle{}, fmt.Errorf("nlpcloud: submit request failed: %w", err)
	}
	defer resp.Body.Close()
	if err := services.CheckResponse(resp); err != nil {
		return AsyncHandle{}, fmt.Errorf("nlpcloud: submit: %w", err)
	}

	var handle AsyncHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		return AsyncHandle{}, services.Wrap(services.ErrTranscriptionParse, "transcribe", "submit", "decode response", err)
	}
	if strings.TrimSpace(handle.URL) == "" {
		return AsyncHandle{}, services.Wrap(services.ErrTranscriptionParse, "transcribe", "submit", "response missing result url", nil)
	}
	return handle, nil
}

// Result fetches the job result published at resultURL. It returns nil, nil
// while the job is still running.
func (c *Client) Result(ctx context.Context, resultURL string) (*Result, error) {
	if c == nil {
		return nil, errors.New("nlpcloud: client is nil")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, fmt.Errorf("nlpcloud: build result request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nlpcloud: result request failed: %w", err)
	}
	defer resp.Body.Close()
	if err := services.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("nlpcloud: result: %w", err)
	}
	if resp.StatusCode == http.StatusAccepted {
		return nil, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nlpcloud: read result: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return ParseResult(data)
}

// ParseResult decodes a finished job body, including the nested content
// document.
func ParseResult(data []byte) (*Result, error) {
	var payload resultPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, services.Wrap(services.ErrTranscriptionParse, "transcribe", "result", "decode response", err)
	}
	result := &Result{
		CreatedOn:   payload.CreatedOn,
		FinishedOn:  payload.FinishedOn,
		HTTPCode:    payload.HTTPCode,
		ErrorDetail: payload.ErrorDetail,
	}
	if payload.HTTPCode != 0 && payload.HTTPCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "result",
			fmt.Sprintf("job failed with http_code %d: %s", payload.HTTPCode, strings.TrimSpace(payload.ErrorDetail)), nil)
	}
	if strings.TrimSpace(payload.Content) == "" {
		return nil, services.Wrap(services.ErrTranscriptionParse, "transcribe", "result", "empty content", nil)
	}
	if err := json.Unmarshal([]byte(payload.Content), &result.Content); err != nil {
		return nil, services.Wrap(services.ErrTranscriptionParse, "transcribe", "result", "decode content", err)
	}
	return result, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
}
