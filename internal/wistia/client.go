package wistia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"autocap/internal/logging"
	"autocap/internal/services"
)

const (
	DefaultBaseURL   = "https://api.wistia.com/v1"
	DefaultPageLimit = 20
	defaultTimeout   = 60 * time.Second
	userAgent        = "autocap-wistia-client"
)

// HTTPDoer describes the HTTP client used by the Wistia client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes the client configuration.
type Config struct {
	APIPassword string
	BaseURL     string
	// PageLimit caps ListProjects pagination.
	PageLimit  int
	HTTPClient HTTPDoer
	// DownloadClient fetches media assets. It defaults to a client without
	// a timeout; the request context bounds the transfer.
	DownloadClient HTTPDoer
	Logger         *slog.Logger
}

// Client talks to the Wistia data API.
type Client struct {
	password  string
	baseURL   string
	pageLimit int
	http      HTTPDoer
	download  HTTPDoer
	logger    *slog.Logger
}

// New creates a Client. The API password is required.
func New(cfg Config) (*Client, error) {
	password := strings.TrimSpace(cfg.APIPassword)
	if password == "" {
		return nil, services.Wrap(services.ErrConfiguration, "wistia", "client", "api password required", nil)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	download := cfg.DownloadClient
	if download == nil {
		download = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		password:  password,
		baseURL:   baseURL,
		pageLimit: pageLimit,
		http:      client,
		download:  download,
		logger:    logging.NewComponentLogger(logger, "wistia"),
	}, nil
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("wistia: build %s request: %w", method, err)
	}
	req.SetBasicAuth("api", c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// do sends req and decodes a JSON body into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("wistia: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if err := services.CheckResponse(resp); err != nil {
		return fmt.Errorf("wistia: %w", err)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("wistia: decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// ListProjects returns every project, paginating until an empty page or the
// page limit.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	exhausted := false
	for page := 1; page <= c.pageLimit; page++ {
		var batch []Project
		target := c.endpoint("projects.json") + "?page=" + strconv.Itoa(page)
		if err := c.getJSON(ctx, target, &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			exhausted = true
			break
		}
		projects = append(projects, batch...)
	}
	if !exhausted {
		logging.WarnWithContext(c.logger, "project listing stopped at page limit", "project_page_limit",
			logging.Int("page_limit", c.pageLimit),
			logging.Int("projects", len(projects)),
			logging.String(logging.FieldErrorHint, "raise wistia.page_limit in the config"),
			logging.String(logging.FieldImpact, "some projects may be missing from the list"),
		)
	}
	c.logger.Info("projects listed", logging.Int("projects", len(projects)))
	return projects, nil
}

// ShowProject returns a project with its medias.
func (c *Client) ShowProject(ctx context.Context, projectID string) (Project, error) {
	var project Project
	if err := c.getJSON(ctx, c.endpoint("projects", projectID+".json"), &project); err != nil {
		return Project{}, err
	}
	return project, nil
}

// ShowMedia returns a media with its assets.
func (c *Client) ShowMedia(ctx context.Context, mediaID string) (Media, error) {
	var media Media
	if err := c.getJSON(ctx, c.endpoint("medias", mediaID+".json"), &media); err != nil {
		return Media{}, err
	}
	return media, nil
}

// ShowCustomizations returns the embed customizations of a media.
func (c *Client) ShowCustomizations(ctx context.Context, mediaID string) (Customizations, error) {
	custom := Customizations{}
	if err := c.getJSON(ctx, c.endpoint("medias", mediaID, "customizations.json"), &custom); err != nil {
		return nil, err
	}
	return custom, nil
}

// SetCaptionsEnabled turns caption display on (captions plugin present and
// shown by default) or off (plugin removed).
func (c *Client) SetCaptionsEnabled(ctx context.Context, mediaID string, enabled bool) (Customizations, error) {
	var plugin any
	if enabled {
		plugin = map[string]any{"onByDefault": true}
	}
	payload := map[string]any{"plugin": map[string]any{CaptionsPlugin: plugin}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wistia: encode customizations: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, c.endpoint("medias", mediaID, "customizations.json"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	custom := Customizations{}
	if err := c.do(req, &custom); err != nil {
		return nil, err
	}
	return custom, nil
}

// ListCaptions returns the caption tracks of a media.
func (c *Client) ListCaptions(ctx context.Context, mediaID string) ([]Caption, error) {
	var captions []Caption
	if err := c.getJSON(ctx, c.endpoint("medias", mediaID, "captions.json"), &captions); err != nil {
		return nil, err
	}
	return captions, nil
}

// CreateCaptions uploads a new caption track in languageCode (ISO 639-2).
func (c *Client) CreateCaptions(ctx context.Context, mediaID, languageCode string, srt []byte) error {
	return c.sendCaptions(ctx, http.MethodPost, c.endpoint("medias", mediaID, "captions.json"), languageCode, srt)
}

// UpdateCaptions replaces the existing caption track in languageCode.
func (c *Client) UpdateCaptions(ctx context.Context, mediaID, languageCode string, srt []byte) error {
	return c.sendCaptions(ctx, http.MethodPut, c.endpoint("medias", mediaID, "captions", languageCode+".json"), "", srt)
}

func (c *Client) sendCaptions(ctx context.Context, method, target, languageCode string, srt []byte) error {
	if len(bytes.TrimSpace(srt)) == 0 {
		return services.Wrap(services.ErrValidation, "upload", "captions", "caption file is empty", nil)
	}
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if languageCode != "" {
		if err := form.WriteField("language_code", languageCode); err != nil {
			return fmt.Errorf("wistia: write language field: %w", err)
		}
	}
	part, err := form.CreateFormFile("caption_file", "captions.srt")
	if err != nil {
		return fmt.Errorf("wistia: create caption part: %w", err)
	}
	if _, err := part.Write(srt); err != nil {
		return fmt.Errorf("wistia: write caption part: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("wistia: close multipart body: %w", err)
	}
	req, err := c.newRequest(ctx, method, target, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return c.do(req, nil)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var herr *services.HTTPError
	return errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound
}
