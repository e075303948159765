package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"autocap/internal/config"
	"autocap/internal/testsupport"
	"autocap/internal/wistia"
)

const asrResult = `{
  "created_on": "2023-01-13T21:14:48.282656Z",
  "finished_on": "2023-01-13T21:14:52.726425Z",
  "http_code": 200,
  "error_detail": "",
  "content": "{\"text\":\" So if we look at it\",\"duration\":21,\"language\":\"en\",\"segments\":[{\"id\":0,\"seek\":0,\"start\":0.0,\"end\":5.8,\"text\":\" So if we look\"},{\"id\":1,\"seek\":0,\"start\":5.8,\"end\":11.48,\"text\":\" at it\"}]}"
}`

type captionUpload struct {
	method   string
	mediaID  string
	language string
	srt      string
}

// fakeWistia serves the subset of the data API the CLI touches.
type fakeWistia struct {
	mu       sync.Mutex
	projects []wistia.Project
	medias   map[string]wistia.Media
	captions map[string][]wistia.Caption
	uploads  []captionUpload
	toggles  map[string]bool
}

func newFakeWistia() *fakeWistia {
	f := &fakeWistia{
		medias:   map[string]wistia.Media{},
		captions: map[string][]wistia.Caption{},
		toggles:  map[string]bool{},
	}
	video := func(id, name string) wistia.Media {
		return wistia.Media{
			HashedID: id,
			Name:     name,
			Type:     "Video",
			Duration: 21,
			Assets: []wistia.Asset{
				{URL: "http://embed.example/deliveries/" + id + "-hd.bin", FileSize: 900, ContentType: "video/mp4"},
				{URL: "http://embed.example/deliveries/" + id + "-sd.bin", FileSize: 300, ContentType: "video/mp4"},
			},
		}
	}
	f.medias["v1"] = video("v1", "Intro")
	f.medias["v2"] = video("v2", "Outro")
	f.projects = []wistia.Project{
		{HashedID: "p2", Name: "beta", MediaCount: 0},
		{HashedID: "p1", Name: "Alpha", MediaCount: 2, Medias: []wistia.Media{
			{HashedID: "v1", Name: "Intro", Type: "Video"},
			{HashedID: "v2", Name: "Outro", Type: "Video"},
			{HashedID: "i1", Name: "Thumbnail", Type: "Image"},
		}},
	}
	return f
}

func (f *fakeWistia) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /projects.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			writeJSON(w, []wistia.Project{})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		listed := make([]wistia.Project, 0, len(f.projects))
		for _, p := range f.projects {
			p.Medias = nil
			listed = append(listed, p)
		}
		writeJSON(w, listed)
	})
	mux.HandleFunc("GET /projects/{file}", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(r.PathValue("file"), ".json")
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range f.projects {
			if p.HashedID == id {
				writeJSON(w, p)
				return
			}
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("GET /medias/{file}", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(r.PathValue("file"), ".json")
		f.mu.Lock()
		defer f.mu.Unlock()
		media, ok := f.medias[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, media)
	})
	mux.HandleFunc("GET /medias/{id}/captions.json", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		captions := f.captions[r.PathValue("id")]
		if captions == nil {
			captions = []wistia.Caption{}
		}
		writeJSON(w, captions)
	})
	mux.HandleFunc("POST /medias/{id}/captions.json", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		lang, srt := readCaptionForm(t, r)
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, c := range f.captions[id] {
			if c.Language == lang {
				http.Error(w, `{"error":"captions already exist"}`, http.StatusBadRequest)
				return
			}
		}
		f.captions[id] = append(f.captions[id], wistia.Caption{Language: lang, Text: srt})
		f.uploads = append(f.uploads, captionUpload{method: r.Method, mediaID: id, language: lang, srt: srt})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("PUT /medias/{id}/captions/{file}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		lang := strings.TrimSuffix(r.PathValue("file"), ".json")
		_, srt := readCaptionForm(t, r)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.uploads = append(f.uploads, captionUpload{method: r.Method, mediaID: id, language: lang, srt: srt})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /medias/{id}/customizations.json", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.medias[id]; !ok {
			http.NotFound(w, r)
			return
		}
		if !f.toggles[id] {
			writeJSON(w, map[string]any{})
			return
		}
		writeJSON(w, map[string]any{"plugin": map[string]any{wistia.CaptionsPlugin: map[string]any{"onByDefault": true}}})
	})
	mux.HandleFunc("PUT /medias/{id}/customizations.json", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Plugin map[string]any `json:"plugin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.medias[id]; !ok {
			http.NotFound(w, r)
			return
		}
		enabled := body.Plugin[wistia.CaptionsPlugin] != nil
		f.toggles[id] = enabled
		writeJSON(w, map[string]any{"plugin": body.Plugin})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "api" || pass != "test-password" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func readCaptionForm(t *testing.T, r *http.Request) (string, string) {
	t.Helper()
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		t.Errorf("parse caption form: %v", err)
		return "", ""
	}
	file, _, err := r.FormFile("caption_file")
	if err != nil {
		t.Errorf("caption_file: %v", err)
		return "", ""
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	return r.FormValue("language_code"), string(data)
}

func (f *fakeWistia) snapshotUploads() []captionUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]captionUpload(nil), f.uploads...)
}

// fakeASR answers submissions with a result URL that is immediately complete.
type fakeASR struct {
	mu          sync.Mutex
	submissions []string
}

func (a *fakeASR) handler(baseURL func() string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gpu/async/whisper/asr", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.mu.Lock()
		a.submissions = append(a.submissions, body["url"])
		n := len(a.submissions)
		a.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"url": baseURL() + "/get-async-result/" + strconv.Itoa(n)})
	})
	mux.HandleFunc("GET /get-async-result/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(asrResult))
	})
	return mux
}

func (a *fakeASR) submitted() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.submissions...)
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	wistia     *fakeWistia
	asr        *fakeASR
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"WISTIA_API_PASSWORD", "NLPCLOUD_KEY", "OPENAI_API_KEY", "HF_TOKEN", "NTFY_TOPIC"} {
		t.Setenv(key, "")
	}

	wistiaFake := newFakeWistia()
	wistiaServer := httptest.NewServer(wistiaFake.handler(t))
	t.Cleanup(wistiaServer.Close)

	asrFake := &fakeASR{}
	var asrServer *httptest.Server
	asrServer = httptest.NewServer(asrFake.handler(func() string { return asrServer.URL }))
	t.Cleanup(asrServer.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithWistiaBaseURL(wistiaServer.URL))
	cfg.NLPCloud.BaseURL = asrServer.URL
	cfg.Transcription.PollIntervalSeconds = 1
	cfg.Workflow.Concurrency = 2

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		wistia:     wistiaFake,
		asr:        asrFake,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
