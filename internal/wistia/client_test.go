package wistia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"autocap/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, pageLimit int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{APIPassword: "secret", BaseURL: server.URL, PageLimit: pageLimit, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func requireAuth(t *testing.T, r *http.Request) {
	t.Helper()
	user, pass, ok := r.BasicAuth()
	if !ok || user != "api" || pass != "secret" {
		t.Errorf("unexpected basic auth %q/%q (ok=%v)", user, pass, ok)
	}
}

func TestListProjectsPaginatesUntilEmptyPage(t *testing.T) {
	var pages []int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requireAuth(t, r)
		if r.URL.Path != "/projects.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, page)
		if page > 2 {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		fmt.Fprintf(w, `[{"id":%d,"hashedId":"p%d","name":"Project %d","mediaCount":3}]`, page, page, page)
	}, 20)

	projects, err := client.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 2 || projects[1].HashedID != "p2" || projects[0].MediaCount != 3 {
		t.Fatalf("unexpected projects %+v", projects)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 page requests, got %v", pages)
	}
}

func TestListProjectsStopsAtPageLimit(t *testing.T) {
	var requests int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`[{"hashedId":"x","name":"always more"}]`))
	}, 3)

	projects, err := client.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if requests != 3 || len(projects) != 3 {
		t.Fatalf("expected 3 requests and projects, got %d/%d", requests, len(projects))
	}
}

func TestShowProjectAndMedia(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requireAuth(t, r)
		switch r.URL.Path {
		case "/projects/proj1.json":
			_, _ = w.Write([]byte(`{"hashedId":"proj1","name":"Demo","medias":[{"hashed_id":"m1","name":"One"},{"hashed_id":"m2","name":"Two"}]}`))
		case "/medias/m1.json":
			_, _ = w.Write([]byte(`{"hashed_id":"m1","duration":12.5,"assets":[{"url":"https://embed/a.bin","fileSize":100,"contentType":"video/mp4","type":"OriginalFile"}]}`))
		default:
			http.NotFound(w, r)
		}
	}, 0)

	project, err := client.ShowProject(context.Background(), "proj1")
	if err != nil {
		t.Fatalf("ShowProject: %v", err)
	}
	if len(project.Medias) != 2 || project.Medias[1].HashedID != "m2" {
		t.Fatalf("unexpected project %+v", project)
	}
	media, err := client.ShowMedia(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ShowMedia: %v", err)
	}
	if media.Duration != 12.5 || len(media.Assets) != 1 || media.Assets[0].FileSize != 100 {
		t.Fatalf("unexpected media %+v", media)
	}
	_, err = client.ShowMedia(context.Background(), "missing")
	if !errors.Is(err, services.ErrRemoteHTTP) || !IsNotFound(err) {
		t.Fatalf("expected 404 remote error, got %v", err)
	}
}

func TestRateLimitedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many", http.StatusTooManyRequests)
	}, 0)
	_, err := client.ListCaptions(context.Background(), "m1")
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if services.StatusCode(err) != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", services.StatusCode(err))
	}
}

func TestCreateAndUpdateCaptions(t *testing.T) {
	type upload struct {
		method, path, language, file string
	}
	var uploads []upload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requireAuth(t, r)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		file, _, err := r.FormFile("caption_file")
		if err != nil {
			t.Errorf("caption_file missing: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		uploads = append(uploads, upload{r.Method, r.URL.Path, r.FormValue("language_code"), string(data)})
		w.WriteHeader(http.StatusOK)
	}, 0)

	srt := []byte("1\n00:00:00,000 --> 00:00:01,000\nHi\n\n")
	if err := client.CreateCaptions(context.Background(), "m1", "eng", srt); err != nil {
		t.Fatalf("CreateCaptions: %v", err)
	}
	if err := client.UpdateCaptions(context.Background(), "m1", "eng", srt); err != nil {
		t.Fatalf("UpdateCaptions: %v", err)
	}
	want := []upload{
		{http.MethodPost, "/medias/m1/captions.json", "eng", string(srt)},
		{http.MethodPut, "/medias/m1/captions/eng.json", "", string(srt)},
	}
	if len(uploads) != len(want) {
		t.Fatalf("unexpected uploads %+v", uploads)
	}
	for i := range want {
		if uploads[i] != want[i] {
			t.Fatalf("upload %d = %+v, want %+v", i, uploads[i], want[i])
		}
	}
	if err := client.CreateCaptions(context.Background(), "m1", "eng", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty captions, got %v", err)
	}
}

func TestListCaptions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/medias/m1/captions.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"language":"eng","english_name":"English","text":"..."}]`))
	}, 0)
	captions, err := client.ListCaptions(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ListCaptions: %v", err)
	}
	if len(captions) != 1 || captions[0].Language != "eng" {
		t.Fatalf("unexpected captions %+v", captions)
	}
	_, err = client.ListCaptions(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if IsNotFound(services.ErrRemoteHTTP) {
		t.Fatal("bare sentinel should not count as not found")
	}
}

func TestShowCustomizations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/medias/m1/customizations.json" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"playerColor":"54bbff","plugin":{"captions-v1":{"onByDefault":false}}}`))
	}, 0)
	custom, err := client.ShowCustomizations(context.Background(), "m1")
	if err != nil {
		t.Fatalf("ShowCustomizations: %v", err)
	}
	if !custom.HasCaptionsPlugin() {
		t.Fatalf("expected captions plugin in %v", custom)
	}
	if custom.CaptionsEnabled() {
		t.Fatalf("captions control without onByDefault should not count as on: %v", custom)
	}
}

func TestSetCaptionsEnabled(t *testing.T) {
	var bodies []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/medias/m1/customizations.json" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		bodies = append(bodies, string(body))
		_, _ = w.Write(body)
	}, 0)

	on, err := client.SetCaptionsEnabled(context.Background(), "m1", true)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !on.CaptionsEnabled() {
		t.Fatalf("expected captions enabled in %v", on)
	}
	off, err := client.SetCaptionsEnabled(context.Background(), "m1", false)
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if off.CaptionsEnabled() || off.HasCaptionsPlugin() {
		t.Fatalf("expected captions disabled in %v", off)
	}
	want := []string{
		`{"plugin":{"captions-v1":{"onByDefault":true}}}`,
		`{"plugin":{"captions-v1":null}}`,
	}
	if len(bodies) != len(want) {
		t.Fatalf("unexpected payloads %v", bodies)
	}
	for i := range want {
		if bodies[i] != want[i] {
			t.Fatalf("payload %d = %s, want %s", i, bodies[i], want[i])
		}
	}
}

func TestSmallestVideoAsset(t *testing.T) {
	assets := []Asset{
		{URL: "orig", FileSize: 9000, ContentType: "video/mp4"},
		{URL: "still", FileSize: 10, ContentType: "image/jpeg"},
		{URL: "small", FileSize: 300, ContentType: "video/mp4"},
		{URL: "hls", FileSize: 50, ContentType: "application/x-mpegURL"},
	}
	got, err := SmallestVideoAsset(assets)
	if err != nil {
		t.Fatalf("SmallestVideoAsset: %v", err)
	}
	if got.URL != "small" {
		t.Fatalf("expected smallest mp4, got %+v", got)
	}
	if _, err := SmallestVideoAsset(assets[1:2]); !errors.Is(err, services.ErrNoAssetFound) {
		t.Fatalf("expected no asset error, got %v", err)
	}
}

func TestDownloadAsset(t *testing.T) {
	payload := []byte("fake mp4 payload")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); ok {
			t.Errorf("download must not send credentials")
		}
		if r.URL.Path == "/deliveries/a.bin" {
			_, _ = w.Write(payload)
			return
		}
		http.NotFound(w, r)
	}, 0)

	dest := filepath.Join(t.TempDir(), "downloads", "m1.mp4")
	n, err := client.DownloadAsset(context.Background(), client.baseURL+"/deliveries/a.bin", dest)
	if err != nil {
		t.Fatalf("DownloadAsset: %v", err)
	}
	if n != int64(len(payload)) {
		t.Fatalf("wrote %d bytes, want %d", n, len(payload))
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != string(payload) {
		t.Fatalf("unexpected file contents %q (err=%v)", data, err)
	}

	missing := filepath.Join(t.TempDir(), "m2.mp4")
	if _, err := client.DownloadAsset(context.Background(), client.baseURL+"/deliveries/none.bin", missing); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Fatalf("failed download must not leave a file, stat err=%v", err)
	}
}

func TestNewRequiresPassword(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
