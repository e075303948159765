package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autocap/internal/services"
)

const wantSRT = "1\n00:00:00,000 --> 00:00:06,100\nSo if we look\n\n2\n00:00:05,500 --> 00:00:11,780\nat it\n\n"

func TestCLIListProjectsPlain(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--list-projects"}, env.configPath)
	if err != nil {
		t.Fatalf("--list-projects: %v", err)
	}
	if out != "1. p1: Alpha\n2. p2: beta\n" {
		t.Fatalf("unexpected listing %q", out)
	}
}

func TestCLIListProjectsNeedsOnlyPassword(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.NLPCloud.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)

	if _, _, err := runCLI(t, []string{"-l"}, env.configPath); err != nil {
		t.Fatalf("listing should not need a transcription key: %v", err)
	}
	_, _, err := runCLI(t, []string{"--video", "v1"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "nlpcloud.api_key") {
		t.Fatalf("expected missing nlpcloud key error, got %v", err)
	}
}

func TestCLIProcessVideo(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--video", "v1"}, env.configPath)
	if err != nil {
		t.Fatalf("--video: %v", err)
	}
	requireContains(t, out, "Captions uploaded for v1 (2 cues, English)")
	requireContains(t, out, "View your captions: https://my.wistia.com/medias/v1")

	submitted := env.asr.submitted()
	if len(submitted) != 1 || submitted[0] != "http://embed.example/deliveries/v1-sd.bin" {
		t.Fatalf("expected the smallest mp4 to be submitted once, got %v", submitted)
	}
	uploads := env.wistia.snapshotUploads()
	if len(uploads) != 1 {
		t.Fatalf("expected one upload, got %+v", uploads)
	}
	if uploads[0].method != "POST" || uploads[0].language != "eng" || uploads[0].srt != wantSRT {
		t.Fatalf("unexpected upload %+v", uploads[0])
	}

	saved, err := os.ReadFile(filepath.Join(env.cfg.Paths.SRTDir, "v1.srt"))
	if err != nil {
		t.Fatalf("read saved srt: %v", err)
	}
	if string(saved) != wantSRT {
		t.Fatalf("saved srt = %q", saved)
	}
	for _, name := range []string{"request_async_asr__v1.json", "retrieve_async_asr_result__v1.json"} {
		if _, err := os.Stat(filepath.Join(env.cfg.Paths.CacheDir, name)); err != nil {
			t.Fatalf("expected cache entry %s: %v", name, err)
		}
	}
}

func TestCLIProcessVideoConflictAndReplace(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"-v", "v1"}, env.configPath); err != nil {
		t.Fatalf("first run: %v", err)
	}
	_, _, err := runCLI(t, []string{"-v", "v1"}, env.configPath)
	if !errors.Is(err, services.ErrUploadConflict) {
		t.Fatalf("expected upload conflict, got %v", err)
	}

	out, _, err := runCLI(t, []string{"-v", "v1", "--replace"}, env.configPath)
	if err != nil {
		t.Fatalf("--replace: %v", err)
	}
	requireContains(t, out, "Captions replaced for v1")

	if got := env.asr.submitted(); len(got) != 1 {
		t.Fatalf("cached transcription should be reused, submissions: %v", got)
	}
	uploads := env.wistia.snapshotUploads()
	last := uploads[len(uploads)-1]
	if last.method != "PUT" || last.language != "eng" {
		t.Fatalf("expected PUT replacement, got %+v", last)
	}
}

func TestCLIProcessProject(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--project", "p1", "--concurrency", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("--project: %v", err)
	}
	requireContains(t, out, "v1")
	requireContains(t, out, "v2")
	requireContains(t, out, "2 captioned, 0 failed")
	if strings.Contains(out, "i1") {
		t.Fatalf("image media should be skipped: %q", out)
	}
	if got := env.asr.submitted(); len(got) != 2 {
		t.Fatalf("expected two submissions, got %v", got)
	}
}

func TestCLIProcessProjectReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	env.wistia.mu.Lock()
	media := env.wistia.medias["v2"]
	media.Assets = nil
	env.wistia.medias["v2"] = media
	env.wistia.mu.Unlock()

	out, _, err := runCLI(t, []string{"-p", "p1"}, env.configPath)
	if err == nil || err.Error() != "1 of 2 videos failed" {
		t.Fatalf("expected one failure, got %v", err)
	}
	requireContains(t, out, "1 captioned, 1 failed")
	requireContains(t, out, "failed")
}

func TestCLIToggleCaptions(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--toggle-captions", "off", "--video", "v1"}, env.configPath)
	if err != nil {
		t.Fatalf("toggle video: %v", err)
	}
	requireContains(t, out, "Captions off for v1")

	out, _, err = runCLI(t, []string{"--toggle-captions", "on", "--project", "p1"}, env.configPath)
	if err != nil {
		t.Fatalf("toggle project: %v", err)
	}
	requireContains(t, out, "2 toggled on, 0 failed")

	env.wistia.mu.Lock()
	defer env.wistia.mu.Unlock()
	if !env.wistia.toggles["v1"] || !env.wistia.toggles["v2"] {
		t.Fatalf("expected captions enabled for both videos, got %v", env.wistia.toggles)
	}
	if len(env.asr.submitted()) != 0 {
		t.Fatal("toggling must not transcribe")
	}
}

func TestCLIFlagValidation(t *testing.T) {
	env := setupCLITestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no mode", []string{}, "one of --video, --project or --list-projects is required"},
		{"video and project", []string{"--video", "v1", "--project", "p1"}, "none of the others can be"},
		{"list and video", []string{"-l", "-v", "v1"}, "none of the others can be"},
		{"toggle with list", []string{"-l", "--toggle-captions", "on"}, "--toggle-captions needs --video or --project"},
		{"bad toggle", []string{"-v", "v1", "--toggle-captions", "maybe"}, "must be on or off"},
		{"bad service", []string{"-v", "v1", "--service", "carrier-pigeon"}, "--service must be one of"},
		{"negative concurrency", []string{"-p", "p1", "--concurrency", "-1"}, "--concurrency must be positive"},
		{"stray argument", []string{"v1"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args, env.configPath)
			if err == nil {
				t.Fatalf("expected error for %v", tt.args)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestCLIPasswordFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Wistia.APIPassword = "stale"
	writeTestConfig(t, env.configPath, env.cfg)

	if _, _, err := runCLI(t, []string{"-l"}, env.configPath); !errors.Is(err, services.ErrRemoteHTTP) {
		t.Fatalf("expected auth failure with stale password, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"-l", "--password", "test-password"}, env.configPath); err != nil {
		t.Fatalf("--password override: %v", err)
	}
}
