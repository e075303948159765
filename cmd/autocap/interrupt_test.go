package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestCLIInterruptLogsError(t *testing.T) {
	env := setupCLITestEnv(t)

	cmd, cmdCtx := newRootCommandWithContext()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", env.configPath, "--project", "p1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		t.Fatal("expected cancelled run to fail")
	}
	cmdCtx.logInterrupt(err)

	content, readErr := os.ReadFile(filepath.Join(env.cfg.Paths.LogDir, "autocap.log"))
	if readErr != nil {
		t.Fatalf("read log file: %v", readErr)
	}
	requireContains(t, string(content), "ERROR program interrupted")
	requireContains(t, string(content), "event_type=user_interrupt")
	if len(env.asr.submitted()) != 0 {
		t.Fatal("cancelled run must not submit transcriptions")
	}
}
