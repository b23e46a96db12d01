package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/cobra"

	consts "github.com/khanhnv2901/privscan/internal/shared/constants"
)

// setupTestAppContext installs an AppContext rooted in a temp data directory
// and returns a restore func.
func setupTestAppContext(t *testing.T) func() {
	t.Helper()

	original := globalAppContext
	originalNoColor := color.NoColor
	color.NoColor = true

	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	resultsDir := filepath.Join(dataDir, "results")
	if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
		t.Fatalf("failed to create results directory: %v", err)
	}

	cfg := newCLIConfig()
	cfg.Scan.NoProbe = true

	globalAppContext = &AppContext{
		Logger:     nil,
		ResultsDir: resultsDir,
		Config:     cfg,
	}

	return func() {
		globalAppContext = original
		color.NoColor = originalNoColor
	}
}

// newTestCommand returns a bare command with a context and captured output.
func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	c := &cobra.Command{Use: "test"}
	c.SetContext(context.Background())
	c.SetOut(&buf)
	c.SetErr(&buf)
	return c, &buf
}

func writeTestArchive(t *testing.T, members map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create member %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	p := filepath.Join(t.TempDir(), "capture.zip")
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	return p
}
