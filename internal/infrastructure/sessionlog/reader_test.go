package sessionlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	page1 = `{"url":"https://example.com/","cookies_and_origins":{"cookies":[]},"local_storage":{},"session_storage":{},"resources":[]}`
	page2 = `{"url":"https://example.com/about","cookies_and_origins":{"cookies":[]},"local_storage":{},"session_storage":{},"resources":[]}`
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "browser_data_log.jsonl")
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReader_SkipsBadLines(t *testing.T) {
	p := writeLog(t, page1, `{"url":`, "", `{"resources":[]}`, page2)

	core, logs := observer.New(zapcore.WarnLevel)
	r, err := Open(p, zap.New(core).Sugar())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	entries, err := Collect(r)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 valid entries, got %d", len(entries))
	}
	if entries[0].URL != "https://example.com/" || entries[1].URL != "https://example.com/about" {
		t.Errorf("entries out of order: %s, %s", entries[0].URL, entries[1].URL)
	}
	if r.Skipped() != 2 {
		t.Errorf("expected 2 skipped lines, got %d", r.Skipped())
	}

	skipped := logs.FilterMessage("skipping session log line").All()
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skip diagnostics, got %d", len(skipped))
	}
	if skipped[0].ContextMap()["line"] != int64(2) {
		t.Errorf("expected first skipped line to be 2, got %v", skipped[0].ContextMap()["line"])
	}
}

func TestReader_SkipsOversizedLine(t *testing.T) {
	long := `{"url":"https://example.com/` + strings.Repeat("a", 100_000) + `","resources":[]}`
	p := writeLog(t, page1, long, page2)

	core, logs := observer.New(zapcore.WarnLevel)
	r, err := Open(p, zap.New(core).Sugar())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r.maxLine = 1024

	entries, err := Collect(r)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 valid entries, got %d", len(entries))
	}
	if entries[1].URL != "https://example.com/about" {
		t.Errorf("expected the line after the oversized one, got %s", entries[1].URL)
	}
	if r.Skipped() != 1 {
		t.Errorf("expected 1 skipped line, got %d", r.Skipped())
	}

	skipped := logs.FilterMessage("skipping session log line").All()
	if len(skipped) != 1 || skipped[0].ContextMap()["line"] != int64(2) {
		t.Errorf("expected a diagnostic for line 2, got %v", skipped)
	}
}

func TestReader_IsRestartable(t *testing.T) {
	r, err := Open(writeLog(t, page1, page2), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for pass := 0; pass < 2; pass++ {
		count := 0
		for _, err := range r.All() {
			if err != nil {
				t.Fatalf("pass %d: %v", pass, err)
			}
			count++
		}
		if count != 2 {
			t.Errorf("pass %d: expected 2 entries, got %d", pass, count)
		}
	}
}

func TestReader_EarlyBreak(t *testing.T) {
	r, err := Open(writeLog(t, page1, page2), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for entry := range r.All() {
		if entry.URL != "https://example.com/" {
			t.Errorf("unexpected first entry %s", entry.URL)
		}
		break
	}
}

func TestOpen_Missing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.jsonl"), nil); err == nil {
		t.Fatal("expected error for missing log")
	}
}

func TestLoadRequests(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "network_requests.json")
	body := `[{"url":"https://t.test/collect","resource_type":"xhr","method":"POST"},{"method":"GET"},{"url":"https://cdn.test/app.js","resource_type":"script","method":"GET"}]`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zapcore.WarnLevel)
	reqs, err := LoadRequests(p, zap.New(core).Sugar())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 valid requests, got %d", len(reqs))
	}
	if logs.FilterMessage("skipping network request").Len() != 1 {
		t.Error("expected one skip diagnostic")
	}

	none, err := LoadRequests(filepath.Join(dir, "absent.json"), nil)
	if err != nil || none != nil {
		t.Errorf("missing file should yield nil, nil; got %v, %v", none, err)
	}
	none, err = LoadRequests("", nil)
	if err != nil || none != nil {
		t.Errorf("empty path should yield nil, nil; got %v, %v", none, err)
	}
}
