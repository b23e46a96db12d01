package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveWithinValidPath(t *testing.T) {
	base := t.TempDir()

	child := filepath.Join("sub", "file.txt")
	resolved, err := ResolveWithin(base, child)
	if err != nil {
		t.Fatalf("ResolveWithin returned error: %v", err)
	}
	if !strings.HasPrefix(resolved, base) {
		t.Fatalf("expected resolved path %s to stay within base %s", resolved, base)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		t.Fatalf("failed to create parent dirs: %v", err)
	}
	if err := os.WriteFile(resolved, []byte("ok"), 0o600); err != nil {
		t.Fatalf("failed to write resolved file: %v", err)
	}
}

func TestResolveWithinBlocksEscape(t *testing.T) {
	base := t.TempDir()
	_, err := ResolveWithin(base, "..", "etc", "passwd")
	if err == nil {
		t.Fatal("expected path escape error")
	}
	if !errors.Is(err, ErrPathEscape) {
		t.Errorf("expected ErrPathEscape, got %v", err)
	}
}

func TestResolveWithinBlocksZipSlipMember(t *testing.T) {
	base := t.TempDir()
	if _, err := ResolveWithin(base, "session-1/../../evil.jsonl"); err == nil {
		t.Fatal("expected archive member with traversal to be rejected")
	}
}

func TestResolveWithinEmptyBase(t *testing.T) {
	_, err := ResolveWithin("", "some", "path")
	if err == nil {
		t.Fatal("expected error for empty base directory")
	}
	if err.Error() != "base directory is required" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestResolveWithinMultipleElements(t *testing.T) {
	base := t.TempDir()

	resolved, err := ResolveWithin(base, "a", "b", "c", "file.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := filepath.Join(base, "a", "b", "c", "file.txt")
	if resolved != expected {
		t.Errorf("expected %s, got %s", expected, resolved)
	}
}

func TestSafeFileComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"session-1", "session-1"},
		{"", "_"},
		{"..", "_"},
		{"a/b", "a_b"},
		{`a\b`, "a_b"},
		{"x..y", "x_y"},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		if got := SafeFileComponent(tt.in); got != tt.want {
			t.Errorf("SafeFileComponent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
