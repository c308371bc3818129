package terminal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResetShowsCursor(t *testing.T) {
	var buf bytes.Buffer
	Reset(&buf)

	if !strings.HasPrefix(buf.String(), "\033[?25h") {
		t.Errorf("expected cursor show first, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "\033[?1049l") {
		t.Error("expected alt screen exit")
	}
}

func TestInteractiveFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()

	if Interactive(f) {
		t.Error("a regular file is not a terminal")
	}
}
