// Package testutil provides test helper utilities for docchat tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/berth-dev/docchat/internal/stubserver"
)

// TempProject creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// DocsProject returns file contents for a project with a docs/ directory
// holding the given page bodies, named in order.
func DocsProject(pages ...string) map[string]string {
	files := map[string]string{}
	for i, body := range pages {
		files[fmt.Sprintf("docs/%02d-page.md", i+1)] = body
	}
	return files
}

// ConfigFile returns a .docchat/config.yaml pointing at baseURL with the
// in-memory store.
func ConfigFile(baseURL string) map[string]string {
	return map[string]string{
		".docchat/config.yaml": fmt.Sprintf(`version: 1
api:
  base_url: %s
storage:
  backend: memory
`, baseURL),
	}
}

// StubBackend starts a stub chat backend on a free local port and stops it
// when the test finishes.
func StubBackend(t *testing.T, opts ...stubserver.Option) (*stubserver.Server, string) {
	t.Helper()
	srv := stubserver.New(opts...)
	running, err := srv.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("starting stub backend: %v", err)
	}
	t.Cleanup(func() {
		if err := running.Stop(); err != nil {
			t.Errorf("stopping stub backend: %v", err)
		}
	})
	return srv, running.URL()
}
