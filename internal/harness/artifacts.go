package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/forgo/admin-e2e/internal/browser"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Artifacts stores page snapshots of failed scenarios under Dir, one
// directory per scenario
type Artifacts struct {
	Dir string
}

// NewArtifacts returns nil for an empty dir, which disables capture
func NewArtifacts(dir string) *Artifacts {
	if dir == "" {
		return nil
	}
	return &Artifacts{Dir: dir}
}

// PathFor is the directory holding id's snapshot
func (a *Artifacts) PathFor(id TestID) string {
	parts := make([]string, len(id.Path))
	for i, p := range id.Path {
		parts[i] = strings.Trim(unsafeName.ReplaceAllString(p, "_"), "_")
		if parts[i] == "" {
			parts[i] = "_"
		}
	}
	return filepath.Join(a.Dir, strings.Join(parts, "__"))
}

// Write stores snap and returns the directory written. Each file is
// replaced atomically.
func (a *Artifacts) Write(id TestID, snap *browser.Snapshot) (string, error) {
	dir := a.PathFor(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}

	files := map[string][]byte{
		"url.txt":   []byte(snap.URL + "\n"),
		"page.html": []byte(snap.HTML),
	}
	if len(snap.Screenshot) > 0 {
		files["screenshot"+imageExt(snap.Screenshot)] = snap.Screenshot
	}
	if len(snap.Console) > 0 {
		files["console.log"] = []byte(strings.Join(snap.Console, "\n") + "\n")
	}

	for name, data := range files {
		if err := atomic.WriteFile(filepath.Join(dir, name), bytes.NewReader(data)); err != nil {
			return dir, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return dir, nil
}

func imageExt(b []byte) string {
	if bytes.HasPrefix(b, []byte("\x89PNG")) {
		return ".png"
	}
	return ".jpg"
}
