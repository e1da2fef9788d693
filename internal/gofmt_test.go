package internal

import (
	"bytes"
	"go/format"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// moduleRoot returns the directory holding go.mod, starting from the test's
// working directory.
func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above the working directory")
		}
		dir = parent
	}
}

// TestGofmtCompliance fails for every Go file under internal/ and cmd/ that
// gofmt would rewrite. Fix with: gofmt -w ./internal ./cmd
func TestGofmtCompliance(t *testing.T) {
	root := moduleRoot(t)

	var unformatted []string
	for _, sub := range []string{"internal", "cmd"} {
		err := filepath.WalkDir(filepath.Join(root, sub), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if name := d.Name(); name == "vendor" || (strings.HasPrefix(name, ".") && path != root) {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".go") {
				return nil
			}

			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			rel, _ := filepath.Rel(root, path)
			formatted, err := format.Source(src)
			if err != nil {
				unformatted = append(unformatted, rel+" (does not parse: "+err.Error()+")")
				return nil
			}
			if !bytes.Equal(src, formatted) {
				unformatted = append(unformatted, rel)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("walk %s: %v", sub, err)
		}
	}

	if len(unformatted) > 0 {
		t.Errorf("files not formatted with gofmt:\n  %s\nrun: gofmt -w ./internal ./cmd",
			strings.Join(unformatted, "\n  "))
	}
}
