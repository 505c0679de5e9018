package curriculum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaterialSource lists material filenames for linking. The GCS bucket in
// platform/gcp and DirSource both satisfy it.
type MaterialSource interface {
	Name() string
	List(ctx context.Context) ([]string, error)
}

// MaterialExtensions are the file types linked to syllabus context.
var MaterialExtensions = []string{".pdf", ".docx", ".pptx", ".txt"}

func isMaterial(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range MaterialExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DirSource lists regular files directly inside a local directory.
type DirSource struct {
	Dir string
}

func (d DirSource) Name() string { return d.Dir }

func (d DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("materials: read %s: %w", d.Dir, err)
	}
	var out []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.Type().IsRegular() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
