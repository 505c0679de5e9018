package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum"
)

// Manifest lists courses for batch ingestion. Relative paths resolve against
// the manifest's directory.
type Manifest struct {
	Courses []ManifestCourse `yaml:"courses"`
}

type ManifestCourse struct {
	Course       string                 `yaml:"course"`
	Syllabus     string                 `yaml:"syllabus,omitempty"`
	Tables       *curriculum.TablePaths `yaml:"tables,omitempty"`
	MaterialsDir string                 `yaml:"materials_dir,omitempty"`
	// MaterialsBucket links against the configured GCS bucket.
	MaterialsBucket bool `yaml:"materials_bucket,omitempty"`
}

func loadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Courses) == 0 {
		return Manifest{}, fmt.Errorf("manifest %s lists no courses", path)
	}

	base := filepath.Dir(path)
	for i := range m.Courses {
		c := &m.Courses[i]
		if strings.TrimSpace(c.Course) == "" {
			return Manifest{}, fmt.Errorf("manifest %s: course %d has no name", path, i+1)
		}
		c.Syllabus = resolvePath(base, c.Syllabus)
		c.MaterialsDir = resolvePath(base, c.MaterialsDir)
		if c.Tables != nil {
			c.Tables.Modules = resolvePath(base, c.Tables.Modules)
			c.Tables.Topics = resolvePath(base, c.Tables.Topics)
			c.Tables.Subtopics = resolvePath(base, c.Tables.Subtopics)
		}
	}
	return m, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// requests turns manifest entries into ingest requests. bucket is used for
// entries that ask for it and may be nil.
func (m Manifest) requests(bucket curriculum.MaterialSource) ([]curriculum.IngestRequest, error) {
	out := make([]curriculum.IngestRequest, 0, len(m.Courses))
	for _, c := range m.Courses {
		req := curriculum.IngestRequest{Course: c.Course, Syllabus: c.Syllabus, Tables: c.Tables}
		switch {
		case c.MaterialsDir != "" && c.MaterialsBucket:
			return nil, fmt.Errorf("course %q: set materials_dir or materials_bucket, not both", c.Course)
		case c.MaterialsDir != "":
			req.Materials = curriculum.DirSource{Dir: c.MaterialsDir}
		case c.MaterialsBucket:
			if bucket == nil {
				return nil, fmt.Errorf("course %q: materials_bucket requires MATERIALS_GCS_BUCKET", c.Course)
			}
			req.Materials = bucket
		}
		out = append(out, req)
	}
	return out, nil
}
