package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum"
)

type ingestOptions struct {
	course       string
	syllabus     string
	modules      string
	topics       string
	subtopics    string
	materialsDir string
	useBucket    bool
	manifest     string
}

func newIngestCmd(rt *runtime) *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest one course from flags, or many from a YAML manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.manifest != "" {
				return runIngestManifest(cmd, rt, opts.manifest)
			}
			return runIngestOne(cmd, rt, opts)
		},
	}

	cmd.Flags().StringVar(&opts.course, "course", "", "Course name")
	cmd.Flags().StringVar(&opts.syllabus, "syllabus", "", "Unified syllabus table (CSV/TSV)")
	cmd.Flags().StringVar(&opts.modules, "modules", "", "modules.csv for the three-table shape")
	cmd.Flags().StringVar(&opts.topics, "topics", "", "topics.csv for the three-table shape")
	cmd.Flags().StringVar(&opts.subtopics, "subtopics", "", "subtopics.csv for the three-table shape (optional)")
	cmd.Flags().StringVar(&opts.materialsDir, "materials-dir", "", "Local directory of material files to link")
	cmd.Flags().BoolVar(&opts.useBucket, "materials-bucket", false, "Link material files from MATERIALS_GCS_BUCKET")
	cmd.Flags().StringVar(&opts.manifest, "manifest", "", "YAML manifest listing courses to ingest")
	cmd.MarkFlagsMutuallyExclusive("manifest", "course")
	cmd.MarkFlagsMutuallyExclusive("materials-dir", "materials-bucket")
	return cmd
}

func runIngestOne(cmd *cobra.Command, rt *runtime, opts ingestOptions) error {
	if opts.course == "" {
		return fmt.Errorf("--course or --manifest is required")
	}
	req := curriculum.IngestRequest{Course: opts.course, Syllabus: opts.syllabus}
	if opts.modules != "" || opts.topics != "" {
		req.Tables = &curriculum.TablePaths{Modules: opts.modules, Topics: opts.topics, Subtopics: opts.subtopics}
	}
	switch {
	case opts.materialsDir != "":
		req.Materials = curriculum.DirSource{Dir: opts.materialsDir}
	case opts.useBucket:
		src := rt.app.MaterialSource()
		if src == nil {
			return fmt.Errorf("--materials-bucket requires MATERIALS_GCS_BUCKET")
		}
		req.Materials = src
	}

	res, err := rt.app.Curriculum.IngestCourse(cmd.Context(), req)
	if perr := rt.print(res); perr != nil {
		return perr
	}
	return err
}

func runIngestManifest(cmd *cobra.Command, rt *runtime, path string) error {
	m, err := loadManifest(path)
	if err != nil {
		return err
	}
	reqs, err := m.requests(rt.app.MaterialSource())
	if err != nil {
		return err
	}
	results, err := rt.app.Curriculum.IngestMany(cmd.Context(), reqs)
	if perr := rt.print(results); perr != nil {
		return perr
	}
	return err
}
