package curriculum

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/resources"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/steps"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/syllabus"
	"github.com/yungbote/neurobridge-curriculum/internal/observability"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
)

const (
	LinkingCompleted = "completed"
	LinkingSkipped   = "skipped"
	LinkingFailed    = "failed"
)

// TablePaths points at the three-table input shape.
type TablePaths struct {
	Modules   string `yaml:"modules" json:"modules"`
	Topics    string `yaml:"topics" json:"topics"`
	Subtopics string `yaml:"subtopics,omitempty" json:"subtopics,omitempty"`
}

// IngestRequest names one course and its inputs. Exactly one of Syllabus and
// Tables is set. Materials is optional.
type IngestRequest struct {
	Course    string
	Syllabus  string
	Tables    *TablePaths
	Materials MaterialSource
}

type DocumentLink struct {
	Filename   string         `json:"filename"`
	Mapped     bool           `json:"mapped"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata"`
}

type LinkingReport struct {
	Status        string         `json:"status"`
	Source        string         `json:"source,omitempty"`
	EntriesLoaded int            `json:"entries_loaded"`
	Resources     int            `json:"resources"`
	Documents     []DocumentLink `json:"documents"`
	// Ignored lists files whose extension is not a material type.
	Ignored []string `json:"ignored,omitempty"`
}

type IngestResult struct {
	Success  bool                  `json:"success"`
	RunID    string                `json:"run_id"`
	Course   string                `json:"course"`
	Encoding string                `json:"encoding,omitempty"`
	Graph    domain.BuildSummary   `json:"graph"`
	Skipped  []syllabus.SkippedRow `json:"skipped_rows"`
	Inferred bool                  `json:"inferred_prerequisites"`
	Linking  LinkingReport         `json:"linking"`
	Errors   []string              `json:"errors"`
	Duration string                `json:"duration"`
}

// IngestCourse parses the course input, builds its graph, indexes resource
// references and links material files. Fatal problems are returned as errors
// alongside a result with Success=false; linking problems are recorded in the
// result only.
func (u *Usecases) IngestCourse(ctx context.Context, req IngestRequest) (IngestResult, error) {
	start := time.Now()
	course := strings.TrimSpace(req.Course)
	res := IngestResult{
		RunID:   uuid.NewString(),
		Course:  course,
		Skipped: []syllabus.SkippedRow{},
		Errors:  []string{},
		Linking: LinkingReport{Status: LinkingSkipped, Documents: []DocumentLink{}},
	}
	log := u.log.With("run_id", res.RunID, "course", course)
	fail := func(err error) (IngestResult, error) {
		res.Errors = append(res.Errors, err.Error())
		res.Duration = time.Since(start).String()
		log.Error("ingestion failed", "error", err)
		return res, err
	}

	if course == "" {
		return fail(fmt.Errorf("ingest: %w: missing course", perr.ErrInvalidArgument))
	}
	if (req.Syllabus == "") == (req.Tables == nil) {
		return fail(fmt.Errorf("ingest: %w: exactly one of syllabus or tables is required", perr.ErrInvalidArgument))
	}

	ctx, span := observability.StartSpan(ctx, "curriculum.ingest_course",
		attribute.String("course", course),
		attribute.String("run_id", res.RunID),
	)
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	unlock, err := u.locker.Lock(ctx, course)
	if err != nil {
		spanErr = err
		return fail(fmt.Errorf("ingest: lock: %w", err))
	}
	defer unlock()

	log.Info("ingestion started")

	var plan domain.Plan
	var entries []domain.Entry
	if req.Syllabus != "" {
		s, err := u.parser.ParseFile(req.Syllabus)
		if err != nil {
			spanErr = err
			return fail(err)
		}
		plan = s.Plan()
		entries = s.Entries
		res.Encoding = s.Encoding
		res.Inferred = s.Inferred
		res.Skipped = append(res.Skipped, s.Skipped...)
	} else {
		p, skipped, err := u.parseTables(*req.Tables)
		if err != nil {
			spanErr = err
			return fail(err)
		}
		plan = p
		res.Skipped = append(res.Skipped, skipped...)
	}

	summary, err := steps.GraphBuild(ctx, steps.GraphBuildDeps{Log: u.log, Store: u.store}, steps.GraphBuildInput{
		Course: course,
		Plan:   plan,
	})
	res.Graph = summary
	if err != nil {
		spanErr = err
		return fail(err)
	}

	idx := resources.NewIndex(u.log)
	res.Linking.EntriesLoaded = idx.Load(course, entries)
	res.Linking.Resources = len(idx.ResourceIDs())
	u.setIndex(course, idx)

	if req.Materials != nil {
		u.linkMaterials(ctx, idx, req.Materials, &res)
	}

	res.Success = true
	res.Duration = time.Since(start).String()
	log.Info("ingestion finished",
		"linking", res.Linking.Status,
		"documents", len(res.Linking.Documents),
		"skipped_rows", len(res.Skipped),
	)
	return res, nil
}

func (u *Usecases) parseTables(paths TablePaths) (domain.Plan, []syllabus.SkippedRow, error) {
	var closers []*os.File
	defer func() {
		for _, f := range closers {
			_ = f.Close()
		}
	}()
	open := func(path string) (*os.File, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ingest: open %s: %w", path, err)
		}
		closers = append(closers, f)
		return f, nil
	}

	var tables syllabus.Tables
	modules, err := open(paths.Modules)
	if err != nil {
		return domain.Plan{}, nil, err
	}
	tables.Modules = modules
	topics, err := open(paths.Topics)
	if err != nil {
		return domain.Plan{}, nil, err
	}
	tables.Topics = topics
	if paths.Subtopics != "" {
		subtopics, err := open(paths.Subtopics)
		if err != nil {
			return domain.Plan{}, nil, err
		}
		tables.Subtopics = subtopics
	}
	return u.parser.ParseTables(tables)
}

// linkMaterials attaches syllabus context to every material file the source
// lists. Listing failures mark the report failed without failing ingestion.
func (u *Usecases) linkMaterials(ctx context.Context, idx *resources.Index, src MaterialSource, res *IngestResult) {
	res.Linking.Source = src.Name()
	names, err := src.List(ctx)
	if err != nil {
		res.Linking.Status = LinkingFailed
		res.Errors = append(res.Errors, fmt.Sprintf("materials: %v", err))
		u.log.Warn("material listing failed", "source", src.Name(), "error", err)
		return
	}
	for _, name := range names {
		if !isMaterial(name) {
			res.Linking.Ignored = append(res.Linking.Ignored, name)
			continue
		}
		link := DocumentLink{Filename: name, Metadata: idx.EnrichMetadata(nil, name)}
		if ctxRef, ok := idx.Lookup(name); ok {
			link.Mapped = true
			link.ResourceID, _ = resources.ResourceIDFromFilename(name)
			u.log.Debug("material linked", "file", name, "module", ctxRef.Module, "topic", ctxRef.Topic)
		}
		res.Linking.Documents = append(res.Linking.Documents, link)
	}
	res.Linking.Status = LinkingCompleted
}

// IngestMany ingests several courses concurrently, bounded by the configured
// concurrency. Results keep request order. The first fatal error cancels
// courses that have not started yet; every other course still reports.
func (u *Usecases) IngestMany(ctx context.Context, reqs []IngestRequest) ([]IngestResult, error) {
	results := make([]IngestResult, len(reqs))
	errs := make([]error, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i := range reqs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = IngestResult{Course: reqs[i].Course, Errors: []string{err.Error()}}
				errs[i] = err
				return nil
			}
			results[i], errs[i] = u.IngestCourse(gctx, reqs[i])
			if errs[i] != nil && isFatal(errs[i]) {
				return errs[i]
			}
			return nil
		})
	}
	firstFatal := g.Wait()
	if firstFatal != nil {
		return results, firstFatal
	}
	return results, errors.Join(errs...)
}

// isFatal reports errors that make further ingestion pointless: an
// unreachable or unconfigured graph store. Input problems fail one course.
func isFatal(err error) bool {
	return errors.Is(err, perr.ErrStoreUnavailable) || errors.Is(err, perr.ErrStoreConfiguration)
}
