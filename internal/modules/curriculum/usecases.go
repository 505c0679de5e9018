package curriculum

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/neurobridge-curriculum/internal/data/graph"
	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/query"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/resources"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/syllabus"
	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type UsecasesDeps struct {
	Log   *logger.Logger
	Store graph.Store
	// Locker defaults to an in-process KeyedMutex.
	Locker CourseLocker
	// Concurrency bounds IngestMany; values below 1 mean 1.
	Concurrency int
	// Encodings overrides the syllabus decoding trial order.
	Encodings []syllabus.Encoding
}

// Usecases is the caller-owned curriculum engine: ingestion plus the read
// APIs tutoring consumers use. It keeps the resource index of every course it
// ingested.
type Usecases struct {
	log         *logger.Logger
	store       graph.Store
	locker      CourseLocker
	concurrency int
	parser      *syllabus.Parser
	query       *query.Engine

	mu      sync.RWMutex
	indexes map[string]*resources.Index
}

func NewUsecases(deps UsecasesDeps) (*Usecases, error) {
	if deps.Log == nil || deps.Store == nil {
		return nil, fmt.Errorf("curriculum usecases: missing deps")
	}
	locker := deps.Locker
	if locker == nil {
		locker = NewKeyedMutex()
	}
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	var opts []syllabus.ParserOption
	if len(deps.Encodings) > 0 {
		opts = append(opts, syllabus.WithEncodings(deps.Encodings...))
	}
	return &Usecases{
		log:         deps.Log.With("service", "CurriculumUsecases"),
		store:       deps.Store,
		locker:      locker,
		concurrency: concurrency,
		parser:      syllabus.NewParser(deps.Log, opts...),
		query:       query.New(deps.Store, deps.Log),
		indexes:     map[string]*resources.Index{},
	}, nil
}

func (u *Usecases) Query() *query.Engine { return u.query }

func (u *Usecases) setIndex(course string, idx *resources.Index) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.indexes[normalization.CourseKey(course)] = idx
}

// Index returns the resource index built by the last ingestion of course.
func (u *Usecases) Index(course string) (*resources.Index, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	idx, ok := u.indexes[normalization.CourseKey(course)]
	return idx, ok
}

// IndexSyllabus parses a unified syllabus and returns its resource index
// without touching the graph.
func (u *Usecases) IndexSyllabus(course, path string) (*resources.Index, error) {
	s, err := u.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	idx := resources.NewIndex(u.log)
	idx.Load(course, s.Entries)
	return idx, nil
}

func (u *Usecases) ListCourses(ctx context.Context) ([]string, error) {
	return u.query.ListCourses(ctx)
}

// DeleteCourse removes the course subgraph and forgets its resource index.
// It takes the course lock so it cannot interleave with an ingestion.
func (u *Usecases) DeleteCourse(ctx context.Context, course string) (domain.DeleteResult, error) {
	unlock, err := u.locker.Lock(ctx, course)
	if err != nil {
		return domain.DeleteResult{Course: course}, fmt.Errorf("delete_course: lock: %w", err)
	}
	defer unlock()

	res, err := u.query.DeleteCourse(ctx, course)
	if err != nil {
		return res, err
	}
	u.mu.Lock()
	delete(u.indexes, normalization.CourseKey(course))
	u.mu.Unlock()
	return res, nil
}
