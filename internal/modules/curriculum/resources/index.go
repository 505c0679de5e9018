package resources

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

var filenameIDRe = regexp.MustCompile(`(?i)^R\d+`)

const unmappedContext = "General Reference (not mapped to syllabus)"

// Index maps resource ids to the syllabus entries that cite them, in row order.
// An Index is owned by its caller; there is no package-level instance.
type Index struct {
	log     *logger.Logger
	course  string
	entries []domain.Entry
	byID    map[string][]int
	loaded  bool
}

func NewIndex(log *logger.Logger) *Index {
	if log == nil {
		log = logger.Nop()
	}
	return &Index{log: log.With("service", "ResourceIndex"), byID: map[string][]int{}}
}

// Load replaces the index contents with entries for course.
func (x *Index) Load(course string, entries []domain.Entry) int {
	x.course = course
	x.entries = append([]domain.Entry(nil), entries...)
	x.byID = map[string][]int{}
	for i, e := range x.entries {
		seen := map[string]bool{}
		for _, ref := range e.Resources {
			id := strings.ToUpper(strings.TrimSpace(ref.ResourceID))
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			x.byID[id] = append(x.byID[id], i)
		}
	}
	x.loaded = true
	x.log.Info("resource index loaded", "course", course, "entries", len(x.entries), "resources", len(x.byID))
	return len(x.entries)
}

func (x *Index) Course() string { return x.course }

// ResourceIDs returns the indexed resource ids, sorted.
func (x *Index) ResourceIDs() []string {
	out := make([]string, 0, len(x.byID))
	for id := range x.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ResourceIDFromFilename extracts the leading R<digits> token, uppercased.
func ResourceIDFromFilename(filename string) (string, bool) {
	id := filenameIDRe.FindString(strings.TrimSpace(filename))
	if id == "" {
		return "", false
	}
	return strings.ToUpper(id), true
}

// Lookup resolves a material filename to the first citing entry.
func (x *Index) Lookup(filename string) (*domain.SyllabusContext, bool) {
	all := x.lookup(filename, true)
	if len(all) == 0 {
		return nil, false
	}
	return &all[0], true
}

// LookupAll resolves a material filename to every citing entry.
func (x *Index) LookupAll(filename string) []domain.SyllabusContext {
	return x.lookup(filename, false)
}

func (x *Index) lookup(filename string, firstOnly bool) []domain.SyllabusContext {
	if !x.loaded {
		x.log.Warn("resource index not loaded", "filename", filename)
		return nil
	}
	id, ok := ResourceIDFromFilename(filename)
	if !ok {
		x.log.Debug("filename has no resource id", "filename", filename)
		return nil
	}
	rows := x.byID[id]
	if len(rows) == 0 {
		x.log.Debug("resource not cited in syllabus", "resource_id", id)
		return nil
	}
	if firstOnly {
		rows = rows[:1]
	}
	out := make([]domain.SyllabusContext, 0, len(rows))
	for _, i := range rows {
		out = append(out, contextFor(x.entries[i], id))
	}
	return out
}

func contextFor(e domain.Entry, resourceID string) domain.SyllabusContext {
	ctx := domain.SyllabusContext{
		Module:        e.Module,
		ModuleOrder:   e.ModuleOrder,
		Topic:         e.Topic,
		LectureNumber: e.LectureNumber,
		Subtopics:     append([]string(nil), e.Subtopics...),
	}
	if e.Prerequisite != "" {
		ctx.Prerequisites = []string{e.Prerequisite}
	}
	for _, ref := range e.Resources {
		if strings.EqualFold(ref.ResourceID, resourceID) {
			ctx.Chapter = ref.Chapter
			ctx.LectureRef = ref.LectureRef
			break
		}
	}
	return ctx
}

// EnrichMetadata writes syllabus_* keys for filename into meta and returns it.
func (x *Index) EnrichMetadata(meta map[string]any, filename string) map[string]any {
	if meta == nil {
		meta = map[string]any{}
	}
	ctx, ok := x.Lookup(filename)
	if !ok {
		meta["syllabus_module"] = nil
		meta["syllabus_context"] = unmappedContext
		return meta
	}
	meta["syllabus_module"] = ctx.Module
	meta["syllabus_module_order"] = ctx.ModuleOrder
	meta["syllabus_topic"] = ctx.Topic
	meta["syllabus_lecture_number"] = lectureValue(ctx.LectureNumber)
	meta["syllabus_subtopics"] = ctx.Subtopics
	meta["syllabus_chapter"] = ctx.Chapter
	meta["syllabus_course"] = x.course
	meta["syllabus_context"] = fmt.Sprintf("%s → Lecture %d: %s", ctx.Module, lectureValue(ctx.LectureNumber), ctx.Topic)
	return meta
}

// Summary lists, per resource id, the lectures that cite it.
func (x *Index) Summary() map[string][]string {
	out := make(map[string][]string, len(x.byID))
	for id, rows := range x.byID {
		lines := make([]string, 0, len(rows))
		for _, i := range rows {
			e := x.entries[i]
			lines = append(lines, fmt.Sprintf("Module %d Lecture %d: %s", e.ModuleOrder, lectureValue(e.LectureNumber), e.Topic))
		}
		out[id] = lines
	}
	return out
}

func lectureValue(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
