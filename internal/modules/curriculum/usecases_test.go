package curriculum

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-curriculum/internal/data/graph"
	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

const linearAlgebraCSV = `Module,Lecture Number,Lecture Topic,Subtopics,Resources
Foundations,1,Vectors,"Scalars, Magnitude","R1 Ch1, R2 Lec1"
Foundations,2,Dot Product,Magnitude,R2 Lec2
Matrices,1,Multiplication,"Dot Product Review",R1 Ch3
Matrices,2,Inverses,,
Spaces,1,Eigenvalues,Determinants,"R3 Ch2, R1 Ch7"
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newUsecases(t *testing.T) (*Usecases, *graph.MemoryStore) {
	t.Helper()
	store := graph.NewMemoryStore()
	u, err := NewUsecases(UsecasesDeps{Log: logger.Nop(), Store: store, Concurrency: 2})
	require.NoError(t, err)
	return u, store
}

func ingestLinearAlgebra(t *testing.T, u *Usecases) IngestResult {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "syllabus.csv", linearAlgebraCSV)
	materials := filepath.Join(dir, "materials")
	require.NoError(t, os.Mkdir(materials, 0o755))
	writeFile(t, materials, "R2_lecture_notes.pdf", "x")
	writeFile(t, materials, "R9_unused.pdf", "x")
	writeFile(t, materials, "cover.png", "x")

	res, err := u.IngestCourse(context.Background(), IngestRequest{
		Course:    "Linear Algebra",
		Syllabus:  path,
		Materials: DirSource{Dir: materials},
	})
	require.NoError(t, err)
	return res
}

func TestNewUsecasesRequiresDeps(t *testing.T) {
	_, err := NewUsecases(UsecasesDeps{Log: logger.Nop()})
	assert.Error(t, err)
}

func TestIngestCourseBuildsAndLinks(t *testing.T) {
	u, _ := newUsecases(t)
	res := ingestLinearAlgebra(t, u)

	assert.True(t, res.Success)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 3, res.Graph.ModulesCreated)
	assert.Equal(t, 5, res.Graph.TopicsCreated)
	assert.Equal(t, 2, res.Graph.PrecedesCount)
	assert.Equal(t, 5, res.Graph.HasTopicCount)

	assert.Equal(t, LinkingCompleted, res.Linking.Status)
	assert.Equal(t, 5, res.Linking.EntriesLoaded)
	assert.Equal(t, 3, res.Linking.Resources)
	assert.Equal(t, []string{"cover.png"}, res.Linking.Ignored)
	require.Len(t, res.Linking.Documents, 2)

	notes := res.Linking.Documents[0]
	assert.Equal(t, "R2_lecture_notes.pdf", notes.Filename)
	assert.True(t, notes.Mapped)
	assert.Equal(t, "R2", notes.ResourceID)
	assert.Equal(t, "Foundations", notes.Metadata["syllabus_module"])
	assert.Equal(t, "Vectors", notes.Metadata["syllabus_topic"])

	unused := res.Linking.Documents[1]
	assert.False(t, unused.Mapped)
	assert.Nil(t, unused.Metadata["syllabus_module"])
	assert.Equal(t, "General Reference (not mapped to syllabus)", unused.Metadata["syllabus_context"])
}

func TestIngestCourseTwiceMatchesEverything(t *testing.T) {
	u, _ := newUsecases(t)
	first := ingestLinearAlgebra(t, u)
	second := ingestLinearAlgebra(t, u)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Zero(t, second.Graph.ModulesCreated)
	assert.Zero(t, second.Graph.TopicsCreated)
	assert.Equal(t, first.Graph.ModulesCreated, second.Graph.ModulesMatched)
	assert.Equal(t, first.Graph.PrerequisiteCount, second.Graph.PrerequisiteCount)
}

func TestIngestCourseFromTables(t *testing.T) {
	u, _ := newUsecases(t)
	dir := t.TempDir()
	tables := &TablePaths{
		Modules:   writeFile(t, dir, "modules.csv", "module_id,module_name,order\nm2,Second,2\nm1,First,1\n"),
		Topics:    writeFile(t, dir, "topics.csv", "topic_id,topic_name,module_id\nt1,Alpha,m1\nt2,Beta,m2\n"),
		Subtopics: writeFile(t, dir, "subtopics.csv", "subtopic_id,subtopic_name,topic_id\ns1,Gamma,t2\n"),
	}
	res, err := u.IngestCourse(context.Background(), IngestRequest{Course: "Tables", Tables: tables})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, LinkingSkipped, res.Linking.Status)
	assert.Equal(t, 2, res.Graph.ModulesCreated)
	assert.Equal(t, 1, res.Graph.PrecedesCount)

	next, err := u.Query().NextModule(context.Background(), "Tables", "m1")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "m2", next.ID)
}

func TestIngestCourseRejectsBadRequests(t *testing.T) {
	u, _ := newUsecases(t)
	ctx := context.Background()

	res, err := u.IngestCourse(ctx, IngestRequest{Course: " ", Syllabus: "x.csv"})
	assert.ErrorIs(t, err, perr.ErrInvalidArgument)
	assert.False(t, res.Success)
	assert.Len(t, res.Errors, 1)

	_, err = u.IngestCourse(ctx, IngestRequest{Course: "C"})
	assert.ErrorIs(t, err, perr.ErrInvalidArgument)

	_, err = u.IngestCourse(ctx, IngestRequest{Course: "C", Syllabus: "a.csv", Tables: &TablePaths{}})
	assert.ErrorIs(t, err, perr.ErrInvalidArgument)
}

func TestIngestCourseMissingTopicColumn(t *testing.T) {
	u, store := newUsecases(t)
	path := writeFile(t, t.TempDir(), "bad.csv", "Module,Notes\nA,b\n")
	_, err := u.IngestCourse(context.Background(), IngestRequest{Course: "Bad", Syllabus: path})
	var cfgErr *perr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"Module", "Notes"}, cfgErr.Headers)

	courses, err := store.Courses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, courses)
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }
func (failingSource) List(ctx context.Context) ([]string, error) {
	return nil, errors.New("permission denied")
}

func TestIngestCourseLinkingFailureIsNotFatal(t *testing.T) {
	u, _ := newUsecases(t)
	path := writeFile(t, t.TempDir(), "s.csv", linearAlgebraCSV)
	res, err := u.IngestCourse(context.Background(), IngestRequest{Course: "LA", Syllabus: path, Materials: failingSource{}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, LinkingFailed, res.Linking.Status)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "permission denied")
}

func TestIngestManyKeepsRequestOrder(t *testing.T) {
	u, _ := newUsecases(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "s.csv", linearAlgebraCSV)
	bad := writeFile(t, dir, "bad.csv", "Nothing,Useful\n1,2\n")

	results, err := u.IngestMany(context.Background(), []IngestRequest{
		{Course: "One", Syllabus: path},
		{Course: "Two", Syllabus: bad},
		{Course: "Three", Syllabus: path},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, perr.ErrConfiguration)
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, "Three", results[2].Course)

	courses, err := u.ListCourses(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"One", "Three"}, courses)
}

func TestIngestManyHeaderlessFileFailsOnlyItsCourse(t *testing.T) {
	store := graph.NewMemoryStore()
	u, err := NewUsecases(UsecasesDeps{Log: logger.Nop(), Store: store, Concurrency: 1})
	require.NoError(t, err)
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.csv", "")
	good := writeFile(t, dir, "valid.csv", linearAlgebraCSV)

	results, err := u.IngestMany(context.Background(), []IngestRequest{
		{Course: "Empty", Syllabus: empty},
		{Course: "Good", Syllabus: good},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, perr.ErrConfiguration)
	assert.NotErrorIs(t, err, perr.ErrStoreConfiguration)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success, "errors=%v", results[1].Errors)
	assert.Empty(t, results[1].Errors)
}

func TestIngestManyStopsOnUnavailableStore(t *testing.T) {
	store := graph.NewMemoryStore()
	u, err := NewUsecases(UsecasesDeps{Log: logger.Nop(), Store: store, Concurrency: 1})
	require.NoError(t, err)
	require.NoError(t, store.Close(context.Background()))
	path := writeFile(t, t.TempDir(), "s.csv", linearAlgebraCSV)

	results, err := u.IngestMany(context.Background(), []IngestRequest{
		{Course: "First", Syllabus: path},
		{Course: "Second", Syllabus: path},
	})
	require.ErrorIs(t, err, perr.ErrStoreUnavailable)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "Second", results[1].Course)
}

// countingLocker wraps KeyedMutex and records the peak number of holders per
// course.
type countingLocker struct {
	inner  *KeyedMutex
	mu     sync.Mutex
	active map[string]int
	peak   int32
}

func (c *countingLocker) Lock(ctx context.Context, course string) (func(), error) {
	unlock, err := c.inner.Lock(ctx, course)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.active[course]++
	if n := int32(c.active[course]); n > atomic.LoadInt32(&c.peak) {
		atomic.StoreInt32(&c.peak, n)
	}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.active[course]--
		c.mu.Unlock()
		unlock()
	}, nil
}

func TestIngestManySerializesSameCourse(t *testing.T) {
	locker := &countingLocker{inner: NewKeyedMutex(), active: map[string]int{}}
	u, err := NewUsecases(UsecasesDeps{Log: logger.Nop(), Store: graph.NewMemoryStore(), Locker: locker, Concurrency: 4})
	require.NoError(t, err)
	path := writeFile(t, t.TempDir(), "s.csv", linearAlgebraCSV)

	reqs := make([]IngestRequest, 6)
	for i := range reqs {
		reqs[i] = IngestRequest{Course: "Same", Syllabus: path}
	}
	results, err := u.IngestMany(context.Background(), reqs)
	require.NoError(t, err)
	created := 0
	for _, r := range results {
		assert.True(t, r.Success)
		created += r.Graph.ModulesCreated
	}
	assert.Equal(t, 3, created)
	assert.Equal(t, int32(1), atomic.LoadInt32(&locker.peak))
}

func TestKeyedMutexBlocksSameKeyOnly(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	unlock, err := m.Lock(ctx, "Physics")
	require.NoError(t, err)

	other, err := m.Lock(ctx, "Chemistry")
	require.NoError(t, err)
	other()

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(short, " physics ")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	again, err := m.Lock(ctx, "PHYSICS")
	require.NoError(t, err)
	again()
	assert.Empty(t, m.locks)
}

func TestNextCurriculumItemCrossesModules(t *testing.T) {
	u, _ := newUsecases(t)
	ingestLinearAlgebra(t, u)
	ctx := context.Background()

	next, err := u.NextCurriculumItem(ctx, "Linear Algebra", "vectors")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, CurriculumItem{Type: domain.StepTopic, ID: "dot_product", Name: "Dot Product", ModuleID: "foundations", ModuleName: "Foundations"}, *next)

	next, err = u.NextCurriculumItem(ctx, "Linear Algebra", "Dot Product")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "multiplication", next.ID)
	assert.Equal(t, "matrices", next.ModuleID)

	end, err := u.NextCurriculumItem(ctx, "Linear Algebra", "eigenvalues")
	require.NoError(t, err)
	assert.Nil(t, end)

	unknown, err := u.NextCurriculumItem(ctx, "Linear Algebra", "tensors")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestTopicContext(t *testing.T) {
	u, _ := newUsecases(t)
	ingestLinearAlgebra(t, u)
	ctx := context.Background()

	tc, err := u.TopicContext(ctx, "Linear Algebra", "Dot Product")
	require.NoError(t, err)
	assert.Equal(t, "dot_product", tc.TopicID)
	assert.Equal(t, "foundations", tc.Topic.ModuleID)
	assert.Equal(t, "Foundations", tc.Topic.ModuleName)
	require.NotNil(t, tc.LectureNumber)
	assert.Equal(t, 2, *tc.LectureNumber)
	require.Len(t, tc.Prerequisites, 1)
	assert.Equal(t, "magnitude", tc.Prerequisites[0].ID)
	require.NotNil(t, tc.NextTopic)
	assert.Equal(t, "multiplication", tc.NextTopic.ID)
	require.NotEmpty(t, tc.LearningPath)
	assert.Equal(t, "dot_product", tc.LearningPath[len(tc.LearningPath)-1].ID)

	_, err = u.TopicContext(ctx, "Linear Algebra", "tensors")
	assert.ErrorIs(t, err, perr.ErrNotFound)
}

func TestDetectMissingPrerequisites(t *testing.T) {
	u, _ := newUsecases(t)
	ingestLinearAlgebra(t, u)

	got, err := u.DetectMissingPrerequisites(context.Background(), "Linear Algebra", "Vectors", []string{"Scalars"})
	require.NoError(t, err)
	require.Len(t, got.Missing, 1)
	assert.Equal(t, "magnitude", got.Missing[0].ID)
	assert.Equal(t, []string{"Scalars"}, got.Completed)
}

func TestLookupResourceAndDelete(t *testing.T) {
	u, _ := newUsecases(t)
	ingestLinearAlgebra(t, u)
	ctx := context.Background()

	refs, err := u.LookupResource("linear algebra", "r1_textbook.pdf")
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, "Vectors", refs[0].Topic)
	assert.Equal(t, "Ch1", refs[0].Chapter)

	none, err := u.LookupResource("Linear Algebra", "R42.pdf")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = u.LookupResource("Unknown", "R1.pdf")
	assert.ErrorIs(t, err, perr.ErrNotFound)

	res, err := u.DeleteCourse(ctx, "Linear Algebra")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Greater(t, res.DeletedCount, 0)

	_, err = u.LookupResource("Linear Algebra", "R1.pdf")
	assert.ErrorIs(t, err, perr.ErrNotFound)
}
