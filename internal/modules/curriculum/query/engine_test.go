package query

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-curriculum/internal/data/graph"
	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/steps"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

const course = "Linear Algebra"

func intp(v int) *int { return &v }

func newEngine(t *testing.T) *Engine {
	t.Helper()
	store := graph.NewMemoryStore()
	plan := domain.Plan{
		Modules: []domain.Module{
			{ID: "foundations", Name: "Foundations", Order: 1},
			{ID: "matrices", Name: "Matrices", Order: 2},
			{ID: "spaces", Name: "Spaces", Order: 3},
		},
		Topics: []domain.Topic{
			{ID: "vectors", Name: "Vectors", ModuleID: "foundations", LectureNumber: intp(2)},
			{ID: "scalars_intro", Name: "Scalars Intro", ModuleID: "foundations", LectureNumber: intp(1)},
			{ID: "notation", Name: "Notation", ModuleID: "foundations"},
			{ID: "multiplication", Name: "Multiplication", ModuleID: "matrices", LectureNumber: intp(1)},
			{ID: "eigenvalues", Name: "Eigenvalues", ModuleID: "spaces", LectureNumber: intp(1)},
			{ID: "history", Name: "History"},
		},
		Subtopics: []domain.Subtopic{
			{ID: "magnitude", Name: "Magnitude", TopicID: "vectors"},
			{ID: "dot_product", Name: "Dot Product", TopicID: "multiplication"},
			{ID: "determinants", Name: "Determinants", TopicID: "eigenvalues"},
		},
		Prerequisites: []domain.PrerequisiteLink{
			{SubtopicID: "magnitude", TopicID: "vectors"},
			{SubtopicID: "dot_product", TopicID: "multiplication"},
			{SubtopicID: "magnitude", TopicID: "multiplication"},
			{SubtopicID: "determinants", TopicID: "eigenvalues"},
			{SubtopicID: "dot_product", TopicID: "eigenvalues"},
		},
	}
	_, err := steps.GraphBuild(context.Background(),
		steps.GraphBuildDeps{Log: logger.Nop(), Store: store},
		steps.GraphBuildInput{Course: course, Plan: plan})
	require.NoError(t, err)
	return New(store, logger.Nop())
}

func ids(subs []domain.Subtopic) []string {
	out := []string{}
	for _, s := range subs {
		out = append(out, s.ID)
	}
	return out
}

func TestPrerequisitesOfSortedByName(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	got, err := e.PrerequisitesOf(ctx, "LINEAR ALGEBRA", "Multiplication")
	require.NoError(t, err)
	assert.Equal(t, []string{"dot_product", "magnitude"}, ids(got))

	none, err := e.PrerequisitesOf(ctx, course, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNextModule(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	next, err := e.NextModule(ctx, course, "foundations")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "matrices", next.ID)
	assert.Equal(t, 2, next.Order)

	end, err := e.NextModule(ctx, course, "spaces")
	require.NoError(t, err)
	assert.Nil(t, end)

	unknown, err := e.NextModule(ctx, "Other Course", "foundations")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestTraverseOrdering(t *testing.T) {
	e := newEngine(t)
	view, err := e.Traverse(context.Background(), course)
	require.NoError(t, err)

	var modules []string
	for _, m := range view.Modules {
		modules = append(modules, m.ID)
	}
	assert.Equal(t, []string{"foundations", "matrices", "spaces"}, modules)

	var topics []string
	for _, tv := range view.Modules[0].Topics {
		topics = append(topics, tv.ID)
	}
	assert.Equal(t, []string{"scalars_intro", "vectors", "notation"}, topics)

	assert.Equal(t, []string{"magnitude"}, ids(view.Modules[0].Topics[1].Subtopics))
	assert.NotNil(t, view.Modules[0].Topics[0].Subtopics)
	assert.Empty(t, view.Modules[0].Topics[0].Subtopics)

	require.Len(t, view.Orphans, 1)
	assert.Equal(t, "history", view.Orphans[0].ID)
}

func TestTraverseUnknownCourseIsEmpty(t *testing.T) {
	e := newEngine(t)
	view, err := e.Traverse(context.Background(), "Nope")
	require.NoError(t, err)
	assert.Empty(t, view.Modules)
	assert.Empty(t, view.Orphans)
}

func TestLearningPath(t *testing.T) {
	e := newEngine(t)
	got, err := e.LearningPath(context.Background(), course, "eigenvalues")
	require.NoError(t, err)

	want := []domain.PathStep{
		{Type: domain.StepModule, ID: "foundations", Name: "Foundations", Order: intp(1)},
		{Type: domain.StepModule, ID: "matrices", Name: "Matrices", Order: intp(2)},
		{Type: domain.StepModule, ID: "spaces", Name: "Spaces", Order: intp(3)},
		{Type: domain.StepSubtopic, ID: "determinants", Name: "Determinants"},
		{Type: domain.StepSubtopic, ID: "dot_product", Name: "Dot Product"},
		{Type: domain.StepTopic, ID: "eigenvalues", Name: "Eigenvalues", Order: intp(1)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("learning path mismatch (-want +got):\n%s", diff)
	}
}

func TestLearningPathProperties(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	for _, topic := range []string{"vectors", "scalars_intro", "notation", "multiplication", "eigenvalues", "history"} {
		path, err := e.LearningPath(ctx, course, topic)
		require.NoError(t, err)
		require.NotEmpty(t, path, topic)

		last := path[len(path)-1]
		assert.Equal(t, domain.StepTopic, last.Type, topic)
		assert.Equal(t, topic, last.ID)

		prev := 0
		for _, step := range path {
			if step.Type != domain.StepModule {
				continue
			}
			require.NotNil(t, step.Order)
			assert.GreaterOrEqual(t, *step.Order, prev, topic)
			prev = *step.Order
		}
	}

	orphan, err := e.LearningPath(ctx, course, "history")
	require.NoError(t, err)
	assert.Len(t, orphan, 1)

	missing, err := e.LearningPath(ctx, course, "tensors")
	require.NoError(t, err)
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
}

func TestMissingPrerequisitesIsSubset(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	cases := [][]string{
		nil,
		{"Dot Product"},
		{"magnitude", "dot_product"},
		{"unrelated"},
	}
	for _, topic := range []string{"vectors", "multiplication", "eigenvalues", "notation"} {
		all, err := e.PrerequisitesOf(ctx, course, topic)
		require.NoError(t, err)
		allIDs := map[string]bool{}
		for _, s := range all {
			allIDs[s.ID] = true
		}
		for _, completed := range cases {
			missing, err := e.MissingPrerequisites(ctx, course, topic, completed)
			require.NoError(t, err)
			for _, s := range missing {
				assert.True(t, allIDs[s.ID], "%s not a prerequisite of %s", s.ID, topic)
			}
			if len(completed) == 0 {
				assert.Equal(t, ids(all), ids(missing))
			}
		}
	}

	got, err := e.MissingPrerequisites(ctx, course, "multiplication", []string{"Dot Product"})
	require.NoError(t, err)
	assert.Equal(t, []string{"magnitude"}, ids(got))
}

func TestVisualize(t *testing.T) {
	e := newEngine(t)
	viz, err := e.Visualize(context.Background(), course)
	require.NoError(t, err)

	assert.Equal(t, domain.VizStats{TotalModules: 3, TotalTopics: 6, TotalSubtopics: 3, TotalEdges: 12}, viz.Stats)
	assert.Len(t, viz.Nodes, 12)

	kinds := map[domain.EdgeKind]int{}
	for _, edge := range viz.Edges {
		kinds[edge.Type]++
	}
	assert.Equal(t, map[domain.EdgeKind]int{
		domain.EdgePrecedes:       2,
		domain.EdgeHasTopic:       5,
		domain.EdgePrerequisiteOf: 5,
	}, kinds)

	subtopicNodes := 0
	for _, n := range viz.Nodes {
		if n.Type == domain.StepSubtopic && n.ID == "magnitude" {
			subtopicNodes++
		}
	}
	assert.Equal(t, 1, subtopicNodes)
}

func TestDeleteCourse(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	res, err := e.DeleteCourse(ctx, "Never Ingested")
	require.NoError(t, err)
	assert.Equal(t, domain.DeleteResult{Success: true, Course: "Never Ingested", DeletedCount: 0}, res)

	courses, err := e.ListCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{course}, courses)

	res, err = e.DeleteCourse(ctx, "linear algebra")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 12, res.DeletedCount)

	courses, err = e.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.NotNil(t, courses)
}
