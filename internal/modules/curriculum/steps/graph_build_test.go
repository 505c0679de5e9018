package steps

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-curriculum/internal/data/graph"
	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/syllabus"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

// unreachableStore fails Ping and records any write attempt.
type unreachableStore struct {
	*graph.MemoryStore
	writes int
}

func (s *unreachableStore) Ping(ctx context.Context) error {
	return errors.New("dial tcp 127.0.0.1:7687: connection refused")
}

func (s *unreachableStore) WriteBatch(ctx context.Context, fn func(w graph.Writer) error) error {
	s.writes++
	return s.MemoryStore.WriteBatch(ctx, fn)
}

func intp(v int) *int { return &v }

func samplePlan() domain.Plan {
	return domain.Plan{
		Modules: []domain.Module{
			{ID: "b", Name: "B", Order: 2},
			{ID: "a", Name: "A", Order: 1},
			{ID: "c", Name: "C", Order: 3},
		},
		Topics: []domain.Topic{
			{ID: "vectors", Name: "Vectors", ModuleID: "a", LectureNumber: intp(1)},
			{ID: "matrices", Name: "Matrices", ModuleID: "b"},
			{ID: "stray", Name: "Stray", ModuleID: "nowhere"},
		},
		Subtopics: []domain.Subtopic{
			{ID: "scalars", Name: "Scalars", TopicID: "vectors"},
			{ID: "ghost", Name: "Ghost", TopicID: "missing"},
		},
		Prerequisites: []domain.PrerequisiteLink{
			{SubtopicID: "scalars", TopicID: "vectors"},
			{SubtopicID: "scalars", TopicID: "matrices"},
			{SubtopicID: "scalars", TopicID: "matrices"},
			{SubtopicID: "ghost", TopicID: "missing"},
		},
	}
}

func TestGraphBuildWritesThreePasses(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	deps := GraphBuildDeps{Log: logger.Nop(), Store: store}

	sum, err := GraphBuild(ctx, deps, GraphBuildInput{Course: "Linear Algebra", Plan: samplePlan()})
	require.NoError(t, err)
	assert.Equal(t, domain.BuildSummary{
		Success:           true,
		Course:            "Linear Algebra",
		ModulesCreated:    3,
		TopicsCreated:     3,
		SubtopicsCreated:  2,
		PrecedesCount:     2,
		HasTopicCount:     2,
		PrerequisiteCount: 2,
	}, sum)

	edges, err := store.Edges(ctx, domain.EdgePrecedes, "linear algebra")
	require.NoError(t, err)
	assert.Equal(t, []graph.Edge{
		{Kind: domain.EdgePrecedes, From: "a", To: "b"},
		{Kind: domain.EdgePrecedes, From: "b", To: "c"},
	}, edges)

	stray, err := store.Node(ctx, domain.KindTopic, "Linear Algebra", "stray")
	require.NoError(t, err)
	require.NotNil(t, stray)
	ghost, err := store.Node(ctx, domain.KindSubtopic, "Linear Algebra", "ghost")
	require.NoError(t, err)
	require.NotNil(t, ghost)
}

func TestGraphBuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	deps := GraphBuildDeps{Log: logger.Nop(), Store: store}
	in := GraphBuildInput{Course: "Linear Algebra", Plan: samplePlan()}

	first, err := GraphBuild(ctx, deps, in)
	require.NoError(t, err)
	before := allEdges(t, store, "Linear Algebra")

	second, err := GraphBuild(ctx, deps, in)
	require.NoError(t, err)

	assert.Zero(t, second.ModulesCreated)
	assert.Zero(t, second.TopicsCreated)
	assert.Zero(t, second.SubtopicsCreated)
	assert.Equal(t, 3, second.ModulesMatched)
	assert.Equal(t, 3, second.TopicsMatched)
	assert.Equal(t, 2, second.SubtopicsMatched)
	assert.Equal(t, first.PrecedesCount, second.PrecedesCount)
	assert.Equal(t, first.HasTopicCount, second.HasTopicCount)
	assert.Equal(t, first.PrerequisiteCount, second.PrerequisiteCount)
	assert.Equal(t, before, allEdges(t, store, "Linear Algebra"))
}

func TestGraphBuildRebuildDropsEdgesMissingFromPlan(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	deps := GraphBuildDeps{Log: logger.Nop(), Store: store}

	first := domain.Plan{
		Modules: []domain.Module{
			{ID: "a", Name: "A", Order: 1},
			{ID: "b", Name: "B", Order: 2},
			{ID: "c", Name: "C", Order: 3},
		},
		Topics:        []domain.Topic{{ID: "t", Name: "T", ModuleID: "b"}},
		Subtopics:     []domain.Subtopic{{ID: "s", Name: "S", TopicID: "t"}},
		Prerequisites: []domain.PrerequisiteLink{{SubtopicID: "s", TopicID: "t"}},
	}
	_, err := GraphBuild(ctx, deps, GraphBuildInput{Course: "Reordered", Plan: first})
	require.NoError(t, err)

	second := domain.Plan{
		Modules: []domain.Module{
			{ID: "a", Name: "A", Order: 1},
			{ID: "c", Name: "C", Order: 2},
			{ID: "b", Name: "B", Order: 3},
		},
		Topics:    []domain.Topic{{ID: "t", Name: "T", ModuleID: "a"}},
		Subtopics: []domain.Subtopic{{ID: "s", Name: "S", TopicID: "t"}},
	}
	sum, err := GraphBuild(ctx, deps, GraphBuildInput{Course: "Reordered", Plan: second})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.PrecedesCount)
	assert.Equal(t, 1, sum.HasTopicCount)
	assert.Equal(t, 0, sum.PrerequisiteCount)

	assert.Equal(t, []graph.Edge{
		{Kind: domain.EdgePrecedes, From: "a", To: "c"},
		{Kind: domain.EdgePrecedes, From: "c", To: "b"},
		{Kind: domain.EdgeHasTopic, From: "a", To: "t"},
	}, allEdges(t, store, "Reordered"))

	next, err := store.Outgoing(ctx, domain.EdgePrecedes, "Reordered", "a")
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "c", next[0].ID)
}

func TestGraphBuildChainHasNMinusOneEdges(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{1, 2, 5, 12} {
		store := graph.NewMemoryStore()
		var csv strings.Builder
		csv.WriteString("Module,Lecture Topic\n")
		for i := 0; i < n; i++ {
			csv.WriteString("Mod " + string(rune('A'+i)) + ",Topic " + string(rune('A'+i)) + "\n")
		}
		s, err := syllabus.NewParser(nil).Parse(strings.NewReader(csv.String()))
		require.NoError(t, err)
		plan := s.Plan()
		for i, m := range plan.Modules {
			require.Equal(t, i+1, m.Order)
		}

		sum, err := GraphBuild(ctx, GraphBuildDeps{Log: logger.Nop(), Store: store}, GraphBuildInput{Course: "C", Plan: plan})
		require.NoError(t, err)
		assert.Equal(t, n-1, sum.PrecedesCount, "modules=%d", n)
	}
}

func TestGraphBuildIntroScenario(t *testing.T) {
	ctx := context.Background()
	s, err := syllabus.NewParser(nil).Parse(strings.NewReader(
		"Module,Lecture Number,Lecture Topic,Subtopics\n" +
			"Intro,1,Vectors,\"Scalars,Magnitude\"\n" +
			"Intro,2,Matrices,\n"))
	require.NoError(t, err)

	sum, err := GraphBuild(ctx, GraphBuildDeps{Log: logger.Nop(), Store: graph.NewMemoryStore()},
		GraphBuildInput{Course: "Intro Course", Plan: s.Plan()})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ModulesCreated)
	assert.Equal(t, 2, sum.TopicsCreated)
	assert.Equal(t, 2, sum.SubtopicsCreated)
	assert.Equal(t, 0, sum.PrecedesCount)
	assert.Equal(t, 2, sum.HasTopicCount)
	assert.Equal(t, 2, sum.PrerequisiteCount)
}

func TestGraphBuildFailsBeforeWritingWhenStoreUnreachable(t *testing.T) {
	store := &unreachableStore{MemoryStore: graph.NewMemoryStore()}
	_, err := GraphBuild(context.Background(), GraphBuildDeps{Log: logger.Nop(), Store: store},
		GraphBuildInput{Course: "Linear Algebra", Plan: samplePlan()})
	require.Error(t, err)
	assert.ErrorIs(t, err, perr.ErrStoreUnavailable)
	assert.Zero(t, store.writes)
}

func TestGraphBuildValidatesInput(t *testing.T) {
	ctx := context.Background()
	_, err := GraphBuild(ctx, GraphBuildDeps{Log: logger.Nop()}, GraphBuildInput{Course: "x"})
	assert.ErrorIs(t, err, perr.ErrConfiguration)

	_, err = GraphBuild(ctx, GraphBuildDeps{Log: logger.Nop(), Store: graph.NewMemoryStore()}, GraphBuildInput{Course: "  "})
	assert.ErrorIs(t, err, perr.ErrInvalidArgument)
}

func allEdges(t *testing.T, store graph.Store, course string) []graph.Edge {
	t.Helper()
	var out []graph.Edge
	for _, kind := range []domain.EdgeKind{domain.EdgePrecedes, domain.EdgeHasTopic, domain.EdgePrerequisiteOf} {
		edges, err := store.Edges(context.Background(), kind, course)
		require.NoError(t, err)
		out = append(out, edges...)
	}
	return out
}
