package steps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-curriculum/internal/data/graph"
	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/observability"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type GraphBuildDeps struct {
	Log   *logger.Logger
	Store graph.Store
}

type GraphBuildInput struct {
	Course string
	Plan   domain.Plan
}

// GraphBuild writes a plan in three passes (modules, topics, subtopics), each
// its own batch. Each pass replaces the course's edges of its kind, so a
// re-run with an edited plan drops edges the plan no longer has. Re-running
// with the same plan creates nothing new and reports the same edge counts.
func GraphBuild(ctx context.Context, deps GraphBuildDeps, in GraphBuildInput) (domain.BuildSummary, error) {
	out := domain.BuildSummary{}
	if deps.Store == nil {
		return out, &perr.ConfigurationError{Scope: perr.ScopeStore, Reason: "no graph store configured"}
	}
	if deps.Log == nil {
		return out, fmt.Errorf("graph_build: missing deps")
	}
	course := strings.TrimSpace(in.Course)
	if course == "" {
		return out, fmt.Errorf("graph_build: %w: missing course", perr.ErrInvalidArgument)
	}
	out.Course = course
	log := deps.Log.With("step", "graph_build", "course", course)

	ctx, span := observability.StartSpan(ctx, "curriculum.graph_build", attribute.String("course", course))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if err = deps.Store.Ping(ctx); err != nil {
		if !errors.Is(err, perr.ErrStoreUnavailable) {
			err = perr.Unavailable("ping", err)
		}
		log.Error("graph store unreachable; nothing written", "error", err)
		return out, err
	}

	modules := uniqueModules(in.Plan.Modules)
	topics := uniqueTopics(in.Plan.Topics)
	subtopics := uniqueSubtopics(in.Plan.Subtopics)

	if err = buildModules(ctx, deps.Store, course, modules, &out); err != nil {
		log.Error("module pass failed", "error", err)
		return out, fmt.Errorf("graph_build: modules: %w", err)
	}
	if err = buildTopics(ctx, deps.Store, course, topics, &out); err != nil {
		log.Error("topic pass failed", "error", err)
		return out, fmt.Errorf("graph_build: topics: %w", err)
	}
	if err = buildSubtopics(ctx, deps.Store, course, subtopics, in.Plan.Prerequisites, &out); err != nil {
		log.Error("subtopic pass failed", "error", err)
		return out, fmt.Errorf("graph_build: subtopics: %w", err)
	}

	out.Success = true
	log.Info("curriculum graph built",
		"modules_created", out.ModulesCreated,
		"topics_created", out.TopicsCreated,
		"subtopics_created", out.SubtopicsCreated,
		"precedes", out.PrecedesCount,
		"has_topic", out.HasTopicCount,
		"prerequisite_of", out.PrerequisiteCount,
	)
	return out, nil
}

func buildModules(ctx context.Context, store graph.Store, course string, modules []domain.Module, out *domain.BuildSummary) error {
	ctx, span := observability.StartSpan(ctx, "curriculum.graph_build.modules", attribute.Int("count", len(modules)))
	nodes := make([]graph.Node, 0, len(modules))
	for _, m := range modules {
		nodes = append(nodes, graph.Node{Kind: domain.KindModule, ID: m.ID, Name: m.Name, Order: m.Order})
	}
	edges := make([]graph.Edge, 0, len(modules))
	for i := 1; i < len(modules); i++ {
		edges = append(edges, graph.Edge{From: modules[i-1].ID, To: modules[i].ID})
	}

	err := store.WriteBatch(ctx, func(w graph.Writer) error {
		created, err := w.UpsertNodes(ctx, course, nodes)
		if err != nil {
			return err
		}
		res, err := w.ReplaceEdges(ctx, course, domain.EdgePrecedes, edges)
		if err != nil {
			return err
		}
		out.ModulesCreated = created
		out.ModulesMatched = len(nodes) - created
		out.PrecedesCount = res.Written
		return nil
	})
	observability.EndSpan(span, err)
	return err
}

func buildTopics(ctx context.Context, store graph.Store, course string, topics []domain.Topic, out *domain.BuildSummary) error {
	ctx, span := observability.StartSpan(ctx, "curriculum.graph_build.topics", attribute.Int("count", len(topics)))
	nodes := make([]graph.Node, 0, len(topics))
	edges := make([]graph.Edge, 0, len(topics))
	for _, t := range topics {
		nodes = append(nodes, graph.Node{
			Kind:          domain.KindTopic,
			ID:            t.ID,
			Name:          t.Name,
			ModuleID:      t.ModuleID,
			LectureNumber: t.LectureNumber,
		})
		if t.ModuleID != "" {
			edges = append(edges, graph.Edge{From: t.ModuleID, To: t.ID})
		}
	}

	err := store.WriteBatch(ctx, func(w graph.Writer) error {
		created, err := w.UpsertNodes(ctx, course, nodes)
		if err != nil {
			return err
		}
		res, err := w.ReplaceEdges(ctx, course, domain.EdgeHasTopic, edges)
		if err != nil {
			return err
		}
		out.TopicsCreated = created
		out.TopicsMatched = len(nodes) - created
		out.HasTopicCount = res.Written
		return nil
	})
	observability.EndSpan(span, err)
	return err
}

func buildSubtopics(ctx context.Context, store graph.Store, course string, subtopics []domain.Subtopic, links []domain.PrerequisiteLink, out *domain.BuildSummary) error {
	ctx, span := observability.StartSpan(ctx, "curriculum.graph_build.subtopics", attribute.Int("count", len(subtopics)))
	nodes := make([]graph.Node, 0, len(subtopics))
	for _, s := range subtopics {
		nodes = append(nodes, graph.Node{Kind: domain.KindSubtopic, ID: s.ID, Name: s.Name, TopicID: s.TopicID})
	}
	seen := map[graph.Edge]bool{}
	edges := make([]graph.Edge, 0, len(links))
	for _, l := range links {
		e := graph.Edge{From: l.SubtopicID, To: l.TopicID}
		if e.From == "" || e.To == "" || seen[e] {
			continue
		}
		seen[e] = true
		edges = append(edges, e)
	}

	err := store.WriteBatch(ctx, func(w graph.Writer) error {
		created, err := w.UpsertNodes(ctx, course, nodes)
		if err != nil {
			return err
		}
		res, err := w.ReplaceEdges(ctx, course, domain.EdgePrerequisiteOf, edges)
		if err != nil {
			return err
		}
		out.SubtopicsCreated = created
		out.SubtopicsMatched = len(nodes) - created
		out.PrerequisiteCount = res.Written
		return nil
	})
	observability.EndSpan(span, err)
	return err
}

// uniqueModules keeps the first module per id and sorts by order so PRECEDES
// follows the declared sequence.
func uniqueModules(in []domain.Module) []domain.Module {
	seen := map[string]bool{}
	out := make([]domain.Module, 0, len(in))
	for _, m := range in {
		if m.ID == "" || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func uniqueTopics(in []domain.Topic) []domain.Topic {
	seen := map[string]bool{}
	out := make([]domain.Topic, 0, len(in))
	for _, t := range in {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

func uniqueSubtopics(in []domain.Subtopic) []domain.Subtopic {
	seen := map[string]bool{}
	out := make([]domain.Subtopic, 0, len(in))
	for _, s := range in {
		if s.ID == "" || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}
