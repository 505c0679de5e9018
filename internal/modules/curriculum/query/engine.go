package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-curriculum/internal/data/graph"
	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
	"github.com/yungbote/neurobridge-curriculum/internal/observability"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

// Engine answers read traversals over a built curriculum graph. Unknown
// courses, topics and modules yield empty results rather than errors.
type Engine struct {
	store graph.Store
	log   *logger.Logger
}

func New(store graph.Store, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{store: store, log: log.With("service", "CurriculumQuery")}
}

// PrerequisitesOf returns the subtopics gating topicID, sorted by name.
func (e *Engine) PrerequisitesOf(ctx context.Context, course, topicID string) ([]domain.Subtopic, error) {
	ctx, span := observability.StartSpan(ctx, "curriculum.prerequisites_of", attribute.String("course", course))
	nodes, err := e.store.Incoming(ctx, domain.EdgePrerequisiteOf, course, normalization.ID(topicID))
	observability.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("prerequisites_of: %w", err)
	}
	out := make([]domain.Subtopic, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toSubtopic(n))
	}
	sortSubtopics(out)
	return out, nil
}

// NextModule follows the outgoing PRECEDES edge of moduleID. It returns nil at
// the end of the chain or for an unknown module.
func (e *Engine) NextModule(ctx context.Context, course, moduleID string) (*domain.Module, error) {
	ctx, span := observability.StartSpan(ctx, "curriculum.next_module", attribute.String("course", course))
	nodes, err := e.store.Outgoing(ctx, domain.EdgePrecedes, course, normalization.ID(moduleID))
	observability.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("next_module: %w", err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	m := toModule(nodes[0])
	return &m, nil
}

// snapshot is one course read in full.
type snapshot struct {
	modules   []graph.Node
	topics    map[string]graph.Node
	subtopics map[string]graph.Node
	hasTopic  []graph.Edge
	prereq    []graph.Edge
	precedes  []graph.Edge
}

func (e *Engine) load(ctx context.Context, course string) (*snapshot, error) {
	s := &snapshot{topics: map[string]graph.Node{}, subtopics: map[string]graph.Node{}}
	var err error
	if s.modules, err = e.store.Nodes(ctx, domain.KindModule, course); err != nil {
		return nil, err
	}
	topics, err := e.store.Nodes(ctx, domain.KindTopic, course)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		s.topics[t.ID] = t
	}
	subs, err := e.store.Nodes(ctx, domain.KindSubtopic, course)
	if err != nil {
		return nil, err
	}
	for _, st := range subs {
		s.subtopics[st.ID] = st
	}
	if s.precedes, err = e.store.Edges(ctx, domain.EdgePrecedes, course); err != nil {
		return nil, err
	}
	if s.hasTopic, err = e.store.Edges(ctx, domain.EdgeHasTopic, course); err != nil {
		return nil, err
	}
	if s.prereq, err = e.store.Edges(ctx, domain.EdgePrerequisiteOf, course); err != nil {
		return nil, err
	}
	sort.SliceStable(s.modules, func(i, j int) bool {
		if s.modules[i].Order != s.modules[j].Order {
			return s.modules[i].Order < s.modules[j].Order
		}
		return s.modules[i].ID < s.modules[j].ID
	})
	return s, nil
}

// Traverse materializes the course: modules by order, each module's topics by
// lecture number then name, each topic's subtopics by name. Topics without a
// module are listed as orphans.
func (e *Engine) Traverse(ctx context.Context, course string) (domain.CurriculumView, error) {
	ctx, span := observability.StartSpan(ctx, "curriculum.traverse", attribute.String("course", course))
	view, err := e.traverse(ctx, course)
	observability.EndSpan(span, err)
	return view, err
}

func (e *Engine) traverse(ctx context.Context, course string) (domain.CurriculumView, error) {
	s, err := e.load(ctx, course)
	if err != nil {
		return domain.CurriculumView{Course: course, Modules: []domain.ModuleView{}}, fmt.Errorf("traverse: %w", err)
	}
	return s.view(course), nil
}

func (s *snapshot) view(course string) domain.CurriculumView {
	view := domain.CurriculumView{Course: course, Modules: []domain.ModuleView{}}
	subsByTopic := map[string][]domain.Subtopic{}
	for _, edge := range s.prereq {
		st, ok := s.subtopics[edge.From]
		if !ok {
			continue
		}
		subsByTopic[edge.To] = append(subsByTopic[edge.To], toSubtopic(st))
	}
	topicView := func(t graph.Node) domain.TopicView {
		subs := subsByTopic[t.ID]
		if subs == nil {
			subs = []domain.Subtopic{}
		}
		sortSubtopics(subs)
		return domain.TopicView{Topic: toTopic(t), Subtopics: subs}
	}

	owned := map[string]bool{}
	topicsByModule := map[string][]graph.Node{}
	for _, edge := range s.hasTopic {
		t, ok := s.topics[edge.To]
		if !ok {
			continue
		}
		owned[t.ID] = true
		topicsByModule[edge.From] = append(topicsByModule[edge.From], t)
	}

	for _, m := range s.modules {
		mv := domain.ModuleView{Module: toModule(m), Topics: []domain.TopicView{}}
		topics := topicsByModule[m.ID]
		sortTopicNodes(topics)
		for _, t := range topics {
			mv.Topics = append(mv.Topics, topicView(t))
		}
		view.Modules = append(view.Modules, mv)
	}

	var orphans []graph.Node
	for _, t := range s.topics {
		if !owned[t.ID] {
			orphans = append(orphans, t)
		}
	}
	sortTopicNodes(orphans)
	for _, t := range orphans {
		view.Orphans = append(view.Orphans, topicView(t))
	}
	return view
}

// LearningPath lists, for topicID: every module before the topic's module in
// ascending order, the topic's module, its prerequisite subtopics by name, and
// finally the topic. An unknown topic yields an empty path.
func (e *Engine) LearningPath(ctx context.Context, course, topicID string) ([]domain.PathStep, error) {
	ctx, span := observability.StartSpan(ctx, "curriculum.learning_path", attribute.String("course", course))
	steps, err := e.learningPath(ctx, course, normalization.ID(topicID))
	observability.EndSpan(span, err)
	return steps, err
}

func (e *Engine) learningPath(ctx context.Context, course, topicID string) ([]domain.PathStep, error) {
	steps := []domain.PathStep{}
	topic, err := e.store.Node(ctx, domain.KindTopic, course, topicID)
	if err != nil {
		return nil, fmt.Errorf("learning_path: %w", err)
	}
	if topic == nil {
		return steps, nil
	}

	owners, err := e.store.Incoming(ctx, domain.EdgeHasTopic, course, topicID)
	if err != nil {
		return nil, fmt.Errorf("learning_path: %w", err)
	}
	if len(owners) > 0 {
		owner := owners[0]
		before, err := e.precedingModules(ctx, course, owner.ID)
		if err != nil {
			return nil, fmt.Errorf("learning_path: %w", err)
		}
		for _, m := range before {
			steps = append(steps, moduleStep(m))
		}
		steps = append(steps, moduleStep(owner))
	}

	prereqs, err := e.PrerequisitesOf(ctx, course, topicID)
	if err != nil {
		return nil, fmt.Errorf("learning_path: %w", err)
	}
	for _, st := range prereqs {
		steps = append(steps, domain.PathStep{Type: domain.StepSubtopic, ID: st.ID, Name: st.Name})
	}
	steps = append(steps, domain.PathStep{
		Type:  domain.StepTopic,
		ID:    topic.ID,
		Name:  topic.Name,
		Order: topic.LectureNumber,
	})
	return steps, nil
}

// precedingModules walks PRECEDES backward from moduleID and returns every
// module reached, ascending by order.
func (e *Engine) precedingModules(ctx context.Context, course, moduleID string) ([]graph.Node, error) {
	visited := map[string]bool{moduleID: true}
	frontier := []string{moduleID}
	var out []graph.Node
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		prev, err := e.store.Incoming(ctx, domain.EdgePrecedes, course, id)
		if err != nil {
			return nil, err
		}
		for _, m := range prev {
			if visited[m.ID] {
				continue
			}
			visited[m.ID] = true
			out = append(out, m)
			frontier = append(frontier, m.ID)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MissingPrerequisites returns the prerequisites of topicID whose normalized id
// is not in completed.
func (e *Engine) MissingPrerequisites(ctx context.Context, course, topicID string, completed []string) ([]domain.Subtopic, error) {
	prereqs, err := e.PrerequisitesOf(ctx, course, topicID)
	if err != nil {
		return nil, fmt.Errorf("missing_prerequisites: %w", err)
	}
	done := make(map[string]bool, len(completed))
	for _, c := range completed {
		if id := normalization.ID(c); id != "" {
			done[id] = true
		}
	}
	out := make([]domain.Subtopic, 0, len(prereqs))
	for _, st := range prereqs {
		if !done[normalization.ID(st.ID)] {
			out = append(out, st)
		}
	}
	return out, nil
}

// Visualize flattens the course into render-ready nodes and typed edges. Nodes
// are unique per (type, id).
func (e *Engine) Visualize(ctx context.Context, course string) (domain.Visualization, error) {
	ctx, span := observability.StartSpan(ctx, "curriculum.visualize", attribute.String("course", course))
	viz, err := e.visualize(ctx, course)
	observability.EndSpan(span, err)
	return viz, err
}

func (e *Engine) visualize(ctx context.Context, course string) (domain.Visualization, error) {
	viz := domain.Visualization{Course: course, Nodes: []domain.VizNode{}, Edges: []domain.VizEdge{}}
	s, err := e.load(ctx, course)
	if err != nil {
		return viz, fmt.Errorf("visualize: %w", err)
	}
	view := s.view(course)

	seen := map[string]bool{}
	add := func(n domain.VizNode) {
		key := n.Type + "\x00" + n.ID
		if seen[key] {
			return
		}
		seen[key] = true
		viz.Nodes = append(viz.Nodes, n)
	}
	addTopic := func(tv domain.TopicView) {
		add(domain.VizNode{ID: tv.ID, Label: tv.Name, Type: domain.StepTopic, Order: tv.LectureNumber, ModuleID: tv.ModuleID})
		viz.Stats.TotalTopics++
		for _, st := range tv.Subtopics {
			if !seen[domain.StepSubtopic+"\x00"+st.ID] {
				viz.Stats.TotalSubtopics++
			}
			add(domain.VizNode{ID: st.ID, Label: st.Name, Type: domain.StepSubtopic, TopicID: st.TopicID})
		}
	}
	for _, mv := range view.Modules {
		order := mv.Order
		add(domain.VizNode{ID: mv.ID, Label: mv.Name, Type: domain.StepModule, Order: &order})
		viz.Stats.TotalModules++
		for _, tv := range mv.Topics {
			addTopic(tv)
		}
	}
	for _, tv := range view.Orphans {
		addTopic(tv)
	}
	// Subtopics whose topic is gone are still part of the course.
	var loose []graph.Node
	for id, st := range s.subtopics {
		if !seen[domain.StepSubtopic+"\x00"+id] {
			loose = append(loose, st)
		}
	}
	sort.Slice(loose, func(i, j int) bool { return loose[i].ID < loose[j].ID })
	for _, st := range loose {
		add(domain.VizNode{ID: st.ID, Label: st.Name, Type: domain.StepSubtopic, TopicID: st.TopicID})
		viz.Stats.TotalSubtopics++
	}

	for _, group := range []struct {
		kind  domain.EdgeKind
		edges []graph.Edge
	}{
		{domain.EdgePrecedes, s.precedes},
		{domain.EdgeHasTopic, s.hasTopic},
		{domain.EdgePrerequisiteOf, s.prereq},
	} {
		for _, edge := range group.edges {
			viz.Edges = append(viz.Edges, domain.VizEdge{From: edge.From, To: edge.To, Type: group.kind})
		}
	}
	viz.Stats.TotalEdges = len(viz.Edges)
	return viz, nil
}

// DeleteCourse removes the course subgraph. A course with no data deletes
// nothing and still succeeds.
func (e *Engine) DeleteCourse(ctx context.Context, course string) (domain.DeleteResult, error) {
	ctx, span := observability.StartSpan(ctx, "curriculum.delete_course", attribute.String("course", course))
	n, err := e.store.DeleteCourse(ctx, course)
	observability.EndSpan(span, err)
	if err != nil {
		return domain.DeleteResult{Course: course}, fmt.Errorf("delete_course: %w", err)
	}
	e.log.Info("course deleted", "course", course, "deleted_count", n)
	return domain.DeleteResult{Success: true, Course: course, DeletedCount: n}, nil
}

func (e *Engine) ListCourses(ctx context.Context) ([]string, error) {
	courses, err := e.store.Courses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_courses: %w", err)
	}
	if courses == nil {
		courses = []string{}
	}
	return courses, nil
}

func moduleStep(n graph.Node) domain.PathStep {
	order := n.Order
	return domain.PathStep{Type: domain.StepModule, ID: n.ID, Name: n.Name, Order: &order}
}

func toModule(n graph.Node) domain.Module {
	return domain.Module{ID: n.ID, Course: n.Course, Name: n.Name, Order: n.Order}
}

func toTopic(n graph.Node) domain.Topic {
	return domain.Topic{ID: n.ID, Course: n.Course, Name: n.Name, ModuleID: n.ModuleID, LectureNumber: n.LectureNumber}
}

func toSubtopic(n graph.Node) domain.Subtopic {
	return domain.Subtopic{ID: n.ID, Course: n.Course, Name: n.Name, TopicID: n.TopicID}
}

func sortSubtopics(subs []domain.Subtopic) {
	sort.SliceStable(subs, func(i, j int) bool {
		a, b := strings.ToLower(subs[i].Name), strings.ToLower(subs[j].Name)
		if a != b {
			return a < b
		}
		return subs[i].ID < subs[j].ID
	})
}

// sortTopicNodes orders by lecture number (unnumbered last), then name.
func sortTopicNodes(topics []graph.Node) {
	sort.SliceStable(topics, func(i, j int) bool {
		a, b := topics[i].LectureNumber, topics[j].LectureNumber
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return strings.ToLower(topics[i].Name) < strings.ToLower(topics[j].Name)
	})
}
