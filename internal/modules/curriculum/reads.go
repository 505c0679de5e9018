package curriculum

import (
	"context"
	"fmt"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
)

// CurriculumItem is a position in traversal order.
type CurriculumItem struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	ModuleID   string `json:"module_id,omitempty"`
	ModuleName string `json:"module_name,omitempty"`
}

type TopicContext struct {
	Course        string            `json:"course"`
	TopicID       string            `json:"topic_id"`
	Topic         CurriculumItem    `json:"topic"`
	LectureNumber *int              `json:"lecture_number,omitempty"`
	Prerequisites []domain.Subtopic `json:"prerequisites"`
	NextTopic     *CurriculumItem   `json:"next_topic"`
	LearningPath  []domain.PathStep `json:"learning_path"`
}

type MissingPrerequisites struct {
	Course    string            `json:"course"`
	TopicID   string            `json:"topic_id"`
	Missing   []domain.Subtopic `json:"missing"`
	Completed []string          `json:"completed"`
}

type position struct {
	module int
	topic  int
}

// locate finds topicID in a traversal view. Orphans are not part of the
// module sequence and return ok=false.
func locate(view domain.CurriculumView, topicID string) (position, bool) {
	id := normalization.ID(topicID)
	for mi, m := range view.Modules {
		for ti, t := range m.Topics {
			if t.ID == id {
				return position{module: mi, topic: ti}, true
			}
		}
	}
	return position{}, false
}

func itemAt(view domain.CurriculumView, p position) CurriculumItem {
	m := view.Modules[p.module]
	t := m.Topics[p.topic]
	return CurriculumItem{Type: domain.StepTopic, ID: t.ID, Name: t.Name, ModuleID: m.ID, ModuleName: m.Name}
}

// nextAfter steps to the following topic, crossing into later modules and
// skipping modules without topics.
func nextAfter(view domain.CurriculumView, p position) *CurriculumItem {
	if p.topic+1 < len(view.Modules[p.module].Topics) {
		item := itemAt(view, position{module: p.module, topic: p.topic + 1})
		return &item
	}
	for mi := p.module + 1; mi < len(view.Modules); mi++ {
		if len(view.Modules[mi].Topics) > 0 {
			item := itemAt(view, position{module: mi})
			return &item
		}
	}
	return nil
}

// NextCurriculumItem returns the topic after topicID in traversal order, or
// nil at the end of the course or for an unknown topic.
func (u *Usecases) NextCurriculumItem(ctx context.Context, course, topicID string) (*CurriculumItem, error) {
	view, err := u.query.Traverse(ctx, course)
	if err != nil {
		return nil, err
	}
	p, ok := locate(view, topicID)
	if !ok {
		return nil, nil
	}
	return nextAfter(view, p), nil
}

// TopicContext gathers what a tutor needs about one topic. An unknown topic
// is ErrNotFound.
func (u *Usecases) TopicContext(ctx context.Context, course, topicID string) (TopicContext, error) {
	out := TopicContext{Course: course, TopicID: normalization.ID(topicID)}

	view, err := u.query.Traverse(ctx, course)
	if err != nil {
		return out, err
	}
	if p, ok := locate(view, topicID); ok {
		out.Topic = itemAt(view, p)
		out.LectureNumber = view.Modules[p.module].Topics[p.topic].LectureNumber
		out.NextTopic = nextAfter(view, p)
	} else {
		found := false
		for _, t := range view.Orphans {
			if t.ID == out.TopicID {
				out.Topic = CurriculumItem{Type: domain.StepTopic, ID: t.ID, Name: t.Name}
				out.LectureNumber = t.LectureNumber
				found = true
				break
			}
		}
		if !found {
			return out, fmt.Errorf("topic_context: %w: topic %q in course %q", perr.ErrNotFound, topicID, course)
		}
	}

	if out.Prerequisites, err = u.query.PrerequisitesOf(ctx, course, topicID); err != nil {
		return out, err
	}
	if out.LearningPath, err = u.query.LearningPath(ctx, course, topicID); err != nil {
		return out, err
	}
	return out, nil
}

func (u *Usecases) DetectMissingPrerequisites(ctx context.Context, course, topicID string, completed []string) (MissingPrerequisites, error) {
	out := MissingPrerequisites{
		Course:    course,
		TopicID:   normalization.ID(topicID),
		Completed: append([]string{}, completed...),
	}
	missing, err := u.query.MissingPrerequisites(ctx, course, topicID, completed)
	if err != nil {
		return out, err
	}
	out.Missing = missing
	return out, nil
}

func (u *Usecases) Traverse(ctx context.Context, course string) (domain.CurriculumView, error) {
	return u.query.Traverse(ctx, course)
}

func (u *Usecases) LearningPath(ctx context.Context, course, topicID string) ([]domain.PathStep, error) {
	return u.query.LearningPath(ctx, course, topicID)
}

func (u *Usecases) Visualization(ctx context.Context, course string) (domain.Visualization, error) {
	return u.query.Visualize(ctx, course)
}

// LookupResource resolves a material filename against the course's resource
// index. A course that was never ingested in this process is ErrNotFound.
func (u *Usecases) LookupResource(course, filename string) ([]domain.SyllabusContext, error) {
	idx, ok := u.Index(course)
	if !ok {
		return nil, fmt.Errorf("lookup_resource: %w: no resource index for course %q", perr.ErrNotFound, course)
	}
	out := idx.LookupAll(filename)
	if out == nil {
		out = []domain.SyllabusContext{}
	}
	return out, nil
}
