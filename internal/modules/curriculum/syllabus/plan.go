package syllabus

import (
	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
)

// Plan projects the parsed entries into graph entities. Topics and subtopics
// are deduplicated by normalized id keeping the first occurrence; a subtopic
// cited by several topics yields one node and one link per topic. Inferred
// lecture-order prerequisites become subtopic links of the same shape.
func (s *Syllabus) Plan() domain.Plan {
	var plan domain.Plan
	plan.Modules = dedupeModules(s.Modules)

	topicSeen := map[string]bool{}
	subSeen := map[string]bool{}
	linkSeen := map[domain.PrerequisiteLink]bool{}

	for _, e := range s.Entries {
		topicID := normalization.ID(e.Topic)
		if topicID == "" {
			continue
		}
		if !topicSeen[topicID] {
			topicSeen[topicID] = true
			plan.Topics = append(plan.Topics, domain.Topic{
				ID:            topicID,
				Name:          e.Topic,
				ModuleID:      normalization.ID(e.Module),
				LectureNumber: e.LectureNumber,
			})
		}

		names := e.Subtopics
		if e.Prerequisite != "" {
			names = append(append([]string(nil), names...), e.Prerequisite)
		}
		for _, name := range names {
			subID := normalization.ID(name)
			if subID == "" {
				continue
			}
			if !subSeen[subID] {
				subSeen[subID] = true
				plan.Subtopics = append(plan.Subtopics, domain.Subtopic{ID: subID, Name: name, TopicID: topicID})
			}
			link := domain.PrerequisiteLink{SubtopicID: subID, TopicID: topicID}
			if !linkSeen[link] {
				linkSeen[link] = true
				plan.Prerequisites = append(plan.Prerequisites, link)
			}
		}
	}
	return plan
}

// dedupeModules drops modules whose names normalize to an id already seen and
// renumbers the survivors 1..N so the chain stays contiguous.
func dedupeModules(in []domain.Module) []domain.Module {
	out := make([]domain.Module, 0, len(in))
	seen := map[string]bool{}
	for _, m := range in {
		if m.ID == "" || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		m.Order = len(out) + 1
		out = append(out, m)
	}
	return out
}
