package curriculum

type NodeKind string

const (
	KindModule   NodeKind = "Module"
	KindTopic    NodeKind = "Topic"
	KindSubtopic NodeKind = "Subtopic"
)

func (k NodeKind) Valid() bool {
	switch k {
	case KindModule, KindTopic, KindSubtopic:
		return true
	default:
		return false
	}
}

type EdgeKind string

const (
	EdgePrecedes       EdgeKind = "PRECEDES"
	EdgeHasTopic       EdgeKind = "HAS_TOPIC"
	EdgePrerequisiteOf EdgeKind = "PREREQUISITE_OF"
)

// Endpoints reports the node kinds an edge kind connects. Each relationship
// has exactly one source and one target kind.
func (k EdgeKind) Endpoints() (from, to NodeKind, ok bool) {
	switch k {
	case EdgePrecedes:
		return KindModule, KindModule, true
	case EdgeHasTopic:
		return KindModule, KindTopic, true
	case EdgePrerequisiteOf:
		return KindSubtopic, KindTopic, true
	default:
		return "", "", false
	}
}

type Module struct {
	ID     string `json:"id"`
	Course string `json:"course"`
	Name   string `json:"name"`
	Order  int    `json:"order"`
}

type Topic struct {
	ID            string `json:"id"`
	Course        string `json:"course"`
	Name          string `json:"name"`
	ModuleID      string `json:"module_id,omitempty"`
	LectureNumber *int   `json:"lecture_number,omitempty"`
}

// Subtopic.TopicID is the first topic that referenced the subtopic; every
// referencing topic gets its own PREREQUISITE_OF edge.
type Subtopic struct {
	ID      string `json:"id"`
	Course  string `json:"course"`
	Name    string `json:"name"`
	TopicID string `json:"topic_id,omitempty"`
}

type PrerequisiteLink struct {
	SubtopicID string `json:"subtopic_id"`
	TopicID    string `json:"topic_id"`
}

// Plan is the normalized write set for one course. Modules are in ascending
// order; the builder chains them with PRECEDES in slice order.
type Plan struct {
	Modules       []Module           `json:"modules"`
	Topics        []Topic            `json:"topics"`
	Subtopics     []Subtopic         `json:"subtopics"`
	Prerequisites []PrerequisiteLink `json:"prerequisites"`
}

type BuildSummary struct {
	Success           bool   `json:"success"`
	Course            string `json:"course"`
	ModulesCreated    int    `json:"modules_created"`
	TopicsCreated     int    `json:"topics_created"`
	SubtopicsCreated  int    `json:"subtopics_created"`
	ModulesMatched    int    `json:"modules_matched"`
	TopicsMatched     int    `json:"topics_matched"`
	SubtopicsMatched  int    `json:"subtopics_matched"`
	PrecedesCount     int    `json:"precedes_relationships"`
	HasTopicCount     int    `json:"has_topic_relationships"`
	PrerequisiteCount int    `json:"prerequisite_of_relationships"`
}

type DeleteResult struct {
	Success      bool   `json:"success"`
	Course       string `json:"course"`
	DeletedCount int    `json:"deleted_count"`
}
