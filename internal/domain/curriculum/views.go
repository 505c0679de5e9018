package curriculum

type TopicView struct {
	Topic
	Subtopics []Subtopic `json:"subtopics"`
}

type ModuleView struct {
	Module
	Topics []TopicView `json:"topics"`
}

type CurriculumView struct {
	Course  string       `json:"course"`
	Modules []ModuleView `json:"modules"`
	// Orphans are topics with no incoming HAS_TOPIC edge.
	Orphans []TopicView `json:"orphans,omitempty"`
}

const (
	StepModule   = "module"
	StepSubtopic = "subtopic"
	StepTopic    = "topic"
)

type PathStep struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order *int   `json:"order,omitempty"`
}

type VizNode struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Order    *int   `json:"order,omitempty"`
	ModuleID string `json:"module_id,omitempty"`
	TopicID  string `json:"topic_id,omitempty"`
}

type VizEdge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeKind `json:"type"`
}

type VizStats struct {
	TotalModules   int `json:"total_modules"`
	TotalTopics    int `json:"total_topics"`
	TotalSubtopics int `json:"total_subtopics"`
	TotalEdges     int `json:"total_edges"`
}

type Visualization struct {
	Course string    `json:"course"`
	Nodes  []VizNode `json:"nodes"`
	Edges  []VizEdge `json:"edges"`
	Stats  VizStats  `json:"stats"`
}
