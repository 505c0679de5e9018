package curriculum

// ResourceReference is a parsed pointer such as "R1 Ch1" or "R2 Lec5".
// Empty optional fields mean the part was absent.
type ResourceReference struct {
	ResourceID string `json:"resource_id"`
	Chapter    string `json:"chapter,omitempty"`
	LectureRef string `json:"lecture_ref,omitempty"`
	ExtraInfo  string `json:"extra_info,omitempty"`
}

// Entry is one normalized syllabus row.
type Entry struct {
	Row           int                 `json:"row"`
	Module        string              `json:"module"`
	ModuleOrder   int                 `json:"module_order"`
	LectureNumber *int                `json:"lecture_number,omitempty"`
	Topic         string              `json:"topic"`
	Subtopics     []string            `json:"subtopics"`
	Resources     []ResourceReference `json:"resources"`
	// Prerequisite is the previous lecture's topic when lecture-order inference ran.
	Prerequisite string `json:"prerequisite,omitempty"`
}

// SyllabusContext is what a material file resolves to in the syllabus.
type SyllabusContext struct {
	Module        string   `json:"module"`
	ModuleOrder   int      `json:"module_order"`
	Topic         string   `json:"topic"`
	LectureNumber *int     `json:"lecture_number,omitempty"`
	Subtopics     []string `json:"subtopics"`
	Chapter       string   `json:"chapter,omitempty"`
	LectureRef    string   `json:"lecture_ref,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}
