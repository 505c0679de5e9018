package syllabus

import (
	"sort"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
)

// shouldInfer reports whether the flat lecture-order chain applies: no subtopic
// column, a lecture column, and at least one numbered row.
func shouldInfer(cols Columns, entries []domain.Entry) bool {
	if cols.Subtopics.Found() || !cols.Order.Found() {
		return false
	}
	for _, e := range entries {
		if e.LectureNumber != nil {
			return true
		}
	}
	return false
}

// inferPrerequisites sets Entry.Prerequisite to the previous lecture's topic
// within the same module. Without a module column every row has its own
// synthetic module, so all rows form one group instead. Unnumbered entries
// sort after numbered ones in source order. Entries keep their source
// positions.
func inferPrerequisites(entries []domain.Entry, hasModuleColumn bool) bool {
	byModule := map[string][]int{}
	var moduleKeys []string
	for i, e := range entries {
		key := ""
		if hasModuleColumn {
			key = e.Module
		}
		if _, ok := byModule[key]; !ok {
			moduleKeys = append(moduleKeys, key)
		}
		byModule[key] = append(byModule[key], i)
	}

	inferred := false
	for _, key := range moduleKeys {
		idx := byModule[key]
		sort.SliceStable(idx, func(a, b int) bool {
			la, lb := entries[idx[a]].LectureNumber, entries[idx[b]].LectureNumber
			switch {
			case la == nil:
				return false
			case lb == nil:
				return true
			default:
				return *la < *lb
			}
		})
		prev := ""
		for _, i := range idx {
			if prev != "" {
				entries[i].Prerequisite = prev
				inferred = true
			}
			prev = entries[i].Topic
		}
	}
	return inferred
}

func countInferred(entries []domain.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Prerequisite != "" {
			n++
		}
	}
	return n
}
