package syllabus

import (
	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
)

type Field string

const (
	FieldModule    Field = "module"
	FieldOrder     Field = "order"
	FieldTopic     Field = "topic"
	FieldSubtopics Field = "subtopics"
	FieldResources Field = "resources"
)

type fieldSynonyms struct {
	Field    Field
	Synonyms []string
}

// synonymTable is evaluated top to bottom; within a field the first synonym
// present in the headers wins.
var synonymTable = []fieldSynonyms{
	{FieldModule, []string{"module", "unit", "section"}},
	{FieldOrder, []string{"lecture_number", "lecture", "order", "number", "lecture_no"}},
	{FieldTopic, []string{"lecture_topic", "topic", "title", "name", "lecture_title"}},
	{FieldSubtopics, []string{"subtopics", "subtopic", "prerequisites", "concepts", "sub_topics"}},
	{FieldResources, []string{"resources", "resource", "materials", "refs", "references"}},
}

// Synonyms returns the ordered synonym list for f.
func Synonyms(f Field) []string {
	for _, fs := range synonymTable {
		if fs.Field == f {
			return append([]string(nil), fs.Synonyms...)
		}
	}
	return nil
}

// Column is a resolved header. Index is -1 when the field was not found.
type Column struct {
	Header string
	Index  int
}

func (c Column) Found() bool { return c.Index >= 0 }

type Columns struct {
	Module    Column
	Order     Column
	Topic     Column
	Subtopics Column
	Resources Column
}

func (c Columns) Get(f Field) Column {
	switch f {
	case FieldModule:
		return c.Module
	case FieldOrder:
		return c.Order
	case FieldTopic:
		return c.Topic
	case FieldSubtopics:
		return c.Subtopics
	case FieldResources:
		return c.Resources
	default:
		return Column{Index: -1}
	}
}

func (c *Columns) set(f Field, col Column) {
	switch f {
	case FieldModule:
		c.Module = col
	case FieldOrder:
		c.Order = col
	case FieldTopic:
		c.Topic = col
	case FieldSubtopics:
		c.Subtopics = col
	case FieldResources:
		c.Resources = col
	}
}

// DetectColumns resolves headers to canonical fields. Only a missing topic
// column is an error.
func DetectColumns(headers []string) (Columns, error) {
	normalized := make(map[string]int, len(headers))
	for i, h := range headers {
		key := normalization.ID(h)
		if key == "" {
			continue
		}
		if _, dup := normalized[key]; !dup {
			normalized[key] = i
		}
	}

	var cols Columns
	for _, fs := range synonymTable {
		col := Column{Index: -1}
		for _, syn := range fs.Synonyms {
			if idx, ok := normalized[syn]; ok {
				col = Column{Header: headers[idx], Index: idx}
				break
			}
		}
		cols.set(fs.Field, col)
	}
	if !cols.Topic.Found() {
		return cols, &perr.ConfigurationError{Scope: perr.ScopeInput, Reason: "could not find topic column", Headers: headers}
	}
	return cols, nil
}
