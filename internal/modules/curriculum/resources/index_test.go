package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
)

func intp(v int) *int { return &v }

func sampleEntries() []domain.Entry {
	return []domain.Entry{
		{
			Row: 2, Module: "Intro", ModuleOrder: 1, LectureNumber: intp(1), Topic: "Vectors",
			Subtopics: []string{"Scalars", "Magnitude"},
			Resources: ParseReferences("R1 Ch1; R2 Lec5; garbage"),
		},
		{
			Row: 3, Module: "Intro", ModuleOrder: 1, LectureNumber: intp(2), Topic: "Matrices",
			Resources: ParseReferences("R2 Ch3"),
		},
	}
}

func TestLookupUsesFirstCitingEntry(t *testing.T) {
	x := NewIndex(nil)
	require.Equal(t, 2, x.Load("Linear Algebra", sampleEntries()))

	ctx, ok := x.Lookup("R2_notes.pdf")
	require.True(t, ok)
	assert.Equal(t, "Vectors", ctx.Topic)
	assert.Equal(t, "Lec5", ctx.LectureRef)
	assert.Empty(t, ctx.Chapter)
	assert.Equal(t, []string{"Scalars", "Magnitude"}, ctx.Subtopics)
}

func TestLookupAllFansOut(t *testing.T) {
	x := NewIndex(nil)
	x.Load("Linear Algebra", sampleEntries())

	all := x.LookupAll("r2.pdf")
	require.Len(t, all, 2)
	assert.Equal(t, "Vectors", all[0].Topic)
	assert.Equal(t, "Matrices", all[1].Topic)
	assert.Equal(t, "Ch3", all[1].Chapter)
}

func TestLookupMisses(t *testing.T) {
	x := NewIndex(nil)
	_, ok := x.Lookup("R1.pdf")
	assert.False(t, ok, "lookup before load")

	x.Load("Linear Algebra", sampleEntries())
	for _, name := range []string{"notes_R1.pdf", "R9.pdf", "syllabus.csv", ""} {
		_, ok := x.Lookup(name)
		assert.False(t, ok, "Lookup(%q)", name)
	}
}

func TestEnrichMetadataAndSummary(t *testing.T) {
	x := NewIndex(nil)
	x.Load("Linear Algebra", sampleEntries())

	meta := x.EnrichMetadata(nil, "R1.pdf")
	assert.Equal(t, "Intro", meta["syllabus_module"])
	assert.Equal(t, "Ch1", meta["syllabus_chapter"])
	assert.Equal(t, "Linear Algebra", meta["syllabus_course"])
	assert.Equal(t, "Intro → Lecture 1: Vectors", meta["syllabus_context"])

	miss := x.EnrichMetadata(map[string]any{"keep": true}, "handout.pdf")
	assert.Equal(t, true, miss["keep"])
	assert.Nil(t, miss["syllabus_module"])
	assert.Equal(t, unmappedContext, miss["syllabus_context"])

	summary := x.Summary()
	assert.Equal(t, []string{"Module 1 Lecture 1: Vectors"}, summary["R1"])
	assert.Equal(t, []string{"Module 1 Lecture 1: Vectors", "Module 1 Lecture 2: Matrices"}, summary["R2"])
	assert.Equal(t, []string{"R1", "R2"}, x.ResourceIDs())
}
