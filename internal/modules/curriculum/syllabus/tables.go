package syllabus

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
)

// Tables is the three-file input shape: modules.csv, topics.csv, subtopics.csv.
type Tables struct {
	Modules   io.Reader
	Topics    io.Reader
	Subtopics io.Reader
}

type tableRow struct {
	row    int
	values map[string]string
}

// ParseTables reads the three-table shape into a Plan. Rows lacking their own
// id are skipped. Modules are ordered by their declared order and renumbered
// 1..N.
func (p *Parser) ParseTables(t Tables) (domain.Plan, []SkippedRow, error) {
	var plan domain.Plan
	var skipped []SkippedRow

	moduleRows, err := p.readTable("modules", t.Modules)
	if err != nil {
		return plan, nil, err
	}
	type declared struct {
		mod   domain.Module
		order int
	}
	var mods []declared
	seenModules := map[string]bool{}
	for _, r := range moduleRows {
		id := normalization.ID(r.values["module_id"])
		if id == "" {
			skipped = append(skipped, p.skip("modules", r.row, "missing module_id"))
			continue
		}
		if seenModules[id] {
			skipped = append(skipped, p.skip("modules", r.row, "duplicate module_id"))
			continue
		}
		order, err := parseOrder(r.values["order"])
		if err != nil {
			skipped = append(skipped, p.skip("modules", r.row, "invalid order"))
			continue
		}
		seenModules[id] = true
		name := r.values["module_name"]
		if name == "" {
			name = r.values["module_id"]
		}
		mods = append(mods, declared{mod: domain.Module{ID: id, Name: name}, order: order})
	}
	sort.SliceStable(mods, func(i, j int) bool { return mods[i].order < mods[j].order })
	for i, d := range mods {
		d.mod.Order = i + 1
		plan.Modules = append(plan.Modules, d.mod)
	}

	topicRows, err := p.readTable("topics", t.Topics)
	if err != nil {
		return plan, nil, err
	}
	seenTopics := map[string]bool{}
	for _, r := range topicRows {
		id := normalization.ID(r.values["topic_id"])
		if id == "" {
			skipped = append(skipped, p.skip("topics", r.row, "missing topic_id"))
			continue
		}
		if seenTopics[id] {
			skipped = append(skipped, p.skip("topics", r.row, "duplicate topic_id"))
			continue
		}
		seenTopics[id] = true
		name := r.values["topic_name"]
		if name == "" {
			name = r.values["topic_id"]
		}
		plan.Topics = append(plan.Topics, domain.Topic{
			ID:       id,
			Name:     name,
			ModuleID: normalization.ID(r.values["module_id"]),
		})
	}

	if t.Subtopics != nil {
		subRows, err := p.readTable("subtopics", t.Subtopics)
		if err != nil {
			return plan, nil, err
		}
		seenSubs := map[string]bool{}
		seenLinks := map[domain.PrerequisiteLink]bool{}
		for _, r := range subRows {
			id := normalization.ID(r.values["subtopic_id"])
			if id == "" {
				skipped = append(skipped, p.skip("subtopics", r.row, "missing subtopic_id"))
				continue
			}
			topicID := normalization.ID(r.values["topic_id"])
			if !seenSubs[id] {
				seenSubs[id] = true
				name := r.values["subtopic_name"]
				if name == "" {
					name = r.values["subtopic_id"]
				}
				plan.Subtopics = append(plan.Subtopics, domain.Subtopic{ID: id, Name: name, TopicID: topicID})
			}
			if topicID == "" {
				continue
			}
			link := domain.PrerequisiteLink{SubtopicID: id, TopicID: topicID}
			if !seenLinks[link] {
				seenLinks[link] = true
				plan.Prerequisites = append(plan.Prerequisites, link)
			}
		}
	}

	p.log.Info("parsed curriculum tables",
		"modules", len(plan.Modules),
		"topics", len(plan.Topics),
		"subtopics", len(plan.Subtopics),
		"skipped", len(skipped),
	)
	return plan, skipped, nil
}

func (p *Parser) skip(table string, row int, reason string) SkippedRow {
	p.log.Warn("row skipped", "table", table, "row", row, "reason", reason)
	return SkippedRow{Row: row, Reason: table + ": " + reason}
}

// readTable decodes and reads a headed table into lowercase-keyed rows.
func (p *Parser) readTable(name string, r io.Reader) ([]tableRow, error) {
	if r == nil {
		return nil, &perr.ConfigurationError{Scope: perr.ScopeInput, Reason: name + " table missing"}
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("syllabus: read %s table: %w", name, err)
	}
	text, _, err := Decode(raw, p.encodings)
	if err != nil {
		return nil, err
	}
	records, err := readRecords(text, sniffDelimiter(text))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &perr.ConfigurationError{Scope: perr.ScopeInput, Reason: name + " table has no headers"}
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = normalization.ID(h)
	}
	out := make([]tableRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		values := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(rec) && h != "" {
				if _, dup := values[h]; !dup {
					values[h] = strings.TrimSpace(rec[j])
				}
			}
		}
		out = append(out, tableRow{row: i + 2, values: values})
	}
	return out, nil
}

func parseOrder(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
