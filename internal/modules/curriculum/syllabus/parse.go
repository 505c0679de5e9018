package syllabus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/resources"
	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

var firstIntRe = regexp.MustCompile(`\d+`)

// SkippedRow records a non-fatal row rejection.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Syllabus is the normalized result of parsing one unified table.
type Syllabus struct {
	Encoding  string
	Delimiter rune
	Columns   Columns
	// Modules in first-appearance order; Order is 1-based.
	Modules []domain.Module
	Entries []domain.Entry
	Skipped []SkippedRow
	// Inferred is set when lecture-order prerequisite inference ran.
	Inferred bool
}

type Parser struct {
	log       *logger.Logger
	encodings []Encoding
}

type ParserOption func(*Parser)

// WithEncodings overrides the encoding trial order.
func WithEncodings(encs ...Encoding) ParserOption {
	return func(p *Parser) { p.encodings = encs }
}

func NewParser(log *logger.Logger, opts ...ParserOption) *Parser {
	if log == nil {
		log = logger.Nop()
	}
	p := &Parser{log: log.With("service", "SyllabusParser"), encodings: DefaultEncodings}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) ParseFile(path string) (*Syllabus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("syllabus: read %s: %w", path, err)
	}
	s, err := p.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("syllabus: %s: %w", path, err)
	}
	return s, nil
}

func (p *Parser) Parse(r io.Reader) (*Syllabus, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("syllabus: read: %w", err)
	}
	return p.ParseBytes(raw)
}

func (p *Parser) ParseBytes(raw []byte) (*Syllabus, error) {
	text, encName, err := Decode(raw, p.encodings)
	if err != nil {
		return nil, err
	}
	p.log.Debug("decoded syllabus", "encoding", encName, "bytes", len(raw))

	delim := sniffDelimiter(text)
	records, err := readRecords(text, delim)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || isBlankRecord(records[0]) {
		return nil, &perr.ConfigurationError{Scope: perr.ScopeInput, Reason: "table has no headers"}
	}
	headers := records[0]
	cols, err := DetectColumns(headers)
	if err != nil {
		return nil, err
	}
	p.log.Info("column mapping",
		"module", cols.Module.Header,
		"order", cols.Order.Header,
		"topic", cols.Topic.Header,
		"subtopics", cols.Subtopics.Header,
		"resources", cols.Resources.Header,
	)

	s := &Syllabus{Encoding: encName, Delimiter: delim, Columns: cols}
	moduleOrder := map[string]int{}

	for i, rec := range records[1:] {
		row := i + 2
		if isBlankRecord(rec) {
			continue
		}

		moduleName := fmt.Sprintf("Module %d", row)
		if cols.Module.Found() {
			moduleName = cell(rec, cols.Module)
		}
		if moduleName != "" {
			if _, ok := moduleOrder[moduleName]; !ok {
				order := len(moduleOrder) + 1
				moduleOrder[moduleName] = order
				s.Modules = append(s.Modules, domain.Module{
					ID:    normalization.ID(moduleName),
					Name:  moduleName,
					Order: order,
				})
			}
		}

		topic := cell(rec, cols.Topic)
		if topic == "" {
			p.log.Warn("row skipped", "row", row, "reason", "missing topic")
			s.Skipped = append(s.Skipped, SkippedRow{Row: row, Reason: "missing topic"})
			continue
		}

		entry := domain.Entry{
			Row:         row,
			Module:      moduleName,
			ModuleOrder: moduleOrder[moduleName],
			Topic:       topic,
			Subtopics:   []string{},
			Resources:   []domain.ResourceReference{},
		}
		if cols.Order.Found() {
			entry.LectureNumber = FirstInt(cell(rec, cols.Order))
		}
		if cols.Subtopics.Found() {
			entry.Subtopics = SplitList(cell(rec, cols.Subtopics))
		}
		if cols.Resources.Found() {
			if raw := cell(rec, cols.Resources); raw != "" {
				refs := resources.ParseReferences(raw)
				if len(refs) == 0 {
					p.log.Warn("resource tokens unmatched", "row", row, "resources", raw)
				}
				if refs != nil {
					entry.Resources = refs
				}
			}
		}
		s.Entries = append(s.Entries, entry)
	}

	if shouldInfer(cols, s.Entries) {
		s.Inferred = inferPrerequisites(s.Entries, cols.Module.Found())
		p.log.Info("inferred prerequisites from lecture order", "count", countInferred(s.Entries))
	}

	p.log.Info("parsed syllabus",
		"modules", len(s.Modules),
		"entries", len(s.Entries),
		"skipped", len(s.Skipped),
	)
	return s, nil
}

// FirstInt extracts the first embedded integer ("Lecture 3" -> 3, "03" -> 3).
func FirstInt(s string) *int {
	m := firstIntRe.FindString(s)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

// SplitList splits a comma-separated cell, trimming items and dropping empties.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cell(rec []string, col Column) string {
	if !col.Found() || col.Index >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col.Index])
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func readRecords(text string, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, fmt.Errorf("%w: malformed table at line %d: %v", perr.ErrInvalidArgument, pe.Line, pe.Err)
		}
		return nil, err
	}
	return records, nil
}

// sniffDelimiter picks the most frequent of , ; and tab on the header line.
func sniffDelimiter(text string) rune {
	header := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		header = text[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
