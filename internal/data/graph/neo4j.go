package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/neo4jdb"
)

// Neo4jStore maps node kinds to labels and edge kinds to relationship types.
// Every node carries course_key so courses never share a node.
type Neo4jStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNeo4jStore(ctx context.Context, client *neo4jdb.Client, log *logger.Logger) (*Neo4jStore, error) {
	if client == nil || client.Driver == nil {
		return nil, &perr.ConfigurationError{Scope: perr.ScopeStore, Reason: "neo4j client not configured"}
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Neo4jStore{client: client, log: log.With("store", "Neo4jStore")}
	s.ensureSchema(ctx)
	return s, nil
}

// ensureSchema creates constraints best-effort; restricted users may not be
// allowed to.
func (s *Neo4jStore) ensureSchema(ctx context.Context) {
	session := s.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, kind := range []domain.NodeKind{domain.KindModule, domain.KindTopic, domain.KindSubtopic} {
		stmts := []string{
			fmt.Sprintf(`CREATE CONSTRAINT curriculum_%s_key IF NOT EXISTS FOR (x:%s) REQUIRE (x.course_key, x.id) IS UNIQUE`, normalization.ID(string(kind)), kind),
			fmt.Sprintf(`CREATE INDEX curriculum_%s_course_idx IF NOT EXISTS FOR (x:%s) ON (x.course_key)`, normalization.ID(string(kind)), kind),
		}
		for _, stmt := range stmts {
			res, err := session.Run(ctx, stmt, nil)
			if err != nil {
				s.log.Warn("neo4j schema init failed (continuing)", "error", err)
				continue
			}
			_, _ = res.Consume(ctx)
		}
	}
}

func (s *Neo4jStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if neo4j.IsConnectivityError(err) {
		return perr.Unavailable(op, err)
	}
	return fmt.Errorf("graph: neo4j %s: %w", op, err)
}

func (s *Neo4jStore) Ping(ctx context.Context) error {
	if s.client == nil || s.client.Driver == nil {
		return perr.Unavailable("ping", errClosed)
	}
	if err := s.client.Driver.VerifyConnectivity(ctx); err != nil {
		return perr.Unavailable("ping", err)
	}
	return nil
}

func (s *Neo4jStore) collect(ctx context.Context, op, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if s.client == nil || s.client.Driver == nil {
		return nil, perr.Unavailable(op, errClosed)
	}
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, s.wrap(op, err)
	}
	records, _ := out.([]*neo4j.Record)
	return records, nil
}

func (s *Neo4jStore) Node(ctx context.Context, kind domain.NodeKind, course, id string) (*Node, error) {
	if !kind.Valid() {
		return nil, nil
	}
	records, err := s.collect(ctx, "node",
		fmt.Sprintf(`MATCH (x:%s {course_key: $course_key, id: $id}) RETURN x`, kind),
		map[string]any{"course_key": normalization.CourseKey(course), "id": id},
	)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	n, ok := nodeFromRecord(kind, records[0], "x")
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (s *Neo4jStore) Nodes(ctx context.Context, kind domain.NodeKind, course string) ([]Node, error) {
	if !kind.Valid() {
		return nil, nil
	}
	records, err := s.collect(ctx, "nodes",
		fmt.Sprintf(`MATCH (x:%s {course_key: $course_key}) RETURN x ORDER BY x.id`, kind),
		map[string]any{"course_key": normalization.CourseKey(course)},
	)
	if err != nil {
		return nil, err
	}
	return nodesFromRecords(kind, records, "x"), nil
}

func (s *Neo4jStore) Edges(ctx context.Context, kind domain.EdgeKind, course string) ([]Edge, error) {
	fromKind, toKind, ok := kind.Endpoints()
	if !ok {
		return nil, nil
	}
	records, err := s.collect(ctx, "edges",
		fmt.Sprintf(`MATCH (a:%s {course_key: $course_key})-[:%s]->(b:%s {course_key: $course_key})
RETURN a.id AS from, b.id AS to ORDER BY from, to`, fromKind, kind, toKind),
		map[string]any{"course_key": normalization.CourseKey(course)},
	)
	if err != nil {
		return nil, err
	}
	out := make([]Edge, 0, len(records))
	for _, rec := range records {
		from, _ := recordString(rec, "from")
		to, _ := recordString(rec, "to")
		out = append(out, Edge{Kind: kind, From: from, To: to})
	}
	return out, nil
}

func (s *Neo4jStore) Incoming(ctx context.Context, kind domain.EdgeKind, course, toID string) ([]Node, error) {
	fromKind, toKind, ok := kind.Endpoints()
	if !ok {
		return nil, nil
	}
	records, err := s.collect(ctx, "incoming",
		fmt.Sprintf(`MATCH (a:%s {course_key: $course_key})-[:%s]->(b:%s {course_key: $course_key, id: $id})
RETURN a AS x ORDER BY a.id`, fromKind, kind, toKind),
		map[string]any{"course_key": normalization.CourseKey(course), "id": toID},
	)
	if err != nil {
		return nil, err
	}
	return nodesFromRecords(fromKind, records, "x"), nil
}

func (s *Neo4jStore) Outgoing(ctx context.Context, kind domain.EdgeKind, course, fromID string) ([]Node, error) {
	fromKind, toKind, ok := kind.Endpoints()
	if !ok {
		return nil, nil
	}
	records, err := s.collect(ctx, "outgoing",
		fmt.Sprintf(`MATCH (a:%s {course_key: $course_key, id: $id})-[:%s]->(b:%s {course_key: $course_key})
RETURN b AS x ORDER BY b.id`, fromKind, kind, toKind),
		map[string]any{"course_key": normalization.CourseKey(course), "id": fromID},
	)
	if err != nil {
		return nil, err
	}
	return nodesFromRecords(toKind, records, "x"), nil
}

func (s *Neo4jStore) Courses(ctx context.Context) ([]string, error) {
	records, err := s.collect(ctx, "courses", `
MATCH (x)
WHERE (x:Module OR x:Topic OR x:Subtopic) AND x.course_key IS NOT NULL
WITH x.course_key AS key, head(collect(x.course)) AS course
RETURN course`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		if name, ok := recordString(rec, "course"); ok && name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// WriteBatch runs fn in one managed write transaction. The driver may retry fn
// on transient failures, so fn must not keep state across attempts.
func (s *Neo4jStore) WriteBatch(ctx context.Context, fn func(w Writer) error) error {
	if s.client == nil || s.client.Driver == nil {
		return perr.Unavailable("write", errClosed)
	}
	session := s.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jWriter{tx: tx})
	})
	return s.wrap("write", err)
}

func (s *Neo4jStore) DeleteCourse(ctx context.Context, course string) (int, error) {
	if s.client == nil || s.client.Driver == nil {
		return 0, perr.Unavailable("delete", errClosed)
	}
	session := s.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (x {course_key: $course_key})
WHERE x:Module OR x:Topic OR x:Subtopic
DETACH DELETE x`, map[string]any{"course_key": normalization.CourseKey(course)})
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().NodesDeleted(), nil
	})
	if err != nil {
		return 0, s.wrap("delete", err)
	}
	n, _ := out.(int)
	return n, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

type neo4jWriter struct {
	tx neo4j.ManagedTransaction
}

func (w *neo4jWriter) UpsertNodes(ctx context.Context, course string, nodes []Node) (int, error) {
	byKind := map[domain.NodeKind][]map[string]any{}
	var kinds []domain.NodeKind
	for _, n := range nodes {
		if n.ID == "" || !n.Kind.Valid() {
			continue
		}
		if _, ok := byKind[n.Kind]; !ok {
			kinds = append(kinds, n.Kind)
		}
		byKind[n.Kind] = append(byKind[n.Kind], nodeProps(course, n))
	}

	created := 0
	for _, kind := range kinds {
		res, err := w.tx.Run(ctx, fmt.Sprintf(`
UNWIND $nodes AS n
MERGE (x:%s {course_key: $course_key, id: n.id})
SET x += n
`, kind), map[string]any{
			"course_key": normalization.CourseKey(course),
			"nodes":      byKind[kind],
		})
		if err != nil {
			return created, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return created, err
		}
		created += summary.Counters().NodesCreated()
	}
	return created, nil
}

func (w *neo4jWriter) UpsertEdges(ctx context.Context, course string, kind domain.EdgeKind, edges []Edge) (EdgeWrite, error) {
	var out EdgeWrite
	fromKind, toKind, ok := kind.Endpoints()
	if !ok || len(edges) == 0 {
		return out, nil
	}
	rels := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rels = append(rels, map[string]any{"from": e.From, "to": e.To})
	}
	res, err := w.tx.Run(ctx, fmt.Sprintf(`
UNWIND $rels AS r
MATCH (a:%s {course_key: $course_key, id: r.from})
MATCH (b:%s {course_key: $course_key, id: r.to})
MERGE (a)-[:%s]->(b)
RETURN count(*) AS written
`, fromKind, toKind, kind), map[string]any{
		"course_key": normalization.CourseKey(course),
		"rels":       rels,
	})
	if err != nil {
		return out, err
	}
	rec, err := res.Single(ctx)
	if err != nil {
		return out, err
	}
	if v, ok := rec.Get("written"); ok {
		if n, ok := v.(int64); ok {
			out.Written = int(n)
		}
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return out, err
	}
	out.Created = summary.Counters().RelationshipsCreated()
	return out, nil
}

func (w *neo4jWriter) ReplaceEdges(ctx context.Context, course string, kind domain.EdgeKind, edges []Edge) (EdgeWrite, error) {
	out, err := w.UpsertEdges(ctx, course, kind, edges)
	if err != nil {
		return out, err
	}
	fromKind, toKind, ok := kind.Endpoints()
	if !ok {
		return out, nil
	}
	keep := make([]any, 0, len(edges))
	for _, e := range edges {
		keep = append(keep, []any{e.From, e.To})
	}
	res, err := w.tx.Run(ctx, fmt.Sprintf(`
MATCH (a:%s {course_key: $course_key})-[r:%s]->(b:%s {course_key: $course_key})
WHERE NOT [a.id, b.id] IN $keep
DELETE r
`, fromKind, kind, toKind), map[string]any{
		"course_key": normalization.CourseKey(course),
		"keep":       keep,
	})
	if err != nil {
		return out, err
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return out, err
	}
	out.Removed = summary.Counters().RelationshipsDeleted()
	return out, nil
}

func nodeProps(course string, n Node) map[string]any {
	props := map[string]any{
		"id":     n.ID,
		"course": course,
		"name":   n.Name,
	}
	switch n.Kind {
	case domain.KindModule:
		props["order"] = int64(n.Order)
	case domain.KindTopic:
		props["module_id"] = n.ModuleID
		if n.LectureNumber != nil {
			props["lecture_number"] = int64(*n.LectureNumber)
		} else {
			props["lecture_number"] = nil
		}
	case domain.KindSubtopic:
		props["topic_id"] = n.TopicID
	}
	return props
}

func nodesFromRecords(kind domain.NodeKind, records []*neo4j.Record, key string) []Node {
	out := make([]Node, 0, len(records))
	for _, rec := range records {
		if n, ok := nodeFromRecord(kind, rec, key); ok {
			out = append(out, n)
		}
	}
	return out
}

func nodeFromRecord(kind domain.NodeKind, rec *neo4j.Record, key string) (Node, bool) {
	v, ok := rec.Get(key)
	if !ok {
		return Node{}, false
	}
	raw, ok := v.(neo4j.Node)
	if !ok {
		return Node{}, false
	}
	p := raw.Props
	n := Node{
		Kind:     kind,
		ID:       propString(p, "id"),
		Course:   propString(p, "course"),
		Name:     propString(p, "name"),
		ModuleID: propString(p, "module_id"),
		TopicID:  propString(p, "topic_id"),
	}
	if v, ok := p["order"].(int64); ok {
		n.Order = int(v)
	}
	if v, ok := p["lecture_number"].(int64); ok {
		ln := int(v)
		n.LectureNumber = &ln
	}
	return n, true
}

func propString(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func recordString(rec *neo4j.Record, key string) (string, bool) {
	v, ok := rec.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
