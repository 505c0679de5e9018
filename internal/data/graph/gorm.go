package graph

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type NodeRow struct {
	Kind          string `gorm:"primaryKey;size:16"`
	CourseKey     string `gorm:"primaryKey;size:255;index"`
	ID            string `gorm:"primaryKey;size:255"`
	Course        string `gorm:"size:255"`
	Name          string
	SortOrder     int
	ModuleID      string `gorm:"size:255"`
	LectureNumber *int
	TopicID       string `gorm:"size:255"`
}

func (NodeRow) TableName() string { return "curriculum_nodes" }

type EdgeRow struct {
	Kind      string `gorm:"primaryKey;size:32"`
	CourseKey string `gorm:"primaryKey;size:255;index:idx_curriculum_edges_to,priority:1"`
	FromID    string `gorm:"primaryKey;size:255"`
	ToID      string `gorm:"primaryKey;size:255;index:idx_curriculum_edges_to,priority:2"`
}

func (EdgeRow) TableName() string { return "curriculum_edges" }

// GormStore keeps the graph as two tables on Postgres or SQLite.
type GormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGormStore(db *gorm.DB, log *logger.Logger) (*GormStore, error) {
	if db == nil {
		return nil, &perr.ConfigurationError{Scope: perr.ScopeStore, Reason: "sql database not configured"}
	}
	if log == nil {
		log = logger.Nop()
	}
	if err := db.AutoMigrate(&NodeRow{}, &EdgeRow{}); err != nil {
		return nil, fmt.Errorf("graph: migrate: %w", err)
	}
	return &GormStore{db: db, log: log.With("store", "GormStore")}, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return perr.Unavailable("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return perr.Unavailable("ping", err)
	}
	return nil
}

func (s *GormStore) Node(ctx context.Context, kind domain.NodeKind, course, id string) (*Node, error) {
	var rows []NodeRow
	err := s.db.WithContext(ctx).
		Where("kind = ? AND course_key = ? AND id = ?", string(kind), normalization.CourseKey(course), id).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("graph: node: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	n := rows[0].node()
	return &n, nil
}

func (s *GormStore) Nodes(ctx context.Context, kind domain.NodeKind, course string) ([]Node, error) {
	var rows []NodeRow
	err := s.db.WithContext(ctx).
		Where("kind = ? AND course_key = ?", string(kind), normalization.CourseKey(course)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("graph: nodes: %w", err)
	}
	return toNodes(rows), nil
}

func (s *GormStore) Edges(ctx context.Context, kind domain.EdgeKind, course string) ([]Edge, error) {
	var rows []EdgeRow
	err := s.db.WithContext(ctx).
		Where("kind = ? AND course_key = ?", string(kind), normalization.CourseKey(course)).
		Order("from_id").Order("to_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("graph: edges: %w", err)
	}
	out := make([]Edge, 0, len(rows))
	for _, r := range rows {
		out = append(out, Edge{Kind: kind, From: r.FromID, To: r.ToID})
	}
	return out, nil
}

func (s *GormStore) Incoming(ctx context.Context, kind domain.EdgeKind, course, toID string) ([]Node, error) {
	fromKind, _, ok := kind.Endpoints()
	if !ok {
		return nil, nil
	}
	ck := normalization.CourseKey(course)
	sub := s.db.Model(&EdgeRow{}).Select("from_id").
		Where("kind = ? AND course_key = ? AND to_id = ?", string(kind), ck, toID)
	var rows []NodeRow
	err := s.db.WithContext(ctx).
		Where("kind = ? AND course_key = ? AND id IN (?)", string(fromKind), ck, sub).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("graph: incoming: %w", err)
	}
	return toNodes(rows), nil
}

func (s *GormStore) Outgoing(ctx context.Context, kind domain.EdgeKind, course, fromID string) ([]Node, error) {
	_, toKind, ok := kind.Endpoints()
	if !ok {
		return nil, nil
	}
	ck := normalization.CourseKey(course)
	sub := s.db.Model(&EdgeRow{}).Select("to_id").
		Where("kind = ? AND course_key = ? AND from_id = ?", string(kind), ck, fromID)
	var rows []NodeRow
	err := s.db.WithContext(ctx).
		Where("kind = ? AND course_key = ? AND id IN (?)", string(toKind), ck, sub).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("graph: outgoing: %w", err)
	}
	return toNodes(rows), nil
}

func (s *GormStore) Courses(ctx context.Context) ([]string, error) {
	var rows []struct {
		CourseKey string
		Course    string
	}
	err := s.db.WithContext(ctx).Model(&NodeRow{}).
		Select("course_key, MAX(course) AS course").
		Group("course_key").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("graph: courses: %w", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Course)
	}
	sort.Strings(out)
	return out, nil
}

func (s *GormStore) WriteBatch(ctx context.Context, fn func(w Writer) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormWriter{tx: tx})
	})
}

func (s *GormStore) DeleteCourse(ctx context.Context, course string) (int, error) {
	ck := normalization.CourseKey(course)
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_key = ?", ck).Delete(&EdgeRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("course_key = ?", ck).Delete(&NodeRow{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("graph: delete course: %w", err)
	}
	return int(deleted), nil
}

func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormWriter struct {
	tx *gorm.DB
}

func (w *gormWriter) UpsertNodes(ctx context.Context, course string, nodes []Node) (int, error) {
	ck := normalization.CourseKey(course)
	byKind := map[domain.NodeKind]map[string]NodeRow{}
	var kinds []domain.NodeKind
	for _, n := range nodes {
		if n.ID == "" || !n.Kind.Valid() {
			continue
		}
		if _, ok := byKind[n.Kind]; !ok {
			byKind[n.Kind] = map[string]NodeRow{}
			kinds = append(kinds, n.Kind)
		}
		byKind[n.Kind][n.ID] = NodeRow{
			Kind:          string(n.Kind),
			CourseKey:     ck,
			ID:            n.ID,
			Course:        course,
			Name:          n.Name,
			SortOrder:     n.Order,
			ModuleID:      n.ModuleID,
			LectureNumber: n.LectureNumber,
			TopicID:       n.TopicID,
		}
	}

	tx := w.tx.WithContext(ctx)
	created := 0
	for _, kind := range kinds {
		rows := make([]NodeRow, 0, len(byKind[kind]))
		ids := make([]string, 0, len(byKind[kind]))
		for id, r := range byKind[kind] {
			rows = append(rows, r)
			ids = append(ids, id)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

		var existing []string
		if err := tx.Model(&NodeRow{}).
			Where("kind = ? AND course_key = ? AND id IN ?", string(kind), ck, ids).
			Pluck("id", &existing).Error; err != nil {
			return created, err
		}
		created += len(rows) - len(existing)

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "course_key"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"course", "name", "sort_order", "module_id", "lecture_number", "topic_id"}),
		}).CreateInBatches(&rows, 500).Error
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func (w *gormWriter) UpsertEdges(ctx context.Context, course string, kind domain.EdgeKind, edges []Edge) (EdgeWrite, error) {
	var out EdgeWrite
	fromKind, toKind, ok := kind.Endpoints()
	if !ok || len(edges) == 0 {
		return out, nil
	}
	ck := normalization.CourseKey(course)
	tx := w.tx.WithContext(ctx)

	fromIDs, err := w.ids(tx, fromKind, ck)
	if err != nil {
		return out, err
	}
	toIDs := fromIDs
	if toKind != fromKind {
		if toIDs, err = w.ids(tx, toKind, ck); err != nil {
			return out, err
		}
	}

	seen := map[Edge]bool{}
	rows := make([]EdgeRow, 0, len(edges))
	for _, e := range edges {
		e.Kind = kind
		if seen[e] || !fromIDs[e.From] || !toIDs[e.To] {
			continue
		}
		seen[e] = true
		rows = append(rows, EdgeRow{Kind: string(kind), CourseKey: ck, FromID: e.From, ToID: e.To})
	}
	out.Written = len(rows)
	if len(rows) == 0 {
		return out, nil
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return out, res.Error
	}
	out.Created = int(res.RowsAffected)
	return out, nil
}

func (w *gormWriter) ReplaceEdges(ctx context.Context, course string, kind domain.EdgeKind, edges []Edge) (EdgeWrite, error) {
	out, err := w.UpsertEdges(ctx, course, kind, edges)
	if err != nil {
		return out, err
	}
	ck := normalization.CourseKey(course)
	tx := w.tx.WithContext(ctx)

	var rows []EdgeRow
	if err := tx.Where("kind = ? AND course_key = ?", string(kind), ck).Find(&rows).Error; err != nil {
		return out, err
	}
	keep := edgeSet(kind, edges)
	for _, r := range rows {
		if _, ok := keep[Edge{Kind: kind, From: r.FromID, To: r.ToID}]; ok {
			continue
		}
		res := tx.Where("kind = ? AND course_key = ? AND from_id = ? AND to_id = ?", r.Kind, ck, r.FromID, r.ToID).
			Delete(&EdgeRow{})
		if res.Error != nil {
			return out, res.Error
		}
		out.Removed += int(res.RowsAffected)
	}
	return out, nil
}

func (w *gormWriter) ids(tx *gorm.DB, kind domain.NodeKind, courseKey string) (map[string]bool, error) {
	var ids []string
	if err := tx.Model(&NodeRow{}).
		Where("kind = ? AND course_key = ?", string(kind), courseKey).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r NodeRow) node() Node {
	return Node{
		Kind:          domain.NodeKind(r.Kind),
		ID:            r.ID,
		Course:        r.Course,
		Name:          r.Name,
		Order:         r.SortOrder,
		ModuleID:      r.ModuleID,
		LectureNumber: r.LectureNumber,
		TopicID:       r.TopicID,
	}
}

func toNodes(rows []NodeRow) []Node {
	out := make([]Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.node())
	}
	return out
}
