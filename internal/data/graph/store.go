package graph

import (
	"context"
	"sort"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
)

// Node is the storage shape shared by Module, Topic and Subtopic. Fields that
// do not apply to a kind stay zero.
type Node struct {
	Kind          domain.NodeKind
	ID            string
	Course        string
	Name          string
	Order         int
	ModuleID      string
	LectureNumber *int
	TopicID       string
}

type Edge struct {
	Kind domain.EdgeKind
	From string
	To   string
}

// EdgeWrite reports an edge upsert. Written counts edges whose endpoints both
// exist (new or already present); Created counts only new ones. Removed is
// only set by ReplaceEdges.
type EdgeWrite struct {
	Written int
	Created int
	Removed int
}

type Reader interface {
	Ping(ctx context.Context) error
	// Node returns nil, nil when the node does not exist.
	Node(ctx context.Context, kind domain.NodeKind, course, id string) (*Node, error)
	// Nodes returns every node of kind in course, ordered by id.
	Nodes(ctx context.Context, kind domain.NodeKind, course string) ([]Node, error)
	// Edges returns every edge of kind in course, ordered by (from, to).
	Edges(ctx context.Context, kind domain.EdgeKind, course string) ([]Edge, error)
	// Incoming returns the source nodes of kind edges pointing at toID.
	Incoming(ctx context.Context, kind domain.EdgeKind, course, toID string) ([]Node, error)
	// Outgoing returns the target nodes of kind edges leaving fromID.
	Outgoing(ctx context.Context, kind domain.EdgeKind, course, fromID string) ([]Node, error)
	// Courses lists the display names of every stored course.
	Courses(ctx context.Context) ([]string, error)
}

type Writer interface {
	// UpsertNodes merges nodes on (kind, course, id) and returns how many were new.
	UpsertNodes(ctx context.Context, course string, nodes []Node) (int, error)
	// UpsertEdges merges edges on (kind, course, from, to). Edges with a missing
	// endpoint are skipped.
	UpsertEdges(ctx context.Context, course string, kind domain.EdgeKind, edges []Edge) (EdgeWrite, error)
	// ReplaceEdges upserts edges and then removes every other kind edge of
	// course, so the stored set matches edges exactly.
	ReplaceEdges(ctx context.Context, course string, kind domain.EdgeKind, edges []Edge) (EdgeWrite, error)
}

type Store interface {
	Reader
	// WriteBatch runs fn atomically: either every write in fn lands or none does.
	WriteBatch(ctx context.Context, fn func(w Writer) error) error
	// DeleteCourse removes every node and edge of course and returns the node count.
	DeleteCourse(ctx context.Context, course string) (int, error)
	Close(ctx context.Context) error
}

func edgeSet(kind domain.EdgeKind, edges []Edge) map[Edge]struct{} {
	out := make(map[Edge]struct{}, len(edges))
	for _, e := range edges {
		e.Kind = kind
		out[e] = struct{}{}
	}
	return out
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
}
