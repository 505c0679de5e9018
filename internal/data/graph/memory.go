package graph

import (
	"context"
	"errors"
	"sort"
	"sync"

	domain "github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/normalization"
	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
)

var errClosed = errors.New("store closed")

type memCourse struct {
	name  string
	nodes map[domain.NodeKind]map[string]Node
	edges map[domain.EdgeKind]map[Edge]struct{}
}

func newMemCourse(name string) *memCourse {
	return &memCourse{
		name:  name,
		nodes: map[domain.NodeKind]map[string]Node{},
		edges: map[domain.EdgeKind]map[Edge]struct{}{},
	}
}

func (c *memCourse) clone() *memCourse {
	out := newMemCourse(c.name)
	for kind, byID := range c.nodes {
		m := make(map[string]Node, len(byID))
		for id, n := range byID {
			m[id] = n
		}
		out.nodes[kind] = m
	}
	for kind, set := range c.edges {
		m := make(map[Edge]struct{}, len(set))
		for e := range set {
			m[e] = struct{}{}
		}
		out.edges[kind] = m
	}
	return out
}

func (c *memCourse) size() int {
	n := 0
	for _, byID := range c.nodes {
		n += len(byID)
	}
	return n
}

// MemoryStore keeps courses in process memory. It backs tests and the
// GRAPH_STORE=memory mode.
type MemoryStore struct {
	mu      sync.RWMutex
	courses map[string]*memCourse
	closed  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{courses: map[string]*memCourse{}}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return perr.Unavailable("ping", errClosed)
	}
	return ctx.Err()
}

func (s *MemoryStore) read(op string, fn func()) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return perr.Unavailable(op, errClosed)
	}
	fn()
	return nil
}

func (s *MemoryStore) Node(ctx context.Context, kind domain.NodeKind, course, id string) (*Node, error) {
	var out *Node
	err := s.read("node", func() {
		c := s.courses[normalization.CourseKey(course)]
		if c == nil {
			return
		}
		if n, ok := c.nodes[kind][id]; ok {
			out = &n
		}
	})
	return out, err
}

func (s *MemoryStore) Nodes(ctx context.Context, kind domain.NodeKind, course string) ([]Node, error) {
	var out []Node
	err := s.read("nodes", func() {
		c := s.courses[normalization.CourseKey(course)]
		if c == nil {
			return
		}
		for _, n := range c.nodes[kind] {
			out = append(out, n)
		}
	})
	sortNodes(out)
	return out, err
}

func (s *MemoryStore) Edges(ctx context.Context, kind domain.EdgeKind, course string) ([]Edge, error) {
	var out []Edge
	err := s.read("edges", func() {
		c := s.courses[normalization.CourseKey(course)]
		if c == nil {
			return
		}
		for e := range c.edges[kind] {
			out = append(out, e)
		}
	})
	sortEdges(out)
	return out, err
}

func (s *MemoryStore) Incoming(ctx context.Context, kind domain.EdgeKind, course, toID string) ([]Node, error) {
	return s.neighbors("incoming", kind, course, toID, true)
}

func (s *MemoryStore) Outgoing(ctx context.Context, kind domain.EdgeKind, course, fromID string) ([]Node, error) {
	return s.neighbors("outgoing", kind, course, fromID, false)
}

func (s *MemoryStore) neighbors(op string, kind domain.EdgeKind, course, id string, incoming bool) ([]Node, error) {
	fromKind, toKind, ok := kind.Endpoints()
	if !ok {
		return nil, nil
	}
	var out []Node
	err := s.read(op, func() {
		c := s.courses[normalization.CourseKey(course)]
		if c == nil {
			return
		}
		for e := range c.edges[kind] {
			switch {
			case incoming && e.To == id:
				if n, ok := c.nodes[fromKind][e.From]; ok {
					out = append(out, n)
				}
			case !incoming && e.From == id:
				if n, ok := c.nodes[toKind][e.To]; ok {
					out = append(out, n)
				}
			}
		}
	})
	sortNodes(out)
	return out, err
}

func (s *MemoryStore) Courses(ctx context.Context) ([]string, error) {
	var out []string
	err := s.read("courses", func() {
		for _, c := range s.courses {
			if c.size() > 0 {
				out = append(out, c.name)
			}
		}
	})
	sort.Strings(out)
	return out, err
}

// WriteBatch stages writes on copies of the touched courses and swaps them in
// only when fn succeeds.
func (s *MemoryStore) WriteBatch(ctx context.Context, fn func(w Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return perr.Unavailable("write", errClosed)
	}
	w := &memWriter{store: s, staged: map[string]*memCourse{}}
	if err := fn(w); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for key, c := range w.staged {
		s.courses[key] = c
	}
	return nil
}

func (s *MemoryStore) DeleteCourse(ctx context.Context, course string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, perr.Unavailable("delete", errClosed)
	}
	key := normalization.CourseKey(course)
	c := s.courses[key]
	if c == nil {
		return 0, nil
	}
	delete(s.courses, key)
	return c.size(), nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memWriter struct {
	store  *MemoryStore
	staged map[string]*memCourse
}

func (w *memWriter) course(name string) *memCourse {
	key := normalization.CourseKey(name)
	if c, ok := w.staged[key]; ok {
		c.name = name
		return c
	}
	var c *memCourse
	if committed := w.store.courses[key]; committed != nil {
		c = committed.clone()
		c.name = name
	} else {
		c = newMemCourse(name)
	}
	w.staged[key] = c
	return c
}

func (w *memWriter) UpsertNodes(ctx context.Context, course string, nodes []Node) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c := w.course(course)
	created := 0
	for _, n := range nodes {
		if n.ID == "" || !n.Kind.Valid() {
			continue
		}
		n.Course = course
		byID := c.nodes[n.Kind]
		if byID == nil {
			byID = map[string]Node{}
			c.nodes[n.Kind] = byID
		}
		if _, ok := byID[n.ID]; !ok {
			created++
		}
		byID[n.ID] = n
	}
	return created, nil
}

func (w *memWriter) UpsertEdges(ctx context.Context, course string, kind domain.EdgeKind, edges []Edge) (EdgeWrite, error) {
	var res EdgeWrite
	if err := ctx.Err(); err != nil {
		return res, err
	}
	fromKind, toKind, ok := kind.Endpoints()
	if !ok {
		return res, nil
	}
	c := w.course(course)
	set := c.edges[kind]
	if set == nil {
		set = map[Edge]struct{}{}
		c.edges[kind] = set
	}
	for _, e := range edges {
		if _, ok := c.nodes[fromKind][e.From]; !ok {
			continue
		}
		if _, ok := c.nodes[toKind][e.To]; !ok {
			continue
		}
		e.Kind = kind
		res.Written++
		if _, exists := set[e]; !exists {
			set[e] = struct{}{}
			res.Created++
		}
	}
	return res, nil
}

func (w *memWriter) ReplaceEdges(ctx context.Context, course string, kind domain.EdgeKind, edges []Edge) (EdgeWrite, error) {
	res, err := w.UpsertEdges(ctx, course, kind, edges)
	if err != nil {
		return res, err
	}
	keep := edgeSet(kind, edges)
	set := w.course(course).edges[kind]
	for e := range set {
		if _, ok := keep[e]; !ok {
			delete(set, e)
			res.Removed++
		}
	}
	return res, nil
}
