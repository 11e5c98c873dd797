package outline

import (
	"github.com/pkg/errors"
)

var (
	// errors
	ErrNodeNotFound = errors.New("outline node not found")
	ErrNotContainer = errors.New("lessons cannot contain other nodes")
	ErrCycle        = errors.New("would create cycle")
	ErrDuplicateID  = errors.New("duplicate outline node id")
	ErrUnknownKind  = errors.New("unknown outline node type")
	ErrOrderGap     = errors.New("outline orders are not dense")
)

// Tree is an ordered list of sibling nodes. The root list of a program is a Tree,
// so is the child list of every container.
type Tree []Node

// Location is where Find found a node.
type Location struct {
	Node   Node
	Parent Container // nil at the root
	Index  int       // position among its siblings
	Depth  int       // 0 at the root
}

// Find does a depth-first search in document order.
func (t Tree) Find(id string) (Location, bool) {
	if id == "" {
		return Location{}, false
	}
	return find(t, nil, id, 0)
}

func find(nodes Tree, parent Container, id string, depth int) (Location, bool) {
	for i, n := range nodes {
		if n.Head().ID == id {
			return Location{Node: n, Parent: parent, Index: i, Depth: depth}, true
		}
		if c, ok := n.(Container); ok {
			if loc, ok := find(*c.Nodes(), c, id, depth+1); ok {
				return loc, true
			}
		}
	}
	return Location{}, false
}

// MaxOrder returns the highest order among t, 0 when t is empty.
func (t Tree) MaxOrder() int {
	var max int
	for _, n := range t {
		if o := n.Head().Order; o > max {
			max = o
		}
	}
	return max
}

// Renumber assigns dense 1-based orders following the slice order.
func (t Tree) Renumber() {
	for i, n := range t {
		n.Head().Order = i + 1
	}
}

// Walk visits every node depth-first in document order.
func (t Tree) Walk(fn func(n Node, depth int)) {
	walk(t, 0, fn)
}

func walk(nodes Tree, depth int, fn func(n Node, depth int)) {
	for _, n := range nodes {
		fn(n, depth)
		if c, ok := n.(Container); ok {
			walk(*c.Nodes(), depth+1, fn)
		}
	}
}

// LessonIDs flattens t into the lesson ids of its lesson references, depth-first.
// It is the canonical lesson sequence of a program.
func (t Tree) LessonIDs() []string {
	ids := make([]string, 0)
	t.Walk(func(n Node, _ int) {
		if ref, ok := n.(*LessonRef); ok {
			ids = append(ids, ref.LessonID)
		}
	})
	return ids
}

// RefsTo returns the references to lessonID.
func (t Tree) RefsTo(lessonID string) []*LessonRef {
	var refs []*LessonRef
	t.Walk(func(n Node, _ int) {
		if ref, ok := n.(*LessonRef); ok && ref.LessonID == lessonID {
			refs = append(refs, ref)
		}
	})
	return refs
}

// Len returns the number of nodes of t, descendants included.
func (t Tree) Len() int {
	var count int
	t.Walk(func(Node, int) { count++ })
	return count
}

// Clone returns a deep copy of t.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	c := make(Tree, len(t))
	for i, n := range t {
		c[i] = n.clone()
	}
	return c
}

// Prune returns a deep copy of t without the lesson references keep rejects.
// Sibling orders of the copy are renumbered.
func (t Tree) Prune(keep func(ref *LessonRef) bool) Tree {
	return prune(t.Clone(), keep)
}

func prune(nodes Tree, keep func(ref *LessonRef) bool) Tree {
	kept := make(Tree, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case *LessonRef:
			if !keep(n) {
				continue
			}
		case Container:
			*n.Nodes() = prune(*n.Nodes(), keep)
		}
		kept = append(kept, n)
	}
	kept.Renumber()
	return kept
}

// CloneWithNewIDs returns a deep copy of t where every node gets a new id and lesson
// references point to lessonIDs[old lesson id] when present.
func (t Tree) CloneWithNewIDs(lessonIDs map[string]string) Tree {
	c := t.Clone()
	c.Walk(func(n Node, _ int) {
		n.Head().ID = newID()
		if ref, ok := n.(*LessonRef); ok {
			if id, ok := lessonIDs[ref.LessonID]; ok {
				ref.LessonID = id
			}
		}
	})
	return c
}

// Validate checks that ids are set and unique, lesson references point somewhere and
// sibling orders are dense.
func (t Tree) Validate() error {
	seen := make(map[string]struct{}, t.Len())
	return validate(t, seen)
}

func validate(nodes Tree, seen map[string]struct{}) error {
	for i, n := range nodes {
		h := n.Head()
		if h.ID == "" {
			return errors.Wrap(ErrNodeNotFound, "node without id")
		}
		if _, ok := seen[h.ID]; ok {
			return errors.Wrapf(ErrDuplicateID, "node %s", h.ID)
		}
		seen[h.ID] = struct{}{}
		if h.Order != i+1 {
			return errors.Wrapf(ErrOrderGap, "node %s has order %d at position %d", h.ID, h.Order, i+1)
		}
		switch n := n.(type) {
		case *LessonRef:
			if n.LessonID == "" {
				return errors.Errorf("lesson node %s has no lesson", h.ID)
			}
		case Container:
			if err := validate(*n.Nodes(), seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// Insert appends n to the children of parentID, or to the root when parentID is empty,
// with an order one above its last sibling.
func (t *Tree) Insert(parentID string, n Node) error {
	if _, exists := t.Find(n.Head().ID); exists {
		return errors.Wrapf(ErrDuplicateID, "node %s", n.Head().ID)
	}
	list, err := t.childrenOf(parentID)
	if err != nil {
		return err
	}
	n.Head().Order = list.MaxOrder() + 1
	*list = append(*list, n)
	return nil
}

// Move detaches the node and reinserts it under parentID (root when empty) at index,
// clamped to the bounds of the destination list. Both the source and the destination
// lists are renumbered. t is left untouched when an error is returned.
func (t *Tree) Move(id, parentID string, index int) error {
	loc, ok := t.Find(id)
	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "node %s", id)
	}
	if parentID != "" {
		if parentID == id {
			return errors.Wrapf(ErrCycle, "moving %s into itself", id)
		}
		if c, ok := loc.Node.(Container); ok {
			if _, inside := c.Nodes().Find(parentID); inside {
				return errors.Wrapf(ErrCycle, "moving %s into its descendant %s", id, parentID)
			}
		}
	}
	dest, err := t.childrenOf(parentID)
	if err != nil {
		return err
	}

	src := t.siblingsOf(loc)
	src.removeAt(loc.Index)
	src.Renumber()
	dest.insertAt(index, loc.Node)
	dest.Renumber()
	return nil
}

// Rename sets the title of the node and returns it.
func (t *Tree) Rename(id, title string) (Node, error) {
	loc, ok := t.Find(id)
	if !ok {
		return nil, errors.Wrapf(ErrNodeNotFound, "node %s", id)
	}
	loc.Node.Head().Title = title
	return loc.Node, nil
}

// Remove detaches the node with its whole subtree, renumbers its former siblings and
// returns the detached node.
func (t *Tree) Remove(id string) (Node, error) {
	loc, ok := t.Find(id)
	if !ok {
		return nil, errors.Wrapf(ErrNodeNotFound, "node %s", id)
	}
	src := t.siblingsOf(loc)
	src.removeAt(loc.Index)
	src.Renumber()
	return loc.Node, nil
}

func (t *Tree) childrenOf(parentID string) (*Tree, error) {
	if parentID == "" {
		return t, nil
	}
	loc, ok := t.Find(parentID)
	if !ok {
		return nil, errors.Wrapf(ErrNodeNotFound, "parent %s", parentID)
	}
	c, ok := loc.Node.(Container)
	if !ok {
		return nil, errors.Wrapf(ErrNotContainer, "parent %s", parentID)
	}
	return c.Nodes(), nil
}

func (t *Tree) siblingsOf(loc Location) *Tree {
	if loc.Parent == nil {
		return t
	}
	return loc.Parent.Nodes()
}

func (t *Tree) removeAt(i int) {
	nodes := *t
	*t = append(nodes[:i:i], nodes[i+1:]...)
}

func (t *Tree) insertAt(i int, n Node) {
	nodes := *t
	if i < 0 {
		i = 0
	}
	if i > len(nodes) {
		i = len(nodes)
	}
	res := make(Tree, 0, len(nodes)+1)
	res = append(res, nodes[:i]...)
	res = append(res, n)
	res = append(res, nodes[i:]...)
	*t = res
}
