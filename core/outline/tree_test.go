package outline

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sec(id string, children ...Node) *Section {
	s := &Section{Header: Header{ID: id, Title: id}, Children: Tree(children)}
	s.Children.Renumber()
	return s
}

func sub(id string, children ...Node) *Subsection {
	s := &Subsection{Header: Header{ID: id, Title: id}, Children: Tree(children)}
	s.Children.Renumber()
	return s
}

func les(id, lessonID string) *LessonRef {
	return &LessonRef{Header: Header{ID: id, Title: id}, LessonID: lessonID}
}

func tree(nodes ...Node) Tree {
	t := Tree(nodes)
	t.Renumber()
	return t
}

// S1 ( L1, SS1 ( L2 ) ), S2 ( L3 ), L4
func fixture() Tree {
	return tree(
		sec("S1", les("L1", "lesson-1"), sub("SS1", les("L2", "lesson-2"))),
		sec("S2", les("L3", "lesson-3")),
		les("L4", "lesson-4"),
	)
}

func ids(t Tree) []string {
	res := make([]string, 0, len(t))
	for _, n := range t {
		res = append(res, n.Head().ID)
	}
	return res
}

func children(t *testing.T, tr Tree, id string) Tree {
	loc, ok := tr.Find(id)
	require.True(t, ok, "node %s not found", id)
	c, ok := loc.Node.(Container)
	require.True(t, ok, "node %s is not a container", id)
	return *c.Nodes()
}

func mustJSON(t *testing.T, v interface{}) string {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestTree_Find(t *testing.T) {
	tr := fixture()

	tests := []struct {
		name       string
		id         string
		wantFound  bool
		wantParent string
		wantIndex  int
		wantDepth  int
	}{
		{name: "root node", id: "S2", wantFound: true, wantIndex: 1},
		{name: "root lesson", id: "L4", wantFound: true, wantIndex: 2},
		{name: "child", id: "SS1", wantFound: true, wantParent: "S1", wantIndex: 1, wantDepth: 1},
		{name: "grandchild", id: "L2", wantFound: true, wantParent: "SS1", wantDepth: 2},
		{name: "unknown", id: "nope"},
		{name: "empty id", id: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok := tr.Find(tt.id)
			again, okAgain := tr.Find(tt.id)
			assert.Equal(t, ok, okAgain)
			assert.Equal(t, loc, again)

			require.Equal(t, tt.wantFound, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.id, loc.Node.Head().ID)
			assert.Equal(t, tt.wantIndex, loc.Index)
			assert.Equal(t, tt.wantDepth, loc.Depth)
			if tt.wantParent == "" {
				assert.Nil(t, loc.Parent)
			} else {
				require.NotNil(t, loc.Parent)
				assert.Equal(t, tt.wantParent, loc.Parent.Head().ID)
			}
		})
	}
}

func TestTree_MaxOrder(t *testing.T) {
	assert.Equal(t, 0, Tree{}.MaxOrder())
	assert.Equal(t, 0, Tree(nil).MaxOrder())

	gappy := Tree{les("a", "1"), les("b", "2")}
	gappy[0].Head().Order = 1
	gappy[1].Head().Order = 5
	assert.Equal(t, 5, gappy.MaxOrder())
}

func TestTree_Insert(t *testing.T) {
	tests := []struct {
		name      string
		parent    string
		node      Node
		wantErr   error
		wantOrder int
	}{
		{name: "root", node: NewSection(""), wantOrder: 5},
		{name: "into section", parent: "S1", node: NewSubsection(""), wantOrder: 3},
		{name: "into subsection", parent: "SS1", node: NewLessonRef("lesson-9", ""), wantOrder: 2},
		{name: "into empty section", parent: "empty", node: NewLessonRef("lesson-9", ""), wantOrder: 1},
		{name: "parent not found", parent: "nope", node: NewSection(""), wantErr: ErrNodeNotFound},
		{name: "parent is a lesson", parent: "L4", node: NewSection(""), wantErr: ErrNotContainer},
		{name: "duplicate id", node: les("L2", "lesson-2"), wantErr: ErrDuplicateID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := fixture()
			tr = append(tr, sec("empty"))
			tr.Renumber()
			before := mustJSON(t, tr)

			err := tr.Insert(tt.parent, tt.node)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				assert.JSONEq(t, before, mustJSON(t, tr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOrder, tt.node.Head().Order)
			assert.NoError(t, tr.Validate())

			loc, ok := tr.Find(tt.node.Head().ID)
			require.True(t, ok)
			if tt.parent == "" {
				assert.Nil(t, loc.Parent)
			} else {
				assert.Equal(t, tt.parent, loc.Parent.Head().ID)
			}
		})
	}
}

func TestNewNodes_defaultTitles(t *testing.T) {
	assert.Equal(t, DefaultSectionTitle, NewSection("").Title)
	assert.Equal(t, DefaultSubsectionTitle, NewSubsection("").Title)
	assert.Equal(t, DefaultLessonTitle, NewLessonRef("x", "").Title)
	assert.Equal(t, "Basics", NewSection("Basics").Title)
	assert.NotEqual(t, NewSection("").ID, NewSection("").ID)
}

func TestTree_Move(t *testing.T) {
	tests := []struct {
		name         string
		id           string
		parent       string
		index        int
		wantErr      error
		wantRoot     []string
		wantChildren map[string][]string
		wantLessons  []string
	}{
		{
			name: "reorder root", id: "S2", index: 0,
			wantRoot:    []string{"S2", "S1", "L4"},
			wantLessons: []string{"lesson-3", "lesson-1", "lesson-2", "lesson-4"},
		},
		{
			name: "forward within the same list", id: "S1", index: 2,
			wantRoot:    []string{"S2", "L4", "S1"},
			wantLessons: []string{"lesson-3", "lesson-4", "lesson-1", "lesson-2"},
		},
		{
			name: "root lesson into section", id: "L4", parent: "S1", index: 1,
			wantRoot:     []string{"S1", "S2"},
			wantChildren: map[string][]string{"S1": {"L1", "L4", "SS1"}},
			wantLessons:  []string{"lesson-1", "lesson-4", "lesson-2", "lesson-3"},
		},
		{
			name: "nested lesson to root renumbers its old siblings", id: "L1", index: 99,
			wantRoot:     []string{"S1", "S2", "L4", "L1"},
			wantChildren: map[string][]string{"S1": {"SS1"}},
			wantLessons:  []string{"lesson-2", "lesson-3", "lesson-4", "lesson-1"},
		},
		{
			name: "negative index is clamped", id: "L4", parent: "S2", index: -3,
			wantRoot:     []string{"S1", "S2"},
			wantChildren: map[string][]string{"S2": {"L4", "L3"}},
			wantLessons:  []string{"lesson-1", "lesson-2", "lesson-4", "lesson-3"},
		},
		{
			name: "subsection with its children", id: "SS1", parent: "S2", index: 0,
			wantRoot:     []string{"S1", "S2", "L4"},
			wantChildren: map[string][]string{"S1": {"L1"}, "S2": {"SS1", "L3"}, "SS1": {"L2"}},
			wantLessons:  []string{"lesson-1", "lesson-2", "lesson-3", "lesson-4"},
		},
		{name: "into itself", id: "S1", parent: "S1", wantErr: ErrCycle},
		{name: "into a child", id: "S1", parent: "SS1", wantErr: ErrCycle},
		{name: "subsection into itself", id: "SS1", parent: "SS1", wantErr: ErrCycle},
		{name: "into a lesson", id: "L1", parent: "L4", wantErr: ErrNotContainer},
		{name: "unknown node", id: "nope", wantErr: ErrNodeNotFound},
		{name: "unknown parent", id: "L1", parent: "nope", wantErr: ErrNodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := fixture()
			before := mustJSON(t, tr)

			err := tr.Move(tt.id, tt.parent, tt.index)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				assert.JSONEq(t, before, mustJSON(t, tr), "failed move must not change the tree")
				return
			}
			require.NoError(t, err)
			assert.NoError(t, tr.Validate(), "orders must stay dense")

			if diff := cmp.Diff(tt.wantRoot, ids(tr)); diff != "" {
				t.Errorf("root mismatch (-want +got):\n%s", diff)
			}
			for parent, want := range tt.wantChildren {
				if diff := cmp.Diff(want, ids(children(t, tr, parent))); diff != "" {
					t.Errorf("children of %s mismatch (-want +got):\n%s", parent, diff)
				}
			}
			if diff := cmp.Diff(tt.wantLessons, tr.LessonIDs()); diff != "" {
				t.Errorf("LessonIDs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTree_Move_flattenOrder(t *testing.T) {
	tr := tree(les("A", "a"), les("B", "b"), les("C", "c"))
	assert.Equal(t, []string{"a", "b", "c"}, tr.LessonIDs())

	require.NoError(t, tr.Move("B", "", 0))
	assert.Equal(t, []string{"b", "a", "c"}, tr.LessonIDs())
	assert.Equal(t, []int{1, 2, 3}, []int{tr[0].Head().Order, tr[1].Head().Order, tr[2].Head().Order})
}

func TestTree_Rename(t *testing.T) {
	tr := fixture()

	n, err := tr.Rename("L2", "Intro")
	require.NoError(t, err)
	ref, ok := n.(*LessonRef)
	require.True(t, ok)
	assert.Equal(t, "lesson-2", ref.LessonID)

	loc, _ := tr.Find("L2")
	assert.Equal(t, "Intro", loc.Node.Head().Title)

	_, err = tr.Rename("nope", "x")
	assert.Equal(t, ErrNodeNotFound, errors.Cause(err))
}

func TestTree_Remove(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		wantErr     error
		wantRemoved []string
		wantLessons []string
	}{
		{
			name: "section with nested subsection", id: "S1",
			wantRemoved: []string{"lesson-1", "lesson-2"},
			wantLessons: []string{"lesson-3", "lesson-4"},
		},
		{
			name: "nested lesson", id: "L2",
			wantRemoved: []string{"lesson-2"},
			wantLessons: []string{"lesson-1", "lesson-3", "lesson-4"},
		},
		{
			name: "subsection", id: "SS1",
			wantRemoved: []string{"lesson-2"},
			wantLessons: []string{"lesson-1", "lesson-3", "lesson-4"},
		},
		{name: "unknown", id: "nope", wantErr: ErrNodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := fixture()

			n, err := tr.Remove(tt.id)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, n.Head().ID)
			assert.Equal(t, tt.wantRemoved, Tree{n}.LessonIDs())
			assert.Equal(t, tt.wantLessons, tr.LessonIDs())
			assert.NoError(t, tr.Validate())

			Tree{n}.Walk(func(removed Node, _ int) {
				_, found := tr.Find(removed.Head().ID)
				assert.False(t, found, "node %s still in the tree", removed.Head().ID)
			})
		})
	}
}

func TestTree_LessonIDs(t *testing.T) {
	assert.Equal(t, []string{"lesson-1", "lesson-2", "lesson-3", "lesson-4"}, fixture().LessonIDs())
	assert.Empty(t, Tree{}.LessonIDs())
	assert.Empty(t, tree(sec("S", sub("SS"))).LessonIDs())
}

func TestTree_Clone(t *testing.T) {
	orig := fixture()
	c := orig.Clone()

	_, err := c.Rename("L2", "changed")
	require.NoError(t, err)
	require.NoError(t, c.Move("L4", "S1", 0))

	assert.Equal(t, []string{"S1", "S2", "L4"}, ids(orig))
	loc, _ := orig.Find("L2")
	assert.Equal(t, "L2", loc.Node.Head().Title)
}

func TestTree_Prune(t *testing.T) {
	orig := fixture()
	hidden := map[string]bool{"lesson-1": true, "lesson-4": true}
	pruned := orig.Prune(func(ref *LessonRef) bool { return !hidden[ref.LessonID] })

	assert.Equal(t, []string{"lesson-2", "lesson-3"}, pruned.LessonIDs())
	assert.Equal(t, []string{"S1", "S2"}, ids(pruned))
	assert.NoError(t, pruned.Validate())
	assert.Equal(t, []string{"SS1"}, ids(children(t, pruned, "S1")))

	// the original keeps its lessons
	assert.Equal(t, []string{"lesson-1", "lesson-2", "lesson-3", "lesson-4"}, orig.LessonIDs())
}

func TestTree_CloneWithNewIDs(t *testing.T) {
	orig := fixture()
	c := orig.CloneWithNewIDs(map[string]string{"lesson-1": "copy-1", "lesson-2": "copy-2"})

	assert.Equal(t, orig.Len(), c.Len())
	assert.Equal(t, []string{"copy-1", "copy-2", "lesson-3", "lesson-4"}, c.LessonIDs())
	assert.NoError(t, c.Validate())
	c.Walk(func(n Node, _ int) {
		_, found := orig.Find(n.Head().ID)
		assert.False(t, found, "node id %s reused", n.Head().ID)
	})
}

func TestTree_Validate(t *testing.T) {
	dup := fixture()
	dup[2].Head().ID = "L1"

	gap := fixture()
	gap[1].Head().Order = 7

	orphan := tree(les("L", ""))

	assert.NoError(t, fixture().Validate())
	assert.Equal(t, ErrDuplicateID, errors.Cause(dup.Validate()))
	assert.Equal(t, ErrOrderGap, errors.Cause(gap.Validate()))
	assert.Error(t, orphan.Validate())
}

func TestTree_JSON(t *testing.T) {
	doc := `[
		{"id": "s1", "type": "section", "title": "Intro", "order": 1, "collapsed": true, "children": [
			{"id": "l1", "type": "lesson", "title": "Welcome", "order": 1, "lesson_id": "lesson-1"},
			{"id": "ss1", "type": "subsection", "title": "More", "order": 2, "children": []}
		]},
		{"id": "l2", "type": "lesson", "title": "Outro", "order": 2, "lesson_id": "lesson-2"}
	]`

	var tr Tree
	require.NoError(t, json.Unmarshal([]byte(doc), &tr))
	require.Len(t, tr, 2)

	s, ok := tr[0].(*Section)
	require.True(t, ok)
	assert.True(t, s.Collapsed)
	require.Len(t, s.Children, 2)
	assert.IsType(t, &LessonRef{}, s.Children[0])
	assert.IsType(t, &Subsection{}, s.Children[1])
	assert.Equal(t, []string{"lesson-1", "lesson-2"}, tr.LessonIDs())
	assert.JSONEq(t, doc, mustJSON(t, tr))

	err := json.Unmarshal([]byte(`[{"id": "q", "type": "quiz", "title": "?", "order": 1}]`), &tr)
	assert.Equal(t, ErrUnknownKind, errors.Cause(err))
}
