package outline

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type jsonNode struct {
	ID        string `json:"id"`
	Type      Kind   `json:"type"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	Collapsed bool   `json:"collapsed,omitempty"`
	LessonID  string `json:"lesson_id,omitempty"`
	Children  *Tree  `json:"children,omitempty"`
}

func (t Tree) MarshalJSON() ([]byte, error) {
	nodes := make([]jsonNode, 0, len(t))
	for _, n := range t {
		h := n.Head()
		jn := jsonNode{ID: h.ID, Type: n.Kind(), Title: h.Title, Order: h.Order}
		switch n := n.(type) {
		case *Section:
			jn.Collapsed = n.Collapsed
			jn.Children = &n.Children
		case *Subsection:
			jn.Children = &n.Children
		case *LessonRef:
			jn.LessonID = n.LessonID
		}
		nodes = append(nodes, jn)
	}
	return json.Marshal(nodes)
}

func (t *Tree) UnmarshalJSON(data []byte) error {
	var nodes []jsonNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return err
	}
	tree := make(Tree, 0, len(nodes))
	for _, jn := range nodes {
		if !jn.Type.IsValid() {
			return errors.Wrapf(ErrUnknownKind, "%q", jn.Type)
		}
		h := Header{ID: jn.ID, Title: jn.Title, Order: jn.Order}
		children := Tree{}
		if jn.Children != nil {
			children = *jn.Children
		}
		switch jn.Type {
		case KindSection:
			tree = append(tree, &Section{Header: h, Collapsed: jn.Collapsed, Children: children})
		case KindSubsection:
			tree = append(tree, &Subsection{Header: h, Children: children})
		case KindLesson:
			tree = append(tree, &LessonRef{Header: h, LessonID: jn.LessonID})
		}
	}
	*t = tree
	return nil
}
