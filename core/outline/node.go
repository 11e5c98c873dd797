// Package outline implements the course outline tree: ordered sections, subsections
// and lesson references that make up the table of contents of a program.
package outline

import (
	"github.com/google/uuid"
)

// Kind is the discriminant of a Node.
type Kind string

const (
	KindSection    Kind = "section"
	KindSubsection Kind = "subsection"
	KindLesson     Kind = "lesson"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindSection, KindSubsection, KindLesson:
		return true
	}
	return false
}

const (
	DefaultSectionTitle    = "New section"
	DefaultSubsectionTitle = "New subsection"
	DefaultLessonTitle     = "New lesson"
)

// Header holds the fields shared by every node.
type Header struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"` // 1-based, dense among siblings
}

// Node is one of *Section, *Subsection or *LessonRef.
type Node interface {
	Head() *Header
	Kind() Kind
	clone() Node
}

// Container is a node that holds children: *Section or *Subsection.
type Container interface {
	Node
	Nodes() *Tree
}

type Section struct {
	Header
	Collapsed bool
	Children  Tree
}

type Subsection struct {
	Header
	Children Tree
}

// LessonRef points to a lesson of the lesson store. It does not own the lesson.
type LessonRef struct {
	Header
	LessonID string
}

var (
	_ Container = (*Section)(nil)
	_ Container = (*Subsection)(nil)
	_ Node      = (*LessonRef)(nil)
)

func (s *Section) Head() *Header { return &s.Header }
func (s *Section) Kind() Kind    { return KindSection }
func (s *Section) Nodes() *Tree  { return &s.Children }
func (s *Section) clone() Node {
	c := *s
	c.Children = s.Children.Clone()
	return &c
}

func (s *Subsection) Head() *Header { return &s.Header }
func (s *Subsection) Kind() Kind    { return KindSubsection }
func (s *Subsection) Nodes() *Tree  { return &s.Children }
func (s *Subsection) clone() Node {
	c := *s
	c.Children = s.Children.Clone()
	return &c
}

func (l *LessonRef) Head() *Header { return &l.Header }
func (l *LessonRef) Kind() Kind    { return KindLesson }
func (l *LessonRef) clone() Node {
	c := *l
	return &c
}

func newID() string {
	return uuid.New().String()
}

func titleOr(title, fallback string) string {
	if title == "" {
		return fallback
	}
	return title
}

// NewSection returns a root-level section. An empty title gets the default one.
func NewSection(title string) *Section {
	return &Section{Header: Header{ID: newID(), Title: titleOr(title, DefaultSectionTitle)}, Children: Tree{}}
}

func NewSubsection(title string) *Subsection {
	return &Subsection{Header: Header{ID: newID(), Title: titleOr(title, DefaultSubsectionTitle)}, Children: Tree{}}
}

func NewLessonRef(lessonID, title string) *LessonRef {
	return &LessonRef{Header: Header{ID: newID(), Title: titleOr(title, DefaultLessonTitle)}, LessonID: lessonID}
}
