package program

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/outline"
)

var (
	// errors
	ErrNotFound           = errors.New("program not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	errParentRequired     = core.NewValidationError(nil, core.FieldError{Field: "parent_id", Error: "this field is required"})

	defaultLessonContent = "<p>Lesson content...</p>"
	copySuffix           = " (copy)"
)

type (
	Repository interface {
		CreateProgram(ctx context.Context, prog Program, exec ...core.DBExecutor) (Program, error)
		GetProgram(ctx context.Context, id string, exec ...core.DBExecutor) (Program, error)
		// QueryPrograms applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Program.Title.
		QueryPrograms(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Program, error)
		// UpdateProgram overwrites the whole aggregate, outline included.
		UpdateProgram(ctx context.Context, prog Program, exec ...core.DBExecutor) (Program, error)
		DeletePrograms(ctx context.Context, ids []string, exec ...core.DBExecutor) error

		CreateLesson(ctx context.Context, lesson Lesson, exec ...core.DBExecutor) (Lesson, error)
		GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (Lesson, error)
		QueryLessons(ctx context.Context, filter LessonFilter, exec ...core.DBExecutor) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lesson Lesson, exec ...core.DBExecutor) (Lesson, error)
		DeleteLessons(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	Service struct {
		db     core.Transactor
		repo   Repository
		logger core.Logger
		policy *bluemonday.Policy
	}
)

var NowFunc = time.Now // mockable

func NewService(db core.Transactor, repo Repository, logger core.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		logger: logger,
		policy: bluemonday.UGCPolicy(),
	}
}

func now() time.Time { return NowFunc().UTC() }

func newID() string { return uuid.New().String() }

// Programs

func (svc *Service) Create(ctx context.Context, np NewProgram) (Program, error) {
	status := np.Status
	if status == "" {
		status = StatusHidden
	}
	tstamp := now()
	prog := Program{
		Title:       np.Title,
		Description: np.Description,
		Status:      status,
		CoverImage:  np.CoverImage,
		Outline:     outline.Tree{},
		Attachments: []Attachment{},
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	prog, err := svc.repo.CreateProgram(ctx, prog)
	if err != nil {
		return Program{}, errors.Wrap(err, "creating program")
	}
	return prog, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Program, error) {
	return svc.repo.QueryPrograms(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Program, error) {
	return svc.repo.GetProgram(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, up UpdateProgram) (Program, error) {
	var prog Program
	err := svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if prog, err = svc.repo.GetProgram(ctx, id, exec); err != nil {
			return err
		}
		if up.Title != nil {
			prog.Title = *up.Title
		}
		if up.Description != nil {
			prog.Description = *up.Description
		}
		if up.Status != nil {
			prog.Status = *up.Status
		}
		if up.CoverImage != nil {
			prog.CoverImage = *up.CoverImage
		}
		prog.UpdatedAt = now()
		prog, err = svc.repo.UpdateProgram(ctx, prog, exec)
		return err
	})
	if err != nil {
		return Program{}, errors.Wrap(err, "updating program")
	}
	return prog, nil
}

// Delete removes the program and every lesson of its lesson store.
func (svc *Service) Delete(ctx context.Context, id string) error {
	err := svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetProgram(ctx, id, exec); err != nil {
			return err
		}
		lessons, err := svc.repo.QueryLessons(ctx, LessonFilter{ProgramID: id}, exec)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(lessons))
		for _, l := range lessons {
			ids = append(ids, l.ID)
		}
		if err = svc.repo.DeleteLessons(ctx, ids, exec); err != nil {
			return err
		}
		return svc.repo.DeletePrograms(ctx, []string{id}, exec)
	})
	if err != nil {
		return errors.Wrap(err, "deleting program")
	}
	svc.logger.Info(fmt.Sprintf("program %s deleted", id))
	return nil
}

// Clone deep copies a program: new ids everywhere, lessons included. The copy is hidden.
func (svc *Service) Clone(ctx context.Context, id string) (Program, error) {
	var clone Program
	err := svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		orig, err := svc.repo.GetProgram(ctx, id, exec)
		if err != nil {
			return err
		}
		lessons, err := svc.repo.QueryLessons(ctx, LessonFilter{ProgramID: id}, exec)
		if err != nil {
			return err
		}

		tstamp := now()
		clone = Program{
			Title:       orig.Title + copySuffix,
			Description: orig.Description,
			Status:      StatusHidden,
			CoverImage:  orig.CoverImage,
			Outline:     outline.Tree{},
			Attachments: renewAttachments(orig.Attachments),
			CreatedAt:   tstamp,
			UpdatedAt:   tstamp,
		}
		if clone, err = svc.repo.CreateProgram(ctx, clone, exec); err != nil {
			return err
		}

		lessonIDs := make(map[string]string, len(lessons))
		for _, l := range lessons {
			cl := l
			cl.ID = ""
			cl.ProgramID = clone.ID
			cl.Blocks = cloneBlocks(l.Blocks)
			cl.Tasks = cloneTasks(l.Tasks)
			cl.Attachments = renewAttachments(l.Attachments)
			cl.CreatedAt, cl.UpdatedAt = tstamp, tstamp
			if cl, err = svc.repo.CreateLesson(ctx, cl, exec); err != nil {
				return err
			}
			lessonIDs[l.ID] = cl.ID
		}

		clone.Outline = orig.Outline.CloneWithNewIDs(lessonIDs)
		clone, err = svc.repo.UpdateProgram(ctx, clone, exec)
		return err
	})
	if err != nil {
		return Program{}, errors.Wrap(err, "cloning program")
	}
	svc.logger.Info(fmt.Sprintf("program %s cloned into %s", id, clone.ID))
	return clone, nil
}

// Outline

// mutateOutline applies fn to a copy of the program outline and saves the program,
// all in the transaction handed to fn. The stored program is unchanged if fn fails.
func (svc *Service) mutateOutline(ctx context.Context, programID string, fn func(tree *outline.Tree, exec core.DBExecutor) error) (Program, error) {
	var prog Program
	err := svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if prog, err = svc.repo.GetProgram(ctx, programID, exec); err != nil {
			return err
		}
		tree := prog.Outline.Clone()
		if err = fn(&tree, exec); err != nil {
			return err
		}
		prog.Outline = tree
		prog.UpdatedAt = now()
		prog, err = svc.repo.UpdateProgram(ctx, prog, exec)
		return err
	})
	return prog, err
}

// AddSection adds a section to the root, or under nn.ParentID. Under a section the new
// node is a subsection.
func (svc *Service) AddSection(ctx context.Context, programID string, nn NewNode) (Program, outline.Node, error) {
	var node outline.Node
	prog, err := svc.mutateOutline(ctx, programID, func(tree *outline.Tree, _ core.DBExecutor) error {
		node = outline.NewSection(nn.Title)
		if loc, ok := tree.Find(nn.ParentID); ok && loc.Node.Kind() == outline.KindSection {
			node = outline.NewSubsection(nn.Title)
		}
		return tree.Insert(nn.ParentID, node)
	})
	if err != nil {
		return Program{}, nil, errors.Wrap(err, "adding section")
	}
	svc.logger.Info(fmt.Sprintf("program %s: %s %s added", programID, node.Kind(), node.Head().ID))
	return prog, node, nil
}

func (svc *Service) AddSubsection(ctx context.Context, programID string, nn NewNode) (Program, outline.Node, error) {
	if nn.ParentID == "" {
		return Program{}, nil, errParentRequired
	}
	node := outline.NewSubsection(nn.Title)
	prog, err := svc.mutateOutline(ctx, programID, func(tree *outline.Tree, _ core.DBExecutor) error {
		return tree.Insert(nn.ParentID, node)
	})
	if err != nil {
		return Program{}, nil, errors.Wrap(err, "adding subsection")
	}
	svc.logger.Info(fmt.Sprintf("program %s: subsection %s added", programID, node.ID))
	return prog, node, nil
}

// AddLesson creates a lesson in the lesson store and references it from the outline,
// in one transaction.
func (svc *Service) AddLesson(ctx context.Context, programID string, nl NewLesson) (Program, Lesson, error) {
	var lesson Lesson
	prog, err := svc.mutateOutline(ctx, programID, func(tree *outline.Tree, exec core.DBExecutor) error {
		ref := outline.NewLessonRef("", nl.Title)
		if err := tree.Insert(nl.ParentID, ref); err != nil {
			return err
		}

		published := true
		if nl.Published != nil {
			published = *nl.Published
		}
		tstamp := now()
		var err error
		lesson, err = svc.repo.CreateLesson(ctx, Lesson{
			ProgramID:      programID,
			Title:          ref.Title,
			Description:    nl.Description,
			Published:      published,
			AccessStart:    nl.AccessStart,
			DeadlineAt:     nl.DeadlineAt,
			StopLessonMode: StopNone,
			Blocks:         []Block{{ID: newID(), Type: BlockRichText, Order: 1, Content: defaultLessonContent}},
			Tasks:          []Task{},
			Attachments:    []Attachment{},
			CreatedAt:      tstamp,
			UpdatedAt:      tstamp,
		}, exec)
		if err != nil {
			return err
		}
		ref.LessonID = lesson.ID
		return nil
	})
	if err != nil {
		return Program{}, Lesson{}, errors.Wrap(err, "adding lesson")
	}
	svc.logger.Info(fmt.Sprintf("program %s: lesson %s added", programID, lesson.ID))
	return prog, lesson, nil
}

// MoveNode moves a node under mn.ParentID (root when empty) at position mn.Index.
func (svc *Service) MoveNode(ctx context.Context, programID, nodeID string, mn MoveNode) (Program, error) {
	prog, err := svc.mutateOutline(ctx, programID, func(tree *outline.Tree, _ core.DBExecutor) error {
		return tree.Move(nodeID, mn.ParentID, mn.Index)
	})
	if err != nil {
		return Program{}, errors.Wrap(err, "moving outline node")
	}
	svc.logger.Info(fmt.Sprintf("program %s: node %s moved", programID, nodeID))
	return prog, nil
}

// RenameNode sets the title of a node. Renaming a lesson node renames the lesson too.
func (svc *Service) RenameNode(ctx context.Context, programID, nodeID, title string) (Program, error) {
	prog, err := svc.mutateOutline(ctx, programID, func(tree *outline.Tree, exec core.DBExecutor) error {
		node, err := tree.Rename(nodeID, title)
		if err != nil {
			return err
		}
		ref, ok := node.(*outline.LessonRef)
		if !ok {
			return nil
		}
		for _, r := range tree.RefsTo(ref.LessonID) {
			r.Title = title
		}
		lesson, err := svc.repo.GetLesson(ctx, ref.LessonID, exec)
		if err != nil {
			return err
		}
		lesson.Title = title
		lesson.UpdatedAt = now()
		_, err = svc.repo.UpdateLesson(ctx, lesson, exec)
		return err
	})
	if err != nil {
		return Program{}, errors.Wrap(err, "renaming outline node")
	}
	svc.logger.Info(fmt.Sprintf("program %s: node %s renamed", programID, nodeID))
	return prog, nil
}

// DeleteNode removes a node with its subtree and deletes the lessons it referenced.
// The removal is planned on a copy of the outline first, then the lesson deletes and
// the outline write are committed together. Lessons still referenced elsewhere in the
// outline are kept. It returns the ids of the deleted lessons.
func (svc *Service) DeleteNode(ctx context.Context, programID, nodeID string) (Program, []string, error) {
	var deleted []string
	prog, err := svc.mutateOutline(ctx, programID, func(tree *outline.Tree, exec core.DBExecutor) error {
		removed, err := tree.Remove(nodeID)
		if err != nil {
			return err
		}

		remaining := make(map[string]struct{})
		for _, id := range tree.LessonIDs() {
			remaining[id] = struct{}{}
		}
		deleted = make([]string, 0)
		for _, id := range (outline.Tree{removed}).LessonIDs() {
			if _, ok := remaining[id]; !ok {
				deleted = append(deleted, id)
			}
		}
		return svc.repo.DeleteLessons(ctx, deleted, exec)
	})
	if err != nil {
		return Program{}, nil, errors.Wrap(err, "deleting outline node")
	}
	svc.logger.Info(fmt.Sprintf("program %s: node %s deleted with %d lesson(s)", programID, nodeID, len(deleted)))
	return prog, deleted, nil
}

// LessonIDs returns the lesson ids of the program in outline order.
func (svc *Service) LessonIDs(ctx context.Context, programID string) ([]string, error) {
	prog, err := svc.repo.GetProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	return prog.Outline.LessonIDs(), nil
}

// Lessons

// Lessons returns the lessons referenced by the program outline, in outline order.
func (svc *Service) Lessons(ctx context.Context, prog Program) ([]Lesson, error) {
	ids := prog.Outline.LessonIDs()
	if len(ids) == 0 {
		return []Lesson{}, nil
	}
	found, err := svc.repo.QueryLessons(ctx, LessonFilter{ProgramID: prog.ID, IDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	byID := make(map[string]Lesson, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	lessons := make([]Lesson, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			lessons = append(lessons, l)
		}
	}
	return lessons, nil
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

// UpdateLesson updates the lesson content. A title change renames its outline nodes.
func (svc *Service) UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	var lesson Lesson
	err := svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if lesson, err = svc.repo.GetLesson(ctx, id, exec); err != nil {
			return err
		}
		renamed := ul.Title != nil && *ul.Title != lesson.Title
		svc.applyLessonUpdate(&lesson, ul)
		if lesson, err = svc.repo.UpdateLesson(ctx, lesson, exec); err != nil {
			return err
		}
		if !renamed {
			return nil
		}

		prog, err := svc.repo.GetProgram(ctx, lesson.ProgramID, exec)
		if err != nil {
			return err
		}
		refs := prog.Outline.RefsTo(lesson.ID)
		if len(refs) == 0 {
			return nil
		}
		for _, ref := range refs {
			ref.Title = lesson.Title
		}
		prog.UpdatedAt = now()
		_, err = svc.repo.UpdateProgram(ctx, prog, exec)
		return err
	})
	if err != nil {
		return Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return lesson, nil
}

func (svc *Service) applyLessonUpdate(lesson *Lesson, ul UpdateLesson) {
	if ul.Title != nil {
		lesson.Title = *ul.Title
	}
	if ul.Description != nil {
		lesson.Description = *ul.Description
	}
	if ul.Published != nil {
		lesson.Published = *ul.Published
	}
	if ul.AccessStart != nil {
		lesson.AccessStart = utcPtr(ul.AccessStart)
	}
	if ul.DeadlineAt != nil {
		lesson.DeadlineAt = utcPtr(ul.DeadlineAt)
	}
	if ul.StopLessonMode != nil {
		lesson.StopLessonMode = *ul.StopLessonMode
	}
	if ul.StopReason != nil {
		lesson.StopReason = *ul.StopReason
	}
	if ul.Blocks != nil {
		lesson.Blocks = svc.prepareBlocks(ul.Blocks)
	}
	if ul.Practice != nil {
		p := *ul.Practice
		lesson.Practice = &p
	}
	if ul.Tasks != nil {
		lesson.Tasks = prepareTasks(ul.Tasks)
	}
	lesson.UpdatedAt = now()
}

// prepareBlocks sorts blocks by order, renumbers them, fills missing ids and sanitizes
// the HTML of text blocks.
func (svc *Service) prepareBlocks(blocks []Block) []Block {
	res := cloneBlocks(blocks)
	sort.SliceStable(res, func(i, j int) bool { return res[i].Order < res[j].Order })
	for i := range res {
		res[i].Order = i + 1
		if res[i].ID == "" {
			res[i].ID = newID()
		}
		switch res[i].Type {
		case BlockRichText, BlockCallout:
			res[i].Content = svc.policy.Sanitize(res[i].Content)
		case BlockDivider:
			res[i].Content = ""
		}
	}
	return res
}

func prepareTasks(tasks []Task) []Task {
	res := cloneTasks(tasks)
	sort.SliceStable(res, func(i, j int) bool { return res[i].Order < res[j].Order })
	for i := range res {
		res[i].Order = i + 1
		res[i].Title = core.CleanString(res[i].Title)
		if res[i].ID == "" {
			res[i].ID = newID()
		}
	}
	return res
}

// Navigation returns the previous and next lessons of lessonID in outline order.
// With publishedOnly, unpublished lessons are skipped as students do not see them.
func (svc *Service) Navigation(ctx context.Context, prog Program, lessonID string, publishedOnly bool) (Navigation, error) {
	ids := prog.Outline.LessonIDs()
	if publishedOnly {
		lessons, err := svc.Lessons(ctx, prog)
		if err != nil {
			return Navigation{}, err
		}
		ids = ids[:0:0]
		for _, l := range lessons {
			if l.Published {
				ids = append(ids, l.ID)
			}
		}
	}

	for i, id := range ids {
		if id != lessonID {
			continue
		}
		var nav Navigation
		if i > 0 {
			nav.PrevID = ids[i-1]
		}
		if i < len(ids)-1 {
			nav.NextID = ids[i+1]
		}
		return nav, nil
	}
	return Navigation{}, ErrLessonNotFound
}

// Attachments

func (svc *Service) AddProgramAttachment(ctx context.Context, programID string, na NewAttachment) (Program, error) {
	var prog Program
	err := svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if prog, err = svc.repo.GetProgram(ctx, programID, exec); err != nil {
			return err
		}
		prog.Attachments = append(append([]Attachment{}, prog.Attachments...), Attachment{ID: newID(), Title: na.Title, URL: na.URL})
		prog.UpdatedAt = now()
		prog, err = svc.repo.UpdateProgram(ctx, prog, exec)
		return err
	})
	if err != nil {
		return Program{}, errors.Wrap(err, "adding program attachment")
	}
	return prog, nil
}

func (svc *Service) RemoveProgramAttachment(ctx context.Context, programID, attachmentID string) (Program, error) {
	var prog Program
	err := svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if prog, err = svc.repo.GetProgram(ctx, programID, exec); err != nil {
			return err
		}
		if prog.Attachments, err = removeAttachment(prog.Attachments, attachmentID); err != nil {
			return err
		}
		prog.UpdatedAt = now()
		prog, err = svc.repo.UpdateProgram(ctx, prog, exec)
		return err
	})
	if err != nil {
		return Program{}, errors.Wrap(err, "removing program attachment")
	}
	return prog, nil
}

func (svc *Service) AddLessonAttachment(ctx context.Context, lessonID string, na NewAttachment) (Lesson, error) {
	var lesson Lesson
	err := svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if lesson, err = svc.repo.GetLesson(ctx, lessonID, exec); err != nil {
			return err
		}
		lesson.Attachments = append(append([]Attachment{}, lesson.Attachments...), Attachment{ID: newID(), Title: na.Title, URL: na.URL})
		lesson.UpdatedAt = now()
		lesson, err = svc.repo.UpdateLesson(ctx, lesson, exec)
		return err
	})
	if err != nil {
		return Lesson{}, errors.Wrap(err, "adding lesson attachment")
	}
	return lesson, nil
}

func (svc *Service) RemoveLessonAttachment(ctx context.Context, lessonID, attachmentID string) (Lesson, error) {
	var lesson Lesson
	err := svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if lesson, err = svc.repo.GetLesson(ctx, lessonID, exec); err != nil {
			return err
		}
		if lesson.Attachments, err = removeAttachment(lesson.Attachments, attachmentID); err != nil {
			return err
		}
		lesson.UpdatedAt = now()
		lesson, err = svc.repo.UpdateLesson(ctx, lesson, exec)
		return err
	})
	if err != nil {
		return Lesson{}, errors.Wrap(err, "removing lesson attachment")
	}
	return lesson, nil
}

func removeAttachment(atts []Attachment, id string) ([]Attachment, error) {
	res := make([]Attachment, 0, len(atts))
	for _, a := range atts {
		if a.ID != id {
			res = append(res, a)
		}
	}
	if len(res) == len(atts) {
		return nil, ErrAttachmentNotFound
	}
	return res, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func cloneBlocks(blocks []Block) []Block {
	return append(make([]Block, 0, len(blocks)), blocks...)
}

func cloneTasks(tasks []Task) []Task {
	return append(make([]Task, 0, len(tasks)), tasks...)
}

// renewAttachments copies atts with fresh ids.
func renewAttachments(atts []Attachment) []Attachment {
	res := make([]Attachment, 0, len(atts))
	for _, a := range atts {
		a.ID = newID()
		res = append(res, a)
	}
	return res
}
