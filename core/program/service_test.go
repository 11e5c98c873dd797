package program_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/outline"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/storage/database/dummy"
	"github.com/estetika/academy/tests"
)

var errBoom = errors.New("boom")

// failingRepo fails the lesson deletes when fail is set.
type failingRepo struct {
	program.Repository
	fail bool
}

func (r *failingRepo) DeleteLessons(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if r.fail {
		return errBoom
	}
	return r.Repository.DeleteLessons(ctx, ids, exec...)
}

func setup(t *testing.T) (*program.Service, *failingRepo) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := &failingRepo{Repository: dummydb.NewProgramRepository(db)}
	return program.NewService(db, repo, testutil.NewLogger(t)), repo
}

func createProgram(t *testing.T, svc *program.Service) program.Program {
	prog, err := svc.Create(context.Background(), program.NewProgram{Title: "Brow basics"})
	require.NoError(t, err)
	return prog
}

// checkDense fails if a sibling list of tree is not ordered 1..n.
func checkDense(t *testing.T, tree outline.Tree) {
	t.Helper()
	assert.NoError(t, tree.Validate())
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)
	prog := createProgram(t, svc)

	assert.NotEmpty(t, prog.ID)
	assert.Equal(t, program.StatusHidden, prog.Status)
	assert.Equal(t, outline.Tree{}, prog.Outline)

	got, err := svc.GetByID(context.Background(), prog.ID)
	require.NoError(t, err)
	assert.Equal(t, prog.Title, got.Title)

	_, err = svc.GetByID(context.Background(), "missing")
	assert.Equal(t, program.ErrNotFound, errors.Cause(err))
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)

	title := "Brow mastery"
	published := program.StatusPublished
	got, err := svc.Update(ctx, prog.ID, program.UpdateProgram{Title: &title, Status: &published})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.True(t, got.IsPublished())

	_, err = svc.Update(ctx, "missing", program.UpdateProgram{Title: &title})
	assert.Equal(t, program.ErrNotFound, errors.Cause(err))
}

// add-section, add-lesson under it, delete the section: back to an empty outline
// and an empty lesson store.
func TestService_outlineScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)

	prog, sec, err := svc.AddSection(ctx, prog.ID, program.NewNode{})
	require.NoError(t, err)
	assert.Equal(t, outline.KindSection, sec.Kind())
	assert.Equal(t, 1, sec.Head().Order)
	assert.Equal(t, outline.DefaultSectionTitle, sec.Head().Title)

	prog, lesson, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{ParentID: sec.Head().ID})
	require.NoError(t, err)
	loc, ok := prog.Outline.Find(sec.Head().ID)
	require.True(t, ok)
	children := *loc.Node.(outline.Container).Nodes()
	if assert.Len(t, children, 1) {
		ref := children[0].(*outline.LessonRef)
		assert.Equal(t, 1, ref.Order)
		assert.Equal(t, lesson.ID, ref.LessonID)
	}
	stored, err := svc.GetLesson(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, prog.ID, stored.ProgramID)
	assert.True(t, stored.Published)

	prog, deleted, err := svc.DeleteNode(ctx, prog.ID, sec.Head().ID)
	require.NoError(t, err)
	assert.Equal(t, outline.Tree{}, prog.Outline)
	assert.Equal(t, []string{lesson.ID}, deleted)
	_, err = svc.GetLesson(ctx, lesson.ID)
	assert.Equal(t, program.ErrLessonNotFound, errors.Cause(err))
}

func TestService_AddSection(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)

	prog, sec, err := svc.AddSection(ctx, prog.ID, program.NewNode{Title: "Intro"})
	require.NoError(t, err)
	prog, _, err = svc.AddSection(ctx, prog.ID, program.NewNode{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		progID   string
		nn       program.NewNode
		wantKind outline.Kind
		wantErr  error
	}{
		{name: "under section becomes subsection", progID: prog.ID, nn: program.NewNode{ParentID: sec.Head().ID}, wantKind: outline.KindSubsection},
		{name: "root", progID: prog.ID, wantKind: outline.KindSection},
		{name: "unknown parent", progID: prog.ID, nn: program.NewNode{ParentID: "nope"}, wantErr: outline.ErrNodeNotFound},
		{name: "unknown program", progID: "nope", wantErr: program.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, node, err := svc.AddSection(ctx, tt.progID, tt.nn)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, node.Kind())
			checkDense(t, got.Outline)
		})
	}

	got, err := svc.GetByID(ctx, prog.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, len(got.Outline))
}

func TestService_AddSubsection(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)
	prog, sec, err := svc.AddSection(ctx, prog.ID, program.NewNode{})
	require.NoError(t, err)
	prog, lesson, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{})
	require.NoError(t, err)
	ref := prog.Outline.RefsTo(lesson.ID)[0]

	tests := []struct {
		name           string
		nn             program.NewNode
		wantErr        error
		wantValidation bool
	}{
		{name: "under section", nn: program.NewNode{ParentID: sec.Head().ID, Title: "Tools"}},
		{name: "parent required", wantValidation: true},
		{name: "lesson cannot contain", nn: program.NewNode{ParentID: ref.ID}, wantErr: outline.ErrNotContainer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, node, err := svc.AddSubsection(ctx, prog.ID, tt.nn)
			if tt.wantValidation {
				var verr *core.ValidationError
				assert.True(t, errors.As(err, &verr))
				return
			}
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Tools", node.Head().Title)
		})
	}
}

func TestService_MoveNode(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)

	prog, sec, err := svc.AddSection(ctx, prog.ID, program.NewNode{Title: "S"})
	require.NoError(t, err)
	prog, sub, err := svc.AddSubsection(ctx, prog.ID, program.NewNode{ParentID: sec.Head().ID, Title: "Sub"})
	require.NoError(t, err)
	ids := make([]string, 0, 3)
	for _, title := range []string{"A", "B", "C"} {
		var l program.Lesson
		prog, l, err = svc.AddLesson(ctx, prog.ID, program.NewLesson{ParentID: sec.Head().ID, Title: title})
		require.NoError(t, err)
		ids = append(ids, l.ID)
	}
	refA := prog.Outline.RefsTo(ids[0])[0]
	refB := prog.Outline.RefsTo(ids[1])[0]

	got, err := svc.LessonIDs(ctx, prog.ID)
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	// B before A; the subsection sits at index 0
	prog, err = svc.MoveNode(ctx, prog.ID, refB.ID, program.MoveNode{ParentID: sec.Head().ID, Index: 1})
	require.NoError(t, err)
	checkDense(t, prog.Outline)
	got, err = svc.LessonIDs(ctx, prog.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[1], ids[0], ids[2]}, got)

	// into the subsection, source list renumbered
	prog, err = svc.MoveNode(ctx, prog.ID, refB.ID, program.MoveNode{ParentID: sub.Head().ID})
	require.NoError(t, err)
	checkDense(t, prog.Outline)

	tests := []struct {
		name    string
		nodeID  string
		mn      program.MoveNode
		wantErr error
	}{
		{name: "into itself", nodeID: sec.Head().ID, mn: program.MoveNode{ParentID: sec.Head().ID}, wantErr: outline.ErrCycle},
		{name: "into descendant", nodeID: sec.Head().ID, mn: program.MoveNode{ParentID: sub.Head().ID}, wantErr: outline.ErrCycle},
		{name: "into lesson", nodeID: sub.Head().ID, mn: program.MoveNode{ParentID: refA.ID}, wantErr: outline.ErrNotContainer},
		{name: "unknown node", nodeID: "nope", wantErr: outline.ErrNodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := svc.GetByID(ctx, prog.ID)
			require.NoError(t, err)

			_, err = svc.MoveNode(ctx, prog.ID, tt.nodeID, tt.mn)
			assert.Equal(t, tt.wantErr, errors.Cause(err))

			after, err := svc.GetByID(ctx, prog.ID)
			require.NoError(t, err)
			assert.Equal(t, before.Outline, after.Outline)
		})
	}
}

func TestService_RenameNode(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)
	prog, sec, err := svc.AddSection(ctx, prog.ID, program.NewNode{})
	require.NoError(t, err)
	prog, lesson, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{ParentID: sec.Head().ID})
	require.NoError(t, err)
	ref := prog.Outline.RefsTo(lesson.ID)[0]

	prog, err = svc.RenameNode(ctx, prog.ID, ref.ID, "Brow mapping")
	require.NoError(t, err)
	assert.Equal(t, "Brow mapping", prog.Outline.RefsTo(lesson.ID)[0].Title)
	stored, err := svc.GetLesson(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brow mapping", stored.Title)

	prog, err = svc.RenameNode(ctx, prog.ID, sec.Head().ID, "Module 1")
	require.NoError(t, err)
	assert.Equal(t, "Module 1", prog.Outline[0].Head().Title)

	_, err = svc.RenameNode(ctx, prog.ID, "nope", "x")
	assert.Equal(t, outline.ErrNodeNotFound, errors.Cause(err))
}

func TestService_UpdateLesson(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)
	prog, lesson, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{Title: "Old"})
	require.NoError(t, err)

	title := "New"
	mode := program.StopManual
	got, err := svc.UpdateLesson(ctx, lesson.ID, program.UpdateLesson{
		Title:          &title,
		StopLessonMode: &mode,
		Blocks: []program.Block{
			{Type: program.BlockRichText, Content: `<p onclick="x()">Hi<script>alert(1)</script></p>`},
			{Type: program.BlockVideo, Content: "https://x.com/v.mp4"},
		},
		Tasks: []program.Task{{Title: "Prepare tools"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.True(t, got.IsStopped(time.Now()))
	if assert.Len(t, got.Blocks, 2) {
		assert.Equal(t, "<p>Hi</p>", got.Blocks[0].Content)
		assert.Equal(t, 2, got.Blocks[1].Order)
		assert.NotEmpty(t, got.Blocks[0].ID)
	}
	if assert.Len(t, got.Tasks, 1) {
		assert.Equal(t, 1, got.Tasks[0].Order)
	}

	prog, err = svc.GetByID(ctx, prog.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", prog.Outline.RefsTo(lesson.ID)[0].Title)

	_, err = svc.UpdateLesson(ctx, "missing", program.UpdateLesson{Title: &title})
	assert.Equal(t, program.ErrLessonNotFound, errors.Cause(err))
}

func TestService_DeleteNode(t *testing.T) {
	ctx := context.Background()

	t.Run("cascade", func(t *testing.T) {
		svc, _ := setup(t)
		prog := createProgram(t, svc)
		prog, sec, err := svc.AddSection(ctx, prog.ID, program.NewNode{})
		require.NoError(t, err)
		prog, sub, err := svc.AddSubsection(ctx, prog.ID, program.NewNode{ParentID: sec.Head().ID})
		require.NoError(t, err)
		prog, l1, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{ParentID: sec.Head().ID})
		require.NoError(t, err)
		prog, l2, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{ParentID: sub.Head().ID})
		require.NoError(t, err)
		prog, kept, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{})
		require.NoError(t, err)

		prog, deleted, err := svc.DeleteNode(ctx, prog.ID, sec.Head().ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{l1.ID, l2.ID}, deleted)
		assert.Equal(t, []string{kept.ID}, prog.Outline.LessonIDs())
		checkDense(t, prog.Outline)

		lessons, err := svc.Lessons(ctx, prog)
		require.NoError(t, err)
		assert.Len(t, lessons, 1)
	})

	t.Run("failed lesson delete leaves the program unchanged", func(t *testing.T) {
		svc, repo := setup(t)
		prog := createProgram(t, svc)
		prog, sec, err := svc.AddSection(ctx, prog.ID, program.NewNode{})
		require.NoError(t, err)
		prog, lesson, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{ParentID: sec.Head().ID})
		require.NoError(t, err)

		repo.fail = true
		_, _, err = svc.DeleteNode(ctx, prog.ID, sec.Head().ID)
		assert.Equal(t, errBoom, errors.Cause(err))

		got, err := svc.GetByID(ctx, prog.ID)
		require.NoError(t, err)
		assert.Equal(t, prog.Outline, got.Outline)
		_, err = svc.GetLesson(ctx, lesson.ID)
		assert.NoError(t, err)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)
	prog, lesson, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, prog.ID))
	_, err = svc.GetByID(ctx, prog.ID)
	assert.Equal(t, program.ErrNotFound, errors.Cause(err))
	_, err = svc.GetLesson(ctx, lesson.ID)
	assert.Equal(t, program.ErrLessonNotFound, errors.Cause(err))

	assert.Equal(t, program.ErrNotFound, errors.Cause(svc.Delete(ctx, prog.ID)))
}

func TestService_Clone(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)
	prog, sec, err := svc.AddSection(ctx, prog.ID, program.NewNode{Title: "Intro"})
	require.NoError(t, err)
	prog, lesson, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{ParentID: sec.Head().ID, Title: "Welcome"})
	require.NoError(t, err)
	prog, err = svc.AddProgramAttachment(ctx, prog.ID, program.NewAttachment{Title: "Syllabus", URL: "https://x.com/s.pdf"})
	require.NoError(t, err)

	clone, err := svc.Clone(ctx, prog.ID)
	require.NoError(t, err)
	assert.NotEqual(t, prog.ID, clone.ID)
	assert.Equal(t, "Brow basics (copy)", clone.Title)
	assert.Equal(t, program.StatusHidden, clone.Status)
	assert.NotEqual(t, prog.Attachments[0].ID, clone.Attachments[0].ID)

	if assert.Len(t, clone.Outline, 1) {
		assert.NotEqual(t, sec.Head().ID, clone.Outline[0].Head().ID)
		assert.Equal(t, "Intro", clone.Outline[0].Head().Title)
	}
	ids := clone.Outline.LessonIDs()
	if assert.Len(t, ids, 1) {
		assert.NotEqual(t, lesson.ID, ids[0])
		cl, err := svc.GetLesson(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, clone.ID, cl.ProgramID)
		assert.Equal(t, "Welcome", cl.Title)
	}

	// the original is untouched
	orig, err := svc.GetByID(ctx, prog.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{lesson.ID}, orig.Outline.LessonIDs())
}

func TestService_Navigation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)
	prog, sec, err := svc.AddSection(ctx, prog.ID, program.NewNode{})
	require.NoError(t, err)

	hidden := false
	prog, a, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{ParentID: sec.Head().ID})
	require.NoError(t, err)
	prog, b, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{ParentID: sec.Head().ID, Published: &hidden})
	require.NoError(t, err)
	prog, c, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{})
	require.NoError(t, err)

	tests := []struct {
		name          string
		lessonID      string
		publishedOnly bool
		want          program.Navigation
		wantErr       error
	}{
		{name: "first", lessonID: a.ID, want: program.Navigation{NextID: b.ID}},
		{name: "middle", lessonID: b.ID, want: program.Navigation{PrevID: a.ID, NextID: c.ID}},
		{name: "last", lessonID: c.ID, want: program.Navigation{PrevID: b.ID}},
		{name: "skips unpublished", lessonID: a.ID, publishedOnly: true, want: program.Navigation{NextID: c.ID}},
		{name: "unpublished is not found", lessonID: b.ID, publishedOnly: true, wantErr: program.ErrLessonNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav, err := svc.Navigation(ctx, prog, tt.lessonID, tt.publishedOnly)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, nav)
		})
	}
}

func TestService_Attachments(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)
	prog, lesson, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{})
	require.NoError(t, err)

	prog, err = svc.AddProgramAttachment(ctx, prog.ID, program.NewAttachment{Title: "Guide", URL: "https://x.com/g.pdf"})
	require.NoError(t, err)
	require.Len(t, prog.Attachments, 1)
	prog, err = svc.RemoveProgramAttachment(ctx, prog.ID, prog.Attachments[0].ID)
	require.NoError(t, err)
	assert.Empty(t, prog.Attachments)
	_, err = svc.RemoveProgramAttachment(ctx, prog.ID, "nope")
	assert.Equal(t, program.ErrAttachmentNotFound, errors.Cause(err))

	lesson, err = svc.AddLessonAttachment(ctx, lesson.ID, program.NewAttachment{Title: "Chart", URL: "https://x.com/c.png"})
	require.NoError(t, err)
	require.Len(t, lesson.Attachments, 1)
	lesson, err = svc.RemoveLessonAttachment(ctx, lesson.ID, lesson.Attachments[0].ID)
	require.NoError(t, err)
	assert.Empty(t, lesson.Attachments)
	_, err = svc.AddLessonAttachment(ctx, "missing", program.NewAttachment{Title: "x", URL: "https://x.com"})
	assert.Equal(t, program.ErrLessonNotFound, errors.Cause(err))
}

func TestService_UpdateLessonBlockContent(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	prog := createProgram(t, svc)
	_, lesson, err := svc.AddLesson(ctx, prog.ID, program.NewLesson{Title: "Mapping"})
	require.NoError(t, err)

	got, err := svc.UpdateLesson(ctx, lesson.ID, program.UpdateLesson{
		Blocks: []program.Block{
			{Type: program.BlockCallout, Order: 3, Content: `<b>Tip</b><iframe src="https://x.com"></iframe>`},
			{Type: program.BlockDivider, Order: 2, Content: "ignored"},
			{Type: program.BlockImage, Order: 1, Content: "https://x.com/brow.png"},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		typ  program.BlockType
		want string
	}{
		{typ: program.BlockImage, want: "https://x.com/brow.png"},
		{typ: program.BlockDivider, want: ""},
		{typ: program.BlockCallout, want: "<b>Tip</b>"},
	}
	require.Len(t, got.Blocks, len(tests))
	for i, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.typ, got.Blocks[i].Type)
			assert.Equal(t, i+1, got.Blocks[i].Order)
			assert.Equal(t, tt.want, got.Blocks[i].Content)
		})
	}
}
