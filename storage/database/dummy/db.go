package dummydb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/billing"
	"github.com/estetika/academy/core/client"
	"github.com/estetika/academy/core/learning"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/support"
	"github.com/estetika/academy/core/user"
)

type (
	// DB is an in-memory database for development and tests. Rows are copied in and
	// out, callers never share memory with the store.
	DB struct {
		txMu sync.Mutex

		user       *table[user.User]
		program    *table[program.Program]
		lesson     *table[program.Lesson]
		grant      *table[learning.AccessGrant]
		progress   *table[learning.Progress]
		submission *table[learning.Submission]
		ticket     *table[support.Ticket]
		payment    *table[billing.Payment]
		expense    *table[billing.Expense]
		note       *table[client.Note]
	}

	table[T any] struct {
		sync.RWMutex
		rows  map[string]T
		seq   map[string]uint64 // insertion sequence of every id ever put
		next  uint64
		clone func(T) T
	}

	snapshot struct {
		user       map[string]user.User
		program    map[string]program.Program
		lesson     map[string]program.Lesson
		grant      map[string]learning.AccessGrant
		progress   map[string]learning.Progress
		submission map[string]learning.Submission
		ticket     map[string]support.Ticket
		payment    map[string]billing.Payment
		expense    map[string]billing.Expense
		note       map[string]client.Note
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	db := &DB{
		user:       newTable(cloneUser),
		program:    newTable(cloneProgram),
		lesson:     newTable(cloneLesson),
		grant:      newTable(cloneGrant),
		progress:   newTable(func(p learning.Progress) learning.Progress { return p }),
		submission: newTable(cloneSubmission),
		ticket:     newTable(cloneTicket),
		payment:    newTable(func(p billing.Payment) billing.Payment { return p }),
		expense:    newTable(func(e billing.Expense) billing.Expense { return e }),
		note:       newTable(func(n client.Note) client.Note { return n }),
	}
	return db, nil
}

func newTable[T any](clone func(T) T) *table[T] {
	return &table[T]{rows: make(map[string]T), seq: make(map[string]uint64), clone: clone}
}

func (t *table[T]) get(id string) (T, bool) {
	t.RLock()
	defer t.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		return row, false
	}
	return t.clone(row), true
}

func (t *table[T]) put(id string, row T) {
	t.Lock()
	defer t.Unlock()
	if _, ok := t.seq[id]; !ok {
		t.next++
		t.seq[id] = t.next
	}
	t.rows[id] = t.clone(row)
}

func (t *table[T]) has(id string) bool {
	t.RLock()
	defer t.RUnlock()
	_, ok := t.rows[id]
	return ok
}

func (t *table[T]) delete(ids ...string) {
	t.Lock()
	defer t.Unlock()
	for _, id := range ids {
		delete(t.rows, id)
	}
}

// all returns a copy of every row matching keep, all rows when keep is nil,
// in insertion order.
func (t *table[T]) all(keep func(T) bool) []T {
	t.RLock()
	defer t.RUnlock()
	ids := make([]string, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return t.seq[ids[i]] < t.seq[ids[j]] })

	rows := make([]T, 0, len(ids))
	for _, id := range ids {
		if row := t.rows[id]; keep == nil || keep(row) {
			rows = append(rows, t.clone(row))
		}
	}
	return rows
}

func (t *table[T]) snapshot() map[string]T {
	t.RLock()
	defer t.RUnlock()
	snap := make(map[string]T, len(t.rows))
	for id, row := range t.rows {
		snap[id] = t.clone(row)
	}
	return snap
}

func (t *table[T]) restore(snap map[string]T) {
	t.Lock()
	defer t.Unlock()
	t.rows = snap
}

// WithinTx runs fn with a nil executor. Transactions are serialized, and when fn fails
// every table is restored to its state before fn ran.
func (db *DB) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	if err := fn(nil); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func (db *DB) snapshot() snapshot {
	return snapshot{
		user:       db.user.snapshot(),
		program:    db.program.snapshot(),
		lesson:     db.lesson.snapshot(),
		grant:      db.grant.snapshot(),
		progress:   db.progress.snapshot(),
		submission: db.submission.snapshot(),
		ticket:     db.ticket.snapshot(),
		payment:    db.payment.snapshot(),
		expense:    db.expense.snapshot(),
		note:       db.note.snapshot(),
	}
}

func (db *DB) restore(snap snapshot) {
	db.user.restore(snap.user)
	db.program.restore(snap.program)
	db.lesson.restore(snap.lesson)
	db.grant.restore(snap.grant)
	db.progress.restore(snap.progress)
	db.submission.restore(snap.submission)
	db.ticket.restore(snap.ticket)
	db.payment.restore(snap.payment)
	db.expense.restore(snap.expense)
	db.note.restore(snap.note)
}

// Row copies

func cloneUser(u user.User) user.User {
	u.Roles = append([]string(nil), u.Roles...)
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	u.LastLogin = cloneTime(u.LastLogin)
	return u
}

func cloneProgram(p program.Program) program.Program {
	p.Outline = p.Outline.Clone()
	p.Attachments = append([]program.Attachment{}, p.Attachments...)
	return p
}

func cloneLesson(l program.Lesson) program.Lesson {
	l.AccessStart = cloneTime(l.AccessStart)
	l.DeadlineAt = cloneTime(l.DeadlineAt)
	l.Blocks = append([]program.Block{}, l.Blocks...)
	l.Tasks = append([]program.Task{}, l.Tasks...)
	l.Attachments = append([]program.Attachment{}, l.Attachments...)
	if l.Practice != nil {
		p := *l.Practice
		p.CheckboxItems = append([]string(nil), p.CheckboxItems...)
		l.Practice = &p
	}
	return l
}

func cloneGrant(g learning.AccessGrant) learning.AccessGrant {
	g.EndDate = cloneTime(g.EndDate)
	return g
}

func cloneSubmission(s learning.Submission) learning.Submission {
	s.ReviewedAt = cloneTime(s.ReviewedAt)
	return s
}

func cloneTicket(t support.Ticket) support.Ticket {
	t.RepliedAt = cloneTime(t.RepliedAt)
	t.ClosedAt = cloneTime(t.ClosedAt)
	return t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
