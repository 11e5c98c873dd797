package sqlxrepos

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/estetika/academy/core"
)

// repository holds what every sqlx repository shares: the database, used when the
// service does not hand an executor over, and the query helpers.
type repository struct {
	db *sqlx.DB
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

// selectAll runs a query written with ? placeholders and scans every row into dest,
// a pointer to a slice of structs with db tags.
func (repo repository) selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

// exec runs a statement written with ? placeholders and returns the number of affected rows.
func (repo repository) exec(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (int64, error) {
	res, err := exec.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// deleteIn deletes the rows of table whose id is in ids.
func (repo repository) deleteIn(ctx context.Context, exec core.DBExecutor, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM "+table+" WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	_, err = repo.exec(ctx, exec, query, args...)
	return err
}

// where joins conditions with AND.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// addIn adds a "column IN (...)" condition.
func (w *where) addIn(column string, vals []string) error {
	cond, args, err := sqlx.In(column+" IN (?)", vals)
	if err != nil {
		return err
	}
	w.add(cond, args...)
	return nil
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy builds an ORDER BY clause from the orderings on allowed fields.
// allowed maps API field names to columns. Unknown fields are ignored.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, fallback string) string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(orderList) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func joinOr(conds []string) string {
	return strings.Join(conds, " OR ")
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

func toJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encoding JSON column")
	}
	return string(data), nil
}

func fromJSON(data string, v interface{}) error {
	if data == "" {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(data), v), "decoding JSON column")
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

// trapNoRows maps an empty result to notFound.
func trapNoRows(n int, notFound error) error {
	if n == 0 {
		return notFound
	}
	return nil
}
