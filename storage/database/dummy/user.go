package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/user"
)

type userRepository struct {
	db *table[user.User]
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = struct{}{}
	}
	taken := repo.db.all(func(u user.User) bool {
		_, excl := excluded[u.ID]
		return !excl && u.Email == email
	})
	if len(taken) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	repo.db.put(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	var keep func(user.User) bool
	if filter != nil && !filter.IsEmpty() {
		search := strings.ToLower(filter.Search)
		keep = func(u user.User) bool {
			// users with search keyword matching any Name or Email ?
			if search != "" &&
				!strings.Contains(strings.ToLower(u.Name), search) &&
				!strings.Contains(strings.ToLower(u.Email), search) {
				return false
			}
			// users with any of the specified roles
			if len(filter.Roles) > 0 {
				var found bool
				for _, r := range filter.Roles {
					if u.RoleStartsWith(r) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			if filter.IsActive != nil && u.IsActive != *filter.IsActive {
				return false
			}
			if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom.UTC()) {
				return false
			}
			if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo.UTC()) {
				return false
			}
			return true
		}
	}

	users := repo.db.all(keep)
	sortRows(users, ordering, func(u user.User, field string) interface{} {
		switch field {
		case "name":
			return strings.ToLower(u.Name)
		case "email":
			return u.Email
		case "last_login":
			if u.LastLogin == nil {
				return ""
			}
			return u.LastLogin.Format(sortableTime)
		default:
			return u.CreatedAt.Format(sortableTime)
		}
	})
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string, _ ...core.DBExecutor) (user.User, error) {
	if usr, ok := repo.db.get(id); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string, _ ...core.DBExecutor) (user.User, error) {
	users := repo.db.all(func(u user.User) bool { return u.Email == email })
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	if !repo.db.has(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	repo.db.put(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.db.delete(ids...)
	return nil
}

// reverse puts rows in reverse insertion order, so that a descending stable sort
// returns the last inserted first among equal keys.
func reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// sortableTime formats times so that they sort as strings.
const sortableTime = "2006-01-02T15:04:05.000000000"

// sortRows sorts rows by ordering, created_at ascending when ordering is empty.
// key returns the value of a field for a row, a string or an int.
func sortRows[T any](rows []T, ordering []core.DBOrdering, key func(row T, field string) interface{}) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := key(rows[i], ord.Field), key(rows[j], ord.Field)
			if a == b {
				continue
			}
			var less bool
			switch a := a.(type) {
			case int:
				less = a < b.(int)
			case string:
				less = a < b.(string)
			}
			if ord.Ascending {
				return less
			}
			return !less
		}
		return false
	})
}
