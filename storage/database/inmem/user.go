package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db   *userTable
	prof *profileTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user, prof: db.profile}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range repo.query() {
		if isExcluded(usr, excludedUsers, exclUsrsLen) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = uuid.New().String()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	users := repo.query()
	repo.db.mutex.RUnlock()

	if filter != nil && !filter.IsEmpty() {
		matched := users[:0]
		for _, usr := range users {
			if matchesFilter(usr, filter) {
				matched = append(matched, usr)
			}
		}
		users = matched
	}

	if len(ordering) > 0 && ordering[0].Field == "created_at" {
		asc := ordering[0].Ascending
		sort.Slice(users, func(i, j int) bool {
			if asc {
				return users[i].CreatedAt.Before(users[j].CreatedAt)
			}
			return users[i].CreatedAt.After(users[j].CreatedAt)
		})
	}
	return users, nil
}

func matchesFilter(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.Name), search) &&
			!strings.Contains(strings.ToLower(usr.Username), search) &&
			!strings.Contains(strings.ToLower(usr.Email), search) {
			return false
		}
	}
	if filter.IsStaff != nil && usr.IsStaff != *filter.IsStaff {
		return false
	}
	if filter.IsActive != nil && usr.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *userRepository) QueryUsersByID(_ context.Context, ids ...string) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.table[id]; ok {
			users = append(users, *usr)
		}
	}
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.query() {
		switch {
		case filter.Username != "":
			if usr.Username == filter.Username {
				return usr, nil
			}
		case filter.Email != "":
			if usr.Email == filter.Email {
				return usr, nil
			}
		case len(filter.UsernameOrEmail) > 0:
			for _, uname := range filter.UsernameOrEmail {
				if usr.Username == uname || usr.Email == uname {
					return usr, nil
				}
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, isActive, isStaff *bool) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		origUsr.SetActive(*isActive)
	}
	if isStaff != nil {
		origUsr.IsStaff = *isStaff
	}
	if usr.Name != "" {
		origUsr.Name = usr.Name
	}
	if usr.Username != "" {
		origUsr.Username = usr.Username
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if !usr.LastLogin.IsZero() {
		origUsr.LastLogin = usr.LastLogin
	}
	if !usr.UpdatedAt.IsZero() {
		origUsr.UpdatedAt = usr.UpdatedAt
	}

	repo.db.table[usr.ID] = origUsr
	return *origUsr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID != "" {
		if _, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID}); err == nil {
			return repo.UpdateUser(ctx, usr, usr.IsActive, &usr.IsStaff)
		}
	}
	return repo.CreateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.prof.mutex.Lock()
	defer repo.prof.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
		for pid, prof := range repo.prof.table {
			if prof.UserID == id {
				delete(repo.prof.table, pid)
			}
		}
	}
	return nil
}

func (repo *userRepository) CreateProfile(_ context.Context, prof user.Profile) (user.Profile, error) {
	repo.prof.mutex.Lock()
	defer repo.prof.mutex.Unlock()

	prof.ID = uuid.New().String()
	repo.prof.table[prof.ID] = &prof
	return prof, nil
}

func (repo *userRepository) UpdateProfile(_ context.Context, prof user.Profile) (user.Profile, error) {
	repo.prof.mutex.Lock()
	defer repo.prof.mutex.Unlock()

	if _, ok := repo.prof.table[prof.ID]; !ok {
		return user.Profile{}, user.ErrNotFound
	}
	repo.prof.table[prof.ID] = &prof
	return prof, nil
}

func (repo *userRepository) QueryProfiles(_ context.Context) ([]user.Profile, error) {
	repo.prof.mutex.RLock()
	defer repo.prof.mutex.RUnlock()

	profs := make([]user.Profile, 0, len(repo.prof.table))
	for _, prof := range repo.prof.table {
		profs = append(profs, *prof)
	}
	return profs, nil
}

func (repo *userRepository) GetProfileByID(_ context.Context, id string) (user.Profile, error) {
	repo.prof.mutex.RLock()
	defer repo.prof.mutex.RUnlock()

	if prof, ok := repo.prof.table[id]; ok {
		return *prof, nil
	}
	return user.Profile{}, user.ErrNotFound
}

func (repo *userRepository) GetProfileByUserID(_ context.Context, userID string) (user.Profile, error) {
	repo.prof.mutex.RLock()
	defer repo.prof.mutex.RUnlock()

	for _, prof := range repo.prof.table {
		if prof.UserID == userID {
			return *prof, nil
		}
	}
	return user.Profile{}, user.ErrNotFound
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID })
	return idx < n && excludedUsers[idx].ID == usr.ID
}
