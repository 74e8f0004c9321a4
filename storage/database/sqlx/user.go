package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const (
	uniqueViolation = pq.ErrorCode("23505")
	invalidTextRepr = pq.ErrorCode("22P02")
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	IsActive     bool        `db:"is_active"`
	IsStaff      bool        `db:"is_staff"`
	IsSuperuser  bool        `db:"is_superuser"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsStaff:      r.IsStaff,
		IsSuperuser:  r.IsSuperuser,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
	usr.SetActive(r.IsActive)
	return usr
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.Active(),
		IsStaff:      usr.IsStaff,
		IsSuperuser:  usr.IsSuperuser,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	}
}

type profileRow struct {
	ID        string    `db:"id"`
	Bio       string    `db:"bio"`
	Location  string    `db:"location"`
	BirthDate null.Time `db:"birth_date"`
	UserID    string    `db:"user_id"`
}

func (r profileRow) toProfile() user.Profile {
	prof := user.Profile{
		ID:       r.ID,
		Bio:      r.Bio,
		Location: r.Location,
		UserID:   r.UserID,
	}
	if r.BirthDate.Valid {
		bd := r.BirthDate.Time
		prof.BirthDate = &bd
	}
	return prof
}

func newProfileRow(prof user.Profile) profileRow {
	r := profileRow{
		ID:       prof.ID,
		Bio:      prof.Bio,
		Location: prof.Location,
		UserID:   prof.UserID,
	}
	if prof.BirthDate != nil {
		r.BirthDate = null.TimeFrom(*prof.BirthDate)
	}
	return r
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	query := `SELECT username, email FROM "user" WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		query += ` AND id != ALL($3)`
		args = append(args, pq.Array(ids))
	}

	rows, err := repo.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var uname, mail null.String
		if err = rows.Scan(&uname, &mail); err != nil {
			return errors.Wrap(err, "checking username uniqueness")
		}
		if username != "" && uname.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && mail.String == email {
			return user.ErrEmailExists
		}
	}
	return rows.Err()
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := newUserRow(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, name, username, email, is_active, is_staff, is_superuser, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :username, :email, :is_active, :is_staff, :is_superuser, :password_hash, :created_at, :updated_at, :last_login)`,
		row,
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			if strings.Contains(pqErr.Constraint, "email") {
				return user.User{}, user.ErrEmailExists
			}
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s)", p))
		}
		if filter.IsStaff != nil {
			conds = append(conds, "is_staff = "+arg(*filter.IsStaff))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo))
		}
	}

	query := `SELECT * FROM "user"`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		ords := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			ords = append(ords, ord.String())
		}
		query += " ORDER BY " + strings.Join(ords, ", ")
	} else {
		query += " ORDER BY created_at DESC"
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) QueryUsersByID(ctx context.Context, ids ...string) ([]user.User, error) {
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" WHERE id = ANY($1) ORDER BY created_at`, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "querying users by id")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		cond string
		args []interface{}
	)
	switch {
	case filter.ID != "":
		cond, args = "id = $1", []interface{}{filter.ID}
	case filter.Username != "":
		cond, args = "username = $1", []interface{}{filter.Username}
	case filter.Email != "":
		cond, args = "email = $1", []interface{}{filter.Email}
	case len(filter.UsernameOrEmail) > 0:
		cond = "(username = ANY($1) OR email = ANY($1))"
		args = []interface{}{pq.Array(filter.UsernameOrEmail)}
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE `+cond, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive, isStaff *bool) (user.User, error) {
	// only save set fields
	var (
		sets []string
		args []interface{}
	)
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Username != "" {
		set("username", usr.Username)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	if isStaff != nil {
		set("is_staff", *isStaff)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin)
	}
	if !usr.UpdatedAt.IsZero() {
		set("updated_at", usr.UpdatedAt)
	}

	args = append(args, usr.ID)
	query := fmt.Sprintf(`UPDATE "user" SET %s WHERE id = $%d RETURNING *`, strings.Join(sets, ", "), len(args))

	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			if strings.Contains(pqErr.Constraint, "email") {
				return user.User{}, user.ErrEmailExists
			}
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID != "" {
		if updated, err := repo.UpdateUser(ctx, usr, usr.IsActive, &usr.IsStaff); err == nil {
			return updated, nil
		} else if err != user.ErrNotFound {
			return user.User{}, err
		}
	}
	return repo.CreateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting users")
}

func (repo *userRepository) CreateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	prof.ID = uuid.New().String()
	row := newProfileRow(prof)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO profile (id, bio, location, birth_date, user_id)
		VALUES (:id, :bio, :location, :birth_date, :user_id)`,
		row,
	)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "creating profile")
	}
	return prof, nil
}

func (repo *userRepository) UpdateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	row := newProfileRow(prof)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE profile SET bio = :bio, location = :location, birth_date = :birth_date WHERE id = :id`,
		row,
	)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "updating profile")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.Profile{}, user.ErrNotFound
	}
	return prof, nil
}

func (repo *userRepository) QueryProfiles(ctx context.Context) ([]user.Profile, error) {
	var rows []profileRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM profile`); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	profs := make([]user.Profile, 0, len(rows))
	for _, row := range rows {
		profs = append(profs, row.toProfile())
	}
	return profs, nil
}

func (repo *userRepository) GetProfileByID(ctx context.Context, id string) (user.Profile, error) {
	var row profileRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM profile WHERE id = $1`, id); err != nil {
		return user.Profile{}, trapNoRowsErr(err, user.ErrNotFound, "getting profile")
	}
	return row.toProfile(), nil
}

func (repo *userRepository) GetProfileByUserID(ctx context.Context, userID string) (user.Profile, error) {
	var row profileRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM profile WHERE user_id = $1`, userID); err != nil {
		return user.Profile{}, trapNoRowsErr(err, user.ErrNotFound, "getting profile")
	}
	return row.toProfile(), nil
}

// trapNoRowsErr converts sql.ErrNoRows to the domain's sentinel.
// Postgres raises 22P02 when a malformed uuid hits a uuid column; a lookup
// with one reads as absence, same as the inmem repositories.
func trapNoRowsErr(err error, sentinel error, msg string) error {
	cause := errors.Cause(err)
	if cause == sql.ErrNoRows {
		return sentinel
	}
	if pqErr, ok := cause.(*pq.Error); ok && pqErr.Code == invalidTextRepr {
		return sentinel
	}
	return errors.Wrap(err, msg)
}
