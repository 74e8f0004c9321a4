package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/classroom"
)

type classroomRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Section   string    `db:"section"`
	Subject   string    `db:"subject"`
	Room      string    `db:"room"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	CreatedBy string    `db:"created_by"`
}

func (r classroomRow) toClassroom() classroom.Classroom {
	room := classroom.Classroom{
		ID:        r.ID,
		Name:      r.Name,
		Section:   r.Section,
		Subject:   r.Subject,
		Room:      r.Room,
		CreatedAt: r.CreatedAt,
		CreatedBy: r.CreatedBy,
	}
	room.SetActive(r.IsActive)
	return room
}

type enrollmentRow struct {
	ID          string    `db:"id"`
	ClassroomID string    `db:"classroom_id"`
	StudentID   string    `db:"student_id"`
	DateJoined  time.Time `db:"date_joined"`
	IsActive    bool      `db:"is_active"`
	Marks       int       `db:"marks"`
}

func (r enrollmentRow) toEnrollment() classroom.Enrollment {
	enr := classroom.Enrollment{
		ID:          r.ID,
		ClassroomID: r.ClassroomID,
		StudentID:   r.StudentID,
		DateJoined:  r.DateJoined,
		Marks:       r.Marks,
	}
	enr.SetActive(r.IsActive)
	return enr
}

type postRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Content     string    `db:"content"`
	ClassroomID string    `db:"classroom_id"`
	Author      string    `db:"author"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r postRow) toPost() classroom.Post {
	return classroom.Post(r)
}

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *sql.DB) *classroomRepository {
	return &classroomRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, room classroom.Classroom) (classroom.Classroom, error) {
	room.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO classroom (id, name, section, subject, room, is_active, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		room.ID, room.Name, room.Section, room.Subject, room.Room, room.Active(), room.CreatedAt, room.CreatedBy,
	)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "creating classroom")
	}
	return room, nil
}

func (repo *classroomRepository) GetClassroomByID(ctx context.Context, id string) (classroom.Classroom, error) {
	var row classroomRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM classroom WHERE id = $1`, id); err != nil {
		return classroom.Classroom{}, trapNoRowsErr(err, classroom.ErrNotFound, "getting classroom")
	}
	return row.toClassroom(), nil
}

func (repo *classroomRepository) QueryClassroomsByMember(ctx context.Context, userID string) ([]classroom.Classroom, error) {
	var rows []classroomRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM classroom
		WHERE created_by = $1 OR id IN (SELECT classroom_id FROM enrollment WHERE student_id = $1)
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	rooms := make([]classroom.Classroom, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, row.toClassroom())
	}
	return rooms, nil
}

func (repo *classroomRepository) UpdateClassroom(ctx context.Context, room classroom.Classroom) (classroom.Classroom, error) {
	var row classroomRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE classroom SET name = $1, section = $2, subject = $3, room = $4, is_active = $5
		WHERE id = $6 RETURNING *`,
		room.Name, room.Section, room.Subject, room.Room, room.Active(), room.ID,
	)
	if err != nil {
		return classroom.Classroom{}, trapNoRowsErr(err, classroom.ErrNotFound, "updating classroom")
	}
	return row.toClassroom(), nil
}

func (repo *classroomRepository) DeleteClassroomsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	// enrollments and posts go with it via FK cascade
	_, err := repo.db.ExecContext(ctx, `DELETE FROM classroom WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting classrooms")
}

func (repo *classroomRepository) GetOrCreateEnrollment(ctx context.Context, enr classroom.Enrollment) (classroom.Enrollment, bool, error) {
	enr.ID = uuid.New().String()
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO enrollment (id, classroom_id, student_id, date_joined, is_active, marks)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (classroom_id, student_id) DO NOTHING
		RETURNING *`,
		enr.ID, enr.ClassroomID, enr.StudentID, enr.DateJoined, enr.Active(), enr.Marks,
	)
	if err == nil {
		return row.toEnrollment(), true, nil
	}
	if errors.Cause(err) != sql.ErrNoRows {
		return classroom.Enrollment{}, false, errors.Wrap(err, "creating enrollment")
	}

	// conflict: the pair already exists, fetch it
	err = repo.db.GetContext(ctx, &row, `
		SELECT * FROM enrollment WHERE classroom_id = $1 AND student_id = $2`,
		enr.ClassroomID, enr.StudentID,
	)
	if err != nil {
		return classroom.Enrollment{}, false, trapNoRowsErr(err, classroom.ErrNotFound, "getting enrollment")
	}
	return row.toEnrollment(), false, nil
}

func (repo *classroomRepository) GetEnrollmentByID(ctx context.Context, id string) (classroom.Enrollment, error) {
	var row enrollmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM enrollment WHERE id = $1`, id); err != nil {
		return classroom.Enrollment{}, trapNoRowsErr(err, classroom.ErrNotFound, "getting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *classroomRepository) QueryEnrollmentsByClassroomID(ctx context.Context, classroomID string) ([]classroom.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM enrollment WHERE classroom_id = $1 ORDER BY date_joined`, classroomID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]classroom.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.toEnrollment())
	}
	return enrs, nil
}

func (repo *classroomRepository) DeleteEnrollmentsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM enrollment WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting enrollments")
}

func (repo *classroomRepository) CreatePost(ctx context.Context, post classroom.Post) (classroom.Post, error) {
	post.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO post (id, title, content, classroom_id, author, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		post.ID, post.Title, post.Content, post.ClassroomID, post.Author, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return classroom.Post{}, errors.Wrap(err, "creating post")
	}
	return post, nil
}

func (repo *classroomRepository) GetPostByID(ctx context.Context, id string) (classroom.Post, error) {
	var row postRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM post WHERE id = $1`, id); err != nil {
		return classroom.Post{}, trapNoRowsErr(err, classroom.ErrNotFound, "getting post")
	}
	return row.toPost(), nil
}

func (repo *classroomRepository) QueryPostsByClassroomID(ctx context.Context, classroomID string) ([]classroom.Post, error) {
	var rows []postRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM post WHERE classroom_id = $1 ORDER BY updated_at DESC`, classroomID)
	if err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	posts := make([]classroom.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toPost())
	}
	return posts, nil
}

func (repo *classroomRepository) UpdatePost(ctx context.Context, post classroom.Post) (classroom.Post, error) {
	var row postRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE post SET title = $1, content = $2, updated_at = $3 WHERE id = $4 RETURNING *`,
		post.Title, post.Content, post.UpdatedAt, post.ID,
	)
	if err != nil {
		return classroom.Post{}, trapNoRowsErr(err, classroom.ErrNotFound, "updating post")
	}
	return row.toPost(), nil
}

func (repo *classroomRepository) DeletePostsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM post WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting posts")
}
