package classroom

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// ErrNotFound is returned both when an entity does not exist and when the
	// acting user may not modify it; callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")
)

type (
	Repository interface {
		CreateClassroom(ctx context.Context, room Classroom) (Classroom, error)
		GetClassroomByID(ctx context.Context, id string) (Classroom, error)
		// QueryClassroomsByMember returns classrooms the user created or is
		// enrolled in, most recently created first.
		QueryClassroomsByMember(ctx context.Context, userID string) ([]Classroom, error)
		UpdateClassroom(ctx context.Context, room Classroom) (Classroom, error)
		// DeleteClassroomsByID also deletes the classrooms' enrollments and posts.
		DeleteClassroomsByID(ctx context.Context, ids ...string) error

		// GetOrCreateEnrollment atomically resolves the (student, classroom)
		// pair to a single Enrollment; the bool reports whether a new row was
		// created. Two concurrent calls for the same pair never create two rows.
		GetOrCreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, bool, error)
		GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
		QueryEnrollmentsByClassroomID(ctx context.Context, classroomID string) ([]Enrollment, error)
		DeleteEnrollmentsByID(ctx context.Context, ids ...string) error

		CreatePost(ctx context.Context, post Post) (Post, error)
		GetPostByID(ctx context.Context, id string) (Post, error)
		// QueryPostsByClassroomID returns posts ordered by most recent update first.
		QueryPostsByClassroomID(ctx context.Context, classroomID string) ([]Post, error)
		UpdatePost(ctx context.Context, post Post) (Post, error)
		DeletePostsByID(ctx context.Context, ids ...string) error
	}

	// UserDirectory resolves user references on classroom members.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		QueryByID(ctx context.Context, ids ...string) ([]user.User, error)
	}

	Service struct {
		repo    Repository
		users   UserDirectory
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(repo Repository, users UserDirectory, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

// guard resolves the ownership predicate for a mutation. A refusal is logged
// as a potential security event and reported as ErrNotFound so unauthorized
// callers cannot probe for entity existence.
func (svc *Service) guard(obj core.Ownable, actor user.User, entity, action, id string) error {
	if core.CanModify(obj, actor) {
		return nil
	}
	svc.logger.Warn(fmt.Sprintf("unauthorized %s %s attempt on %q", entity, action, id), actor)
	return ErrNotFound
}

func (svc *Service) Create(ctx context.Context, actor user.User, nc NewClassroom) (Classroom, error) {
	room := Classroom{
		Name:      nc.Name,
		Section:   nc.Section,
		Subject:   nc.Subject,
		Room:      nc.Room,
		CreatedAt: time.Now().UTC(),
		CreatedBy: actor.ID,
	}
	room.SetActive(true)
	return svc.repo.CreateClassroom(ctx, room)
}

// QueryVisible returns the classrooms the actor created or is enrolled in.
// There is no global classroom listing.
func (svc *Service) QueryVisible(ctx context.Context, actor user.User) ([]Classroom, error) {
	return svc.repo.QueryClassroomsByMember(ctx, actor.ID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, uc UpdateClassroom) (Classroom, error) {
	room, err := svc.repo.GetClassroomByID(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	if err = svc.guard(room, actor, "classroom", "update", room.ID); err != nil {
		return Classroom{}, err
	}

	room.Name = uc.Name
	room.Section = uc.Section
	room.Subject = uc.Subject
	room.Room = uc.Room
	return svc.repo.UpdateClassroom(ctx, room)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	room, err := svc.repo.GetClassroomByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.guard(room, actor, "classroom", "delete", room.ID); err != nil {
		return err
	}
	return svc.repo.DeleteClassroomsByID(ctx, room.ID)
}

// Enroll resolves a join code to a classroom and enrolls the student in it.
// The bool reports whether a new enrollment was created; re-submitting a code
// keeps the original enrollment and sends no mail. The confirmation is sent
// to the student and the site contact address on first-time enrollment only.
func (svc *Service) Enroll(ctx context.Context, student user.User, jc JoinClassroom) (Enrollment, bool, error) {
	room, err := svc.repo.GetClassroomByID(ctx, jc.Code)
	if err != nil {
		return Enrollment{}, false, err
	}

	enr := Enrollment{
		ClassroomID: room.ID,
		StudentID:   student.ID,
		DateJoined:  time.Now().UTC(),
	}
	enr.SetActive(true)

	enr, created, err := svc.repo.GetOrCreateEnrollment(ctx, enr)
	if err != nil {
		return Enrollment{}, false, err
	}
	if created {
		svc.logger.Info(fmt.Sprintf("sending enrollment email to %s", student.Email))
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}, svc.conf.ContactEmail},
			Subject:      "Enrollment confirmation",
			TemplateName: "enrollment-confirm",
			TemplateData: struct {
				Student   user.User
				Classroom Classroom
			}{student, room},
		})
	}
	return enr, created, nil
}

func (svc *Service) Unenroll(ctx context.Context, actor user.User, id string) error {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.guard(enr, actor, "enrollment", "delete", enr.ID); err != nil {
		return err
	}
	return svc.repo.DeleteEnrollmentsByID(ctx, enr.ID)
}

func (svc *Service) CreatePost(ctx context.Context, author user.User, classroomID string, np NewPost) (Post, error) {
	room, err := svc.repo.GetClassroomByID(ctx, classroomID)
	if err != nil {
		return Post{}, err
	}

	now := time.Now().UTC()
	post := Post{
		Title:       np.Title,
		Content:     np.Content,
		ClassroomID: room.ID,
		Author:      author.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreatePost(ctx, post)
}

func (svc *Service) GetPostByID(ctx context.Context, id string) (Post, error) {
	return svc.repo.GetPostByID(ctx, id)
}

// Posts returns a classroom's posts, most recently updated first.
func (svc *Service) Posts(ctx context.Context, classroomID string) ([]Post, error) {
	return svc.repo.QueryPostsByClassroomID(ctx, classroomID)
}

func (svc *Service) UpdatePost(ctx context.Context, actor user.User, id string, up UpdatePost) (Post, error) {
	post, err := svc.repo.GetPostByID(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if err = svc.guard(post, actor, "post", "update", post.ID); err != nil {
		return Post{}, err
	}

	post.Title = up.Title
	post.Content = up.Content
	post.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePost(ctx, post)
}

func (svc *Service) DeletePost(ctx context.Context, actor user.User, id string) error {
	post, err := svc.repo.GetPostByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.guard(post, actor, "post", "delete", post.ID); err != nil {
		return err
	}
	return svc.repo.DeletePostsByID(ctx, post.ID)
}

// People returns a classroom's creator and its enrolled students.
func (svc *Service) People(ctx context.Context, classroomID string) (People, error) {
	room, err := svc.repo.GetClassroomByID(ctx, classroomID)
	if err != nil {
		return People{}, err
	}

	creator, err := svc.users.GetByID(ctx, room.CreatedBy)
	if err != nil {
		return People{}, err
	}

	enrs, err := svc.repo.QueryEnrollmentsByClassroomID(ctx, room.ID)
	if err != nil {
		return People{}, err
	}
	ids := make([]string, 0, len(enrs))
	for _, enr := range enrs {
		ids = append(ids, enr.StudentID)
	}
	students, err := svc.users.QueryByID(ctx, ids...)
	if err != nil {
		return People{}, err
	}
	return People{Creator: creator, Students: students}, nil
}
