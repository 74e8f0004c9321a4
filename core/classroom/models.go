package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type Classroom struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Section   string    `json:"section"`
	Subject   string    `json:"subject"`
	Room      string    `json:"room"`
	IsActive  *bool     `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	CreatedBy string    `json:"created_by"` // immutable
}

var _ core.Ownable = Classroom{}

func (c Classroom) OwnerID() string { return c.CreatedBy }

func (c *Classroom) SetActive(active bool) { c.IsActive = &active }

func (c Classroom) Active() bool { return c.IsActive != nil && *c.IsActive }

// Enrollment links one student to one classroom.
// At most one exists per (student, classroom) pair.
type Enrollment struct {
	ID          string    `json:"id"`
	ClassroomID string    `json:"classroom_id"`
	StudentID   string    `json:"student_id"`
	DateJoined  time.Time `json:"date_joined"` // set once
	IsActive    *bool     `json:"is_active"`
	Marks       int       `json:"marks"`
}

var _ core.Ownable = Enrollment{}

func (e Enrollment) OwnerID() string { return e.StudentID }

func (e *Enrollment) SetActive(active bool) { e.IsActive = &active }

func (e Enrollment) Active() bool { return e.IsActive != nil && *e.IsActive }

type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ClassroomID string    `json:"classroom_id"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC; refreshed on every mutation
}

var _ core.Ownable = Post{}

func (p Post) OwnerID() string { return p.Author }

// NewClassroom contains information needed to create a new Classroom.
type NewClassroom struct {
	Name    string `json:"name" validate:"required,max=200"`
	Section string `json:"section" validate:"omitempty,max=200"`
	Subject string `json:"subject" validate:"omitempty,max=200"`
	Room    string `json:"room" validate:"omitempty,max=200"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Section = core.CleanString(nc.Section)
	nc.Subject = core.CleanString(nc.Subject)
	nc.Room = core.CleanString(nc.Room)
	return validate.Struct(nc)
}

// UpdateClassroom defines what information may be provided to modify an existing Classroom.
// Empty fields are kept as is.
type UpdateClassroom struct {
	Name    string `json:"name" validate:"omitempty,max=200"`
	Section string `json:"section" validate:"omitempty,max=200"`
	Subject string `json:"subject" validate:"omitempty,max=200"`
	Room    string `json:"room" validate:"omitempty,max=200"`
}

func (uc *UpdateClassroom) Validate(orig Classroom, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if section := core.CleanString(uc.Section); section != "" {
		uc.Section = section
	} else {
		uc.Section = orig.Section
	}
	if subject := core.CleanString(uc.Subject); subject != "" {
		uc.Subject = subject
	} else {
		uc.Subject = orig.Subject
	}
	if room := core.CleanString(uc.Room); room != "" {
		uc.Room = room
	} else {
		uc.Room = orig.Room
	}
	return validate.Struct(uc)
}

// JoinClassroom is a student's enrollment request; Code is the classroom's
// identifier, shared out-of-band.
type JoinClassroom struct {
	Code string `json:"code" validate:"required,uuid4"`
}

func (jc *JoinClassroom) Validate(validate *validator.Validate) error {
	jc.Code = core.CleanString(jc.Code, true /* lower */)
	return validate.Struct(jc)
}

// NewPost contains information needed to post an announcement to a Classroom.
type NewPost struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Content = core.CleanString(np.Content)
	return validate.Struct(np)
}

// UpdatePost defines what information may be provided to modify an existing Post.
// Empty fields are kept as is.
type UpdatePost struct {
	Title   string `json:"title" validate:"omitempty,max=200"`
	Content string `json:"content"`
}

func (up *UpdatePost) Validate(orig Post, validate *validator.Validate) error {
	if title := core.CleanString(up.Title); title != "" {
		up.Title = title
	} else {
		up.Title = orig.Title
	}
	if content := core.CleanString(up.Content); content != "" {
		up.Content = content
	} else {
		up.Content = orig.Content
	}
	return validate.Struct(up)
}

// People lists a classroom's members: its creator and the enrolled students.
type People struct {
	Creator  user.User   `json:"creator"`
	Students []user.User `json:"students"`
}
