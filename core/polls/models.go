package polls

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Question struct {
	ID           string    `json:"id"`
	QuestionText string    `json:"question_text"`
	PubDate      time.Time `json:"pub_date"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	CreatedBy    string    `json:"created_by"` // immutable
}

var _ core.Ownable = Question{}

func (q Question) OwnerID() string { return q.CreatedBy }

func (q Question) WasPublishedRecently() bool {
	return q.PubDate.After(time.Now().Add(-24 * time.Hour))
}

type Choice struct {
	ID         string    `json:"id"`
	ChoiceText string    `json:"choice_text"`
	Votes      int       `json:"votes"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	QuestionID string    `json:"question_id"`
}

// NewQuestion contains information needed to create a new Question.
type NewQuestion struct {
	QuestionText string `json:"question_text" validate:"required,max=200"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.QuestionText = core.CleanString(nq.QuestionText)
	return validate.Struct(nq)
}

// UpdateQuestion defines what information may be provided to modify an existing Question.
type UpdateQuestion struct {
	QuestionText string `json:"question_text" validate:"omitempty,max=200"`
}

func (uq *UpdateQuestion) Validate(orig Question, validate *validator.Validate) error {
	if text := core.CleanString(uq.QuestionText); text != "" {
		uq.QuestionText = text
	} else {
		uq.QuestionText = orig.QuestionText
	}
	return validate.Struct(uq)
}

// NewChoice contains information needed to add a Choice to a Question.
type NewChoice struct {
	ChoiceText string `json:"choice_text" validate:"required,max=200"`
}

func (nc *NewChoice) Validate(validate *validator.Validate) error {
	nc.ChoiceText = core.CleanString(nc.ChoiceText)
	return validate.Struct(nc)
}
