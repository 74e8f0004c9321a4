package polls

import (
	"context"
	"errors"
	"fmt"
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
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		// QueryQuestions returns questions ordered by most recent publication first.
		QueryQuestions(ctx context.Context) ([]Question, error)
		GetQuestionByID(ctx context.Context, id string) (Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		// DeleteQuestionsByID also deletes the questions' choices.
		DeleteQuestionsByID(ctx context.Context, ids ...string) error

		CreateChoice(ctx context.Context, c Choice) (Choice, error)
		GetChoiceByID(ctx context.Context, id string) (Choice, error)
		QueryChoicesByQuestionID(ctx context.Context, questionID string) ([]Choice, error)
		// VoteChoice increments the choice's vote counter atomically;
		// concurrent votes never lose updates.
		VoteChoice(ctx context.Context, id string) (Choice, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) guard(obj core.Ownable, actor user.User, action, id string) error {
	if core.CanModify(obj, actor) {
		return nil
	}
	svc.logger.Warn(fmt.Sprintf("unauthorized question %s attempt on %q", action, id), actor)
	return ErrNotFound
}

func (svc *Service) Create(ctx context.Context, actor user.User, nq NewQuestion) (Question, error) {
	now := time.Now().UTC()
	q := Question{
		QuestionText: nq.QuestionText,
		PubDate:      now,
		CreatedAt:    now,
		CreatedBy:    actor.ID,
	}
	return svc.repo.CreateQuestion(ctx, q)
}

func (svc *Service) Query(ctx context.Context) ([]Question, error) {
	return svc.repo.QueryQuestions(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Question, error) {
	return svc.repo.GetQuestionByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, uq UpdateQuestion) (Question, error) {
	q, err := svc.repo.GetQuestionByID(ctx, id)
	if err != nil {
		return Question{}, err
	}
	if err = svc.guard(q, actor, "update", q.ID); err != nil {
		return Question{}, err
	}

	q.QuestionText = uq.QuestionText
	return svc.repo.UpdateQuestion(ctx, q)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	q, err := svc.repo.GetQuestionByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.guard(q, actor, "delete", q.ID); err != nil {
		return err
	}
	return svc.repo.DeleteQuestionsByID(ctx, q.ID)
}

// AddChoice adds a choice to a question; only the question's owner (or a
// superuser) may do so.
func (svc *Service) AddChoice(ctx context.Context, actor user.User, questionID string, nc NewChoice) (Choice, error) {
	q, err := svc.repo.GetQuestionByID(ctx, questionID)
	if err != nil {
		return Choice{}, err
	}
	if err = svc.guard(q, actor, "update", q.ID); err != nil {
		return Choice{}, err
	}

	c := Choice{
		ChoiceText: nc.ChoiceText,
		CreatedAt:  time.Now().UTC(),
		QuestionID: q.ID,
	}
	return svc.repo.CreateChoice(ctx, c)
}

func (svc *Service) Choices(ctx context.Context, questionID string) ([]Choice, error) {
	return svc.repo.QueryChoicesByQuestionID(ctx, questionID)
}

func (svc *Service) Vote(ctx context.Context, choiceID string) (Choice, error) {
	return svc.repo.VoteChoice(ctx, choiceID)
}
