package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/polls"
)

type questionRow struct {
	ID           string    `db:"id"`
	QuestionText string    `db:"question_text"`
	PubDate      time.Time `db:"pub_date"`
	CreatedAt    time.Time `db:"created_at"`
	CreatedBy    string    `db:"created_by"`
}

func (r questionRow) toQuestion() polls.Question {
	return polls.Question(r)
}

type choiceRow struct {
	ID         string    `db:"id"`
	ChoiceText string    `db:"choice_text"`
	Votes      int       `db:"votes"`
	CreatedAt  time.Time `db:"created_at"`
	QuestionID string    `db:"question_id"`
}

func (r choiceRow) toChoice() polls.Choice {
	return polls.Choice(r)
}

type pollsRepository struct {
	db *sqlx.DB
}

var _ polls.Repository = (*pollsRepository)(nil)

func NewPollsRepository(db *sql.DB) *pollsRepository {
	return &pollsRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *pollsRepository) CreateQuestion(ctx context.Context, q polls.Question) (polls.Question, error) {
	q.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO question (id, question_text, pub_date, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5)`,
		q.ID, q.QuestionText, q.PubDate, q.CreatedAt, q.CreatedBy,
	)
	if err != nil {
		return polls.Question{}, errors.Wrap(err, "creating question")
	}
	return q, nil
}

func (repo *pollsRepository) QueryQuestions(ctx context.Context) ([]polls.Question, error) {
	var rows []questionRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM question ORDER BY pub_date DESC`); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	qs := make([]polls.Question, 0, len(rows))
	for _, row := range rows {
		qs = append(qs, row.toQuestion())
	}
	return qs, nil
}

func (repo *pollsRepository) GetQuestionByID(ctx context.Context, id string) (polls.Question, error) {
	var row questionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM question WHERE id = $1`, id); err != nil {
		return polls.Question{}, trapNoRowsErr(err, polls.ErrNotFound, "getting question")
	}
	return row.toQuestion(), nil
}

func (repo *pollsRepository) UpdateQuestion(ctx context.Context, q polls.Question) (polls.Question, error) {
	var row questionRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE question SET question_text = $1 WHERE id = $2 RETURNING *`,
		q.QuestionText, q.ID,
	)
	if err != nil {
		return polls.Question{}, trapNoRowsErr(err, polls.ErrNotFound, "updating question")
	}
	return row.toQuestion(), nil
}

func (repo *pollsRepository) DeleteQuestionsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	// choices go with it via FK cascade
	_, err := repo.db.ExecContext(ctx, `DELETE FROM question WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting questions")
}

func (repo *pollsRepository) CreateChoice(ctx context.Context, c polls.Choice) (polls.Choice, error) {
	c.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO choice (id, choice_text, votes, created_at, question_id)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ChoiceText, c.Votes, c.CreatedAt, c.QuestionID,
	)
	if err != nil {
		return polls.Choice{}, errors.Wrap(err, "creating choice")
	}
	return c, nil
}

func (repo *pollsRepository) GetChoiceByID(ctx context.Context, id string) (polls.Choice, error) {
	var row choiceRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM choice WHERE id = $1`, id); err != nil {
		return polls.Choice{}, trapNoRowsErr(err, polls.ErrNotFound, "getting choice")
	}
	return row.toChoice(), nil
}

func (repo *pollsRepository) QueryChoicesByQuestionID(ctx context.Context, questionID string) ([]polls.Choice, error) {
	var rows []choiceRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM choice WHERE question_id = $1 ORDER BY created_at`, questionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying choices")
	}
	choices := make([]polls.Choice, 0, len(rows))
	for _, row := range rows {
		choices = append(choices, row.toChoice())
	}
	return choices, nil
}

func (repo *pollsRepository) VoteChoice(ctx context.Context, id string) (polls.Choice, error) {
	// single UPDATE so concurrent votes cannot lose increments
	var row choiceRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE choice SET votes = votes + 1 WHERE id = $1 RETURNING *`, id)
	if err != nil {
		return polls.Choice{}, trapNoRowsErr(err, polls.ErrNotFound, "voting choice")
	}
	return row.toChoice(), nil
}
