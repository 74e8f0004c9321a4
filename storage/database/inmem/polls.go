package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/polls"
)

type pollsRepository struct {
	db     *questionTable
	choice *choiceTable
}

var _ polls.Repository = (*pollsRepository)(nil)

func NewPollsRepository(db *DB) *pollsRepository {
	return &pollsRepository{db: db.question, choice: db.choice}
}

func (repo *pollsRepository) CreateQuestion(_ context.Context, q polls.Question) (polls.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	q.ID = uuid.New().String()
	repo.db.table[q.ID] = &q
	return q, nil
}

func (repo *pollsRepository) QueryQuestions(_ context.Context) ([]polls.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	qs := make([]polls.Question, 0, len(repo.db.table))
	for _, q := range repo.db.table {
		qs = append(qs, *q)
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].PubDate.After(qs[j].PubDate) })
	return qs, nil
}

func (repo *pollsRepository) GetQuestionByID(_ context.Context, id string) (polls.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.table[id]; ok {
		return *q, nil
	}
	return polls.Question{}, polls.ErrNotFound
}

func (repo *pollsRepository) UpdateQuestion(_ context.Context, q polls.Question) (polls.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[q.ID]
	if !ok {
		return polls.Question{}, polls.ErrNotFound
	}
	q.PubDate = orig.PubDate
	q.CreatedAt = orig.CreatedAt
	q.CreatedBy = orig.CreatedBy
	repo.db.table[q.ID] = &q
	return q, nil
}

func (repo *pollsRepository) DeleteQuestionsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.choice.mutex.Lock()
	defer repo.choice.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
		for cid, c := range repo.choice.table {
			if c.QuestionID == id {
				delete(repo.choice.table, cid)
			}
		}
	}
	return nil
}

func (repo *pollsRepository) CreateChoice(_ context.Context, c polls.Choice) (polls.Choice, error) {
	repo.choice.mutex.Lock()
	defer repo.choice.mutex.Unlock()

	c.ID = uuid.New().String()
	repo.choice.table[c.ID] = &c
	return c, nil
}

func (repo *pollsRepository) GetChoiceByID(_ context.Context, id string) (polls.Choice, error) {
	repo.choice.mutex.RLock()
	defer repo.choice.mutex.RUnlock()

	if c, ok := repo.choice.table[id]; ok {
		return *c, nil
	}
	return polls.Choice{}, polls.ErrNotFound
}

func (repo *pollsRepository) QueryChoicesByQuestionID(_ context.Context, questionID string) ([]polls.Choice, error) {
	repo.choice.mutex.RLock()
	defer repo.choice.mutex.RUnlock()

	choices := make([]polls.Choice, 0)
	for _, c := range repo.choice.table {
		if c.QuestionID == questionID {
			choices = append(choices, *c)
		}
	}
	sort.Slice(choices, func(i, j int) bool { return choices[i].CreatedAt.Before(choices[j].CreatedAt) })
	return choices, nil
}

func (repo *pollsRepository) VoteChoice(_ context.Context, id string) (polls.Choice, error) {
	repo.choice.mutex.Lock()
	defer repo.choice.mutex.Unlock()

	c, ok := repo.choice.table[id]
	if !ok {
		return polls.Choice{}, polls.ErrNotFound
	}
	c.Votes++
	return *c, nil
}
