package polls_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/polls"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database/inmem"
	"github.com/trezcool/darasa/tests"
)

func setup(t *testing.T) (*polls.Service, polls.Repository, user.Repository) {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	repo := inmemdb.NewPollsRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)
	svc := polls.NewService(repo, testutil.Logger{})
	return svc, repo, usrRepo
}

func Test_pollsSvc_Create(t *testing.T) {
	ctx := context.Background()
	svc, _, usrRepo := setup(t)

	author := testutil.CreateUser(t, usrRepo, "Author", "author", "author@test.cd", "", true, false, true)

	q, err := svc.Create(ctx, author, polls.NewQuestion{QuestionText: "What's new?"})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if q.ID == "" {
		t.Error("Create() ID not set")
	}
	if q.CreatedBy != author.ID {
		t.Errorf("Create() CreatedBy = %q; want %q", q.CreatedBy, author.ID)
	}
	if q.PubDate.IsZero() {
		t.Error("Create() PubDate not set")
	}
	if !q.WasPublishedRecently() {
		t.Error("WasPublishedRecently() = false for a fresh question")
	}
}

func TestQuestion_WasPublishedRecently(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		pubDate time.Time
		want    bool
	}{
		{name: "just published", pubDate: now, want: true},
		{name: "an hour ago", pubDate: now.Add(-time.Hour), want: true},
		{name: "a day and a bit ago", pubDate: now.Add(-25 * time.Hour), want: false},
		{name: "last month", pubDate: now.AddDate(0, -1, 0), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := polls.Question{PubDate: tt.pubDate}
			if got := q.WasPublishedRecently(); got != tt.want {
				t.Errorf("WasPublishedRecently() = %v; want %v", got, tt.want)
			}
		})
	}
}

func Test_pollsSvc_ownershipGuards(t *testing.T) {
	ctx := context.Background()
	svc, repo, usrRepo := setup(t)

	author := testutil.CreateUser(t, usrRepo, "Author", "author", "author@test.cd", "", true, false, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other1", "other@test.cd", "", true, false, true)
	root := testutil.CreateUser(t, usrRepo, "Root", "root01", "root@test.cd", "", true, true, true)

	q, err := svc.Create(ctx, author, polls.NewQuestion{QuestionText: "What's new?"})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	if _, err = svc.Update(ctx, other, q.ID, polls.UpdateQuestion{QuestionText: "hijacked"}); !errors.Is(err, polls.ErrNotFound) {
		t.Errorf("Update() by non-owner err = %v; want ErrNotFound", err)
	}
	if err = svc.Delete(ctx, other, q.ID); !errors.Is(err, polls.ErrNotFound) {
		t.Errorf("Delete() by non-owner err = %v; want ErrNotFound", err)
	}
	if _, err = svc.AddChoice(ctx, other, q.ID, polls.NewChoice{ChoiceText: "Nothing"}); !errors.Is(err, polls.ErrNotFound) {
		t.Errorf("AddChoice() by non-owner err = %v; want ErrNotFound", err)
	}

	got, err := repo.GetQuestionByID(ctx, q.ID)
	if err != nil {
		t.Fatalf("GetQuestionByID(): %v", err)
	}
	if got.QuestionText != "What's new?" {
		t.Errorf("question text = %q; want unchanged", got.QuestionText)
	}

	updated, err := svc.Update(ctx, author, q.ID, polls.UpdateQuestion{QuestionText: "What's up?"})
	if err != nil {
		t.Fatalf("Update() by owner: %v", err)
	}
	if updated.QuestionText != "What's up?" {
		t.Errorf("Update() text = %q", updated.QuestionText)
	}
	if updated.CreatedBy != author.ID || !updated.PubDate.Equal(q.PubDate) {
		t.Errorf("Update() changed immutable fields: %+v", updated)
	}

	// superuser may delete someone else's question
	if err = svc.Delete(ctx, root, q.ID); err != nil {
		t.Fatalf("Delete() by superuser: %v", err)
	}
	if _, err = repo.GetQuestionByID(ctx, q.ID); !errors.Is(err, polls.ErrNotFound) {
		t.Errorf("GetQuestionByID() after delete err = %v; want ErrNotFound", err)
	}
}

func Test_pollsSvc_Delete_cascadesChoices(t *testing.T) {
	ctx := context.Background()
	svc, repo, usrRepo := setup(t)

	author := testutil.CreateUser(t, usrRepo, "Author", "author", "author@test.cd", "", true, false, true)

	q, err := svc.Create(ctx, author, polls.NewQuestion{QuestionText: "What's new?"})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	c1 := testutil.CreateChoice(t, repo, q.ID, "Not much")
	c2 := testutil.CreateChoice(t, repo, q.ID, "The sky")

	if err = svc.Delete(ctx, author, q.ID); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	for _, c := range []polls.Choice{c1, c2} {
		if _, err = repo.GetChoiceByID(ctx, c.ID); !errors.Is(err, polls.ErrNotFound) {
			t.Errorf("choice %q survived cascade; err = %v", c.ChoiceText, err)
		}
	}
}

func Test_pollsSvc_Vote(t *testing.T) {
	ctx := context.Background()
	svc, repo, usrRepo := setup(t)

	author := testutil.CreateUser(t, usrRepo, "Author", "author", "author@test.cd", "", true, false, true)
	q := testutil.CreateQuestion(t, repo, "What's new?", author.ID)
	c := testutil.CreateChoice(t, repo, q.ID, "Not much")

	voted, err := svc.Vote(ctx, c.ID)
	if err != nil {
		t.Fatalf("Vote(): %v", err)
	}
	if voted.Votes != 1 {
		t.Errorf("Votes = %d; want 1", voted.Votes)
	}

	if _, err = svc.Vote(ctx, "0e3c9acc-9cf1-44e6-b295-adeb2c0efbf0"); !errors.Is(err, polls.ErrNotFound) {
		t.Errorf("Vote() unknown choice err = %v; want ErrNotFound", err)
	}
}

func Test_pollsSvc_Vote_concurrent(t *testing.T) {
	ctx := context.Background()
	svc, repo, usrRepo := setup(t)

	author := testutil.CreateUser(t, usrRepo, "Author", "author", "author@test.cd", "", true, false, true)
	q := testutil.CreateQuestion(t, repo, "What's new?", author.ID)
	c := testutil.CreateChoice(t, repo, q.ID, "Not much")

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.Vote(ctx, c.ID); err != nil {
				t.Errorf("Vote(): %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.GetChoiceByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetChoiceByID(): %v", err)
	}
	if got.Votes != n {
		t.Errorf("Votes = %d; want %d", got.Votes, n)
	}
}

func Test_pollsSvc_Query_ordering(t *testing.T) {
	ctx := context.Background()
	svc, repo, usrRepo := setup(t)

	author := testutil.CreateUser(t, usrRepo, "Author", "author", "author@test.cd", "", true, false, true)

	now := time.Now().UTC()
	q1 := testutil.CreateQuestion(t, repo, "oldest", author.ID, now.Add(-3*time.Hour))
	q2 := testutil.CreateQuestion(t, repo, "middle", author.ID, now.Add(-2*time.Hour))
	q3 := testutil.CreateQuestion(t, repo, "newest", author.ID, now.Add(-1*time.Hour))

	qs, err := svc.Query(ctx)
	if err != nil {
		t.Fatalf("Query(): %v", err)
	}
	wantOrder := []string{q3.ID, q2.ID, q1.ID}
	if len(qs) != len(wantOrder) {
		t.Fatalf("questions = %d; want %d", len(qs), len(wantOrder))
	}
	for i, id := range wantOrder {
		if qs[i].ID != id {
			t.Errorf("qs[%d].ID = %q; want %q", i, qs[i].ID, id)
		}
	}
}
