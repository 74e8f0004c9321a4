package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/polls"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_pollsApi_query(t *testing.T) {
	resetDB()

	author := testutil.CreateUser(t, usrRepo, "Teacher", "teach01", "teacher@test.cd", "", false, false, true)

	now := time.Now()
	older := testutil.CreateQuestion(t, pollsRepo, "What's up?", author.ID, now.Add(-2*time.Hour))
	newer := testutil.CreateQuestion(t, pollsRepo, "What's new?", author.ID, now.Add(-1*time.Hour))
	c1 := testutil.CreateChoice(t, pollsRepo, newer.ID, "Not much")
	c2 := testutil.CreateChoice(t, pollsRepo, newer.ID, "The sky")

	t.Run("Questions are public, newest first, choices flattened", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				echoapi.QuestionListItem{Question: newer, Choices: []string{c1.ChoiceText, c2.ChoiceText}},
				echoapi.QuestionListItem{Question: older, Choices: []string{}},
			),
		}
		req, rec := newRequest(http.MethodGet, "/v1/questions")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Question detail", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.QuestionDetail{Question: newer, Choices: []polls.Choice{c1, c2}}),
		}
		req, rec := newRequest(http.MethodGet, "/v1/questions/"+newer.ID)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Unknown question", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		req, rec := newRequest(http.MethodGet, "/v1/questions/lol")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_pollsApi_create(t *testing.T) {
	resetDB()

	author := testutil.CreateUser(t, usrRepo, "Teacher", "teach01", "teacher@test.cd", "", false, false, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "question_text required", token: getToken(t, author), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"question_text": "this field is required"}),
		},
		{
			name: "Question created", token: getToken(t, author), wantCode: http.StatusCreated,
			body: marchallObj(t, polls.NewQuestion{QuestionText: "What's up?"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/questions"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData polls.Question
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.CreatedBy != author.ID {
					t.Errorf("failed! CreatedBy = %q; want %q", respData.CreatedBy, author.ID)
				}
				if !respData.WasPublishedRecently() {
					t.Error("failed! fresh question not recently published")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_pollsApi_updateDestroy(t *testing.T) {
	resetDB()

	author := testutil.CreateUser(t, usrRepo, "Teacher", "teach01", "teacher@test.cd", "", false, false, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other01", "other@test.cd", "", false, false, true)
	superuser := testutil.CreateUser(t, usrRepo, "Root", "root01", "root@test.cd", "", true, true, true)
	q := testutil.CreateQuestion(t, pollsRepo, "What's up?", author.ID)
	doomed := testutil.CreateQuestion(t, pollsRepo, "Old news?", author.ID)
	testutil.CreateChoice(t, pollsRepo, doomed.ID, "Yes")

	t.Run("Non-author update hidden behind 404", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
			body: marchallObj(t, polls.UpdateQuestion{QuestionText: "Hacked?"}),
		}
		req, rec := newAuthRequest(http.MethodPut, "/v1/questions/"+q.ID, getToken(t, other), tt.body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Author updates text only", func(t *testing.T) {
		body := marchallObj(t, polls.UpdateQuestion{QuestionText: "What is up?"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/questions/"+q.ID, getToken(t, author), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var respData polls.Question
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Errorf("json.Unmarshal() failed! err %v", err)
		}
		if respData.QuestionText != "What is up?" {
			t.Errorf("failed! QuestionText = %q", respData.QuestionText)
		}
		if !respData.PubDate.Equal(q.PubDate) || respData.CreatedBy != q.CreatedBy {
			t.Error("failed! immutable fields changed")
		}
	})

	t.Run("Superuser deletes; choices go too", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/questions/"+doomed.ID, getToken(t, superuser))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		ctx := context.Background()
		if _, err := pollsRepo.GetQuestionByID(ctx, doomed.ID); err == nil {
			t.Error("failed! question still exists")
		}
		choices, err := pollsRepo.QueryChoicesByQuestionID(ctx, doomed.ID)
		if err != nil {
			t.Fatalf("QueryChoicesByQuestionID(): %v", err)
		}
		if len(choices) > 0 {
			t.Errorf("failed! %d choices left", len(choices))
		}
	})
}

func Test_pollsApi_addChoice(t *testing.T) {
	resetDB()

	author := testutil.CreateUser(t, usrRepo, "Teacher", "teach01", "teacher@test.cd", "", false, false, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other01", "other@test.cd", "", false, false, true)
	q := testutil.CreateQuestion(t, pollsRepo, "What's up?", author.ID)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Only the author adds choices", token: getToken(t, other),
			body:     marchallObj(t, polls.NewChoice{ChoiceText: "Nothing"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Choice added", token: getToken(t, author),
			body: marchallObj(t, polls.NewChoice{ChoiceText: "Nothing"}), wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/questions/" + q.ID + "/choices"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData polls.Choice
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.QuestionID != q.ID || respData.Votes != 0 {
					t.Errorf("failed! choice = %+v", respData)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_pollsApi_vote(t *testing.T) {
	resetDB()

	author := testutil.CreateUser(t, usrRepo, "Teacher", "teach01", "teacher@test.cd", "", false, false, true)
	q := testutil.CreateQuestion(t, pollsRepo, "What's up?", author.ID)
	c := testutil.CreateChoice(t, pollsRepo, q.ID, "Nothing")

	t.Run("Unknown choice", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		req, rec := newRequest(http.MethodPost, "/v1/choices/lol/vote")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Voting is public and increments", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			req, rec := newRequest(http.MethodPost, "/v1/choices/"+c.ID+"/vote")
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
			}
			var respData polls.Choice
			if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
				t.Errorf("json.Unmarshal() failed! err %v", err)
			}
			if respData.Votes != i {
				t.Errorf("failed! Votes = %d; want %d", respData.Votes, i)
			}
		}
	})
}
