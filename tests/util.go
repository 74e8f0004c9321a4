package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/polls"
	"github.com/trezcool/darasa/core/user"
)

// Logger discards everything; it satisfies core.Logger for tests.
type Logger struct{}

func (Logger) Debug(string, ...interface{}) {}
func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}
func (Logger) Fatal(string, ...interface{}) {}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	isStaff, isSuperuser, isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:        name,
		Username:    uname,
		Email:       email,
		IsStaff:     isStaff,
		IsSuperuser: isSuperuser,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if _, err = repo.CreateProfile(context.Background(), user.Profile{UserID: usr.ID}); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClassroom(t *testing.T, repo classroom.Repository, name, createdBy string) classroom.Classroom {
	t.Helper()

	room := classroom.Classroom{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		CreatedBy: createdBy,
	}
	room.SetActive(true)
	room, err := repo.CreateClassroom(context.Background(), room)
	if err != nil {
		t.Fatalf("CreateClassroom() failed: %v", err)
	}
	return room
}

func CreateEnrollment(t *testing.T, repo classroom.Repository, classroomID, studentID string) classroom.Enrollment {
	t.Helper()

	enr := classroom.Enrollment{
		ClassroomID: classroomID,
		StudentID:   studentID,
		DateJoined:  time.Now().UTC(),
	}
	enr.SetActive(true)
	enr, _, err := repo.GetOrCreateEnrollment(context.Background(), enr)
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr
}

func CreatePost(t *testing.T, repo classroom.Repository, classroomID, author, title string, updatedAt ...time.Time) classroom.Post {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(updatedAt) > 0 {
		tstamp = updatedAt[0].UTC()
	}
	post := classroom.Post{
		Title:       title,
		Content:     title + " content",
		ClassroomID: classroomID,
		Author:      author,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	post, err := repo.CreatePost(context.Background(), post)
	if err != nil {
		t.Fatalf("CreatePost() failed: %v", err)
	}
	return post
}

func CreateQuestion(t *testing.T, repo polls.Repository, text, createdBy string, pubDate ...time.Time) polls.Question {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(pubDate) > 0 {
		tstamp = pubDate[0].UTC()
	}
	q := polls.Question{
		QuestionText: text,
		PubDate:      tstamp,
		CreatedAt:    tstamp,
		CreatedBy:    createdBy,
	}
	q, err := repo.CreateQuestion(context.Background(), q)
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return q
}

func CreateChoice(t *testing.T, repo polls.Repository, questionID, text string) polls.Choice {
	t.Helper()

	c := polls.Choice{
		ChoiceText: text,
		CreatedAt:  time.Now().UTC(),
		QuestionID: questionID,
	}
	c, err := repo.CreateChoice(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateChoice() failed: %v", err)
	}
	return c
}
