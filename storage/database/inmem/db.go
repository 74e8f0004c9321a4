package inmemdb

import (
	"sync"

	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/polls"
	"github.com/trezcool/darasa/core/user"
)

// DB is a mutex-guarded map store implementing the same repository contracts
// as the SQL store; it backs tests and local tinkering.
type (
	DB struct {
		user       *userTable
		profile    *profileTable
		classroom  *classroomTable
		enrollment *enrollmentTable
		post       *postTable
		question   *questionTable
		choice     *choiceTable
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}
	profileTable struct {
		table map[string]*user.Profile
		mutex sync.RWMutex
	}
	classroomTable struct {
		table map[string]*classroom.Classroom
		mutex sync.RWMutex
	}
	enrollmentTable struct {
		table map[string]*classroom.Enrollment
		mutex sync.RWMutex
	}
	postTable struct {
		table map[string]*classroom.Post
		mutex sync.RWMutex
	}
	questionTable struct {
		table map[string]*polls.Question
		mutex sync.RWMutex
	}
	choiceTable struct {
		table map[string]*polls.Choice
		mutex sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		profile:    &profileTable{table: make(map[string]*user.Profile)},
		classroom:  &classroomTable{table: make(map[string]*classroom.Classroom)},
		enrollment: &enrollmentTable{table: make(map[string]*classroom.Enrollment)},
		post:       &postTable{table: make(map[string]*classroom.Post)},
		question:   &questionTable{table: make(map[string]*polls.Question)},
		choice:     &choiceTable{table: make(map[string]*polls.Choice)},
	}
	return db, nil
}
