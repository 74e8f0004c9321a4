package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/classroom"
)

type classroomRepository struct {
	db   *classroomTable
	enr  *enrollmentTable
	post *postTable
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *DB) *classroomRepository {
	return &classroomRepository{db: db.classroom, enr: db.enrollment, post: db.post}
}

func (repo *classroomRepository) CreateClassroom(_ context.Context, room classroom.Classroom) (classroom.Classroom, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	room.ID = uuid.New().String()
	repo.db.table[room.ID] = &room
	return room, nil
}

func (repo *classroomRepository) GetClassroomByID(_ context.Context, id string) (classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if room, ok := repo.db.table[id]; ok {
		return *room, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryClassroomsByMember(_ context.Context, userID string) ([]classroom.Classroom, error) {
	repo.enr.mutex.RLock()
	enrolled := make(map[string]bool)
	for _, enr := range repo.enr.table {
		if enr.StudentID == userID {
			enrolled[enr.ClassroomID] = true
		}
	}
	repo.enr.mutex.RUnlock()

	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rooms := make([]classroom.Classroom, 0)
	for _, room := range repo.db.table {
		if room.CreatedBy == userID || enrolled[room.ID] {
			rooms = append(rooms, *room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.After(rooms[j].CreatedAt) })
	return rooms, nil
}

func (repo *classroomRepository) UpdateClassroom(_ context.Context, room classroom.Classroom) (classroom.Classroom, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[room.ID]
	if !ok {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	room.CreatedAt = orig.CreatedAt
	room.CreatedBy = orig.CreatedBy
	repo.db.table[room.ID] = &room
	return room, nil
}

func (repo *classroomRepository) DeleteClassroomsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.enr.mutex.Lock()
	defer repo.enr.mutex.Unlock()
	repo.post.mutex.Lock()
	defer repo.post.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
		for eid, enr := range repo.enr.table {
			if enr.ClassroomID == id {
				delete(repo.enr.table, eid)
			}
		}
		for pid, post := range repo.post.table {
			if post.ClassroomID == id {
				delete(repo.post.table, pid)
			}
		}
	}
	return nil
}

func (repo *classroomRepository) GetOrCreateEnrollment(_ context.Context, enr classroom.Enrollment) (classroom.Enrollment, bool, error) {
	repo.enr.mutex.Lock()
	defer repo.enr.mutex.Unlock()

	// pair scan and insert share the same critical section
	for _, existing := range repo.enr.table {
		if existing.ClassroomID == enr.ClassroomID && existing.StudentID == enr.StudentID {
			return *existing, false, nil
		}
	}
	enr.ID = uuid.New().String()
	repo.enr.table[enr.ID] = &enr
	return enr, true, nil
}

func (repo *classroomRepository) GetEnrollmentByID(_ context.Context, id string) (classroom.Enrollment, error) {
	repo.enr.mutex.RLock()
	defer repo.enr.mutex.RUnlock()

	if enr, ok := repo.enr.table[id]; ok {
		return *enr, nil
	}
	return classroom.Enrollment{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryEnrollmentsByClassroomID(_ context.Context, classroomID string) ([]classroom.Enrollment, error) {
	repo.enr.mutex.RLock()
	defer repo.enr.mutex.RUnlock()

	enrs := make([]classroom.Enrollment, 0)
	for _, enr := range repo.enr.table {
		if enr.ClassroomID == classroomID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].DateJoined.Before(enrs[j].DateJoined) })
	return enrs, nil
}

func (repo *classroomRepository) DeleteEnrollmentsByID(_ context.Context, ids ...string) error {
	repo.enr.mutex.Lock()
	defer repo.enr.mutex.Unlock()
	for _, id := range ids {
		delete(repo.enr.table, id)
	}
	return nil
}

func (repo *classroomRepository) CreatePost(_ context.Context, post classroom.Post) (classroom.Post, error) {
	repo.post.mutex.Lock()
	defer repo.post.mutex.Unlock()

	post.ID = uuid.New().String()
	repo.post.table[post.ID] = &post
	return post, nil
}

func (repo *classroomRepository) GetPostByID(_ context.Context, id string) (classroom.Post, error) {
	repo.post.mutex.RLock()
	defer repo.post.mutex.RUnlock()

	if post, ok := repo.post.table[id]; ok {
		return *post, nil
	}
	return classroom.Post{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryPostsByClassroomID(_ context.Context, classroomID string) ([]classroom.Post, error) {
	repo.post.mutex.RLock()
	defer repo.post.mutex.RUnlock()

	posts := make([]classroom.Post, 0)
	for _, post := range repo.post.table {
		if post.ClassroomID == classroomID {
			posts = append(posts, *post)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].UpdatedAt.After(posts[j].UpdatedAt) })
	return posts, nil
}

func (repo *classroomRepository) UpdatePost(_ context.Context, post classroom.Post) (classroom.Post, error) {
	repo.post.mutex.Lock()
	defer repo.post.mutex.Unlock()

	orig, ok := repo.post.table[post.ID]
	if !ok {
		return classroom.Post{}, classroom.ErrNotFound
	}
	post.ClassroomID = orig.ClassroomID
	post.Author = orig.Author
	post.CreatedAt = orig.CreatedAt
	repo.post.table[post.ID] = &post
	return post, nil
}

func (repo *classroomRepository) DeletePostsByID(_ context.Context, ids ...string) error {
	repo.post.mutex.Lock()
	defer repo.post.mutex.Unlock()
	for _, id := range ids {
		delete(repo.post.table, id)
	}
	return nil
}
