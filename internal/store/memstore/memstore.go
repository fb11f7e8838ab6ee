// Package memstore keeps the whole platform state in process memory. It
// honours the same atomicity as the PostgreSQL store by serialising every
// operation behind one mutex.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store"
)

type Store struct {
	mu  sync.Mutex
	now func() time.Time
	seq map[string]int64

	users       map[int64]models.User
	students    map[int64]models.StudentProfile
	instructors map[int64]models.InstructorProfile
	skills      map[int64]models.Skill
	declared    map[int64][]models.StudentSkill
	transfers   map[int64]models.SkillTransfer
	sessions    map[int64]models.Session
	courses     map[int64]models.Course
	chapters    map[int64]models.CourseChapter
	videos      map[int64]models.Video
	articles    map[int64]models.Article
	enrollments map[int64]models.Enrollment
	chats       map[int64]models.Chat
	messages    map[int64]models.Message
	samples     []models.ServerMetricSample
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		seq:         map[string]int64{},
		users:       map[int64]models.User{},
		students:    map[int64]models.StudentProfile{},
		instructors: map[int64]models.InstructorProfile{},
		skills:      map[int64]models.Skill{},
		declared:    map[int64][]models.StudentSkill{},
		transfers:   map[int64]models.SkillTransfer{},
		sessions:    map[int64]models.Session{},
		courses:     map[int64]models.Course{},
		chapters:    map[int64]models.CourseChapter{},
		videos:      map[int64]models.Video{},
		articles:    map[int64]models.Article{},
		enrollments: map[int64]models.Enrollment{},
		chats:       map[int64]models.Chat{},
		messages:    map[int64]models.Message{},
	}
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Identity

func (s *Store) CreateUser(_ context.Context, user *models.User, startingPoints int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.Username == user.Username {
			return store.ErrConflict
		}
	}
	user.ID = s.next("users")
	user.CreatedAt = s.now()
	s.users[user.ID] = *user
	switch user.Role {
	case models.RoleStudent:
		id := s.next("student_profiles")
		s.students[id] = models.StudentProfile{ID: id, UserID: user.ID, Points: startingPoints}
	case models.RoleInstructor:
		id := s.next("instructor_profiles")
		s.instructors[id] = models.InstructorProfile{ID: id, UserID: user.ID}
	}
	return nil
}

func (s *Store) UserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdatePassword(_ context.Context, userID int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = hash
	s.users[userID] = user
	return nil
}

func (s *Store) StudentProfileByUserID(_ context.Context, userID int64) (*models.StudentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, profile := range s.students {
		if profile.UserID == userID {
			p := profile
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) StudentProfileByID(_ context.Context, id int64) (*models.StudentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.students[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &profile, nil
}

func (s *Store) InstructorProfileByUserID(_ context.Context, userID int64) (*models.InstructorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, profile := range s.instructors {
		if profile.UserID == userID {
			p := profile
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

// Skills

func (s *Store) ListSkills(_ context.Context) ([]models.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skills := make([]models.Skill, 0, len(s.skills))
	for _, skill := range s.skills {
		skills = append(skills, skill)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills, nil
}

func (s *Store) CreateSkill(_ context.Context, name string) (*models.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, skill := range s.skills {
		if skill.Name == name {
			return nil, store.ErrConflict
		}
	}
	skill := models.Skill{ID: s.next("skills"), Name: name}
	s.skills[skill.ID] = skill
	return &skill, nil
}

func (s *Store) SkillByID(_ context.Context, id int64) (*models.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skill, ok := s.skills[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &skill, nil
}

func (s *Store) StudentSkills(_ context.Context, studentID int64) ([]models.StudentSkillView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []models.StudentSkillView{}
	for _, declared := range s.declared[studentID] {
		items = append(items, models.StudentSkillView{StudentSkill: declared, SkillName: s.skills[declared.SkillID].Name})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type < items[j].Type
		}
		return items[i].SkillName < items[j].SkillName
	})
	return items, nil
}

func (s *Store) ReplaceStudentSkills(_ context.Context, studentID int64, items []models.StudentSkill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[studentID]; !ok {
		return store.ErrNotFound
	}
	seen := map[int64]bool{}
	replaced := make([]models.StudentSkill, 0, len(items))
	for _, item := range items {
		if _, ok := s.skills[item.SkillID]; !ok {
			return store.ErrNotFound
		}
		if seen[item.SkillID] {
			return store.ErrConflict
		}
		seen[item.SkillID] = true
		item.ID = s.next("student_skills")
		item.StudentID = studentID
		replaced = append(replaced, item)
	}
	s.declared[studentID] = replaced
	return nil
}
