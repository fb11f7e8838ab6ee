package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store"
)

func newestCourseFirst(courses []models.Course) {
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID > courses[j].ID })
}

func (s *Store) ListCourses(_ context.Context, search string) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	term := strings.ToLower(strings.TrimSpace(search))
	courses := []models.Course{}
	for _, course := range s.courses {
		if term != "" &&
			!strings.Contains(strings.ToLower(course.Title), term) &&
			!strings.Contains(strings.ToLower(course.Description), term) {
			continue
		}
		courses = append(courses, course)
	}
	newestCourseFirst(courses)
	return courses, nil
}

func (s *Store) CoursesByInstructor(_ context.Context, instructorID int64) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses := []models.Course{}
	for _, course := range s.courses {
		if course.InstructorID == instructorID {
			courses = append(courses, course)
		}
	}
	newestCourseFirst(courses)
	return courses, nil
}

func (s *Store) CourseByID(_ context.Context, id int64) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &course, nil
}

func (s *Store) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slugTaken(slug), nil
}

func (s *Store) slugTaken(slug string) bool {
	for _, course := range s.courses {
		if course.Slug == slug {
			return true
		}
	}
	return false
}

func (s *Store) CreateCourse(_ context.Context, course *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.instructors[course.InstructorID]
	if !ok {
		return store.ErrNotFound
	}
	if s.slugTaken(course.Slug) {
		return store.ErrConflict
	}
	course.ID = s.next("courses")
	course.CreatedAt = s.now()
	s.courses[course.ID] = *course
	profile.CoursesCount++
	s.instructors[profile.ID] = profile
	return nil
}

func (s *Store) Chapters(_ context.Context, courseID int64) ([]models.CourseChapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chapters := []models.CourseChapter{}
	for _, id := range sortedKeys(s.chapters) {
		if s.chapters[id].CourseID == courseID {
			chapters = append(chapters, s.chapters[id])
		}
	}
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Position < chapters[j].Position })
	return chapters, nil
}

func (s *Store) ChapterByID(_ context.Context, courseID, chapterID int64) (*models.CourseChapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chapter, ok := s.chapters[chapterID]
	if !ok || chapter.CourseID != courseID {
		return nil, store.ErrNotFound
	}
	return &chapter, nil
}

func (s *Store) CreateChapter(_ context.Context, chapter *models.CourseChapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[chapter.CourseID]; !ok {
		return store.ErrNotFound
	}
	position := 0
	for _, existing := range s.chapters {
		if existing.CourseID == chapter.CourseID && existing.Position > position {
			position = existing.Position
		}
	}
	chapter.ID = s.next("course_chapters")
	chapter.Position = position + 1
	s.chapters[chapter.ID] = *chapter
	return nil
}

func (s *Store) CreateVideo(_ context.Context, video *models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chapters[video.ChapterID]; !ok {
		return store.ErrNotFound
	}
	video.ID = s.next("videos")
	s.videos[video.ID] = *video
	return nil
}

func (s *Store) CreateArticle(_ context.Context, article *models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chapters[article.ChapterID]; !ok {
		return store.ErrNotFound
	}
	article.ID = s.next("articles")
	s.articles[article.ID] = *article
	return nil
}

func (s *Store) ChapterContent(_ context.Context, chapterID int64) ([]models.Video, []models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	videos := []models.Video{}
	for _, id := range sortedKeys(s.videos) {
		if s.videos[id].ChapterID == chapterID {
			videos = append(videos, s.videos[id])
		}
	}
	articles := []models.Article{}
	for _, id := range sortedKeys(s.articles) {
		if s.articles[id].ChapterID == chapterID {
			articles = append(articles, s.articles[id])
		}
	}
	return videos, articles, nil
}

func (s *Store) Enroll(_ context.Context, courseID, studentID int64) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[courseID]; !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.students[studentID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, enrollment := range s.enrollments {
		if enrollment.CourseID == courseID && enrollment.StudentID == studentID {
			e := enrollment
			return &e, nil
		}
	}
	enrollment := models.Enrollment{ID: s.next("enrollments"), CourseID: courseID, StudentID: studentID, CreatedAt: s.now()}
	s.enrollments[enrollment.ID] = enrollment
	return &enrollment, nil
}

func (s *Store) EnrollmentExists(_ context.Context, courseID, studentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, enrollment := range s.enrollments {
		if enrollment.CourseID == courseID && enrollment.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) EnrolledCourses(_ context.Context, studentID int64) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses := []models.Course{}
	ids := sortedKeys(s.enrollments)
	for i := len(ids) - 1; i >= 0; i-- {
		enrollment := s.enrollments[ids[i]]
		if enrollment.StudentID == studentID {
			courses = append(courses, s.courses[enrollment.CourseID])
		}
	}
	return courses, nil
}

// Chats

func (s *Store) FindOrCreateChat(_ context.Context, userA, userB int64) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	low, high := store.OrderedPair(userA, userB)
	if _, ok := s.users[low]; !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.users[high]; !ok {
		return nil, store.ErrNotFound
	}
	for _, chat := range s.chats {
		if chat.UserLow == low && chat.UserHigh == high {
			c := chat
			return &c, nil
		}
	}
	chat := models.Chat{ID: s.next("chats"), UserLow: low, UserHigh: high, CreatedAt: s.now()}
	s.chats[chat.ID] = chat
	return &chat, nil
}

func (s *Store) ChatByID(_ context.Context, id int64) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &chat, nil
}

func (s *Store) ChatsByUser(_ context.Context, userID int64) ([]models.ChatSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []models.ChatSummary{}
	for _, chat := range s.chats {
		if !chat.HasParticipant(userID) {
			continue
		}
		other := s.users[chat.Other(userID)]
		summary := models.ChatSummary{
			Chat:          chat,
			OtherUserID:   other.ID,
			OtherUsername: other.Username,
			OtherName:     strings.TrimSpace(other.FirstName + " " + other.LastName),
		}
		for _, id := range sortedKeys(s.messages) {
			message := s.messages[id]
			if message.ChatID == chat.ID {
				content, at := message.Content, message.CreatedAt
				summary.LastMessage, summary.LastMessageAt = &content, &at
			}
		}
		items = append(items, summary)
	}
	sort.Slice(items, func(i, j int) bool {
		ai, aj := items[i].CreatedAt, items[j].CreatedAt
		if items[i].LastMessageAt != nil {
			ai = *items[i].LastMessageAt
		}
		if items[j].LastMessageAt != nil {
			aj = *items[j].LastMessageAt
		}
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

func (s *Store) Messages(_ context.Context, chatID int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := []models.Message{}
	for _, id := range sortedKeys(s.messages) {
		if s.messages[id].ChatID == chatID {
			messages = append(messages, s.messages[id])
		}
	}
	return messages, nil
}

func (s *Store) CreateMessage(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[message.ChatID]; !ok {
		return store.ErrNotFound
	}
	message.ID = s.next("messages")
	message.CreatedAt = s.now()
	s.messages[message.ID] = *message
	return nil
}

// Metrics

func (s *Store) PlatformCounters(_ context.Context) (models.PlatformCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counters := models.PlatformCounters{UsersTotal: int64(len(s.users))}
	for _, t := range s.transfers {
		switch t.Status {
		case models.TransferPending:
			counters.TransfersPending++
		case models.TransferInProgress:
			counters.TransfersInProgress++
		case models.TransferFinished:
			counters.TransfersFinished++
		}
	}
	for _, profile := range s.students {
		counters.PointsInCirculation += int64(profile.Points)
	}
	return counters, nil
}

func (s *Store) SaveMetricSample(_ context.Context, sample models.ServerMetricSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	s.samples = append(s.samples, sample)
	return nil
}

func (s *Store) LatestMetricSamples(_ context.Context, limit int) ([]models.ServerMetricSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.samples) - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.ServerMetricSample, len(s.samples)-start)
	copy(out, s.samples[start:])
	return out, nil
}
