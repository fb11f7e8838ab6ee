package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store"
)

const maxSlugAttempts = 50

type CourseInput struct {
	Title       string
	Description string
	PriceCents  int
}

type CourseDetail struct {
	Course   models.Course
	Chapters []models.CourseChapter
}

type ChapterDetail struct {
	Chapter  models.CourseChapter
	Videos   []models.Video
	Articles []models.Article
}

type CourseService struct {
	store store.Store
	log   *zap.Logger
}

func NewCourseService(s store.Store, log *zap.Logger) *CourseService {
	return &CourseService{store: s, log: nopIfNil(log)}
}

func (s *CourseService) List(ctx context.Context, search string) ([]models.Course, error) {
	courses, err := s.store.ListCourses(ctx, search)
	if err != nil {
		return nil, WrapError(err, "list courses")
	}
	return courses, nil
}

func (s *CourseService) Get(ctx context.Context, courseID int64) (*CourseDetail, error) {
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return nil, translate(err, "load course", "Course not found")
	}
	chapters, err := s.store.Chapters(ctx, courseID)
	if err != nil {
		return nil, WrapError(err, "list chapters")
	}
	return &CourseDetail{Course: *course, Chapters: chapters}, nil
}

func (s *CourseService) Chapters(ctx context.Context, courseID int64) ([]models.CourseChapter, error) {
	detail, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return detail.Chapters, nil
}

func (s *CourseService) Create(ctx context.Context, owner Instructor, in CourseInput) (*models.Course, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrValidation("Course title is required")
	}
	if in.PriceCents < 0 {
		return nil, ErrValidation("Price cannot be negative")
	}
	courseSlug, err := s.uniqueSlug(ctx, title)
	if err != nil {
		return nil, err
	}
	course := &models.Course{
		InstructorID: owner.ProfileID,
		Title:        title,
		Slug:         courseSlug,
		Description:  strings.TrimSpace(in.Description),
		PriceCents:   in.PriceCents,
	}
	if err := s.store.CreateCourse(ctx, course); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrConflict("A course with this title already exists")
		}
		return nil, translate(err, "create course", "Instructor not found")
	}
	s.log.Info("course created", zap.Int64("course_id", course.ID), zap.String("slug", course.Slug))
	return course, nil
}

func (s *CourseService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "course"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := s.store.SlugExists(ctx, candidate)
		if err != nil {
			return "", WrapError(err, "check slug")
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return "", ErrConflict("A course with this title already exists")
}

func (s *CourseService) ownedCourse(ctx context.Context, owner Instructor, courseID int64) (*models.Course, error) {
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return nil, translate(err, "load course", "Course not found")
	}
	if course.InstructorID != owner.ProfileID {
		return nil, ErrForbidden("Only the course owner can edit it")
	}
	return course, nil
}

func (s *CourseService) AddChapter(ctx context.Context, owner Instructor, courseID int64, title string) (*models.CourseChapter, error) {
	if _, err := s.ownedCourse(ctx, owner, courseID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrValidation("Chapter title is required")
	}
	chapter := &models.CourseChapter{CourseID: courseID, Title: title}
	if err := s.store.CreateChapter(ctx, chapter); err != nil {
		return nil, translate(err, "create chapter", "Course not found")
	}
	return chapter, nil
}

func (s *CourseService) ownedChapter(ctx context.Context, owner Instructor, courseID, chapterID int64) error {
	if _, err := s.ownedCourse(ctx, owner, courseID); err != nil {
		return err
	}
	if _, err := s.store.ChapterByID(ctx, courseID, chapterID); err != nil {
		return translate(err, "load chapter", "Chapter not found")
	}
	return nil
}

func (s *CourseService) AddVideo(ctx context.Context, owner Instructor, courseID, chapterID int64, title, url string) (*models.Video, error) {
	if err := s.ownedChapter(ctx, owner, courseID, chapterID); err != nil {
		return nil, err
	}
	title, url = strings.TrimSpace(title), strings.TrimSpace(url)
	if title == "" || url == "" {
		return nil, ErrValidation("Video title and url are required")
	}
	video := &models.Video{ChapterID: chapterID, Title: title, URL: url}
	if err := s.store.CreateVideo(ctx, video); err != nil {
		return nil, translate(err, "create video", "Chapter not found")
	}
	return video, nil
}

func (s *CourseService) AddArticle(ctx context.Context, owner Instructor, courseID, chapterID int64, title, body string) (*models.Article, error) {
	if err := s.ownedChapter(ctx, owner, courseID, chapterID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(body) == "" {
		return nil, ErrValidation("Article title and body are required")
	}
	article := &models.Article{ChapterID: chapterID, Title: title, Body: body}
	if err := s.store.CreateArticle(ctx, article); err != nil {
		return nil, translate(err, "create article", "Chapter not found")
	}
	return article, nil
}

// GetChapter returns chapter content to enrolled students, the owner and admins.
func (s *CourseService) GetChapter(ctx context.Context, actor Actor, courseID, chapterID int64) (*ChapterDetail, error) {
	course, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return nil, translate(err, "load course", "Course not found")
	}
	chapter, err := s.store.ChapterByID(ctx, courseID, chapterID)
	if err != nil {
		return nil, translate(err, "load chapter", "Chapter not found")
	}
	allowed, err := s.canRead(ctx, actor, course)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden("Enroll in the course to read this chapter")
	}
	videos, articles, err := s.store.ChapterContent(ctx, chapterID)
	if err != nil {
		return nil, WrapError(err, "load chapter content")
	}
	return &ChapterDetail{Chapter: *chapter, Videos: videos, Articles: articles}, nil
}

func (s *CourseService) canRead(ctx context.Context, actor Actor, course *models.Course) (bool, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleInstructor:
		profile, err := s.store.InstructorProfileByUserID(ctx, actor.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, WrapError(err, "load instructor profile")
		}
		return profile.ID == course.InstructorID, nil
	case models.RoleStudent:
		profile, err := s.store.StudentProfileByUserID(ctx, actor.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, WrapError(err, "load student profile")
		}
		enrolled, err := s.store.EnrollmentExists(ctx, course.ID, profile.ID)
		if err != nil {
			return false, WrapError(err, "check enrollment")
		}
		return enrolled, nil
	}
	return false, nil
}

// Enroll is idempotent.
func (s *CourseService) Enroll(ctx context.Context, student Student, courseID int64) (*models.Enrollment, error) {
	if _, err := s.store.CourseByID(ctx, courseID); err != nil {
		return nil, translate(err, "load course", "Course not found")
	}
	enrollment, err := s.store.Enroll(ctx, courseID, student.ProfileID)
	if err != nil {
		return nil, translate(err, "enroll", "Course not found")
	}
	return enrollment, nil
}

func (s *CourseService) MyEnrollments(ctx context.Context, student Student) ([]models.Course, error) {
	courses, err := s.store.EnrolledCourses(ctx, student.ProfileID)
	if err != nil {
		return nil, WrapError(err, "list enrollments")
	}
	return courses, nil
}
