// Package store holds the persistence contracts of the platform and their
// PostgreSQL implementation.
package store

import (
	"context"
	"errors"

	"zenith-backend/internal/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrNotPending         = errors.New("transfer is not pending")
	ErrAlreadyPaid        = errors.New("session already paid")
	ErrInsufficientPoints = errors.New("insufficient points")
)

type Identity interface {
	// CreateUser inserts the user together with the profile its role needs.
	CreateUser(ctx context.Context, user *models.User, startingPoints int) error
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	StudentProfileByUserID(ctx context.Context, userID int64) (*models.StudentProfile, error)
	StudentProfileByID(ctx context.Context, id int64) (*models.StudentProfile, error)
	InstructorProfileByUserID(ctx context.Context, userID int64) (*models.InstructorProfile, error)
}

type Skills interface {
	ListSkills(ctx context.Context) ([]models.Skill, error)
	CreateSkill(ctx context.Context, name string) (*models.Skill, error)
	SkillByID(ctx context.Context, id int64) (*models.Skill, error)
	StudentSkills(ctx context.Context, studentID int64) ([]models.StudentSkillView, error)
	// ReplaceStudentSkills swaps every declaration of the student in one transaction.
	ReplaceStudentSkills(ctx context.Context, studentID int64, items []models.StudentSkill) error
}

// StatusFunc derives the next transfer status from the current one and its sessions.
type StatusFunc func(current models.TransferStatus, sessions []models.Session) models.TransferStatus

// Payment moves a session's points from the learner to the teacher.
type Payment struct {
	TransferID     int64
	SessionID      int64
	PayerProfileID int64
	PayeeProfileID int64
}

type Transfers interface {
	PendingTransferExists(ctx context.Context, skillID, studentID, teacherID int64) (bool, error)
	// CreateTransfer returns ErrConflict when the same triple is already pending.
	CreateTransfer(ctx context.Context, transfer *models.SkillTransfer) error
	TransferByID(ctx context.Context, id int64) (*models.SkillTransfer, error)
	TransferSummary(ctx context.Context, id int64) (*models.TransferSummary, error)
	ListTransfers(ctx context.Context, filter models.TransferFilter) ([]models.TransferSummary, error)
	TeacherCandidates(ctx context.Context, skillID, learnerID int64) ([]models.TeacherCandidate, error)
	// AcceptTransfer inserts the sessions and moves a pending transfer to
	// in_progress atomically. ErrNotPending leaves nothing behind.
	AcceptTransfer(ctx context.Context, transferID int64, sessions []models.Session) ([]models.Session, error)
	DeletePendingTransfer(ctx context.Context, transferID int64) error
	AddSession(ctx context.Context, transferID int64, session models.Session) (*models.Session, error)
	SessionsByTransfer(ctx context.Context, transferID int64) ([]models.Session, error)
	CompleteSession(ctx context.Context, transferID, sessionID int64) (*models.Session, error)
	// PaySession flags the session paid, debits the payer and credits the
	// payee in one transaction. The payer balance never goes below zero.
	PaySession(ctx context.Context, payment Payment) (*models.Session, error)
	// UpdateTransferStatus applies derive while holding the transfer row.
	UpdateTransferStatus(ctx context.Context, transferID int64, derive StatusFunc) (models.TransferStatus, error)
}

type Courses interface {
	ListCourses(ctx context.Context, search string) ([]models.Course, error)
	CoursesByInstructor(ctx context.Context, instructorID int64) ([]models.Course, error)
	CourseByID(ctx context.Context, id int64) (*models.Course, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// CreateCourse also bumps the owner's courses_count.
	CreateCourse(ctx context.Context, course *models.Course) error
	Chapters(ctx context.Context, courseID int64) ([]models.CourseChapter, error)
	ChapterByID(ctx context.Context, courseID, chapterID int64) (*models.CourseChapter, error)
	CreateChapter(ctx context.Context, chapter *models.CourseChapter) error
	CreateVideo(ctx context.Context, video *models.Video) error
	CreateArticle(ctx context.Context, article *models.Article) error
	ChapterContent(ctx context.Context, chapterID int64) ([]models.Video, []models.Article, error)
	// Enroll is idempotent and returns the existing row on repeat.
	Enroll(ctx context.Context, courseID, studentID int64) (*models.Enrollment, error)
	EnrollmentExists(ctx context.Context, courseID, studentID int64) (bool, error)
	EnrolledCourses(ctx context.Context, studentID int64) ([]models.Course, error)
}

type Chats interface {
	// FindOrCreateChat returns the single chat of an unordered user pair.
	FindOrCreateChat(ctx context.Context, userA, userB int64) (*models.Chat, error)
	ChatByID(ctx context.Context, id int64) (*models.Chat, error)
	ChatsByUser(ctx context.Context, userID int64) ([]models.ChatSummary, error)
	Messages(ctx context.Context, chatID int64) ([]models.Message, error)
	CreateMessage(ctx context.Context, message *models.Message) error
}

type Metrics interface {
	PlatformCounters(ctx context.Context) (models.PlatformCounters, error)
	SaveMetricSample(ctx context.Context, sample models.ServerMetricSample) error
	LatestMetricSamples(ctx context.Context, limit int) ([]models.ServerMetricSample, error)
}

// Store is everything the services need from persistence.
type Store interface {
	Identity
	Skills
	Transfers
	Courses
	Chats
	Metrics
}

// OrderedPair returns the two user ids smallest first.
func OrderedPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}
