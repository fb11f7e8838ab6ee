package models

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

type User struct {
	ID           int64     `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

type StudentProfile struct {
	ID     int64 `db:"id"`
	UserID int64 `db:"user_id"`
	Points int   `db:"points"`
}

type InstructorProfile struct {
	ID           int64 `db:"id"`
	UserID       int64 `db:"user_id"`
	CoursesCount int   `db:"courses_count"`
}

type Skill struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type SkillType string

const (
	SkillLearned SkillType = "learned"
	SkillNeeded  SkillType = "needed"
)

type StudentSkill struct {
	ID          int64     `db:"id"`
	StudentID   int64     `db:"student_id"`
	SkillID     int64     `db:"skill_id"`
	Type        SkillType `db:"type"`
	Points      int       `db:"points"`
	Description string    `db:"description"`
}

// StudentSkillView is a declaration joined with its skill name.
type StudentSkillView struct {
	StudentSkill
	SkillName string `db:"skill_name"`
}

type TransferStatus string

const (
	TransferPending    TransferStatus = "pending"
	TransferInProgress TransferStatus = "in_progress"
	TransferFinished   TransferStatus = "finished"
)

type SkillTransfer struct {
	ID        int64          `db:"id"`
	StudentID int64          `db:"student_id"`
	TeacherID int64          `db:"teacher_id"`
	SkillID   int64          `db:"skill_id"`
	Points    int            `db:"points"`
	Status    TransferStatus `db:"status"`
	Done      bool           `db:"done"`
	CreatedAt time.Time      `db:"created_at"`
}

type Session struct {
	ID              int64     `db:"id"`
	SkillTransferID int64     `db:"skill_transfer_id"`
	Title           string    `db:"title"`
	Points          int       `db:"points"`
	Completed       bool      `db:"completed"`
	Paid            bool      `db:"paid"`
	CreatedAt       time.Time `db:"created_at"`
}

// TeacherCandidate is a student offering a skill as learned.
type TeacherCandidate struct {
	ProfileID   int64  `db:"profile_id"`
	UserID      int64  `db:"user_id"`
	Username    string `db:"username"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	Points      int    `db:"points"`
	Description string `db:"description"`
}

// TransferSummary is a transfer joined with both parties, the skill and session counters.
type TransferSummary struct {
	SkillTransfer
	SkillName         string `db:"skill_name"`
	StudentUserID     int64  `db:"student_user_id"`
	StudentUsername   string `db:"student_username"`
	StudentFirstName  string `db:"student_first_name"`
	StudentLastName   string `db:"student_last_name"`
	TeacherUserID     int64  `db:"teacher_user_id"`
	TeacherUsername   string `db:"teacher_username"`
	TeacherFirstName  string `db:"teacher_first_name"`
	TeacherLastName   string `db:"teacher_last_name"`
	SessionsCount     int    `db:"sessions_count"`
	CompletedSessions int    `db:"completed_sessions"`
	PaidSessions      int    `db:"paid_sessions"`
}

// TransferFilter selects transfers for the "my transfers" views.
type TransferFilter struct {
	ProfileID int64
	AsStudent bool
	AsTeacher bool
	// Pending selects pending transfers only; otherwise every other status.
	Pending bool
}

type Course struct {
	ID           int64     `db:"id"`
	InstructorID int64     `db:"instructor_id"`
	Title        string    `db:"title"`
	Slug         string    `db:"slug"`
	Description  string    `db:"description"`
	PriceCents   int       `db:"price_cents"`
	CreatedAt    time.Time `db:"created_at"`
}

type CourseChapter struct {
	ID       int64  `db:"id"`
	CourseID int64  `db:"course_id"`
	Title    string `db:"title"`
	Position int    `db:"position"`
}

type Video struct {
	ID        int64  `db:"id"`
	ChapterID int64  `db:"chapter_id"`
	Title     string `db:"title"`
	URL       string `db:"url"`
}

type Article struct {
	ID        int64  `db:"id"`
	ChapterID int64  `db:"chapter_id"`
	Title     string `db:"title"`
	Body      string `db:"body"`
}

type Enrollment struct {
	ID        int64     `db:"id"`
	CourseID  int64     `db:"course_id"`
	StudentID int64     `db:"student_id"`
	CreatedAt time.Time `db:"created_at"`
}

type Chat struct {
	ID        int64     `db:"id"`
	UserLow   int64     `db:"user_low"`
	UserHigh  int64     `db:"user_high"`
	CreatedAt time.Time `db:"created_at"`
}

// HasParticipant reports whether userID is one of the two chat members.
func (c Chat) HasParticipant(userID int64) bool {
	return c.UserLow == userID || c.UserHigh == userID
}

// Other returns the counterpart of userID.
func (c Chat) Other(userID int64) int64 {
	if c.UserLow == userID {
		return c.UserHigh
	}
	return c.UserLow
}

type Message struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	SenderID  int64     `db:"sender_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// ChatSummary is a chat seen by one participant.
type ChatSummary struct {
	Chat
	OtherUserID   int64      `db:"other_user_id"`
	OtherUsername string     `db:"other_username"`
	OtherName     string     `db:"other_name"`
	LastMessage   *string    `db:"last_message"`
	LastMessageAt *time.Time `db:"last_message_at"`
}

type ServerMetricSample struct {
	ID                  string    `db:"id"`
	CapturedAt          time.Time `db:"captured_at"`
	ProcessRSSBytes     int64     `db:"process_rss_bytes"`
	SystemMemoryTotal   int64     `db:"system_memory_total_bytes"`
	SystemMemoryUsed    int64     `db:"system_memory_used_bytes"`
	DiskTotalBytes      int64     `db:"disk_total_bytes"`
	DiskUsedBytes       int64     `db:"disk_used_bytes"`
	ProcessCpuLoad      float64   `db:"process_cpu_load"`
	SystemCpuLoad       float64   `db:"system_cpu_load"`
	UsersTotal          int64     `db:"users_total"`
	TransfersPending    int64     `db:"transfers_pending"`
	TransfersInProgress int64     `db:"transfers_in_progress"`
	TransfersFinished   int64     `db:"transfers_finished"`
	PointsInCirculation int64     `db:"points_in_circulation"`
}

// PlatformCounters are the business gauges captured with each metric sample.
type PlatformCounters struct {
	UsersTotal          int64 `db:"users_total"`
	TransfersPending    int64 `db:"transfers_pending"`
	TransfersInProgress int64 `db:"transfers_in_progress"`
	TransfersFinished   int64 `db:"transfers_finished"`
	PointsInCirculation int64 `db:"points_in_circulation"`
}
