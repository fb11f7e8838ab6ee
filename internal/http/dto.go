package httpapi

import (
	"time"

	"zenith-backend/internal/models"
	"zenith-backend/internal/services"
)

type UserDTO struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func userDTO(u models.User, withEmail bool) UserDTO {
	dto := UserDTO{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
	if withEmail {
		dto.Email = u.Email
	}
	return dto
}

type TokenResponse struct {
	Token        string  `json:"token"`
	RefreshToken string  `json:"refreshToken"`
	ExpiresAt    int64   `json:"expiresAt"`
	User         UserDTO `json:"user"`
}

func tokenResponse(res *services.AuthResult) TokenResponse {
	return TokenResponse{
		Token:        res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresAt:    res.Tokens.ExpiresAt,
		User:         userDTO(res.User, true),
	}
}

type SkillDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func skillDTOs(items []models.Skill) []SkillDTO {
	out := make([]SkillDTO, 0, len(items))
	for _, item := range items {
		out = append(out, SkillDTO{ID: item.ID, Name: item.Name})
	}
	return out
}

type StudentSkillDTO struct {
	ID          int64  `json:"id"`
	SkillID     int64  `json:"skillId"`
	SkillName   string `json:"skillName"`
	Type        string `json:"type"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

func studentSkillDTOs(items []models.StudentSkillView) []StudentSkillDTO {
	out := make([]StudentSkillDTO, 0, len(items))
	for _, item := range items {
		out = append(out, StudentSkillDTO{
			ID:          item.ID,
			SkillID:     item.SkillID,
			SkillName:   item.SkillName,
			Type:        string(item.Type),
			Points:      item.Points,
			Description: item.Description,
		})
	}
	return out
}

type StudentProfileDTO struct {
	ID            int64             `json:"id"`
	Points        int               `json:"points"`
	LearnedSkills []StudentSkillDTO `json:"learnedSkills"`
	NeededSkills  []StudentSkillDTO `json:"neededSkills"`
}

type InstructorProfileDTO struct {
	ID           int64       `json:"id"`
	CoursesCount int         `json:"coursesCount"`
	Courses      []CourseDTO `json:"courses"`
}

type UserProfileResponse struct {
	User       UserDTO               `json:"user"`
	Student    *StudentProfileDTO    `json:"student,omitempty"`
	Instructor *InstructorProfileDTO `json:"instructor,omitempty"`
}

func userProfileResponse(p *services.UserProfile) UserProfileResponse {
	resp := UserProfileResponse{User: userDTO(p.User, false)}
	if p.Student != nil {
		student := &StudentProfileDTO{
			ID:            p.Student.ID,
			Points:        p.Student.Points,
			LearnedSkills: []StudentSkillDTO{},
			NeededSkills:  []StudentSkillDTO{},
		}
		for _, skill := range studentSkillDTOs(p.Skills) {
			if skill.Type == string(models.SkillLearned) {
				student.LearnedSkills = append(student.LearnedSkills, skill)
			} else {
				student.NeededSkills = append(student.NeededSkills, skill)
			}
		}
		resp.Student = student
	}
	if p.Instructor != nil {
		resp.Instructor = &InstructorProfileDTO{
			ID:           p.Instructor.ID,
			CoursesCount: p.Instructor.CoursesCount,
			Courses:      courseDTOs(p.Courses),
		}
	}
	return resp
}

type CourseDTO struct {
	ID           int64     `json:"id"`
	InstructorID int64     `json:"instructorId"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	CreatedAt    time.Time `json:"createdAt"`
}

func courseDTO(c models.Course) CourseDTO {
	return CourseDTO{
		ID:           c.ID,
		InstructorID: c.InstructorID,
		Title:        c.Title,
		Slug:         c.Slug,
		Description:  c.Description,
		Price:        float64(c.PriceCents) / 100,
		CreatedAt:    c.CreatedAt,
	}
}

func courseDTOs(items []models.Course) []CourseDTO {
	out := make([]CourseDTO, 0, len(items))
	for _, item := range items {
		out = append(out, courseDTO(item))
	}
	return out
}

type ChapterDTO struct {
	ID       int64  `json:"id"`
	CourseID int64  `json:"courseId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

func chapterDTO(c models.CourseChapter) ChapterDTO {
	return ChapterDTO{ID: c.ID, CourseID: c.CourseID, Title: c.Title, Position: c.Position}
}

func chapterDTOs(items []models.CourseChapter) []ChapterDTO {
	out := make([]ChapterDTO, 0, len(items))
	for _, item := range items {
		out = append(out, chapterDTO(item))
	}
	return out
}

type CourseDetailResponse struct {
	CourseDTO
	Chapters []ChapterDTO `json:"chapters"`
}

type VideoDTO struct {
	ID        int64  `json:"id"`
	ChapterID int64  `json:"chapterId"`
	Title     string `json:"title"`
	URL       string `json:"url"`
}

type ArticleDTO struct {
	ID        int64  `json:"id"`
	ChapterID int64  `json:"chapterId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

type ChapterDetailResponse struct {
	ChapterDTO
	Videos   []VideoDTO   `json:"videos"`
	Articles []ArticleDTO `json:"articles"`
}

func chapterDetailResponse(d *services.ChapterDetail) ChapterDetailResponse {
	resp := ChapterDetailResponse{
		ChapterDTO: chapterDTO(d.Chapter),
		Videos:     make([]VideoDTO, 0, len(d.Videos)),
		Articles:   make([]ArticleDTO, 0, len(d.Articles)),
	}
	for _, v := range d.Videos {
		resp.Videos = append(resp.Videos, VideoDTO{ID: v.ID, ChapterID: v.ChapterID, Title: v.Title, URL: v.URL})
	}
	for _, a := range d.Articles {
		resp.Articles = append(resp.Articles, ArticleDTO{ID: a.ID, ChapterID: a.ChapterID, Title: a.Title, Body: a.Body})
	}
	return resp
}

type EnrollmentDTO struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"courseId"`
	StudentID int64     `json:"studentId"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatDTO struct {
	ID            int64      `json:"id"`
	OtherUserID   int64      `json:"otherUserId"`
	OtherUsername string     `json:"otherUsername,omitempty"`
	OtherName     string     `json:"otherName,omitempty"`
	LastMessage   *string    `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func chatSummaryDTOs(items []models.ChatSummary) []ChatDTO {
	out := make([]ChatDTO, 0, len(items))
	for _, item := range items {
		out = append(out, ChatDTO{
			ID:            item.ID,
			OtherUserID:   item.OtherUserID,
			OtherUsername: item.OtherUsername,
			OtherName:     item.OtherName,
			LastMessage:   item.LastMessage,
			LastMessageAt: item.LastMessageAt,
			CreatedAt:     item.CreatedAt,
		})
	}
	return out
}

type SessionDTO struct {
	ID              int64     `json:"id"`
	SkillTransferID int64     `json:"skillTransferId"`
	SessionTitle    string    `json:"sessionTitle"`
	Points          int       `json:"points"`
	Completed       bool      `json:"completed"`
	Paid            bool      `json:"paid"`
	CreatedAt       time.Time `json:"createdAt"`
}

func sessionDTO(s models.Session) SessionDTO {
	return SessionDTO{
		ID:              s.ID,
		SkillTransferID: s.SkillTransferID,
		SessionTitle:    s.Title,
		Points:          s.Points,
		Completed:       s.Completed,
		Paid:            s.Paid,
		CreatedAt:       s.CreatedAt,
	}
}

type PartyDTO struct {
	ProfileID int64  `json:"profileId"`
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type TransferDTO struct {
	ID                int64     `json:"id"`
	SkillID           int64     `json:"skillId"`
	SkillName         string    `json:"skillName,omitempty"`
	Points            int       `json:"points"`
	Status            string    `json:"status"`
	Done              bool      `json:"done"`
	Student           PartyDTO  `json:"student"`
	Teacher           PartyDTO  `json:"teacher"`
	SessionsCount     int       `json:"sessionsCount"`
	CompletedSessions int       `json:"completedSessions"`
	PaidSessions      int       `json:"paidSessions"`
	CreatedAt         time.Time `json:"createdAt"`
}

func transferDTO(t models.TransferSummary) TransferDTO {
	return TransferDTO{
		ID:        t.ID,
		SkillID:   t.SkillID,
		SkillName: t.SkillName,
		Points:    t.Points,
		Status:    string(t.Status),
		Done:      t.Done,
		Student: PartyDTO{
			ProfileID: t.StudentID,
			UserID:    t.StudentUserID,
			Username:  t.StudentUsername,
			FirstName: t.StudentFirstName,
			LastName:  t.StudentLastName,
		},
		Teacher: PartyDTO{
			ProfileID: t.TeacherID,
			UserID:    t.TeacherUserID,
			Username:  t.TeacherUsername,
			FirstName: t.TeacherFirstName,
			LastName:  t.TeacherLastName,
		},
		SessionsCount:     t.SessionsCount,
		CompletedSessions: t.CompletedSessions,
		PaidSessions:      t.PaidSessions,
		CreatedAt:         t.CreatedAt,
	}
}

func transferDTOs(items []models.TransferSummary) []TransferDTO {
	out := make([]TransferDTO, 0, len(items))
	for _, item := range items {
		out = append(out, transferDTO(item))
	}
	return out
}

type TransferDetailsResponse struct {
	TransferDTO
	Sessions []SessionDTO `json:"sessions"`
}

func transferDetailsResponse(d *services.TransferDetails) TransferDetailsResponse {
	resp := TransferDetailsResponse{TransferDTO: transferDTO(d.Summary), Sessions: make([]SessionDTO, 0, len(d.Sessions))}
	for _, session := range d.Sessions {
		resp.Sessions = append(resp.Sessions, sessionDTO(session))
	}
	return resp
}

type TeacherDTO struct {
	ProfileID   int64  `json:"profileId"`
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

func teacherDTOs(items []models.TeacherCandidate) []TeacherDTO {
	out := make([]TeacherDTO, 0, len(items))
	for _, item := range items {
		user := models.User{FirstName: item.FirstName, LastName: item.LastName, Username: item.Username}
		out = append(out, TeacherDTO{
			ProfileID:   item.ProfileID,
			UserID:      item.UserID,
			Username:    item.Username,
			Name:        user.FullName(),
			Points:      item.Points,
			Description: item.Description,
		})
	}
	return out
}

type SessionResultResponse struct {
	Session SessionDTO `json:"session"`
	Status  string     `json:"status"`
}

func sessionResultResponse(r *services.SessionResult) SessionResultResponse {
	return SessionResultResponse{Session: sessionDTO(r.Session), Status: string(r.Status)}
}

type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}
