package httpapi

import (
	"math"
	"net/http"
	"strconv"

	"zenith-backend/internal/services"
)

type CreateCourseRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

type CreateChapterRequest struct {
	Title string `json:"title"`
}

type CreateVideoRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type CreateArticleRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type EnrollRequest struct {
	CourseID int64 `json:"courseId"`
}

func (s *Server) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.Courses.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[CourseDTO]{Items: courseDTOs(courses)})
}

func (s *Server) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "courseId")
	if !ok {
		return
	}
	detail, err := s.Courses.Get(r.Context(), courseID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, CourseDetailResponse{CourseDTO: courseDTO(detail.Course), Chapters: chapterDTOs(detail.Chapters)})
}

func (s *Server) ListChapters(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "courseId")
	if !ok {
		return
	}
	chapters, err := s.Courses.Chapters(r.Context(), courseID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[ChapterDTO]{Items: chapterDTOs(chapters)})
}

func (s *Server) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	course, err := s.Courses.Create(r.Context(), CurrentInstructor(r), services.CourseInput{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  int(math.Round(req.Price * 100)),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, courseDTO(*course))
}

func (s *Server) AddChapter(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "courseId")
	if !ok {
		return
	}
	var req CreateChapterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	chapter, err := s.Courses.AddChapter(r.Context(), CurrentInstructor(r), courseID, req.Title)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, chapterDTO(*chapter))
}

func (s *Server) AddVideo(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "courseId")
	if !ok {
		return
	}
	chapterID, ok := pathID(w, r, "chapterId")
	if !ok {
		return
	}
	var req CreateVideoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	video, err := s.Courses.AddVideo(r.Context(), CurrentInstructor(r), courseID, chapterID, req.Title, req.URL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, VideoDTO{ID: video.ID, ChapterID: video.ChapterID, Title: video.Title, URL: video.URL})
}

func (s *Server) AddArticle(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "courseId")
	if !ok {
		return
	}
	chapterID, ok := pathID(w, r, "chapterId")
	if !ok {
		return
	}
	var req CreateArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	article, err := s.Courses.AddArticle(r.Context(), CurrentInstructor(r), courseID, chapterID, req.Title, req.Body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ArticleDTO{ID: article.ID, ChapterID: article.ChapterID, Title: article.Title, Body: article.Body})
}

func (s *Server) GetChapter(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "courseId")
	if !ok {
		return
	}
	chapterID, ok := pathID(w, r, "chapterId")
	if !ok {
		return
	}
	actor, _ := CurrentActor(r)
	detail, err := s.Courses.GetChapter(r.Context(), actor, courseID, chapterID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, chapterDetailResponse(detail))
}

func (s *Server) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	if req.CourseID <= 0 {
		WriteError(w, http.StatusBadRequest, services.CodeValidation, "courseId is required")
		return
	}
	enrollment, err := s.Courses.Enroll(r.Context(), CurrentStudent(r), req.CourseID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, EnrollmentDTO{
		ID:        enrollment.ID,
		CourseID:  enrollment.CourseID,
		StudentID: enrollment.StudentID,
		CreatedAt: enrollment.CreatedAt,
	})
}

func (s *Server) MyEnrollments(w http.ResponseWriter, r *http.Request) {
	courses, err := s.Courses.MyEnrollments(r.Context(), CurrentStudent(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[CourseDTO]{Items: courseDTOs(courses)})
}

func (s *Server) Certificate(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "courseId")
	if !ok {
		return
	}
	cert, err := s.Courses.Certificate(r.Context(), CurrentStudent(r), courseID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+cert.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(cert.PDF)))
	w.Header().Set("X-Certificate-Id", cert.ID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cert.PDF)
}
