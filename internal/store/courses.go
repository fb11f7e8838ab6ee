package store

import (
	"context"
	"strings"

	"zenith-backend/internal/db"
	"zenith-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

const courseColumns = `id, instructor_id, title, slug, description, price_cents, created_at`

func (p *Postgres) ListCourses(ctx context.Context, search string) ([]models.Course, error) {
	courses := []models.Course{}
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		if err := p.db.SelectContext(ctx, &courses, `SELECT `+courseColumns+` FROM courses ORDER BY created_at DESC, id DESC`); err != nil {
			return nil, mapError(err)
		}
		return courses, nil
	}
	like := "%" + escapeLike(term) + "%"
	if err := p.db.SelectContext(ctx, &courses, `
SELECT `+courseColumns+`
FROM courses
WHERE lower(title) LIKE $1 ESCAPE '\' OR lower(description) LIKE $1 ESCAPE '\'
ORDER BY created_at DESC, id DESC
`, like); err != nil {
		return nil, mapError(err)
	}
	return courses, nil
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}

func (p *Postgres) CoursesByInstructor(ctx context.Context, instructorID int64) ([]models.Course, error) {
	courses := []models.Course{}
	if err := p.db.SelectContext(ctx, &courses, `SELECT `+courseColumns+` FROM courses WHERE instructor_id = $1 ORDER BY created_at DESC, id DESC`, instructorID); err != nil {
		return nil, mapError(err)
	}
	return courses, nil
}

func (p *Postgres) CourseByID(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	if err := p.db.GetContext(ctx, &course, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &course, nil
}

func (p *Postgres) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM courses WHERE slug = $1)`, slug)
	return exists, mapError(err)
}

func (p *Postgres) CreateCourse(ctx context.Context, course *models.Course) error {
	return db.WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, `
INSERT INTO courses (instructor_id, title, slug, description, price_cents)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, created_at
`, course.InstructorID, course.Title, course.Slug, course.Description, course.PriceCents).Scan(&course.ID, &course.CreatedAt); err != nil {
			return mapError(err)
		}
		_, err := tx.ExecContext(ctx, `UPDATE instructor_profiles SET courses_count = courses_count + 1 WHERE id = $1`, course.InstructorID)
		return mapError(err)
	})
}

func (p *Postgres) Chapters(ctx context.Context, courseID int64) ([]models.CourseChapter, error) {
	chapters := []models.CourseChapter{}
	if err := p.db.SelectContext(ctx, &chapters, `
SELECT id, course_id, title, position FROM course_chapters
WHERE course_id = $1
ORDER BY position, id
`, courseID); err != nil {
		return nil, mapError(err)
	}
	return chapters, nil
}

func (p *Postgres) ChapterByID(ctx context.Context, courseID, chapterID int64) (*models.CourseChapter, error) {
	var chapter models.CourseChapter
	if err := p.db.GetContext(ctx, &chapter, `
SELECT id, course_id, title, position FROM course_chapters
WHERE id = $1 AND course_id = $2
`, chapterID, courseID); err != nil {
		return nil, mapError(err)
	}
	return &chapter, nil
}

func (p *Postgres) CreateChapter(ctx context.Context, chapter *models.CourseChapter) error {
	err := p.db.QueryRowxContext(ctx, `
INSERT INTO course_chapters (course_id, title, position)
VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM course_chapters WHERE course_id = $1))
RETURNING id, position
`, chapter.CourseID, chapter.Title).Scan(&chapter.ID, &chapter.Position)
	return mapError(err)
}

func (p *Postgres) CreateVideo(ctx context.Context, video *models.Video) error {
	err := p.db.GetContext(ctx, &video.ID, `
INSERT INTO videos (chapter_id, title, url) VALUES ($1,$2,$3) RETURNING id
`, video.ChapterID, video.Title, video.URL)
	return mapError(err)
}

func (p *Postgres) CreateArticle(ctx context.Context, article *models.Article) error {
	err := p.db.GetContext(ctx, &article.ID, `
INSERT INTO articles (chapter_id, title, body) VALUES ($1,$2,$3) RETURNING id
`, article.ChapterID, article.Title, article.Body)
	return mapError(err)
}

func (p *Postgres) ChapterContent(ctx context.Context, chapterID int64) ([]models.Video, []models.Article, error) {
	videos := []models.Video{}
	if err := p.db.SelectContext(ctx, &videos, `SELECT id, chapter_id, title, url FROM videos WHERE chapter_id = $1 ORDER BY id`, chapterID); err != nil {
		return nil, nil, mapError(err)
	}
	articles := []models.Article{}
	if err := p.db.SelectContext(ctx, &articles, `SELECT id, chapter_id, title, body FROM articles WHERE chapter_id = $1 ORDER BY id`, chapterID); err != nil {
		return nil, nil, mapError(err)
	}
	return videos, articles, nil
}

func (p *Postgres) Enroll(ctx context.Context, courseID, studentID int64) (*models.Enrollment, error) {
	if _, err := p.db.ExecContext(ctx, `
INSERT INTO enrollments (course_id, student_id) VALUES ($1,$2)
ON CONFLICT (course_id, student_id) DO NOTHING
`, courseID, studentID); err != nil {
		return nil, mapError(err)
	}
	var enrollment models.Enrollment
	if err := p.db.GetContext(ctx, &enrollment, `
SELECT id, course_id, student_id, created_at FROM enrollments
WHERE course_id = $1 AND student_id = $2
`, courseID, studentID); err != nil {
		return nil, mapError(err)
	}
	return &enrollment, nil
}

func (p *Postgres) EnrollmentExists(ctx context.Context, courseID, studentID int64) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2)`, courseID, studentID)
	return exists, mapError(err)
}

func (p *Postgres) EnrolledCourses(ctx context.Context, studentID int64) ([]models.Course, error) {
	courses := []models.Course{}
	if err := p.db.SelectContext(ctx, &courses, `
SELECT c.id, c.instructor_id, c.title, c.slug, c.description, c.price_cents, c.created_at
FROM courses c
JOIN enrollments e ON e.course_id = c.id
WHERE e.student_id = $1
ORDER BY e.created_at DESC, e.id DESC
`, studentID); err != nil {
		return nil, mapError(err)
	}
	return courses, nil
}
