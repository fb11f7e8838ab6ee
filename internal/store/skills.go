package store

import (
	"context"

	"zenith-backend/internal/db"
	"zenith-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

func (p *Postgres) ListSkills(ctx context.Context) ([]models.Skill, error) {
	skills := []models.Skill{}
	if err := p.db.SelectContext(ctx, &skills, `SELECT id, name FROM skills ORDER BY name`); err != nil {
		return nil, mapError(err)
	}
	return skills, nil
}

func (p *Postgres) CreateSkill(ctx context.Context, name string) (*models.Skill, error) {
	skill := models.Skill{Name: name}
	if err := p.db.GetContext(ctx, &skill.ID, `INSERT INTO skills (name) VALUES ($1) RETURNING id`, name); err != nil {
		return nil, mapError(err)
	}
	return &skill, nil
}

func (p *Postgres) SkillByID(ctx context.Context, id int64) (*models.Skill, error) {
	var skill models.Skill
	if err := p.db.GetContext(ctx, &skill, `SELECT id, name FROM skills WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &skill, nil
}

func (p *Postgres) StudentSkills(ctx context.Context, studentID int64) ([]models.StudentSkillView, error) {
	items := []models.StudentSkillView{}
	if err := p.db.SelectContext(ctx, &items, `
SELECT ss.id, ss.student_id, ss.skill_id, ss.type, ss.points, ss.description, s.name AS skill_name
FROM student_skills ss
JOIN skills s ON s.id = ss.skill_id
WHERE ss.student_id = $1
ORDER BY ss.type, s.name
`, studentID); err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

func (p *Postgres) ReplaceStudentSkills(ctx context.Context, studentID int64, items []models.StudentSkill) error {
	return db.WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM student_skills WHERE student_id = $1`, studentID); err != nil {
			return mapError(err)
		}
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO student_skills (student_id, skill_id, type, points, description)
VALUES ($1,$2,$3,$4,$5)
`, studentID, item.SkillID, item.Type, item.Points, item.Description); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}
