package store

import (
	"context"
	"fmt"

	"zenith-backend/internal/db"
	"zenith-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, first_name, last_name, username, email, password_hash, role, created_at`

func (p *Postgres) CreateUser(ctx context.Context, user *models.User, startingPoints int) error {
	return db.WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
INSERT INTO users (first_name, last_name, username, email, password_hash, role)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at
`, user.FirstName, user.LastName, user.Username, user.Email, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			return mapError(err)
		}
		switch user.Role {
		case models.RoleStudent:
			_, err = tx.ExecContext(ctx, `INSERT INTO student_profiles (user_id, points) VALUES ($1,$2)`, user.ID, startingPoints)
		case models.RoleInstructor:
			_, err = tx.ExecContext(ctx, `INSERT INTO instructor_profiles (user_id, courses_count) VALUES ($1,0)`, user.ID)
		}
		if err != nil {
			return fmt.Errorf("create %s profile: %w", user.Role, mapError(err))
		}
		return nil
	})
}

func (p *Postgres) UserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := p.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := p.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (p *Postgres) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := p.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = $1`, username); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (p *Postgres) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, userID)
	if err != nil {
		return mapError(err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) StudentProfileByUserID(ctx context.Context, userID int64) (*models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := p.db.GetContext(ctx, &profile, `SELECT id, user_id, points FROM student_profiles WHERE user_id = $1`, userID); err != nil {
		return nil, mapError(err)
	}
	return &profile, nil
}

func (p *Postgres) StudentProfileByID(ctx context.Context, id int64) (*models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := p.db.GetContext(ctx, &profile, `SELECT id, user_id, points FROM student_profiles WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &profile, nil
}

func (p *Postgres) InstructorProfileByUserID(ctx context.Context, userID int64) (*models.InstructorProfile, error) {
	var profile models.InstructorProfile
	if err := p.db.GetContext(ctx, &profile, `SELECT id, user_id, courses_count FROM instructor_profiles WHERE user_id = $1`, userID); err != nil {
		return nil, mapError(err)
	}
	return &profile, nil
}
