package store

import (
	"context"
	"errors"
	"strings"

	"zenith-backend/internal/db"
	"zenith-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

const transferColumns = `id, student_id, teacher_id, skill_id, points, status, done, created_at`

const sessionColumns = `id, skill_transfer_id, title, points, completed, paid, created_at`

const transferSummarySelect = `
SELECT st.id, st.student_id, st.teacher_id, st.skill_id, st.points, st.status, st.done, st.created_at,
       sk.name AS skill_name,
       su.id AS student_user_id, su.username AS student_username,
       su.first_name AS student_first_name, su.last_name AS student_last_name,
       tu.id AS teacher_user_id, tu.username AS teacher_username,
       tu.first_name AS teacher_first_name, tu.last_name AS teacher_last_name,
       COUNT(se.id) AS sessions_count,
       COUNT(se.id) FILTER (WHERE se.completed) AS completed_sessions,
       COUNT(se.id) FILTER (WHERE se.paid) AS paid_sessions
FROM skill_transfers st
JOIN skills sk ON sk.id = st.skill_id
JOIN student_profiles sp ON sp.id = st.student_id
JOIN users su ON su.id = sp.user_id
JOIN student_profiles tp ON tp.id = st.teacher_id
JOIN users tu ON tu.id = tp.user_id
LEFT JOIN sessions se ON se.skill_transfer_id = st.id
`

const transferSummaryGroup = `
GROUP BY st.id, sk.id, su.id, tu.id
`

func (p *Postgres) PendingTransferExists(ctx context.Context, skillID, studentID, teacherID int64) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists, `
SELECT EXISTS(
  SELECT 1 FROM skill_transfers
  WHERE skill_id = $1 AND student_id = $2 AND teacher_id = $3 AND status = 'pending'
)`, skillID, studentID, teacherID)
	return exists, mapError(err)
}

func (p *Postgres) CreateTransfer(ctx context.Context, transfer *models.SkillTransfer) error {
	if transfer.Status == "" {
		transfer.Status = models.TransferPending
	}
	err := p.db.QueryRowxContext(ctx, `
INSERT INTO skill_transfers (student_id, teacher_id, skill_id, points, status, done)
VALUES ($1,$2,$3,$4,$5,FALSE)
RETURNING id, created_at
`, transfer.StudentID, transfer.TeacherID, transfer.SkillID, transfer.Points, transfer.Status).Scan(&transfer.ID, &transfer.CreatedAt)
	return mapError(err)
}

func (p *Postgres) TransferByID(ctx context.Context, id int64) (*models.SkillTransfer, error) {
	var transfer models.SkillTransfer
	if err := p.db.GetContext(ctx, &transfer, `SELECT `+transferColumns+` FROM skill_transfers WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &transfer, nil
}

func (p *Postgres) TransferSummary(ctx context.Context, id int64) (*models.TransferSummary, error) {
	var summary models.TransferSummary
	if err := p.db.GetContext(ctx, &summary, transferSummarySelect+`WHERE st.id = $1`+transferSummaryGroup, id); err != nil {
		return nil, mapError(err)
	}
	return &summary, nil
}

func (p *Postgres) ListTransfers(ctx context.Context, filter models.TransferFilter) ([]models.TransferSummary, error) {
	where := []string{}
	switch {
	case filter.AsStudent && !filter.AsTeacher:
		where = append(where, "st.student_id = $1")
	case filter.AsTeacher && !filter.AsStudent:
		where = append(where, "st.teacher_id = $1")
	default:
		where = append(where, "(st.student_id = $1 OR st.teacher_id = $1)")
	}
	if filter.Pending {
		where = append(where, "st.status = 'pending'")
	} else {
		where = append(where, "st.status <> 'pending'")
	}
	query := transferSummarySelect + "WHERE " + strings.Join(where, " AND ") + transferSummaryGroup + "ORDER BY st.id DESC"
	items := []models.TransferSummary{}
	if err := p.db.SelectContext(ctx, &items, query, filter.ProfileID); err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

func (p *Postgres) TeacherCandidates(ctx context.Context, skillID, learnerID int64) ([]models.TeacherCandidate, error) {
	items := []models.TeacherCandidate{}
	if err := p.db.SelectContext(ctx, &items, `
SELECT sp.id AS profile_id, u.id AS user_id, u.username, u.first_name, u.last_name, ss.points, ss.description
FROM student_skills ss
JOIN student_profiles sp ON sp.id = ss.student_id
JOIN users u ON u.id = sp.user_id
WHERE ss.skill_id = $1
  AND ss.type = 'learned'
  AND ss.student_id <> $2
  AND NOT EXISTS (
    SELECT 1 FROM skill_transfers st
    WHERE st.skill_id = ss.skill_id
      AND st.student_id = $2
      AND st.teacher_id = ss.student_id
      AND st.status = 'pending'
  )
ORDER BY ss.points, sp.id
`, skillID, learnerID); err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

func (p *Postgres) AcceptTransfer(ctx context.Context, transferID int64, sessions []models.Session) ([]models.Session, error) {
	total := 0
	for _, session := range sessions {
		total += session.Points
	}
	created := make([]models.Session, 0, len(sessions))
	err := db.WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE skill_transfers SET status = 'in_progress', points = $2
WHERE id = $1 AND status = 'pending'
`, transferID, total)
		if err != nil {
			return mapError(err)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return missingOrNotPending(ctx, tx, transferID)
		}
		for _, session := range sessions {
			row := models.Session{}
			if err := tx.GetContext(ctx, &row, `
INSERT INTO sessions (skill_transfer_id, title, points, completed, paid)
VALUES ($1,$2,$3,FALSE,FALSE)
RETURNING `+sessionColumns, transferID, session.Title, session.Points); err != nil {
				return mapError(err)
			}
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (p *Postgres) DeletePendingTransfer(ctx context.Context, transferID int64) error {
	return db.WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM skill_transfers WHERE id = $1 AND status = 'pending'`, transferID)
		if err != nil {
			return mapError(err)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return missingOrNotPending(ctx, tx, transferID)
		}
		return nil
	})
}

func missingOrNotPending(ctx context.Context, tx *sqlx.Tx, transferID int64) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM skill_transfers WHERE id = $1)`, transferID); err != nil {
		return mapError(err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrNotPending
}

func (p *Postgres) AddSession(ctx context.Context, transferID int64, session models.Session) (*models.Session, error) {
	var created models.Session
	err := db.WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		var status models.TransferStatus
		if err := tx.GetContext(ctx, &status, `SELECT status FROM skill_transfers WHERE id = $1 FOR UPDATE`, transferID); err != nil {
			return mapError(err)
		}
		if status == models.TransferPending {
			return ErrNotPending
		}
		if err := tx.GetContext(ctx, &created, `
INSERT INTO sessions (skill_transfer_id, title, points, completed, paid)
VALUES ($1,$2,$3,FALSE,FALSE)
RETURNING `+sessionColumns, transferID, session.Title, session.Points); err != nil {
			return mapError(err)
		}
		_, err := tx.ExecContext(ctx, `UPDATE skill_transfers SET points = points + $2 WHERE id = $1`, transferID, session.Points)
		return mapError(err)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (p *Postgres) SessionsByTransfer(ctx context.Context, transferID int64) ([]models.Session, error) {
	sessions := []models.Session{}
	if err := p.db.SelectContext(ctx, &sessions, `SELECT `+sessionColumns+` FROM sessions WHERE skill_transfer_id = $1 ORDER BY id`, transferID); err != nil {
		return nil, mapError(err)
	}
	return sessions, nil
}

func (p *Postgres) CompleteSession(ctx context.Context, transferID, sessionID int64) (*models.Session, error) {
	var session models.Session
	if err := p.db.GetContext(ctx, &session, `
UPDATE sessions SET completed = TRUE
WHERE id = $1 AND skill_transfer_id = $2
RETURNING `+sessionColumns, sessionID, transferID); err != nil {
		return nil, mapError(err)
	}
	return &session, nil
}

func (p *Postgres) PaySession(ctx context.Context, payment Payment) (*models.Session, error) {
	var session models.Session
	err := db.WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		// Lock both balances in id order so crossed payments cannot deadlock.
		low, high := OrderedPair(payment.PayerProfileID, payment.PayeeProfileID)
		locked := []int64{}
		if err := tx.SelectContext(ctx, &locked, `
SELECT id FROM student_profiles WHERE id IN ($1, $2) ORDER BY id FOR UPDATE
`, low, high); err != nil {
			return mapError(err)
		}
		if len(locked) < 2 && low != high {
			return ErrNotFound
		}

		err := tx.GetContext(ctx, &session, `
UPDATE sessions SET paid = TRUE
WHERE id = $1 AND skill_transfer_id = $2 AND paid = FALSE
RETURNING `+sessionColumns, payment.SessionID, payment.TransferID)
		if err != nil {
			if err = mapError(err); !errors.Is(err, ErrNotFound) {
				return err
			}
			var exists bool
			if err := tx.GetContext(ctx, &exists, `
SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1 AND skill_transfer_id = $2)
`, payment.SessionID, payment.TransferID); err != nil {
				return mapError(err)
			}
			if !exists {
				return ErrNotFound
			}
			// The row exists but the paid = FALSE guard did not match.
			return ErrAlreadyPaid
		}

		res, err := tx.ExecContext(ctx, `
UPDATE student_profiles SET points = points - $1
WHERE id = $2 AND points >= $1
`, session.Points, payment.PayerProfileID)
		if err != nil {
			return mapError(err)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInsufficientPoints
		}
		_, err = tx.ExecContext(ctx, `UPDATE student_profiles SET points = points + $1 WHERE id = $2`, session.Points, payment.PayeeProfileID)
		return mapError(err)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (p *Postgres) UpdateTransferStatus(ctx context.Context, transferID int64, derive StatusFunc) (models.TransferStatus, error) {
	var next models.TransferStatus
	err := db.WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		var current models.TransferStatus
		if err := tx.GetContext(ctx, &current, `SELECT status FROM skill_transfers WHERE id = $1 FOR UPDATE`, transferID); err != nil {
			return mapError(err)
		}
		sessions := []models.Session{}
		if err := tx.SelectContext(ctx, &sessions, `SELECT `+sessionColumns+` FROM sessions WHERE skill_transfer_id = $1 ORDER BY id`, transferID); err != nil {
			return mapError(err)
		}
		next = derive(current, sessions)
		if next == current {
			return nil
		}
		_, err := tx.ExecContext(ctx, `UPDATE skill_transfers SET status = $2, done = $3 WHERE id = $1`,
			transferID, next, next == models.TransferFinished)
		return mapError(err)
	})
	if err != nil {
		return "", err
	}
	return next, nil
}
