package services

import (
	"context"
	"errors"
	"strings"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store"
)

type StudentSkillInput struct {
	SkillID     int64
	Type        models.SkillType
	Points      int
	Description string
}

type SkillService struct {
	store store.Store
}

func NewSkillService(s store.Store) *SkillService {
	return &SkillService{store: s}
}

func (s *SkillService) List(ctx context.Context) ([]models.Skill, error) {
	skills, err := s.store.ListSkills(ctx)
	if err != nil {
		return nil, WrapError(err, "list skills")
	}
	return skills, nil
}

func (s *SkillService) Create(ctx context.Context, name string) (*models.Skill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrValidation("Skill name is required")
	}
	skill, err := s.store.CreateSkill(ctx, name)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrConflict("Skill already exists")
	}
	if err != nil {
		return nil, WrapError(err, "create skill")
	}
	return skill, nil
}

func (s *SkillService) StudentSkills(ctx context.Context, studentID int64) ([]models.StudentSkillView, error) {
	if _, err := s.store.StudentProfileByID(ctx, studentID); err != nil {
		return nil, translate(err, "load student profile", "Student not found")
	}
	items, err := s.store.StudentSkills(ctx, studentID)
	if err != nil {
		return nil, WrapError(err, "list student skills")
	}
	return items, nil
}

// Replace swaps the caller's whole skill declaration set.
func (s *SkillService) Replace(ctx context.Context, caller Student, studentID int64, items []StudentSkillInput) ([]models.StudentSkillView, error) {
	if caller.ProfileID != studentID {
		return nil, ErrForbidden("You can only edit your own skills")
	}
	seen := map[int64]bool{}
	rows := make([]models.StudentSkill, 0, len(items))
	for _, item := range items {
		switch {
		case item.SkillID <= 0:
			return nil, ErrValidation("Skill id is required")
		case item.Type != models.SkillLearned && item.Type != models.SkillNeeded:
			return nil, ErrValidation("Skill type must be learned or needed")
		case item.Points < 0:
			return nil, ErrValidation("Points cannot be negative")
		case seen[item.SkillID]:
			return nil, ErrValidation("Duplicate skill in request")
		}
		seen[item.SkillID] = true
		rows = append(rows, models.StudentSkill{
			StudentID:   studentID,
			SkillID:     item.SkillID,
			Type:        item.Type,
			Points:      item.Points,
			Description: strings.TrimSpace(item.Description),
		})
	}
	if err := s.store.ReplaceStudentSkills(ctx, studentID, rows); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrValidation("Duplicate skill in request")
		}
		return nil, translate(err, "replace student skills", "Skill not found")
	}
	return s.StudentSkills(ctx, studentID)
}
