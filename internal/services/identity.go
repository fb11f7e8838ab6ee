package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store"
	"zenith-backend/pkg/logger"
)

const minPasswordLength = 6

type SignupInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Role      models.Role
}

type AuthResult struct {
	Tokens TokenPair
	User   models.User
}

// UserProfile is the public view of a user plus its role specific data.
type UserProfile struct {
	User       models.User
	Student    *models.StudentProfile
	Skills     []models.StudentSkillView
	Instructor *models.InstructorProfile
	Courses    []models.Course
}

type IdentityService struct {
	store        store.Store
	tokens       TokenService
	signupPoints int
	log          *zap.Logger
}

func NewIdentityService(s store.Store, tokens TokenService, signupPoints int, log *zap.Logger) *IdentityService {
	return &IdentityService{store: s, tokens: tokens, signupPoints: signupPoints, log: nopIfNil(log)}
}

func (s *IdentityService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	user := models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Role:      in.Role,
	}
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	switch {
	case user.Username == "" || user.Email == "" || strings.TrimSpace(in.Password) == "":
		return nil, ErrValidation("Username, email and password are required")
	case !validEmail(user.Email):
		return nil, ErrValidation("Invalid email")
	case len(in.Password) < minPasswordLength:
		return nil, ErrValidation("Password must be at least 6 characters")
	case !user.Role.Valid():
		return nil, ErrValidation("Invalid role")
	case user.Role == models.RoleAdmin:
		return nil, ErrValidation("Admin accounts cannot be self-registered")
	}

	hash, err := s.tokens.HashPassword(in.Password)
	if err != nil {
		return nil, WrapError(err, "hash password")
	}
	user.PasswordHash = hash
	if err := s.store.CreateUser(ctx, &user, s.signupPoints); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrConflict("Email or username already taken")
		}
		return nil, WrapError(err, "create user")
	}
	s.log.Info("user signed up",
		zap.Int64(logger.FieldUserID, user.ID),
		zap.String("role", string(user.Role)),
	)
	return s.issue(user)
}

// Login accepts either an email or a username as identifier.
func (s *IdentityService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrUnauthorized("Invalid credentials")
	}
	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.store.UserByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.store.UserByUsername(ctx, identifier)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, WrapError(err, "load user")
	}
	if !s.tokens.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrUnauthorized("Invalid credentials")
	}
	return s.issue(*user)
}

func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.Verify(refreshToken, TokenRefresh)
	if err != nil {
		return nil, ErrUnauthorized("Authentication failed")
	}
	user, err := s.store.UserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized("Authentication failed")
	}
	if err != nil {
		return nil, WrapError(err, "load user")
	}
	return s.issue(*user)
}

func (s *IdentityService) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	if len(next) < minPasswordLength {
		return ErrValidation("Password must be at least 6 characters")
	}
	user, err := s.store.UserByID(ctx, actor.UserID)
	if err != nil {
		return translate(err, "load user", "User not found")
	}
	if !s.tokens.VerifyPassword(current, user.PasswordHash) {
		return ErrValidation("Current password is incorrect")
	}
	hash, err := s.tokens.HashPassword(next)
	if err != nil {
		return WrapError(err, "hash password")
	}
	return translate(s.store.UpdatePassword(ctx, user.ID, hash), "update password", "User not found")
}

func (s *IdentityService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	user, err := s.store.UserByID(ctx, actor.UserID)
	if err != nil {
		return nil, translate(err, "load user", "User not found")
	}
	return user, nil
}

func (s *IdentityService) GetUserProfile(ctx context.Context, username string) (*UserProfile, error) {
	user, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, translate(err, "load user", "User not found")
	}
	profile := &UserProfile{User: *user}
	switch user.Role {
	case models.RoleStudent:
		student, err := s.store.StudentProfileByUserID(ctx, user.ID)
		if err != nil {
			return nil, translate(err, "load student profile", "Student profile not found")
		}
		skills, err := s.store.StudentSkills(ctx, student.ID)
		if err != nil {
			return nil, WrapError(err, "load student skills")
		}
		profile.Student = student
		profile.Skills = skills
	case models.RoleInstructor:
		instructor, err := s.store.InstructorProfileByUserID(ctx, user.ID)
		if err != nil {
			return nil, translate(err, "load instructor profile", "Instructor profile not found")
		}
		courses, err := s.store.CoursesByInstructor(ctx, instructor.ID)
		if err != nil {
			return nil, WrapError(err, "load instructor courses")
		}
		profile.Instructor = instructor
		profile.Courses = courses
	}
	return profile, nil
}

func (s *IdentityService) issue(user models.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, WrapError(err, "issue tokens")
	}
	return &AuthResult{Tokens: pair, User: user}, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
