package services

import (
	"context"
	"errors"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store"
)

// Actor is an authenticated caller as read from its access token.
type Actor struct {
	UserID   int64
	Username string
	Role     models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Student is an actor whose student profile has been loaded.
type Student struct {
	Actor
	ProfileID int64
}

// Instructor is an actor whose instructor profile has been loaded.
type Instructor struct {
	Actor
	ProfileID int64
}

// Resolver turns actors into role variants.
type Resolver struct {
	store store.Identity
}

func NewResolver(s store.Identity) *Resolver {
	return &Resolver{store: s}
}

func (r *Resolver) Student(ctx context.Context, actor Actor) (Student, error) {
	if actor.Role != models.RoleStudent {
		return Student{}, ErrForbidden("Student role required")
	}
	profile, err := r.store.StudentProfileByUserID(ctx, actor.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Student{}, ErrForbidden("Student profile missing")
	}
	if err != nil {
		return Student{}, WrapError(err, "load student profile")
	}
	return Student{Actor: actor, ProfileID: profile.ID}, nil
}

func (r *Resolver) Instructor(ctx context.Context, actor Actor) (Instructor, error) {
	if actor.Role != models.RoleInstructor {
		return Instructor{}, ErrForbidden("Instructor role required")
	}
	profile, err := r.store.InstructorProfileByUserID(ctx, actor.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Instructor{}, ErrForbidden("Instructor profile missing")
	}
	if err != nil {
		return Instructor{}, WrapError(err, "load instructor profile")
	}
	return Instructor{Actor: actor, ProfileID: profile.ID}, nil
}
