package httpapi

import (
	"context"
	"net/http"
	"strings"

	"zenith-backend/internal/models"
	"zenith-backend/internal/services"
)

type contextKey string

const (
	ctxActor      contextKey = "actor"
	ctxStudent    contextKey = "student"
	ctxInstructor contextKey = "instructor"
)

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func actorFromClaims(claims services.Claims) services.Actor {
	return services.Actor{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}
}

// WithAuth rejects requests without a valid access token.
func WithAuth(tokenService services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				writeUnauthorized(w)
				return
			}
			claims, err := tokenService.Verify(tokenStr, services.TokenAccess)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), ctxActor, actorFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CurrentActor(r *http.Request) (services.Actor, bool) {
	actor, ok := r.Context().Value(ctxActor).(services.Actor)
	return actor, ok
}

func CurrentStudent(r *http.Request) services.Student {
	student, _ := r.Context().Value(ctxStudent).(services.Student)
	return student
}

func CurrentInstructor(r *http.Request) services.Instructor {
	instructor, _ := r.Context().Value(ctxInstructor).(services.Instructor)
	return instructor
}

func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return RequireAnyRole(role)
}

func RequireAnyRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := map[models.Role]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := CurrentActor(r)
			if !ok {
				writeUnauthorized(w)
				return
			}
			if !allowed[actor.Role] {
				writeForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AsStudent loads the caller's student profile once for the handlers below it.
func (s *Server) AsStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := CurrentActor(r)
		if !ok {
			writeUnauthorized(w)
			return
		}
		student, err := s.Resolver.Student(r.Context(), actor)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxStudent, student)))
	})
}

func (s *Server) AsInstructor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := CurrentActor(r)
		if !ok {
			writeUnauthorized(w)
			return
		}
		instructor, err := s.Resolver.Instructor(r.Context(), actor)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxInstructor, instructor)))
	})
}
