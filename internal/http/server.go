package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"zenith-backend/internal/config"
	"zenith-backend/internal/models"
	"zenith-backend/internal/realtime"
	"zenith-backend/internal/services"
	"zenith-backend/internal/store"
)

type Server struct {
	Config    config.Config
	Tokens    services.TokenService
	Log       *zap.Logger
	Hub       *realtime.Hub
	Resolver  *services.Resolver
	Identity  *services.IdentityService
	Skills    *services.SkillService
	Transfers *services.TransferService
	Courses   *services.CourseService
	Chats     *services.ChatService
	Metrics   *services.MetricsService
}

// NewServer wires the services over st. notifier carries chat and metric
// events; pass the hub itself when running a single instance.
func NewServer(st store.Store, cfg config.Config, hub *realtime.Hub, notifier services.Notifier, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	tokens := services.TokenService{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  time.Duration(cfg.AccessTTLSeconds) * time.Second,
		RefreshTTL: time.Duration(cfg.RefreshTTLSeconds) * time.Second,
	}
	return &Server{
		Config:    cfg,
		Tokens:    tokens,
		Log:       log,
		Hub:       hub,
		Resolver:  services.NewResolver(st),
		Identity:  services.NewIdentityService(st, tokens, cfg.SignupPoints, log),
		Skills:    services.NewSkillService(st),
		Transfers: services.NewTransferService(st, log),
		Courses:   services.NewCourseService(st, log),
		Chats:     services.NewChatService(st, notifier, log),
		Metrics:   services.NewMetricsService(st, notifier, cfg.MetricsDiskPath, log),
	}
}

// Router builds the HTTP handler. Sockets stay open until ctx is done.
func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.Log))
	r.Use(middleware.Recoverer)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	auth := WithAuth(s.Tokens)

	r.Get("/health", s.Health)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(a chi.Router) {
			a.Post("/signup", s.Signup)
			a.Post("/login", s.Login)
			a.Post("/refresh", s.Refresh)
			a.With(auth).Get("/me", s.Me)
			a.With(auth).Put("/password", s.ChangePassword)
		})

		api.Route("/skills", func(sk chi.Router) {
			sk.Get("/", s.ListSkills)
			sk.With(auth, RequireRole(models.RoleAdmin)).Post("/", s.CreateSkill)
			sk.With(auth).Get("/students/{studentId}/skills", s.StudentSkills)
			sk.With(auth, RequireRole(models.RoleStudent), s.AsStudent).Put("/students/{studentId}/skills", s.ReplaceStudentSkills)
		})

		api.With(auth).Get("/users/{username}", s.UserProfile)

		api.Route("/courses", func(c chi.Router) {
			c.Get("/", s.ListCourses)
			c.Get("/{courseId}", s.GetCourse)
			c.Get("/{courseId}/chapters", s.ListChapters)

			c.Group(func(owner chi.Router) {
				owner.Use(auth, RequireRole(models.RoleInstructor), s.AsInstructor)
				owner.Post("/", s.CreateCourse)
				owner.Post("/{courseId}/chapters", s.AddChapter)
				owner.Post("/{courseId}/chapters/{chapterId}/videos", s.AddVideo)
				owner.Post("/{courseId}/chapters/{chapterId}/articles", s.AddArticle)
			})

			c.With(auth).Get("/{courseId}/chapters/{chapterId}", s.GetChapter)

			c.Group(func(student chi.Router) {
				student.Use(auth, RequireRole(models.RoleStudent), s.AsStudent)
				student.Post("/enroll", s.Enroll)
				student.Get("/my-enrollments", s.MyEnrollments)
				student.Get("/courses/{courseId}/certificate", s.Certificate)
			})
		})

		api.Route("/chats", func(ch chi.Router) {
			ch.Use(auth)
			ch.Get("/", s.ListChats)
			ch.Post("/", s.CreateChat)
			ch.Get("/{chatId}/messages", s.ListMessages)
			ch.Post("/{chatId}/messages", s.SendMessage)
		})

		api.Route("/skill-transfers", func(st chi.Router) {
			st.Use(auth, RequireRole(models.RoleStudent), s.AsStudent)
			st.Post("/request", s.RequestTransfer)
			st.Get("/teachers-search", s.TeachersSearch)
			st.Get("/my-requests", s.MyRequests)
			st.Get("/my-skill-transfers", s.MySkillTransfers)
			st.Get("/transfer-details/{transferId}", s.TransferDetails)
			st.Put("/accept/{transferId}", s.AcceptTransfer)
			st.Delete("/reject/{transferId}", s.RejectTransfer)
			st.Post("/{transferId}/sessions", s.AddSession)
			st.Put("/{transferId}/complete-session/{sessionId}", s.CompleteSession)
			st.Put("/{transferId}/pay-session/{sessionId}", s.PaySession)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(auth, RequireRole(models.RoleAdmin))
			admin.Get("/metrics/history", s.MetricsHistory)
		})
	})

	r.Get("/ws", s.ChatSocket(ctx))
	r.Get("/ws/metrics", s.MetricsSocket(ctx))
	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
