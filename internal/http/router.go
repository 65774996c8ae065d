package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"github.com/JG3233/babybuddy/internal/auth"
	"github.com/JG3233/babybuddy/internal/baby"
	"github.com/JG3233/babybuddy/internal/config"
	"github.com/JG3233/babybuddy/internal/event"
	"github.com/JG3233/babybuddy/internal/family"
	"github.com/JG3233/babybuddy/internal/http/handler"
	mw "github.com/JG3233/babybuddy/internal/http/middleware"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	rl := mw.NewRateLimiter()
	read := rl.Limit(cfg.RateLimitReads)
	write := rl.Limit(cfg.RateLimitWrites)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.With(write).Post("/auth/register", ah.Register)
	r.With(write).Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	familySvc := &family.Service{DB: db}
	babySvc := &baby.Service{DB: db}
	eventSvc := &event.Service{DB: db}

	fh := &handler.FamilyHandler{Families: familySvc, Events: eventSvc}
	bh := &handler.BabyHandler{Babies: babySvc}
	eh := &handler.EventHandler{Events: eventSvc, Babies: babySvc}
	sh := &handler.SummaryHandler{Events: eventSvc, Babies: babySvc}

	r.Route("/families", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.With(write).Post("/", fh.Create)
		r.With(read).Get("/", fh.List)

		r.Route("/{familyID}", func(r chi.Router) {
			r.With(read).Get("/members", fh.Members)
			r.With(write).Post("/members", fh.AddMember)
			r.With(write).Delete("/", fh.Delete)
			r.With(read).Get("/recent", fh.Recent)

			r.With(read).Get("/babies", bh.List)
			r.With(write).Post("/babies", bh.Create)
		})
	})

	r.Route("/babies/{babyID}", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.With(read).Get("/events", eh.List)
		r.With(write).Post("/events", eh.Create)

		r.With(read).Get("/summary/daily", sh.Daily)
		r.With(read).Get("/summary/range", sh.Range)
		r.With(read).Get("/calendar", sh.Calendar)
	})

	r.Route("/events/{eventID}", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.With(write).Patch("/", eh.Update)
		r.With(write).Delete("/", eh.Delete)
	})

	return r
}
