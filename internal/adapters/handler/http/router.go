package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries the handlers and middleware the router mounts. Auth,
// VoteLimiter, MetricsHandler and MediaDir are optional.
type RouterConfig struct {
	Questions *QuestionHandler
	Votes     *VoteHandler
	Profiles  *ProfileHandler
	Auth      *AuthHandler

	AuthMiddleware *AuthMiddleware
	VoteLimiter    *VoteLimiter

	Logger         *slog.Logger
	Metrics        MetricsRecorder
	MetricsHandler http.Handler
	MediaDir       string
}

func NewHandler(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger, cfg.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.MediaDir != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(filesOnly{http.Dir(cfg.MediaDir)})))
	}

	if cfg.Auth != nil {
		r.Route("/oauth", func(r chi.Router) {
			r.Post("/callback", cfg.Auth.GoogleCallback)
			r.Post("/refresh", cfg.Auth.Refresh)
			r.Post("/logout", cfg.Auth.Logout)
		})
	}

	auth := cfg.AuthMiddleware
	voteLimit := func(next http.Handler) http.Handler { return next }
	if cfg.VoteLimiter != nil {
		voteLimit = cfg.VoteLimiter.Middleware
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Optional)

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", cfg.Questions.ListQuestions)
			r.With(auth.Required).Post("/", cfg.Questions.CreateQuestion)
			r.With(auth.Required).Get("/expired", cfg.Questions.ListExpired)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Questions.GetQuestion)
				r.With(auth.Required).Delete("/", cfg.Questions.DeleteQuestion)
				r.Get("/results", cfg.Questions.Results)
				r.With(voteLimit).Post("/votes", cfg.Votes.Vote)
				r.With(auth.Required).Get("/my-vote", cfg.Votes.MyVote)
			})
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(auth.Required)
			r.Get("/", cfg.Profiles.GetMe)
			r.Delete("/", cfg.Profiles.DeleteAccount)
			r.Put("/profile", cfg.Profiles.UpdateProfile)
			r.Post("/avatar", cfg.Profiles.UploadAvatar)
		})
	})

	return r
}

// filesOnly serves regular files and reports directories as missing, so
// uploads cannot be enumerated.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
