package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/NatesHonor/apisite/internal/auth"
	"github.com/NatesHonor/apisite/internal/config"
	"github.com/NatesHonor/apisite/internal/guard"
	"github.com/NatesHonor/apisite/internal/mail"
	"github.com/NatesHonor/apisite/internal/models"
	"github.com/NatesHonor/apisite/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

type Api struct {
	Config   config.Config
	Router   *chi.Mux
	accounts store.AccountStore
	tokens   *auth.TokenManager
	sessions *auth.SessionStore
	verifier *auth.Verifier
	workflow *auth.Workflow
	gateway  *auth.Gateway
	limiter  *guard.Limiter
	origins  *guard.OriginGuard
}

func NewApi(cfg config.Config, accounts store.AccountStore, rdb *redis.Client, mailer mail.Mailer) (*Api, error) {
	if cfg.APIPort == 0 {
		return nil, fmt.Errorf("Must have at least a port to start API")
	}

	verifier, err := auth.NewVerifier(accounts)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.SessionTTL, cfg.JWT.VerificationTTL)
	sessions := auth.NewSessionStore(rdb, cfg.Session.TTL, cfg.Session.Sliding)

	api := &Api{
		Config:   cfg,
		Router:   chi.NewRouter(),
		accounts: accounts,
		tokens:   tokens,
		sessions: sessions,
		verifier: verifier,
		workflow: auth.NewWorkflow(accounts, tokens, rdb, mailer, cfg.Mail.ClientURL,
			cfg.JWT.VerificationTTL, cfg.Limits.ResendCooldown),
		gateway: auth.NewGateway(sessions, tokens, cfg.Session.CookieName),
		limiter: guard.NewLimiter(rdb, cfg.Limits.Window, cfg.Limits.Max,
			cfg.Limits.SlowdownAfter, cfg.Limits.SlowdownStep, cfg.Limits.SlowdownMax),
		origins: guard.NewOriginGuard(cfg.Origins.Allowed),
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.Config.Origins.Allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Get("/heartbeat", api.Heartbeat)

	r.Route("/api", func(r chi.Router) {
		r.Use(api.origins.Middleware)

		// Credential endpoints sit behind the abuse guard.
		r.Group(func(r chi.Router) {
			r.Use(api.limiter.Middleware)
			r.Post("/register", api.RegisterHandler)
			r.Post("/login", api.LoginHandler)
			r.Post("/email/send-verification", api.ResendHandler)
			r.Post("/email/verify", api.VerifyHandler)
		})

		r.Post("/logout", api.LogoutHandler)

		// Protected routes for downstream collaborators.
		r.Group(func(r chi.Router) {
			r.Use(api.gateway.Middleware)
			r.Get("/user/role", api.RoleHandler)
			r.Get("/user/me", api.MeHandler)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleAdministrator))
				r.Get("/admin/accounts", api.AdminAccountsHandler)
			})
		})
	})
}

func (api *Api) Serve() {
	log.Printf("Starting API server on 0.0.0.0:%d", api.Config.APIPort)
	log.Fatal(http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort), api.Router))
}

func (api *Api) Heartbeat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// depCtx bounds outbound store and mail calls so a stalled dependency
// surfaces as a typed failure instead of hanging the request.
func (api *Api) depCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), api.Config.Timeouts.Dependency)
}
