package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/infrastructure/http/handlers"
	"github.com/petar554/fakturo/internal/infrastructure/http/middleware"
)

type RouterConfig struct {
	AuthHandler          *handlers.AuthHandler
	OrganizationsHandler *handlers.OrganizationsHandler
	ClientsHandler       *handlers.ClientsHandler
	EmailHandler         *handlers.EmailHandler
	HealthHandler        *handlers.HealthHandler
	Auth                 *middleware.AuthGuard
	Membership           *middleware.MembershipGuard
	Quota                *middleware.QuotaGuard
	Log                  zerolog.Logger
	Secure               func(http.Handler) http.Handler
	CORS                 func(http.Handler) http.Handler
	IPRateLimit          func(http.Handler) http.Handler
	Metrics              bool // expose /metrics
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(middleware.PrometheusMiddleware)
	}
	if cfg.Secure != nil {
		r.Use(cfg.Secure)
	}
	if cfg.CORS != nil {
		r.Use(cfg.CORS)
	}
	if cfg.IPRateLimit != nil {
		r.Use(cfg.IPRateLimit)
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.ServeHTTP)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
			r.Post("/refresh", cfg.AuthHandler.Refresh)
			r.Post("/reset-password", cfg.AuthHandler.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(cfg.Auth.Require)
				r.Get("/me", cfg.AuthHandler.Me)
				r.Post("/logout", cfg.AuthHandler.Logout)
				r.Post("/update-password", cfg.AuthHandler.UpdatePassword)
			})
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Use(cfg.Auth.Require)
			r.Get("/", cfg.OrganizationsHandler.List)
			r.Get("/my", cfg.OrganizationsHandler.List)
			r.Post("/", cfg.OrganizationsHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(cfg.Membership.Handler)
				r.Get("/", cfg.OrganizationsHandler.Get)
				r.Get("/stats", cfg.OrganizationsHandler.GetStats)
				r.With(middleware.RequireRole(domain.RoleOrgAdmin)).
					Put("/", cfg.OrganizationsHandler.Update)

				r.Route("/members", func(r chi.Router) {
					r.Get("/", cfg.OrganizationsHandler.GetMembers)
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireRole(domain.RoleOrgAdmin))
						r.Post("/", cfg.OrganizationsHandler.AddMember)
						r.Delete("/{userId}", cfg.OrganizationsHandler.RemoveMember)
						r.Patch("/{userId}/role", cfg.OrganizationsHandler.UpdateMemberRole)
					})
				})
			})
		})

		r.Route("/clients", func(r chi.Router) {
			r.Use(cfg.Auth.Require)
			r.Use(cfg.Membership.Handler)

			r.Get("/", cfg.ClientsHandler.List)
			r.Post("/search", cfg.ClientsHandler.Search)
			r.Post("/find-by-name", cfg.ClientsHandler.FindByName)
			r.Get("/by-tax-id/{taxId}", cfg.ClientsHandler.FindByTaxID)
			r.With(
				middleware.RequireRole(domain.RoleOrgAdmin, domain.RoleAccountant),
				cfg.Quota.Require(domain.QuotaClients),
				cfg.Quota.Warn,
			).Post("/", cfg.ClientsHandler.Create)

			r.Route("/{clientId}", func(r chi.Router) {
				r.Get("/", cfg.ClientsHandler.Get)
				r.Get("/stats", cfg.ClientsHandler.GetStats)
				r.Get("/documents", cfg.ClientsHandler.Documents)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(domain.RoleOrgAdmin, domain.RoleAccountant))
					r.Put("/", cfg.ClientsHandler.Update)
					r.Delete("/", cfg.ClientsHandler.Delete)
					r.Post("/assign-accountant", cfg.ClientsHandler.AssignAccountant)
				})
			})
		})

		r.Route("/email", func(r chi.Router) {
			r.Use(cfg.Auth.Require)
			r.Use(cfg.Membership.Handler)
			r.Use(middleware.RequireRole(domain.RoleOrgAdmin))

			r.Post("/configure", cfg.EmailHandler.Configure)
			r.Post("/test", cfg.EmailHandler.Test)
			r.Get("/status", cfg.EmailHandler.Status)
			r.Post("/process", cfg.EmailHandler.Process)
			r.Delete("/disconnect", cfg.EmailHandler.Disconnect)
		})
	})

	return r
}

func loggerMiddleware(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimid.GetReqID(r.Context())
			log.Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request")
			next.ServeHTTP(w, r)
		})
	}
}
