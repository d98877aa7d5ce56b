package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lambda-platform/lambda-api/internal/api"
	apimiddleware "github.com/lambda-platform/lambda-api/internal/api/middleware"
)

// setupRouter builds the full route tree with its middleware chain.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)
	r.Use(apimiddleware.MetricsMiddleware(app.collector))

	onboardingHandler := api.NewOnboardingHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		app.tierService,
		app.auditService,
		app.logger,
	)
	usageHandler := api.NewUsageHandler(app.budgetService, app.usageStore, app.logger)
	policyHandler := api.NewPolicyHandler(app.policyEngine, app.auditService, app.logger)
	adminHandler := api.NewAdminHandler(app.tierService, app.auditService, app.collector, app.detectors, app.logger)

	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService, app.logger)
	rateLimitMiddleware := apimiddleware.NewRateLimitMiddleware(app.limiter, app.logger)

	r.Route("/api/v2", func(r chi.Router) {
		// Public endpoints
		r.Post("/onboarding/register", onboardingHandler.Register)
		r.Post("/onboarding/login", onboardingHandler.Login)
		r.Post("/onboarding/refresh", onboardingHandler.Refresh)

		// Authenticated, rate-limited endpoints
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Get("/users/me", onboardingHandler.Profile)
			r.Put("/users/me/tier", onboardingHandler.UpgradeTier)

			r.Post("/usage", usageHandler.RecordUsage)
			r.Get("/usage", usageHandler.ListUsage)
			r.Get("/usage/budget", usageHandler.GetBudget)

			r.Post("/policy/check", policyHandler.Check)
		})

		// Operator endpoints: authenticated and role-gated, but not rate
		// limited so an incident never locks the operators out.
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(apimiddleware.RequireAdmin(app.logger))

			r.Put("/users/{userID}/tier", adminHandler.ChangeTier)
			r.Get("/audit", adminHandler.ListAudit)
			r.Get("/audit/{recordID}/verify", adminHandler.VerifyAudit)
			r.Get("/metrics", adminHandler.Metrics)
			r.Get("/anomalies", adminHandler.Anomalies)
		})
	})

	// Live operations dashboard, admin-only.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(apimiddleware.RequireAdmin(app.logger))
		r.Get("/dashboard/ws", app.hub.ServeWS)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
