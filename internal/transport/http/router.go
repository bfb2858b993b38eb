// Package httptransport composes the portal's HTTP surface. Handlers stay in
// their feature packages; this layer only mounts them and the operational
// endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applicationhandler "regportal/internal/application/handler"
	intakehandler "regportal/internal/intake/handler"
	"regportal/internal/notify"
	officerhandler "regportal/internal/officerauth/handler"
	"regportal/internal/platform/middleware"
	"regportal/internal/transport/http/shared"
)

// HealthChecker reports readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps is everything the router mounts.
type Deps struct {
	Intake   *intakehandler.Handler
	Officers *officerhandler.Handler
	Admin    *applicationhandler.Handler
	Events   *notify.SSEHandler
	Registry notify.Registry

	AdminToken string
	Checkers   map[string]HealthChecker
	Logger     *slog.Logger
}

// NewRouter mounts the full API.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestMetadata)

	deps.Intake.Register(r)
	deps.Officers.Register(r)
	deps.Admin.Register(r)

	// The event stream carries the same auth gate as the rest of the admin
	// surface but lives outside the /admin subrouter so its long-lived
	// connections skip any future per-request timeouts mounted there.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(deps.AdminToken, deps.Logger))
		deps.Events.Register(r)
	})

	r.Get("/healthz", handleHealth(deps))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		checks := make(map[string]string, len(deps.Checkers))
		for name, checker := range deps.Checkers {
			if err := checker.Health(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		shared.WriteJSON(w, status, map[string]any{
			"status":        httpStatusWord(status),
			"checks":        checks,
			"admins_online": deps.Registry.Members(notify.AdminChannel),
		})
	}
}

func httpStatusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
