package router

import (
	"net/http"

	"github.com/gemforge/backend/internal/auth"
	"github.com/gemforge/backend/internal/dashboard"
	"github.com/gemforge/backend/internal/handlers"
)

type Handlers struct {
	Auth      *auth.Handler
	Dashboard *dashboard.Handler
	Jobs      *handlers.JobHandler
	Rewards   *handlers.RewardHandler
	Admin     *handlers.AdminHandler
	Payments  *handlers.PaymentHandler
}

// Middleware is the chain applied per route group. Nil entries are skipped.
type Middleware struct {
	Auth      func(http.Handler) http.Handler
	Admin     func(http.Handler) http.Handler
	RateLimit func(http.Handler) http.Handler
}

// New returns the API mux. Public routes: auth, packages, payment webhook.
// Everything else needs a bearer token; admin-* routes also need is_admin.
func New(h Handlers, m Middleware) *http.ServeMux {
	mux := http.NewServeMux()

	public := chain(m.RateLimit)
	user := chain(m.Auth, m.RateLimit)
	admin := chain(m.Auth, m.Admin, m.RateLimit)

	mux.Handle("POST /auth/register", public(http.HandlerFunc(h.Auth.Register)))
	mux.Handle("POST /auth/login", public(http.HandlerFunc(h.Auth.Login)))

	mux.Handle("GET /me", user(http.HandlerFunc(h.Dashboard.GetMe)))
	mux.Handle("PATCH /me", user(http.HandlerFunc(h.Dashboard.UpdateSettings)))
	mux.Handle("GET /ledger", user(http.HandlerFunc(h.Dashboard.ListLedger)))
	mux.Handle("GET /images", user(http.HandlerFunc(h.Dashboard.ListImages)))
	mux.Handle("GET /images/{id}", user(http.HandlerFunc(h.Dashboard.GetImage)))

	mux.Handle("POST /generate-group-image", user(http.HandlerFunc(h.Jobs.GenerateGroupImage)))
	mux.Handle("POST /comic-render-panel", user(http.HandlerFunc(h.Jobs.ComicRenderPanel)))
	mux.Handle("GET /jobs", user(http.HandlerFunc(h.Jobs.ListJobs)))
	mux.Handle("GET /jobs/{id}", user(http.HandlerFunc(h.Jobs.GetJob)))

	mux.Handle("POST /daily-check-in", user(http.HandlerFunc(h.Rewards.DailyCheckIn)))
	mux.Handle("POST /share-image", user(http.HandlerFunc(h.Rewards.ShareImage)))

	mux.Handle("GET /admin-users", admin(http.HandlerFunc(h.Admin.ListUsers)))
	mux.Handle("GET /admin-users/{id}", admin(http.HandlerFunc(h.Admin.GetUser)))
	mux.Handle("POST /admin-users/{id}/diamonds", admin(http.HandlerFunc(h.Admin.AdjustDiamonds)))
	mux.Handle("POST /admin-users/{id}/admin", admin(http.HandlerFunc(h.Admin.SetAdmin)))
	mux.Handle("GET /admin-users/{id}/ledger", admin(http.HandlerFunc(h.Admin.UserLedger)))

	mux.Handle("GET /payments/packages", public(http.HandlerFunc(h.Payments.ListPackages)))
	mux.Handle("POST /payments/create-link", user(http.HandlerFunc(h.Payments.CreateLink)))
	mux.Handle("GET /payments/orders/{orderCode}", user(http.HandlerFunc(h.Payments.GetOrder)))
	mux.HandleFunc("POST /payments/webhook", h.Payments.Webhook)

	return mux
}

// chain applies mws so the first one runs outermost.
func chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				next = mws[i](next)
			}
		}
		return next
	}
}
