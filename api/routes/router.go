package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/swiftdrop/driver-backend/api/controllers"
	"github.com/swiftdrop/driver-backend/api/middleware"
	"github.com/swiftdrop/driver-backend/internal/auth"
	"github.com/swiftdrop/driver-backend/internal/deliveries"
	"github.com/swiftdrop/driver-backend/internal/drivers"
	"github.com/swiftdrop/driver-backend/internal/earnings"
	"github.com/swiftdrop/driver-backend/internal/locations"
	"github.com/swiftdrop/driver-backend/internal/notifications"
	"github.com/swiftdrop/driver-backend/internal/proofs"
	"github.com/swiftdrop/driver-backend/pkg/auth/session"
	"github.com/swiftdrop/driver-backend/pkg/config"
	"github.com/swiftdrop/driver-backend/pkg/db"
	"github.com/swiftdrop/driver-backend/pkg/logger"
	"github.com/swiftdrop/driver-backend/pkg/storage/gcs"
)

// RedisDeps is the slice of the redis client the HTTP layer needs.
type RedisDeps interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         RedisDeps
	GCS           gcs.Pinger
	Sessions      session.AccessSessionChecker
	Auth          auth.Service
	Register      auth.RegisterService
	PasswordReset auth.PasswordResetService
	Drivers       drivers.Service
	Deliveries    deliveries.Service
	Earnings      earnings.Service
	Locations     locations.Service
	Notifications notifications.Service
	Proofs        proofs.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	// Reset requests share the register budget; both gate account abuse.
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"password-reset",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis, p.GCS))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.Register, p.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, p.Redis, logg)).Post("/password-reset", controllers.AuthPasswordResetRequest(p.PasswordReset, logg))
		r.Post("/password-reset/confirm", controllers.AuthPasswordResetConfirm(p.PasswordReset, logg))
		r.With(middleware.Auth(cfg.JWT, p.Sessions, logg)).Post("/logout", controllers.AuthLogout(p.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

		r.Route("/drivers/me", func(r chi.Router) {
			r.Get("/", controllers.DriverProfile(p.Drivers, logg))
			r.Put("/", controllers.DriverUpdateProfile(p.Drivers, logg))
			r.Post("/presence", controllers.DriverSetPresence(p.Drivers, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/", controllers.ListDeliveries(p.Deliveries, logg))
			r.Route("/{deliveryId}", func(r chi.Router) {
				r.Get("/", controllers.GetDelivery(p.Deliveries, logg))
				r.Get("/waypoint", controllers.DeliveryWaypoint(p.Deliveries, logg))
				r.Post("/accept", controllers.AcceptDelivery(p.Deliveries, logg))
				r.Post("/decline", controllers.DeclineDelivery(p.Deliveries, logg))
				r.Post("/pickup", controllers.ConfirmPickup(p.Deliveries, logg))
				r.Post("/depart", controllers.DepartDelivery(p.Deliveries, logg))
				r.Post("/deliver", controllers.CompleteDelivery(p.Deliveries, logg))
			})
		})

		r.Route("/earnings", func(r chi.Router) {
			r.Get("/", controllers.ListEarnings(p.Earnings, logg))
			r.Get("/summary", controllers.EarningsSummary(p.Earnings, logg))
		})

		r.Route("/locations", func(r chi.Router) {
			r.Post("/", controllers.ReportLocations(p.Locations, logg))
			r.Get("/", controllers.LocationHistory(p.Locations, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
			r.Delete("/{notificationId}", controllers.DeleteNotification(p.Notifications, logg))
			r.Delete("/", controllers.ClearNotifications(p.Notifications, logg))
		})

		r.Post("/proofs", controllers.UploadProofPhoto(p.Proofs, cfg.GCS, logg))
	})

	return r
}
