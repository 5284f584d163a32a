package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lacasita-io/storefront-backend/api/controllers"
	"github.com/lacasita-io/storefront-backend/api/middleware"
	addresssvc "github.com/lacasita-io/storefront-backend/internal/address"
	"github.com/lacasita-io/storefront-backend/internal/cart"
	"github.com/lacasita-io/storefront-backend/internal/notifications"
	"github.com/lacasita-io/storefront-backend/internal/orders"
	"github.com/lacasita-io/storefront-backend/internal/payments"
	"github.com/lacasita-io/storefront-backend/pkg/config"
	"github.com/lacasita-io/storefront-backend/pkg/db"
	"github.com/lacasita-io/storefront-backend/pkg/enums"
	"github.com/lacasita-io/storefront-backend/pkg/logger"
	"github.com/lacasita-io/storefront-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Keeping it a struct
// saves main.go from a twenty-argument constructor.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DBPinger      db.Pinger
	RedisClient   *redis.Client
	Registry      *prometheus.Registry
	CartService   cart.Service
	OrderService  orders.Service
	PaymentSvc    payments.Service
	Notifications notifications.Service
	AddressRepo   *addresssvc.Repository
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisClient))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS())
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.RedisClient, logg))

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.CartService, logg))
			r.Delete("/", controllers.CartClear(deps.CartService, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.CartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.CartService, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderPlace(deps.OrderService, logg))
			r.Get("/", controllers.OrderList(deps.OrderService, logg))
			r.Get("/{orderId}", controllers.OrderGet(deps.OrderService, logg))
			r.Delete("/{orderId}", controllers.OrderCancel(deps.OrderService, logg))
		})

		r.Route("/v1/payments", func(r chi.Router) {
			r.Get("/methods", controllers.PaymentMethods(deps.PaymentSvc, logg))
			r.Post("/orders/{orderId}", controllers.PaymentCreate(deps.PaymentSvc, logg))
			r.Post("/orders/{orderId}/process", controllers.PaymentProcess(deps.PaymentSvc, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(deps.Notifications, logg))
		})

		r.Route("/v1/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(deps.AddressRepo, logg))
			r.Post("/", controllers.AddressCreate(deps.AddressRepo, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.CORS())
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.OrderService, logg))
			r.Patch("/{orderId}/status", controllers.AdminOrderUpdateStatus(deps.OrderService, logg))
		})
	})

	return r
}
