package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omarserrano/dishpatch-backend/api/controllers"
	"github.com/omarserrano/dishpatch-backend/api/middleware"
	"github.com/omarserrano/dishpatch-backend/internal/cart"
	"github.com/omarserrano/dishpatch-backend/internal/notifications"
	"github.com/omarserrano/dishpatch-backend/internal/orders"
	"github.com/omarserrano/dishpatch-backend/internal/placement"
	"github.com/omarserrano/dishpatch-backend/pkg/config"
	"github.com/omarserrano/dishpatch-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	registry *prometheus.Registry,
	cartService cart.Service,
	orderService orders.Service,
	placementService placement.Service,
	notificationService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/carts", func(r chi.Router) {
		r.Post("/", controllers.CartCreate(cartService, logg))
		r.Route("/{cartID}", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Delete("/items", controllers.CartClear(cartService, logg))
			r.Patch("/items/{itemID}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(cartService, logg))
		})
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", controllers.OrderPlace(placementService, logg))
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", controllers.OrderGet(orderService, logg))
			r.Post("/status", controllers.OrderUpdateStatus(orderService, logg))
		})
	})

	r.Route("/api/v1/customers/{customerID}/notifications", func(r chi.Router) {
		r.Get("/", controllers.NotificationsList(notificationService, logg))
		r.Post("/read", controllers.NotificationsMarkAllRead(notificationService, logg))
		r.Post("/{notificationID}/read", controllers.NotificationMarkRead(notificationService, logg))
	})

	return r
}
