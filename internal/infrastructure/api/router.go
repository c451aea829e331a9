package api

import (
	"encoding/json"
	"net/http"

	"archie-core-attribution-layer/internal/application"
	securitymiddleware "archie-core-attribution-layer/internal/infrastructure/middleware"
	"archie-core-attribution-layer/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Deps are the services the HTTP layer calls
type Deps struct {
	Connections *application.ConnectionRegistry
	Storefronts *application.StorefrontService
	Installer   *application.TrackingInstaller
	Attribution *application.AttributionService
	Events      *pubsub.InstallationPubSub
	Logger      zerolog.Logger

	// SwaggerFile is served at /swagger/doc.json when set
	SwaggerFile    string
	AllowedOrigins []string
}

// Handler serves the REST surface consumed by the UI
type Handler struct {
	connections *application.ConnectionRegistry
	storefronts *application.StorefrontService
	installer   *application.TrackingInstaller
	attribution *application.AttributionService
	events      *pubsub.InstallationPubSub
	logger      zerolog.Logger
}

// NewRouter builds the chi router with public and authenticated routes
func NewRouter(deps Deps) http.Handler {
	h := &Handler{
		connections: deps.Connections,
		storefronts: deps.Storefronts,
		installer:   deps.Installer,
		attribution: deps.Attribution,
		events:      deps.Events,
		logger:      deps.Logger,
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(securitymiddleware.AccessLogMiddleware(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(securitymiddleware.UserIDMiddleware())

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	if deps.SwaggerFile != "" {
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			http.ServeFile(w, r, deps.SwaggerFile)
		})
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(securitymiddleware.RequireUser(deps.Logger))

		r.Get("/connections", h.listConnections)
		r.Post("/connections", h.connect)
		r.Post("/connections/refresh", h.refreshConnections)
		r.Delete("/connections/{platform}", h.disconnect)
		r.Post("/session/logout", h.logout)

		r.Get("/stores", h.listStores)
		r.Post("/stores", h.connectStore)
		r.Post("/stores/{storeId}/installations", h.installTracking)
		r.Get("/stores/{storeId}/installations", h.listInstallations)
		r.Get("/stores/{storeId}/installations/events", h.streamInstallations)

		r.Get("/attribution", h.report)
		r.Get("/attribution/settings", h.getSettings)
		r.Put("/attribution/settings", h.saveSettings)
		r.Post("/performance", h.recordPerformance)
	})

	return r
}
