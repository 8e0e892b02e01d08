// Package api provides the REST API for pbxadmin
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/btafoya/pbxadmin/internal/models"
)

// Version is reported by the health and stats endpoints
const Version = "0.1.0"

// NewRouter creates and configures the API router
func NewRouter(deps *Dependencies) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := NewAuthHandler(deps)
	systemHandler := NewSystemHandler(deps, Version)
	routeHandler := NewRouteHandler(deps)
	didHandler := NewDIDHandler(deps)
	extensionHandler := NewExtensionHandler(deps)
	tlsHandler := NewTLSHandler(deps)

	extensions := NewCollectionHandler(deps.DB.Extensions, "extension", "extensions",
		func() *models.Extension { return &models.Extension{} })
	trunks := NewCollectionHandler(deps.DB.Trunks, "trunk", "trunks",
		func() *models.Trunk { return &models.Trunk{} })
	dids := NewCollectionHandler(deps.DB.DIDs, "did", "dids",
		func() *models.DID { return &models.DID{} })
	ringGroups := NewCollectionHandler(deps.DB.RingGroups, "ring group", "ring_groups",
		func() *models.RingGroup { return &models.RingGroup{} })
	sipProfiles := NewCollectionHandler(deps.DB.SipProfiles, "sip profile", "sip_profiles",
		func() *models.SipProfile { return &models.SipProfile{} })
	codecs := NewCollectionHandler(deps.DB.Codecs, "codec", "codecs",
		func() *models.Codec { return &models.Codec{} })
	routes := NewCollectionHandler(deps.DB.Routes, "route", "routes",
		func() *models.RoutingRule { return &models.RoutingRule{} })

	// Health endpoint (public)
	r.Get("/health", systemHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(deps))

			// Current user
			r.Get("/me", authHandler.GetCurrentUser)
			r.Put("/me/password", authHandler.ChangePassword)

			// System stats
			r.Get("/stats", systemHandler.Stats)

			// TLS certificate status
			r.Route("/tls", func(r chi.Router) {
				r.Get("/status", tlsHandler.GetStatus)
				r.With(AdminOnlyMiddleware).Post("/reload", tlsHandler.ReloadCertificates)
			})

			// Ordered collections
			r.Route("/extensions", func(r chi.Router) {
				extensions.Mount(r)
				r.Get("/{id}/qr", extensionHandler.QRCode)
			})
			r.Route("/trunks", trunks.Mount)
			r.Route("/dids", func(r chi.Router) {
				dids.Mount(r)
				r.With(AdminOnlyMiddleware).Post("/sync", didHandler.SyncFromTwilio)
			})
			r.Route("/ring-groups", ringGroups.Mount)
			r.Route("/sip-profiles", sipProfiles.Mount)
			r.Route("/codecs", codecs.Mount)
			r.Route("/routes", func(r chi.Router) {
				routes.Mount(r)
				r.Post("/test", routeHandler.Test)
			})
		})
	})

	return r
}
