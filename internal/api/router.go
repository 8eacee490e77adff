package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public: liveness, login, and the WebSocket upgrade.
		r.Get("/system/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/ws", s.handleWebSocket)

		// Everything else requires a bearer token when auth is enabled.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// System endpoints
			r.Route("/system", func(r chi.Router) {
				r.Get("/metrics", s.handleMetrics)
				r.Get("/controller", s.handleControllerInfo)
				r.Get("/settings", s.handleGetSettings)
				r.Put("/settings", s.handleUpdateSettings)
				r.Post("/settings/test", s.handleTestSettings)
			})

			// Device endpoints (live controller view merged with inventory)
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Get("/transmitters", s.handleListTransmitters)
				r.Get("/receivers", s.handleListReceivers)
				r.Get("/icons", s.handleListIcons)
				r.Put("/{type}/{index}/name", s.handleSetDeviceName)
				r.Put("/{type}/{index}/icon", s.handleSetDeviceIcon)
			})

			// Transmitter video endpoints
			r.Route("/transmitters", func(r chi.Router) {
				r.Get("/video", s.handleBulkTransmitterVideo)
				r.Get("/{index}/video", s.handleTransmitterVideo)
				r.Get("/{index}/preview", s.handleTransmitterPreview)
			})

			// Receiver video and CEC endpoints
			r.Route("/receivers", func(r chi.Router) {
				r.Get("/video", s.handleBulkReceiverVideo)
				r.Get("/{index}/video", s.handleReceiverVideo)
				r.Put("/{index}/video/resolution", s.handleSetReceiverResolution)
				r.Put("/{index}/video/hdcp", s.handleSetReceiverHDCP)
				r.Post("/{index}/cec/{command}", s.handleSendCEC)
			})

			// Routing endpoints
			r.Route("/routing", func(r chi.Router) {
				r.Get("/", s.handleGetRouting)
				r.Post("/switch", s.handleSwitch)
				r.Post("/unassign/{rx}", s.handleUnassign)
			})

			// Inventory and reconciliation
			r.Get("/inventory", s.handleGetInventory)
			r.Post("/sync", s.handleSync)

			// Snapshot endpoints
			r.Route("/snapshots", func(r chi.Router) {
				r.Get("/", s.handleListSnapshots)
				r.Post("/", s.handleCreateSnapshot)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetSnapshot)
					r.Delete("/", s.handleDeleteSnapshot)
					r.Post("/restore", s.handleRestoreSnapshot)
				})
			})
		})
	})

	return r
}
