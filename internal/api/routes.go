package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		// Devices
		r.Route("/devices", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListDevices)
			r.Post("/", s.HandleCreateDevice)
			r.Route("/{device_id}", func(r chi.Router) {
				r.Get("/", s.HandleGetDevice)
				r.Put("/", s.HandleUpdateDevice)
				r.Delete("/", s.HandleDeleteDevice)
				r.Get("/runtime", s.HandleGetDeviceRuntime)
				r.Get("/gps-logs", s.HandleListGPSLogs)
				r.Get("/alarms", s.HandleListDeviceAlarms)
				r.Get("/media", s.HandleGetMediaStatus)

				// Command plane
				r.Post("/config", s.HandlePushConfig)
				r.Post("/video", s.HandleVideoControl)
			})
		})

		// Live sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListSessions)
		})

		// Live alarms
		r.Route("/alarms", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListAlarms)
		})

		// Events
		r.Route("/events", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListEvents)
		})
	})
}
