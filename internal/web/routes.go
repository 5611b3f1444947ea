package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/rollcall/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	sessionHandler := handlers.NewSessionHandler(s.pipeline.Session(), s.gallery, s.attendance)
	framesHandler := handlers.NewFramesHandler(s.pipeline)
	studentsHandler := handlers.NewStudentsHandler(s.roster)
	facesHandler := handlers.NewFacesHandler(s.pipeline.Extractor(), s.gallery)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Session lifecycle
		r.Post("/session/start", sessionHandler.Start)
		r.Post("/session/stop", sessionHandler.Stop)
		r.Get("/session", sessionHandler.Status)
		r.Get("/attendance", sessionHandler.Attendance)

		// Frames
		r.Post("/frames", framesHandler.Ingest)

		// Roster
		r.Post("/students", studentsHandler.Enroll)
		r.Get("/students", studentsHandler.List)
		r.Delete("/students/{studentID}", studentsHandler.Delete)

		// Gallery diagnostics
		r.Post("/faces/similar", facesHandler.Similar)
	})
}
