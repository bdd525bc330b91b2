package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/kozaktomas/face-tagger/internal/web/handlers"
	"github.com/kozaktomas/face-tagger/internal/web/middleware"
)

func (s *Server) setupRoutes(engine *facematch.Engine, faces database.FaceStore, people database.PersonStore, db handlers.Pinger) {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(db)
	peopleHandler := handlers.NewPeopleHandler(engine, people, faces)
	facesHandler := handlers.NewFacesHandler(engine, faces, s.jobManager)
	mediaHandler := handlers.NewMediaHandler(faces, &s.config.Models)

	// Health check (no owner required)
	s.router.Get("/api/v1/health", healthHandler.Check)

	// API routes, all scoped to the calling owner
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireOwner)

		// People
		r.Get("/people", peopleHandler.List)
		r.Post("/people", peopleHandler.Create)
		r.Get("/people/{id}", peopleHandler.Get)
		r.Put("/people/{id}", peopleHandler.Update)
		r.Delete("/people/{id}", peopleHandler.Delete)
		r.Get("/people/{id}/faces", peopleHandler.GetFaces)
		r.Post("/people/merge", peopleHandler.Merge)

		// Faces
		r.Get("/faces/unassigned", facesHandler.ListUnassigned)
		r.Post("/faces/cluster", facesHandler.Cluster)
		r.Get("/faces/{id}", facesHandler.Get)
		r.Post("/faces/{id}/assign", facesHandler.Assign)
		r.Post("/faces/{id}/unassign", facesHandler.Unassign)
		r.Get("/faces/{id}/suggestions", facesHandler.Suggestions)
		r.Get("/faces/{id}/similar", facesHandler.Similar)

		// Auto-assignment (long-running)
		r.Post("/autoassign", facesHandler.StartAutoAssign)
		r.Get("/jobs", facesHandler.ListJobs)
		r.Get("/jobs/{jobId}", facesHandler.GetJob)
		r.Delete("/jobs/{jobId}", facesHandler.CancelJob)

		// Detector ingestion
		r.Post("/media/{id}/faces", mediaHandler.SaveFaces)
		r.Get("/media/{id}/faces", mediaHandler.GetFaces)
	})
}
