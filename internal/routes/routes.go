package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/snowmigrate/snowmigrate-api/internal/handlers"
)

// NewRouter sets up the API routes
func NewRouter(
	auth *handlers.AuthHandler,
	jobs *handlers.JobHandler,
	conns *handlers.ConnectionHandler,
	staging *handlers.StagingHandler,
	meta *handlers.MetadataHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoint
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Everything below requires a bearer token.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	// Source connections
	api.HandleFunc("/connections/sources", conns.ListSources).Methods(http.MethodGet)
	api.HandleFunc("/connections/sources", conns.CreateSource).Methods(http.MethodPost)
	api.HandleFunc("/connections/sources/{id}", conns.GetSource).Methods(http.MethodGet)
	api.HandleFunc("/connections/sources/{id}", conns.UpdateSource).Methods(http.MethodPut)
	api.HandleFunc("/connections/sources/{id}", conns.DeleteSource).Methods(http.MethodDelete)

	// Source metadata introspection
	api.HandleFunc("/connections/sources/{id}/schemas", meta.ListSchemas).Methods(http.MethodGet)
	api.HandleFunc("/connections/sources/{id}/schemas/{schema}/tables", meta.ListTables).Methods(http.MethodGet)

	// Target connections
	api.HandleFunc("/connections/targets", conns.ListTargets).Methods(http.MethodGet)
	api.HandleFunc("/connections/targets", conns.CreateTarget).Methods(http.MethodPost)
	api.HandleFunc("/connections/targets/{id}", conns.GetTarget).Methods(http.MethodGet)
	api.HandleFunc("/connections/targets/{id}", conns.UpdateTarget).Methods(http.MethodPut)
	api.HandleFunc("/connections/targets/{id}", conns.DeleteTarget).Methods(http.MethodDelete)

	// Staging areas
	api.HandleFunc("/staging-areas", staging.ListStagingAreas).Methods(http.MethodGet)

	// Migration jobs
	api.HandleFunc("/jobs", jobs.CreateJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs", jobs.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{jobID}", jobs.GetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{jobID}/start", jobs.StartJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{jobID}/pause", jobs.PauseJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{jobID}/resume", jobs.ResumeJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{jobID}/cancel", jobs.CancelJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{jobID}/progress", jobs.StreamProgress).Methods(http.MethodGet)

	return router
}
