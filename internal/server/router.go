package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter configures the job API routes.
func NewRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/jobs", handler.CreateJob).Methods("POST")
	r.HandleFunc("/api/jobs", handler.ListJobs).Methods("GET")
	r.HandleFunc("/api/jobs/{id}", handler.GetJob).Methods("GET")
	r.HandleFunc("/api/jobs/{id}/media/{kind}", handler.UploadMedia).Methods("POST")
	r.HandleFunc("/api/jobs/{id}/start", handler.StartJob).Methods("POST")
	r.HandleFunc("/api/jobs/{id}/cancel", handler.CancelJob).Methods("POST")
	r.HandleFunc("/api/jobs/{id}/download", handler.Download).Methods("GET")
	return r
}

// WrapCORS applies the permissive CORS policy used for browser clients.
func WrapCORS(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	})
	return c.Handler(next)
}
