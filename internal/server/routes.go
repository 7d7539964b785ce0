package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Service descriptor
	mux.HandleFunc("/", s.app.APIHandler.RootHandler)

	// API routes - Analysis
	mux.HandleFunc("/api/analyze", s.app.AnalyzeHandler.AnalyzeRequestHandler) // POST

	// API routes - System
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	return mux
}
