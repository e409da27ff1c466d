package web

import (
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
)

// NewServer creates and configures the local UI-facing RWeb server.
// This server is the shell's window into the client core: it serves the
// status page and the local JSON API the UI calls. It never talks to the
// remote backend itself — that is the façade's job.
func NewServer(addr string) *rweb.Server {
	s := rweb.NewServer(rweb.ServerOptions{
		Address: addr,
		Verbose: true,
	})

	// Apply middleware
	s.Use(rweb.RequestInfo)
	s.Use(CorsMiddleware)
	s.Use(SecurityHeadersMiddleware)
	s.Use(LoggingMiddleware)

	// Setup routes
	setupRoutes(s)

	return s
}

// Run starts the server
func Run(s *rweb.Server, addr string) error {
	logger.Info("ListPad client serving", "address", addr)
	return s.Run()
}
