package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for the verification API. Read and write
// timeouts are generous because document and selfie uploads arrive as
// multipart bodies, often from phones on slow links.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}
}
