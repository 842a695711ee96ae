// Package site serves the embedded landing page with the scoring rules.
package site

import (
	"context"
	"net/http"
)

// Register attaches the landing page routes to mux. Only "/" and the
// stylesheet are served; any other unmatched path stays a 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	files := http.FileServer(FS())
	mux.Handle("GET /{$}", files)
	mux.Handle("GET /site.css", files)
}
