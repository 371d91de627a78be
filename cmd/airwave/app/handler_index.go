package app

import (
	"fmt"
	"net/http"
)

// indexHandlerFunc handles access to /.
func (s *Server) indexHandlerFunc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Welcome to airwave!\n\nChannels:\n")
	for _, ch := range s.pool.list() {
		_, _ = fmt.Fprintf(w, "  %s (%s): /%s.m3u8\n", ch.Def.Name, ch.Def.Slug, ch.Def.Slug)
	}
	_, _ = fmt.Fprintf(w, "\nGuide: /xmltv.xml\nAPI: /api/channels\n")
}

// optionsHandlerFunc provides the allowed methods.
func (s *Server) optionsHandlerFunc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "OPTIONS, GET, POST")
}
