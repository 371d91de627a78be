package app

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// segmentHandlerFunc serves one transport-stream segment or bundle
// index from the cache. Bundles never change once sealed, so responses
// are served immutable.
func (s *Server) segmentHandlerFunc(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	fingerprint := chi.URLParam(r, "fingerprint")
	file := chi.URLParam(r, "file")

	dir := s.store.BundleDir(slug, fingerprint)
	path := filepath.Join(dir, file)
	// Join cleans "..", so anything escaping the bundle dir loses the
	// directory prefix.
	if !strings.HasPrefix(path, dir+string(filepath.Separator)) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	switch filepath.Ext(file) {
	case ".ts":
		w.Header().Set("Content-Type", "video/mp2t")
	case ".m3u8":
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, path)
}
