// Package web holds the page served at / and its static assets.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var content embed.FS

// Static is the asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Index serves index.html.
func Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFileFS(w, r, Static(), "index.html")
}

// Assets serves files under /static/.
func Assets() http.Handler {
	return http.StripPrefix("/static/", http.FileServerFS(Static()))
}
