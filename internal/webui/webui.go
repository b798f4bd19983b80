// Package webui serves the embedded toggle page.
package webui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var files embed.FS

// Handler serves the page at / and its assets.
func Handler() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err) // embed path is fixed at compile time
	}
	return http.FileServer(http.FS(sub))
}
