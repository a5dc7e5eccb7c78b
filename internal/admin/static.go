/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see admin.go for full license header)
 ***************************************************************************** */

package admin

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var staticFiles embed.FS

// staticFS is rooted at the embedded static/ directory itself, so
// http.FileServer resolves "/_dynapm/" to static/index.html.
var staticFS = func() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}()
