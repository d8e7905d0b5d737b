// Package web serves the embedded frontend and the collage media assets.
package web

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed dist/*
var staticFiles embed.FS

// GetFileSystem returns the embedded filesystem with the dist folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "dist")
}

// HasEmbeddedFiles returns true if the frontend has been built and embedded.
func HasEmbeddedFiles() bool {
	_, err := fs.Stat(staticFiles, "dist/index.html")
	return err == nil
}

// Site resolves requests against a stack of filesystems. The first layer
// holding a regular file wins; unknown paths fall back to index.html so
// frontend routes such as /projects/ducky still load the app.
type Site struct {
	layers []fs.FS
}

// NewSite creates a site over the given layers, highest priority first.
func NewSite(layers ...fs.FS) *Site {
	return &Site{layers: layers}
}

// Handle serves one GET request.
func (s *Site) Handle(c echo.Context) error {
	name := strings.TrimPrefix(path.Clean("/"+c.Request().URL.Path), "/")
	if name == "" {
		return s.serveIndex(c)
	}

	for _, layer := range s.layers {
		info, err := fs.Stat(layer, name)
		if err != nil || info.IsDir() {
			continue
		}
		http.ServeFileFS(c.Response(), c.Request(), layer, name)
		return nil
	}

	// Missing media should 404 rather than render the app shell.
	if path.Ext(name) != "" && path.Ext(name) != ".html" {
		return echo.NewHTTPError(http.StatusNotFound, "asset not found: /"+name)
	}
	return s.serveIndex(c)
}

func (s *Site) serveIndex(c echo.Context) error {
	for _, layer := range s.layers {
		f, err := layer.Open("index.html")
		if err != nil {
			continue
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to read index.html")
		}
		return c.HTMLBlob(http.StatusOK, content)
	}
	return echo.NewHTTPError(http.StatusNotFound, "index.html not found")
}

// RegisterStaticRoutes serves the embedded frontend, then files from
// assetsDir, for every non-API path. The API routes should be registered
// before calling this function. An empty or missing assetsDir is skipped.
func RegisterStaticRoutes(e *echo.Echo, assetsDir string) error {
	var layers []fs.FS
	if HasEmbeddedFiles() {
		dist, err := GetFileSystem()
		if err != nil {
			return err
		}
		layers = append(layers, dist)
	}
	if assetsDir != "" {
		_, err := os.Stat(assetsDir)
		switch {
		case err == nil:
			layers = append(layers, os.DirFS(assetsDir))
		case errors.Is(err, os.ErrNotExist):
			fmt.Printf("[Web] Assets directory %s does not exist, serving frontend only\n", assetsDir)
		default:
			return err
		}
	}

	site := NewSite(layers...)
	e.GET("/*", site.Handle)
	e.HEAD("/*", site.Handle)
	return nil
}
