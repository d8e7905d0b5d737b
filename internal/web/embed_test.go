package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSite_LayersAndFallback(t *testing.T) {
	front := fstest.MapFS{
		"index.html":      {Data: []byte("<html>app</html>")},
		"assets/app.js":   {Data: []byte("console.log(1)")},
		"images/logo.png": {Data: []byte("front-logo")},
	}
	media := fstest.MapFS{
		"images/logo.png":    {Data: []byte("media-logo")},
		"images/mongodb.png": {Data: []byte("png-bytes")},
	}

	e := echo.New()
	e.GET("/*", NewSite(front, media).Handle)

	rec := serve(e, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app")

	rec = serve(e, "/assets/app.js")
	assert.Equal(t, "console.log(1)", rec.Body.String())

	rec = serve(e, "/images/mongodb.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())

	// Earlier layers shadow later ones.
	rec = serve(e, "/images/logo.png")
	assert.Equal(t, "front-logo", rec.Body.String())

	rec = serve(e, "/projects/ducky")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app")

	rec = serve(e, "/images/missing.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Traversal is cleaned back under the site root.
	rec = serve(e, "/../../etc/passwd")
	assert.Contains(t, rec.Body.String(), "app")
}

func TestSite_NoIndex(t *testing.T) {
	e := echo.New()
	e.GET("/*", NewSite(fstest.MapFS{}).Handle)

	rec := serve(e, "/anything")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterStaticRoutes_ServesAssetsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "videos", "ducky.mp4"), []byte("mp4"), 0644))

	e := echo.New()
	require.NoError(t, RegisterStaticRoutes(e, dir))

	rec := serve(e, "/videos/ducky.mp4")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mp4", rec.Body.String())

	assert.True(t, HasEmbeddedFiles())
	rec = serve(e, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterStaticRoutes_MissingAssetsDir(t *testing.T) {
	e := echo.New()
	assert.NoError(t, RegisterStaticRoutes(e, filepath.Join(t.TempDir(), "nope")))
}
