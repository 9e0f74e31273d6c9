package web

import (
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "/static/app.js")
}

func TestAssets(t *testing.T) {
	srv := httptest.NewServer(Assets())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/static/style.css")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/static/missing.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScriptTearsDownOnPageHide(t *testing.T) {
	f, err := Static().Open("app.js")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	js := string(data)

	assert.Contains(t, js, `addEventListener("pagehide", unmount)`)
	assert.Contains(t, js, "sky.destroy()", "the cloud effect is disposed on unmount")
	assert.Contains(t, js, `method: "DELETE"`)
	assert.Contains(t, js, "keepalive: true")
	assert.NotContains(t, js, "sendBeacon")
}

func TestStaticTree(t *testing.T) {
	for _, name := range []string{"index.html", "style.css", "app.js"} {
		_, err := fs.Stat(Static(), name)
		assert.NoError(t, err, name)
	}
}
