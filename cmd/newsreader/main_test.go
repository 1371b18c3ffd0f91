package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCLI(t *testing.T) *bytes.Buffer {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"hits": [
			{"objectID": "11", "title": "Swift concurrency", "author": "ann", "url": "https://example.com/swift"},
			{"objectID": "12", "title": "Kotlin flows", "author": "bob"}
		]}`)
	}))
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgData := fmt.Sprintf(`
storage:
  driver: sqlite
  dsn: "file:%s"
api:
  base_url: %s
  retry:
    max_attempts: 1
log_level: error
`, filepath.Join(dir, "news.db"), ts.URL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgData), 0o600))

	prevOpts, prevOut, prevNoColor := opts, out, color.NoColor
	t.Cleanup(func() { opts, out, color.NoColor = prevOpts, prevOut, prevNoColor })

	buf := &bytes.Buffer{}
	opts = Opts{Config: cfgPath}
	out = buf
	color.NoColor = true
	return buf
}

func TestCLI_FetchFavoriteList(t *testing.T) {
	buf := setupCLI(t)

	require.NoError(t, (&FetchCmd{}).Execute(nil))
	assert.Contains(t, buf.String(), "[11] Swift concurrency")
	assert.Contains(t, buf.String(), "https://news.ycombinator.com/item?id=12")

	buf.Reset()
	require.NoError(t, (&FavoriteCmd{Args: articleArgs{ID: "11"}}).Execute(nil))
	assert.Equal(t, "11 ★\n", buf.String())

	buf.Reset()
	require.NoError(t, (&DeleteCmd{Args: articleArgs{ID: "12"}}).Execute(nil))

	buf.Reset()
	require.NoError(t, (&ListCmd{Filter: "visible"}).Execute(nil))
	assert.Contains(t, buf.String(), "[11] Swift concurrency ★")
	assert.NotContains(t, buf.String(), "[12]")
	assert.Contains(t, buf.String(), "last fetch:")

	buf.Reset()
	require.NoError(t, (&ListCmd{Filter: "deleted"}).Execute(nil))
	assert.Contains(t, buf.String(), "[12] Kotlin flows (deleted)")
}

func TestCLI_ShowUnknownArticle(t *testing.T) {
	setupCLI(t)

	err := (&ShowCmd{Args: articleArgs{ID: "404"}}).Execute(nil)
	assert.ErrorContains(t, err, "article 404 not found")
}

func TestCLI_TopicsAndClear(t *testing.T) {
	buf := setupCLI(t)

	require.NoError(t, (&TopicsAddCmd{Args: topicArgs{Topic: "Flutter"}}).Execute(nil))
	assert.Contains(t, buf.String(), "✓ Flutter")
	assert.Contains(t, buf.String(), "✓ mobile")
	assert.Contains(t, buf.String(), "notifications: off")

	buf.Reset()
	require.NoError(t, (&ClearCmd{}).Execute(nil))
	assert.Equal(t, "storage cleared\n", buf.String())

	buf.Reset()
	require.NoError(t, (&TopicsListCmd{}).Execute(nil))
	assert.NotContains(t, buf.String(), "Flutter")
}
