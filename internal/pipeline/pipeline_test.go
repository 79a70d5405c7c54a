package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/nixcloud/pankat/internal/cache"
	"git.home.luguber.info/nixcloud/pankat/internal/index"
	"git.home.luguber.info/nixcloud/pankat/internal/output"
	"git.home.luguber.info/nixcloud/pankat/internal/plugin"
	"git.home.luguber.info/nixcloud/pankat/internal/pubsub"
	"git.home.luguber.info/nixcloud/pankat/internal/render"
	"git.home.luguber.info/nixcloud/pankat/internal/templates"
)

type countingRenderer struct {
	calls int
}

func (r *countingRenderer) Render(_ context.Context, body []byte, _ render.Options) (string, error) {
	r.calls++
	return "<p>" + string(body) + "</p>", nil
}

type testHarness struct {
	pipeline *Pipeline
	inputDir string
	idx      *index.Store
	cch      *cache.Store
	out      *output.Writer
	pub      *pubsub.Registry
	renderer *countingRenderer
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	idx, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	cch, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cch.Close() })

	tpl := templates.NewDefault()
	out := output.New(outputDir, tpl.Content, tpl.Standalone)
	require.NoError(t, out.EnsureSentinel())

	pub := pubsub.NewRegistry()
	renderer := &countingRenderer{}
	reg := plugin.DefaultRegistry()

	p := New(inputDir, false, reg, renderer, cch, idx, out, pub, "updates", slog.Default())
	return &testHarness{pipeline: p, inputDir: inputDir, idx: idx, cch: cch, out: out, pub: pub, renderer: renderer}
}

func (h *testHarness) writeSource(t *testing.T, relPath, body string) {
	t.Helper()
	full := filepath.Join(h.inputDir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
}

func TestHandleUpsert_RendersAndPublishesUpdate(t *testing.T) {
	h := newHarness(t)
	sub, cancel := pubsub.Subscribe(h.pub, "updates", 4)
	defer cancel()

	h.writeSource(t, "hello.mdwn", "[[!title Hello World]]\n\nSome body.\n")
	require.NoError(t, h.pipeline.handleUpsert(context.Background(), "hello.mdwn"))

	got, err := os.ReadFile(filepath.Join(h.out.Root(), "hello.html"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "Hello World")

	select {
	case msg := <-sub:
		var payload map[string]string
		require.NoError(t, json.Unmarshal(msg, &payload))
		_, isUpdate := payload["update"]
		assert.True(t, isUpdate)
	case <-time.After(time.Second):
		t.Fatal("expected an update message")
	}
}

func TestHandleUpsert_DraftSkipsOutputAndPublishesRedirect(t *testing.T) {
	h := newHarness(t)
	sub, cancel := pubsub.Subscribe(h.pub, "updates", 4)
	defer cancel()

	h.writeSource(t, "secret.mdwn", "[[!draft]]\n\nshh\n")
	require.NoError(t, h.pipeline.handleUpsert(context.Background(), "secret.mdwn"))

	_, err := os.Stat(filepath.Join(h.out.Root(), "secret.html"))
	assert.True(t, os.IsNotExist(err))

	select {
	case msg := <-sub:
		var payload map[string]string
		require.NoError(t, json.Unmarshal(msg, &payload))
		_, isRedirect := payload["redirect"]
		assert.True(t, isRedirect)
	case <-time.After(time.Second):
		t.Fatal("expected a redirect message")
	}
}

func TestHandleUpsert_SecondRunReusesCacheWithoutRerendering(t *testing.T) {
	h := newHarness(t)
	h.writeSource(t, "hello.mdwn", "[[!title Hello]]\n\nBody.\n")

	require.NoError(t, h.pipeline.handleUpsert(context.Background(), "hello.mdwn"))
	require.NoError(t, h.pipeline.handleUpsert(context.Background(), "hello.mdwn"))

	assert.Equal(t, 1, h.renderer.calls)
}

func TestHandleUpsert_MissingTitleDerivedFromFilename(t *testing.T) {
	h := newHarness(t)
	h.writeSource(t, "my-great-post.mdwn", "No title directive here.\n")
	require.NoError(t, h.pipeline.handleUpsert(context.Background(), "my-great-post.mdwn"))

	rec, err := h.idx.ByPath("my-great-post.mdwn")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "my great post", rec.Title)
}

func TestHandleRemove_DeletesIndexCacheAndOutput(t *testing.T) {
	h := newHarness(t)
	h.writeSource(t, "bye.mdwn", "[[!title Bye]]\n\nBody.\n")
	require.NoError(t, h.pipeline.handleUpsert(context.Background(), "bye.mdwn"))

	h.pipeline.handleRemove("bye.mdwn")

	rec, err := h.idx.ByPath("bye.mdwn")
	require.NoError(t, err)
	assert.Nil(t, rec)

	entry, err := h.cch.Lookup("bye.mdwn")
	require.NoError(t, err)
	assert.Nil(t, entry)

	_, statErr := os.Stat(filepath.Join(h.out.Root(), "bye.html"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestHandleUpsert_MostRecentVisibleRegeneratesIndexOnDateChange(t *testing.T) {
	h := newHarness(t)
	h.writeSource(t, "dated.mdwn", "[[!title Dated]][[!meta 2024-01-01 10:00]]\n\nBody.\n")
	require.NoError(t, h.pipeline.handleUpsert(context.Background(), "dated.mdwn"))

	got, err := os.ReadFile(filepath.Join(h.out.Root(), output.IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(got), "dated.html")
}
