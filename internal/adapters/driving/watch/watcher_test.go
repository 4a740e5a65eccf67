package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-chat/internal/core/services"
	"github.com/custodia-labs/sercha-chat/internal/extractors"
	"github.com/custodia-labs/sercha-chat/internal/extractors/plaintext"
)

func newStore() *services.DocumentStore {
	return services.NewDocumentStore(memory.NewKVStore(), extractors.NewRegistry(plaintext.New()), nil)
}

// recorder collects watcher events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

func TestNew(t *testing.T) {
	t.Run("requires document service", func(t *testing.T) {
		_, err := New(nil, t.TempDir())
		assert.ErrorIs(t, err, ErrMissingDocumentService)
	})

	t.Run("missing folder", func(t *testing.T) {
		_, err := New(newStore(), filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("file is not a folder", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		_, err := New(newStore(), path)
		assert.ErrorContains(t, err, "not a directory")
	})

	t.Run("resolves absolute path", func(t *testing.T) {
		dir := t.TempDir()
		w, err := New(newStore(), dir)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(w.Dir()))
	})
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		op      fsnotify.Op
		want    []Action
		docs    int
	}{
		{name: "create text file", file: "notes.txt", content: "tide tables", op: fsnotify.Create, want: []Action{ActionAdded}, docs: 1},
		{name: "write markdown file", file: "notes.md", content: "# Tides", op: fsnotify.Write, want: []Action{ActionAdded}, docs: 1},
		{name: "unsupported type", file: "image.png", content: "\x89PNG\r\n\x1a\n", op: fsnotify.Create, want: []Action{ActionSkipped}, docs: 0},
		{name: "empty file waits for write", file: "empty.txt", content: "", op: fsnotify.Create, want: []Action{}, docs: 0},
		{name: "hidden file", file: ".draft.txt", content: "secret", op: fsnotify.Create, want: []Action{}, docs: 0},
		{name: "chmod ignored", file: "notes.txt", content: "tide tables", op: fsnotify.Chmod, want: []Action{}, docs: 0},
		{name: "remove untracked", file: "gone.txt", content: "", op: fsnotify.Remove, want: []Action{}, docs: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tt.file)
			if tt.op != fsnotify.Remove {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			}

			rec := &recorder{}
			store := newStore()
			w, err := New(store, dir, WithEventHandler(rec.record))
			require.NoError(t, err)

			w.handleEvent(context.Background(), fsnotify.Event{Name: path, Op: tt.op})

			assert.Equal(t, tt.want, rec.actions())
			assert.Len(t, store.ListDocuments(context.Background()), tt.docs)
		})
	}

	t.Run("directory ignored", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "sub")
		require.NoError(t, os.Mkdir(sub, 0o755))

		rec := &recorder{}
		w, err := New(newStore(), dir, WithEventHandler(rec.record))
		require.NoError(t, err)

		w.handleEvent(context.Background(), fsnotify.Event{Name: sub, Op: fsnotify.Create})
		assert.Empty(t, rec.actions())
	})
}

func TestHandleEvent_Lifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "harbour.txt")

	rec := &recorder{}
	store := newStore()
	w, err := New(store, dir, WithEventHandler(rec.record))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("The harbour opens at dawn."), 0o600))
	w.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Create})
	firstID, ok := w.Tracked(path)
	require.True(t, ok)

	// A second event for identical content is a no-op.
	w.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write})
	sameID, _ := w.Tracked(path)
	assert.Equal(t, firstID, sameID)

	require.NoError(t, os.WriteFile(path, []byte("The harbour opens at noon."), 0o600))
	w.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write})
	secondID, ok := w.Tracked(path)
	require.True(t, ok)
	assert.NotEqual(t, firstID, secondID)

	docs := store.ListDocuments(ctx)
	require.Len(t, docs, 1)
	assert.Equal(t, secondID, docs[0].ID)

	require.NoError(t, os.Remove(path))
	w.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Remove})
	_, ok = w.Tracked(path)
	assert.False(t, ok)
	assert.Empty(t, store.ListDocuments(ctx))

	assert.Equal(t, []Action{ActionAdded, ActionReplaced, ActionRemoved}, rec.actions())
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# beta"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("gamma"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	store := newStore()
	w, err := New(store, dir)
	require.NoError(t, err)

	require.NoError(t, w.Scan(context.Background()))
	assert.Len(t, store.ListDocuments(context.Background()), 2)
}

func TestScan_RestartAdoptsStoredDocuments(t *testing.T) {
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	dir := t.TempDir()
	same := filepath.Join(dir, "same.txt")
	edited := filepath.Join(dir, "edited.txt")
	require.NoError(t, os.WriteFile(same, []byte("unchanged content"), 0o600))
	require.NoError(t, os.WriteFile(edited, []byte("first draft"), 0o600))
	require.NoError(t, os.Chtimes(same, past, past))
	require.NoError(t, os.Chtimes(edited, past, past))

	store := newStore()
	first, err := New(store, dir)
	require.NoError(t, err)
	require.NoError(t, first.Scan(ctx))
	require.Len(t, store.ListDocuments(ctx), 2)
	sameID, ok := first.Tracked(same)
	require.True(t, ok)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.WriteFile(edited, []byte("second draft, longer"), 0o600))
	require.NoError(t, os.Chtimes(edited, later, later))

	rec := &recorder{}
	second, err := New(store, dir, WithEventHandler(rec.record))
	require.NoError(t, err)
	require.NoError(t, second.Scan(ctx))

	docs := store.ListDocuments(ctx)
	require.Len(t, docs, 2)
	assert.Equal(t, []Action{ActionReplaced}, rec.actions())

	id, ok := second.Tracked(same)
	require.True(t, ok)
	assert.Equal(t, sameID, id)

	editedID, ok := second.Tracked(edited)
	require.True(t, ok)
	ids := []string{docs[0].ID, docs[1].ID}
	assert.Contains(t, ids, sameID)
	assert.Contains(t, ids, editedID)

	require.NoError(t, second.Scan(ctx))
	assert.Len(t, store.ListDocuments(ctx), 2)
	assert.Equal(t, []Action{ActionReplaced}, rec.actions())
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("already here"), 0o600))

	store := newStore()
	w, err := New(store, dir, WithInitialScan(true))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	docCount := func() int { return len(store.ListDocuments(context.Background())) }

	require.Eventually(t, func() bool { return docCount() == 1 }, 5*time.Second, 20*time.Millisecond)

	added := filepath.Join(dir, "added.txt")
	require.NoError(t, os.WriteFile(added, []byte("dropped in later"), 0o600))
	require.Eventually(t, func() bool { return docCount() == 2 }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(added))
	require.Eventually(t, func() bool { return docCount() == 1 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
