// Package watch ingests files dropped into a folder.
//
// The watcher is not recursive: only regular files directly inside the
// folder are tracked. Hidden files are ignored. Documents already in the
// store whose name matches a file in the folder are adopted on start, so a
// restarted watcher replaces or skips them instead of adding duplicates.
package watch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-chat/internal/extractors"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// ErrMissingDocumentService is returned when a Watcher has nowhere to ingest to.
var ErrMissingDocumentService = errors.New("watch: document service is required")

// Action is what the watcher did with a file event.
type Action string

// Actions reported to the event callback.
const (
	ActionAdded    Action = "added"
	ActionReplaced Action = "replaced"
	ActionRemoved  Action = "removed"
	ActionSkipped  Action = "skipped"
	ActionFailed   Action = "failed"
)

// Event describes one handled file.
type Event struct {
	Path     string
	Action   Action
	Document *domain.Document
	Err      error
}

// tracked is a file the watcher ingested.
type tracked struct {
	docID  string
	digest [sha256.Size]byte
}

// Watcher keeps the document store in step with a folder.
type Watcher struct {
	docs    driving.DocumentService
	dir     string
	scan    bool
	onEvent func(Event)

	mu    sync.Mutex
	files map[string]tracked
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInitialScan ingests the files already in the folder before watching.
func WithInitialScan(scan bool) Option {
	return func(w *Watcher) {
		w.scan = scan
	}
}

// WithEventHandler registers a callback for every handled file.
func WithEventHandler(fn func(Event)) Option {
	return func(w *Watcher) {
		w.onEvent = fn
	}
}

// New creates a watcher for dir.
func New(docs driving.DocumentService, dir string, opts ...Option) (*Watcher, error) {
	if docs == nil {
		return nil, ErrMissingDocumentService
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch folder: %s is not a directory", abs)
	}

	w := &Watcher{docs: docs, dir: abs, files: make(map[string]tracked)}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the watched folder.
func (w *Watcher) Dir() string {
	return w.dir
}

// Tracked returns the document ID ingested for path, if any.
func (w *Watcher) Tracked(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.files[path]
	return t.docID, ok
}

// Run watches the folder until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	logger.Info("Watching %s", w.dir)
	w.adopt(ctx)

	if w.scan {
		if err := w.Scan(ctx); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// Scan ingests every file currently in the folder. Files whose stored
// document is still current are skipped.
func (w *Watcher) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}
	w.adopt(ctx)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if entry.IsDir() || hidden(entry.Name()) {
			continue
		}
		w.ingest(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

// adopt tracks stored documents named after files in the folder. A document
// is current when its size matches the file and the file has not been
// modified since it was added; its digest is then taken from disk so an
// unchanged file is skipped. A stale document gets an empty digest and is
// replaced on the next ingest. Paths already tracked are left alone, and the
// newest document wins when names repeat.
func (w *Watcher) adopt(ctx context.Context) {
	found := make(map[string]tracked)
	for _, doc := range w.docs.ListDocuments(ctx) {
		if hidden(doc.Name) || filepath.Base(doc.Name) != doc.Name {
			continue
		}
		path := filepath.Join(w.dir, doc.Name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		t := tracked{docID: doc.ID}
		if info.Size() == doc.ByteSize && !info.ModTime().After(doc.DateAdded) {
			if content, err := os.ReadFile(path); err == nil {
				t.digest = sha256.Sum256(content)
			}
		}
		found[path] = t
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range found {
		if _, ok := w.files[path]; ok {
			continue
		}
		w.files[path] = t
		logger.Debug("Adopted %s as %s", filepath.Base(path), t.docID)
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if hidden(filepath.Base(event.Name)) {
		return
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.ingest(ctx, event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.remove(ctx, event.Name)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		w.emit(Event{Path: path, Action: ActionFailed, Err: err})
		return
	}
	// Create fires before the writer has flushed anything.
	if len(content) == 0 {
		return
	}

	digest := sha256.Sum256(content)
	w.mu.Lock()
	prev, known := w.files[path]
	w.mu.Unlock()
	if known && prev.digest == digest {
		return
	}

	name := filepath.Base(path)
	doc, err := w.docs.AddDocument(ctx, &domain.RawFile{
		Name:     name,
		MIMEType: extractors.DetectMIMEType(name, content),
		Content:  content,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFileType) {
			logger.Debug("Skipping %s: %v", name, err)
			w.emit(Event{Path: path, Action: ActionSkipped, Err: err})
			return
		}
		logger.Warn("Ingesting %s: %v", name, err)
		w.emit(Event{Path: path, Action: ActionFailed, Err: err})
		return
	}

	action := ActionAdded
	if known {
		action = ActionReplaced
		if _, err := w.docs.DeleteDocument(ctx, prev.docID); err != nil {
			logger.Warn("Removing previous version of %s: %v", name, err)
		}
	}

	w.mu.Lock()
	w.files[path] = tracked{docID: doc.ID, digest: digest}
	w.mu.Unlock()

	logger.Info("Ingested %s as %s", name, doc.ID)
	w.emit(Event{Path: path, Action: action, Document: doc})
}

func (w *Watcher) remove(ctx context.Context, path string) {
	w.mu.Lock()
	prev, known := w.files[path]
	delete(w.files, path)
	w.mu.Unlock()
	if !known {
		return
	}

	if _, err := w.docs.DeleteDocument(ctx, prev.docID); err != nil {
		logger.Warn("Removing %s: %v", filepath.Base(path), err)
		w.emit(Event{Path: path, Action: ActionFailed, Err: err})
		return
	}
	logger.Info("Removed %s", filepath.Base(path))
	w.emit(Event{Path: path, Action: ActionRemoved})
}

func (w *Watcher) emit(e Event) {
	if w.onEvent != nil {
		w.onEvent(e)
	}
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
