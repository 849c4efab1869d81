// Package watcher feeds filesystem changes into the ingest service.
// Dropping a text file into the watched directory ingests it; editing the
// file reingests it; removing it deletes the document.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
	"github.com/custodia-labs/askbase/internal/core/ports/driving"
	"github.com/custodia-labs/askbase/internal/logger"
)

// DefaultExtensions lists the file types ingested when none are configured.
var DefaultExtensions = []string{".txt", ".md"}

// debounceDelay coalesces the burst of write events editors emit while
// saving a file.
const debounceDelay = 200 * time.Millisecond

// Watcher monitors one directory and mirrors it into the knowledge base.
// Document titles are the file names without extension.
type Watcher struct {
	fs         *fsnotify.Watcher
	ingest     driving.IngestService
	documents  driven.DocumentStore
	extensions []string

	wg      sync.WaitGroup
	started bool
	pending map[string]*time.Timer
	mu      sync.Mutex
}

// New creates a watcher that forwards file events to the ingest service.
func New(ingest driving.IngestService, documents driven.DocumentStore, extensions []string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Watcher{
		fs:         fs,
		ingest:     ingest,
		documents:  documents,
		extensions: extensions,
		pending:    make(map[string]*time.Timer),
	}, nil
}

// Watch starts monitoring dir until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	if err := w.fs.Add(dir); err != nil {
		return err
	}
	w.started = true

	w.wg.Add(1)
	go w.loop(ctx)

	logger.Info("Watching %s for %v files", dir, w.extensions)
	return nil
}

// Stop closes the underlying watcher and waits for the event loop.
func (w *Watcher) Stop() error {
	err := w.fs.Close()
	w.wg.Wait()

	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.watched(event.Name) {
				continue
			}
			w.handle(ctx, event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	title := titleFor(event.Name)

	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		w.schedule(ctx, event.Name, title)

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.cancel(event.Name)
		w.remove(ctx, title)
	}
}

// schedule defers ingestion so a burst of write events becomes one read.
func (w *Watcher) schedule(ctx context.Context, path, title string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceDelay, func() {
		w.cancel(path)
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Reading %s: %v", path, err)
			return
		}
		w.upsert(ctx, title, string(content))
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// upsert ingests new files and reingests known ones.
func (w *Watcher) upsert(ctx context.Context, title, content string) {
	existing, err := w.documents.GetDocumentByTitle(ctx, title)
	switch {
	case err == nil:
		if _, err := w.ingest.Reingest(ctx, existing.ID, content); err != nil {
			logger.Warn("Reingesting %q: %v", title, err)
			return
		}
		logger.Debug("Reingested %q", title)

	case errors.Is(err, domain.ErrNotFound):
		if _, err := w.ingest.Ingest(ctx, title, content); err != nil {
			logger.Warn("Ingesting %q: %v", title, err)
			return
		}
		logger.Debug("Ingested %q", title)

	default:
		logger.Warn("Looking up %q: %v", title, err)
	}
}

func (w *Watcher) remove(ctx context.Context, title string) {
	doc, err := w.documents.GetDocumentByTitle(ctx, title)
	if err != nil {
		return
	}
	if err := w.ingest.Delete(ctx, doc.ID); err != nil {
		logger.Warn("Deleting %q: %v", title, err)
		return
	}
	logger.Debug("Deleted %q", title)
}

func (w *Watcher) watched(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range w.extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// titleFor derives a document title from a file path.
func titleFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
