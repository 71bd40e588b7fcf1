// Package storage resolves raw dataset content for code execution.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/afs"

	"github.com/Veer19/flow-ai-api/internal/agent/model"
	errx "github.com/Veer19/flow-ai-api/internal/core/error"
	logx "github.com/Veer19/flow-ai-api/pkg/logger"
)

// ContentStore fetches the raw tabular bytes behind a storage locator.
type ContentStore interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// BlobStore fetches dataset content through viant/afs, so locators may use
// any registered scheme (file://, s3://, http(s)://, ...).
type BlobStore struct {
	fs afs.Service
}

// NewBlobStore builds a store over the default afs service.
func NewBlobStore() *BlobStore {
	return &BlobStore{fs: afs.New()}
}

// Fetch downloads the content at locator.
func (s *BlobStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	data, err := s.fs.DownloadWithURL(ctx, locator)
	if err != nil {
		logx.Error().Err(err).Str("locator", locator).Msg("Failed to fetch dataset content")
		return nil, errx.WrapStorage(err)
	}
	return data, nil
}

// Loader resolves dataset contents for a single run. Fetches happen
// concurrently across datasets and are cached by dataset id for the run's
// lifetime; nothing is persisted.
type Loader struct {
	store ContentStore

	mu    sync.Mutex
	cache map[string][]byte
}

// NewLoader builds a run-scoped loader over the store.
func NewLoader(store ContentStore) *Loader {
	return &Loader{store: store, cache: make(map[string][]byte)}
}

// Frames fetches every dataset's content and returns it keyed by filename,
// the key generated code uses to pick its DataFrame. Any retrieval failure
// fails the whole call.
func (l *Loader) Frames(ctx context.Context, datasets []model.DataSource) (map[string][]byte, error) {
	errs := make([]error, len(datasets))
	contents := make([][]byte, len(datasets))

	var wg sync.WaitGroup
	for i, ds := range datasets {
		if cached, ok := l.cached(ds.ID); ok {
			contents[i] = cached
			continue
		}
		wg.Add(1)
		go func(i int, ds model.DataSource) {
			defer wg.Done()
			data, err := l.store.Fetch(ctx, ds.BlobPath)
			if err != nil {
				errs[i] = fmt.Errorf("dataset %q: %w", ds.ID, err)
				return
			}
			l.put(ds.ID, data)
			contents[i] = data
		}(i, ds)
	}
	wg.Wait()

	frames := make(map[string][]byte, len(datasets))
	for i, ds := range datasets {
		if errs[i] != nil {
			return nil, errs[i]
		}
		frames[ds.Filename] = contents[i]
	}
	return frames, nil
}

func (l *Loader) cached(id string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.cache[id]
	return data, ok
}

func (l *Loader) put(id string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[id] = data
}

var _ ContentStore = (*BlobStore)(nil)
