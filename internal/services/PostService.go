package services

import (
	"fmt"
	"spd/internal/models"
	"spd/internal/providers"
	"spd/internal/storage"
	"spd/internal/storage/interfaces"
	"sync"
)

// AnyToken matches whatever collection is current.
const AnyToken = "*"

type ReadResult struct {
	// NotModified is set when one of the caller's tokens matches the
	// current fingerprint; Body is nil in that case.
	NotModified bool
	Body        []byte
	Token       string
}

type WriteResult struct {
	Post  models.Post
	Body  []byte
	Token string
}

type CollectionStats struct {
	Posts  int
	NextId uint64
	Token  string
}

type PostServiceInterface interface {
	Read(tokens ...string) ReadResult
	Write(content string) (WriteResult, error)
	Stats() CollectionStats
}

// PostService guards the single post collection with a readers-writer lock.
// A write holds the exclusive lock across append, re-serialization and the
// file rewrite, so readers never see a state the file has not been asked to
// catch up with.
type PostService struct {
	mu         sync.RWMutex
	collection *models.PostCollection
	store      interfaces.StoreInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func NewPostService(store interfaces.StoreInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) (PostServiceInterface, error) {
	raw, err := store.Load()
	if err != nil {
		return nil, err
	}

	collection, err := models.NewPostCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorruptCollection, err)
	}

	_, token := collection.Snapshot()
	logger.Infof(providers.TypeApp, "Loaded %d posts, next id %d, fingerprint %s", collection.Len(), collection.NextId(), token)
	metrics.SetPostsTotal(collection.Len())

	return &PostService{
		collection: collection,
		store:      store,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

func (ps *PostService) Read(tokens ...string) ReadResult {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	body, current := ps.collection.Snapshot()
	for _, token := range tokens {
		if token == current || token == AnyToken {
			ps.metrics.IncNotModified()
			return ReadResult{NotModified: true, Token: current}
		}
	}
	return ReadResult{Body: body, Token: current}
}

// Write appends content and rewrites the collection file before returning.
// When the rewrite fails the post stays in memory and is served to readers
// even though it is not on disk; no rollback is attempted.
func (ps *PostService) Write(content string) (WriteResult, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	post, err := ps.collection.Append(content)
	if err != nil {
		return WriteResult{}, err
	}
	body, token := ps.collection.Snapshot()
	ps.metrics.SetPostsTotal(ps.collection.Len())

	if err = ps.store.Persist(body); err != nil {
		ps.logger.Errorf(providers.TypePost, "Post %d kept in memory but not persisted: %s", post.Id, err)
		return WriteResult{}, err
	}

	return WriteResult{Post: post, Body: body, Token: token}, nil
}

func (ps *PostService) Stats() CollectionStats {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	_, token := ps.collection.Snapshot()
	return CollectionStats{
		Posts:  ps.collection.Len(),
		NextId: ps.collection.NextId(),
		Token:  token,
	}
}
