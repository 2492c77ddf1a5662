package checkout

import (
	"io"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stepshopapp/stepshop/internal/commerce"
)

const defaultRegistrySize = 10_000

// Registry holds the live CartSync instance for each browser session so
// concurrent requests from one session share a single synchronizer. Bounded;
// an evicted session simply re-fetches its cart on the next request.
type Registry struct {
	client commerce.Client
	logger *slog.Logger

	mu    sync.Mutex
	cache *lru.Cache[string, *CartSync]
}

func NewRegistry(client commerce.Client, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cache, err := lru.New[string, *CartSync](defaultRegistrySize)
	if err != nil {
		return nil, err
	}
	return &Registry{
		client: client,
		logger: logger,
		cache:  cache,
	}, nil
}

// ForSession returns the session's synchronizer, creating one on first use.
// cartID is the session's persisted cart identifier; a synchronizer rebuilt
// after eviction or a restart adopts it so the session keeps its cart.
func (r *Registry) ForSession(sessionID, cartID string) *CartSync {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cartSync, ok := r.cache.Get(sessionID); ok {
		cartSync.Adopt(cartID)
		return cartSync
	}
	cartSync := NewCartSync(r.client, r.logger.With("session_id", sessionID))
	cartSync.Adopt(cartID)
	r.cache.Add(sessionID, cartSync)
	return cartSync
}

// Drop forgets the session's synchronizer, e.g. after order submission.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(sessionID)
}
