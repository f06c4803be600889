package kyc

import (
	"time"

	"evergreen/internal/cache"
)

// DraftStore keeps one onboarding Flow per session. Drafts expire with the
// cache TTL, so an abandoned onboarding starts over.
type DraftStore struct {
	flows *cache.LRUCache[*Flow]
}

func NewDraftStore(maxDrafts int, ttl time.Duration) *DraftStore {
	return &DraftStore{flows: cache.NewLRUCache[*Flow](maxDrafts, ttl)}
}

// Flow returns the draft for sessionID, starting a new one when none exists.
func (d *DraftStore) Flow(sessionID string) *Flow {
	return d.flows.Update(sessionID, func(cur *Flow, found bool) *Flow {
		if found && cur != nil {
			return cur
		}
		return NewFlow()
	})
}

// Peek returns the draft without creating one.
func (d *DraftStore) Peek(sessionID string) (*Flow, bool) {
	return d.flows.Get(sessionID)
}

// Discard drops the draft, e.g. after submission or logout.
func (d *DraftStore) Discard(sessionID string) {
	d.flows.Delete(sessionID)
}

// Cache exposes the underlying cache for periodic expiry sweeps.
func (d *DraftStore) Cache() *cache.LRUCache[*Flow] { return d.flows }
