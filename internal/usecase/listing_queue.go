package usecase

import (
	"sync"

	"github.com/listingmatch/backend/internal/domain"
)

// ListingQueue hands out pending listings to concurrent workers
type ListingQueue struct {
	mu       sync.Mutex
	listings []domain.Listing
	next     int
}

// NewListingQueue creates a queue over listings. The slice is not modified.
func NewListingQueue(listings []domain.Listing) *ListingQueue {
	return &ListingQueue{listings: listings}
}

// TryPop removes the next listing. ok is false once the queue is drained.
// The returned listing carries its input index as Position.
func (q *ListingQueue) TryPop() (listing domain.Listing, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.next >= len(q.listings) {
		return domain.Listing{}, false
	}
	listing = q.listings[q.next]
	listing.Position = q.next
	q.next++
	return listing, true
}

// Remaining returns the number of listings not yet popped
func (q *ListingQueue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.listings) - q.next
}
