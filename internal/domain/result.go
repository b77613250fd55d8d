package domain

import (
	"sort"
	"sync"
)

// ProductListings collects the listings matched to one product.
// Append is safe for concurrent use.
type ProductListings struct {
	Product Product

	mu       sync.Mutex
	listings []Listing
}

// NewProductListings creates an empty match set for a product
func NewProductListings(product Product) *ProductListings {
	return &ProductListings{Product: product}
}

// Append adds a matched listing
func (p *ProductListings) Append(listing Listing) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listings = append(p.listings, listing)
}

// Listings returns a copy of the matched listings
func (p *ProductListings) Listings() []Listing {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Listing, len(p.listings))
	copy(out, p.listings)
	return out
}

// Len returns the number of matched listings
func (p *ProductListings) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listings)
}

// SortByPosition orders the listings by their input position
func (p *ProductListings) SortByPosition() {
	p.mu.Lock()
	defer p.mu.Unlock()
	sort.SliceStable(p.listings, func(i, j int) bool {
		return p.listings[i].Position < p.listings[j].Position
	})
}

// MatchResult maps product names to their matched listings, in catalog order.
// The first product with a given name wins; later duplicates are dropped.
type MatchResult struct {
	order  []*ProductListings
	byName map[string]*ProductListings
}

// NewMatchResult creates an empty result with one entry per distinct product
func NewMatchResult(products []Product) *MatchResult {
	r := &MatchResult{
		order:  make([]*ProductListings, 0, len(products)),
		byName: make(map[string]*ProductListings, len(products)),
	}
	for _, product := range products {
		if _, exists := r.byName[product.Name]; exists {
			continue
		}
		group := NewProductListings(product)
		r.order = append(r.order, group)
		r.byName[product.Name] = group
	}
	return r
}

// Get returns the match set for a product name
func (r *MatchResult) Get(name string) (*ProductListings, bool) {
	group, ok := r.byName[name]
	return group, ok
}

// Groups returns every match set in catalog order
func (r *MatchResult) Groups() []*ProductListings {
	return r.order
}

// Len returns the number of products in the result
func (r *MatchResult) Len() int {
	return len(r.order)
}

// MatchedCount returns the total number of assigned listings
func (r *MatchResult) MatchedCount() int {
	total := 0
	for _, group := range r.order {
		total += group.Len()
	}
	return total
}
