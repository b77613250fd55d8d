package usecase

import (
	"github.com/listingmatch/backend/internal/domain"
)

// ManufacturerMatcher resolves a listing to a canonical (normalized)
// manufacturer and holds one ModelMatcher per manufacturer.
type ManufacturerMatcher struct {
	index          *AliasIndex
	manufacturers  []string
	productsByName map[string][]domain.Product
	models         map[string]*ModelMatcher
}

// NewManufacturerMatcher groups products by normalized manufacturer and builds
// the manufacturer index plus every per-manufacturer model index
func NewManufacturerMatcher(products []domain.Product, config MatchConfig) *ManufacturerMatcher {
	ignorable := config.ignorableSet()

	productsByName := make(map[string][]domain.Product)
	var manufacturers []string
	for _, product := range products {
		manufacturer := Normalize(product.Manufacturer)
		if _, exists := productsByName[manufacturer]; !exists {
			manufacturers = append(manufacturers, manufacturer)
		}
		productsByName[manufacturer] = append(productsByName[manufacturer], product)
	}

	models := make(map[string]*ModelMatcher, len(manufacturers))
	for _, manufacturer := range manufacturers {
		models[manufacturer] = NewModelMatcher(
			productsByName[manufacturer],
			config.ModelMargin,
			config.SmallWordSize,
			ignorable,
		)
	}

	return &ManufacturerMatcher{
		index:          NewAliasIndex(manufacturers, AliasOptions{Margin: config.ManufacturerMargin, Ignorable: ignorable}),
		manufacturers:  manufacturers,
		productsByName: productsByName,
		models:         models,
	}
}

// Lookup resolves the listing manufacturer, first from the manufacturer field
// alone and then from manufacturer + title
func (m *ManufacturerMatcher) Lookup(listing domain.Listing) (string, bool) {
	manufacturer := Normalize(listing.Manufacturer)
	if result, ok := m.index.Lookup(manufacturer, nil); ok {
		return result, true
	}

	title := Normalize(listing.Title)
	return m.index.Lookup(manufacturer+" "+title, nil)
}

// ModelMatcher returns the model index of a canonical manufacturer
func (m *ManufacturerMatcher) ModelMatcher(manufacturer string) (*ModelMatcher, bool) {
	matcher, ok := m.models[manufacturer]
	return matcher, ok
}

// Products returns the catalog products of a canonical manufacturer
func (m *ManufacturerMatcher) Products(manufacturer string) []domain.Product {
	return m.productsByName[manufacturer]
}

// Manufacturers returns the canonical manufacturers in catalog order
func (m *ManufacturerMatcher) Manufacturers() []string {
	return m.manufacturers
}
