package usecase

import (
	"strings"
	"unicode/utf8"

	"github.com/listingmatch/backend/internal/domain"
)

// ModelMatcher resolves a listing title to one product of a single
// manufacturer by voting over model (and model + family) strings.
type ModelMatcher struct {
	index *AliasIndex
	// variant -> product names it can denote
	productsByVariant map[string][]string
}

// NewModelMatcher builds the model index for the products of one manufacturer
func NewModelMatcher(products []domain.Product, margin float64, smallWordSize int, ignorable map[string]struct{}) *ModelMatcher {
	productsByVariant := make(map[string][]string)
	var variants []string

	put := func(variant, productName string) {
		names, exists := productsByVariant[variant]
		if !exists {
			variants = append(variants, variant)
		}
		for _, name := range names {
			if name == productName {
				return
			}
		}
		productsByVariant[variant] = append(names, productName)
	}

	for _, product := range products {
		model := Normalize(product.Model)
		family := Normalize(product.Family)

		for _, variant := range SpacingCombinations(model, smallWordSize) {
			if variant != "" {
				put(variant, product.Name)
			}
			if family != "" {
				put(strings.TrimSpace(variant+" "+family), product.Name)
			}
		}
	}

	return &ModelMatcher{
		index:             NewAliasIndex(variants, AliasOptions{Margin: margin, Ignorable: ignorable}),
		productsByVariant: productsByVariant,
	}
}

// Lookup returns the product name decisively matched by a normalized title
func (m *ModelMatcher) Lookup(title string) (string, bool) {
	return m.index.Lookup(title, m.productsByVariant)
}

// Variants returns every registered model variant, sorted
func (m *ModelMatcher) Variants() []string {
	return m.index.Keywords()
}

// ProductsFor returns the product names a variant can denote
func (m *ModelMatcher) ProductsFor(variant string) []string {
	return m.productsByVariant[variant]
}

// SpacingCombinations returns model with its original spacing followed by
// variants where the space next to each short token is removed: joined to
// the left neighbor, to the right neighbor, and to both.
func SpacingCombinations(model string, smallWordSize int) []string {
	result := []string{model}
	seen := map[string]struct{}{model: {}}
	add := func(variant string) {
		if _, dup := seen[variant]; dup {
			return
		}
		seen[variant] = struct{}{}
		result = append(result, variant)
	}

	words := Tokenize(model)
	if len(words) < 2 {
		return result
	}

	for i, word := range words {
		if utf8.RuneCountInString(word) > smallWordSize {
			continue
		}
		hasLeft := i > 0
		hasRight := i < len(words)-1

		if hasLeft {
			add(joinWords(words, i))
		}
		if hasRight {
			add(joinWords(words, i+1))
		}
		if hasLeft && hasRight {
			add(joinWords(words, i, i+1))
		}
	}

	return result
}

// joinWords rejoins words with single spaces, omitting the space before each
// index in glued
func joinWords(words []string, glued ...int) string {
	var b strings.Builder
	for j, word := range words {
		if j > 0 && !containsInt(glued, j) {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	return b.String()
}

func containsInt(values []int, v int) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
