package jsonl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/listingmatch/backend/internal/domain"
)

// productRecord mirrors the product line format. Pointers tell a missing
// field apart from an empty one.
type productRecord struct {
	ProductName   *string `json:"product_name"`
	Manufacturer  *string `json:"manufacturer"`
	Family        *string `json:"family"`
	Model         *string `json:"model"`
	AnnouncedDate *string `json:"announced-date"`
}

// listingRecord mirrors the listing line format
type listingRecord struct {
	Title        *string `json:"title"`
	Manufacturer *string `json:"manufacturer"`
	Currency     *string `json:"currency"`
	Price        *string `json:"price"`
}

var errNotObject = errors.New("not a JSON object")

// mapProduct converts a product line to the domain model
func mapProduct(line []byte) (domain.Product, error) {
	if !isObject(line) {
		return domain.Product{}, errNotObject
	}

	var record productRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return domain.Product{}, err
	}

	if err := requireFields(map[string]*string{
		"product_name":   record.ProductName,
		"manufacturer":   record.Manufacturer,
		"model":          record.Model,
		"announced-date": record.AnnouncedDate,
	}); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		Name:          *record.ProductName,
		Manufacturer:  *record.Manufacturer,
		Model:         *record.Model,
		AnnouncedDate: *record.AnnouncedDate,
	}
	if record.Family != nil {
		product.Family = *record.Family
	}
	return product, nil
}

// mapListing converts a listing line to the domain model, keeping the line
// as the raw payload
func mapListing(line []byte) (domain.Listing, error) {
	if !isObject(line) {
		return domain.Listing{}, errNotObject
	}

	var record listingRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return domain.Listing{}, err
	}

	if err := requireFields(map[string]*string{
		"title":        record.Title,
		"manufacturer": record.Manufacturer,
		"currency":     record.Currency,
		"price":        record.Price,
	}); err != nil {
		return domain.Listing{}, err
	}

	return domain.Listing{
		Title:        *record.Title,
		Manufacturer: *record.Manufacturer,
		Currency:     *record.Currency,
		Price:        *record.Price,
		Raw:          json.RawMessage(line),
	}, nil
}

// requireFields reports the first missing field in a stable order
func requireFields(fields map[string]*string) error {
	for _, name := range sortedFieldNames(fields) {
		if fields[name] == nil {
			return fmt.Errorf("missing required field %q", name)
		}
	}
	return nil
}

func sortedFieldNames(fields map[string]*string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isObject reports whether line is a single valid JSON object
func isObject(line []byte) bool {
	return len(line) > 0 && line[0] == '{' && json.Valid(line)
}

// DecodeListing parses one listing object outside of a file, as received by
// the HTTP API. Validation is the same as for listing files.
func DecodeListing(data []byte) (domain.Listing, error) {
	listing, err := mapListing(bytes.TrimSpace(data))
	if err != nil {
		return domain.Listing{}, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	return listing, nil
}
