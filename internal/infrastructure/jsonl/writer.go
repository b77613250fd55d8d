package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/listingmatch/backend/internal/domain"
)

// resultLine is one output record
type resultLine struct {
	ProductName string            `json:"product_name"`
	Listings    []json.RawMessage `json:"listings"`
}

// WriteResults writes one line per product in catalog order, including
// products without listings
func WriteResults(w io.Writer, result *domain.MatchResult) error {
	buffered := bufio.NewWriter(w)
	encoder := json.NewEncoder(buffered)
	encoder.SetEscapeHTML(false)

	for _, group := range result.Groups() {
		listings := group.Listings()
		line := resultLine{
			ProductName: group.Product.Name,
			Listings:    make([]json.RawMessage, 0, len(listings)),
		}
		for _, listing := range listings {
			line.Listings = append(line.Listings, listing.Payload())
		}

		if err := encoder.Encode(line); err != nil {
			return fmt.Errorf("encode product %q: %w", group.Product.Name, err)
		}
	}

	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return nil
}

// SaveResults writes the results to path, replacing any existing file
func SaveResults(path string, result *domain.MatchResult) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close results file: %w", closeErr)
		}
	}()

	return WriteResults(file, result)
}
