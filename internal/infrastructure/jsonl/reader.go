// Package jsonl reads products and listings from JSON-lines files and writes
// grouped match results back out, one JSON object per line.
package jsonl

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/listingmatch/backend/internal/domain"
)

// maxLineSize bounds a single record
const maxLineSize = 4 * 1024 * 1024

// ReadProducts parses one product per line. Whitespace-only lines are skipped;
// the first malformed line fails the whole read.
func ReadProducts(r io.Reader) ([]domain.Product, error) {
	var products []domain.Product
	err := eachLine(r, func(line []byte, lineNo int) error {
		product, err := mapProduct(line)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", domain.ErrInvalidRecord, lineNo, err)
		}
		products = append(products, product)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ReadListings parses one listing per line, keeping each raw line as the
// listing payload. Positions continue from offset.
func ReadListings(r io.Reader, offset int) ([]domain.Listing, error) {
	var listings []domain.Listing
	err := eachLine(r, func(line []byte, lineNo int) error {
		listing, err := mapListing(line)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", domain.ErrInvalidRecord, lineNo, err)
		}
		listing.Position = offset + len(listings)
		listings = append(listings, listing)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// LoadProducts reads the product catalog file
func LoadProducts(path string) ([]domain.Product, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open products file: %w", err)
	}
	defer file.Close()

	products, err := ReadProducts(file)
	if err != nil {
		return nil, fmt.Errorf("read products file %s: %w", path, err)
	}
	return products, nil
}

// LoadListings reads every listings file matching pattern, in sorted path
// order. pattern may be a plain path or a doublestar glob such as
// "data/**/listings*.txt".
func LoadListings(pattern string) ([]domain.Listing, error) {
	paths, err := ListingFiles(pattern)
	if err != nil {
		return nil, err
	}

	var listings []domain.Listing
	for _, path := range paths {
		batch, err := loadListingFile(path, len(listings))
		if err != nil {
			return nil, err
		}
		listings = append(listings, batch...)
	}
	return listings, nil
}

// ListingFiles expands a listings pattern into existing file paths
func ListingFiles(pattern string) ([]string, error) {
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("invalid listings pattern %q", pattern)
	}

	paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expand listings pattern %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no listings files match %q: %w", pattern, os.ErrNotExist)
	}

	sort.Strings(paths)
	return paths, nil
}

func loadListingFile(path string, offset int) ([]domain.Listing, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open listings file: %w", err)
	}
	defer file.Close()

	listings, err := ReadListings(file, offset)
	if err != nil {
		return nil, fmt.Errorf("read listings file %s: %w", path, err)
	}
	return listings, nil
}

// eachLine calls fn for every non-blank line with its 1-based line number
func eachLine(r io.Reader, fn func(line []byte, lineNo int) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		// Scanner reuses its buffer; records keep the bytes as payload
		owned := make([]byte, len(line))
		copy(owned, line)
		if err := fn(owned, lineNo); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan line %d: %w", lineNo+1, err)
	}
	return nil
}
