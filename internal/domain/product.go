package domain

import "encoding/json"

// Product is a canonical catalog entry. Name is its identity.
type Product struct {
	Name          string `json:"product_name"`
	Manufacturer  string `json:"manufacturer"`
	Family        string `json:"family,omitempty"`
	Model         string `json:"model"`
	AnnouncedDate string `json:"announced-date"`
}

// Listing is a free-text offer for some product.
// Raw holds the original JSON object and is echoed as compact JSON on output.
type Listing struct {
	Title        string          `json:"title"`
	Manufacturer string          `json:"manufacturer"`
	Currency     string          `json:"currency"`
	Price        string          `json:"price"`
	Raw          json.RawMessage `json:"-"`
	Position     int             `json:"-"`
}

// Payload returns the raw JSON for the listing, marshalling the parsed
// fields when the listing was not read from JSON.
func (l Listing) Payload() json.RawMessage {
	if len(l.Raw) > 0 {
		return l.Raw
	}
	data, err := json.Marshal(l)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
