package domain

import "time"

// Stage is the state of a listing in the classification pipeline.
type Stage int

const (
	StagePending Stage = iota
	StageManufacturerResolved
	StageAssigned
	StageUnmatched
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageManufacturerResolved:
		return "manufacturer_resolved"
	case StageAssigned:
		return "assigned"
	case StageUnmatched:
		return "unmatched"
	default:
		return "unknown"
	}
}

// Classification is the outcome of running one listing through the matcher.
// Manufacturer is set once the manufacturer stage succeeded, even if the
// model stage later failed.
type Classification struct {
	Stage        Stage  `json:"-"`
	Manufacturer string `json:"manufacturer,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
}

// Matched reports whether the listing was assigned to a product.
func (c Classification) Matched() bool {
	return c.Stage == StageAssigned
}

// RunReport summarizes one batch matching run.
type RunReport struct {
	RunID     string        `json:"run_id"`
	Listings  int           `json:"listings"`
	Assigned  int           `json:"assigned"`
	Unmatched int           `json:"unmatched"`
	Failed    int           `json:"failed"`
	Workers   int           `json:"workers"`
	Duration  time.Duration `json:"duration"`
}
